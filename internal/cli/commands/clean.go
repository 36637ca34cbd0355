package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"vmbridge/internal/generation"
)

// ErrNotConfirmed is returned when the user declines the clean prompt.
var ErrNotConfirmed = errors.New("explicit agreement was not given")

// staleOutputs lists the generated files in dir: names ending in suffix
// whose first line is the generated-code header. Hand-written files are
// never touched.
func staleOutputs(dir, suffix string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*"+suffix))
	if err != nil {
		return nil, err
	}

	var stale []string
	for _, path := range matches {
		generated, err := isGenerated(path)
		if err != nil {
			return nil, err
		}
		if generated {
			stale = append(stale, path)
		}
	}
	sort.Strings(stale)
	return stale, nil
}

func isGenerated(path string) (bool, error) {
	f, err := os.Open(path) //nolint:gosec // G304: path comes from a glob over the output dir
	if err != nil {
		return false, err
	}
	defer f.Close()

	line, err := bufio.NewReader(f).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	return strings.TrimSpace(line) == "// "+generation.Header, nil
}

// CleanOutput removes previously generated files from dir. Unless force
// is set the user has to confirm on in.
func CleanOutput(dir, suffix string, force bool, in io.Reader, out io.Writer, logger *slog.Logger) error {
	stale, err := staleOutputs(dir, suffix)
	if err != nil {
		return err
	}
	if len(stale) == 0 {
		return nil
	}

	if !force {
		_, _ = fmt.Fprintf(out, "Output directory contains %d generated files. Continuation will result in removing them. Proceed? [Y/n] ", len(stale))
		var response string
		_, _ = fmt.Fscan(in, &response)
		if strings.ToUpper(strings.TrimSpace(response)) != "Y" {
			return ErrNotConfirmed
		}
	}

	for _, path := range stale {
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("clean %s: %w", path, err)
		}
		logger.Debug("removed stale output", "path", path)
	}
	logger.Info("cleaned output directory", "dir", dir, "removed", len(stale))
	return nil
}
