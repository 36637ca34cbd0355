package declaration

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/sync/errgroup"
)

// Extension is the file extension of declaration files.
const Extension = ".vmb"

// Reader loads declaration files from disk.
type Reader struct {
	jobs   int
	logger *slog.Logger
}

// NewReader creates a reader parsing at most jobs files concurrently.
func NewReader(jobs int, logger *slog.Logger) *Reader {
	if jobs < 1 {
		jobs = 1
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Reader{jobs: jobs, logger: logger}
}

// ReadFile parses one declaration file.
func (r *Reader) ReadFile(path string) (*File, error) {
	src, err := os.ReadFile(path) //nolint:gosec // G304: path is a user-supplied input
	if err != nil {
		return nil, fmt.Errorf("read declaration file: %w", err)
	}

	f, err := ParseFile(path, string(src))
	if err != nil {
		return nil, err
	}
	r.logger.Debug("parsed declaration file",
		slog.String("file", path),
		slog.Int("classes", len(f.Classes)),
		slog.Int("groups", len(f.Groups)))
	return f, nil
}

// Expand turns input paths into a sorted list of declaration files. A
// directory contributes every *.vmb file directly inside it.
func Expand(inputs []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(path string) {
		clean := filepath.Clean(path)
		if !seen[clean] {
			seen[clean] = true
			files = append(files, clean)
		}
	}

	for _, in := range inputs {
		info, err := os.Stat(in)
		if err != nil {
			return nil, fmt.Errorf("input %s: %w", in, err)
		}
		if !info.IsDir() {
			add(in)
			continue
		}
		matches, err := filepath.Glob(filepath.Join(in, "*"+Extension))
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", in, err)
		}
		for _, m := range matches {
			add(m)
		}
	}

	sort.Strings(files)
	return files, nil
}

// ReadAll expands inputs and parses every file. Files are parsed
// concurrently; the result keeps the sorted file order. The first failure
// cancels the rest.
func (r *Reader) ReadAll(ctx context.Context, inputs []string) ([]*File, error) {
	paths, err := Expand(inputs)
	if err != nil {
		return nil, err
	}

	files := make([]*File, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.jobs)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			f, err := r.ReadFile(path)
			if err != nil {
				return err
			}
			files[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}
