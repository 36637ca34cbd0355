package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"vmbridge/internal/declaration"
)

// DefaultDebounce is how long watch waits for more changes before
// regenerating.
const DefaultDebounce = 100 * time.Millisecond

// NewWatchCommand creates the watch command.
func NewWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [inputs...]",
		Short: "Regenerate bindings whenever a declaration file changes",
		Long: `Generate once, then watch the input directories and regenerate after
every change to a .vmb file. Errors are logged and watching continues.
Press Ctrl+C to stop.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := EnvFrom(cmd.Context())
			if err != nil {
				return err
			}
			inputs := args
			if len(inputs) == 0 {
				inputs = env.Config.Inputs
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			debounce, _ := cmd.Flags().GetDuration("debounce")
			rebuild := func() error {
				gen, err := build(ctx, env, inputs)
				if err != nil {
					return err
				}
				written, err := gen.Generate()
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "regenerated %d files\n", len(written))
				return nil
			}
			return Watch(ctx, watchDirs(inputs), debounce, rebuild, env.Logger)
		},
	}
	cmd.Flags().Duration("debounce", DefaultDebounce, "Quiet period before regenerating")
	return cmd
}

// watchDirs returns the directories to watch for the given inputs.
func watchDirs(inputs []string) []string {
	seen := make(map[string]bool)
	var dirs []string
	for _, in := range inputs {
		dir := in
		if info, err := os.Stat(in); err != nil || !info.IsDir() {
			dir = filepath.Dir(in)
		}
		dir = filepath.Clean(dir)
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}
	sort.Strings(dirs)
	return dirs
}

// Watch runs rebuild once, then again after every burst of changes to
// declaration files in dirs, until ctx is done. Rebuild errors are logged,
// not returned.
func Watch(ctx context.Context, dirs []string, debounce time.Duration, rebuild func() error, logger *slog.Logger) error {
	var mu sync.Mutex
	run := func(reason string) {
		mu.Lock()
		defer mu.Unlock()
		if err := rebuild(); err != nil {
			logger.Error("regeneration failed", "reason", reason, "error", err)
			return
		}
		logger.Info("regenerated bindings", "reason", reason)
	}

	run("initial build")

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		logger.Debug("watching", "dir", dir)
	}

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if filepath.Ext(event.Name) != declaration.Extension {
				continue
			}

			if timer != nil {
				timer.Stop()
			}
			name := filepath.Base(event.Name)
			timer = time.AfterFunc(debounce, func() {
				run("changed " + name)
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", "error", err)
		}
	}
}
