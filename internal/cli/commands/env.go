// Package commands implements the vmbridge subcommands.
package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"vmbridge/internal/config"
	"vmbridge/internal/declaration"
	"vmbridge/internal/generation"
	"vmbridge/internal/logging"
)

// Env is what the root command hands to every subcommand.
type Env struct {
	Config *config.Config
	Logger *slog.Logger
}

type envKey struct{}

// WithEnv stores env in ctx.
func WithEnv(ctx context.Context, env *Env) context.Context {
	return context.WithValue(ctx, envKey{}, env)
}

// EnvFrom retrieves the Env stored by the root command.
func EnvFrom(ctx context.Context) (*Env, error) {
	if ctx == nil {
		return nil, errors.New("command has no context")
	}
	env, ok := ctx.Value(envKey{}).(*Env)
	if !ok || env.Config == nil {
		return nil, errors.New("configuration was not loaded")
	}
	if env.Logger == nil {
		env.Logger = logging.Discard()
	}
	return env, nil
}

// build parses the declaration inputs and registers them with a new
// generator. Command line inputs replace the configured ones.
func build(ctx context.Context, env *Env, args []string) (*generation.Generator, error) {
	cfg := env.Config
	inputs := args
	if len(inputs) == 0 {
		inputs = cfg.Inputs
	}
	if len(inputs) == 0 {
		return nil, errors.New("no inputs: pass declaration files or directories, or set inputs in the config file")
	}

	reader := declaration.NewReader(cfg.Jobs, env.Logger)
	files, err := reader.ReadAll(ctx, inputs)
	if err != nil {
		return nil, err
	}

	gen := generation.NewGenerator(generation.Options{
		PackageName:  cfg.Package,
		OutputPath:   cfg.Output,
		BridgeImport: cfg.BridgeImport,
		Suffix:       cfg.Suffix,
		FixImports:   cfg.FixImports,
		Logger:       env.Logger,
	})
	for _, f := range files {
		if err := gen.RegisterFile(f); err != nil {
			return nil, err
		}
	}
	if len(gen.Files) == 0 {
		return nil, fmt.Errorf("no %s files found in %v", declaration.Extension, inputs)
	}
	return gen, nil
}
