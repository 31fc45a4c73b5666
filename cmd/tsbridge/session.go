package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"tsbridge/internal/bridge"
	"tsbridge/internal/config"
	"tsbridge/internal/editor"
	"tsbridge/internal/engine/treesitter"
	"tsbridge/internal/model"
)

// loadConfig loads the configuration of the working directory and applies
// the --worker-mode override.
func loadConfig() (*config.Config, error) {
	root, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}
	if workerModeFlag != "" {
		cfg.Worker.Mode = workerModeFlag
	}
	// process workers default to this binary's worker command
	if cfg.Worker.Mode == config.ModeProcess && cfg.Worker.Command == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("locate worker executable: %w", err)
		}
		cfg.Worker.Command = exe
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// session is one command's bridge over files read from disk.
type session struct {
	cfg    *config.Config
	bridge *bridge.Bridge
	ctx    context.Context
}

func newSession(cmd *cobra.Command) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Worker.Mode == config.ModeInProcess && !treesitter.Available() {
		return nil, fmt.Errorf("the analysis engine needs a cgo build; use --worker-mode process with a cgo-enabled worker")
	}
	b, err := bridge.New(bridge.Options{Config: cfg, Factory: treesitter.New, Logger: logger})
	if err != nil {
		return nil, err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return &session{cfg: cfg, bridge: b, ctx: ctx}, nil
}

func (s *session) Close() {
	s.bridge.Dispose()
}

// open reads path from disk and opens it in the bridge.
func (s *session) open(path string) (*model.Document, error) {
	text, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return s.bridge.Open(path, string(text))
}

// formattingOptions is the configured format profile.
func (s *session) formattingOptions() editor.FormattingOptions {
	return editor.FormattingOptions{TabSize: s.cfg.Format.TabSize, InsertSpaces: s.cfg.Format.InsertSpaces}
}

// parsePosition parses 1-based line and column arguments.
func parsePosition(line, col string) (editor.Position, error) {
	l, err := strconv.Atoi(line)
	if err != nil || l < 1 {
		return editor.Position{}, fmt.Errorf("invalid line %q", line)
	}
	c, err := strconv.Atoi(col)
	if err != nil || c < 1 {
		return editor.Position{}, fmt.Errorf("invalid column %q", col)
	}
	return editor.Position{LineNumber: l, Column: c}, nil
}
