package main

import (
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/cobra"

	"tsbridge/internal/config"
	"tsbridge/internal/editor"
	"tsbridge/internal/paths"
	"tsbridge/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Validate a source tree continuously",
	Long: `Open every TypeScript and JavaScript file under dir, report diagnostics, and
keep reporting them as files change. Changes to the tsbridge configuration are
applied without a restart. Stop with Ctrl-C.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	root, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	var printMu sync.Mutex
	report := func(uri string) {
		markers := s.bridge.Markers.ForDocument(uri)
		printMu.Lock()
		defer printMu.Unlock()
		if err := printResponse(&DiagnosticsResponse{
			Files:    []FileDiagnostics{{File: uri, Markers: markers}},
			Errors:   countSeverity(markers, editor.SeverityError),
			Warnings: countSeverity(markers, editor.SeverityWarning),
		}); err != nil {
			logger.Error("Could not print diagnostics", "error", err.Error())
		}
	}
	sub := s.bridge.Markers.OnDidChange(func(c editor.MarkerChange) { report(c.URI) })
	defer sub.Dispose()

	wcfg := watcher.DefaultConfig()
	wcfg.Extensions = nil
	w, err := watcher.New(root, wcfg, logger, func(events []watcher.Event) {
		for _, ev := range events {
			syncFile(s, ev)
		}
	})
	if err != nil {
		return err
	}

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != root && w.IsIgnored(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() && s.bridge.Languages.ForPath(path, "") != "" {
			if _, err := s.open(path); err != nil {
				logger.Warn("Could not open file", "path", path, "error", err.Error())
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	cw, err := config.Watch(s.cfg.Root, logger, func(cfg *config.Config) {
		// worker settings stay as resolved at startup
		cfg.Worker = s.cfg.Worker
		if err := s.bridge.ApplyConfig(cfg); err != nil {
			logger.Warn("Configuration not applied", "error", err.Error())
		}
	})
	if err != nil {
		logger.Debug("Not watching configuration", "error", err.Error())
	} else {
		defer cw.Close()
	}

	if err := w.Start(s.ctx); err != nil {
		return err
	}
	defer func() { _ = w.Stop() }()

	<-s.ctx.Done()
	return nil
}

// syncFile mirrors one file system event into the bridge.
func syncFile(s *session, ev watcher.Event) {
	uri := paths.ToURI(ev.Path)
	switch ev.Type {
	case watcher.EventDelete, watcher.EventRename:
		s.bridge.Close(uri)
		return
	}
	text, err := os.ReadFile(ev.Path)
	if err != nil {
		logger.Debug("Could not read changed file", "path", ev.Path, "error", err.Error())
		return
	}
	if doc := s.bridge.Store.Get(uri); doc != nil {
		doc.SetText(string(text))
		return
	}
	if _, err := s.bridge.Open(ev.Path, string(text)); err != nil {
		logger.Debug("Ignoring file", "path", ev.Path, "error", err.Error())
	}
}

func countSeverity(markers []editor.Marker, sev editor.Severity) int {
	n := 0
	for _, m := range markers {
		if m.Severity == sev {
			n++
		}
	}
	return n
}
