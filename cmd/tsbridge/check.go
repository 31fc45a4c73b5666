package main

import (
	"github.com/spf13/cobra"

	"tsbridge/internal/editor"
	"tsbridge/internal/engine"
)

var checkWarningsFail bool

var checkCmd = &cobra.Command{
	Use:   "check <files...>",
	Short: "Report syntactic and semantic diagnostics",
	Long: `Validate files and report their diagnostics. The exit status is 1 when any
error is found.

Examples:
  tsbridge check src/app.ts
  tsbridge check src/*.ts --format json
  tsbridge check lib.js --warnings-fail`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().BoolVar(&checkWarningsFail, "warnings-fail", false, "Exit with status 1 on warnings too")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	resp := &DiagnosticsResponse{Files: make([]FileDiagnostics, 0, len(args))}
	checked := map[string]bool{}
	for _, path := range args {
		doc, err := s.open(path)
		if err != nil {
			return err
		}
		a, err := s.bridge.Adapters(doc)
		if err != nil {
			return err
		}
		mode, _ := s.bridge.Mode(doc.LanguageID())
		markers, err := a.Diagnostics(s.ctx, doc, mode.Defaults.DiagnosticsOptions())
		if err != nil {
			return err
		}
		resp.Files = append(resp.Files, FileDiagnostics{File: doc.URI(), Markers: markers})
		for _, m := range markers {
			switch m.Severity {
			case editor.SeverityError:
				resp.Errors++
			case editor.SeverityWarning:
				resp.Warnings++
			}
		}

		if !checked[doc.LanguageID()] {
			checked[doc.LanguageID()] = true
			diags, err := a.CompilerOptionsDiagnostics(s.ctx)
			if err != nil {
				return err
			}
			for _, d := range diags {
				resp.CompilerOptions = append(resp.CompilerOptions, engine.FlattenDiagnosticMessageText(d, "\n"))
				if d.Category == engine.CategoryError {
					resp.Errors++
				}
			}
		}
	}

	if err := printResponse(resp); err != nil {
		return err
	}
	if resp.Errors > 0 || (checkWarningsFail && resp.Warnings > 0) {
		return &exitError{code: 1}
	}
	return nil
}
