package main

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"unicode/utf16"

	"github.com/spf13/cobra"

	"tsbridge/internal/coords"
	"tsbridge/internal/editor"
	"tsbridge/internal/model"
)

var (
	formatRange string
	formatWrite bool
)

var formatCmd = &cobra.Command{
	Use:   "format <file>",
	Short: "Compute formatting edits for a file",
	Long: `Compute formatting edits for a whole file or a range of it, using the
format profile from .tsbridge/format.toml or the configuration.

Examples:
  tsbridge format src/app.ts
  tsbridge format src/app.ts --range 3:1-10:1
  tsbridge format src/app.ts --write`,
	Args: cobra.ExactArgs(1),
	RunE: runFormat,
}

func init() {
	formatCmd.Flags().StringVar(&formatRange, "range", "", "Only format line:col-line:col")
	formatCmd.Flags().BoolVar(&formatWrite, "write", false, "Apply the edits to the file")
	rootCmd.AddCommand(formatCmd)
}

func runFormat(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()
	doc, err := s.open(args[0])
	if err != nil {
		return err
	}

	var edits []editor.TextEdit
	if formatRange != "" {
		rng, err := parseRange(formatRange)
		if err != nil {
			return err
		}
		edits, err = s.bridge.Registry.FormatRange(s.ctx, doc, rng, s.formattingOptions())
		if err != nil {
			return err
		}
	} else {
		edits, err = s.bridge.Registry.FormatDocument(s.ctx, doc, s.formattingOptions())
		if err != nil {
			return err
		}
	}

	resp := &EditsResponse{File: doc.URI(), Edits: edits}
	if formatWrite && len(edits) > 0 {
		text, err := applyEdits(doc, edits)
		if err != nil {
			return err
		}
		info, err := os.Stat(args[0])
		if err != nil {
			return err
		}
		if err := os.WriteFile(args[0], []byte(text), info.Mode().Perm()); err != nil {
			return err
		}
		resp.Written = true
	}
	return printResponse(resp)
}

// parseRange parses "line:col-line:col".
func parseRange(s string) (editor.Range, error) {
	from, to, ok := strings.Cut(s, "-")
	if !ok {
		return editor.Range{}, fmt.Errorf("invalid range %q: want line:col-line:col", s)
	}
	var ends [2]editor.Position
	for i, part := range []string{from, to} {
		line, col, ok := strings.Cut(part, ":")
		if !ok {
			return editor.Range{}, fmt.Errorf("invalid range %q: want line:col-line:col", s)
		}
		pos, err := parsePosition(line, col)
		if err != nil {
			return editor.Range{}, err
		}
		ends[i] = pos
	}
	if ends[1].Before(ends[0]) {
		return editor.Range{}, fmt.Errorf("invalid range %q: end before start", s)
	}
	return coords.NewRange(ends[0], ends[1]), nil
}

// applyEdits returns doc's text with edits applied. Edits must not overlap.
func applyEdits(doc *model.Document, edits []editor.TextEdit) (string, error) {
	type span struct {
		start, end int
		text       string
	}
	spans := make([]span, 0, len(edits))
	for _, e := range edits {
		start, end, err := coords.RangeToOffsets(doc, e.Range)
		if err != nil {
			return "", err
		}
		spans = append(spans, span{start, end, e.Text})
	}
	sort.SliceStable(spans, func(i, j int) bool { return spans[i].start > spans[j].start })

	units := utf16.Encode([]rune(doc.Text()))
	for _, sp := range spans {
		repl := utf16.Encode([]rune(sp.text))
		out := make([]uint16, 0, len(units)-(sp.end-sp.start)+len(repl))
		out = append(out, units[:sp.start]...)
		out = append(out, repl...)
		out = append(out, units[sp.end:]...)
		units = out
	}
	return string(utf16.Decode(units)), nil
}
