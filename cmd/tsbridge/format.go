package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"tsbridge/internal/editor"
	"tsbridge/internal/paths"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"
	FormatHuman OutputFormat = "human"
	FormatYAML  OutputFormat = "yaml"
	FormatTOML  OutputFormat = "toml"
)

// ParseOutputFormat validates a --format value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(s)); f {
	case FormatJSON, FormatHuman, FormatYAML, FormatTOML:
		return f, nil
	}
	return "", fmt.Errorf("unsupported format: %s", s)
}

// FormatResponse formats a response according to the specified format
func FormatResponse(resp interface{}, format OutputFormat) (string, error) {
	switch format {
	case FormatJSON:
		return formatJSON(resp)
	case FormatYAML:
		data, err := yaml.Marshal(resp)
		if err != nil {
			return "", fmt.Errorf("failed to marshal YAML: %w", err)
		}
		return string(data), nil
	case FormatTOML:
		data, err := toml.Marshal(resp)
		if err != nil {
			return "", fmt.Errorf("failed to marshal TOML: %w", err)
		}
		return string(data), nil
	case FormatHuman:
		return formatHuman(resp, colorEnabled())
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

// printResponse writes resp to stdout in the --format format.
func printResponse(resp interface{}) error {
	format, err := ParseOutputFormat(formatFlag)
	if err != nil {
		return err
	}
	out, err := FormatResponse(resp, format)
	if err != nil {
		return err
	}
	fmt.Fprint(os.Stdout, out)
	if !strings.HasSuffix(out, "\n") {
		fmt.Fprintln(os.Stdout)
	}
	return nil
}

func formatJSON(resp interface{}) (string, error) {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

// colorEnabled reports whether stdout is a terminal that accepts colour.
func colorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiYellow = "\x1b[33m"
	ansiCyan   = "\x1b[36m"
	ansiBold   = "\x1b[1m"
)

func paint(color bool, code, s string) string {
	if !color {
		return s
	}
	return code + s + ansiReset
}

func severityLabel(sev editor.Severity, color bool) string {
	switch sev {
	case editor.SeverityError:
		return paint(color, ansiRed, "error")
	case editor.SeverityWarning:
		return paint(color, ansiYellow, "warning")
	case editor.SeverityInfo:
		return paint(color, ansiCyan, "info")
	default:
		return sev.String()
	}
}

// display shortens a URI to a path relative to the working directory.
func display(uri string) string {
	wd, err := os.Getwd()
	if err != nil {
		return paths.FromURI(uri)
	}
	return paths.Display(uri, wd)
}

func location(uri string, r editor.Range) string {
	return fmt.Sprintf("%s:%d:%d", display(uri), r.StartLineNumber, r.StartColumn)
}

// formatHuman formats the response in human-readable format
func formatHuman(resp interface{}, color bool) (string, error) {
	var b strings.Builder
	switch v := resp.(type) {
	case *DiagnosticsResponse:
		for _, f := range v.Files {
			for _, m := range f.Markers {
				b.WriteString(fmt.Sprintf("%s %s TS%d: %s\n",
					paint(color, ansiBold, location(f.File, m.Range)), severityLabel(m.Severity, color), m.Code, m.Message))
			}
		}
		for _, msg := range v.CompilerOptions {
			b.WriteString(fmt.Sprintf("%s compiler options: %s\n", severityLabel(editor.SeverityError, color), msg))
		}
		b.WriteString(fmt.Sprintf("%d error(s), %d warning(s) in %d file(s)\n", v.Errors, v.Warnings, len(v.Files)))
	case *HoverResponse:
		if v.Hover == nil {
			b.WriteString("No information.\n")
			break
		}
		for i, c := range v.Hover.Contents {
			if i > 0 {
				b.WriteString("\n")
			}
			b.WriteString(c + "\n")
		}
	case *LocationsResponse:
		if len(v.Locations) == 0 {
			b.WriteString(fmt.Sprintf("No %s found.\n", v.Kind))
			break
		}
		for _, l := range v.Locations {
			b.WriteString(location(l.URI, l.Range) + "\n")
		}
	case *HighlightsResponse:
		for _, h := range v.Highlights {
			b.WriteString(fmt.Sprintf("%s (%s)\n", location(v.File, h.Range), h.Kind))
		}
	case *SignatureResponse:
		if v.Help == nil {
			b.WriteString("No signature help.\n")
			break
		}
		for i, sig := range v.Help.Signatures {
			marker := "  "
			if i == v.Help.ActiveSignature {
				marker = "> "
			}
			b.WriteString(marker + sig.Label + "\n")
			if i == v.Help.ActiveSignature && v.Help.ActiveParameter < len(sig.Parameters) {
				b.WriteString(fmt.Sprintf("    parameter: %s\n", paint(color, ansiBold, sig.Parameters[v.Help.ActiveParameter].Label)))
			}
			if sig.Documentation != "" {
				b.WriteString("    " + sig.Documentation + "\n")
			}
		}
	case *CompletionResponse:
		if v.Completions == nil {
			b.WriteString("No completions.\n")
			break
		}
		for _, item := range v.Completions.Items {
			line := fmt.Sprintf("%-30s %s", item.Label, item.Kind)
			if item.Detail != "" {
				line += "  " + item.Detail
			}
			b.WriteString(strings.TrimRight(line, " ") + "\n")
		}
	case *OutlineResponse:
		for _, s := range v.Symbols {
			indent := ""
			if s.ContainerName != "" {
				indent = "  "
			}
			b.WriteString(fmt.Sprintf("%s%s %s  %d:%d\n", indent, s.Kind, s.Name,
				s.Location.Range.StartLineNumber, s.Location.Range.StartColumn))
		}
	case *EditsResponse:
		switch {
		case v.Written:
			b.WriteString(fmt.Sprintf("Formatted %s (%d edit(s))\n", display(v.File), len(v.Edits)))
		case len(v.Edits) == 0:
			b.WriteString("Already formatted.\n")
		default:
			for _, e := range v.Edits {
				b.WriteString(fmt.Sprintf("%s %q\n", location(v.File, e.Range), e.Text))
			}
		}
	case *EmitResponse:
		if v.EmitSkipped {
			b.WriteString("Emit skipped.\n")
			break
		}
		for i, f := range v.OutputFiles {
			if len(v.OutputFiles) > 1 {
				if i > 0 {
					b.WriteString("\n")
				}
				b.WriteString(paint(color, ansiBold, "// "+display(f.Name)) + "\n")
			}
			b.WriteString(f.Text)
		}
	default:
		// For unknown types, fall back to JSON
		return formatJSON(resp)
	}
	return b.String(), nil
}
