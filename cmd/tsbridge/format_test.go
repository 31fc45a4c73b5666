package main

import (
	"strings"
	"testing"

	"tsbridge/internal/editor"
	"tsbridge/internal/engine"
	"tsbridge/internal/model"
)

func sampleDiagnostics() *DiagnosticsResponse {
	return &DiagnosticsResponse{
		Files: []FileDiagnostics{{
			File: "file:///src/a.ts",
			Markers: []editor.Marker{{
				Severity: editor.SeverityError,
				Range:    editor.Range{StartLineNumber: 1, StartColumn: 5, EndLineNumber: 1, EndColumn: 6},
				Message:  "Cannot find name 'x'.",
				Code:     2304,
				Source:   "typescript",
			}},
		}},
		Errors: 1,
	}
}

func TestParseOutputFormat(t *testing.T) {
	for _, s := range []string{"json", "human", "yaml", "toml", "JSON"} {
		if _, err := ParseOutputFormat(s); err != nil {
			t.Errorf("ParseOutputFormat(%q) failed: %v", s, err)
		}
	}
	if _, err := ParseOutputFormat("xml"); err == nil {
		t.Error("expected error for xml")
	}
}

func TestFormatResponse_JSON(t *testing.T) {
	result, err := FormatResponse(sampleDiagnostics(), FormatJSON)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result, `"severity": "error"`) {
		t.Errorf("JSON output should name the severity, got:\n%s", result)
	}
	if !strings.Contains(result, `"code": 2304`) {
		t.Error("JSON output missing code")
	}
}

func TestFormatResponse_YAML(t *testing.T) {
	result, err := FormatResponse(sampleDiagnostics(), FormatYAML)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result, "files:") {
		t.Errorf("YAML output missing files, got:\n%s", result)
	}
	if !strings.Contains(result, "severity: error") {
		t.Errorf("YAML output should name the severity, got:\n%s", result)
	}
}

func TestFormatResponse_TOML(t *testing.T) {
	result, err := FormatResponse(sampleDiagnostics(), FormatTOML)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result, "[[files]]") {
		t.Errorf("TOML output missing files table, got:\n%s", result)
	}
	if !strings.Contains(result, "errors = 1") {
		t.Errorf("TOML output missing error count, got:\n%s", result)
	}
}

func TestFormatResponse_UnsupportedFormat(t *testing.T) {
	_, err := FormatResponse(sampleDiagnostics(), "xml")
	if err == nil {
		t.Fatal("expected error for unsupported format")
	}
	if !strings.Contains(err.Error(), "unsupported format") {
		t.Errorf("error should mention unsupported format, got: %v", err)
	}
}

func TestFormatHuman_Diagnostics(t *testing.T) {
	result, err := formatHuman(sampleDiagnostics(), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "/src/a.ts:1:5 error TS2304: Cannot find name 'x'.\n1 error(s), 0 warning(s) in 1 file(s)\n"
	if result != want {
		t.Errorf("got %q, want %q", result, want)
	}
}

func TestFormatHuman_Color(t *testing.T) {
	result, err := formatHuman(sampleDiagnostics(), true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result, ansiRed+"error"+ansiReset) {
		t.Errorf("expected coloured severity, got %q", result)
	}
}

func TestFormatHuman_EmptyResults(t *testing.T) {
	tests := []struct {
		name string
		resp interface{}
		want string
	}{
		{"hover", &HoverResponse{}, "No information.\n"},
		{"definitions", &LocationsResponse{Kind: "definitions"}, "No definitions found.\n"},
		{"signature", &SignatureResponse{}, "No signature help.\n"},
		{"completions", &CompletionResponse{}, "No completions.\n"},
		{"edits", &EditsResponse{}, "Already formatted.\n"},
		{"emit", &EmitResponse{EmitSkipped: true}, "Emit skipped.\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := formatHuman(tt.resp, false)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatHuman_Emit(t *testing.T) {
	resp := &EmitResponse{OutputFiles: []engine.OutputFile{{Name: "file:///src/a.js", Text: "let a = 1;\n"}}}
	got, err := formatHuman(resp, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "let a = 1;\n" {
		t.Errorf("got %q", got)
	}
}

func TestFormatHuman_UnknownFallsBackToJSON(t *testing.T) {
	got, err := formatHuman(map[string]int{"n": 1}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(got, `"n": 1`) {
		t.Errorf("expected JSON fallback, got %q", got)
	}
}

func TestParsePosition(t *testing.T) {
	pos, err := parsePosition("3", "7")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pos != (editor.Position{LineNumber: 3, Column: 7}) {
		t.Errorf("got %v", pos)
	}
	for _, args := range [][2]string{{"0", "1"}, {"1", "0"}, {"x", "1"}, {"1", "-2"}} {
		if _, err := parsePosition(args[0], args[1]); err == nil {
			t.Errorf("parsePosition(%q, %q) should fail", args[0], args[1])
		}
	}
}

func TestParseRange(t *testing.T) {
	r, err := parseRange("2:1-4:3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := editor.Range{StartLineNumber: 2, StartColumn: 1, EndLineNumber: 4, EndColumn: 3}
	if r != want {
		t.Errorf("got %v, want %v", r, want)
	}
	for _, s := range []string{"2:1", "2-4", "4:1-2:1", "a:b-c:d"} {
		if _, err := parseRange(s); err == nil {
			t.Errorf("parseRange(%q) should fail", s)
		}
	}
}

func TestApplyEdits(t *testing.T) {
	doc, err := model.NewStore().Create("file:///a.ts", editor.LanguageTypeScript, "let a=1;\nlet é=2;  \n")
	if err != nil {
		t.Fatal(err)
	}
	edits := []editor.TextEdit{
		{Range: editor.Range{StartLineNumber: 1, StartColumn: 6, EndLineNumber: 1, EndColumn: 7}, Text: " = "},
		{Range: editor.Range{StartLineNumber: 2, StartColumn: 9, EndLineNumber: 2, EndColumn: 11}, Text: ""},
	}
	got, err := applyEdits(doc, edits)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := "let a = 1;\nlet é=2;\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
