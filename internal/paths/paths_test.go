package paths

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestURIRoundTrip(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix paths")
	}
	tests := []struct {
		path string
		uri  string
	}{
		{"/a/b.ts", "file:///a/b.ts"},
		{"/dir with space/x.js", "file:///dir%20with%20space/x.js"},
	}
	for _, tt := range tests {
		if got := ToURI(tt.path); got != tt.uri {
			t.Errorf("ToURI(%q) = %q, want %q", tt.path, got, tt.uri)
		}
		if got := FromURI(tt.uri); got != tt.path {
			t.Errorf("FromURI(%q) = %q, want %q", tt.uri, got, tt.path)
		}
	}
}

func TestToURIRelative(t *testing.T) {
	abs, err := filepath.Abs("x.ts")
	if err != nil {
		t.Fatal(err)
	}
	if got, want := ToURI("x.ts"), ToURI(abs); got != want {
		t.Errorf("ToURI(relative) = %q, want %q", got, want)
	}
	if ToURI("") != "" {
		t.Error("empty path should give empty URI")
	}
}

func TestFromURIPassesThroughOtherSchemes(t *testing.T) {
	for _, uri := range []string{"inmemory://model/1", "untitled", ""} {
		if got := FromURI(uri); got != uri {
			t.Errorf("FromURI(%q) = %q", uri, got)
		}
	}
}

func TestCanonicalizePath(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "src", "a.ts")
	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(file, []byte("let a = 1;\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := CanonicalizePath(file, root)
	if err != nil {
		t.Fatalf("CanonicalizePath: %v", err)
	}
	if got != "src/a.ts" {
		t.Errorf("got %q, want src/a.ts", got)
	}

	missing, err := CanonicalizePath(filepath.Join(root, "new.ts"), root)
	if err != nil {
		t.Fatalf("CanonicalizePath(missing): %v", err)
	}
	if missing != "new.ts" {
		t.Errorf("got %q, want new.ts", missing)
	}
}

func TestIsWithinRoot(t *testing.T) {
	root := t.TempDir()
	if !IsWithinRoot(filepath.Join(root, "a", "b.ts"), root) {
		t.Error("nested path should be within root")
	}
	if IsWithinRoot(filepath.Dir(root), root) {
		t.Error("parent should not be within root")
	}
	if !IsWithinRoot(filepath.Join(root, "..foo"), root) {
		t.Error("dot-prefixed name is still within root")
	}
}

func TestDisplay(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "lib", "x.ts")
	if got := Display(ToURI(file), root); got != "lib/x.ts" {
		t.Errorf("Display inside root = %q", got)
	}
	other := filepath.Join(filepath.Dir(root), "elsewhere.ts")
	if got := Display(ToURI(other), root); got != other {
		t.Errorf("Display outside root = %q, want %q", got, other)
	}
	if got := Display("inmemory://1", root); got != "inmemory://1" {
		t.Errorf("Display non-file = %q", got)
	}
}

func TestConfigDir(t *testing.T) {
	if got := ConfigDir("/proj"); got != filepath.Join("/proj", ".tsbridge") {
		t.Errorf("ConfigDir = %q", got)
	}
}
