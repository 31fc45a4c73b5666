package slogutil

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseSize(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"", 0},
		{"100", 100},
		{"100B", 100},
		{"1KB", 1024},
		{"10mb", 10 * 1024 * 1024},
		{"1.5KB", 1536},
		{"1GB", 1 << 30},
		{"abc", 0},
		{"-1KB", 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseSize(tt.in); got != tt.want {
				t.Errorf("ParseSize(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestRotatingFile_Rotation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "logs", "bridge.log")

	rf, err := OpenRotatingFile(path, 10, 2)
	if err != nil {
		t.Fatalf("OpenRotatingFile: %v", err)
	}
	defer rf.Close()

	for _, chunk := range []string{"aaaaaaaa\n", "bbbbbbbb\n", "cccccccc\n"} {
		if _, err := rf.Write([]byte(chunk)); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}

	cur, _ := os.ReadFile(path)
	b1, _ := os.ReadFile(path + ".1")
	b2, _ := os.ReadFile(path + ".2")
	if string(cur) != "cccccccc\n" {
		t.Errorf("current = %q", cur)
	}
	if string(b1) != "bbbbbbbb\n" {
		t.Errorf("backup 1 = %q", b1)
	}
	if string(b2) != "aaaaaaaa\n" {
		t.Errorf("backup 2 = %q", b2)
	}
}

func TestNewFileLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "worker.log")
	logger, closer, err := NewFileLogger(path, slog.LevelInfo, "1MB", 1)
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}
	logger.Info("hello", "k", "v")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "hello | k=v") {
		t.Errorf("log file content = %q", data)
	}
}
