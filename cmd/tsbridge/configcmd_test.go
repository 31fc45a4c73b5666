package main

import (
	"testing"
)

func TestIsEqual(t *testing.T) {
	tests := []struct {
		name string
		a    interface{}
		b    interface{}
		want bool
	}{
		{"equal strings", "hello", "hello", true},
		{"different strings", "hello", "world", false},
		{"equal numbers", 42.0, 42.0, true},
		{"different bools", true, false, false},
		{"nil values", nil, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isEqual(tt.a, tt.b); got != tt.want {
				t.Errorf("isEqual(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestComputeDiff(t *testing.T) {
	defaults := map[string]interface{}{
		"worker": map[string]interface{}{"mode": "inprocess", "idleTimeoutMs": 120000.0},
		"format": map[string]interface{}{"tabSize": 4.0},
	}
	current := map[string]interface{}{
		"worker": map[string]interface{}{"mode": "process", "idleTimeoutMs": 120000.0},
		"format": map[string]interface{}{"tabSize": 4.0},
		"extra":  "x",
	}
	diff := computeDiff(current, defaults)
	if len(diff) != 2 {
		t.Fatalf("expected 2 differing keys, got %v", diff)
	}
	worker, ok := diff["worker"].(map[string]interface{})
	if !ok || len(worker) != 1 || worker["mode"] != "process" {
		t.Errorf("unexpected worker diff: %v", diff["worker"])
	}
	if diff["extra"] != "x" {
		t.Errorf("new keys should be kept, got %v", diff["extra"])
	}
}

func TestFlatten(t *testing.T) {
	out := map[string]interface{}{}
	flatten(map[string]interface{}{
		"worker": map[string]interface{}{"mode": "inprocess"},
		"empty":  map[string]interface{}{},
		"level":  "info",
	}, "", out)
	if out["worker.mode"] != "inprocess" || out["level"] != "info" {
		t.Errorf("unexpected flatten result: %v", out)
	}
	if _, ok := out["empty"]; !ok {
		t.Error("empty maps should be kept as leaves")
	}
}

func TestEnvName(t *testing.T) {
	if got := envName("worker.idleTimeoutMs"); got != "TSBRIDGE_WORKER_IDLETIMEOUTMS" {
		t.Errorf("got %q", got)
	}
}
