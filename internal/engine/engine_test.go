package engine

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompilerOptionsTarget(t *testing.T) {
	tests := []struct {
		name string
		json string
		want ScriptTarget
	}{
		{"unset", `{}`, ES3},
		{"numeric es5", `{"target": 1}`, ES5},
		{"numeric es2015", `{"target": 2}`, ES2015},
		{"name", `{"target": "ES6"}`, ES2015},
		{"esnext", `{"target": "esnext"}`, ESNext},
		{"garbage", `{"target": "es1999"}`, ES3},
		{"fraction", `{"target": 1.5}`, ES3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var o CompilerOptions
			require.NoError(t, json.Unmarshal([]byte(tt.json), &o))
			assert.Equal(t, tt.want, o.Target())
		})
	}
}

func TestParseScriptTargetRejects(t *testing.T) {
	_, err := ParseScriptTarget(99)
	assert.Error(t, err)
	_, err = ParseScriptTarget(true)
	assert.Error(t, err)
}

func TestCompilerOptionsCloneIsIndependent(t *testing.T) {
	o := CompilerOptions{"noLib": true}
	c := o.Clone()
	c["noLib"] = false
	assert.True(t, o.Bool("noLib"))
	assert.False(t, c.Bool("noLib"))
	assert.False(t, o.Bool("missing"))
}

func TestStringSnapshot(t *testing.T) {
	s := NewStringSnapshot("a😀b")
	assert.Equal(t, 4, s.GetLength())
	assert.Equal(t, "😀", s.GetText(1, 3))
	assert.Equal(t, "a😀b", s.GetText(0, 4))
	assert.Equal(t, "b", s.GetText(3, 10))
	assert.Equal(t, "", s.GetText(3, 2))
	assert.Equal(t, "a😀b", SnapshotText(s))
}

func TestFlattenDiagnosticMessageText(t *testing.T) {
	plain := Diagnostic{MessageText: "Cannot find name 'y'."}
	assert.Equal(t, "Cannot find name 'y'.", FlattenDiagnosticMessageText(plain, "\n"))

	chained := Diagnostic{MessageChain: &DiagnosticMessageChain{
		MessageText: "Type 'A' is not assignable to type 'B'.",
		Next: &DiagnosticMessageChain{
			MessageText: "Property 'x' is missing.",
			Next:        &DiagnosticMessageChain{MessageText: "Deep."},
		},
	}}
	assert.Equal(t,
		"Type 'A' is not assignable to type 'B'.\n  Property 'x' is missing.\n    Deep.",
		FlattenDiagnosticMessageText(chained, "\n"))
}

func TestDisplayPartsToString(t *testing.T) {
	parts := []SymbolDisplayPart{Part("let", "keyword"), Part(" ", "space"), Part("x", "localName"), Part(": ", "punctuation"), Part("number", "keyword")}
	assert.Equal(t, "let x: number", DisplayPartsToString(parts))
	assert.Equal(t, "", DisplayPartsToString(nil))
}
