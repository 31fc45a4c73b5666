package defaults

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tsbridge/internal/engine"
)

func TestDefaultsNotifyOnEveryMutation(t *testing.T) {
	d := New(engine.CompilerOptions{"target": "ES5"}, DiagnosticsOptions{})
	fired := 0
	sub := d.OnDidChange(func() { fired++ })

	d.SetCompilerOptions(engine.CompilerOptions{"target": "ES2015"})
	d.SetDiagnosticsOptions(DiagnosticsOptions{NoSemanticValidation: true})
	lib := d.AddExtraLib("declare var x: number;", "x.d.ts")
	lib.Dispose()
	lib.Dispose()
	assert.Equal(t, 4, fired)

	sub.Dispose()
	d.SetCompilerOptions(nil)
	assert.Equal(t, 4, fired)
}

func TestDefaultsReturnCopies(t *testing.T) {
	opts := engine.CompilerOptions{"target": "ES5"}
	d := New(opts, DiagnosticsOptions{})
	opts["target"] = "ESNext"
	got := d.CompilerOptions()
	assert.Equal(t, "ES5", got["target"])

	got["target"] = "ES3"
	assert.Equal(t, "ES5", d.CompilerOptions()["target"])

	d.AddExtraLib("a", "a.d.ts")
	libs := d.ExtraLibs()
	libs["b.d.ts"] = "b"
	assert.Equal(t, []string{"a.d.ts"}, d.ExtraLibPaths())
}

func TestAddExtraLibGeneratedPath(t *testing.T) {
	d := New(nil, DiagnosticsOptions{})
	d.AddExtraLib("one", "")
	d.AddExtraLib("two", "")
	paths := d.ExtraLibPaths()
	require.Len(t, paths, 2)
	for _, p := range paths {
		assert.True(t, strings.HasPrefix(p, "extralib-"), p)
		assert.True(t, strings.HasSuffix(p, ".d.ts"), p)
	}
}

func TestExtraLibDisposeKeepsReplacement(t *testing.T) {
	d := New(nil, DiagnosticsOptions{})
	first := d.AddExtraLib("v1", "lib.d.ts")
	d.AddExtraLib("v2", "lib.d.ts")
	first.Dispose()
	assert.Equal(t, map[string]string{"lib.d.ts": "v2"}, d.ExtraLibs())
}

func TestReplaceFiresOnce(t *testing.T) {
	d := New(nil, DiagnosticsOptions{})
	fired := 0
	d.OnDidChange(func() { fired++ })
	d.Replace(engine.CompilerOptions{"noLib": true}, map[string]string{"a.d.ts": "x"}, DiagnosticsOptions{NoSyntaxValidation: true})
	assert.Equal(t, 1, fired)
	assert.True(t, d.DiagnosticsOptions().NoSyntaxValidation)
	assert.Equal(t, map[string]string{"a.d.ts": "x"}, d.ExtraLibs())
}
