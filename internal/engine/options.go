package engine

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ScriptTarget is the ECMAScript level the program is compiled for.
type ScriptTarget int

const (
	ES3 ScriptTarget = iota
	ES5
	ES2015
	ES2016
	ES2017
	ESNext
)

// ES6 is the old name of ES2015.
const ES6 = ES2015

var targetNames = map[string]ScriptTarget{
	"es3":    ES3,
	"es5":    ES5,
	"es6":    ES2015,
	"es2015": ES2015,
	"es2016": ES2016,
	"es2017": ES2017,
	"esnext": ESNext,
	"latest": ESNext,
}

func (t ScriptTarget) String() string {
	switch t {
	case ES3:
		return "ES3"
	case ES5:
		return "ES5"
	case ES2015:
		return "ES2015"
	case ES2016:
		return "ES2016"
	case ES2017:
		return "ES2017"
	case ESNext:
		return "ESNext"
	}
	return fmt.Sprintf("ScriptTarget(%d)", int(t))
}

// ParseScriptTarget accepts either a target name or its numeric value.
func ParseScriptTarget(v interface{}) (ScriptTarget, error) {
	switch x := v.(type) {
	case string:
		if t, ok := targetNames[strings.ToLower(x)]; ok {
			return t, nil
		}
	case float64:
		if x == float64(int(x)) && x >= float64(ES3) && x <= float64(ESNext) {
			return ScriptTarget(x), nil
		}
	case int:
		if x >= int(ES3) && x <= int(ESNext) {
			return ScriptTarget(x), nil
		}
	case int64:
		if x >= int64(ES3) && x <= int64(ESNext) {
			return ScriptTarget(x), nil
		}
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return ParseScriptTarget(n)
		}
	}
	return ES3, fmt.Errorf("unsupported target %v", v)
}

// CompilerOptions is the opaque option bag handed to the engine. Only the
// keys the bridge itself cares about have accessors.
type CompilerOptions map[string]interface{}

// Target returns the configured target, ES3 when unset or invalid.
func (o CompilerOptions) Target() ScriptTarget {
	v, ok := o["target"]
	if !ok || v == nil {
		return ES3
	}
	t, err := ParseScriptTarget(v)
	if err != nil {
		return ES3
	}
	return t
}

// Bool returns a boolean option, false when unset or not a bool.
func (o CompilerOptions) Bool(key string) bool {
	b, _ := o[key].(bool)
	return b
}

// Clone returns a shallow copy.
func (o CompilerOptions) Clone() CompilerOptions {
	out := make(CompilerOptions, len(o))
	for k, v := range o {
		out[k] = v
	}
	return out
}
