package worker

import (
	"embed"
	"path"

	"tsbridge/internal/engine"
)

//go:embed libs/lib.d.ts libs/lib.es6.d.ts
var libFS embed.FS

// DefaultLibFileName selects the default library by target.
func DefaultLibFileName(options engine.CompilerOptions) string {
	if options.Target() > engine.ES5 {
		return engine.LibES6
	}
	return engine.LibES5
}

// IsDefaultLib reports whether name is one of the bundled default libraries.
func IsDefaultLib(name string) bool {
	return name == engine.LibES5 || name == engine.LibES6
}

// DefaultLibText returns the bundled text for a default library name.
func DefaultLibText(name string) (string, bool) {
	if !IsDefaultLib(name) {
		return "", false
	}
	b, err := libFS.ReadFile(path.Join("libs", name))
	if err != nil {
		return "", false
	}
	return string(b), true
}
