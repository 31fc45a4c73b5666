// Package paths converts between file paths and the document URIs the
// bridge keys everything by, and locates the per-project config directory.
package paths

import (
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// ConfigDirName is the per-project configuration directory.
const ConfigDirName = ".tsbridge"

// ConfigDir returns the configuration directory under root.
func ConfigDir(root string) string {
	return filepath.Join(root, ConfigDirName)
}

// ToURI converts a file path to a file URI. Relative paths are made absolute.
func ToURI(path string) string {
	if path == "" {
		return ""
	}
	if !filepath.IsAbs(path) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
	}
	path = filepath.ToSlash(path)
	if runtime.GOOS == "windows" && len(path) >= 2 && path[1] == ':' {
		path = "/" + path
	}
	u := &url.URL{Scheme: "file", Path: path}
	return u.String()
}

// FromURI converts a file URI back to a path. Anything that is not a file
// URI is returned unchanged.
func FromURI(uri string) string {
	if uri == "" {
		return ""
	}
	u, err := url.Parse(uri)
	if err != nil || u.Scheme != "file" {
		return uri
	}
	path := u.Path
	if runtime.GOOS == "windows" && len(path) >= 3 && path[0] == '/' && path[2] == ':' {
		path = path[1:]
	}
	return filepath.FromSlash(path)
}

// CanonicalizePath converts an absolute path to a root-relative path with
// forward slashes, resolving symlinks where the files exist.
func CanonicalizePath(absolutePath string, root string) (string, error) {
	resolved, err := filepath.EvalSymlinks(absolutePath)
	if err != nil {
		if !os.IsNotExist(err) {
			return "", err
		}
		resolved = absolutePath
	}

	rootResolved, err := filepath.EvalSymlinks(root)
	if err != nil {
		if !os.IsNotExist(err) {
			return "", err
		}
		rootResolved = root
	}

	rel, err := filepath.Rel(rootResolved, resolved)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// IsWithinRoot checks if a path is inside root
func IsWithinRoot(path string, root string) bool {
	canonical, err := CanonicalizePath(path, root)
	if err != nil {
		return false
	}
	return canonical != ".." && !strings.HasPrefix(canonical, "../")
}

// Display renders a URI relative to root when it points inside it.
func Display(uri, root string) string {
	p := FromURI(uri)
	if p == uri || root == "" {
		return p
	}
	if abs, err := filepath.Abs(p); err == nil && IsWithinRoot(abs, root) {
		if rel, err := CanonicalizePath(abs, root); err == nil {
			return rel
		}
	}
	return p
}
