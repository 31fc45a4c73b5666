package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"tsbridge/internal/paths"
)

// FormatProfileName is the optional formatting profile next to the config.
const FormatProfileName = "format.toml"

// LoadFormatProfile reads .tsbridge/format.toml. ok is false when there is
// no profile. Keys the profile leaves out keep their defaults.
func LoadFormatProfile(root string) (profile FormatConfig, ok bool, err error) {
	profile = DefaultConfig().Format
	path := filepath.Join(paths.ConfigDir(root), FormatProfileName)
	md, err := toml.DecodeFile(path, &profile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return DefaultConfig().Format, false, nil
		}
		return FormatConfig{}, false, fmt.Errorf("format profile %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return FormatConfig{}, false, fmt.Errorf("format profile %s: unknown key %q", path, undecoded[0].String())
	}
	return profile, true, nil
}
