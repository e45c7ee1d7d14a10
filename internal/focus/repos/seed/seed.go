// Package seed loads starter rule profiles from a directory of YAML,
// JSON, or TOML files. Profiles are applied once, when the prefs store
// is still empty, so a fresh install starts with a usable block list.
package seed

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
)

// Profile is one seed file's contents: a named group of block rules and
// the whitelist entries that carve exceptions out of it.
type Profile struct {
	Name      string
	Block     []string
	Whitelist []string
}

// LoadDirectory walks dir and parses every supported profile file.
// Files with unsupported extensions are skipped; a file that fails to
// parse fails the whole load.
func LoadDirectory(dir string) ([]Profile, error) {
	var profiles []Profile

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		profile, ok, err := loadProfileFile(path)
		if err != nil {
			return fmt.Errorf("error parsing profile %s: %w", path, err)
		}
		if ok {
			profiles = append(profiles, profile)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return profiles, nil
}

// loadProfileFile parses a single profile file, choosing the parser by
// extension. The second return is false for unsupported file types.
func loadProfileFile(path string) (Profile, bool, error) {
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	case ".toml":
		parser = toml.Parser()
	default:
		return Profile{}, false, nil
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), parser); err != nil {
		return Profile{}, false, err
	}

	name := strings.TrimSpace(k.String("name"))
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), ext)
	}
	return Profile{
		Name:      name,
		Block:     k.Strings("block"),
		Whitelist: k.Strings("whitelist"),
	}, true, nil
}

// Merge flattens profiles into combined block and whitelist lists.
// Entries are trimmed, lower-cased, and de-duplicated across profiles,
// preserving first-seen order.
func Merge(profiles []Profile) (block, whitelist []string) {
	block = mergeLists(profiles, func(p Profile) []string { return p.Block })
	whitelist = mergeLists(profiles, func(p Profile) []string { return p.Whitelist })
	return block, whitelist
}

func mergeLists(profiles []Profile, pick func(Profile) []string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, p := range profiles {
		for _, entry := range pick(p) {
			entry = strings.ToLower(strings.TrimSpace(entry))
			if entry == "" {
				continue
			}
			if _, ok := seen[entry]; ok {
				continue
			}
			seen[entry] = struct{}{}
			out = append(out, entry)
		}
	}
	return out
}
