package language

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/gluamapper"
	lua "github.com/yuin/gopher-lua"
	"gopkg.in/yaml.v3"
)

// Profile loading errors.
var (
	// ErrUnknownProfile is returned when a name matches no built-in profile
	// and does not look like a profile file.
	ErrUnknownProfile = errors.New("unknown language profile")

	// ErrUnsupportedFormat is returned for profile files that are neither YAML nor Lua.
	ErrUnsupportedFormat = errors.New("unsupported profile format: use .yaml, .yml or .lua")

	// ErrLuaNoTable is returned when a Lua profile does not return a table.
	ErrLuaNoTable = errors.New("lua profile did not return a table")
)

// LoadProfile reads a profile definition from a YAML or Lua file.
// A Lua profile is a script that returns a table, for example:
//
//	return {
//	  name = "french",
//	  words = { "LE", "LA", "BONJOUR" },
//	  word_bonus = 50,
//	  patterns = { { text = "OU", bonus = 10 } },
//	  vowel_wide = { min = 0.35, max = 0.55, bonus = 20 },
//	}
func LoadProfile(path string) (*Profile, error) {
	var (
		def Definition
		err error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		def, err = readYAML(path)
	case ".lua":
		def, err = readLua(path)
	default:
		return nil, fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile %s: %w", path, err)
	}

	p, err := New(def)
	if err != nil {
		return nil, fmt.Errorf("invalid profile %s: %w", path, err)
	}
	return p, nil
}

func readYAML(path string) (Definition, error) {
	var def Definition

	data, err := os.ReadFile(path) //nolint:gosec // User-provided profile path is intentional
	if err != nil {
		return def, err
	}
	if err := yaml.Unmarshal(data, &def); err != nil {
		return def, err
	}
	return def, nil
}

func readLua(path string) (Definition, error) {
	var def Definition

	L := lua.NewState()
	defer L.Close()

	if err := L.DoFile(path); err != nil {
		return def, err
	}

	table, ok := L.Get(-1).(*lua.LTable)
	if !ok {
		return def, ErrLuaNoTable
	}
	if err := gluamapper.Map(table, &def); err != nil {
		return def, err
	}
	return def, nil
}

// Builtin returns the built-in profile with the given name, case-insensitively.
func Builtin(name string) (*Profile, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case NameEnglish, "en":
		return English(), true
	case NameSpanish, "es":
		return Spanish(), true
	default:
		return nil, false
	}
}

// Resolve turns a list of profile references into profiles, keeping order.
// A reference is either a built-in name ("english", "es", ...) or a path to a
// .yaml, .yml or .lua profile file.
func Resolve(refs []string) ([]*Profile, error) {
	profiles := make([]*Profile, 0, len(refs))
	seen := make(map[string]bool, len(refs))

	for _, ref := range refs {
		ref = strings.TrimSpace(ref)
		if ref == "" {
			continue
		}

		var p *Profile
		if builtin, ok := Builtin(ref); ok {
			p = builtin
		} else if isProfileFile(ref) {
			loaded, err := LoadProfile(ref)
			if err != nil {
				return nil, err
			}
			p = loaded
		} else {
			return nil, fmt.Errorf("%w: %q", ErrUnknownProfile, ref)
		}

		if seen[p.Name()] {
			continue
		}
		seen[p.Name()] = true
		profiles = append(profiles, p)
	}

	return profiles, nil
}

func isProfileFile(ref string) bool {
	switch strings.ToLower(filepath.Ext(ref)) {
	case ".yaml", ".yml", ".lua":
		return true
	default:
		return false
	}
}
