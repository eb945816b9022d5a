// Package profile loads S7 PLC connection profiles from YAML, the
// trimmed, S7-only subset of the teacher's config.PLCConfig (§2 ambient
// stack) — just enough to drive s7.Open: address, rack/slot, connection
// type, and a timeout.
package profile

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yatesdr/s7core/s7"
)

// Profile describes one PLC connection to dial (§2/§6). ConnectionType
// names the PG/OP/S7Basic tag carried in the COTP connect-request; an
// empty value means PG, matching s7's own default.
type Profile struct {
	Name           string        `yaml:"name"`
	Address        string        `yaml:"address"`
	Rack           int           `yaml:"rack"`
	Slot           int           `yaml:"slot"`
	ConnectionType string        `yaml:"connection_type,omitempty"`
	Timeout        time.Duration `yaml:"timeout,omitempty"`
}

// ConnType resolves ConnectionType's name ("PG", "OP", "S7Basic", case
// insensitive) to the s7 package's wire tag, defaulting to s7.ConnTypePG
// for an empty or unrecognized value.
func (p Profile) ConnType() byte {
	switch strings.ToUpper(p.ConnectionType) {
	case "OP":
		return s7.ConnTypeOP
	case "S7BASIC":
		return s7.ConnTypeS7Basic
	default:
		return s7.ConnTypePG
	}
}

// Options converts the profile into s7.Open functional options covering
// the §6 configuration surface this profile carries.
func (p Profile) Options() []s7.Option {
	opts := []s7.Option{
		s7.WithRackSlot(p.Rack, p.Slot),
		s7.WithConnectionType(p.ConnType()),
	}
	if p.Timeout > 0 {
		opts = append(opts, s7.WithTimeout(p.Timeout))
	}
	return opts
}

// File is the top-level document loaded from a profile file: a named
// list of PLC connections.
type File struct {
	Profiles []Profile `yaml:"profiles"`
}

// Load reads and parses a profile file from path.
func Load(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("profile: read %s: %w", path, err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("profile: parse %s: %w", path, err)
	}
	for i := range f.Profiles {
		if f.Profiles[i].Address == "" {
			return File{}, fmt.Errorf("profile: %q: address is required", f.Profiles[i].Name)
		}
	}
	return f, nil
}

// Find returns the named profile, or false if no profile with that name
// exists.
func (f File) Find(name string) (Profile, bool) {
	for _, p := range f.Profiles {
		if p.Name == name {
			return p, true
		}
	}
	return Profile{}, false
}
