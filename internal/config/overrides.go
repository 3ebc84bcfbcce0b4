// ABOUTME: Per-project overrides loaded from .kforge.toml in the project root.
// ABOUTME: Lets a repo raise capability timeouts and extend readable roots.

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// OverridesFile is the per-project override file name.
const OverridesFile = ".kforge.toml"

// Overrides are per-project settings checked into a repo. They never widen
// security: extra roots still go through the same containment checks as
// configured roots.
type Overrides struct {
	// Timeouts maps a capability name to its timeout, e.g.
	// gradle_build = "15m".
	Timeouts map[string]string `toml:"timeouts"`

	// ExtraRoots are additional readable directories, relative to the
	// project root unless absolute.
	ExtraRoots []string `toml:"extra_roots"`

	parsed map[string]time.Duration
}

// LoadOverrides reads .kforge.toml from the project root. A missing file is
// not an error; it yields empty overrides.
func LoadOverrides(projectRoot string) (*Overrides, error) {
	o := &Overrides{parsed: map[string]time.Duration{}}
	if projectRoot == "" {
		return o, nil
	}

	path := filepath.Join(projectRoot, OverridesFile)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return o, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", OverridesFile, err)
	}

	if err := toml.Unmarshal(data, o); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", OverridesFile, err)
	}

	o.parsed = make(map[string]time.Duration, len(o.Timeouts))
	for name, raw := range o.Timeouts {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("parsing timeout for %s in %s: %w", name, OverridesFile, err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("timeout for %s in %s must be positive", name, OverridesFile)
		}
		o.parsed[name] = d
	}

	for i, root := range o.ExtraRoots {
		if !filepath.IsAbs(root) {
			o.ExtraRoots[i] = filepath.Join(projectRoot, root)
		}
	}

	return o, nil
}

// Timeout returns the override for a capability, if any.
func (o *Overrides) Timeout(capability string) (time.Duration, bool) {
	d, ok := o.parsed[capability]
	return d, ok
}
