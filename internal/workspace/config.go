package workspace

import (
	"io"
	"io/ioutil"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

// ConfigName is the on-disk file name for a root's human-edited
// configuration (§6 "Configuration").
const ConfigName = "workspace.toml"

// Config enumerates the orchestrator's configuration surface (§6).
// ShouldCreateMultipleTestProducts is carried for round-trip fidelity with
// hand-edited config files but is irrelevant to this module's core (§6
// explicitly calls it out as such).
type Config struct {
	SkipDependenciesUpdates          bool                `toml:"skip_dependencies_updates"`
	PrefetchBasedOnResolvedFile      bool                `toml:"prefetch_based_on_resolved_file"`
	ShouldCreateMultipleTestProducts bool                `toml:"should_create_multiple_test_products"`
	Traits                           map[string][]string `toml:"traits"`
}

// TraitsFor returns the enabled trait set for a root identity, or nil if
// none are configured.
func (c Config) TraitsFor(rootIdentity string) []string {
	if c.Traits == nil {
		return nil
	}
	return c.Traits[rootIdentity]
}

// LoadConfig reads a workspace.toml from r. A missing file is not this
// function's concern; callers open the file themselves and may substitute
// DefaultConfig() on os.IsNotExist.
func LoadConfig(r io.Reader) (Config, error) {
	raw, err := ioutil.ReadAll(r)
	if err != nil {
		return Config{}, errors.Wrap(err, "read workspace config")
	}

	var cfg Config
	if err := toml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, errors.Wrap(err, "parse workspace config")
	}
	return cfg, nil
}

// DefaultConfig returns the zero-value configuration: no updates skipped,
// no prefetching, no traits enabled.
func DefaultConfig() Config {
	return Config{}
}

// Marshal serializes cfg back to TOML.
func (c Config) Marshal() ([]byte, error) {
	return toml.Marshal(c)
}
