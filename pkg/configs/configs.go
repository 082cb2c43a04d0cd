// Package configs loads and validates the service configuration.
package configs

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/archiveassign"
	"github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/dispatch"
	"github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain"
	xe "github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/errors"
)

// Duration is a time.Duration parsed from its yaml string form ("30s", "5m").
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

type ArchiveConfig struct {
	// RoutingKey the archive's agent consumes dispatch envelopes from.
	RoutingKey string `yaml:"routingKey"`

	// Enabled: a disabled archive stays configured but receives nothing;
	// submittables bound for it are skipped.
	Enabled bool `yaml:"enabled"`
}

type Config struct {
	Database string `yaml:"database"`
	Broker   string `yaml:"broker"`
	Port     int32  `yaml:"port"`

	// Archives keyed by archive name.
	Archives map[string]ArchiveConfig `yaml:"archives"`

	// DataTypes maps each data type to the name of its archive.
	DataTypes map[string]string `yaml:"dataTypes"`

	// AccessionSweepInterval between publish sweeps over ready accession
	// wrappers.
	AccessionSweepInterval Duration `yaml:"accessionSweepInterval"`

	// StatusAgingInterval between sweeps refreshing the status message of
	// stale unfinished submissions.
	StatusAgingInterval Duration `yaml:"statusAgingInterval"`

	// StatusAgingMinAge a submission must reach before the sweep touches it.
	StatusAgingMinAge Duration `yaml:"statusAgingMinAge"`

	// DispatchLeaseTtl bounds how long a crashed worker can hold a
	// submission's dispatch lease.
	DispatchLeaseTtl Duration `yaml:"dispatchLeaseTtl"`
}

const (
	defaultPort                   = int32(8080)
	defaultAccessionSweepInterval = 30 * time.Second
	defaultStatusAgingInterval    = 1 * time.Hour
	defaultStatusAgingMinAge      = 24 * time.Hour
	defaultDispatchLeaseTtl       = 2 * time.Minute
)

// Load reads the yaml configuration at path and validates it.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, xe.Wrap(err)
	}

	conf := Config{}
	if err := yaml.Unmarshal(raw, &conf); err != nil {
		return Config{}, xe.WrapWithNote("parsing "+path, err)
	}

	conf.applyDefaults()
	if err := conf.validate(); err != nil {
		return Config{}, xe.WrapWithNote("validating "+path, err)
	}
	return conf, nil
}

func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = defaultPort
	}
	if c.AccessionSweepInterval == 0 {
		c.AccessionSweepInterval = Duration(defaultAccessionSweepInterval)
	}
	if c.StatusAgingInterval == 0 {
		c.StatusAgingInterval = Duration(defaultStatusAgingInterval)
	}
	if c.StatusAgingMinAge == 0 {
		c.StatusAgingMinAge = Duration(defaultStatusAgingMinAge)
	}
	if c.DispatchLeaseTtl == 0 {
		c.DispatchLeaseTtl = Duration(defaultDispatchLeaseTtl)
	}
}

func (c Config) validate() error {
	if c.Database == "" {
		return xe.New("database is required")
	}
	if c.Broker == "" {
		return xe.New("broker is required")
	}
	if len(c.Archives) == 0 {
		return xe.New("at least one archive must be configured")
	}

	for name, ac := range c.Archives {
		if _, err := domain.AsArchive(name); err != nil {
			return xe.Wrap(err)
		}
		if ac.RoutingKey == "" {
			return xe.Errorf("archive %s has no routing key", name)
		}
	}

	for dataType, archiveName := range c.DataTypes {
		if _, ok := c.Archives[archiveName]; !ok {
			return xe.Errorf(
				"data type %s is assigned to archive %s, which is not configured",
				dataType, archiveName,
			)
		}
	}
	return nil
}

// Routing builds the dispatcher's routing table.
func (c Config) Routing() (dispatch.Routing, error) {
	routing := dispatch.Routing{}
	for name, ac := range c.Archives {
		archive, err := domain.AsArchive(name)
		if err != nil {
			return nil, xe.Wrap(err)
		}
		routing[archive] = dispatch.Route{RoutingKey: ac.RoutingKey, Enabled: ac.Enabled}
	}
	return routing, nil
}

// AssignmentRules builds the archive assignment rule table.
func (c Config) AssignmentRules() (archiveassign.Rules, error) {
	rules, err := archiveassign.ParseRules(c.DataTypes)
	if err != nil {
		return nil, err
	}
	return rules, nil
}

// Address the status API listens on.
func (c Config) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}
