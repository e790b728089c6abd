// Package config loads inboxtriage settings. Values are layered: built-in
// defaults, then the YAML file, then environment variables. Command-line
// flags are applied by the caller before Validate.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/teemow/inboxtriage/internal/archive"
	"github.com/teemow/inboxtriage/internal/cluster"
	"github.com/teemow/inboxtriage/internal/demo"
	"github.com/teemow/inboxtriage/internal/features"
	"github.com/teemow/inboxtriage/internal/imap"
	"github.com/teemow/inboxtriage/internal/label"
	"github.com/teemow/inboxtriage/internal/mbox"
	"github.com/teemow/inboxtriage/internal/similarity"
	"github.com/teemow/inboxtriage/internal/triage"
)

// Session source types.
const (
	SourceGmail = "gmail"
	SourceIMAP  = "imap"
	SourceMbox  = "mbox"
	SourceDemo  = "demo"
)

// Environment variables read by Load.
const (
	EnvIMAPPassword = "INBOXTRIAGE_IMAP_PASSWORD"
	EnvSource       = "INBOXTRIAGE_SOURCE"
	EnvAccount      = "INBOXTRIAGE_ACCOUNT"
)

// Validation errors.
var (
	ErrInvalidClusters  = errors.New("clusters must be at least 1")
	ErrInvalidCount     = errors.New("count must be at least 1")
	ErrInvalidWeights   = errors.New("invalid distance weights")
	ErrUnknownSource    = errors.New("unknown source type")
	ErrIncompleteSource = errors.New("incomplete source configuration")
)

// Config is the complete inboxtriage configuration.
type Config struct {
	Clusters       int                `yaml:"clusters"`
	Count          int                `yaml:"count"`
	Seed           uint64             `yaml:"seed"`
	MaxIterations  int                `yaml:"max_iterations"`
	MinClusterSize int                `yaml:"min_cluster_size"`
	Weights        similarity.Weights `yaml:"weights"`
	Features       features.Config    `yaml:"features"`
	Label          label.Config       `yaml:"label"`
	Archive        archive.Config     `yaml:"archive"`
	Source         Source             `yaml:"source"`
}

// Source selects and configures the mail session.
type Source struct {
	Type    string      `yaml:"type"`
	Account string      `yaml:"account"`
	IMAP    imap.Config `yaml:"imap"`
	Mbox    mbox.Config `yaml:"mbox"`
	Demo    demo.Config `yaml:"demo"`
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		Clusters:       triage.DefaultClusters,
		Count:          triage.DefaultCount,
		Seed:           1,
		MaxIterations:  cluster.DefaultMaxIterations,
		MinClusterSize: 1,
		Weights:        similarity.DefaultWeights(),
		Features: features.Config{
			Dimensions:    features.DefaultDimensions,
			SubjectTokens: features.DefaultSubjectTokens,
		},
		Label: label.Config{Dominance: label.DefaultDominance},
		Archive: archive.Config{
			Workers:        archive.DefaultWorkers,
			MaxAttempts:    archive.DefaultMaxAttempts,
			InitialBackoff: archive.DefaultInitialBackoff,
		},
		Source: Source{Type: SourceGmail, Account: "default"},
	}
}

// DefaultPath returns ~/.config/inboxtriage/config.yaml, or the platform
// equivalent.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "inboxtriage", "config.yaml")
}

// Load returns the defaults overlaid with the YAML file at path and the
// environment. An empty path reads DefaultPath when it exists; an explicit
// path must exist.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := decode(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("config file %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist) && !explicit:
		default:
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvSource); v != "" {
		c.Source.Type = v
	}
	if v := os.Getenv(EnvAccount); v != "" {
		c.Source.Account = v
	}
	if v := os.Getenv(EnvIMAPPassword); v != "" {
		c.Source.IMAP.Password = v
	}
}

// Validate checks the configuration after all layers are applied.
func (c Config) Validate() error {
	if c.Clusters < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidClusters, c.Clusters)
	}
	if c.Count < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidCount, c.Count)
	}
	if err := c.Weights.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidWeights, err)
	}
	if c.MaxIterations < 0 || c.MinClusterSize < 0 {
		return errors.New("max_iterations and min_cluster_size must not be negative")
	}
	if d := c.Label.Dominance; d < 0 || d > 1 {
		return fmt.Errorf("label.dominance must be within [0, 1], got %v", d)
	}
	if c.Archive.Workers < 0 || c.Archive.MaxAttempts < 0 || c.Archive.InitialBackoff < 0 {
		return errors.New("archive settings must not be negative")
	}
	if c.Archive.InitialBackoff > time.Minute {
		return fmt.Errorf("archive.initial_backoff %v is longer than a minute", c.Archive.InitialBackoff)
	}
	return c.Source.Validate()
}

// Validate checks that the selected source has what it needs.
func (s Source) Validate() error {
	switch s.Type {
	case SourceGmail, SourceDemo:
		return nil
	case SourceIMAP:
		if s.IMAP.Address == "" || s.IMAP.Username == "" {
			return fmt.Errorf("%w: imap needs source.imap.address and source.imap.username", ErrIncompleteSource)
		}
		return nil
	case SourceMbox:
		if s.Mbox.Path == "" {
			return fmt.Errorf("%w: mbox needs source.mbox.path", ErrIncompleteSource)
		}
		return nil
	default:
		return fmt.Errorf("%w %q: use %s, %s, %s or %s", ErrUnknownSource, s.Type, SourceGmail, SourceIMAP, SourceMbox, SourceDemo)
	}
}

// TriageOptions returns the pipeline options for this configuration.
func (c Config) TriageOptions() triage.Options {
	return triage.Options{
		Clusters:       c.Clusters,
		Count:          c.Count,
		Seed:           c.Seed,
		MaxIterations:  c.MaxIterations,
		MinClusterSize: c.MinClusterSize,
		Weights:        c.Weights,
		Features:       c.Features,
		Label:          c.Label,
		Source:         c.Source.Type,
	}
}
