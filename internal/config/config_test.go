package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 5, cfg.Clusters)
	assert.Equal(t, 200, cfg.Count)
	assert.Equal(t, 1.0, cfg.Weights.Domain)
	assert.Equal(t, 0.5, cfg.Weights.Bulk)
	assert.Equal(t, 256, cfg.Features.Dimensions)
	assert.Equal(t, 4, cfg.Archive.Workers)
	assert.Equal(t, 200*time.Millisecond, cfg.Archive.InitialBackoff)
	assert.Equal(t, SourceGmail, cfg.Source.Type)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeFile(t, `
clusters: 7
count: 50
seed: 99
weights:
  embedding: 2.5
features:
  stop_words: [weekly, digest]
label:
  dominance: 0.6
archive:
  workers: 2
  initial_backoff: 1s
source:
  type: imap
  imap:
    address: imap.gmail.com
    username: me@example.com
    archive_mailbox: "[Gmail]/All Mail"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Clusters)
	assert.Equal(t, 50, cfg.Count)
	assert.Equal(t, uint64(99), cfg.Seed)
	assert.Equal(t, 2.5, cfg.Weights.Embedding)
	assert.Equal(t, 1.0, cfg.Weights.Domain, "unset keys keep their defaults")
	assert.Equal(t, []string{"weekly", "digest"}, cfg.Features.StopWords)
	assert.Equal(t, 0.6, cfg.Label.Dominance)
	assert.Equal(t, 2, cfg.Archive.Workers)
	assert.Equal(t, time.Second, cfg.Archive.InitialBackoff)
	assert.Equal(t, "[Gmail]/All Mail", cfg.Source.IMAP.ArchiveMailbox)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv(EnvSource, SourceDemo)
	t.Setenv(EnvAccount, "work")
	t.Setenv(EnvIMAPPassword, "app-password")

	cfg, err := Load(writeFile(t, "source:\n  type: mbox\n"))
	require.NoError(t, err)
	assert.Equal(t, SourceDemo, cfg.Source.Type, "environment beats the file")
	assert.Equal(t, "work", cfg.Source.Account)
	assert.Equal(t, "app-password", cfg.Source.IMAP.Password)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err, "an explicit path must exist")

	_, err = Load(writeFile(t, "clusterz: 3\n"))
	assert.Error(t, err, "unknown keys are rejected")

	_, err = Load(writeFile(t, "clusters: [1, 2]\n"))
	assert.Error(t, err)
}

func TestLoad_EmptyFile(t *testing.T) {
	cfg, err := Load(writeFile(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default().Clusters, cfg.Clusters)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"zero clusters", func(c *Config) { c.Clusters = 0 }, ErrInvalidClusters},
		{"negative count", func(c *Config) { c.Count = -1 }, ErrInvalidCount},
		{"negative weight", func(c *Config) { c.Weights.Subject = -0.1 }, ErrInvalidWeights},
		{"all zero weights", func(c *Config) { c.Weights.Domain, c.Weights.Bulk, c.Weights.Subject, c.Weights.Embedding = 0, 0, 0, 0 }, ErrInvalidWeights},
		{"unknown source", func(c *Config) { c.Source.Type = "pop3" }, ErrUnknownSource},
		{"imap without address", func(c *Config) { c.Source.Type = SourceIMAP }, ErrIncompleteSource},
		{"mbox without path", func(c *Config) { c.Source.Type = SourceMbox }, ErrIncompleteSource},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), tt.wantErr)
		})
	}
}

func TestTriageOptions(t *testing.T) {
	cfg := Default()
	cfg.Clusters = 9
	cfg.Source.Type = SourceDemo

	opts := cfg.TriageOptions()
	assert.Equal(t, 9, opts.Clusters)
	assert.Equal(t, 200, opts.Count)
	assert.Equal(t, SourceDemo, opts.Source)
	assert.Equal(t, cfg.Weights, opts.Weights)
}
