package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ga4gh/htsget-ticket-server/internal/genomics"
	"github.com/ga4gh/htsget-ticket-server/internal/location"
	"github.com/ga4gh/htsget-ticket-server/internal/storage"
)

func TestBuildLocationsFileBackend(t *testing.T) {
	cfg := &Config{Locations: []LocationConfig{{
		Regex:        `^(?P<id>.*)$`,
		Substitution: "$id",
		File:         &FileBackendConfig{Root: "/data", Scheme: "http", Authority: "data.example.org"},
	}}}

	table, err := BuildLocations(context.Background(), cfg, Clients{})
	require.NoError(t, err)
	require.Len(t, table, 1)
	assert.Equal(t, location.FileBackend, table[0].Backend)
	_, ok := table[0].BackendRef.(*storage.File)
	assert.True(t, ok)
}

func TestBuildLocationsLoadsC4GHKeys(t *testing.T) {
	dir := t.TempDir()
	privatePath := filepath.Join(dir, "server.sec")
	publicPath := filepath.Join(dir, "recipient.pub")
	require.NoError(t, os.WriteFile(privatePath, make([]byte, 32), 0o600))
	require.NoError(t, os.WriteFile(publicPath, make([]byte, 32), 0o600))

	cfg := &Config{Locations: []LocationConfig{{
		Regex:        `^(?P<id>.*)$`,
		Substitution: "$id",
		File:         &FileBackendConfig{Root: "/data"},
		C4GH:         &C4GHConfig{PrivateKeyPath: privatePath, RecipientPublicKeyPath: publicPath},
	}}}

	table, err := BuildLocations(context.Background(), cfg, Clients{})
	require.NoError(t, err)
	assert.Equal(t, location.Crypt4GH, table[0].ObjectKind)
	assert.NotNil(t, table[0].C4GHKeys)
}

func TestBuildLocationsRejectsMissingKeyFile(t *testing.T) {
	cfg := &Config{Locations: []LocationConfig{{
		Regex:        `^(?P<id>.*)$`,
		Substitution: "$id",
		File:         &FileBackendConfig{Root: "/data"},
		C4GH:         &C4GHConfig{PrivateKeyPath: "/nonexistent", RecipientPublicKeyPath: "/nonexistent"},
	}}}

	_, err := BuildLocations(context.Background(), cfg, Clients{})
	assert.Error(t, err)
}

func TestBuildLocationsRejectsSecretsManagerKeysWithoutClient(t *testing.T) {
	cfg := &Config{Locations: []LocationConfig{{
		Regex:        `^(?P<id>.*)$`,
		Substitution: "$id",
		File:         &FileBackendConfig{Root: "/data"},
		C4GH: &C4GHConfig{
			PrivateKeySecretID:         "prod/htsget/private-key",
			RecipientPublicKeySecretID: "prod/htsget/recipient-public-key",
		},
	}}}

	_, err := BuildLocations(context.Background(), cfg, Clients{})
	assert.Error(t, err)
}

func TestBuildLocationsGuardRestrictsFormats(t *testing.T) {
	cfg := &Config{Locations: []LocationConfig{{
		Regex:        `^(?P<id>.*)$`,
		Substitution: "$id",
		File:         &FileBackendConfig{Root: "/data"},
		Guard:        &GuardConfig{Formats: []string{"BAM"}},
	}}}

	table, err := BuildLocations(context.Background(), cfg, Clients{})
	require.NoError(t, err)
	require.NotNil(t, table[0].Guard)
	assert.True(t, table[0].Guard.Allows(genomics.Query{Format: genomics.BAM}))
	assert.False(t, table[0].Guard.Allows(genomics.Query{Format: genomics.CRAM}))
}
