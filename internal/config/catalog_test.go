package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCatalogConfigHolderReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yml")
	body := `catalog:
  entries:
    - brand: haohua
      size: "15"
      design: HT1
      rimSizes: ["22.5"]
    - brand: HAOHUA
      size: "11"
      design: HD2
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	holder, err := NewCatalogConfigHolder(Config{CatalogPath: path})
	require.NoError(t, err)

	entries := holder.Get().Entries
	require.Len(t, entries, 2)
	assert.Equal(t, "haohua", entries[0].Brand)
	assert.Equal(t, []string{"22.5"}, entries[0].RimSizes)
	assert.Empty(t, entries[1].RimSizes)
}

func TestNewCatalogConfigHolderRejectsIncompleteEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yml")
	body := `catalog:
  entries:
    - brand: HAOHUA
      size: ""
      design: HT1
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	_, err := NewCatalogConfigHolder(Config{CatalogPath: path})
	assert.Error(t, err)
}

func TestStaticCatalogHolderReturnsDefaults(t *testing.T) {
	holder := NewStaticCatalogConfigHolder(DefaultCatalogConfig())
	assert.NotEmpty(t, holder.Get().Entries)
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("DATABASE_TYPE", "sqlite")
	t.Setenv("VOUCHER_EXPIRY_TTL", "720h")
	t.Setenv("VERIFY_BURST", "7")
	t.Setenv("REDIS_ADDR", "")

	cfg := Load()
	assert.Equal(t, "sqlite", cfg.DBType)
	assert.Equal(t, "720h0m0s", cfg.Expiry.TTL.String())
	assert.Equal(t, 7, cfg.Verify.Burst)
	assert.False(t, cfg.Redis.Enabled())
}
