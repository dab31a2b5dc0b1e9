package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeoDefaults(t *testing.T) {
	assert.Equal(t, 20.0, GeoDefaultRadiusKm())
	assert.Equal(t, 100, GeoMaxProviders())
	assert.Equal(t, 50, GeoMaxItemsPerProvider())
}

func TestTypedGettersReadEnvironment(t *testing.T) {
	t.Setenv("GEO_MAX_PROVIDERS", "25")
	t.Setenv("GEO_DEFAULT_RADIUS_KM", "7.5")
	t.Setenv("GEO_CACHE_TTL", "0")

	assert.Equal(t, 25, GeoMaxProviders())
	assert.Equal(t, 7.5, GeoDefaultRadiusKm())
	assert.Equal(t, time.Duration(0), SearchCacheTTL())
}

func TestTypedGettersFallBackOnGarbage(t *testing.T) {
	t.Setenv("GEO_MAX_ITEMS_PER_PROVIDER", "lots")
	t.Setenv("JWT_TTL", "-5s")

	assert.Equal(t, 50, GeoMaxItemsPerProvider())
	assert.Equal(t, 7*24*time.Hour, JWTTTL())
}

func TestGetDurationAcceptsSeconds(t *testing.T) {
	t.Setenv("GEO_CACHE_TTL", "45")
	assert.Equal(t, 45*time.Second, SearchCacheTTL())
}

func TestLoadFromFilesMergesJSONAndDotEnv(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "app.json")
	envPath := filepath.Join(dir, ".env")

	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"mongo_database":"fromjson","geo_max_providers":12}`), 0o600))
	require.NoError(t, os.WriteFile(envPath, []byte("# comment\nMONGO_DATABASE=\"fromenv\"\nAPP_PORT=9090\n"), 0o600))

	mu.RLock()
	saved := values
	mu.RUnlock()
	t.Cleanup(func() {
		mu.Lock()
		values = saved
		mu.Unlock()
	})

	require.NoError(t, loadFromFiles(jsonPath, envPath))

	assert.Equal(t, "fromenv", get("MONGO_DATABASE", ""))
	assert.Equal(t, "9090", get("APP_PORT", ""))
	assert.Equal(t, "12", get("GEO_MAX_PROVIDERS", ""))
}

func TestLoadFromFilesToleratesMissingFiles(t *testing.T) {
	mu.RLock()
	saved := values
	mu.RUnlock()
	t.Cleanup(func() {
		mu.Lock()
		values = saved
		mu.Unlock()
	})

	dir := t.TempDir()
	require.NoError(t, loadFromFiles(filepath.Join(dir, "nope.json"), filepath.Join(dir, "nope.env")))
	assert.Equal(t, defaultMongoURI, get("MONGO_URI", ""))
}
