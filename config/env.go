package config

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	defaultMongoURI      = "mongodb://localhost:27017"
	defaultMongoDatabase = "farmdirect"
	defaultRedisAddr     = "localhost:6379"
	defaultJWTSecret     = "change-me-in-production"
	defaultJWTTTL        = 7 * 24 * time.Hour
	defaultAppPort       = "8080"
	defaultAppEnv        = "local"
	defaultCORSOrigin    = "http://localhost:3000"

	defaultRadiusKm            = 20.0
	defaultMaxProviders        = 100
	defaultMaxItemsPerProvider = 50
	defaultJoinWorkers         = 8
	defaultSearchCacheTTL      = 30 * time.Second
)

var (
	loadOnce sync.Once
	loadErr  error

	mu     sync.RWMutex
	values = defaultValues()
)

func Load() error {
	loadOnce.Do(func() {
		loadErr = loadFromFiles("config/app.json", ".env")
	})
	return loadErr
}

func defaultValues() map[string]string {
	return map[string]string{
		"MONGO_URI":      defaultMongoURI,
		"MONGO_DATABASE": defaultMongoDatabase,
		"REDIS_ADDR":     defaultRedisAddr,
		"JWT_SECRET":     defaultJWTSecret,
		"APP_PORT":       defaultAppPort,
		"APP_ENV":        defaultAppEnv,
		"CORS_ORIGIN":    defaultCORSOrigin,
		"REDIS_PASSWORD": "",
		"LOG_MONGO_URI":  "",
		"GRPC_PORT":      "",
	}
}

func AppPort() string {
	_ = Load()
	return get("APP_PORT", defaultAppPort)
}

func AppEnv() string {
	_ = Load()
	return get("APP_ENV", defaultAppEnv)
}

// IsProduction reports whether APP_ENV names a production deployment.
func IsProduction() bool {
	switch strings.ToLower(AppEnv()) {
	case "production", "prod":
		return true
	}
	return false
}

// GRPCPort is empty when the gRPC health server is disabled.
func GRPCPort() string {
	_ = Load()
	return get("GRPC_PORT", "")
}

func JWTSecret() string {
	_ = Load()
	return get("JWT_SECRET", defaultJWTSecret)
}

func JWTTTL() time.Duration {
	return GetDuration("JWT_TTL", defaultJWTTTL)
}

func CORSOrigin() string {
	_ = Load()
	return get("CORS_ORIGIN", defaultCORSOrigin)
}

func RateLimitPerMinute() int {
	return GetInt("RATE_LIMIT_PER_MINUTE", 200)
}

// ── Mongo ────────────────────────────────────────────────────────────────────

func MongoURI() string {
	_ = Load()
	return get("MONGO_URI", defaultMongoURI)
}

func MongoDatabase() string {
	_ = Load()
	return get("MONGO_DATABASE", defaultMongoDatabase)
}

// LogMongoURI enables the Mongo log sink when set.
func LogMongoURI() string {
	_ = Load()
	return get("LOG_MONGO_URI", "")
}

// ── Redis ────────────────────────────────────────────────────────────────────

func RedisAddr() string {
	_ = Load()
	return get("REDIS_ADDR", defaultRedisAddr)
}

func RedisPassword() string {
	_ = Load()
	return get("REDIS_PASSWORD", "")
}

// ── Geo search ───────────────────────────────────────────────────────────────

func GeoDefaultRadiusKm() float64 {
	return GetFloat("GEO_DEFAULT_RADIUS_KM", defaultRadiusKm)
}

func GeoMaxProviders() int {
	return GetInt("GEO_MAX_PROVIDERS", defaultMaxProviders)
}

func GeoMaxItemsPerProvider() int {
	return GetInt("GEO_MAX_ITEMS_PER_PROVIDER", defaultMaxItemsPerProvider)
}

func GeoJoinWorkers() int {
	return GetInt("GEO_JOIN_WORKERS", defaultJoinWorkers)
}

// SearchCacheTTL of zero disables the search result cache.
func SearchCacheTTL() time.Duration {
	return GetDuration("GEO_CACHE_TTL", defaultSearchCacheTTL)
}

// ── Storage / backups ────────────────────────────────────────────────────────

func StorageDefault() string {
	_ = Load()
	return get("STORAGE_DISK", "local")
}

func StorageLocalRoot() string {
	_ = Load()
	return get("STORAGE_LOCAL_ROOT", "storage")
}

func StorageS3Bucket() string   { _ = Load(); return get("S3_BUCKET", "") }
func StorageS3Region() string   { _ = Load(); return get("S3_REGION", "us-east-1") }
func StorageS3Key() string      { _ = Load(); return get("S3_KEY", "") }
func StorageS3Secret() string   { _ = Load(); return get("S3_SECRET", "") }
func StorageS3Endpoint() string { _ = Load(); return get("S3_ENDPOINT", "") }

func BackupPrefix() string {
	_ = Load()
	return get("BACKUP_PREFIX", "backups")
}

func BackupRetention() time.Duration {
	return time.Duration(GetInt("BACKUP_RETENTION_DAYS", 30)) * 24 * time.Hour
}

func BackupMaxCount() int {
	return GetInt("BACKUP_MAX_COUNT", 100)
}

// BackupSchedule is a 5-field cron expression; empty disables in-process
// backups.
func BackupSchedule() string {
	_ = Load()
	return get("BACKUP_SCHEDULE", "")
}

func loadFromFiles(configPath, envPath string) error {
	loaded := defaultValues()

	if err := mergeJSONConfig(configPath, loaded); err != nil {
		if !os.IsNotExist(err) {
			return err
		}
	}

	if err := mergeDotEnv(envPath, loaded); err != nil {
		if !os.IsNotExist(err) {
			return err
		}
	}

	// Process environment wins over files.
	for key := range loaded {
		if v, ok := os.LookupEnv(key); ok {
			loaded[key] = strings.TrimSpace(v)
		}
	}

	mu.Lock()
	values = loaded
	mu.Unlock()

	return nil
}

func mergeJSONConfig(path string, out map[string]string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	var raw map[string]interface{}
	if err := json.NewDecoder(file).Decode(&raw); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}

	for key, val := range raw {
		k := strings.ToUpper(strings.TrimSpace(key))
		if k == "" {
			continue
		}
		switch v := val.(type) {
		case string:
			out[k] = strings.TrimSpace(v)
		case float64:
			out[k] = strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			out[k] = strconv.FormatBool(v)
		}
	}

	return nil
}

func mergeDotEnv(path string, out map[string]string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		idx := strings.IndexByte(line, '=')
		if idx <= 0 {
			continue
		}

		key := strings.ToUpper(strings.TrimSpace(line[:idx]))
		value := strings.TrimSpace(line[idx+1:])
		value = strings.Trim(value, `"'`)
		if key == "" {
			continue
		}
		out[key] = value
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	return nil
}

func get(key, fallback string) string {
	mu.RLock()
	defer mu.RUnlock()

	if value := strings.TrimSpace(values[key]); value != "" {
		return value
	}
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}

	return fallback
}

// Get reads any config key by name with an optional fallback.
// Keys from .env and app.json are available after config.Load().
func Get(key, fallback string) string {
	_ = Load()
	return get(key, fallback)
}

// GetInt reads an integer key. Unparseable or non-positive values yield fallback.
func GetInt(key string, fallback int) int {
	n, err := strconv.Atoi(Get(key, ""))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

// GetFloat reads a float key. Unparseable or negative values yield fallback.
func GetFloat(key string, fallback float64) float64 {
	f, err := strconv.ParseFloat(Get(key, ""), 64)
	if err != nil || f < 0 {
		return fallback
	}
	return f
}

// GetDuration accepts Go duration syntax ("30s") or a bare number of seconds.
// "0" is a valid value and disables whatever the key controls.
func GetDuration(key string, fallback time.Duration) time.Duration {
	raw := Get(key, "")
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil && d >= 0 {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
