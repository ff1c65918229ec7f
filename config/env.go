package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultAppEnv        = "local"
	defaultLogLevel      = "info"
	defaultAppHost       = "127.0.0.1"
	defaultAppPort       = "8080"
	defaultAPIBaseURL    = "http://localhost:5000/api"
	defaultEventsURL     = "ws://localhost:5000/ws"
	defaultHTTPTimeout   = "30s"
	defaultSessionDriver = "file"
	defaultSessionFile   = ".aquaportal/session.json"
	defaultProfile       = "default"
	defaultRedisAddr     = "localhost:6379"
	defaultRedirectDelay = "3s"
)

var (
	loadOnce sync.Once
	loadErr  error

	mu     sync.RWMutex
	values = defaultValues()
)

// Load reads config/portal.json and .env once. Process environment variables
// always win over file values.
func Load() error {
	loadOnce.Do(func() {
		loadErr = loadFromFiles("config/portal.json", ".env")
	})
	return loadErr
}

func defaultValues() map[string]string {
	return map[string]string{
		"APP_ENV":                defaultAppEnv,
		"LOG_LEVEL":              defaultLogLevel,
		"APP_HOST":               defaultAppHost,
		"APP_PORT":               defaultAppPort,
		"API_BASE_URL":           defaultAPIBaseURL,
		"EVENTS_URL":             defaultEventsURL,
		"HTTP_TIMEOUT":           defaultHTTPTimeout,
		"SESSION_DRIVER":         defaultSessionDriver,
		"SESSION_FILE":           "",
		"SESSION_PROFILE":        defaultProfile,
		"REDIS_ADDR":             defaultRedisAddr,
		"REDIS_PASSWORD":         "",
		"PAYMENT_REDIRECT_DELAY": defaultRedirectDelay,
		"GEO_LAT":                "",
		"GEO_LNG":                "",
	}
}

func AppEnv() string {
	_ = Load()
	return get("APP_ENV", defaultAppEnv)
}

func LogLevel() string {
	_ = Load()
	return strings.ToLower(get("LOG_LEVEL", defaultLogLevel))
}

// AppHost is the interface the web UI binds to. The UI acts with the stored
// credential for every client, so it stays on loopback unless set.
func AppHost() string {
	_ = Load()
	return get("APP_HOST", defaultAppHost)
}

func AppPort() string {
	_ = Load()
	return get("APP_PORT", defaultAppPort)
}

// APIBaseURL is the backend REST root, without a trailing slash.
func APIBaseURL() string {
	_ = Load()
	return strings.TrimRight(get("API_BASE_URL", defaultAPIBaseURL), "/")
}

func EventsURL() string {
	_ = Load()
	return get("EVENTS_URL", defaultEventsURL)
}

func HTTPTimeout() time.Duration {
	_ = Load()
	return duration("HTTP_TIMEOUT", 30*time.Second)
}

// ── Session ──────────────────────────────────────────────────────────────────

func SessionDriver() string {
	_ = Load()

	driver := strings.ToLower(get("SESSION_DRIVER", defaultSessionDriver))
	switch driver {
	case "file", "redis":
		return driver
	default:
		return defaultSessionDriver
	}
}

// SessionFile is where the file session driver keeps the credential. Relative
// paths resolve against the user's home directory.
func SessionFile() string {
	_ = Load()

	path := get("SESSION_FILE", defaultSessionFile)
	if filepath.IsAbs(path) {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path)
}

func SessionProfile() string {
	_ = Load()
	return get("SESSION_PROFILE", defaultProfile)
}

func RedisAddr() string {
	_ = Load()
	return get("REDIS_ADDR", defaultRedisAddr)
}

func RedisPassword() string {
	_ = Load()
	return get("REDIS_PASSWORD", "")
}

// ── Checkout / geolocation ───────────────────────────────────────────────────

func PaymentRedirectDelay() time.Duration {
	_ = Load()
	return duration("PAYMENT_REDIRECT_DELAY", 3*time.Second)
}

// Coordinates returns the configured device position. ok is false when either
// coordinate is missing or malformed.
func Coordinates() (lat, lng float64, ok bool) {
	_ = Load()

	rawLat, rawLng := get("GEO_LAT", ""), get("GEO_LNG", "")
	if rawLat == "" || rawLng == "" {
		return 0, 0, false
	}
	lat, errLat := strconv.ParseFloat(rawLat, 64)
	lng, errLng := strconv.ParseFloat(rawLng, 64)
	if errLat != nil || errLng != nil {
		return 0, 0, false
	}
	return lat, lng, true
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

	mergeEnviron(loaded)

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
		var s string
		switch v := val.(type) {
		case string:
			s = v
		case float64:
			s = strconv.FormatFloat(v, 'f', -1, 64)
		default:
			continue
		}

		k := strings.ToUpper(strings.TrimSpace(key))
		if k == "" {
			continue
		}
		out[k] = strings.TrimSpace(s)
	}

	return nil
}

func mergeDotEnv(path string, out map[string]string) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}

	env, err := godotenv.Read(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	for key, value := range env {
		k := strings.ToUpper(strings.TrimSpace(key))
		if k == "" {
			continue
		}
		out[k] = strings.TrimSpace(value)
	}
	return nil
}

func mergeEnviron(out map[string]string) {
	for key := range out {
		if v, ok := os.LookupEnv(key); ok {
			out[key] = strings.TrimSpace(v)
		}
	}
}

func get(key, fallback string) string {
	mu.RLock()
	defer mu.RUnlock()

	if value := strings.TrimSpace(values[key]); value != "" {
		return value
	}

	return fallback
}

func duration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(get(key, ""))
	if err != nil || d < 0 {
		return fallback
	}
	return d
}

// Get reads any config key by name with an optional fallback.
func Get(key, fallback string) string {
	_ = Load()
	return get(key, fallback)
}

// Set overrides a key for the rest of the process. CLI flags use it.
func Set(key, value string) {
	_ = Load()

	mu.Lock()
	defer mu.Unlock()
	values[strings.ToUpper(key)] = value
}
