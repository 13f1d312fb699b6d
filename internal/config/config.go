// Package config loads application configuration from environment variables.
package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"time"
)

// ServiceConfig holds the trigger daemon's configuration.
type ServiceConfig struct {
	ListenAddr     string
	CredentialName string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SecretKey     []byte // 32-byte AES-256 key for credential records, nil disables encryption.
	RecordTTL     time.Duration

	TriggerInterval time.Duration
	TriggerTimeout  time.Duration
	TriggerSecret   string

	SandboxURL   string
	SandboxName  string
	SandboxToken string

	DBPath string
}

// RefresherConfig holds the refresh CLI's configuration, read inside the
// sandbox.
type RefresherConfig struct {
	CredentialName string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SecretKey     []byte
	RecordTTL     time.Duration

	CachePath string
	LogPath   string

	RotationURL    string
	SessionURL     string
	LoginURLPrefix string
	JarPath        string
	PrimaryCookie  string
	RotationCookie string
}

// LoadService reads the trigger daemon configuration. Required:
// COOKIERELAY_TRIGGER_SECRET and COOKIERELAY_SANDBOX_URL. Optional variables
// have defaults suited to a single-credential deployment.
func LoadService() (*ServiceConfig, error) {
	secret := os.Getenv("COOKIERELAY_TRIGGER_SECRET")
	if secret == "" {
		return nil, fmt.Errorf("COOKIERELAY_TRIGGER_SECRET is required")
	}

	sandboxURL := os.Getenv("COOKIERELAY_SANDBOX_URL")
	if sandboxURL == "" {
		return nil, fmt.Errorf("COOKIERELAY_SANDBOX_URL is required")
	}

	interval, err := durationEnv("COOKIERELAY_TRIGGER_INTERVAL", 6*time.Hour)
	if err != nil {
		return nil, err
	}
	timeout, err := durationEnv("COOKIERELAY_TRIGGER_TIMEOUT", 90*time.Second)
	if err != nil {
		return nil, err
	}
	ttl, err := durationEnv("COOKIERELAY_RECORD_TTL", 0)
	if err != nil {
		return nil, err
	}

	redisDB, err := intEnv("COOKIERELAY_REDIS_DB", 0)
	if err != nil {
		return nil, err
	}

	key, err := secretKeyEnv()
	if err != nil {
		return nil, err
	}

	return &ServiceConfig{
		ListenAddr:      stringEnv("COOKIERELAY_LISTEN_ADDR", "127.0.0.1:8080"),
		CredentialName:  stringEnv("COOKIERELAY_CREDENTIAL_NAME", "default"),
		RedisAddr:       stringEnv("COOKIERELAY_REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword:   os.Getenv("COOKIERELAY_REDIS_PASSWORD"),
		RedisDB:         redisDB,
		SecretKey:       key,
		RecordTTL:       ttl,
		TriggerInterval: interval,
		TriggerTimeout:  timeout,
		TriggerSecret:   secret,
		SandboxURL:      sandboxURL,
		SandboxName:     stringEnv("COOKIERELAY_SANDBOX_NAME", "cookie-refresher"),
		SandboxToken:    os.Getenv("COOKIERELAY_SANDBOX_TOKEN"),
		DBPath:          stringEnv("COOKIERELAY_DB_PATH", "cookierelay.db"),
	}, nil
}

// LoadRefresher reads the refresh CLI configuration. Required:
// COOKIERELAY_ROTATION_URL and COOKIERELAY_SESSION_URL.
func LoadRefresher() (*RefresherConfig, error) {
	rotationURL := os.Getenv("COOKIERELAY_ROTATION_URL")
	if rotationURL == "" {
		return nil, fmt.Errorf("COOKIERELAY_ROTATION_URL is required")
	}

	sessionURL := os.Getenv("COOKIERELAY_SESSION_URL")
	if sessionURL == "" {
		return nil, fmt.Errorf("COOKIERELAY_SESSION_URL is required")
	}

	ttl, err := durationEnv("COOKIERELAY_RECORD_TTL", 0)
	if err != nil {
		return nil, err
	}
	redisDB, err := intEnv("COOKIERELAY_REDIS_DB", 0)
	if err != nil {
		return nil, err
	}
	key, err := secretKeyEnv()
	if err != nil {
		return nil, err
	}

	return &RefresherConfig{
		CredentialName: stringEnv("COOKIERELAY_CREDENTIAL_NAME", "default"),
		RedisAddr:      stringEnv("COOKIERELAY_REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword:  os.Getenv("COOKIERELAY_REDIS_PASSWORD"),
		RedisDB:        redisDB,
		SecretKey:      key,
		RecordTTL:      ttl,
		CachePath:      stringEnv("COOKIERELAY_CACHE_PATH", "/data/cookierelay/credential.json"),
		LogPath:        stringEnv("COOKIERELAY_LOG_PATH", "/data/cookierelay/refresh.log"),
		RotationURL:    rotationURL,
		SessionURL:     sessionURL,
		LoginURLPrefix: os.Getenv("COOKIERELAY_LOGIN_URL_PREFIX"),
		JarPath:        stringEnv("COOKIERELAY_JAR_PATH", "/data/cookierelay/session.json"),
		PrimaryCookie:  stringEnv("COOKIERELAY_PRIMARY_COOKIE", "session_id"),
		RotationCookie: stringEnv("COOKIERELAY_ROTATION_COOKIE", "rotation_token"),
	}, nil
}

func stringEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s has invalid duration %q: %w", key, v, err)
	}
	return parsed, nil
}

func intEnv(key string, fallback int) (int, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	var parsed int
	if _, err := fmt.Sscanf(v, "%d", &parsed); err != nil {
		return 0, fmt.Errorf("%s has invalid integer %q: %w", key, v, err)
	}
	return parsed, nil
}

// secretKeyEnv reads the optional hex-encoded AES-256 key. Unset means
// credential records are stored in plaintext.
func secretKeyEnv() ([]byte, error) {
	v := os.Getenv("COOKIERELAY_SECRET_KEY")
	if v == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(v)
	if err != nil {
		return nil, fmt.Errorf("COOKIERELAY_SECRET_KEY is not valid hex: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("COOKIERELAY_SECRET_KEY must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}
