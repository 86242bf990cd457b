package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName                string
	AppEnv                 string
	AppPort                string
	DatabaseURL            string
	RedisURL               string
	NATSURL                string
	RealtimeChannel        string
	JWTSecret              string
	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string
	UploadMaxSizeMB        int
	PresenceCacheTTL       time.Duration
	CatalogCacheTTL        time.Duration
	OnboardingDraftTTL     time.Duration
	StreamKeepAlive        time.Duration
	SendRateLimit          int
	SendRateWindow         time.Duration
	CORSAllowOrigins       string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("HOMEFIX")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Homefix API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("realtime.channel", "homefix")
	v.SetDefault("cloudinary.folder", "homefix/profiles")
	v.SetDefault("upload.max_size_mb", 10)
	v.SetDefault("presence.cache_ttl", "10m")
	v.SetDefault("catalog.cache_ttl", "5m")
	v.SetDefault("onboarding.draft_ttl", "24h")
	v.SetDefault("stream.keepalive", "30s")
	v.SetDefault("chat.send_rate_limit", 20)
	v.SetDefault("chat.send_rate_window", "10s")
	v.SetDefault("cors.allow_origins", "*")

	presenceTTL, err := parseDuration(v, "presence.cache_ttl", 10*time.Minute)
	if err != nil {
		return Config{}, err
	}
	catalogTTL, err := parseDuration(v, "catalog.cache_ttl", 5*time.Minute)
	if err != nil {
		return Config{}, err
	}
	draftTTL, err := parseDuration(v, "onboarding.draft_ttl", 24*time.Hour)
	if err != nil {
		return Config{}, err
	}
	keepAlive, err := parseDuration(v, "stream.keepalive", 30*time.Second)
	if err != nil {
		return Config{}, err
	}
	sendWindow, err := parseDuration(v, "chat.send_rate_window", 10*time.Second)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		DatabaseURL:            v.GetString("database.url"),
		RedisURL:               v.GetString("redis.url"),
		NATSURL:                v.GetString("nats.url"),
		RealtimeChannel:        v.GetString("realtime.channel"),
		JWTSecret:              v.GetString("jwt.secret"),
		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),
		UploadMaxSizeMB:        v.GetInt("upload.max_size_mb"),
		PresenceCacheTTL:       presenceTTL,
		CatalogCacheTTL:        catalogTTL,
		OnboardingDraftTTL:     draftTTL,
		StreamKeepAlive:        keepAlive,
		SendRateLimit:          v.GetInt("chat.send_rate_limit"),
		SendRateWindow:         sendWindow,
		CORSAllowOrigins:       v.GetString("cors.allow_origins"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.UploadMaxSizeMB <= 0 {
		cfg.UploadMaxSizeMB = 10
	}

	if cfg.SendRateLimit <= 0 {
		cfg.SendRateLimit = 20
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return fallback, nil
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if parsed <= 0 {
		return fallback, nil
	}

	return parsed, nil
}
