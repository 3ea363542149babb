package config

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// AppConfig holds environment driven configuration values.
// Sensitive data should never have defaults inside code and must be provided via the config file or the environment.
type AppConfig struct {
	AppPort string

	// Embedded database
	DatabasePath string

	// Challenge timezone for the noon cutover rule
	Timezone string

	// Gateway (Twilio-compatible) credentials
	TwilioAccountSID       string
	TwilioAuthToken        string
	TwilioAuthTokenPrev    string // fallback secret kept valid during rotation
	TwilioFromNumber       string
	TwilioTestMode         bool
	TwilioTrustedIPs       []string
	InternalAPISecret      string
	RateLimitWindowSeconds int
	RateLimitPerMinute     int

	// Award milestones; the settings table overrides these at computation time
	LifetimeStepThresholds  []int
	AttendanceDayThresholds []int
	AwardsDir               string
	AwardImageGenerationOn  bool

	// Admin surface
	JWTSecret         string
	AdminUsername     string
	AdminPasswordHash string

	AllowedOrigins []string

	// Gin framework configuration
	GinMode string
	GinPath string

	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
}

// Load reads config/config.json (when present), fills defaults, then applies
// environment variable overrides. Call once during boot and pass the result
// down; components never read configuration ambiently.
func Load() AppConfig {
	var cfg AppConfig
	if err := loadJSONConfig(filepath.Join("config", "config.json"), &cfg); err != nil {
		log.Fatalf("invalid config file: %v", err)
	}
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	return cfg
}

// loadJSONConfig reads the JSON file into cfg if present. Returns error only for invalid JSON.
func loadJSONConfig(path string, out *AppConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return nil // missing file is fine
	}
	defer f.Close()

	var raw map[string]any
	if err := json.NewDecoder(f).Decode(&raw); err != nil {
		return err
	}

	getString := func(m map[string]any, key string) string {
		if s, ok := m[key].(string); ok {
			return s
		}
		return ""
	}
	getInt := func(m map[string]any, key string) int {
		if f, ok := m[key].(float64); ok {
			return int(f)
		}
		return 0
	}
	getBool := func(m map[string]any, key string) bool {
		b, _ := m[key].(bool)
		return b
	}
	getStringSlice := func(m map[string]any, key string) []string {
		arr, ok := m[key].([]any)
		if !ok {
			return nil
		}
		res := make([]string, 0, len(arr))
		for _, it := range arr {
			if s, ok := it.(string); ok {
				res = append(res, s)
			}
		}
		return res
	}
	getIntSlice := func(m map[string]any, key string) []int {
		arr, ok := m[key].([]any)
		if !ok {
			return nil
		}
		res := make([]int, 0, len(arr))
		for _, it := range arr {
			if f, ok := it.(float64); ok {
				res = append(res, int(f))
			}
		}
		return res
	}

	if app, ok := raw["app"].(map[string]any); ok {
		out.AppPort = getString(app, "AppPort")
		out.Timezone = getString(app, "Timezone")
		if v := getInt(app, "RateLimitWindowSeconds"); v != 0 {
			out.RateLimitWindowSeconds = v
		}
		if v := getInt(app, "RateLimitPerMinute"); v != 0 {
			out.RateLimitPerMinute = v
		}
		if list := getStringSlice(app, "AllowedOrigins"); len(list) > 0 {
			out.AllowedOrigins = list
		}
	}

	if dbs, ok := raw["database"].(map[string]any); ok {
		out.DatabasePath = getString(dbs, "Path")
	}

	if tw, ok := raw["twilio"].(map[string]any); ok {
		out.TwilioAccountSID = getString(tw, "AccountSID")
		out.TwilioAuthToken = getString(tw, "AuthToken")
		out.TwilioAuthTokenPrev = getString(tw, "AuthTokenPrev")
		out.TwilioFromNumber = getString(tw, "FromNumber")
		out.TwilioTestMode = getBool(tw, "TestMode")
		if list := getStringSlice(tw, "TrustedIPs"); len(list) > 0 {
			out.TwilioTrustedIPs = list
		}
		out.InternalAPISecret = getString(tw, "InternalAPISecret")
	}

	if aw, ok := raw["awards"].(map[string]any); ok {
		if list := getIntSlice(aw, "LifetimeSteps"); len(list) > 0 {
			out.LifetimeStepThresholds = list
		}
		if list := getIntSlice(aw, "AttendanceDays"); len(list) > 0 {
			out.AttendanceDayThresholds = list
		}
		if v := getString(aw, "Dir"); v != "" {
			out.AwardsDir = v
		}
		out.AwardImageGenerationOn = getBool(aw, "ImageGeneration")
	}

	if adm, ok := raw["admin"].(map[string]any); ok {
		out.JWTSecret = getString(adm, "JWTSecret")
		out.AdminUsername = getString(adm, "Username")
		out.AdminPasswordHash = getString(adm, "PasswordHash")
	}

	if lg, ok := raw["log"].(map[string]any); ok {
		if v := getString(lg, "Level"); v != "" {
			out.LogLevel = v
		}
		if v := getString(lg, "Path"); v != "" {
			out.LogPath = v
		}
		if v := getString(lg, "GinMode"); v != "" {
			out.GinMode = v
		}
		if v := getString(lg, "GinPath"); v != "" {
			out.GinPath = v
		}
		if v := getInt(lg, "MaxSizeMB"); v != 0 {
			out.LogMaxSizeMB = v
		}
		if v := getInt(lg, "MaxBackups"); v != 0 {
			out.LogMaxBackups = v
		}
		if v := getInt(lg, "MaxAgeDays"); v != 0 {
			out.LogMaxAgeDays = v
		}
		out.LogCompress = getBool(lg, "Compress")
	}

	return nil
}

// applyDefaults sets sane defaults for zero-value fields.
func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "8080"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "data/walkweek.sqlite"
	}
	if c.Timezone == "" {
		c.Timezone = "America/Denver"
	}
	if c.RateLimitWindowSeconds == 0 {
		c.RateLimitWindowSeconds = 60
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 60
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if len(c.LifetimeStepThresholds) == 0 {
		c.LifetimeStepThresholds = []int{100000, 250000, 500000, 750000, 1000000}
	}
	if len(c.AttendanceDayThresholds) == 0 {
		c.AttendanceDayThresholds = []int{175, 350, 700}
	}
	if c.AwardsDir == "" {
		c.AwardsDir = "site/assets/awards"
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.GinPath == "" {
		c.GinPath = "logs/go_gin.log"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogMaxSizeMB == 0 {
		c.LogMaxSizeMB = 100
	}
	if c.LogMaxBackups == 0 {
		c.LogMaxBackups = 3
	}
	if c.LogMaxAgeDays == 0 {
		c.LogMaxAgeDays = 7
	}
}

// applyEnvOverrides maps known environment variables onto config values when present.
func applyEnvOverrides(c *AppConfig) {
	if v := os.Getenv("APP_PORT"); v != "" {
		c.AppPort = v
	}
	if v := os.Getenv("WALK_DB_PATH"); v != "" {
		c.DatabasePath = v
	}
	if v := os.Getenv("WALK_TZ"); v != "" {
		c.Timezone = v
	}
	if v := os.Getenv("TWILIO_ACCOUNT_SID"); v != "" {
		c.TwilioAccountSID = v
	}
	if v := os.Getenv("TWILIO_AUTH_TOKEN"); v != "" {
		c.TwilioAuthToken = v
	}
	if v := os.Getenv("TWILIO_AUTH_TOKEN_PREV"); v != "" {
		c.TwilioAuthTokenPrev = v
	}
	if v := os.Getenv("TWILIO_FROM_NUMBER"); v != "" {
		c.TwilioFromNumber = v
	}
	if v := os.Getenv("TWILIO_TEST_MODE"); v != "" {
		c.TwilioTestMode = v == "1" || v == "true"
	}
	if v := os.Getenv("TWILIO_TRUSTED_IPS"); v != "" {
		c.TwilioTrustedIPs = splitAndTrim(v)
	}
	if v := os.Getenv("INTERNAL_API_SECRET"); v != "" {
		c.InternalAPISecret = v
	}
	if v := os.Getenv("SMS_RATE_WINDOW_SEC"); v != "" {
		c.RateLimitWindowSeconds = mustParseInt(v)
	}
	if v := os.Getenv("RATE_LIMIT_PER_MINUTE"); v != "" {
		c.RateLimitPerMinute = mustParseInt(v)
	}
	if v := os.Getenv("AWARDS_DIR"); v != "" {
		c.AwardsDir = v
	}
	if v := os.Getenv("AWARD_IMAGES"); v != "" {
		c.AwardImageGenerationOn = v == "1" || v == "true"
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.JWTSecret = v
	}
	if v := os.Getenv("ADMIN_USERNAME"); v != "" {
		c.AdminUsername = v
	}
	if v := os.Getenv("ADMIN_PASSWORD_HASH"); v != "" {
		c.AdminPasswordHash = v
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		c.AllowedOrigins = splitAndTrim(v)
	}
	if v := os.Getenv("GIN_MODE"); v != "" {
		c.GinMode = v
	}
	if v := os.Getenv("GIN_PATH"); v != "" {
		c.GinPath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("LOG_PATH"); v != "" {
		c.LogPath = v
	}
	if v := os.Getenv("LOG_MAX_SIZE_MB"); v != "" {
		c.LogMaxSizeMB = mustParseInt(v)
	}
	if v := os.Getenv("LOG_MAX_BACKUPS"); v != "" {
		c.LogMaxBackups = mustParseInt(v)
	}
	if v := os.Getenv("LOG_MAX_AGE_DAYS"); v != "" {
		c.LogMaxAgeDays = mustParseInt(v)
	}
	if v := os.Getenv("LOG_COMPRESS"); v != "" {
		c.LogCompress = v == "true"
	}
}

func mustParseInt(val string) int {
	i, err := strconv.Atoi(val)
	if err != nil {
		log.Fatalf("invalid integer value %s: %v", val, err)
	}
	return i
}

func splitAndTrim(raw string) []string {
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
