// File: internal/config/config.go
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort   string
	Environment  string
	LogLevel     string
	DatabasePath string

	// Session cookies and sign-in
	SessionSecret       string
	FirebaseProjectID   string
	SignInRatePerMinute int

	// Public web config for the browser's Firebase sign-in
	FirebaseAPIKey     string
	FirebaseAuthDomain string

	// Completion backend: the proxy wins when both are set
	CompletionProxyURL string
	CompletionProxyKey string
	GatewayAPIKey      string
	GatewayBaseURL     string
	ModeProfilesFile   string

	// Zero means no deadline
	CompletionTimeout     time.Duration
	MessageRatePerMinute  int
	NotificationQueueSize int
}

// Load reads configuration from environment variables or .env file.
func Load() *Config {
	env := os.Getenv("ENV")
	if !isProduction(env) {
		if err := godotenv.Load(); err != nil {
			log.Println("No .env file found; continuing with environment variables")
		}
	}

	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	return cfg
}

// FromEnv builds a Config from the current environment without validating it.
func FromEnv() *Config {
	return &Config{
		ServerPort:            getEnv("SERVER_PORT", "8080"),
		Environment:           getEnv("ENV", "development"),
		LogLevel:              getEnv("LOG_LEVEL", "INFO"),
		DatabasePath:          getEnv("DATABASE_PATH", "altrachat.db"),
		SessionSecret:         getEnv("SESSION_SECRET", ""),
		FirebaseProjectID:     getEnv("FIREBASE_PROJECT_ID", ""),
		SignInRatePerMinute:   getEnvAsInt("SIGNIN_RATE_PER_MINUTE", 10),
		FirebaseAPIKey:        getEnv("FIREBASE_API_KEY", ""),
		FirebaseAuthDomain:    getEnv("FIREBASE_AUTH_DOMAIN", ""),
		CompletionProxyURL:    getEnv("COMPLETION_PROXY_URL", ""),
		CompletionProxyKey:    getEnv("COMPLETION_PROXY_KEY", ""),
		GatewayAPIKey:         getEnv("GATEWAY_API_KEY", ""),
		GatewayBaseURL:        getEnv("GATEWAY_BASE_URL", "https://ai.gateway.lovable.dev/v1"),
		ModeProfilesFile:      getEnv("MODE_PROFILES_FILE", ""),
		CompletionTimeout:     getEnvAsDuration("COMPLETION_TIMEOUT", 0),
		MessageRatePerMinute:  getEnvAsInt("MESSAGE_RATE_PER_MINUTE", 30),
		NotificationQueueSize: getEnvAsInt("NOTIFICATION_QUEUE_SIZE", 20),
	}
}

// Validate checks the required keys. Production additionally needs a strong
// session secret.
func (c *Config) Validate() error {
	missing := []string{}
	if c.SessionSecret == "" {
		missing = append(missing, "SESSION_SECRET")
	}
	if c.FirebaseProjectID == "" {
		missing = append(missing, "FIREBASE_PROJECT_ID")
	}
	if c.CompletionProxyURL == "" && c.GatewayAPIKey == "" {
		missing = append(missing, "COMPLETION_PROXY_URL or GATEWAY_API_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %v", missing)
	}
	if c.IsProduction() && len(c.SessionSecret) < 32 {
		return fmt.Errorf("SESSION_SECRET must be at least 32 characters in production")
	}
	if c.CompletionTimeout < 0 {
		return fmt.Errorf("COMPLETION_TIMEOUT cannot be negative")
	}
	return nil
}

// AuthDomain returns the Firebase auth domain, defaulting to the project's.
func (c *Config) AuthDomain() string {
	if c.FirebaseAuthDomain != "" {
		return c.FirebaseAuthDomain
	}
	return c.FirebaseProjectID + ".firebaseapp.com"
}

func (c *Config) IsProduction() bool {
	return isProduction(c.Environment)
}

func isProduction(env string) bool {
	return strings.ToLower(env) == "production"
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an env var as an integer, with a fallback.
func getEnvAsInt(key string, defaultValue int) int {
	strValue := getEnv(key, "")
	if strValue == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(strValue)
	if err != nil {
		log.Printf("Warning: could not parse env var %s as integer. Using default value.", key)
		return defaultValue
	}
	return intValue
}

// getEnvAsDuration accepts Go durations ("45s") or plain seconds ("45").
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if strValue == "" {
		return defaultValue
	}
	if secs, err := strconv.Atoi(strValue); err == nil {
		return time.Duration(secs) * time.Second
	}
	d, err := time.ParseDuration(strValue)
	if err != nil {
		log.Printf("Warning: could not parse env var %s as duration. Using default value.", key)
		return defaultValue
	}
	return d
}
