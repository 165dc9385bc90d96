package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all process configuration, read from the environment.
type Config struct {
	MongoURI    string
	MongoDB     string
	APIID       int
	APIHash     string
	Phone       string
	SessionFile string

	OpenRouterURL string
	OpenRouterKey string

	HTTPAddr       string
	AllowedOrigins []string
	Debug          bool
}

// LoadConfig reads configuration from the environment, loading a .env file
// first if one is present.
func LoadConfig() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		MongoURI:      os.Getenv("DATABASE"),
		MongoDB:       os.Getenv("DATABASE_NAME"),
		APIHash:       os.Getenv("API_HASH"),
		Phone:         os.Getenv("PHONE"),
		SessionFile:   os.Getenv("SESSION_FILE"),
		OpenRouterURL: os.Getenv("OPENROUTER_URL"),
		OpenRouterKey: os.Getenv("OPENROUTER_API_KEY"),
		HTTPAddr:      os.Getenv("HTTP_ADDR"),
		Debug:         os.Getenv("DEBUG") != "",
	}

	for _, req := range []struct{ name, value string }{
		{"DATABASE", cfg.MongoURI},
		{"API_HASH", cfg.APIHash},
		{"PHONE", cfg.Phone},
		{"OPENROUTER_URL", cfg.OpenRouterURL},
		{"OPENROUTER_API_KEY", cfg.OpenRouterKey},
	} {
		if req.value == "" {
			return Config{}, fmt.Errorf("environment variable %s is required", req.name)
		}
	}

	apiID, err := strconv.Atoi(os.Getenv("API_ID"))
	if err != nil {
		return Config{}, fmt.Errorf("environment variable API_ID must be an integer: %w", err)
	}
	cfg.APIID = apiID

	if cfg.MongoDB == "" {
		cfg.MongoDB = "medscan"
	}
	if cfg.SessionFile == "" {
		cfg.SessionFile = "telegram.session"
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":4000"
	}
	cfg.AllowedOrigins = parseOrigins(os.Getenv("ALLOWED_ORIGINS"))

	return cfg, nil
}

// parseOrigins parses a comma-separated list of CORS origins, defaulting to
// the local frontend dev servers.
func parseOrigins(s string) []string {
	var origins []string
	for _, o := range strings.Split(s, ",") {
		if v := strings.TrimSpace(o); v != "" {
			origins = append(origins, v)
		}
	}
	if len(origins) == 0 {
		return []string{"http://localhost:3000", "http://localhost:3001"}
	}
	return origins
}
