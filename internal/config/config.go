package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds everything read from the environment at startup. A .env file
// in the working directory is loaded first when present.
type Config struct {
	SiteTitle       string
	SiteAuthor      string
	SiteAuthorURL   string
	SiteURL         string
	Port            string
	DatabaseURL     string
	CheckSMTPTLS    bool
	MaintenanceNote string
	AppVersion      string
}

var requiredVars = []string{
	"SITE_TITLE",
	"SITE_AUTHOR",
	"SITE_AUTHOR_URL",
}

func Load() (*Config, error) {
	// Missing .env is fine; deployments may export vars directly.
	_ = godotenv.Load()

	var missing []string
	for _, v := range requiredVars {
		if os.Getenv(v) == "" {
			missing = append(missing, v)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ","))
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "5000"
	}

	siteURL := strings.TrimRight(os.Getenv("SITE_URL"), "/")
	if siteURL == "" {
		siteURL = "http://localhost:" + port
	}

	return &Config{
		SiteTitle:       os.Getenv("SITE_TITLE"),
		SiteAuthor:      os.Getenv("SITE_AUTHOR"),
		SiteAuthorURL:   os.Getenv("SITE_AUTHOR_URL"),
		SiteURL:         siteURL,
		Port:            port,
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		CheckSMTPTLS:    os.Getenv("CHECK_SMTP_TLS") != "",
		MaintenanceNote: os.Getenv("MAINTENANCE_NOTE"),
		AppVersion:      "1.4.0",
	}, nil
}
