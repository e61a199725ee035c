package app

import (
	"github.com/tracebind/passport-backend/internal/platform/envutil"
)

type Config struct {
	Port        string
	LogMode     string
	Environment string
	Version     string

	// AppBaseURL is the public origin of the frontend; it anchors
	// invitation links and the URLs encoded into passport QR labels.
	AppBaseURL string
}

func LoadConfig() Config {
	return Config{
		Port:        envutil.String("PORT", "8080"),
		LogMode:     envutil.String("LOG_MODE", "development"),
		Environment: envutil.String("APP_ENV", "development"),
		Version:     envutil.String("APP_VERSION", "dev"),
		AppBaseURL:  envutil.String("APP_BASE_URL", "http://localhost:3000"),
	}
}
