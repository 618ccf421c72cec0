package config

import (
	"errors"
	"io/fs"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const (
	defaultEnv         = "development"
	defaultDBPath      = "./estimator.db"
	defaultPort        = "8080"
	defaultCompanyName = "K Internationals"
	defaultTaxRate     = "18"
)

// Config holds application configuration sourced from environment variables.
type Config struct {
	Env            string
	AdminEmail     string
	AdminPassword  string
	SessionSecret  string
	DBPath         string
	Port           string
	CompanyName    string
	DefaultTaxRate decimal.Decimal
}

// Load reads environment variables, after a best-effort .env file, and returns a populated Config.
func Load() Config {
	return load(".env")
}

func load(dotenvPath string) Config {
	// Existing environment variables win over the file; production should use real env injection.
	if err := godotenv.Load(dotenvPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("warning: could not load %s: %v", dotenvPath, err)
	}

	cfg := Config{
		Env:           getenvDefault("APP_ENV", defaultEnv),
		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		SessionSecret: os.Getenv("SESSION_SECRET"),
		DBPath:        getenvDefault("DB_PATH", defaultDBPath),
		Port:          getenvDefault("PORT", defaultPort),
		CompanyName:   getenvDefault("COMPANY_NAME", defaultCompanyName),
	}

	rate, err := decimal.NewFromString(getenvDefault("DEFAULT_TAX_RATE", defaultTaxRate))
	if err != nil || rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(100)) {
		log.Printf("warning: DEFAULT_TAX_RATE is invalid, using %s", defaultTaxRate)
		rate = decimal.RequireFromString(defaultTaxRate)
	}
	cfg.DefaultTaxRate = rate

	if cfg.AdminEmail == "" {
		log.Print("warning: ADMIN_EMAIL is not set")
	}
	if cfg.AdminPassword == "" {
		log.Print("warning: ADMIN_PASSWORD is not set")
	}
	if cfg.SessionSecret == "" {
		log.Print("warning: SESSION_SECRET is not set")
	}

	return cfg
}

// IsDev reports whether the application runs in local development mode.
func (c Config) IsDev() bool {
	return c.Env == "development" || c.Env == "dev"
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
