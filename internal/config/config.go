package config

import (
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBDSN         string
	ServerPort    string
	SessionSecret string

	StaticDir    string
	UploadDir    string
	TemplatesDir string

	AdminUsername string
	AdminPassword string
}

func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		DBDSN:         os.Getenv("DB_DSN"),
		ServerPort:    os.Getenv("SERVER_PORT"),
		SessionSecret: os.Getenv("SESSION_SECRET"),
		StaticDir:     os.Getenv("STATIC_DIR"),
		UploadDir:     os.Getenv("UPLOAD_DIR"),
		TemplatesDir:  os.Getenv("TEMPLATES_DIR"),
		AdminUsername: os.Getenv("ADMIN_USERNAME"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
	}

	if cfg.DBDSN == "" {
		cfg.DBDSN = "app.sqlite"
	}
	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}
	if cfg.SessionSecret == "" {
		log.Fatal("SESSION_SECRET is not set")
	}
	if cfg.StaticDir == "" {
		cfg.StaticDir = "./web/static"
	}
	if cfg.UploadDir == "" {
		cfg.UploadDir = cfg.StaticDir + "/uploads"
	}
	if cfg.TemplatesDir == "" {
		cfg.TemplatesDir = "./web/templates"
	}

	return cfg
}

// Postgres reports whether the DSN points at a postgres server rather
// than a SQLite file path.
func (c *Config) Postgres() bool {
	return strings.HasPrefix(c.DBDSN, "postgres://") ||
		strings.HasPrefix(c.DBDSN, "postgresql://") ||
		strings.Contains(c.DBDSN, "host=")
}
