package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port           int
	DataDir        string // JSON catalog files
	UploadDir      string // served under /images/
	DatabaseURL    string // when set, the catalog lives in Postgres
	SpinLogDB      string // sqlite spin index; empty disables it
	SpinArchiveDir string // hourly zstd JSONL archive; empty disables it

	AdminUser         string
	AdminPasswordHash string // bcrypt; empty disables login
	JWTSecret         string
	JWTTTL            time.Duration

	// settled spins are reported here when set
	OperatorEndpoint string
	OperatorSecret   string

	AllowedOrigins []string
	LogLevel       string
	TuningPath     string
	Tuning         Tuning
}

func Load() (*Config, error) {
	port := 8080
	// Prefer PORT (Render, Fly.io, Railway, etc.) then WHEEL_PORT
	if p := os.Getenv("PORT"); p != "" {
		v, err := strconv.Atoi(p)
		if err != nil || v <= 0 {
			return nil, fmt.Errorf("PORT %q is not a valid port", p)
		}
		port = v
	} else if p := os.Getenv("WHEEL_PORT"); p != "" {
		v, err := strconv.Atoi(p)
		if err != nil || v <= 0 {
			return nil, fmt.Errorf("WHEEL_PORT %q is not a valid port", p)
		}
		port = v
	}
	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		dataDir = "data"
	}
	uploadDir := os.Getenv("UPLOAD_DIR")
	if uploadDir == "" {
		uploadDir = "public/images"
	}
	spinLogDB, ok := os.LookupEnv("SPIN_LOG_DB")
	if !ok {
		spinLogDB = dataDir + "/spins.db"
	}
	archiveDir, ok := os.LookupEnv("SPIN_ARCHIVE_DIR")
	if !ok {
		archiveDir = dataDir + "/archive"
	}
	adminUser := os.Getenv("ADMIN_USER")
	if adminUser == "" {
		adminUser = "admin"
	}
	ttl := 12 * time.Hour
	if v := os.Getenv("JWT_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("JWT_TTL %q: want a positive duration like 12h", v)
		}
		ttl = d
	}
	origins := []string{"*"}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		origins = nil
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
	}
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	tuningPath := os.Getenv("WHEEL_TUNING")
	if tuningPath == "" {
		tuningPath = "wheel.yaml"
	}
	tuning, err := LoadTuning(tuningPath)
	if err != nil {
		return nil, err
	}
	return &Config{
		Port:              port,
		DataDir:           dataDir,
		UploadDir:         uploadDir,
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		SpinLogDB:         spinLogDB,
		SpinArchiveDir:    archiveDir,
		AdminUser:         adminUser,
		AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		JWTTTL:            ttl,
		OperatorEndpoint:  os.Getenv("OPERATOR_ENDPOINT"),
		OperatorSecret:    os.Getenv("OPERATOR_SECRET"),
		AllowedOrigins:    origins,
		LogLevel:          logLevel,
		TuningPath:        tuningPath,
		Tuning:            tuning,
	}, nil
}
