package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type (
	Container struct {
		App     *App
		Log     *Log
		Token   *Token
		OIDC    *OIDC
		DB      *DB
		HTTP    *HTTP
		Redis   *Redis
		Storage *Storage
		NATS    *NATS
	}

	App struct {
		Name string
		Env  string
	}

	Log struct {
		Level  string
		Format string
	}

	Token struct {
		Secret string
	}

	// OIDC switches token verification to an external issuer when IssuerURL is set.
	OIDC struct {
		IssuerURL string
		ClientID  string
		RoleClaim string
	}

	DB struct {
		Host          string
		Port          string
		User          string
		Password      string
		Name          string
		SSLMode       string
		MigrationsDir string
	}

	HTTP struct {
		Env             string
		Port            string
		AllowedOrigins  string
		URL             string
		ShutdownTimeout time.Duration
	}

	Redis struct {
		Address  string
		Password string
		DB       int
	}

	// Storage falls back to a stub when Bucket is empty.
	Storage struct {
		Endpoint      string
		Region        string
		Bucket        string
		AccessKey     string
		SecretKey     string
		UsePathStyle  bool
		UseSSL        bool
		PublicBaseURL string
	}

	// NATS falls back to logging events when URL is empty.
	NATS struct {
		URL           string
		SubjectPrefix string
		QueueSize     int
	}
)

func New() (*Container, error) {
	if os.Getenv("APP_ENV") != "production" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	app := &App{
		Name: getEnv("APP_NAME", "webike-registry"),
		Env:  getEnv("APP_ENV", "development"),
	}

	log := &Log{
		Level:  os.Getenv("LOG_LEVEL"),
		Format: os.Getenv("LOG_FORMAT"),
	}

	token := &Token{
		Secret: os.Getenv("TOKEN_SECRET"),
	}

	oidc := &OIDC{
		IssuerURL: os.Getenv("OIDC_ISSUER_URL"),
		ClientID:  os.Getenv("OIDC_CLIENT_ID"),
		RoleClaim: getEnv("OIDC_ROLE_CLAIM", "role"),
	}

	db := &DB{
		Host:          getEnv("DB_HOST", "localhost"),
		Port:          getEnv("DB_PORT", "5432"),
		User:          os.Getenv("DB_USER"),
		Password:      os.Getenv("DB_PASSWORD"),
		Name:          os.Getenv("DB_NAME"),
		SSLMode:       getEnv("DB_SSLMODE", "disable"),
		MigrationsDir: getEnv("DB_MIGRATIONS_DIR", "./internal/adapter/postgres/migrations"),
	}

	http := &HTTP{
		Port:            getEnv("HTTP_PORT", "8080"),
		AllowedOrigins:  os.Getenv("ALLOWED_ORIGINS"),
		URL:             os.Getenv("HTTP_URL"),
		Env:             app.Env,
		ShutdownTimeout: getDuration("HTTP_SHUTDOWN_TIMEOUT", 30*time.Second),
	}

	redis := &Redis{
		Address:  getEnv("REDIS_ADDRESS", "localhost:6379"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       getInt("REDIS_DB", 0),
	}

	storage := &Storage{
		Endpoint:      os.Getenv("STORAGE_ENDPOINT"),
		Region:        os.Getenv("STORAGE_REGION"),
		Bucket:        os.Getenv("STORAGE_BUCKET"),
		AccessKey:     os.Getenv("STORAGE_ACCESS_KEY"),
		SecretKey:     os.Getenv("STORAGE_SECRET_KEY"),
		UsePathStyle:  getBool("STORAGE_USE_PATH_STYLE", true),
		UseSSL:        getBool("STORAGE_USE_SSL", false),
		PublicBaseURL: os.Getenv("STORAGE_PUBLIC_BASE_URL"),
	}

	nats := &NATS{
		URL:           os.Getenv("NATS_URL"),
		SubjectPrefix: getEnv("NATS_SUBJECT_PREFIX", "webike"),
		QueueSize:     getInt("EVENT_QUEUE_SIZE", 100),
	}

	return &Container{
		App:     app,
		Log:     log,
		Token:   token,
		OIDC:    oidc,
		DB:      db,
		HTTP:    http,
		Redis:   redis,
		Storage: storage,
		NATS:    nats,
	}, nil
}

// Origins splits the comma separated allow-list.
func (h *HTTP) Origins() []string {
	var origins []string
	for _, o := range strings.Split(h.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

func (h *HTTP) Addr() string {
	return h.URL + ":" + h.Port
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}
