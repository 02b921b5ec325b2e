package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Auth modes
const (
	AuthModeFirebase = "firebase"
	AuthModeLocal    = "local"
)

type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	ServerPort string
	AppEnv     string

	RedisURL string

	AuthMode                string
	FirebaseCredentialsFile string
	FirebaseProjectID       string
	SessionSecret           string
	SessionMaxAge           time.Duration

	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicURL       string
	MediaFolder       string

	PublicBaseURL   string
	FeedPageSize    int
	LoadMoreTimeout time.Duration
	FeedCacheTTL    time.Duration
	WorkerCount     int

	SentryDSN string
}

// IsProduction reports whether cookies should be marked Secure.
func (c *Config) IsProduction() bool {
	return c.AppEnv != "development" && c.AppEnv != "test"
}

func LoadConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found or error loading it, relying on environment variables")
	}

	sessionMaxAge, err := strconv.Atoi(os.Getenv("SESSION_MAX_AGE"))
	if err != nil || sessionMaxAge <= 0 {
		sessionMaxAge = 60 * 60 * 24 * 5
	}

	feedPageSize, err := strconv.Atoi(os.Getenv("FEED_PAGE_SIZE"))
	if err != nil || feedPageSize <= 0 {
		feedPageSize = 10
	}

	workerCount, err := strconv.Atoi(os.Getenv("WORKER_COUNT"))
	if err != nil || workerCount <= 0 {
		workerCount = 2
	}

	loadMoreTimeout, err := time.ParseDuration(os.Getenv("LOAD_MORE_TIMEOUT"))
	if err != nil || loadMoreTimeout <= 0 {
		loadMoreTimeout = 10 * time.Second
	}

	feedCacheTTL, err := time.ParseDuration(os.Getenv("FEED_CACHE_TTL"))
	if err != nil || feedCacheTTL <= 0 {
		feedCacheTTL = time.Minute
	}

	serverPort := os.Getenv("SERVER_PORT")
	if serverPort == "" {
		serverPort = "8080"
	}

	appEnv := os.Getenv("APP_ENV")
	if appEnv == "" {
		appEnv = "development"
	}

	dbSSLMode := os.Getenv("DB_SSLMODE")
	if dbSSLMode == "" {
		dbSSLMode = "require"
	}

	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://localhost:6379"
	}

	authMode := os.Getenv("AUTH_MODE")
	if authMode == "" {
		authMode = AuthModeFirebase
	}

	mediaFolder := os.Getenv("MEDIA_FOLDER")
	if mediaFolder == "" {
		mediaFolder = "blog_posts"
	}

	publicBaseURL := os.Getenv("PUBLIC_BASE_URL")
	if publicBaseURL == "" {
		publicBaseURL = "https://blog-cristao.vercel.app"
	}

	return &Config{
		DBHost:     os.Getenv("DB_HOST"),
		DBPort:     os.Getenv("DB_PORT"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
		DBSSLMode:  dbSSLMode,

		ServerPort: serverPort,
		AppEnv:     appEnv,

		RedisURL: redisURL,

		AuthMode:                authMode,
		FirebaseCredentialsFile: os.Getenv("FIREBASE_CREDENTIALS_FILE"),
		FirebaseProjectID:       os.Getenv("FIREBASE_PROJECT_ID"),
		SessionSecret:           os.Getenv("SESSION_SECRET"),
		SessionMaxAge:           time.Duration(sessionMaxAge) * time.Second,

		R2AccountID:       os.Getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
		R2BucketName:      os.Getenv("R2_BUCKET_NAME"),
		R2PublicURL:       os.Getenv("R2_PUBLIC_URL"),
		MediaFolder:       mediaFolder,

		PublicBaseURL:   publicBaseURL,
		FeedPageSize:    feedPageSize,
		LoadMoreTimeout: loadMoreTimeout,
		FeedCacheTTL:    feedCacheTTL,
		WorkerCount:     workerCount,

		SentryDSN: os.Getenv("SENTRY_DSN"),
	}, nil
}
