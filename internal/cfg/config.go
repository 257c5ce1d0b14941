package cfg

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPPort         string
	MongoURI         string
	MongoDatabase    string
	MongoCollection  string
	MongoBucket      string
	UsersCollection  string
	StorageBackend   string
	MinioEndpoint    string
	MinioAccessKey   string
	MinioSecretKey   string
	MinioUseSSL      bool
	MinioBucket      string
	MaxFileSizeBytes int64
	MaxBatchFiles    int
	JWTSecret        string
	RedisAddr        string
	RedisPassword    string
	CORSOrigins      []string
	LogDev           bool
}

func LoadConfig() Config {
	if err := godotenv.Load(); err != nil {
		log.Println(".env not found, using environment variables")
	}

	cfg := Config{
		HTTPPort:        os.Getenv("HTTP_PORT"),
		MongoURI:        os.Getenv("MONGODB_URI"),
		MongoDatabase:   os.Getenv("MONGODB_DATABASE"),
		MongoCollection: os.Getenv("MONGODB_COLLECTION"),
		MongoBucket:     os.Getenv("MONGODB_BUCKET"),
		UsersCollection: os.Getenv("USERS_COLLECTION"),
		StorageBackend:  os.Getenv("STORAGE_BACKEND"),
		MinioEndpoint:   os.Getenv("MINIO_ENDPOINT"),
		MinioAccessKey:  os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey:  os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:     os.Getenv("MINIO_BUCKET"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
	}

	if cfg.MongoCollection == "" {
		cfg.MongoCollection = "media"
	}
	if cfg.MongoBucket == "" {
		cfg.MongoBucket = "media"
	}
	if cfg.UsersCollection == "" {
		cfg.UsersCollection = "usuarios"
	}
	if cfg.StorageBackend == "" {
		cfg.StorageBackend = "gridfs"
	}

	if os.Getenv("MINIO_USE_SSL") == "true" || os.Getenv("MINIO_USE_SSL") == "1" {
		cfg.MinioUseSSL = true
	}
	if os.Getenv("LOG_DEV") == "true" || os.Getenv("LOG_DEV") == "1" {
		cfg.LogDev = true
	}

	// MAX_FILE_SIZE optional, default 16MB (practical single-object ceiling for GridFS)
	if maxStr := os.Getenv("MAX_FILE_SIZE"); maxStr != "" {
		if v, err := strconv.ParseInt(maxStr, 10, 64); err == nil {
			cfg.MaxFileSizeBytes = v
		}
	}
	if cfg.MaxFileSizeBytes == 0 {
		cfg.MaxFileSizeBytes = 16 * 1024 * 1024
	}

	// MAX_BATCH_FILES optional, default 10
	if batchStr := os.Getenv("MAX_BATCH_FILES"); batchStr != "" {
		if v, err := strconv.Atoi(batchStr); err == nil && v > 0 {
			cfg.MaxBatchFiles = v
		}
	}
	if cfg.MaxBatchFiles == 0 {
		cfg.MaxBatchFiles = 10
	}

	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		for _, origin := range strings.Split(origins, ",") {
			if trimmed := strings.TrimSpace(origin); trimmed != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, trimmed)
			}
		}
	}

	return cfg
}
