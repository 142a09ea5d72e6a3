package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Env       string          `yaml:"env" env:"ENV" env-default:"local"`
	HTTP      HTTPConfig      `yaml:"http"`
	GRPC      GRPCConfig      `yaml:"grpc"`
	Admin     AdminConfig     `yaml:"admin"`
	Session   SessionConfig   `yaml:"session"`
	Storage   StorageConfig   `yaml:"storage"`
	Images    ImagesConfig    `yaml:"images"`
	AWS       AWSConfig       `yaml:"aws"`
	Keepalive KeepaliveConfig `yaml:"keepalive"`
}

type HTTPConfig struct {
	Port           int           `yaml:"port" env:"PORT" env-default:"3000"`
	ReadTimeout    time.Duration `yaml:"read_timeout" env-default:"10s"`
	WriteTimeout   time.Duration `yaml:"write_timeout" env-default:"30s"`
	IdleTimeout    time.Duration `yaml:"idle_timeout" env-default:"60s"`
	StorageTimeout time.Duration `yaml:"storage_timeout" env:"STORAGE_TIMEOUT" env-default:"5s"`
	// MaxUpload caps the request body of admin mutations, in bytes.
	MaxUpload int64 `yaml:"max_upload" env-default:"33554432"`
}

type GRPCConfig struct {
	Enabled bool `yaml:"enabled" env:"GRPC_ENABLED" env-default:"false"`
	Port    int  `yaml:"port" env:"GRPC_PORT" env-default:"44045"`
}

type AdminConfig struct {
	Username string `yaml:"username" env:"ADMIN_USER" env-default:"admin"`
	Password string `yaml:"password" env:"ADMIN_PASS" env-default:"password123"`
}

type SessionConfig struct {
	Secret string        `yaml:"secret" env:"SESSION_SECRET" env-default:"change-me"`
	TTL    time.Duration `yaml:"ttl" env:"SESSION_TTL" env-default:"24h"`
	Cookie string        `yaml:"cookie" env-default:"sid"`
	Secure bool          `yaml:"secure" env:"SESSION_SECURE" env-default:"false"`
}

// StorageConfig selects the item store. Driver is one of
// memory, jsonfile, sqlite, postgres, mongo, bucket.
type StorageConfig struct {
	Driver string       `yaml:"driver" env:"STORAGE_DRIVER" env-default:"jsonfile"`
	Path   string       `yaml:"path" env:"STORAGE_PATH" env-default:"public/items.json"`
	DSN    string       `yaml:"dsn" env:"DATABASE_URL"`
	Mongo  MongoConfig  `yaml:"mongo"`
	Bucket BucketConfig `yaml:"bucket"`
}

type MongoConfig struct {
	URI      string `yaml:"uri" env:"MONGO_URI"`
	Database string `yaml:"database" env:"MONGO_DATABASE" env-default:"menu"`
}

type BucketConfig struct {
	Name string `yaml:"name" env:"ITEMS_BUCKET"`
	Key  string `yaml:"key" env-default:"items.json"`
}

// ImagesConfig selects the image sink. Driver is local or s3.
type ImagesConfig struct {
	Driver    string `yaml:"driver" env:"IMAGES_DRIVER" env-default:"local"`
	Dir       string `yaml:"dir" env:"IMAGES_DIR" env-default:"public/images"`
	URLPrefix string `yaml:"url_prefix" env-default:"/images"`
	Bucket    string `yaml:"bucket" env:"UPLOAD_BUCKET"`
	Prefix    string `yaml:"prefix" env-default:"items"`
	PublicURL string `yaml:"public_url" env:"UPLOAD_PUBLIC_URL"`
}

type AWSConfig struct {
	Region   string `yaml:"region" env:"AWS_REGION" env-default:"us-east-1"`
	Endpoint string `yaml:"endpoint" env:"AWS_ENDPOINT_URL"`
}

type KeepaliveConfig struct {
	URL      string        `yaml:"url" env:"KEEPALIVE_URL"`
	Interval time.Duration `yaml:"interval" env:"KEEPALIVE_INTERVAL" env-default:"10m"`
}

// LoadConfig reads the config file given by --config or CONFIG_PATH, falling
// back to the environment alone when neither is set. It panics on failure.
func LoadConfig() *Config {
	cfg, err := Load(fetchConfigPath())
	if err != nil {
		panic(err)
	}

	return cfg
}

// Load reads configuration from path (optional) and the environment. A .env
// file in the working directory is applied first when present.
func Load(path string) (*Config, error) {
	const op = "config.Load"

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var cfg Config

	if path == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return &cfg, nil
	}

	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%s: config file: %w", op, err)
	}

	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &cfg, nil
}

func fetchConfigPath() string {
	var res string

	flag.StringVar(&res, "config", "", "path to config file")
	flag.Parse()

	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}

	return res
}
