package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/sir_venger/audiostore/internal/blobstore"
	"github.com/sir_venger/audiostore/internal/blobstore/s3store"
)

const defaultConfigPath = "./config.yaml"

// Драйверы хранилища блобов.
const (
	DriverFS       = "fs"
	DriverPostgres = "postgres"
	DriverS3       = "s3"
	DriverRemote   = "remote"
	DriverMemory   = "memory"
)

type Config struct {
	ListenAddr string       `yaml:"listen_addr" json:"listen_addr"`
	Log        LogConfig    `yaml:"log" json:"log"`
	MetaDSN    string       `yaml:"meta_dsn" json:"-"`
	Blob       BlobConfig   `yaml:"blob" json:"blob"`
	Cache      CacheConfig  `yaml:"cache" json:"cache"`
	Upload     UploadConfig `yaml:"upload" json:"upload"`
	GC         GCConfig     `yaml:"gc" json:"gc"`
}

type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

type BlobConfig struct {
	Driver      string         `yaml:"driver" json:"driver"`
	FSRoot      string         `yaml:"fs_root" json:"fs_root"`
	ChunkSize   int            `yaml:"chunk_size" json:"chunk_size"`
	PostgresDSN string         `yaml:"postgres_dsn" json:"-"`
	RemoteURL   string         `yaml:"remote_url" json:"remote_url"`
	S3          s3store.Config `yaml:"s3" json:"s3"`
}

type CacheConfig struct {
	RedisAddr     string        `yaml:"redis_addr" json:"redis_addr"`
	RedisDB       int           `yaml:"redis_db" json:"redis_db"`
	RedisPassword string        `yaml:"redis_password" json:"-"`
	TTL           time.Duration `yaml:"ttl" json:"ttl"`
}

type UploadConfig struct {
	MaxFileSizeBytes int64    `yaml:"max_file_size_bytes" json:"max_file_size_bytes"`
	AllowedMimeTypes []string `yaml:"allowed_mime_types" json:"allowed_mime_types"`
	MaxFields        int      `yaml:"max_fields" json:"max_fields"`
	MaxFieldBytes    int64    `yaml:"max_field_bytes" json:"max_field_bytes"`
}

type GCConfig struct {
	TTL      time.Duration `yaml:"ttl" json:"ttl"`
	Interval time.Duration `yaml:"interval" json:"interval"`
}

// DefaultAllowedMimeTypes — аудиоформаты, которые принимаются без настройки.
var DefaultAllowedMimeTypes = []string{
	"audio/mpeg", "audio/mp3", "audio/x-mp3",
	"audio/mp4", "audio/x-m4a", "audio/aac",
	"audio/wav", "audio/x-wav",
	"audio/flac", "audio/ogg", "audio/webm",
}

// Default возвращает конфигурацию со значениями по умолчанию.
func Default() *Config {
	return &Config{
		ListenAddr: ":4000",
		Log:        LogConfig{Level: "info", Format: "json"},
		MetaDSN:    "memory://",
		Blob: BlobConfig{
			Driver:    DriverFS,
			FSRoot:    "./data",
			ChunkSize: blobstore.DefaultChunkSize,
		},
		Cache: CacheConfig{TTL: time.Minute},
		Upload: UploadConfig{
			MaxFileSizeBytes: 200 * 1024 * 1024,
			AllowedMimeTypes: append([]string(nil), DefaultAllowedMimeTypes...),
			MaxFields:        10,
			MaxFieldBytes:    1 << 20,
		},
		GC: GCConfig{TTL: 24 * time.Hour, Interval: 30 * time.Minute},
	}
}

// Load читает .env (если есть), YAML-конфигурацию, применяет ENV-переопределения и проверяет результат.
// Отсутствие файла по умолчанию не ошибка; явно заданный CONFIG_PATH обязан существовать.
func Load() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, fmt.Errorf("load .env: %w", err)
		}
	}

	path, explicit := os.LookupEnv("CONFIG_PATH")
	if !explicit || path == "" {
		path, explicit = defaultConfigPath, false
	}

	c := Default()
	if err := c.readFile(path, explicit); err != nil {
		return nil, err
	}
	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *Config) readFile(path string, required bool) error {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			return nil
		}
		return err
	}

	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// applyEnv — ENV override.
func (c *Config) applyEnv() error {
	var errs []error
	str := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v := os.Getenv(k); v != "" {
				*dst = v
				return
			}
		}
	}
	num := func(dst *int64, key string) {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	integer := func(dst *int, key string) {
		n := int64(*dst)
		num(&n, key)
		*dst = int(n)
	}
	dur := func(dst *time.Duration, key string) {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}
	flag := func(dst *bool, key string) {
		if v := os.Getenv(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}

	str(&c.ListenAddr, "LISTEN_ADDR")
	if v := os.Getenv("PORT"); v != "" && os.Getenv("LISTEN_ADDR") == "" {
		c.ListenAddr = ":" + v
	}
	str(&c.Log.Level, "LOG_LEVEL")
	str(&c.Log.Format, "LOG_FORMAT")
	str(&c.MetaDSN, "META_DSN")

	str(&c.Blob.Driver, "BLOB_DRIVER")
	str(&c.Blob.FSRoot, "DATA_DIR")
	integer(&c.Blob.ChunkSize, "BLOB_CHUNK_SIZE")
	str(&c.Blob.PostgresDSN, "BLOB_DSN")
	str(&c.Blob.RemoteURL, "BLOB_REMOTE_URL")
	str(&c.Blob.S3.Endpoint, "S3_ENDPOINT")
	str(&c.Blob.S3.Region, "S3_REGION")
	str(&c.Blob.S3.Bucket, "S3_BUCKET")
	str(&c.Blob.S3.AccessKey, "S3_ACCESS_KEY")
	str(&c.Blob.S3.SecretKey, "S3_SECRET_KEY")
	flag(&c.Blob.S3.UseSSL, "S3_USE_SSL")
	flag(&c.Blob.S3.PathStyle, "S3_PATH_STYLE")

	str(&c.Cache.RedisAddr, "REDIS_ADDR")
	str(&c.Cache.RedisPassword, "REDIS_PASSWORD")
	integer(&c.Cache.RedisDB, "REDIS_DB")
	dur(&c.Cache.TTL, "CACHE_TTL")

	num(&c.Upload.MaxFileSizeBytes, "MAX_FILE_SIZE_BYTES")
	if v := os.Getenv("ALLOWED_AUDIO_MIMES"); v != "" {
		c.Upload.AllowedMimeTypes = splitComma(v)
	}
	integer(&c.Upload.MaxFields, "UPLOAD_MAX_FIELDS")
	num(&c.Upload.MaxFieldBytes, "UPLOAD_MAX_FIELD_BYTES")

	dur(&c.GC.TTL, "GC_TTL")
	dur(&c.GC.Interval, "GC_INTERVAL")

	return errors.Join(errs...)
}

// Validate проверяет согласованность настроек.
func (c *Config) Validate() error {
	var errs []error

	switch c.Blob.Driver {
	case DriverFS:
		if strings.TrimSpace(c.Blob.FSRoot) == "" {
			errs = append(errs, errors.New("blob.fs_root is empty"))
		}
	case DriverPostgres:
		if c.BlobDSN() == "" || !strings.HasPrefix(c.BlobDSN(), "postgres") {
			errs = append(errs, errors.New("blob driver postgres needs blob.postgres_dsn or a postgres meta_dsn"))
		}
	case DriverS3:
		if c.Blob.S3.Endpoint == "" || c.Blob.S3.Bucket == "" {
			errs = append(errs, errors.New("blob driver s3 needs s3.endpoint and s3.bucket"))
		}
	case DriverRemote:
		if c.Blob.RemoteURL == "" {
			errs = append(errs, errors.New("blob driver remote needs blob.remote_url"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown blob driver %q", c.Blob.Driver))
	}

	if c.Blob.ChunkSize <= 0 {
		errs = append(errs, errors.New("blob.chunk_size must be positive"))
	}
	if c.Upload.MaxFileSizeBytes <= 0 {
		errs = append(errs, errors.New("upload.max_file_size_bytes must be positive"))
	}
	if len(c.Upload.AllowedMimeTypes) == 0 {
		errs = append(errs, errors.New("upload.allowed_mime_types is empty"))
	}
	if c.Upload.MaxFields <= 0 || c.Upload.MaxFieldBytes <= 0 {
		errs = append(errs, errors.New("upload field limits must be positive"))
	}
	if c.Cache.RedisAddr != "" && c.Cache.TTL <= 0 {
		errs = append(errs, errors.New("cache.ttl must be positive"))
	}

	return errors.Join(errs...)
}

// BlobDSN — DSN хранилища блобов postgres; по умолчанию тот же, что у каталога.
func (c *Config) BlobDSN() string {
	if c.Blob.PostgresDSN != "" {
		return c.Blob.PostgresDSN
	}
	return c.MetaDSN
}

func splitComma(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}

	return out
}
