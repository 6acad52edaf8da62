package config

import (
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/piwi3910/barcut/internal/model"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Files    FilesConfig
	Cutting  CuttingConfig
	Cache    CacheConfig
	Storage  StorageConfig
	LogLevel string
}

type ServerConfig struct {
	Port           string
	Mode           string
	AllowedOrigins []string
}

// DatabaseConfig selects the Postgres stock store when URL is set.
type DatabaseConfig struct {
	URL string
}

type FilesConfig struct {
	StockFile   string
	CatalogFile string
}

// CuttingConfig overrides the default cut settings, all in mm.
type CuttingConfig struct {
	CutLoss          int
	StandardLength   int
	StandardLengths  []int
	MinRemnantLength int
}

type CacheConfig struct {
	Enabled        bool
	RedisURL       string
	RedisHost      string
	RedisPort      string
	RedisPassword  string
	RedisDB        int
	PlanTTLSeconds int
}

// StorageConfig points at an S3-compatible bucket for exported cut lists.
type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Enabled reports whether uploads are configured.
func (s StorageConfig) Enabled() bool {
	return s.Endpoint != "" && s.Bucket != ""
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()
		instance = read(viper.GetViper())
	})

	return instance
}

func setDefaults(v *viper.Viper) {
	d := model.DefaultSettings()
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_MODE", "debug")
	v.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("STOCK_FILE", "")
	v.SetDefault("CATALOG_FILE", "")
	v.SetDefault("CUT_LOSS_MM", d.CutLoss)
	v.SetDefault("STANDARD_LENGTH_MM", d.StandardLength)
	v.SetDefault("STANDARD_LENGTHS_MM", "6000,12000")
	v.SetDefault("MIN_REMNANT_LENGTH_MM", d.MinRemnantLength)
	v.SetDefault("CACHE_ENABLED", false)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_HOST", "127.0.0.1")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_PLAN_TTL_SECONDS", 300)
	v.SetDefault("STORAGE_ENDPOINT", "")
	v.SetDefault("STORAGE_ACCESS_KEY", "")
	v.SetDefault("STORAGE_SECRET_KEY", "")
	v.SetDefault("STORAGE_BUCKET", "barcut")
	v.SetDefault("STORAGE_USE_SSL", false)
	v.SetDefault("LOG_LEVEL", "info")
}

func read(v *viper.Viper) *Config {
	setDefaults(v)

	// Read from environment variables
	v.AutomaticEnv()

	return &Config{
		Server: ServerConfig{
			Port:           v.GetString("SERVER_PORT"),
			Mode:           v.GetString("SERVER_MODE"),
			AllowedOrigins: v.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
		},
		Database: DatabaseConfig{
			URL: v.GetString("DATABASE_URL"),
		},
		Files: FilesConfig{
			StockFile:   v.GetString("STOCK_FILE"),
			CatalogFile: v.GetString("CATALOG_FILE"),
		},
		Cutting: CuttingConfig{
			CutLoss:          v.GetInt("CUT_LOSS_MM"),
			StandardLength:   v.GetInt("STANDARD_LENGTH_MM"),
			StandardLengths:  parseLengths(v.GetString("STANDARD_LENGTHS_MM")),
			MinRemnantLength: v.GetInt("MIN_REMNANT_LENGTH_MM"),
		},
		Cache: CacheConfig{
			Enabled:        v.GetBool("CACHE_ENABLED"),
			RedisURL:       v.GetString("REDIS_URL"),
			RedisHost:      v.GetString("REDIS_HOST"),
			RedisPort:      v.GetString("REDIS_PORT"),
			RedisPassword:  v.GetString("REDIS_PASSWORD"),
			RedisDB:        v.GetInt("REDIS_DB"),
			PlanTTLSeconds: v.GetInt("CACHE_PLAN_TTL_SECONDS"),
		},
		Storage: StorageConfig{
			Endpoint:  v.GetString("STORAGE_ENDPOINT"),
			AccessKey: v.GetString("STORAGE_ACCESS_KEY"),
			SecretKey: v.GetString("STORAGE_SECRET_KEY"),
			Bucket:    v.GetString("STORAGE_BUCKET"),
			UseSSL:    v.GetBool("STORAGE_USE_SSL"),
		},
		LogLevel: v.GetString("LOG_LEVEL"),
	}
}

// Settings returns the cut settings, falling back to the defaults for
// anything not positive.
func (c CuttingConfig) Settings() model.CutSettings {
	s := model.DefaultSettings()
	if c.CutLoss >= 0 {
		s.CutLoss = c.CutLoss
	}
	if c.StandardLength > 0 {
		s.StandardLength = c.StandardLength
	}
	if len(c.StandardLengths) > 0 {
		s.StandardLengths = c.StandardLengths
	}
	if c.MinRemnantLength > 0 {
		s.MinRemnantLength = c.MinRemnantLength
	}
	return s
}

// parseLengths reads a comma separated list of mm values, skipping junk.
func parseLengths(s string) []int {
	var out []int
	for _, f := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(f))
		if err == nil && n > 0 {
			out = append(out, n)
		}
	}
	return out
}
