// backend-go/internal/config/config.go
package config

import (
	"log"
	"os"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/andresuchdata/stockopt/backend-go/internal/optimizer"
)

type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	App          AppConfig
	Cache        CacheConfig
	Storage      StorageConfig
	Optimization OptimizationConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Enabled         bool
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxConcurrentTx int64
}

type AppConfig struct {
	InputDir  string
	OutputDir string
	LogLevel  string
	LogFormat string
}

type CacheConfig struct {
	Enabled            bool
	RedisURL           string
	RedisHost          string
	RedisPort          string
	RedisPassword      string
	RedisDB            int
	ScenarioTTLSeconds int
}

type StorageConfig struct {
	Enabled      bool
	Endpoint     string
	AccessKey    string
	SecretKey    string
	Bucket       string
	Region       string
	UseSSL       bool
	CreateBucket bool
	OutputPrefix string
}

// OptimizationConfig mirrors optimizer.Params plus the solver backend name.
type OptimizationConfig struct {
	Solver                  string
	CBCPath                 string
	TimeLimitSeconds        int
	HorizonDays             int
	ServiceZ                float64
	StdFallbackRatio        float64
	DefaultLeadTimeDays     float64
	DefaultDelayProbability float64
	InventorySeed           int64
	InventoryMinFraction    float64
	InventoryMaxFraction    float64
	RequireInventory        bool
	BaseMfgCost             float64
	DefaultShippingCost     float64
	HoldingCost             float64
	TransportScale          float64
	FallbackTransportCost   float64
	MfgCapacity             float64
	NoiseThreshold          float64
	HighCVThreshold         float64
	HighDelayThreshold      float64
	CapacityRatioThreshold  float64
}

// Params converts the configuration into engine parameters.
func (o OptimizationConfig) Params() optimizer.Params {
	return optimizer.Params{
		HorizonDays:             o.HorizonDays,
		ServiceZ:                o.ServiceZ,
		StdFallbackRatio:        o.StdFallbackRatio,
		DefaultLeadTimeDays:     o.DefaultLeadTimeDays,
		DefaultDelayProbability: o.DefaultDelayProbability,
		InventorySeed:           o.InventorySeed,
		InventoryMinFraction:    o.InventoryMinFraction,
		InventoryMaxFraction:    o.InventoryMaxFraction,
		RequireInventory:        o.RequireInventory,
		BaseMfgCost:             o.BaseMfgCost,
		DefaultShippingCost:     o.DefaultShippingCost,
		HoldingCost:             o.HoldingCost,
		TransportScale:          o.TransportScale,
		FallbackTransportCost:   o.FallbackTransportCost,
		MfgCapacity:             o.MfgCapacity,
		NoiseThreshold:          o.NoiseThreshold,
		Thresholds: optimizer.ReasonThresholds{
			HighCV:        o.HighCVThreshold,
			HighDelayProb: o.HighDelayThreshold,
			CapacityRatio: o.CapacityRatioThreshold,
		},
		TimeLimit: time.Duration(o.TimeLimitSeconds) * time.Second,
	}
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		instance = build()

		ensureDir(instance.App.OutputDir)
	})

	return instance
}

func setDefaults() {
	d := optimizer.DefaultParams()

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_MODE", "debug")
	viper.SetDefault("SERVER_READ_TIMEOUT", 30)
	viper.SetDefault("SERVER_WRITE_TIMEOUT", 330)
	viper.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})

	viper.SetDefault("DB_ENABLED", false)
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "postgres")
	viper.SetDefault("DB_PASSWORD", "postgres")
	viper.SetDefault("DB_NAME", "stockopt")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_MAX_OPEN_CONNS", 10)
	viper.SetDefault("DB_MAX_CONCURRENT_TX", 4)

	viper.SetDefault("APP_INPUT_DIR", "./data/input")
	viper.SetDefault("APP_OUTPUT_DIR", "./data/output")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "console")

	viper.SetDefault("CACHE_ENABLED", false)
	viper.SetDefault("REDIS_URL", "")
	viper.SetDefault("REDIS_HOST", "127.0.0.1")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("CACHE_SCENARIO_TTL_SECONDS", 3600)

	viper.SetDefault("STORAGE_ENABLED", false)
	viper.SetDefault("STORAGE_ENDPOINT", "")
	viper.SetDefault("STORAGE_ACCESS_KEY", "")
	viper.SetDefault("STORAGE_SECRET_KEY", "")
	viper.SetDefault("STORAGE_BUCKET", "stockopt")
	viper.SetDefault("STORAGE_REGION", "us-east-1")
	viper.SetDefault("STORAGE_USE_SSL", true)
	viper.SetDefault("STORAGE_CREATE_BUCKET", false)
	viper.SetDefault("STORAGE_OUTPUT_PREFIX", "scenarios")

	viper.SetDefault("OPT_SOLVER", "cbc")
	viper.SetDefault("OPT_CBC_PATH", "cbc")
	viper.SetDefault("OPT_TIME_LIMIT_SECONDS", int(d.TimeLimit/time.Second))
	viper.SetDefault("OPT_HORIZON_DAYS", d.HorizonDays)
	viper.SetDefault("OPT_SERVICE_Z", d.ServiceZ)
	viper.SetDefault("OPT_STD_FALLBACK_RATIO", d.StdFallbackRatio)
	viper.SetDefault("OPT_DEFAULT_LEAD_TIME_DAYS", d.DefaultLeadTimeDays)
	viper.SetDefault("OPT_DEFAULT_DELAY_PROBABILITY", d.DefaultDelayProbability)
	viper.SetDefault("OPT_INVENTORY_SEED", d.InventorySeed)
	viper.SetDefault("OPT_INVENTORY_MIN_FRACTION", d.InventoryMinFraction)
	viper.SetDefault("OPT_INVENTORY_MAX_FRACTION", d.InventoryMaxFraction)
	viper.SetDefault("OPT_REQUIRE_INVENTORY", d.RequireInventory)
	viper.SetDefault("OPT_BASE_MFG_COST", d.BaseMfgCost)
	viper.SetDefault("OPT_DEFAULT_SHIPPING_COST", d.DefaultShippingCost)
	viper.SetDefault("OPT_HOLDING_COST", d.HoldingCost)
	viper.SetDefault("OPT_TRANSPORT_SCALE", d.TransportScale)
	viper.SetDefault("OPT_FALLBACK_TRANSPORT_COST", d.FallbackTransportCost)
	viper.SetDefault("OPT_MFG_CAPACITY", d.MfgCapacity)
	viper.SetDefault("OPT_NOISE_THRESHOLD", d.NoiseThreshold)
	viper.SetDefault("OPT_HIGH_CV_THRESHOLD", d.Thresholds.HighCV)
	viper.SetDefault("OPT_HIGH_DELAY_THRESHOLD", d.Thresholds.HighDelayProb)
	viper.SetDefault("OPT_CAPACITY_RATIO_THRESHOLD", d.Thresholds.CapacityRatio)
}

// build reads defaults and environment into a Config.
func build() *Config {
	setDefaults()

	// Read from environment variables
	viper.AutomaticEnv()

	return &Config{
		Server: ServerConfig{
			Port:           viper.GetString("SERVER_PORT"),
			Mode:           viper.GetString("SERVER_MODE"),
			ReadTimeout:    viper.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout:   viper.GetInt("SERVER_WRITE_TIMEOUT"),
			AllowedOrigins: viper.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
		},
		Database: DatabaseConfig{
			Enabled:         viper.GetBool("DB_ENABLED"),
			Host:            viper.GetString("DB_HOST"),
			Port:            viper.GetString("DB_PORT"),
			User:            viper.GetString("DB_USER"),
			Password:        viper.GetString("DB_PASSWORD"),
			DBName:          viper.GetString("DB_NAME"),
			SSLMode:         viper.GetString("DB_SSLMODE"),
			MaxOpenConns:    viper.GetInt("DB_MAX_OPEN_CONNS"),
			MaxConcurrentTx: viper.GetInt64("DB_MAX_CONCURRENT_TX"),
		},
		App: AppConfig{
			InputDir:  viper.GetString("APP_INPUT_DIR"),
			OutputDir: viper.GetString("APP_OUTPUT_DIR"),
			LogLevel:  viper.GetString("LOG_LEVEL"),
			LogFormat: viper.GetString("LOG_FORMAT"),
		},
		Cache: CacheConfig{
			Enabled:            viper.GetBool("CACHE_ENABLED"),
			RedisURL:           viper.GetString("REDIS_URL"),
			RedisHost:          viper.GetString("REDIS_HOST"),
			RedisPort:          viper.GetString("REDIS_PORT"),
			RedisPassword:      viper.GetString("REDIS_PASSWORD"),
			RedisDB:            viper.GetInt("REDIS_DB"),
			ScenarioTTLSeconds: viper.GetInt("CACHE_SCENARIO_TTL_SECONDS"),
		},
		Storage: StorageConfig{
			Enabled:      viper.GetBool("STORAGE_ENABLED"),
			Endpoint:     viper.GetString("STORAGE_ENDPOINT"),
			AccessKey:    viper.GetString("STORAGE_ACCESS_KEY"),
			SecretKey:    viper.GetString("STORAGE_SECRET_KEY"),
			Bucket:       viper.GetString("STORAGE_BUCKET"),
			Region:       viper.GetString("STORAGE_REGION"),
			UseSSL:       viper.GetBool("STORAGE_USE_SSL"),
			CreateBucket: viper.GetBool("STORAGE_CREATE_BUCKET"),
			OutputPrefix: viper.GetString("STORAGE_OUTPUT_PREFIX"),
		},
		Optimization: OptimizationConfig{
			Solver:                  viper.GetString("OPT_SOLVER"),
			CBCPath:                 viper.GetString("OPT_CBC_PATH"),
			TimeLimitSeconds:        viper.GetInt("OPT_TIME_LIMIT_SECONDS"),
			HorizonDays:             viper.GetInt("OPT_HORIZON_DAYS"),
			ServiceZ:                viper.GetFloat64("OPT_SERVICE_Z"),
			StdFallbackRatio:        viper.GetFloat64("OPT_STD_FALLBACK_RATIO"),
			DefaultLeadTimeDays:     viper.GetFloat64("OPT_DEFAULT_LEAD_TIME_DAYS"),
			DefaultDelayProbability: viper.GetFloat64("OPT_DEFAULT_DELAY_PROBABILITY"),
			InventorySeed:           viper.GetInt64("OPT_INVENTORY_SEED"),
			InventoryMinFraction:    viper.GetFloat64("OPT_INVENTORY_MIN_FRACTION"),
			InventoryMaxFraction:    viper.GetFloat64("OPT_INVENTORY_MAX_FRACTION"),
			RequireInventory:        viper.GetBool("OPT_REQUIRE_INVENTORY"),
			BaseMfgCost:             viper.GetFloat64("OPT_BASE_MFG_COST"),
			DefaultShippingCost:     viper.GetFloat64("OPT_DEFAULT_SHIPPING_COST"),
			HoldingCost:             viper.GetFloat64("OPT_HOLDING_COST"),
			TransportScale:          viper.GetFloat64("OPT_TRANSPORT_SCALE"),
			FallbackTransportCost:   viper.GetFloat64("OPT_FALLBACK_TRANSPORT_COST"),
			MfgCapacity:             viper.GetFloat64("OPT_MFG_CAPACITY"),
			NoiseThreshold:          viper.GetFloat64("OPT_NOISE_THRESHOLD"),
			HighCVThreshold:         viper.GetFloat64("OPT_HIGH_CV_THRESHOLD"),
			HighDelayThreshold:      viper.GetFloat64("OPT_HIGH_DELAY_THRESHOLD"),
			CapacityRatioThreshold:  viper.GetFloat64("OPT_CAPACITY_RATIO_THRESHOLD"),
		},
	}
}

func ensureDir(dir string) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create directory %s: %v", dir, err)
		}
	}
}
