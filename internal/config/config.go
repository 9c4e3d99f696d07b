package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "stellasora.cfg.json"

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds SQLite storage backend settings
type SQLiteConfig struct {
	Path         string        `json:"path" mapstructure:"path"`
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
}

// StorageConfig selects and configures the saved-build backend
type StorageConfig struct {
	Type   string       `json:"type" mapstructure:"type"`
	Memory MemoryConfig `json:"memory" mapstructure:"memory"`
	SQLite SQLiteConfig `json:"sqlite" mapstructure:"sqlite"`
}

// DBConfig holds Postgres connection settings
type DBConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled      bool
	ServiceName  string
	BatchTimeout time.Duration
	Endpoint     string
	Insecure     bool
}

// ScoreConfig holds score aggregation settings
type ScoreConfig struct {
	Window          float64
	Mode            string
	DefaultCritRate float64
	SkillCooldown   float64
	UltimateAt      float64
}

// DamageConfig holds damage formula curve constants
type DamageConfig struct {
	LevelConstant float64
	VLower        float64
}

// ExtractConfig holds effect-extraction service settings
type ExtractConfig struct {
	ServerURL   string
	APIKey      string
	CacheTTL    time.Duration
	MinInterval time.Duration
	// CacheFile persists the effect cache between runs. A relative path is
	// resolved under logsDir; empty keeps the cache in memory.
	CacheFile   string
}

// InfluxConfig holds InfluxDB settings
type InfluxConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Protocol string
	Token    string
	Org      string
	Bucket   string
}

// GraylogConfig holds GELF sink settings
type GraylogConfig struct {
	Enabled bool
	Address string
}

// WorkerConfig holds background worker settings
type WorkerConfig struct {
	FlushInterval time.Duration
	Concurrency   int
	MaxPending    int
}

// MonitorConfig holds status-file settings
type MonitorConfig struct {
	// StatusInterval rewrites status.json under logsDir while a command runs;
	// zero disables the loop.
	StatusInterval time.Duration
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	SetDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// SetDefaults registers every default value. Load calls it; callers that run
// without a config file call it directly.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./stellasoralogs")
	viper.SetDefault("defaultScheme", "b")

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.outputDir", "./builds")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.path", "./builds.db")
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "stellasora")

	viper.SetDefault("score.window", 120.0)
	viper.SetDefault("score.mode", "analytic")
	viper.SetDefault("score.defaultCritRate", 0.2)
	viper.SetDefault("score.skillCooldown", 10.0)
	viper.SetDefault("score.ultimateAt", 60.0)

	viper.SetDefault("damage.levelConstant", 500.0)
	viper.SetDefault("damage.vLower", 0.0)

	viper.SetDefault("extract.serverUrl", "http://localhost:5000/api")
	viper.SetDefault("extract.apiKey", "")
	viper.SetDefault("extract.cacheTTL", "24h")
	viper.SetDefault("extract.minInterval", "1s")
	viper.SetDefault("extract.cacheFile", "effect_cache.json")

	viper.SetDefault("monitor.statusInterval", "0s")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "stellasora-metrics")
	viper.SetDefault("influx.bucket", "build_scores")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "stellasora")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetDefault("worker.flushInterval", "5s")
	viper.SetDefault("worker.concurrency", 4)
	viper.SetDefault("worker.maxPending", 10000)
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetStorageConfig returns the storage backend configuration.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		SQLite: SQLiteConfig{
			Path:         viper.GetString("storage.sqlite.path"),
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
		},
	}
}

// GetDBConfig returns the Postgres connection configuration.
func GetDBConfig() DBConfig {
	return DBConfig{
		Host:     viper.GetString("db.host"),
		Port:     viper.GetString("db.port"),
		Username: viper.GetString("db.username"),
		Password: viper.GetString("db.password"),
		Database: viper.GetString("db.database"),
	}
}

// GetOTelConfig returns the OpenTelemetry configuration.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetScoreConfig returns the score aggregation configuration.
func GetScoreConfig() ScoreConfig {
	return ScoreConfig{
		Window:          viper.GetFloat64("score.window"),
		Mode:            viper.GetString("score.mode"),
		DefaultCritRate: viper.GetFloat64("score.defaultCritRate"),
		SkillCooldown:   viper.GetFloat64("score.skillCooldown"),
		UltimateAt:      viper.GetFloat64("score.ultimateAt"),
	}
}

// GetDamageConfig returns the damage formula configuration.
func GetDamageConfig() DamageConfig {
	return DamageConfig{
		LevelConstant: viper.GetFloat64("damage.levelConstant"),
		VLower:        viper.GetFloat64("damage.vLower"),
	}
}

// GetExtractConfig returns the effect-extraction service configuration.
func GetExtractConfig() ExtractConfig {
	return ExtractConfig{
		ServerURL:   viper.GetString("extract.serverUrl"),
		APIKey:      viper.GetString("extract.apiKey"),
		CacheTTL:    viper.GetDuration("extract.cacheTTL"),
		MinInterval: viper.GetDuration("extract.minInterval"),
		CacheFile:   viper.GetString("extract.cacheFile"),
	}
}

// GetMonitorConfig returns the status monitor configuration.
func GetMonitorConfig() MonitorConfig {
	return MonitorConfig{
		StatusInterval: viper.GetDuration("monitor.statusInterval"),
	}
}

// GetInfluxConfig returns the InfluxDB configuration.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:  viper.GetBool("influx.enabled"),
		Host:     viper.GetString("influx.host"),
		Port:     viper.GetString("influx.port"),
		Protocol: viper.GetString("influx.protocol"),
		Token:    viper.GetString("influx.token"),
		Org:      viper.GetString("influx.org"),
		Bucket:   viper.GetString("influx.bucket"),
	}
}

// GetGraylogConfig returns the GELF sink configuration.
func GetGraylogConfig() GraylogConfig {
	return GraylogConfig{
		Enabled: viper.GetBool("graylog.enabled"),
		Address: viper.GetString("graylog.address"),
	}
}

// GetWorkerConfig returns the background worker configuration.
func GetWorkerConfig() WorkerConfig {
	return WorkerConfig{
		FlushInterval: viper.GetDuration("worker.flushInterval"),
		Concurrency:   viper.GetInt("worker.concurrency"),
		MaxPending:    viper.GetInt("worker.maxPending"),
	}
}
