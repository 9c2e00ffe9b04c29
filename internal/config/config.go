// Package config loads application configuration from file and environment
// and initializes the global logger. The pipeline itself takes the resulting
// Config by value; nothing here is consulted through module-level state.
package config

import (
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Data     DataConfig     `yaml:"data" mapstructure:"data"`
	Analysis AnalysisConfig `yaml:"analysis" mapstructure:"analysis"`
	Cache    CacheConfig    `yaml:"cache" mapstructure:"cache"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// DataConfig locates the three input files relative to the data directory.
type DataConfig struct {
	Dir          string `yaml:"dir" mapstructure:"dir"`
	FacilityFile string `yaml:"facility_file" mapstructure:"facility_file"`
	BoundaryFile string `yaml:"boundary_file" mapstructure:"boundary_file"`
	CentersFile  string `yaml:"centers_file" mapstructure:"centers_file"`
}

// FacilityPath returns the resolved path of the IPRESS registry file.
func (d DataConfig) FacilityPath() string {
	return filepath.Join(d.Dir, d.FacilityFile)
}

// BoundaryPath returns the resolved path of the district shapefile.
func (d DataConfig) BoundaryPath() string {
	return filepath.Join(d.Dir, d.BoundaryFile)
}

// CentersPath returns the resolved path of the population-center archive.
func (d DataConfig) CentersPath() string {
	return filepath.Join(d.Dir, d.CentersFile)
}

// AnalysisConfig configures the proximity analysis.
type AnalysisConfig struct {
	RadiusMeters float64  `yaml:"radius_meters" mapstructure:"radius_meters"`
	Departments  []string `yaml:"departments" mapstructure:"departments"`
}

// CacheConfig configures the bundle cache.
type CacheConfig struct {
	Path     string `yaml:"path" mapstructure:"path"`
	TTLHours int    `yaml:"ttl_hours" mapstructure:"ttl_hours"`
	Disabled bool   `yaml:"disabled" mapstructure:"disabled"`
}

// ServerConfig configures the read-only HTTP API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ACCESO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("data.dir", "data")
	v.SetDefault("data.facility_file", "IPRESS.csv")
	v.SetDefault("data.boundary_file", filepath.Join("shape_file", "DISTRITOS.shp"))
	v.SetDefault("data.centers_file", "CCPP_0.zip")
	v.SetDefault("analysis.radius_meters", 10000)
	v.SetDefault("analysis.departments", []string{"LIMA", "LORETO"})
	v.SetDefault("cache.path", "acceso.db")
	v.SetDefault("cache.ttl_hours", 1)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
