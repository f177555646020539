package config

import (
	"errors"
	"fmt"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"strings"
	"time"
)

const EnvPrefix = "SPAN_TREE"

const DefaultCacheNumCounters = 1e6

type Config struct {
	LogLevel      string              `mapstructure:"log_level"`
	Strict        bool                `mapstructure:"strict"`
	Otlp          OtlpConfig          `mapstructure:"otlp"`
	Http          HttpConfig          `mapstructure:"http"`
	Websocket     WebsocketConfig     `mapstructure:"websocket"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Cache         CacheConfig         `mapstructure:"cache"`
}

type OtlpConfig struct {
	// Empty disables the OTLP gRPC listener.
	ListenAddress string `mapstructure:"listen_address"`
}

type HttpConfig struct {
	ListenAddress string `mapstructure:"listen_address"`
}

type WebsocketConfig struct {
	// Empty disables the websocket feed.
	Url string `mapstructure:"url"`
}

type ElasticsearchConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Addresses      []string      `mapstructure:"addresses"`
	Index          string        `mapstructure:"index"`
	ExportInterval time.Duration `mapstructure:"export_interval"`
}

type CacheConfig struct {
	// NumCounters is the number of keys whose access frequency is tracked, about ten times
	// the number of chains expected to be cached.
	NumCounters int64 `mapstructure:"num_counters"`
	// MaxCost bounds the cached ancestry text in bytes.
	MaxCost int64 `mapstructure:"max_cost"`
}

// flagKeys maps command line flags onto configuration keys.
var flagKeys = map[string]string{
	"log-level":                     "log_level",
	"strict":                        "strict",
	"otlp-listen-address":           "otlp.listen_address",
	"http-listen-address":           "http.listen_address",
	"websocket-url":                 "websocket.url",
	"elasticsearch-enabled":         "elasticsearch.enabled",
	"elasticsearch-addresses":       "elasticsearch.addresses",
	"elasticsearch-index":           "elasticsearch.index",
	"elasticsearch-export-interval": "elasticsearch.export_interval",
	"cache-num-counters":            "cache.num_counters",
	"cache-max-cost":                "cache.max_cost",
}

// NewViper returns a viper instance with every default set, so environment variables such as
// SPAN_TREE_OTLP_LISTEN_ADDRESS are picked up by Load.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("log_level", "info")
	v.SetDefault("strict", false)
	v.SetDefault("otlp.listen_address", ":4317")
	v.SetDefault("http.listen_address", ":8081")
	v.SetDefault("websocket.url", "")
	v.SetDefault("elasticsearch.enabled", false)
	v.SetDefault("elasticsearch.addresses", []string{"http://localhost:9200"})
	v.SetDefault("elasticsearch.index", "span_tree_spans")
	v.SetDefault("elasticsearch.export_interval", 10*time.Second)
	v.SetDefault("cache.num_counters", int64(DefaultCacheNumCounters))
	v.SetDefault("cache.max_cost", int64(1<<24))

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// BindFlags binds every flag of the set that names a configuration key. Flags only override
// the file and environment when set explicitly.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	var err error
	flags.VisitAll(func(flag *pflag.Flag) {
		key, ok := flagKeys[flag.Name]
		if !ok {
			return
		}
		if bindErr := v.BindPFlag(key, flag); bindErr != nil && err == nil {
			err = fmt.Errorf("failed to bind flag %s: %w", flag.Name, bindErr)
		}
	})
	return err
}

// Load reads the optional config file and decodes the merged settings.
func Load(v *viper.Viper, configFile string) (Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if _, err := zap.ParseAtomicLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log_level %q", ErrInvalidConfig, c.LogLevel)
	}
	if c.Cache.NumCounters <= 0 {
		return fmt.Errorf("%w: cache.num_counters must be positive", ErrInvalidConfig)
	}
	if c.Cache.MaxCost <= 0 {
		return fmt.Errorf("%w: cache.max_cost must be positive", ErrInvalidConfig)
	}
	if c.Elasticsearch.Enabled {
		if len(c.Elasticsearch.Addresses) == 0 {
			return fmt.Errorf("%w: elasticsearch.addresses is empty", ErrInvalidConfig)
		}
		if c.Elasticsearch.Index == "" {
			return fmt.Errorf("%w: elasticsearch.index is empty", ErrInvalidConfig)
		}
		if c.Elasticsearch.ExportInterval <= 0 {
			return fmt.Errorf("%w: elasticsearch.export_interval must be positive", ErrInvalidConfig)
		}
	}
	return nil
}

// Logger builds a production zap logger at the configured level.
func (c Config) Logger() (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("%w: log_level %q", ErrInvalidConfig, c.LogLevel)
	}
	zapConfig := zap.NewProductionConfig()
	zapConfig.Level = level
	return zapConfig.Build()
}

var ErrInvalidConfig = errors.New("invalid configuration")
