/*
Copyright 2025 The llm-d Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by the planner.
const EnvPrefix = "MODEL_API_PLANNER"

const (
	DefaultRegion          = "us-east-1"
	DefaultParallelism     = 4
	DefaultLookupTimeout   = 10 * time.Second
	DefaultOutputFormat    = "json"
	DefaultDestination     = "-"
	SequentialResolution   = "sequential"
	ConcurrentResolution   = "concurrent"
	defaultResolutionValue = SequentialResolution
)

var (
	regionPattern  = regexp.MustCompile(`^[a-z]{2}(-gov)?-[a-z]+-[0-9]+$`)
	accountPattern = regexp.MustCompile(`^[0-9]{12}$`)
)

// ResolutionConfig controls how model sources are resolved.
type ResolutionConfig struct {
	// Strategy is "sequential" or "concurrent".
	Strategy string `mapstructure:"strategy"`
	// Parallelism bounds in-flight lookups for the concurrent strategy.
	Parallelism int `mapstructure:"parallelism"`
	// LookupTimeout bounds a single catalog lookup.
	LookupTimeout time.Duration `mapstructure:"lookupTimeout"`
}

// ObjectStoreConfig addresses an S3-compatible store plans are published to.
type ObjectStoreConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"accessKey"`
	SecretKey string `mapstructure:"secretKey"`
	Secure    bool   `mapstructure:"secure"`
}

// PlannerConfig is the application configuration of the planner CLI.
type PlannerConfig struct {
	Region    string `mapstructure:"region"`
	AccountID string `mapstructure:"accountID"`

	// Catalog is the path of a YAML model catalog.
	Catalog string `mapstructure:"catalog"`
	// CatalogDB is the path of a SQLite model catalog. Takes precedence over Catalog.
	CatalogDB string `mapstructure:"catalogDB"`

	Resolution ResolutionConfig `mapstructure:"resolution"`

	// Output is the plan encoding, "json" or "yaml".
	Output string `mapstructure:"output"`
	// Destination is a file path, "-" for stdout, or an s3://bucket/key URL.
	Destination string `mapstructure:"destination"`
	// MetricsFile receives compilation metrics in the text exposition format.
	MetricsFile string `mapstructure:"metricsFile"`

	ObjectStore ObjectStoreConfig `mapstructure:"objectStore"`

	Defaults PlanDefaults `mapstructure:"defaults"`
	// DefaultsFile is a YAML defaults document parsed over Defaults.
	DefaultsFile string `mapstructure:"defaultsFile"`
}

// Validate checks the configuration for invalid and conflicting values.
func (c *PlannerConfig) Validate() error {
	if !regionPattern.MatchString(c.Region) {
		return fmt.Errorf("invalid region %q", c.Region)
	}
	if c.AccountID != "" && !accountPattern.MatchString(c.AccountID) {
		return fmt.Errorf("accountID must be 12 digits, got %q", c.AccountID)
	}
	switch c.Resolution.Strategy {
	case SequentialResolution, ConcurrentResolution:
	default:
		return fmt.Errorf("unknown resolution strategy %q (want %q or %q)",
			c.Resolution.Strategy, SequentialResolution, ConcurrentResolution)
	}
	if c.Resolution.Parallelism < 1 {
		return fmt.Errorf("resolution.parallelism must be >= 1, got %d", c.Resolution.Parallelism)
	}
	if c.Resolution.LookupTimeout <= 0 {
		return fmt.Errorf("resolution.lookupTimeout must be > 0, got %s", c.Resolution.LookupTimeout)
	}
	switch c.Output {
	case "json", "yaml":
	default:
		return fmt.Errorf("unknown output format %q (want json or yaml)", c.Output)
	}
	if strings.HasPrefix(c.Destination, "s3://") && c.ObjectStore.Endpoint == "" {
		return fmt.Errorf("destination %q requires objectStore.endpoint", c.Destination)
	}
	if err := c.Defaults.Validate(); err != nil {
		return fmt.Errorf("invalid defaults: %w", err)
	}
	return nil
}

// HasCatalog reports whether a model catalog source is configured.
func (c *PlannerConfig) HasCatalog() bool {
	return c.Catalog != "" || c.CatalogDB != ""
}

// BindFlags registers the planner flags on fs.
func BindFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "path of a planner configuration file (YAML)")
	fs.String("region", DefaultRegion, "region endpoints are planned in")
	fs.String("account-id", "", "account owning the endpoints (wildcard when empty)")
	fs.String("catalog", "", "path of a YAML model catalog")
	fs.String("catalog-db", "", "path of a SQLite model catalog")
	fs.String("resolution-strategy", defaultResolutionValue, "model resolution strategy: sequential or concurrent")
	fs.Int("parallelism", DefaultParallelism, "maximum concurrent lookups for the concurrent strategy")
	fs.Duration("lookup-timeout", DefaultLookupTimeout, "timeout of a single catalog lookup")
	fs.StringP("output", "o", DefaultOutputFormat, "plan output format: json or yaml")
	fs.String("destination", DefaultDestination, "plan destination: file path, - for stdout, or s3://bucket/key")
	fs.String("metrics-file", "", "write compilation metrics to this file")
	fs.String("defaults", "", "path of a YAML plan defaults document")
}

// flagKeys maps flag names to configuration keys.
var flagKeys = map[string]string{
	"region":              "region",
	"account-id":          "accountID",
	"catalog":             "catalog",
	"catalog-db":          "catalogDB",
	"resolution-strategy": "resolution.strategy",
	"parallelism":         "resolution.parallelism",
	"lookup-timeout":      "resolution.lookupTimeout",
	"output":              "output",
	"destination":         "destination",
	"metrics-file":        "metricsFile",
	"defaults":            "defaultsFile",
}

func setDefaults(v *viper.Viper) {
	builtin := BuiltinDefaults()
	v.SetDefault("region", DefaultRegion)
	v.SetDefault("accountID", "")
	v.SetDefault("catalog", "")
	v.SetDefault("catalogDB", "")
	v.SetDefault("resolution.strategy", defaultResolutionValue)
	v.SetDefault("resolution.parallelism", DefaultParallelism)
	v.SetDefault("resolution.lookupTimeout", DefaultLookupTimeout)
	v.SetDefault("output", DefaultOutputFormat)
	v.SetDefault("destination", DefaultDestination)
	v.SetDefault("metricsFile", "")
	v.SetDefault("defaultsFile", "")
	v.SetDefault("objectStore.endpoint", "")
	v.SetDefault("objectStore.accessKey", "")
	v.SetDefault("objectStore.secretKey", "")
	v.SetDefault("objectStore.secure", true)
	v.SetDefault("defaults.autoscaling.maxCapacity", builtin.Autoscaling.MaxCapacity)
	v.SetDefault("defaults.autoscaling.minCapacity", builtin.Autoscaling.MinCapacity)
	v.SetDefault("defaults.autoscaling.invocationsPerInstance", builtin.Autoscaling.InvocationsPerInstance)
	v.SetDefault("defaults.function.runtime", builtin.Function.Runtime)
	v.SetDefault("defaults.function.handler", builtin.Function.Handler)
	v.SetDefault("defaults.function.timeoutSeconds", builtin.Function.TimeoutSeconds)
	v.SetDefault("defaults.function.memoryMB", builtin.Function.MemoryMB)
}

// Load reads the planner configuration. Precedence, highest first: flags set
// on fs, MODEL_API_PLANNER_* environment variables, the configuration file,
// built-in defaults. fs may be nil.
func Load(fs *pflag.FlagSet) (*PlannerConfig, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	configFile := os.Getenv(EnvPrefix + "_CONFIG")
	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %q: %w", name, err)
				}
			}
		}
		if f := fs.Lookup("config"); f != nil && f.Value.String() != "" {
			configFile = f.Value.String()
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	var cfg PlannerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode planner config: %w", err)
	}
	if cfg.DefaultsFile != "" {
		d, err := LoadPlanDefaults(cfg.DefaultsFile, cfg.Defaults)
		if err != nil {
			return nil, err
		}
		cfg.Defaults = d
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
