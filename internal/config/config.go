package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"

	"github.com/deflatekit/pack/flate"
	"github.com/deflatekit/pack/stream"
)

const (
	EnvVarPrefix = "ZPACK"

	DefaultLevel       = flate.DefaultCompression
	DefaultContainer   = "gzip"
	DefaultStrategy    = "default"
	DefaultConcurrency = 4
	DefaultLogLevel    = "info"

	MinLevel       = flate.DefaultCompression
	MaxLevel       = flate.BestCompression
	MinConcurrency = 1
	MaxConcurrency = 64
)

var (
	// VERSION gets set during build
	VERSION = "0.0.0"

	validStrategies = map[string]flate.Strategy{
		"default":  flate.DefaultStrategy,
		"filtered": flate.Filtered,
		"huffman":  flate.HuffmanOnly,
	}

	validLogLevels = map[string]struct{}{
		"debug": {},
		"info":  {},
		"warn":  {},
		"error": {},
	}
)

type Config struct {
	Compress *Compress `toml:"compress"`
	Runtime  *Runtime  `toml:"runtime"`
}

type Compress struct {
	Level      *int   `toml:"level"`
	Strategy   string `toml:"strategy"`
	Container  string `toml:"container"`
	BlockMode  bool   `toml:"block_mode"`
	Dictionary string `toml:"dictionary"` // path to a preset dictionary
}

type Runtime struct {
	Concurrency int    `toml:"concurrency"`
	LogLevel    string `toml:"log_level"`
	Progress    bool   `toml:"progress"`
}

// Load builds the configuration from an optional .env file, an optional
// TOML file and ZPACK_* environment variables, in increasing precedence.
// Empty paths are skipped.
func Load(configFile, envFile string) (*Config, error) {
	if envFile != "" {
		// Attempt to load .env
		_ = godotenv.Load(envFile)
	}

	cfg := &Config{}

	if configFile != "" {
		t, err := readTOML(configFile)
		if err != nil {
			return nil, errors.Wrap(err, "error reading config file")
		}
		cfg = t
	}

	if err := setDefaults(cfg); err != nil {
		return nil, errors.Wrap(err, "error setting defaults")
	}

	if err := applyEnv(cfg); err != nil {
		return nil, errors.Wrap(err, "error reading environment")
	}

	if err := Validate(cfg); err != nil {
		return nil, errors.Wrap(err, "error validating config")
	}

	return cfg, nil
}

func readTOML(file string) (*Config, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, errors.Wrap(err, "error reading file")
	}

	cfg := &Config{}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "error parsing TOML config")
	}

	return cfg, nil
}

func setDefaults(c *Config) error {
	if c == nil {
		return errors.New("config cannot be nil")
	}

	if c.Compress == nil {
		c.Compress = &Compress{}
	}

	if c.Runtime == nil {
		c.Runtime = &Runtime{}
	}

	if c.Compress.Level == nil {
		level := DefaultLevel
		c.Compress.Level = &level
	}

	if c.Compress.Container == "" {
		c.Compress.Container = DefaultContainer
	}

	if c.Compress.Strategy == "" {
		c.Compress.Strategy = DefaultStrategy
	}

	if c.Runtime.Concurrency == 0 {
		c.Runtime.Concurrency = DefaultConcurrency
	}

	if c.Runtime.LogLevel == "" {
		c.Runtime.LogLevel = DefaultLogLevel
	}

	return nil
}

func env(name string) (string, bool) {
	return os.LookupEnv(EnvVarPrefix + "_" + name)
}

func applyEnv(c *Config) error {
	if v, ok := env("LEVEL"); ok {
		level, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, "%s_LEVEL", EnvVarPrefix)
		}
		c.Compress.Level = &level
	}

	if v, ok := env("CONTAINER"); ok {
		c.Compress.Container = v
	}

	if v, ok := env("STRATEGY"); ok {
		c.Compress.Strategy = v
	}

	if v, ok := env("CONCURRENCY"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, "%s_CONCURRENCY", EnvVarPrefix)
		}
		c.Runtime.Concurrency = n
	}

	if v, ok := env("LOG_LEVEL"); ok {
		c.Runtime.LogLevel = v
	}

	return nil
}

func Validate(c *Config) error {
	if c == nil {
		return errors.New("config cannot be nil")
	}

	if err := validateCompress(c.Compress); err != nil {
		return errors.Wrap(err, "compress error(s)")
	}

	if err := validateRuntime(c.Runtime); err != nil {
		return errors.Wrap(err, "runtime error(s)")
	}

	return nil
}

func validateCompress(c *Compress) error {
	if c == nil {
		return errors.New("compress cannot be empty")
	}

	if c.Level == nil {
		return errors.New("compress.level cannot be empty")
	}

	if *c.Level < MinLevel || *c.Level > MaxLevel {
		return errors.Errorf("compress.level must be between %d and %d", MinLevel, MaxLevel)
	}

	if _, err := stream.ParseContainer(c.Container); err != nil {
		return errors.Wrap(err, "compress.container is invalid")
	}

	if _, ok := validStrategies[strings.ToLower(c.Strategy)]; !ok {
		return errors.Errorf("compress.strategy %s is invalid", c.Strategy)
	}

	if c.Dictionary != "" {
		info, err := os.Stat(c.Dictionary)
		if err != nil {
			return errors.Wrapf(err, "compress.dictionary %s", c.Dictionary)
		}

		if info.IsDir() {
			return errors.Errorf("compress.dictionary %s is a directory", c.Dictionary)
		}
	}

	return nil
}

func validateRuntime(r *Runtime) error {
	if r == nil {
		return errors.New("runtime cannot be empty")
	}

	if r.Concurrency < MinConcurrency || r.Concurrency > MaxConcurrency {
		return errors.Errorf("runtime.concurrency must be between %d and %d", MinConcurrency, MaxConcurrency)
	}

	if _, ok := validLogLevels[strings.ToLower(r.LogLevel)]; !ok {
		return errors.Errorf("runtime.log_level %s is invalid", r.LogLevel)
	}

	return nil
}

// Container returns the parsed compress.container.
func (c *Config) Container() stream.Container {
	ct, _ := stream.ParseContainer(c.Compress.Container)
	return ct
}

// Strategy returns the parsed compress.strategy.
func (c *Config) Strategy() flate.Strategy {
	return validStrategies[strings.ToLower(c.Compress.Strategy)]
}

// Level returns compress.level.
func (c *Config) Level() int {
	return *c.Compress.Level
}
