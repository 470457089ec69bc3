// Package config loads the user configuration of nsconfig.
package config

import (
	"path"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"github.com/xyproto/env/v2"
	"gopkg.in/yaml.v2"

	"github.com/agenium-scale/nsconfig/log"
	"github.com/agenium-scale/nsconfig/toolchain"
)

// Toolchain is a compiler declared once for every project.
type Toolchain struct {
	Command               string `yaml:"command" mapstructure:"command"`
	toolchain.Declaration `yaml:",inline" mapstructure:",squash"`
}

type Config struct {
	// Prefix is the installation directory, empty for the host default.
	Prefix     string      `yaml:"prefix,omitempty" mapstructure:"prefix"`
	Generator  string      `yaml:"generator" mapstructure:"generator"`
	Verbose    bool        `yaml:"verbose" mapstructure:"verbose"`
	Toolchains []Toolchain `yaml:"toolchains,omitempty" mapstructure:"toolchains"`
}

const configFileName = "config"

// EnvPrefix prefixes the environment variables overriding configuration keys, as in NSCONFIG_GENERATOR.
const EnvPrefix = "NSCONFIG"

var config *Config

// Dir returns the directory holding config.yaml.
func Dir() (string, error) {
	if dir := env.Str("NSCONFIG_CONFIG_DIR"); dir != "" {
		return dir, nil
	}
	if xdgConfigHome := env.Str("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return path.Join(xdgConfigHome, "nsconfig"), nil
	}
	home, err := homedir.Dir()
	if err != nil {
		return "", errors.Wrap(err, "Unable to locate the configuration directory")
	}
	return path.Join(home, ".config", "nsconfig"), nil
}

// Load reads config.yaml from dir. A missing file gives the default configuration.
func Load(dir string) (Config, error) {
	v := viper.New()
	v.SetConfigName(configFileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetDefault("prefix", "")
	v.SetDefault("generator", "ninja")
	v.SetDefault("verbose", false)

	var cfg Config
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return cfg, errors.Wrapf(err, "Error reading configuration file in `%s`", dir)
		}
		log.Debug("No configuration file in `%s`. Using default configuration\n", dir)
	} else {
		log.Debug("Loaded configuration from `%s`\n", v.ConfigFileUsed())
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, errors.Wrap(err, "Invalid configuration")
	}
	log.Debug("Running with configuration: %+v\n", cfg)
	return cfg, nil
}

// Get returns the configuration of the user, loading it on first use. Errors are reported and the default
// configuration is used instead.
func Get() Config {
	if config != nil {
		return *config
	}
	var cfg Config
	dir, err := Dir()
	if err == nil {
		cfg, err = Load(dir)
	}
	if err != nil {
		log.Warning("%s. Using default configuration\n", err)
		cfg = Config{Generator: "ninja"}
	}
	config = &cfg
	return cfg
}

// Dump returns the configuration as YAML.
func (c Config) Dump() ([]byte, error) {
	return yaml.Marshal(c)
}
