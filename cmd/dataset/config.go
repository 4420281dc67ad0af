package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/ukaji3/dataset-go/pkg/dataset"
)

// Config keys, also accepted in the YAML config file.
const (
	cfgKeyTemplateVersion    = "template_version"
	cfgKeyResourcesDir       = "resources_dir"
	cfgKeyMetadataExtensions = "metadata_extensions"
	cfgKeyLogLevel           = "log_level"

	defaultLogLevel = "warn"
)

// flagKeys maps persistent flags to the config keys they override.
var flagKeys = map[string]string{
	"template-version": cfgKeyTemplateVersion,
	"resources-dir":    cfgKeyResourcesDir,
	"log-level":        cfgKeyLogLevel,
}

// loadConfig reads the optional config file and layers flag values on top.
func loadConfig(path string, flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetDefault(cfgKeyTemplateVersion, dataset.DefaultTemplateVersion)
	v.SetDefault(cfgKeyMetadataExtensions, dataset.DefaultMetadataExtensions)
	v.SetDefault(cfgKeyLogLevel, defaultLogLevel)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	for name, key := range flagKeys {
		if f := flags.Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	return v, nil
}

// newManager builds a dataset manager from the loaded configuration,
// logging to w.
func newManager(v *viper.Viper, w io.Writer) (*dataset.Manager, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(v.GetString(cfgKeyLogLevel))); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", v.GetString(cfgKeyLogLevel), err)
	}

	return dataset.New(dataset.Config{
		TemplateVersion:    v.GetString(cfgKeyTemplateVersion),
		ResourcesDir:       v.GetString(cfgKeyResourcesDir),
		MetadataExtensions: v.GetStringSlice(cfgKeyMetadataExtensions),
		Logger:             slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})),
	}), nil
}
