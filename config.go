package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kaireichart/edgetx-log-viewer/logging"
	"github.com/kaireichart/edgetx-log-viewer/logs"
	"github.com/kaireichart/edgetx-log-viewer/playback"
)

// Config is the resolved configuration of a command run
type Config struct {
	Listen            string
	LogLevel          string
	LogDir            string
	MaxUploadMB       int
	CacheSize         int
	IngestConcurrency int
	ExportOffset      float64
	PlaybackSpeed     float64
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.dir", "")
	v.SetDefault("upload.max_mb", logs.DefaultMaxUploadBytes>>20)
	v.SetDefault("store.cache_size", logs.DefaultCacheSize)
	v.SetDefault("ingest.concurrency", logs.DefaultIngestConcurrency)
	v.SetDefault("export.offset", 0.0)
	v.SetDefault("playback.speed", playback.DefaultSpeed)
}

// initConfig reads the optional config file and ELV_ environment overrides
func initConfig(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigName(".edgetx-log-viewer")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("ELV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok && cfgFile == "" {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	return nil
}

func loadConfig(v *viper.Viper) (Config, error) {
	cfg := Config{
		Listen:            v.GetString("listen"),
		LogLevel:          v.GetString("log.level"),
		LogDir:            v.GetString("log.dir"),
		MaxUploadMB:       v.GetInt("upload.max_mb"),
		CacheSize:         v.GetInt("store.cache_size"),
		IngestConcurrency: v.GetInt("ingest.concurrency"),
		ExportOffset:      v.GetFloat64("export.offset"),
		PlaybackSpeed:     v.GetFloat64("playback.speed"),
	}

	if _, err := logging.ParseLevel(cfg.LogLevel); err != nil {
		return cfg, err
	}
	if cfg.MaxUploadMB <= 0 {
		return cfg, fmt.Errorf("upload.max_mb must be positive, got %d", cfg.MaxUploadMB)
	}
	if cfg.CacheSize <= 0 {
		return cfg, fmt.Errorf("store.cache_size must be positive, got %d", cfg.CacheSize)
	}
	if cfg.IngestConcurrency <= 0 {
		return cfg, fmt.Errorf("ingest.concurrency must be positive, got %d", cfg.IngestConcurrency)
	}
	if cfg.PlaybackSpeed <= 0 {
		return cfg, fmt.Errorf("playback.speed must be positive, got %g", cfg.PlaybackSpeed)
	}
	return cfg, nil
}

// bindFlag ties a viper key to a command flag, panicking on a misspelled flag name
func bindFlag(v *viper.Viper, cmd *cobra.Command, key, flag string) {
	f := cmd.Flags().Lookup(flag)
	if f == nil {
		f = cmd.PersistentFlags().Lookup(flag)
	}
	cobra.CheckErr(v.BindPFlag(key, f))
}
