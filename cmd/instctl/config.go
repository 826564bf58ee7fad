package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/uedlab/instctl/logger"
)

// benchConfig names where every instrument on the bench is connected.
type benchConfig struct {
	Shutter struct {
		Port string `mapstructure:"port"`
	} `mapstructure:"shutter"`

	Pressure struct {
		Port string `mapstructure:"port"`
		Addr int    `mapstructure:"addr"`
	} `mapstructure:"pressure"`

	// GPIB names the serial port of the GPIB controller; instruments on the
	// bus are addressed through it.
	GPIB struct {
		Port string `mapstructure:"port"`
	} `mapstructure:"gpib"`

	Temperature struct {
		Addr int `mapstructure:"addr"`
	} `mapstructure:"temperature"`

	Stage struct {
		Address string `mapstructure:"address"`
		Group   string `mapstructure:"group"`
	} `mapstructure:"stage"`

	Amplifier struct {
		Host string `mapstructure:"host"`
		Port int    `mapstructure:"port"`
	} `mapstructure:"amplifier"`

	Circulator struct {
		Port string `mapstructure:"port"`
	} `mapstructure:"circulator"`

	Archive struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"archive"`

	Log struct {
		Level string `mapstructure:"level"`
		File  string `mapstructure:"file"`
	} `mapstructure:"log"`
}

// loadBench reads the bench configuration. An empty path searches for
// instctl.yaml next to the binary and in the working directory; a missing
// file yields the defaults.
func loadBench(path string) (*benchConfig, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("instctl")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/instctl")
	}

	v.SetEnvPrefix("INSTCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading bench config: %w", err)
		}
	}

	cfg := &benchConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing bench config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("shutter.port", "/dev/ttyUSB0")
	v.SetDefault("pressure.port", "/dev/ttyUSB1")
	v.SetDefault("pressure.addr", 1)
	v.SetDefault("gpib.port", "/dev/ttyUSB2")
	v.SetDefault("temperature.addr", 24)
	v.SetDefault("stage.address", "192.168.254.254")
	v.SetDefault("stage.group", "GROUP5")
	v.SetDefault("amplifier.host", "192.168.254.100")
	v.SetDefault("amplifier.port", 5025)
	v.SetDefault("circulator.port", "/dev/ttyUSB3")
	v.SetDefault("archive.path", "instctl.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
}

func parseLogLevel(s string) (logger.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return logger.DebugLevel, nil
	case "info":
		return logger.InfoLevel, nil
	case "warn", "warning":
		return logger.WarnLevel, nil
	case "error":
		return logger.ErrorLevel, nil
	default:
		return logger.InfoLevel, fmt.Errorf("unknown log level %q", s)
	}
}
