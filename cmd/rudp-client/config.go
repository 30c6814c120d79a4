package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/backkem/rudp/pkg/client"
	"github.com/pion/logging"
	"gopkg.in/natefinch/lumberjack.v2"
	"gopkg.in/yaml.v3"
)

const defaultTick = 10 * time.Millisecond

// fileConfig is the YAML config file layout. Durations use Go duration
// strings ("500ms", "5s"). Zero values keep the client defaults.
type fileConfig struct {
	HandshakeRetryInterval time.Duration `yaml:"handshakeRetryInterval"`
	MaxHandshakeAttempts   int           `yaml:"maxHandshakeAttempts"`
	InactivityTimeout      time.Duration `yaml:"inactivityTimeout"`
	KeepaliveInterval      time.Duration `yaml:"keepaliveInterval"`
	MaxSendAttempts        int           `yaml:"maxSendAttempts"`
	InitialRetryInterval   time.Duration `yaml:"initialRetryInterval"`
	MinRetryInterval       time.Duration `yaml:"minRetryInterval"`
	MaxRetryInterval       time.Duration `yaml:"maxRetryInterval"`
	StandaloneAckDelay     time.Duration `yaml:"standaloneAckDelay"`
	InboundQueueSize       int           `yaml:"inboundQueueSize"`
	RTTHistorySize         int           `yaml:"rttHistorySize"`
	LocalPort              int           `yaml:"localPort"`

	Tick     time.Duration `yaml:"tick"`
	LogLevel string        `yaml:"logLevel"`
	LogFile  string        `yaml:"logFile"`
}

func defaultFileConfig() fileConfig {
	return fileConfig{
		Tick:     defaultTick,
		LogLevel: "info",
	}
}

// loadConfig reads a YAML config file over the defaults.
func loadConfig(path string) (fileConfig, error) {
	config := defaultFileConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return config, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return config, fmt.Errorf("parse config %s: %w", path, err)
	}

	return config, nil
}

func (f fileConfig) clientConfig() client.Config {
	return client.Config{
		HandshakeRetryInterval: f.HandshakeRetryInterval,
		MaxHandshakeAttempts:   f.MaxHandshakeAttempts,
		InactivityTimeout:      f.InactivityTimeout,
		KeepaliveInterval:      f.KeepaliveInterval,
		DefaultMaxSendAttempts: f.MaxSendAttempts,
		InitialRetryInterval:   f.InitialRetryInterval,
		MinRetryInterval:       f.MinRetryInterval,
		MaxRetryInterval:       f.MaxRetryInterval,
		StandaloneAckDelay:     f.StandaloneAckDelay,
		InboundQueueSize:       f.InboundQueueSize,
		RTTHistorySize:         f.RTTHistorySize,
		LocalPort:              f.LocalPort,
	}
}

var logLevels = map[string]logging.LogLevel{
	"disabled": logging.LogLevelDisabled,
	"error":    logging.LogLevelError,
	"warn":     logging.LogLevelWarn,
	"info":     logging.LogLevelInfo,
	"debug":    logging.LogLevelDebug,
	"trace":    logging.LogLevelTrace,
}

func parseLogLevel(s string) (logging.LogLevel, error) {
	if s == "" {
		return logging.LogLevelInfo, nil
	}
	level, ok := logLevels[strings.ToLower(s)]
	if !ok {
		return logging.LogLevelDisabled, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}

// newLoggerFactory returns a pion logger factory writing to a rotating
// file when path is set, or to stderr otherwise.
func newLoggerFactory(level, path string, stderr io.Writer) (logging.LoggerFactory, io.Closer, error) {
	lvl, err := parseLogLevel(level)
	if err != nil {
		return nil, nil, err
	}

	lf := logging.NewDefaultLoggerFactory()
	lf.DefaultLogLevel = lvl
	lf.Writer = stderr

	var closer io.Closer = nopCloser{}
	if path != "" {
		rotating := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    1, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		}
		lf.Writer = rotating
		closer = rotating
	}

	return lf, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
