// Package config ...
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/n-r-w/lg"
)

// Config otasrv.toml
type Config struct {
	Host                 string   `toml:"HOST"`
	Port                 string   `toml:"PORT"`
	DatabaseURL          string   `toml:"DATABASE_URL"`
	MaxDbSessions        int      `toml:"MAX_DB_SESSIONS"`
	MaxDbSessionIdleTime int      `toml:"MAX_DB_SESSION_IDLE_TIME"`
	DbReadTimeout        int      `toml:"DB_READ_TIMEOUT"`
	DbWriteTimeout       int      `toml:"DB_WRITE_TIMEOUT"`
	HttpReadTimeout      int      `toml:"HTTP_READ_TIMEOUT"`
	HttpWriteTimeout     int      `toml:"HTTP_WRITE_TIMEOUT"`
	HttpShutdownTimeout  int      `toml:"HTTP_SHUTDOWN_TIMEOUT"`
	RateLimit            int      `toml:"RATE_LIMIT"`
	RateLimitBurst       int      `toml:"RATE_LIMIT_BURST"`
	DownloadTimeout      int      `toml:"DOWNLOAD_TIMEOUT"`
	MaxFirmwareSize      int      `toml:"MAX_FIRMWARE_SIZE"`
	PublicKey            string   `toml:"PUBLIC_KEY"`
	TokensRead           []string `toml:"TOKENS_READ"`
	TokensWrite          []string `toml:"TOKENS_WRITE"`
}

const (
	maxDbSessions        = 50
	maxDbSessionIdleTime = 50
	downloadTimeout      = 60  // секунд на скачивание прошивки
	maxFirmwareSize      = 200 // мегабайт
)

// New Инициализация конфига значениями по умолчанию
func New(configPath string, logger lg.Logger) (*Config, error) {
	c := &Config{
		Host:                 "0.0.0.0",
		Port:                 "8080",
		DatabaseURL:          "",
		MaxDbSessions:        maxDbSessions,
		MaxDbSessionIdleTime: maxDbSessionIdleTime,
		DbReadTimeout:        10,
		DbWriteTimeout:       5,
		HttpReadTimeout:      15,
		HttpWriteTimeout:     10,
		HttpShutdownTimeout:  10,
		RateLimit:            10000,
		RateLimitBurst:       20000,
		DownloadTimeout:      downloadTimeout,
		MaxFirmwareSize:      maxFirmwareSize,
		PublicKey:            "",
		TokensRead:           []string{},
		TokensWrite:          []string{},
	}

	if configPath != "" {
		if _, err := toml.DecodeFile(configPath, c); err != nil {
			return nil, err
		}
	}

	if c.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL undefined")
	}

	logger.Info("MAX_DB_SESSIONS: %d", c.MaxDbSessions)
	logger.Info("MAX_DB_SESSION_IDLE_TIME: %d", c.MaxDbSessionIdleTime)
	logger.Info("RATE_LIMIT: %d", c.RateLimit)
	logger.Info("RATE_LIMIT_BURST: %d", c.RateLimitBurst)
	logger.Info("DOWNLOAD_TIMEOUT: %d", c.DownloadTimeout)
	logger.Info("MAX_FIRMWARE_SIZE: %d", c.MaxFirmwareSize)
	logger.Info("DATABASE_URL: %s", c.DatabaseURL)
	if c.PublicKey == "" {
		logger.Warn("PUBLIC_KEY not set, firmware signatures will get structural check only")
	}

	return c, nil
}
