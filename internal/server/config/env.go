package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// envConfig holds raw environment values. Only variables that are present
// override the current configuration.
type envConfig struct {
	EndpointAddrHTTP    *string        `env:"AUTHKEEPER_HTTP_ADDR"`
	DatabaseDSN         *string        `env:"AUTHKEEPER_DATABASE_DSN"`
	TokenStore          *string        `env:"AUTHKEEPER_TOKEN_STORE"`
	RedisAddr           *string        `env:"AUTHKEEPER_REDIS_ADDR"`
	SecretKey           *string        `env:"AUTH_TOKEN_SECRET"`
	AccessTokenSeconds  *int           `env:"AUTH_TOKEN_EXPIRE_SEC"`
	RefreshTokenDays    *int           `env:"AUTH_REFRESH_TOKEN_EXPIRE_DAYS"`
	BcryptCost          *int           `env:"AUTHKEEPER_BCRYPT_COST"`
	MaxConcurrentHashes *int           `env:"AUTHKEEPER_MAX_CONCURRENT_HASHES"`
	OperationTimeout    *time.Duration `env:"AUTHKEEPER_OPERATION_TIMEOUT"`
	RotateRefreshTokens *bool          `env:"AUTHKEEPER_ROTATE_REFRESH_TOKENS"`
	PurgeInterval       *time.Duration `env:"AUTHKEEPER_PURGE_INTERVAL"`
	LogLevel            *string        `env:"AUTHKEEPER_LOG_LEVEL"`
}

func parseEnv(config *Config) error {
	var raw envConfig
	if err := env.Parse(&raw); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	setIf(&config.EndpointAddrHTTP, raw.EndpointAddrHTTP)
	setIf(&config.DatabaseDSN, raw.DatabaseDSN)
	setIf(&config.TokenStore, raw.TokenStore)
	setIf(&config.RedisAddr, raw.RedisAddr)
	setIf(&config.SecretKey, raw.SecretKey)
	if raw.AccessTokenSeconds != nil {
		config.AccessTokenValidityDuration = time.Duration(*raw.AccessTokenSeconds) * time.Second
	}
	if raw.RefreshTokenDays != nil {
		config.RefreshTokenValidityDuration = time.Duration(*raw.RefreshTokenDays) * 24 * time.Hour
	}
	setIf(&config.BcryptCost, raw.BcryptCost)
	setIf(&config.MaxConcurrentHashes, raw.MaxConcurrentHashes)
	setIf(&config.OperationTimeout, raw.OperationTimeout)
	setIf(&config.RotateRefreshTokens, raw.RotateRefreshTokens)
	setIf(&config.PurgeInterval, raw.PurgeInterval)
	setIf(&config.LogLevel, raw.LogLevel)
	return nil
}
