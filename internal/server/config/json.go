package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/authkeeper/internal/flagx"
	"github.com/dmitrijs2005/authkeeper/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Pointer fields
// distinguish "absent" from "zero" so a partial file only overrides what it names.
type JsonConfig struct {
	EndpointAddrHTTP             *string         `json:"endpoint_addr_http"`
	DatabaseDSN                  *string         `json:"database_dsn"`
	TokenStore                   *string         `json:"token_store"`
	RedisAddr                    *string         `json:"redis_addr"`
	SecretKey                    *string         `json:"secret_key"`
	AccessTokenValidityDuration  *timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration *timex.Duration `json:"refresh_token_validity_duration"`
	BcryptCost                   *int            `json:"bcrypt_cost"`
	MaxConcurrentHashes          *int            `json:"max_concurrent_hashes"`
	OperationTimeout             *timex.Duration `json:"operation_timeout"`
	RotateRefreshTokens          *bool           `json:"rotate_refresh_tokens"`
	PurgeInterval                *timex.Duration `json:"purge_interval"`
	LogLevel                     *string         `json:"log_level"`
}

// parseJson overlays values from the JSON file named by -c/-config or
// $AUTHKEEPER_CONFIG. No path means nothing to load.
func parseJson(config *Config, args []string) error {
	path := flagx.ConfigFilePath(args)
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	setIf(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setIf(&config.DatabaseDSN, c.DatabaseDSN)
	setIf(&config.TokenStore, c.TokenStore)
	setIf(&config.RedisAddr, c.RedisAddr)
	setIf(&config.SecretKey, c.SecretKey)
	setDurationIf(&config.AccessTokenValidityDuration, c.AccessTokenValidityDuration)
	setDurationIf(&config.RefreshTokenValidityDuration, c.RefreshTokenValidityDuration)
	setIf(&config.BcryptCost, c.BcryptCost)
	setIf(&config.MaxConcurrentHashes, c.MaxConcurrentHashes)
	setDurationIf(&config.OperationTimeout, c.OperationTimeout)
	setIf(&config.RotateRefreshTokens, c.RotateRefreshTokens)
	setDurationIf(&config.PurgeInterval, c.PurgeInterval)
	setIf(&config.LogLevel, c.LogLevel)
	return nil
}
