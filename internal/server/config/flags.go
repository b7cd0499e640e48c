package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/flagx"
	"github.com/dmitrijs2005/authkeeper/internal/timex"
)

// parseFlags overlays command-line flags, the highest-priority source.
//
// Supported flags:
//
//	-a string        HTTP bind address (e.g. ":8080")
//	-d string        PostgreSQL DSN
//	-s string        access token HMAC secret
//	-t int           access token validity, seconds
//	-r int           refresh token validity, days
//	-store string    refresh token store: postgres | redis
//	-redis string    Redis address
//	-cost int        bcrypt cost
//	-timeout dur     per-operation timeout (e.g. "3s")
//	-rotate          rotate refresh tokens on use
//	-purge dur       expired token purge interval ("0" disables)
//	-log string      log level
func parseFlags(config *Config, args []string) error {
	known := []string{"-a", "-d", "-s", "-t", "-r", "-store", "-redis", "-cost", "-timeout", "-rotate", "-purge", "-log"}

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	accessSeconds := fs.Int("t", int(config.AccessTokenValidityDuration/time.Second), "access token validity (in seconds)")
	refreshDays := fs.Int("r", int(config.RefreshTokenValidityDuration/(24*time.Hour)), "refresh token validity (in days)")

	fs.StringVar(&config.TokenStore, "store", config.TokenStore, "refresh token store (postgres|redis)")
	fs.StringVar(&config.RedisAddr, "redis", config.RedisAddr, "redis address")
	fs.IntVar(&config.BcryptCost, "cost", config.BcryptCost, "bcrypt cost")
	fs.DurationVar(&config.OperationTimeout, "timeout", config.OperationTimeout, "per-operation timeout")
	fs.BoolVar(&config.RotateRefreshTokens, "rotate", config.RotateRefreshTokens, "rotate refresh tokens on use")
	fs.DurationVar(&config.PurgeInterval, "purge", config.PurgeInterval, "expired token purge interval")
	fs.StringVar(&config.LogLevel, "log", config.LogLevel, "log level")

	if err := fs.Parse(flagx.FilterArgs(args, known)); err != nil {
		return err
	}

	// Only touch the TTLs when the flag was given so sub-unit values from
	// other sources survive.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			config.AccessTokenValidityDuration = time.Duration(*accessSeconds) * time.Second
		case "r":
			config.RefreshTokenValidityDuration = time.Duration(*refreshDays) * 24 * time.Hour
		}
	})
	return nil
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func setDurationIf(dst *time.Duration, src *timex.Duration) {
	if src != nil {
		*dst = src.Duration
	}
}
