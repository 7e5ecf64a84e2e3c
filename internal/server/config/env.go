package config

import (
	"os"
	"strconv"
	"time"
)

// parseEnv overlays Config with values from environment variables. Unset
// variables leave the current value in place. Durations use Go syntax
// ("15m", "720h"); a malformed duration or integer panics, a broken config
// must abort startup.
func parseEnv(config *Config) {
	if v, ok := os.LookupEnv("ADDRESS"); ok {
		config.EndpointAddr = v
	}
	if v, ok := os.LookupEnv("DB_ADAPTER"); ok {
		config.DBAdapter = v
	}
	if v, ok := os.LookupEnv("DATABASE_DSN"); ok {
		config.DatabaseDSN = v
	}
	if v, ok := os.LookupEnv("SQLITE_FILE"); ok {
		config.SQLitePath = v
	}
	if v, ok := os.LookupEnv("JWT_SECRET"); ok {
		config.SecretKey = v
	}
	if v, ok := os.LookupEnv("ACCESS_TOKEN_TTL"); ok {
		config.AccessTokenValidityDuration = mustParseDuration(v)
	}
	if v, ok := os.LookupEnv("REFRESH_TOKEN_TTL"); ok {
		config.RefreshTokenValidityDuration = mustParseDuration(v)
	}
	if v, ok := os.LookupEnv("BCRYPT_COST"); ok {
		cost, err := strconv.Atoi(v)
		if err != nil {
			panic(err)
		}
		config.BcryptCost = cost
	}
}

func mustParseDuration(v string) time.Duration {
	d, err := time.ParseDuration(v)
	if err != nil {
		panic(err)
	}
	return d
}
