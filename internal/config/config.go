// Package config loads server configuration from defaults, an optional YAML
// file and ANNOTATOR_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Keys.
const (
	KeyAddr         = "addr"
	KeyDSN          = "dsn"
	KeyJWTKey       = "jwt_key"
	KeyDev          = "dev"
	KeyTLSCert      = "tls.cert"
	KeyTLSKey       = "tls.key"
	KeyRedisURL     = "redis.url"
	KeyMeiliURL     = "meili.url"
	KeyMeiliKey     = "meili.key"
	KeyCacheTTL     = "cache.ttl"
	KeyDefaultLimit = "search.default_limit"
	KeyBatchSize    = "search.batch_size"
)

const envPrefix = "ANNOTATOR"

// Config is the resolved server configuration.
type Config struct {
	Addr   string
	DSN    string
	JWTKey string
	Dev    bool

	TLSCert string
	TLSKey  string

	RedisURL string
	MeiliURL string
	MeiliKey string

	CacheTTL     time.Duration
	DefaultLimit int
	BatchSize    int
}

// TLSEnabled reports whether both certificate and key are set.
func (c Config) TLSEnabled() bool { return c.TLSCert != "" && c.TLSKey != "" }

// Validate rejects configurations the server cannot start with.
func (c Config) Validate() error {
	var errs []error
	if c.JWTKey == "" {
		errs = append(errs, errors.New("missing jwt signing key (jwt_key)"))
	}
	if c.DSN == "" {
		errs = append(errs, errors.New("missing postgres dsn (dsn)"))
	}
	if (c.TLSCert == "") != (c.TLSKey == "") {
		errs = append(errs, errors.New("tls.cert and tls.key must be set together"))
	}
	if c.CacheTTL < 0 {
		errs = append(errs, fmt.Errorf("negative cache.ttl %s", c.CacheTTL))
	}
	return errors.Join(errs...)
}

// New returns a viper instance with defaults and environment binding.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyAddr, ":8443")
	v.SetDefault(KeyDSN, "")
	v.SetDefault(KeyJWTKey, "")
	v.SetDefault(KeyDev, false)
	v.SetDefault(KeyTLSCert, "")
	v.SetDefault(KeyTLSKey, "")
	v.SetDefault(KeyRedisURL, "")
	v.SetDefault(KeyMeiliURL, "")
	v.SetDefault(KeyMeiliKey, "")
	v.SetDefault(KeyCacheTTL, 10*time.Minute)
	v.SetDefault(KeyDefaultLimit, 20)
	v.SetDefault(KeyBatchSize, 200)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads path into v when set. A missing file is not an error.
func Load(v *viper.Viper, path string) (Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var nf viper.ConfigFileNotFoundError
			if !errors.As(err, &nf) && !isNotExist(err) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return Config{
		Addr:         v.GetString(KeyAddr),
		DSN:          v.GetString(KeyDSN),
		JWTKey:       v.GetString(KeyJWTKey),
		Dev:          v.GetBool(KeyDev),
		TLSCert:      v.GetString(KeyTLSCert),
		TLSKey:       v.GetString(KeyTLSKey),
		RedisURL:     v.GetString(KeyRedisURL),
		MeiliURL:     v.GetString(KeyMeiliURL),
		MeiliKey:     v.GetString(KeyMeiliKey),
		CacheTTL:     v.GetDuration(KeyCacheTTL),
		DefaultLimit: v.GetInt(KeyDefaultLimit),
		BatchSize:    v.GetInt(KeyBatchSize),
	}, nil
}
