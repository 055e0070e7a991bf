package authtokens

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type envConfig struct {
	Secret       string        `env:"AUTHTOKENS_JWT_SECRET,required"`
	AccessTTL    time.Duration `env:"AUTHTOKENS_ACCESS_TTL" envDefault:"15m"`
	RefreshTTL   time.Duration `env:"AUTHTOKENS_REFRESH_TTL" envDefault:"168h"`
	Leeway       time.Duration `env:"AUTHTOKENS_LEEWAY" envDefault:"2s"`
	Issuer       string        `env:"AUTHTOKENS_ISSUER"`
	RedisPrefix  string        `env:"AUTHTOKENS_REDIS_PREFIX" envDefault:"rt"`
	StoreTimeout time.Duration `env:"AUTHTOKENS_STORE_TIMEOUT" envDefault:"2s"`
	CookieName   string        `env:"AUTHTOKENS_COOKIE_NAME" envDefault:"refreshToken"`
	CookieSecure bool          `env:"AUTHTOKENS_COOKIE_SECURE" envDefault:"true"`
	AuditEnabled bool          `env:"AUTHTOKENS_AUDIT_ENABLED" envDefault:"false"`
}

// ConfigFromEnv builds a [Config] from AUTHTOKENS_* environment variables on
// top of [DefaultConfig]. The returned config has already passed
// [Config.Validate].
func ConfigFromEnv() (Config, error) {
	var ec envConfig
	if err := env.Parse(&ec); err != nil {
		return Config{}, fmt.Errorf("authtokens: parsing environment: %w", err)
	}

	cfg := DefaultConfig()
	cfg.JWT.Secret = []byte(ec.Secret)
	cfg.JWT.AccessTTL = ec.AccessTTL
	cfg.JWT.RefreshTTL = ec.RefreshTTL
	cfg.JWT.Leeway = ec.Leeway
	cfg.JWT.Issuer = ec.Issuer
	cfg.Store.RedisPrefix = ec.RedisPrefix
	cfg.Store.OpTimeout = ec.StoreTimeout
	cfg.Cookie.Name = ec.CookieName
	cfg.Cookie.Secure = ec.CookieSecure
	cfg.Audit.Enabled = ec.AuditEnabled

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
