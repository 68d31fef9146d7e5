package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del servicio de auth social.
type Config struct {
	App struct {
		// dev | staging | prod
		Env string `yaml:"env"`
	} `yaml:"app"`

	Server struct {
		Addr string `yaml:"addr"`
		// PublicBaseURL es la URL pública del servicio, usada para armar
		// redirect URIs por defecto (ej. https://auth.learningplanner.app).
		PublicBaseURL string `yaml:"public_base_url"`
		AdminAPIKey   string `yaml:"admin_api_key"`
	} `yaml:"server"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Storage struct {
		// Driver: "postgres" | "memory" (memory solo para dev/testing)
		Driver string `yaml:"driver"`
		DSN    string `yaml:"dsn"`
	} `yaml:"storage"`

	Cache struct {
		// Kind: "memory" | "redis"
		Kind  string `yaml:"kind"`
		Redis struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"cache"`

	JWT struct {
		Issuer     string `yaml:"issuer"`
		AccessTTL  string `yaml:"access_ttl"`
		RefreshTTL string `yaml:"refresh_ttl"`
	} `yaml:"jwt"`

	Social struct {
		// StateTTL acota la vida del state/PKCE entre start y callback.
		StateTTL  string                    `yaml:"state_ttl"`
		Providers map[string]ProviderConfig `yaml:"providers"`
		RateLimit struct {
			// Max requests por IP por ventana en los endpoints públicos
			// (default 60). Un valor negativo deshabilita el rate limiting.
			Max    int    `yaml:"max"`
			Window string `yaml:"window"`
		} `yaml:"rate_limit"`
	} `yaml:"social"`

	Tokens struct {
		// RefreshSkew: margen antes del expiry para considerar refresh.
		RefreshSkew string `yaml:"refresh_skew"`
		// CleanupConcurrency: refreshes en paralelo durante el sweep.
		CleanupConcurrency int `yaml:"cleanup_concurrency"`
	} `yaml:"tokens"`
}

// ProviderConfig son las credenciales OAuth de un provider social.
type ProviderConfig struct {
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	RedirectURI  string   `yaml:"redirect_uri"`
	Scopes       []string `yaml:"scopes"`
	// UsePKCE fuerza PKCE aunque el provider no lo requiera.
	UsePKCE bool `yaml:"use_pkce"`
}

// Load lee la configuración desde un archivo YAML y aplica overrides de env.
// Si path es vacío usa LP_AUTH_CONFIG o "config.yaml".
func Load(path string) (*Config, error) {
	if path == "" {
		path = envOr("LP_AUTH_CONFIG", "config.yaml")
	}

	cfg := &Config{}
	if b, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

// applyEnv pisa valores con variables de entorno (prioridad sobre YAML).
func (c *Config) applyEnv() {
	setIf(&c.App.Env, "LP_AUTH_ENV")
	setIf(&c.Server.Addr, "LP_AUTH_ADDR")
	setIf(&c.Server.PublicBaseURL, "LP_AUTH_PUBLIC_BASE_URL")
	setIf(&c.Server.AdminAPIKey, "LP_AUTH_ADMIN_API_KEY")
	setIf(&c.Log.Level, "LP_AUTH_LOG_LEVEL")
	setIf(&c.Storage.Driver, "LP_AUTH_STORAGE_DRIVER")
	setIf(&c.Storage.DSN, "DATABASE_URL")
	setIf(&c.Cache.Kind, "LP_AUTH_CACHE_KIND")
	setIf(&c.Cache.Redis.Addr, "LP_AUTH_REDIS_ADDR")
	setIf(&c.Cache.Redis.Password, "LP_AUTH_REDIS_PASSWORD")
	setIf(&c.JWT.Issuer, "LP_AUTH_JWT_ISSUER")

	if c.Social.Providers == nil {
		c.Social.Providers = map[string]ProviderConfig{}
	}
	// Credenciales por provider via env: GOOGLE_CLIENT_ID, APPLE_CLIENT_SECRET, etc.
	for _, p := range []string{"google", "apple", "instagram"} {
		pc := c.Social.Providers[p]
		up := strings.ToUpper(p)
		setIf(&pc.ClientID, up+"_CLIENT_ID")
		setIf(&pc.ClientSecret, up+"_CLIENT_SECRET")
		setIf(&pc.RedirectURI, up+"_REDIRECT_URI")
		c.Social.Providers[p] = pc
	}
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "postgres"
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.JWT.Issuer == "" {
		c.JWT.Issuer = "learningplanner-auth"
	}
	if c.Tokens.CleanupConcurrency <= 0 {
		c.Tokens.CleanupConcurrency = 4
	}
	if c.Social.RateLimit.Max == 0 {
		c.Social.RateLimit.Max = 60
	}
}

// IsProd indica si corre en producción (controla cuánto detalle de errores
// de providers se expone hacia afuera).
func (c *Config) IsProd() bool {
	return strings.EqualFold(c.App.Env, "prod")
}

// StateTTL retorna el TTL para state/PKCE (default 10m).
func (c *Config) StateTTL() time.Duration {
	return parseDur(c.Social.StateTTL, 10*time.Minute)
}

// RateLimitWindow retorna la ventana del rate limiter (default 1m).
func (c *Config) RateLimitWindow() time.Duration {
	return parseDur(c.Social.RateLimit.Window, time.Minute)
}

// RefreshSkew retorna el margen de refresh-before-expiry (default 5m).
func (c *Config) RefreshSkew() time.Duration {
	return parseDur(c.Tokens.RefreshSkew, 5*time.Minute)
}

// AccessTTL retorna el TTL del access token de sesión (default 15m).
func (c *Config) AccessTTL() time.Duration {
	return parseDur(c.JWT.AccessTTL, 15*time.Minute)
}

// RefreshTTL retorna el TTL del refresh token de sesión (default 720h).
func (c *Config) RefreshTTL() time.Duration {
	return parseDur(c.JWT.RefreshTTL, 720*time.Hour)
}

func parseDur(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func setIf(dst *string, env string) {
	if v := strings.TrimSpace(os.Getenv(env)); v != "" {
		*dst = v
	}
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
