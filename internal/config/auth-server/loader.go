package auth_server_config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// env names shared with the web deployment
var envAliases = map[string][]string{
	"auth.access_secret":  {"JWT_SECRET"},
	"auth.refresh_secret": {"JWT_REFRESH_SECRET"},
	"mongo.uri":           {"MONGO_URL"},
	"db.dsn":              {"DB_DSN"},
	"redis.url":           {"REDIS_URL"},
}

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
		_ = v.ReadInConfig()
	}

	v.SetDefault("app.name", "studybuddy-auth")
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("server.metrics_addr", "")
	v.SetDefault("server.base_path", "/api")
	v.SetDefault("server.allow_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.read_timeout", "5s")
	v.SetDefault("server.write_timeout", "5s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.graceful_timeout", "15s")

	v.SetDefault("store.driver", StoreMongo)
	v.SetDefault("store.auto_migrate", true)

	v.SetDefault("mongo.database", "studybuddy")
	v.SetDefault("mongo.connect_timeout", "10s")
	v.SetDefault("mongo.query_timeout", "2s")

	v.SetDefault("db.max_conns", 20)
	v.SetDefault("db.min_conns", 2)
	v.SetDefault("db.max_conn_lifetime", "30m")
	v.SetDefault("db.max_conn_idle_time", "10m")
	v.SetDefault("db.health_check_period", "30s")
	v.SetDefault("db.query_timeout", "2s")

	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.query_timeout", "500ms")
	v.SetDefault("denylist.enable", false)

	v.SetDefault("otel.enable", false)
	v.SetDefault("otel.service_name", "studybuddy-auth")
	v.SetDefault("otel.sample_ratio", 1.0)
	v.SetDefault("otel.otlp_endpoint", "localhost:4317")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	v.SetDefault("auth.access_ttl", "1h")
	v.SetDefault("auth.refresh_ttl", "168h")
	v.SetDefault("auth.bcrypt_cost", 10)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range envAliases {
		envs := append([]string{strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, names...)
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Auth.AccessSecret == "":
		return ErrConfig("access token secret is not set (JWT_SECRET)")
	case c.Auth.RefreshSecret == "":
		return ErrConfig("refresh token secret is not set (JWT_REFRESH_SECRET)")
	case c.Auth.AccessSecret == c.Auth.RefreshSecret:
		return ErrConfig("access and refresh token secrets must differ")
	}

	switch c.Store.Driver {
	case StoreMongo:
		if c.Mongo.URI == "" {
			return ErrConfig("mongo store selected but no uri (MONGO_URL)")
		}
	case StorePostgres:
		if c.DB.DSN == "" {
			return ErrConfig("postgres store selected but no dsn (DB_DSN)")
		}
	case StoreMemory:
	default:
		return ErrConfig(fmt.Sprintf("unknown store driver %q", c.Store.Driver))
	}

	if c.Denylist.Enable && c.Redis.URL == "" {
		return ErrConfig("denylist enabled but no redis url (REDIS_URL)")
	}
	if !strings.HasPrefix(c.Server.BasePath, "/") {
		c.Server.BasePath = "/" + c.Server.BasePath
	}
	c.Server.BasePath = strings.TrimRight(c.Server.BasePath, "/")
	return nil
}
