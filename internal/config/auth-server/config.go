package auth_server_config

import (
	"time"

	"github.com/NordCoder/studybuddy/internal/obs"
	mg "github.com/NordCoder/studybuddy/internal/repository/mongo"
	pg "github.com/NordCoder/studybuddy/internal/repository/postgres"
	rd "github.com/NordCoder/studybuddy/internal/repository/redis"
)

const (
	StoreMongo    = "mongo"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type App struct {
	Name    string `mapstructure:"name"`
	Env     string `mapstructure:"env"`
	Version string `mapstructure:"version"`
}

type Server struct {
	HTTPAddr        string        `mapstructure:"http_addr"`
	MetricsAddr     string        `mapstructure:"metrics_addr"`
	BasePath        string        `mapstructure:"base_path"`
	AllowOrigins    []string      `mapstructure:"allow_origins"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	GracefulTimeout time.Duration `mapstructure:"graceful_timeout"`
}

type Store struct {
	Driver      string `mapstructure:"driver"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

type Denylist struct {
	Enable bool `mapstructure:"enable"`
}

type OTEL struct {
	Enable       bool    `mapstructure:"enable"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
}

func (oc *OTEL) AsOTELConfig() *obs.OTELConfig {
	return &obs.OTELConfig{
		Enable:      oc.Enable,
		Endpoint:    oc.OTLPEndpoint,
		ServiceName: oc.ServiceName,
		SampleRatio: oc.SampleRatio,
	}
}

type Log struct {
	Level   string   `mapstructure:"level"`
	Pretty  bool     `mapstructure:"pretty"`
	// sink paths; stderr when empty
	Outputs []string `mapstructure:"outputs"`
}

type Auth struct {
	AccessSecret  string        `mapstructure:"access_secret"`
	RefreshSecret string        `mapstructure:"refresh_secret"`
	AccessTTL     time.Duration `mapstructure:"access_ttl"`
	RefreshTTL    time.Duration `mapstructure:"refresh_ttl"`
	BcryptCost    int           `mapstructure:"bcrypt_cost"`
}

type Config struct {
	App      App       `mapstructure:"app"`
	Server   Server    `mapstructure:"server"`
	Store    Store     `mapstructure:"store"`
	Mongo    mg.Config `mapstructure:"mongo"`
	DB       pg.Config `mapstructure:"db"`
	Redis    rd.Config `mapstructure:"redis"`
	Denylist Denylist  `mapstructure:"denylist"`
	OTEL     OTEL      `mapstructure:"otel"`
	Log      Log       `mapstructure:"log"`
	Auth     Auth      `mapstructure:"auth"`
}

type ErrConfig string

func (e ErrConfig) Error() string { return string(e) }
