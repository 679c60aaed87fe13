package config

import (
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env          string `yaml:"env" env:"ENV" env-default:"local"`
	JWT          `yaml:"jwt"`
	Confirmation `yaml:"confirmation"`
	OAuth        `yaml:"oauth"`
	RabbitMQ     `yaml:"rabbitmq"`
	Postgres     `yaml:"postgres"`
	HTTPServer   `yaml:"http_server"`
}

type HTTPServer struct {
	Address     string        `yaml:"address" env:"HTTP_ADDRESS" env-default:"localhost:8080"`
	Timeout     time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

type Postgres struct {
	Host     string `yaml:"host" env:"POSTGRES_HOST" env-default:"postgres"`
	Port     int    `yaml:"port" env:"POSTGRES_PORT" env-default:"5432"`
	User     string `yaml:"user" env:"POSTGRES_USER" env-required:"true"`
	Password string `yaml:"password" env:"POSTGRES_PASSWORD" env-required:"true"`
	DBName   string `yaml:"dbname" env:"POSTGRES_DB" env-required:"true"`
	SSLMode  string `yaml:"sslmode" env-default:"disable"`
}

type JWT struct {
	// Secret has a dev fallback so the service starts locally, it must be
	// overridden in any real deployment.
	Secret         string        `yaml:"secret" env:"JWT_SECRET" env-default:"defaultsecretkeydefaultsecretkey"`
	AccessTokenTTL time.Duration `yaml:"access_token_ttl" env-default:"1h"`
}

type Confirmation struct {
	TokenTTL time.Duration `yaml:"token_ttl" env-default:"24h"`
}

type RabbitMQ struct {
	// URL left empty disables email delivery (messages are logged and dropped).
	URL       string `yaml:"url" env:"RABBITMQ_URL" env-default:""`
	QueueName string `yaml:"queue_name" env-default:"email_queue"`
}

type OAuth struct {
	RedirectURI string        `yaml:"redirect_uri" env:"OAUTH_REDIRECT_URI" env-default:"http://localhost:3000/oauth2/callback"`
	Google      OAuthProvider `yaml:"google"`
	GitHub      OAuthProvider `yaml:"github"`
}

type OAuthProvider struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	CallbackURL  string `yaml:"callback_url"`
}

func MustLoad(configPath string) *Config {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("Config file does not exist" + configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		panic("Failed to read config" + err.Error())
	}

	return &cfg
}
