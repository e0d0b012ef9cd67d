package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv      string `env:"APP_ENV" envDefault:"local"`
	PostgresDSN string `env:"POSTGRES_DSN,required"`

	BotToken   string `env:"BOT_TOKEN,required"`
	OperatorID int64  `env:"OPERATOR_ID,required"`

	TGAPIID       int    `env:"TG_API_ID,required"`
	TGAPIHash     string `env:"TG_API_HASH,required"`
	TGSessionPath string `env:"TG_SESSION_PATH" envDefault:"./tg.session"`

	BlacklistFailClosed bool          `env:"BLACKLIST_FAIL_CLOSED" envDefault:"false"`
	ForwardRPS          float64       `env:"FORWARD_RPS" envDefault:"1"`
	SendTimeout         time.Duration `env:"SEND_TIMEOUT" envDefault:"10s"`

	HealthPort int `env:"HEALTH_PORT" envDefault:"8080"`

	DBMaxConns        int           `env:"DB_MAX_CONNS" envDefault:"10"`
	DBMinConns        int           `env:"DB_MIN_CONNS" envDefault:"2"`
	DBMaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"30m"`
	DBMaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"1h"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
