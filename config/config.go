package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Game     GameConfig     `mapstructure:"game"`
}

type ServerConfig struct {
	HTTPAddress    string `mapstructure:"http_address"`
	MetricsAddress string `mapstructure:"metrics_address"`
	RPCAddress     string `mapstructure:"rpc_address"`
	Debug          bool   `mapstructure:"debug"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

// GameConfig holds the gameplay tunables. Zero values are replaced by
// defaults in ApplyDefaults so a partial config file still works.
type GameConfig struct {
	SegmentCount         int           `mapstructure:"segment_count"`
	CanvasWidth          int           `mapstructure:"canvas_width"`
	CanvasHeight         int           `mapstructure:"canvas_height"`
	PeekHeight           int           `mapstructure:"peek_height"`
	GracePeriod          time.Duration `mapstructure:"grace_period"`
	MaxReconnectAttempts int           `mapstructure:"max_reconnect_attempts"`
}

func (g *GameConfig) ApplyDefaults() {
	if g.SegmentCount <= 0 {
		g.SegmentCount = 4
	}
	if g.CanvasWidth <= 0 {
		g.CanvasWidth = 400
	}
	if g.CanvasHeight <= 0 {
		g.CanvasHeight = 300
	}
	if g.PeekHeight <= 0 {
		g.PeekHeight = 40
	}
	if g.GracePeriod <= 0 {
		g.GracePeriod = 15 * time.Second
	}
	if g.MaxReconnectAttempts <= 0 {
		g.MaxReconnectAttempts = 3
	}
}

func LoadConfig(path string) (config *Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.AutomaticEnv()

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	config.Game.ApplyDefaults()
	return
}
