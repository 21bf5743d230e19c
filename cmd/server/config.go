package main

import (
	"os"
	"time"

	"casino-engine/engine"
	"casino-engine/internal/db"
	"casino-engine/internal/redis"
	"casino-engine/internal/server"

	"github.com/charmbracelet/log"
)

const (
	storeSQL    = "sql"
	storeMemory = "memory"
)

// CLI holds all configuration. Every flag can also come from the
// environment or a .env file.
type CLI struct {
	HTTPAddr       string   `name:"http-addr" env:"HTTP_ADDR" default:":8080" help:"Address the HTTP server listens on."`
	AllowedOrigins []string `name:"allowed-origins" env:"ALLOWED_ORIGINS" default:"*" help:"Origins allowed for CORS and websockets; * allows all."`
	Release        bool     `name:"release" env:"GIN_RELEASE" help:"Run gin in release mode."`
	LogLevel       string   `name:"log-level" env:"LOG_LEVEL" default:"info" enum:"debug,info,warn,error" help:"Log level."`

	Store      string `name:"store" env:"STORE" default:"sql" enum:"sql,memory" help:"Persistence backend." group:"Storage"`
	DBDriver   string `name:"db-driver" env:"DB_DRIVER" default:"mysql" enum:"mysql,sqlite" help:"SQL driver." group:"Storage"`
	DBHost     string `name:"db-host" env:"DB_HOST" default:"localhost" group:"Storage"`
	DBPort     string `name:"db-port" env:"DB_PORT" default:"3306" group:"Storage"`
	DBUser     string `name:"db-user" env:"DB_USER" default:"root" group:"Storage"`
	DBPassword string `name:"db-password" env:"DB_PASSWORD" group:"Storage"`
	DBName     string `name:"db-name" env:"DB_NAME" default:"casino" group:"Storage"`
	SQLitePath string `name:"sqlite-path" env:"SQLITE_PATH" default:"casino.db" group:"Storage"`
	LogSQL     bool   `name:"log-sql" env:"LOG_SQL" help:"Log every SQL statement." group:"Storage"`

	RedisAddr     string `name:"redis-addr" env:"REDIS_ADDR" help:"Redis address; empty disables event mirroring and the engine lease." group:"Redis"`
	RedisPassword string `name:"redis-password" env:"REDIS_PASSWORD" group:"Redis"`
	RedisDB       int    `name:"redis-db" env:"REDIS_DB" default:"0" group:"Redis"`

	CountdownSeconds int           `name:"countdown-seconds" env:"COUNTDOWN_SECONDS" default:"60" help:"Betting window length." group:"Rounds"`
	ResetDelay       time.Duration `name:"reset-delay" env:"RESET_DELAY" default:"20s" help:"Pause between a finished round and the next." group:"Rounds"`
	Seed             int64         `name:"seed" env:"SEED" help:"Fixed RNG seed; 0 seeds from the clock." group:"Rounds"`
	EventQueue       int           `name:"event-queue" env:"EVENT_QUEUE" default:"1024" help:"Events buffered for delivery before new ones are dropped." group:"Rounds"`
}

func (c *CLI) dbConfig() db.Config {
	return db.Config{
		Driver:     c.DBDriver,
		Host:       c.DBHost,
		Port:       c.DBPort,
		User:       c.DBUser,
		Password:   c.DBPassword,
		DBName:     c.DBName,
		SQLitePath: c.SQLitePath,
		LogSQL:     c.LogSQL,
	}
}

func (c *CLI) redisConfig() redis.Config {
	return redis.Config{Addr: c.RedisAddr, Password: c.RedisPassword, DB: c.RedisDB}
}

func (c *CLI) roundConfig() engine.RoundConfig {
	cfg := engine.DefaultRoundConfig()
	cfg.CountdownSeconds = c.CountdownSeconds
	cfg.ResetDelay = c.ResetDelay
	return cfg
}

func (c *CLI) serverConfig() server.Config {
	return server.Config{Addr: c.HTTPAddr, AllowedOrigins: c.AllowedOrigins, Release: c.Release}
}

func (c *CLI) engineOptions(logger *log.Logger) []engine.Option {
	opts := []engine.Option{
		engine.WithConfig(c.roundConfig()),
		engine.WithLogger(logger),
		engine.WithEventQueue(c.EventQueue),
	}
	if c.Seed != 0 {
		opts = append(opts, engine.WithSeed(c.Seed))
	}
	return opts
}

func newLogger(level string) *log.Logger {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	return log.NewWithOptions(os.Stderr, log.Options{
		Level:           lvl,
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
	})
}
