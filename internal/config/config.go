// Package config assembles server settings from a .env file, the process
// environment and command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/erazemk/reconnect/internal/event"
	"github.com/erazemk/reconnect/internal/match"
)

// Config holds everything the server needs to start.
type Config struct {
	DBPath    string
	Addr      string
	AdminUser string
	LogPath   string
	LogLevel  slog.Level

	// Redis publishing is off when RedisAddr is empty.
	RedisAddr     string
	RedisPassword string
	RedisChannel  string

	// Sentry reporting is off when SentryDSN is empty.
	SentryDSN string
	Env       string

	MatchThreshold int
}

// IsDev reports whether the server runs in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "dev"
}

// Usage is the command-line help text.
const Usage = `Usage: reconnect [flags]

Flags:
  -d, -db <path>          SQLite database path (default: reconnect.sqlite3)
  -a, -addr <host:port>   listen address (default: :8080)
  -u, -user <name>        admin username on first run (default: Admin)
  -l, -log <path>         log file path (default: no file, stdout/stderr only)
  -h, -help               show this help and exit

Environment (flags win, a .env file in the working directory is read first):
  RECONNECT_DB, RECONNECT_ADDR, RECONNECT_ADMIN, RECONNECT_LOG
  LOG_LEVEL         debug, info, warn or error (default: info)
  MATCH_THRESHOLD   minimum match score, 1-100 (default: 55)
  REDIS_ADDR        publish domain events to Redis at this address
  REDIS_PASSWORD, REDIS_CHANNEL
  SENTRY_DSN        report errors to Sentry
  APP_ENV           environment name sent to Sentry (default: prod)
`

// ReadEnvFile returns the variables in a .env file. A missing file yields
// no variables.
func ReadEnvFile(path string) (map[string]string, error) {
	vars, err := godotenv.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return vars, nil
}

// Load builds the configuration. getenv looks up a variable, typically
// os.LookupEnv; dotenv supplies values the environment doesn't set.
// Parsing -h returns flag.ErrHelp after writing Usage to out.
func Load(args []string, getenv func(string) (string, bool), dotenv map[string]string, out io.Writer) (*Config, error) {
	get := func(key, def string) string {
		if v, ok := getenv(key); ok && v != "" {
			return v
		}
		if v, ok := dotenv[key]; ok && v != "" {
			return v
		}
		return def
	}

	cfg := &Config{
		RedisAddr:     get("REDIS_ADDR", ""),
		RedisPassword: get("REDIS_PASSWORD", ""),
		RedisChannel:  get("REDIS_CHANNEL", event.DefaultChannel),
		SentryDSN:     get("SENTRY_DSN", ""),
		Env:           get("APP_ENV", "prod"),
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(get("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	threshold, err := strconv.Atoi(get("MATCH_THRESHOLD", strconv.Itoa(match.DefaultThreshold)))
	if err != nil || threshold < 1 || threshold > 100 {
		return nil, fmt.Errorf("invalid MATCH_THRESHOLD %q: must be between 1 and 100", get("MATCH_THRESHOLD", ""))
	}
	cfg.MatchThreshold = threshold

	flags := flag.NewFlagSet("reconnect", flag.ContinueOnError)
	flags.SetOutput(out)

	dbPath := get("RECONNECT_DB", "reconnect.sqlite3")
	flags.StringVar(&cfg.DBPath, "db", dbPath, "")
	flags.StringVar(&cfg.DBPath, "d", dbPath, "")

	addr := get("RECONNECT_ADDR", ":8080")
	flags.StringVar(&cfg.Addr, "addr", addr, "")
	flags.StringVar(&cfg.Addr, "a", addr, "")

	adminUser := get("RECONNECT_ADMIN", "Admin")
	flags.StringVar(&cfg.AdminUser, "user", adminUser, "")
	flags.StringVar(&cfg.AdminUser, "u", adminUser, "")

	logPath := get("RECONNECT_LOG", "")
	flags.StringVar(&cfg.LogPath, "log", logPath, "")
	flags.StringVar(&cfg.LogPath, "l", logPath, "")

	flags.Usage = func() {
		fmt.Fprint(out, Usage)
	}

	if err := flags.Parse(args); err != nil {
		return nil, err
	}
	if flags.NArg() > 0 {
		flags.Usage()
		return nil, fmt.Errorf("unexpected argument: %s", flags.Arg(0))
	}

	cfg.AdminUser = strings.TrimSpace(cfg.AdminUser)
	if cfg.AdminUser == "" {
		return nil, errors.New("admin username must not be empty")
	}
	return cfg, nil
}
