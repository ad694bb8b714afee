// config.go
//
// Command line and environment configuration.
// Every flag can also be set from the environment as FLICKLE_<FLAG> (dashes
// become underscores). The older unprefixed names from .env files (PORT,
// JWT_SECRET, DAILY_SALT, ...) are still honoured.

package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/robalobadob/flickle/internal/content"
	"github.com/robalobadob/flickle/internal/daily"
	"github.com/robalobadob/flickle/internal/httpserver"
)

const releaseVersion = "0.4.0"

type Config struct {
	// shared
	dbPath    string
	salt      string
	catalogue string
	logLevel  string
	pretty    bool

	// serve
	bind         string
	port         int
	databaseURL  string
	jwtSecret    string
	jwtDays      int
	cookieName   string
	clientOrigin string
	secure       bool
	sessionTTL   time.Duration

	// play
	mode  string
	date  string
	round int
}

// legacyEnv maps flags to the unprefixed variable names of older deployments.
var legacyEnv = map[string]string{
	"port":             "PORT",
	"db":               "DB_PATH",
	"database-url":     "DATABASE_URL",
	"salt":             "DAILY_SALT",
	"jwt-secret":       "JWT_SECRET",
	"jwt-expires-days": "JWT_EXPIRES_DAYS",
	"cookie-name":      "COOKIE_NAME",
	"client-origin":    "CLIENT_ORIGIN",
	"log-level":        "LOG_LEVEL",
}

func (c *Config) validate() error {
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if strings.TrimSpace(c.salt) == "" {
		return errors.New("--salt must not be empty")
	}
	if _, err := zerolog.ParseLevel(c.logLevel); err != nil {
		return fmt.Errorf("invalid --log-level %q", c.logLevel)
	}
	if c.jwtDays < 1 {
		return fmt.Errorf("invalid --jwt-expires-days: %d", c.jwtDays)
	}
	if c.sessionTTL < time.Minute {
		return fmt.Errorf("--session-ttl must be at least 1m, got %s", c.sessionTTL)
	}
	if c.date != "" {
		if _, err := daily.ParseDateKey(c.date); err != nil {
			return fmt.Errorf("invalid --date %q (want YYYY-MM-DD)", c.date)
		}
	}
	if c.round < 0 || c.round > content.MaxRound {
		return fmt.Errorf("invalid --round (must be between 0-%d inclusive): %d", content.MaxRound, c.round)
	}
	return nil
}

func (c *Config) addr() string { return fmt.Sprintf("%s:%d", c.bind, c.port) }

func (c *Config) httpConfig() httpserver.Config {
	return httpserver.Config{
		JWTSecret:    c.jwtSecret,
		JWTExpiry:    time.Duration(c.jwtDays) * 24 * time.Hour,
		CookieName:   c.cookieName,
		ClientOrigin: c.clientOrigin,
		Secure:       c.secure,
	}
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("FLICKLE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "flickle",
		Short:         "Daily movie guessing games: a letter puzzle and seven clue games on one engine.",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		Version:       releaseVersion,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			setupLogging(cfg)
			return nil
		},
	}

	pfs := cmd.PersistentFlags()
	pfs.StringVar(&cfg.dbPath, "db", "./data/app.db", "path to the SQLite database (env: FLICKLE_DB)")
	pfs.StringVar(&cfg.salt, "salt", "local_dev_salt", "secret salt for daily puzzle selection (env: FLICKLE_SALT)")
	pfs.StringVar(&cfg.catalogue, "catalogue", "", "puzzle catalogue JSON file; empty uses the built-in one (env: FLICKLE_CATALOGUE)")
	pfs.StringVar(&cfg.logLevel, "log-level", "info", "log level: debug, info, warn, error (env: FLICKLE_LOG_LEVEL)")
	pfs.BoolVar(&cfg.pretty, "pretty", false, "human-readable console logs (env: FLICKLE_PRETTY)")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), cfg)
		},
	}
	fs := serve.Flags()
	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: FLICKLE_BIND)")
	fs.IntVarP(&cfg.port, "port", "p", 5175, "port to listen on (env: FLICKLE_PORT)")
	fs.StringVar(&cfg.databaseURL, "database-url", "", "Postgres URL for account stats; empty keeps them in SQLite (env: FLICKLE_DATABASE_URL)")
	fs.StringVar(&cfg.jwtSecret, "jwt-secret", "dev_secret_change_me", "HS256 secret for auth tokens (env: FLICKLE_JWT_SECRET)")
	fs.IntVar(&cfg.jwtDays, "jwt-expires-days", 14, "auth token lifetime in days (env: FLICKLE_JWT_EXPIRES_DAYS)")
	fs.StringVar(&cfg.cookieName, "cookie-name", "flickle_token", "auth cookie name (env: FLICKLE_COOKIE_NAME)")
	fs.StringVar(&cfg.clientOrigin, "client-origin", "http://localhost:5173", "allowed CORS origin (env: FLICKLE_CLIENT_ORIGIN)")
	fs.BoolVar(&cfg.secure, "secure", false, "Secure, SameSite=None cookies for HTTPS deployments (env: FLICKLE_SECURE)")
	fs.DurationVar(&cfg.sessionTTL, "session-ttl", 2*time.Hour, "time before idle rounds are dropped (env: FLICKLE_SESSION_TTL)")

	play := &cobra.Command{
		Use:   "play",
		Short: "Play a round in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(cmd.Context(), cfg, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	fs = play.Flags()
	fs.StringVarP(&cfg.mode, "mode", "m", "flickle", "mode to play, see: flickle modes (env: FLICKLE_MODE)")
	fs.StringVarP(&cfg.date, "date", "d", "", "puzzle date YYYY-MM-DD; empty is today (env: FLICKLE_DATE)")
	fs.IntVarP(&cfg.round, "round", "r", 0, "round of the day; 0 is the daily puzzle (env: FLICKLE_ROUND)")

	modes := &cobra.Command{
		Use:   "modes",
		Short: "List the modes of the catalogue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runModes(cfg, cmd.OutOrStdout())
		},
	}

	for _, c := range []*cobra.Command{cmd, serve, play, modes} {
		bindEnv(v, c.Flags())
		bindEnv(v, c.PersistentFlags())
		c.SilenceErrors = true
		c.SilenceUsage = true
	}
	cmd.AddCommand(serve, play, modes)

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("flickle v{{.Version}}\n")

	return cmd
}

// bindEnv lets the environment fill in flags that were not given.
func bindEnv(v *viper.Viper, fs *pflag.FlagSet) {
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})
	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		names := []string{f.Name, "FLICKLE_" + strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))}
		if old, ok := legacyEnv[f.Name]; ok {
			names = append(names, old)
		}
		_ = v.BindEnv(names...)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})
}
