package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mchmarny/nutctl/pkg/config"
	"github.com/mchmarny/nutctl/pkg/data"
	"github.com/mchmarny/nutctl/pkg/fdc"
	"github.com/mchmarny/nutctl/pkg/logging"
	"github.com/mchmarny/nutctl/pkg/net"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

const (
	appName      = "nutctl"
	appConfigKey = "app-config"

	formatJSON = "json"
	formatYAML = "yaml"
)

var (
	version = "v0.0.1-default"
	commit  = ""
	date    = ""

	debugFlag = &cli.BoolFlag{
		Name:    "debug",
		Usage:   "Prints verbose logs (optional, default: false)",
		Sources: cli.EnvVars("NUTCTL_DEBUG"),
	}

	dbFlag = &cli.StringFlag{
		Name:  "db",
		Usage: "Sqlite database file path or postgres:// DSN (default: $HOME/.nutctl/data.db)",
	}

	formatFlag = &cli.StringFlag{
		Name:  "format",
		Usage: "Output format [json, yaml]",
		Value: formatJSON,
	}

	apiKeyFlag = &cli.StringFlag{
		Name:    "api-key",
		Usage:   "FoodData Central API key (overrides config and keychain)",
		Sources: cli.EnvVars("FDC_API_KEY"),
	}
)

// Execute creates and runs the CLI application.
func Execute() {
	logging.SetDefaultCLILogger("info")

	if err := newApp(os.Stdout).Run(context.Background(), os.Args); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

type appConfig struct {
	Dir    string
	Config *config.Config
	Format string
	Debug  bool
	Out    io.Writer
	In     io.Reader

	dsn   string
	store *data.Store
}

func getConfig(cmd *cli.Command) *appConfig {
	return cmd.Root().Metadata[appConfigKey].(*appConfig)
}

// getStore opens the database on first use.
func getStore(cmd *cli.Command) (*data.Store, error) {
	cfg := getConfig(cmd)
	if cfg.store != nil {
		return cfg.store, nil
	}

	s, err := data.Open(cfg.dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	cfg.store = s
	return s, nil
}

// newFDCClient builds an API client from the resolved key and config.
func newFDCClient(cmd *cli.Command) (*fdc.Client, error) {
	cfg := getConfig(cmd)

	key, err := resolveAPIKey(cmd)
	if err != nil {
		return nil, err
	}

	return fdc.NewClient(key,
		fdc.WithBaseURL(cfg.Config.APIURL),
		fdc.WithTimeout(time.Duration(cfg.Config.TimeoutSeconds)*time.Second),
		fdc.WithBatchSize(cfg.Config.BatchSize),
		fdc.WithConcurrency(cfg.Config.Concurrency),
		fdc.WithDataTypes(cfg.Config.DataTypes()...),
	)
}

func newApp(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:                  appName,
		Version:               fmt.Sprintf("%s (%s - %s)", version, commit, date),
		EnableShellCompletion: true,
		HideHelpCommand:       true,
		Usage:                 "CLI for searching USDA FoodData Central and scoring foods against energy targets",
		Writer:                out,
		Metadata:              map[string]any{},
		Flags: []cli.Flag{
			debugFlag,
			dbFlag,
			formatFlag,
			apiKeyFlag,
		},
		Commands: []*cli.Command{
			keyCmd,
			configCmd,
			importCmd,
			queryCmd,
			energyCmd,
			scoreCmd,
			serverCmd,
			resetCmd,
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			net.SetVersion(version)

			dir, _, err := config.GetOrCreateHomeDir(appName)
			if err != nil {
				slog.Debug("error getting home dir, using current dir instead", "error", err)
				dir = "."
			}

			c, err := config.Load(ctx, dir)
			if err != nil {
				return ctx, fmt.Errorf("loading config: %w", err)
			}

			debug := cmd.Bool(debugFlag.Name)
			level := c.LogLevel
			if debug {
				level = "debug"
			}
			logging.SetDefaultCLILogger(level)

			format := strings.ToLower(cmd.String(formatFlag.Name))
			switch format {
			case formatJSON:
			case formatYAML, "yml":
				format = formatYAML
			default:
				return ctx, fmt.Errorf("unsupported output format: %s", format)
			}

			dsn := cmd.String(dbFlag.Name)
			if dsn == "" {
				dsn = c.DB
			}
			if dsn == "" {
				dsn = filepath.Join(dir, data.DataFileName)
			}

			in := cmd.Reader
			if in == nil {
				in = os.Stdin
			}

			cmd.Metadata[appConfigKey] = &appConfig{
				Dir:    dir,
				Config: c,
				Format: format,
				Debug:  debug,
				Out:    out,
				In:     in,
				dsn:    dsn,
			}
			slog.Debug("config loaded", "dir", dir, "dialect", data.DialectFor(dsn))
			return ctx, nil
		},
		After: func(_ context.Context, cmd *cli.Command) error {
			if cfg, ok := cmd.Metadata[appConfigKey].(*appConfig); ok && cfg.store != nil {
				if err := cfg.store.Close(); err != nil {
					return fmt.Errorf("closing database: %w", err)
				}
				cfg.store = nil
			}
			return nil
		},
	}
}

// displayDSN masks the password of a postgres DSN.
func displayDSN(dsn string) string {
	if data.DialectFor(dsn) != data.Postgres {
		return dsn
	}
	u, err := url.Parse(dsn)
	if err != nil {
		return "postgres"
	}
	return u.Redacted()
}

func encode(cmd *cli.Command, v any) error {
	cfg := getConfig(cmd)
	if cfg.Format == formatYAML {
		e := yaml.NewEncoder(cfg.Out)
		defer e.Close()
		if err := e.Encode(v); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		return nil
	}
	e := json.NewEncoder(cfg.Out)
	e.SetIndent("", "  ")
	if err := e.Encode(v); err != nil {
		return fmt.Errorf("encoding json: %w", err)
	}
	return nil
}
