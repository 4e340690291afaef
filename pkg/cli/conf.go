package cli

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/mchmarny/nutctl/pkg/config"
	"github.com/urfave/cli/v3"
)

var configCmd = &cli.Command{
	Name:            "config",
	HideHelpCommand: true,
	Usage:           "Show or persist the effective configuration",
	Commands: []*cli.Command{
		{
			Name:   "show",
			Usage:  "Print the effective configuration (API key redacted)",
			Action: cmdShowConfig,
		},
		{
			Name:   "save",
			Usage:  fmt.Sprintf("Write the effective configuration to $HOME/.%s/%s", appName, config.FileName),
			Action: cmdSaveConfig,
		},
	},
}

func cmdShowConfig(_ context.Context, cmd *cli.Command) error {
	return encode(cmd, getConfig(cmd).Config.Redacted())
}

func cmdSaveConfig(_ context.Context, cmd *cli.Command) error {
	cfg := getConfig(cmd)

	// the key belongs in the keychain, not in a plain file
	c := *cfg.Config
	c.APIKey = ""

	if err := config.Save(cfg.Dir, &c); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	p := filepath.Join(cfg.Dir, config.FileName)
	slog.Info("config saved", "path", p)
	return encode(cmd, map[string]string{"path": p})
}
