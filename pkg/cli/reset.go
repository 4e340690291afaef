package cli

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/urfave/cli/v3"
)

var (
	forceFlag = &cli.BoolFlag{
		Name:  "force",
		Usage: "Skip the confirmation prompt",
	}

	resetCmd = &cli.Command{
		Name:            "reset",
		Usage:           "Delete all cached foods and searches and start fresh",
		HideHelpCommand: true,
		Flags:           []cli.Flag{forceFlag},
		Action:          cmdReset,
	}
)

func cmdReset(ctx context.Context, cmd *cli.Command) error {
	cfg := getConfig(cmd)

	if !cmd.Bool(forceFlag.Name) {
		fmt.Fprintf(cmd.Root().Writer, "This will permanently delete all cached data in %s\n", displayDSN(cfg.dsn))
		fmt.Fprint(cmd.Root().Writer, "Are you sure? [y/N]: ")

		answer, err := bufio.NewReader(cfg.In).ReadString('\n')
		if err != nil && answer == "" {
			return fmt.Errorf("reading input: %w", err)
		}

		if strings.ToLower(strings.TrimSpace(answer)) != "y" {
			fmt.Fprintln(cmd.Root().Writer, "Aborted.")
			return nil
		}
	}

	store, err := getStore(cmd)
	if err != nil {
		return err
	}

	if err := store.Reset(ctx); err != nil {
		return fmt.Errorf("resetting database: %w", err)
	}

	slog.Info("database reset", "dialect", store.Dialect())
	fmt.Fprintln(cmd.Root().Writer, "Reset complete.")
	return nil
}
