package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mchmarny/nutctl/pkg/fdc"
	"github.com/urfave/cli/v3"
	"github.com/zalando/go-keyring"
)

const (
	keyFileName    = "api_key"
	keyringService = "nutctl"
	keyringUser    = "fdc_api_key"
	keyFileMode    = 0600

	sourceFlag    = "flag"
	sourceConfig  = "config"
	sourceKeyring = "keychain"
	sourceFile    = "file"
)

var (
	keyValueFlag = &cli.StringFlag{
		Name:  "value",
		Usage: "API key value (prompted when omitted)",
	}

	keyCmd = &cli.Command{
		Name:            "key",
		HideHelpCommand: true,
		Usage:           "Manage the FoodData Central API key (get one at https://fdc.nal.usda.gov/api-key-signup)",
		Commands: []*cli.Command{
			{
				Name:   "set",
				Usage:  "Save the API key to the OS keychain",
				Flags:  []cli.Flag{keyValueFlag},
				Action: cmdSetKey,
			},
			{
				Name:   "status",
				Usage:  "Show where the API key is resolved from",
				Action: cmdKeyStatus,
			},
			{
				Name:   "delete",
				Usage:  "Remove the stored API key",
				Action: cmdDeleteKey,
			},
		},
	}
)

// KeyStatus describes the resolved API key.
type KeyStatus struct {
	Found  bool   `json:"found" yaml:"found"`
	Source string `json:"source,omitempty" yaml:"source,omitempty"`
	Key    string `json:"key,omitempty" yaml:"key,omitempty"`
}

func cmdSetKey(_ context.Context, cmd *cli.Command) error {
	cfg := getConfig(cmd)

	key := strings.TrimSpace(cmd.String(keyValueFlag.Name))
	if key == "" {
		fmt.Fprint(cmd.Root().ErrWriter, "FoodData Central API key: ")
		line, err := bufio.NewReader(cfg.In).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("reading user input: %w", err)
		}
		key = strings.TrimSpace(line)
	}
	if key == "" {
		return fdc.ErrAPIKeyRequired
	}

	source, err := saveAPIKey(cfg.Dir, key)
	if err != nil {
		return fmt.Errorf("saving key: %w", err)
	}

	slog.Info("API key saved", "source", source)
	return encode(cmd, &KeyStatus{Found: true, Source: source, Key: redactKey(key)})
}

func cmdKeyStatus(_ context.Context, cmd *cli.Command) error {
	key, source := lookupAPIKey(cmd)
	if key == "" {
		return encode(cmd, &KeyStatus{})
	}
	return encode(cmd, &KeyStatus{Found: true, Source: source, Key: redactKey(key)})
}

func cmdDeleteKey(_ context.Context, cmd *cli.Command) error {
	cfg := getConfig(cmd)

	if err := keyring.Delete(keyringService, keyringUser); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		slog.Warn("keychain unavailable", "error", err)
	}

	p := filepath.Join(cfg.Dir, keyFileName)
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("deleting key file %s: %w", p, err)
	}

	slog.Info("API key deleted")
	return nil
}

// resolveAPIKey returns the key from, in order, the --api-key flag, config
// (NUTCTL_API_KEY or .env), the OS keychain, and the key file.
func resolveAPIKey(cmd *cli.Command) (string, error) {
	key, source := lookupAPIKey(cmd)
	if key == "" {
		return "", fmt.Errorf("%w: run '%s key set' or set NUTCTL_API_KEY", fdc.ErrAPIKeyRequired, appName)
	}
	slog.Debug("API key resolved", "source", source)
	return key, nil
}

func lookupAPIKey(cmd *cli.Command) (key, source string) {
	if key = strings.TrimSpace(cmd.String(apiKeyFlag.Name)); key != "" {
		return key, sourceFlag
	}

	cfg := getConfig(cmd)
	if key = strings.TrimSpace(cfg.Config.APIKey); key != "" {
		return key, sourceConfig
	}

	if key, err := keyring.Get(keyringService, keyringUser); err == nil && strings.TrimSpace(key) != "" {
		return strings.TrimSpace(key), sourceKeyring
	}

	if key, err := readAPIKeyFile(cfg.Dir); err == nil && key != "" {
		return key, sourceFile
	}

	return "", ""
}

// saveAPIKey stores key in the keychain, falling back to a 0600 file.
func saveAPIKey(dir, key string) (string, error) {
	if err := keyring.Set(keyringService, keyringUser, key); err != nil {
		slog.Warn("keychain unavailable, falling back to file", "error", err)
		if err := writeKeyFile(dir, key); err != nil {
			return "", err
		}
		return sourceFile, nil
	}

	// clean up file left from an earlier fallback
	_ = os.Remove(filepath.Join(dir, keyFileName)) //nolint:errcheck // usually absent

	return sourceKeyring, nil
}

func writeKeyFile(dir, key string) error {
	p := filepath.Join(dir, keyFileName)
	if err := os.WriteFile(p, []byte(key), keyFileMode); err != nil {
		return fmt.Errorf("writing key file %s: %w", p, err)
	}
	return nil
}

func readAPIKeyFile(dir string) (string, error) {
	p := filepath.Join(dir, keyFileName)
	b, err := os.ReadFile(p)
	if err != nil {
		return "", fmt.Errorf("reading key file %s: %w", p, err)
	}
	return strings.TrimSpace(string(b)), nil
}

func redactKey(key string) string {
	const visible = 4
	if len(key) <= visible {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", len(key)-visible) + key[len(key)-visible:]
}
