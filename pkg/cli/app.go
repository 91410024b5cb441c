package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mchmarny/admitguide/pkg/advisor"
	"github.com/mchmarny/admitguide/pkg/config"
	"github.com/mchmarny/admitguide/pkg/logging"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

const (
	appName      = "admitguide"
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
		Sources: cli.EnvVars("ADMITGUIDE_DEBUG"),
	}

	configFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to the config file (default: ~/.admitguide/config.yaml)",
		Sources: cli.EnvVars("ADMITGUIDE_CONFIG"),
	}

	modelFlag = &cli.StringFlag{
		Name:  "model",
		Usage: "Model artifact path or URL (overrides model.path)",
	}

	catalogFlag = &cli.StringFlag{
		Name:  "catalog",
		Usage: "Program catalog path or URL (overrides catalog.path)",
	}

	formatFlag = &cli.StringFlag{
		Name:  "format",
		Usage: "Output format [json, yaml]",
		Value: formatJSON,
	}
)

// Execute creates and runs the CLI application.
func Execute() {
	logging.SetDefault("info", logging.FormatText)

	app := newApp()
	if err := app.Run(context.Background(), os.Args); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

type appConfig struct {
	Config *config.Config
	Format string
}

func getConfig(cmd *cli.Command) *appConfig {
	return cmd.Root().Metadata[appConfigKey].(*appConfig)
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:                  appName,
		Version:               fmt.Sprintf("%s (%s - %s)", version, commit, date),
		EnableShellCompletion: true,
		HideHelpCommand:       true,
		Usage:                 "Admission probability and program matching for graduate applicants",
		Metadata:              map[string]any{},
		Flags: []cli.Flag{
			debugFlag,
			configFlag,
			modelFlag,
			catalogFlag,
			formatFlag,
		},
		Commands: []*cli.Command{
			serverCmd,
			predictCmd,
			searchCmd,
			evaluateCmd,
			indexCmd,
			feedbackCmd,
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			cfg, err := loadConfig(cmd.String(configFlag.Name))
			if err != nil {
				return ctx, err
			}
			if err := cfg.ApplyEnv(); err != nil {
				return ctx, err
			}
			if v := cmd.String(modelFlag.Name); v != "" {
				cfg.Model.Path = v
			}
			if v := cmd.String(catalogFlag.Name); v != "" {
				cfg.Catalog.Path = v
			}
			if cmd.Bool(debugFlag.Name) {
				cfg.Log.Level = "debug"
			}
			logging.SetDefault(cfg.Log.Level, cfg.Log.Format)

			f, err := parseFormat(cmd.String(formatFlag.Name))
			if err != nil {
				return ctx, err
			}

			cmd.Root().Metadata[appConfigKey] = &appConfig{
				Config: cfg,
				Format: f,
			}
			return ctx, nil
		},
	}
}

func parseFormat(v string) (string, error) {
	switch f := strings.ToLower(strings.TrimSpace(v)); f {
	case "", formatJSON:
		return formatJSON, nil
	case formatYAML, "yml":
		return formatYAML, nil
	default:
		return "", fmt.Errorf("unsupported output format %q, expected json or yaml", v)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}

	dir, _, err := config.GetOrCreateHomeDir(appName)
	if err != nil {
		slog.Debug("error getting home dir, using current dir instead", "error", err)
		dir = filepath.Join(".", "."+appName)
	}
	return config.ReadOrCreate(dir)
}

func newAdvisor(ctx context.Context, cmd *cli.Command, opts ...advisor.Option) (*advisor.Advisor, error) {
	a, err := advisor.New(ctx, getConfig(cmd).Config, opts...)
	if err != nil {
		return nil, fmt.Errorf("initializing: %w", err)
	}
	return a, nil
}

func encode(cmd *cli.Command, v any) error {
	w := writer(cmd)
	if getConfig(cmd).Format == formatYAML {
		return yaml.NewEncoder(w).Encode(v)
	}
	e := json.NewEncoder(w)
	e.SetIndent("", "  ")
	return e.Encode(v)
}

func writer(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

// parseSettings splits name=value pairs given through --set.
func parseSettings(pairs []string) (map[string]string, error) {
	values := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid setting %q, expected name=value", p)
		}
		values[k] = strings.TrimSpace(v)
	}
	if len(values) == 0 {
		return nil, errors.New("at least one --set name=value is required")
	}
	return values, nil
}
