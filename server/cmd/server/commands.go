package main

import (
	"errors"
	"io"
	"io/fs"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/engagestory/engagestory/server/internal/config"
	"github.com/engagestory/engagestory/server/internal/inference"
	"github.com/engagestory/engagestory/server/internal/orchestrator"
)

const defaultConfigPath = "config.yaml"

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "engagestory",
		Short:        "Player engagement prediction service",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath, "path to config file")

	root.AddCommand(newServeCmd(&configPath), newPredictCmd(&configPath))
	return root
}

func newServeCmd(configPath *string) *cobra.Command {
	var uiDir string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, lifecycle stream and metrics endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), *configPath, uiDir)
		},
	}
	cmd.Flags().StringVar(&uiDir, "ui-dir", "", "serve the built frontend from this directory under /ui/; leave empty to disable")
	return cmd
}

func newPredictCmd(configPath *string) *cobra.Command {
	var opts predictOptions

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Score one game once and print the result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			explicit := cmd.Flags().Changed("config")
			cfg, err := loadConfig(*configPath, explicit)
			if err != nil {
				return err
			}
			return runPredict(cmd.Context(), cmd.OutOrStdout(), cfg, opts)
		},
	}
	f := cmd.Flags()
	f.Float64Var(&opts.input.Price, "price", 19.99, "base price in USD (0–150)")
	f.IntVar(&opts.input.DLCCount, "dlc", 0, "number of DLC packs (0–250)")
	f.IntVar(&opts.input.ReleaseYear, "year", 2026, "release year (2010–2030)")
	f.IntVar(&opts.input.MetacriticScore, "metacritic", 75, "Metacritic score (10–100)")
	f.BoolVar(&opts.offline, "offline", false, "skip the remote backend and use the local heuristic")
	f.BoolVar(&opts.asJSON, "json", false, "print the result as JSON")
	return cmd
}

// loadConfig reads path. A missing file at the default location is not an
// error: the built-in defaults apply and the remote backend stays offline.
func loadConfig(path string, explicit bool) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, nil
	}
	if !explicit && errors.Is(err, fs.ErrNotExist) {
		slog.Debug("no config file, using defaults", "path", path)
		return config.Default(), nil
	}
	return nil, err
}

// newRemote builds the inference client for cfg, or an always-unavailable
// stand-in when no endpoint is configured.
func newRemote(cfg config.InferenceConfig) orchestrator.Remote {
	if cfg.Endpoint == "" {
		return inference.Offline{}
	}
	return inference.New(cfg)
}

// newLogger installs a JSON slog handler on w at a level that can be
// changed at runtime.
func newLogger(w io.Writer, level slog.Level) *slog.LevelVar {
	lv := new(slog.LevelVar)
	lv.Set(level)
	installLogger(w, lv)
	return lv
}

// installLogger makes a JSON handler on w the slog default.
func installLogger(w io.Writer, level slog.Leveler) {
	slog.SetDefault(slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})))
}
