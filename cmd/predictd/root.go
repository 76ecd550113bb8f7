package main

import (
	"github.com/spf13/cobra"

	"predictd/internal/config"
)

// newRootCmd builds the command tree. Running the root command without a
// subcommand serves, so `predictd` and `predictd serve` are equivalent.
func newRootCmd(getenv func(string) string) *cobra.Command {
	root := &cobra.Command{
		Use:           "predictd",
		Short:         "Serve image classification models over HTTP",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "Config file (.yaml, .yml, .json or .toml)")
	pf.String("addr", "", "Listen host (default 0.0.0.0, env PREDICTD_ADDR)")
	pf.Int("port", 0, "Listen port (default 8000, env PORT or PREDICTD_PORT)")
	pf.String("models-dir", "", "Directory holding model artifacts (default models)")
	pf.String("temp-dir", "", "Directory for staged uploads (default temp)")
	pf.Int("max-upload-mb", 0, "Per-file upload limit in MB (default 10)")
	pf.Int("workers", 0, "Concurrent inference workers (default number of CPUs)")
	pf.Int("queue-depth", 0, "Inference jobs allowed to wait for a worker (default 32)")
	pf.Int("max-wait-seconds", 0, "How long a request waits for a queue slot before 429 (default 30)")
	pf.Int("infer-timeout-seconds", 0, "Per-request prediction timeout, 0 disables")
	pf.String("log-level", "", "Log level: debug|info|warn|error (default info)")
	pf.String("log-format", "", "Log format: json|console (default json)")
	pf.String("cors-origins", "", "Comma-separated allowed CORS origins (default *)")
	pf.String("history-dsn", "", "SQLite file for prediction history; empty disables it")
	pf.String("redis-addr", "", "Redis address for registry events; empty disables it")
	pf.String("preload", "", "Comma-separated model ids to load at startup")

	serve := func(cmd *cobra.Command, args []string) error {
		cfg, err := resolveConfig(cmd, getenv)
		if err != nil {
			return err
		}
		log, err := newLogger(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
		if err != nil {
			return err
		}
		return runServe(cmd.Context(), cfg, log)
	}
	root.RunE = serve
	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE:  serve,
	})
	root.AddCommand(newCheckCmd(getenv))
	return root
}

// resolveConfig applies defaults, the config file, the environment and
// finally explicitly set flags, then validates the result.
func resolveConfig(cmd *cobra.Command, getenv func(string) string) (config.Config, error) {
	flags := cmd.Flags()
	path, _ := flags.GetString("config")
	cfg, err := config.Resolve(path, getenv)
	if err != nil {
		return cfg, err
	}
	var over config.Config
	over.Addr, _ = flags.GetString("addr")
	over.Port, _ = flags.GetInt("port")
	over.ModelsDir, _ = flags.GetString("models-dir")
	over.TempDir, _ = flags.GetString("temp-dir")
	over.MaxUploadMB, _ = flags.GetInt("max-upload-mb")
	over.Workers, _ = flags.GetInt("workers")
	over.QueueDepth, _ = flags.GetInt("queue-depth")
	over.MaxWaitSeconds, _ = flags.GetInt("max-wait-seconds")
	over.InferTimeoutSeconds, _ = flags.GetInt("infer-timeout-seconds")
	over.LogLevel, _ = flags.GetString("log-level")
	over.LogFormat, _ = flags.GetString("log-format")
	over.HistoryDSN, _ = flags.GetString("history-dsn")
	over.RedisAddr, _ = flags.GetString("redis-addr")
	if v, _ := flags.GetString("cors-origins"); v != "" {
		over.CORSOrigins = config.SplitCSV(v)
	}
	if v, _ := flags.GetString("preload"); v != "" {
		over.Preload = config.SplitCSV(v)
	}
	cfg = config.Merge(cfg, over)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
