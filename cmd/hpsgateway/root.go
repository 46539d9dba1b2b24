package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"hpsgateway/internal/common/fsutil"
	"hpsgateway/internal/config"
)

// app carries state resolved by the root command for its subcommands.
type app struct {
	configPath string
	envFile    string
	logLevel   string
	logFormat  string

	cfg config.Config
	log zerolog.Logger
	out io.Writer
}

func newRootCmd() *cobra.Command {
	a := &app{out: os.Stdout}
	root := &cobra.Command{
		Use:           "hpsgateway",
		Short:         "Gateway for the layout-parsing inference backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Config file (.yaml, .yml, .json, .toml)")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "Dotenv file loaded before reading HPS_* variables; missing file is ignored")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug|info|warn|error|off (overrides HPS_LOG_LEVEL)")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "json", "Log format: json|console")
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return a.resolve(cmd)
	}

	root.AddCommand(newServeCmd(a), newRestructureCmd(a), newProbeCmd(a))

	// completion command
	completionCmd := &cobra.Command{Use: "completion", Short: "Generate the autocompletion script for the specified shell"}
	completionCmd.AddCommand(&cobra.Command{Use: "bash", Short: "Bash completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenBashCompletion(a.out) }})
	completionCmd.AddCommand(&cobra.Command{Use: "zsh", Short: "Zsh completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenZshCompletion(a.out) }})
	completionCmd.AddCommand(&cobra.Command{Use: "fish", Short: "Fish completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenFishCompletion(a.out, true) }})
	root.AddCommand(completionCmd)
	return root
}

// resolve layers defaults, config file, dotenv + environment and flags into
// a.cfg and builds the process logger.
func (a *app) resolve(cmd *cobra.Command) error {
	envPath, ok, err := fsutil.OptionalFile(a.envFile)
	if err != nil {
		return fmt.Errorf("env file: %w", err)
	}
	if ok {
		if err := godotenv.Load(envPath); err != nil {
			return fmt.Errorf("load %s: %w", envPath, err)
		}
	}
	cfgPath, err := fsutil.ExpandHome(a.configPath)
	if err != nil {
		return err
	}
	cfg, err := config.Resolve(cfgPath, os.LookupEnv)
	if err != nil {
		return err
	}
	if err := applyFlags(cmd, &cfg); err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	a.log = newLogger(os.Stderr, cfg.LogLevel, a.logFormat)
	return nil
}

// newLogger builds the process logger. Unknown levels fall back to info.
func newLogger(w io.Writer, level, format string) zerolog.Logger {
	if strings.EqualFold(format, "console") {
		w = zerolog.ConsoleWriter{Out: w}
	}
	lvl := zerolog.InfoLevel
	switch l := strings.ToLower(strings.TrimSpace(level)); l {
	case "off", "disabled":
		lvl = zerolog.Disabled
	case "":
	default:
		if l == "warning" {
			l = "warn"
		}
		if parsed, err := zerolog.ParseLevel(l); err == nil {
			lvl = parsed
		}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Str("service", "hpsgateway").Logger()
}
