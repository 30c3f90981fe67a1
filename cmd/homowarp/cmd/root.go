package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/MeKo-Tech/homowarp/internal/config"
	"github.com/MeKo-Tech/homowarp/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// app carries the configuration state shared by one command tree.
type app struct {
	loader  *config.Loader
	cfg     *config.Config
	cfgFile string
}

// rootCmd is the command tree used by main.
var rootCmd = NewRootCommand()

// NewRootCommand builds a fresh homowarp command tree with its own viper
// instance, so repeated in-process executions do not share flag state.
func NewRootCommand() *cobra.Command {
	a := &app{loader: config.NewLoaderWithViper(viper.New())}

	root := &cobra.Command{
		Use:   "homowarp",
		Short: "Perspective correction with a four-point homography",
		Long: `homowarp estimates the 3x3 projective transform that maps four source
points onto four destination points and uses it to resample an image.

Points are written "x,y;x,y;x,y;x,y" and ordered top-left, top-right,
bottom-left, bottom-right.

Examples:
  homowarp estimate --src "559,529;2041,349;573,1733;2053,1887" --dst "0,0;1023,0;0,767;1023,767"
  homowarp warp photo.jpg -o flat.png --width 1024 --height 768
  homowarp batch scans/ --output-dir flat/ --jobs 4
  homowarp serve --port 8080`,
		Version:       version.String(),
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(); err != nil {
				return err
			}
			setupLogging(cmd.ErrOrStderr(), a.cfg)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "",
		"config file (default is homowarp.yaml in ., $HOME, $XDG_CONFIG_HOME/homowarp, /etc/homowarp)")
	root.PersistentFlags().BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	v := a.loader.GetViper()
	_ = v.BindPFlag("verbose", root.PersistentFlags().Lookup("verbose"))
	_ = v.BindPFlag("log_level", root.PersistentFlags().Lookup("log-level"))

	root.AddCommand(
		newEstimateCommand(a),
		newWarpCommand(a),
		newBatchCommand(a),
		newServeCommand(a),
		newConfigCommand(a),
	)
	return root
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// GetRootCommand returns the root command for testing purposes.
// This allows tests to execute commands without calling os.Exit().
func GetRootCommand() *cobra.Command {
	return rootCmd
}

// load reads config file, environment and bound flags once.
func (a *app) load() error {
	return a.loadWith(a.loader.LoadWithFile)
}

// loadUnvalidated is load without Validate, for commands that repair or
// inspect a broken configuration.
func (a *app) loadUnvalidated() error {
	return a.loadWith(a.loader.LoadWithFileWithoutValidation)
}

func (a *app) loadWith(fn func(string) (*config.Config, error)) error {
	if a.cfg != nil {
		return nil
	}
	cfg, err := fn(a.cfgFile)
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}
	a.cfg = cfg
	return nil
}

// settings returns the loaded configuration, or defaults before PersistentPreRun.
func (a *app) settings() *config.Config {
	if a.cfg == nil {
		cfg := config.DefaultConfig()
		return &cfg
	}
	return a.cfg
}

// setupLogging installs a JSON slog handler at the configured level.
func setupLogging(w io.Writer, cfg *config.Config) {
	var logLevel slog.Level
	if cfg.Verbose {
		logLevel = slog.LevelDebug
	} else {
		switch cfg.LogLevel {
		case "debug":
			logLevel = slog.LevelDebug
		case "warn":
			logLevel = slog.LevelWarn
		case "error":
			logLevel = slog.LevelError
		default:
			logLevel = slog.LevelInfo
		}
	}

	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)
}
