package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/fracheck/internal/dedupe"
	"github.com/ppiankov/fracheck/internal/logger"
	"github.com/ppiankov/fracheck/internal/model"
	"github.com/ppiankov/fracheck/internal/pipeline"
)

// Version is the release reported by `fracheck version`
const Version = "v0.3.0"

var (
	cfgFile   string
	verbose   bool
	logLevel  string
	logFormat string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "fracheck",
	Short: "fracheck - forest-rights claim validation and review",
	Long: `fracheck validates Forest Rights Act claim maps submitted as GeoJSON.

Each feature is measured, normalized, flagged and scored. Flags and scores
are review aids: they point reviewers at claims that need a closer look and
never decide whether a claim is legitimate.

fracheck also extracts claims from OCR text, finds likely duplicates and
keeps the version history of reviewed claims.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger.Setup(cfg.Log.Level, cfg.Log.Format)
		return nil
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("fracheck %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.fracheck/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (text, json)")

	// Bind flags to viper
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if err := registerDefaults(model.DefaultConfig()); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading defaults: %v\n", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}
		viper.AddConfigPath(filepath.Join(home, ".fracheck"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// FRACHECK_SERVER_ADDR overrides server.addr, and so on
	viper.SetEnvPrefix("FRACHECK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// registerDefaults makes every config key known to viper so that
// environment variables can override keys absent from the config file
func registerDefaults(cfg *model.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return err
	}
	setDefaults("", tree)
	return nil
}

func setDefaults(prefix string, tree map[string]any) {
	for k, v := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, err := cast.ToStringMapE(v); err == nil {
			setDefaults(key, sub)
			continue
		}
		viper.SetDefault(key, v)
	}
}

// loadConfig returns the defaults overlaid with the config file, environment
// and bound flags
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// newPipeline builds the validation pipeline described by cfg
func newPipeline(cfg *model.Config, log *slog.Logger) (*pipeline.Pipeline, error) {
	opts, err := pipeline.OptionsFromConfig(cfg, log)
	if err != nil {
		return nil, err
	}
	return pipeline.New(opts), nil
}

// newDetector builds the duplicate detector described by cfg
func newDetector(cfg *model.Config, log *slog.Logger) *dedupe.Detector {
	return dedupe.NewDetector(dedupe.Options{
		TextThreshold:   cfg.Duplicates.TextThreshold,
		DuplicateMeters: cfg.Duplicates.DuplicateMeters,
		ClusterMeters:   cfg.Duplicates.ClusterMeters,
		Workers:         cfg.Concurrency.Workers,
		Logger:          log,
	})
}
