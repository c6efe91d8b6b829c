// Package cmd is for command line interactions with the deenurp pipeline
package cmd

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/nhoffman/deenurp/logger"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "deenurp",
	Short: "Select reference sequences for phylogenetic placement",
	Long: `deenurp selects representative reference sequences for building
phylogenetic reference packages. "search-sequences" matches weighted query
reads against clustered references and records the hits in a SQLite
database; "select-references" walks the hit clusters by total weight and
keeps the references that best cover each cluster's reads.`,
	Version:       "0.2.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logger.Fatal("command failed", zap.Error(err))
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a config file")
	rootCmd.PersistentFlags().String("cm-file", "", "covariance model used for alignment")

	viper.BindPFlag("cm-file", rootCmd.PersistentFlags().Lookup("cm-file"))
}

// initConfig runs after flag parsing and before any subcommand.
func initConfig() {
	if err := logger.InitLogger(verbose); err != nil {
		panic(err)
	}

	// Try load env
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env found, using local environment")
	}

	// the environment supplies the covariance model when no flag or
	// config file names one
	if cm := os.Getenv("DEENURP_CM"); cm != "" {
		viper.SetDefault("cm-file", cm)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			logger.Fatal("failed to read config file", zap.String("config", cfgFile), zap.Error(err))
		}
		logger.Debug("loaded config file", zap.String("config", viper.ConfigFileUsed()))
	}
}
