// Package config is for app wide settings that are unmarshalled
// from Viper (see: /cmd)
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Tools names the external binaries the pipeline shells out to. Values
// without a path separator are resolved via PATH.
type Tools struct {
	// greedy clustering and global similarity search
	Usearch string `mapstructure:"usearch"`

	// covariance-model alignment
	Cmalign string `mapstructure:"cmalign"`

	// MPI launcher wrapped around cmalign when MPI args are given
	Mpirun string `mapstructure:"mpirun"`

	// approximate maximum-likelihood trees
	FastTree string `mapstructure:"fasttree"`

	// reference package assembly
	Taxit string `mapstructure:"taxit"`

	// phylogenetic placement and its companion utilities
	Pplacer string `mapstructure:"pplacer"`
	Guppy   string `mapstructure:"guppy"`
	Rppr    string `mapstructure:"rppr"`

	// sequence fetch by name from indexed flat files
	EslSfetch string `mapstructure:"esl-sfetch"`
}

// Config is the root-level settings struct and is a mix of settings
// available in the optional config file, DEENURP_* environment variables,
// and command line arguments.
type Config struct {
	// covariance model consumed by the aligner; required for selection
	CMFile string `mapstructure:"cm-file"`

	Tools Tools `mapstructure:"tools"`
}

// SetDefaults registers the PATH-resolved tool names so a bare
// installation works without any config file.
func SetDefaults() {
	viper.SetDefault("tools.usearch", "usearch")
	viper.SetDefault("tools.cmalign", "cmalign")
	viper.SetDefault("tools.mpirun", "mpirun")
	viper.SetDefault("tools.fasttree", "FastTree")
	viper.SetDefault("tools.taxit", "taxit")
	viper.SetDefault("tools.pplacer", "pplacer")
	viper.SetDefault("tools.guppy", "guppy")
	viper.SetDefault("tools.rppr", "rppr")
	viper.SetDefault("tools.esl-sfetch", "esl-sfetch")
}

// NewConfig returns a new Config struct populated by Viper settings.
func NewConfig() (Config, error) {
	SetDefaults()

	var c Config
	if err := viper.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unable to decode settings: %w", err)
	}

	return c, nil
}
