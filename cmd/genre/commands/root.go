/* commands contains the genre command line interface.
 *
 * Copyright 2020 Google LLC
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     https://www.apache.org/licenses/LICENSE-2.0
 *
 *     Unless required by applicable law or agreed to in writing, software
 *     distributed under the License is distributed on an "AS IS" BASIS,
 *     WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *     See the License for the specific language governing permissions and
 *     limitations under the License.
 */
package commands

import (
	"context"
	"os"
	"os/signal"

	"github.com/google-research/streamlined-genre/pipeline/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	configPath  string
	verbose     bool
	noProgress  bool
	sources     []string
	wavDir      string
	compiledDir string
	seed        int64

	numAugments     int
	augments        []string
	trainFraction   float64
	skipUndecodable bool
	clean           bool

	memory  string
	workers int
)

var rootCmd = &cobra.Command{
	Use:   "genre",
	Short: "Genre classification of field-linguistics recordings",
	Long: `genre turns ELAR language directories into a genre classifier in four stages:

  transfer   convert the recordings of ELAR directories into {index}__{label}.wav files
  extract    augment the train split and extract LLDs with openSMILE
  xbow       quantize the LLDs into bags of words with openXBOW
  classify   train a linear SVM on the bags of words and report accuracies

'genre run' runs all of them. Settings come from the defaults, overridden by the
YAML file given with --config, overridden by flags.

Examples:
  genre transfer -i elar/Dalabon -i 'elar/*' -w wavs
  genre extract -w wavs -o compiled -n 5 -a time_mask -a vtlp --clean
  genre xbow -o compiled -m 8G
  genre classify -o compiled`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command, cancelling it on interrupt.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initLogging)

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "f", "", "YAML configuration file")
	flags.BoolVarP(&verbose, "verbose", "v", false, "log debug messages")
	flags.BoolVar(&noProgress, "no-progress", false, "don't show progress bars")
	flags.StringVarP(&wavDir, "wavs", "w", "", "directory of the labelled WAV corpus")
	flags.StringVarP(&compiledDir, "compiled", "o", "", "directory of the compiled features, labels and bags of words")
}

func initLogging() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}
}

func addTransferFlags(flags *pflag.FlagSet) {
	flags.StringArrayVarP(&sources, "source", "i", nil, "ELAR directory or glob pattern, repeatable")
	flags.IntVar(&workers, "workers", 0, "concurrent conversions, 0 for one per CPU")
}

func addExtractFlags(flags *pflag.FlagSet) {
	flags.IntVarP(&numAugments, "num-augments", "n", 0, "augmented variants per training file (default 5)")
	flags.StringArrayVarP(&augments, "augments", "a", nil, "augmentation to choose from, repeatable (default all)")
	flags.Float64Var(&trainFraction, "train-percentage", 0, "fraction of the corpus used for training (default 0.75)")
	flags.Int64Var(&seed, "seed", 0, "seed of the partition and augmentations (default 440)")
	flags.BoolVar(&skipUndecodable, "skip-undecodable", false, "skip augmentation of training files that can't be decoded")
	flags.BoolVar(&clean, "clean", false, "remove previous features and labels first")
}

func addXBOWFlags(flags *pflag.FlagSet) {
	flags.StringVarP(&memory, "memory", "m", "", "JVM memory for openXBOW (default 12G)")
}

// loadConfig returns the configuration file, or the defaults, with the flags set on
// cmd applied.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return nil, err
		}
	}
	flags := cmd.Flags()
	for name, apply := range map[string]func(){
		"source":           func() { cfg.Sources = sources },
		"wavs":             func() { cfg.WAVDir = wavDir },
		"compiled":         func() { cfg.CompiledDir = compiledDir },
		"seed":             func() { cfg.Seed = seed },
		"workers":          func() { cfg.Transfer.Workers = workers },
		"num-augments":     func() { cfg.Extract.NumAugments = numAugments },
		"augments":         func() { cfg.Extract.Augments = augments },
		"train-percentage": func() { cfg.Extract.TrainFraction = trainFraction },
		"skip-undecodable": func() { cfg.Extract.SkipUndecodable = skipUndecodable },
		"memory":           func() { cfg.XBOW.Memory = memory },
	} {
		if flags.Changed(name) {
			apply()
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"component": "genre",
		"path":      configPath,
	}).Debugf("Configuration %+v", *cfg)
	return cfg, nil
}
