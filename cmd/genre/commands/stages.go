/*
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
	"fmt"
	"io"

	"github.com/google-research/streamlined-genre/pipeline/classify"
	"github.com/google-research/streamlined-genre/pipeline/compile"
	"github.com/google-research/streamlined-genre/pipeline/config"
	"github.com/google-research/streamlined-genre/pipeline/quantize"
	"github.com/google-research/streamlined-genre/pipeline/stream"
	"github.com/google-research/streamlined-genre/tools/elar"
	"github.com/google-research/streamlined-genre/tools/external"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var transferCmd = &cobra.Command{
	Use:   "transfer",
	Short: "Convert the recordings of ELAR directories into the WAV corpus",
	Long: `Reads {Language}_ELAR_Directory.csv in every source directory and converts
Bundles/{title}/{recording}.sph to {index}__{genre}.wav in the WAV directory with sox.
Indices continue from the number of files already in the WAV directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return transfer(cmd.Context(), cfg)
	},
}

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Augment the train split and extract LLDs of every file with openSMILE",
	Long: `Splits the WAV corpus into train and test, writes augmented variants of every
train file to a temporary directory, and appends the LLDs and labels of the train
files, their variants round by round, and the test files to the compiled directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return extract(cmd.Context(), cfg, clean)
	},
}

var xbowCmd = &cobra.Command{
	Use:   "xbow",
	Short: "Quantize the LLDs into bags of words with openXBOW",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return xbow(cmd.Context(), cfg)
	},
}

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Train a linear SVM on the bags of words and print its accuracy",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return classifyBOWs(cmd.OutOrStdout(), cfg)
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run transfer (when sources are given), extract, xbow and classify",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if len(cfg.Sources) > 0 {
			if err := transfer(cmd.Context(), cfg); err != nil {
				return err
			}
		}
		if err := extract(cmd.Context(), cfg, clean); err != nil {
			return err
		}
		if err := xbow(cmd.Context(), cfg); err != nil {
			return err
		}
		return classifyBOWs(cmd.OutOrStdout(), cfg)
	},
}

func init() {
	addTransferFlags(transferCmd.Flags())
	addExtractFlags(extractCmd.Flags())
	addXBOWFlags(xbowCmd.Flags())
	addTransferFlags(runCmd.Flags())
	addExtractFlags(runCmd.Flags())
	addXBOWFlags(runCmd.Flags())
	rootCmd.AddCommand(transferCmd, extractCmd, xbowCmd, classifyCmd, runCmd)
}

func requireTool(binary string) error {
	if !external.Available(binary) {
		return fmt.Errorf("%q not found in PATH", binary)
	}
	return nil
}

func transfer(ctx context.Context, cfg *config.Config) error {
	if len(cfg.Sources) == 0 {
		return fmt.Errorf("no sources given, use --source or sources in the configuration")
	}
	if err := requireTool(cfg.Transfer.Sox); err != nil {
		return err
	}
	sources, err := elar.ExpandSources(cfg.Sources)
	if err != nil {
		return err
	}
	t := &elar.Transfer{
		Converter: &elar.Sox{Binary: cfg.Transfer.Sox},
		Dest:      cfg.WAVDir,
		Workers:   cfg.Transfer.Workers,
		Progress:  !noProgress,
	}
	n, err := t.Run(ctx, sources)
	if err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{
		"component": "genre",
		"path":      cfg.WAVDir,
	}).Infof("Transferred %v recordings", n)
	return nil
}

func extract(ctx context.Context, cfg *config.Config, clean bool) error {
	if err := requireTool(cfg.Extract.SMILExtract); err != nil {
		return err
	}
	if clean {
		if err := stream.Truncate(cfg.FileSystem().StreamFiles()...); err != nil {
			return err
		}
	}
	c := compile.New(cfg)
	c.Progress = !noProgress
	summary, err := c.Compile(ctx)
	if err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{
		"component": "genre",
		"run":       summary.Run,
	}).Infof("Extracted %v train instances (%v augmented) and %v test instances", summary.Train, summary.Augmented, summary.Test)
	return nil
}

func xbow(ctx context.Context, cfg *config.Config) error {
	if err := requireTool(cfg.XBOW.Java); err != nil {
		return err
	}
	return quantize.Quantize(ctx, cfg.FileSystem(), quantize.New(cfg, !noProgress))
}

func classifyBOWs(out io.Writer, cfg *config.Config) error {
	fs := cfg.FileSystem()
	result, err := classify.Classify(fs.XBOWTrainFile(), fs.XBOWTestFile(), classify.Params(cfg))
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Train accuracy: %v\nTest accuracy: %v\n", result.TrainAccuracy, result.TestAccuracy)
	return nil
}
