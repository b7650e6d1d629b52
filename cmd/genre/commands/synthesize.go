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
	"fmt"

	"github.com/google-research/streamlined-genre/tools/signals"
	"github.com/google-research/streamlined-genre/tools/synthesize"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	synthLabels   []string
	synthPerLabel int
	synthDuration float64
)

var synthesizeCmd = &cobra.Command{
	Use:   "synthesize",
	Short: "Write a synthetic labelled corpus to the WAV directory",
	Long: `Writes --per-label files of every label to the WAV directory. Every label gets
its own tone and noise band, so the pipeline can be smoke tested end to end without
ELAR recordings.

Example:
  genre synthesize -w wavs --labels Narrative,Song,Oratory --per-label 20`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if synthPerLabel <= 0 || synthDuration <= 0 {
			return fmt.Errorf("--per-label and --duration must be positive")
		}
		samples, err := synthesize.Corpus(cfg.WAVDir, synthesize.Spec{
			Labels:   synthLabels,
			PerLabel: synthPerLabel,
			Duration: signals.Seconds(synthDuration),
			Rate:     cfg.Rate(),
			Seed:     cfg.Seed,
		})
		if err != nil {
			return err
		}
		logrus.WithFields(logrus.Fields{
			"component": "genre",
			"path":      cfg.WAVDir,
		}).Infof("Synthesized %v files", len(samples))
		return nil
	},
}

func init() {
	flags := synthesizeCmd.Flags()
	flags.StringSliceVar(&synthLabels, "labels", []string{"Narrative", "Song", "Procedural-text"}, "labels to synthesize")
	flags.IntVar(&synthPerLabel, "per-label", 10, "files per label")
	flags.Float64Var(&synthDuration, "duration", 2, "seconds per file")
	flags.Int64Var(&seed, "seed", 0, "seed of the noise (default 440)")
	rootCmd.AddCommand(synthesizeCmd)
}
