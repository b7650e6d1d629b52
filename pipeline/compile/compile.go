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
package compile

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"

	"github.com/cheggaaa/pb"
	"github.com/google-research/streamlined-genre/pipeline/config"
	"github.com/google-research/streamlined-genre/pipeline/stream"
	"github.com/google-research/streamlined-genre/tools/augment"
	"github.com/google-research/streamlined-genre/tools/corpus"
	"github.com/google-research/streamlined-genre/tools/opensmile"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Summary counts the instances written by a compilation.
type Summary struct {
	// Train includes the augmented instances.
	Train     int
	Augmented int
	Test      int
	// Run identifies the compilation in logs.
	Run string
}

// Compiler splits the corpus, augments the train split and extracts features of both splits.
type Compiler struct {
	Config    *config.Config
	Extractor opensmile.Extractor
	// Rand is used if set, otherwise a source seeded with Config.Seed.
	Rand     *rand.Rand
	Decode   DecodeFunc
	Progress bool
}

// New returns a compiler running SMILExtract as configured.
func New(cfg *config.Config) *Compiler {
	return &Compiler{
		Config:    cfg,
		Extractor: opensmile.New(cfg.Extract.SMILExtract, cfg.Extract.SMILEConfig, cfg.Extract.SMILEOptions),
	}
}

type split struct {
	name    string
	samples []corpus.Sample
	llds    string
	labels  string
}

// Compile appends the features and labels of the train split, followed by its
// augmented variants round by round, and then of the test split, to the compiled
// directory.
func (c *Compiler) Compile(ctx context.Context) (*Summary, error) {
	cfg := c.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	pipeline, err := augment.New(cfg.Extract.Augments, cfg.Rate())
	if err != nil {
		return nil, err
	}
	fs := cfg.FileSystem()
	if err := fs.EnsureCompiledDir(); err != nil {
		return nil, err
	}
	samples, err := corpus.List(fs.WAVDir)
	if err != nil {
		return nil, fmt.Errorf("listing corpus: %w", err)
	}
	summary := &Summary{Run: uuid.NewString()}
	log := logrus.WithFields(logrus.Fields{
		"component": "compile",
		"run":       summary.Run,
	})
	rng := c.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(cfg.Seed))
	}
	partition, err := corpus.Partition(rng, samples, cfg.Extract.TrainFraction)
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"samples": len(samples),
		"train":   len(partition.Train),
		"test":    len(partition.Test),
	}).Info("Partitioned corpus")

	scratch, err := os.MkdirTemp(cfg.Extract.ScratchDir, "genre-augments-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(scratch)

	rounds, err := c.augment(rng, log, pipeline, partition.Train, corpus.NextIndex(samples), scratch)
	if err != nil {
		return nil, err
	}
	train := append([]corpus.Sample{}, partition.Train...)
	for _, round := range rounds {
		train = append(train, round...)
		summary.Augmented += len(round)
	}

	splits := []split{
		{name: "train", samples: train, llds: fs.LLDTrainFile(), labels: fs.LabelsTrainFile()},
		{name: "test", samples: partition.Test, llds: fs.LLDTestFile(), labels: fs.LabelsTestFile()},
	}
	var bar *pb.ProgressBar
	if c.Progress {
		bar = pb.StartNew(len(train) + len(partition.Test)).Prefix("Extracting")
		defer bar.Finish()
	}
	for _, s := range splits {
		if err := c.extract(ctx, log, s, bar); err != nil {
			return nil, err
		}
	}
	summary.Train = len(train)
	summary.Test = len(partition.Test)
	log.WithFields(logrus.Fields{
		"train":     summary.Train,
		"augmented": summary.Augmented,
		"test":      summary.Test,
	}).Info("Compiled features")
	return summary, nil
}

// augment returns the variants of the train samples grouped by round, so that round r
// holds the r'th variant of every sample that could be decoded.
func (c *Compiler) augment(rng *rand.Rand, log *logrus.Entry, pipeline *augment.Pipeline, train []corpus.Sample, firstIndex int, dir string) ([][]corpus.Sample, error) {
	n := c.Config.Extract.NumAugments
	rounds := make([][]corpus.Sample, n)
	if n == 0 || len(train) == 0 {
		return rounds, nil
	}
	scheduler := &Scheduler{
		Pipeline: pipeline,
		Counter:  corpus.NewCounter(firstIndex),
		Dir:      dir,
		Rate:     c.Config.Rate(),
		Decode:   c.Decode,
	}
	var bar *pb.ProgressBar
	if c.Progress {
		bar = pb.StartNew(len(train)).Prefix("Augmenting")
		defer bar.Finish()
	}
	for _, sample := range train {
		variants, err := scheduler.Schedule(rng, sample, n)
		decodeErr := &SampleDecodeError{}
		if errors.As(err, &decodeErr) && c.Config.Extract.SkipUndecodable {
			log.WithField("path", decodeErr.Path).WithError(decodeErr.Err).Warn("Skipping augmentation of undecodable sample")
		} else if err != nil {
			return nil, err
		}
		for r, variant := range variants {
			rounds[r] = append(rounds[r], variant)
		}
		if bar != nil {
			bar.Increment()
		}
	}
	return rounds, nil
}

func (c *Compiler) extract(ctx context.Context, log *logrus.Entry, s split, bar *pb.ProgressBar) error {
	labels, err := stream.OpenLabels(s.labels)
	if err != nil {
		return err
	}
	defer labels.Close()
	for _, sample := range s.samples {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := sample.Name()
		if err := labels.Record(name, sample.Label); err != nil {
			return err
		}
		if err := c.Extractor.Extract(ctx, sample.Path, s.llds, name); err != nil {
			return fmt.Errorf("extracting %s instance %v from %q: %w", s.name, name, sample.Path, err)
		}
		log.WithFields(logrus.Fields{
			"split":    s.name,
			"instance": name,
			"path":     sample.Path,
		}).Debug("Extracted")
		if bar != nil {
			bar.Increment()
		}
	}
	return labels.Close()
}
