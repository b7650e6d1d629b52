/* quantize turns the compiled feature streams into bags of words, building the codebook from the train split.
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
package quantize

import (
	"context"
	"fmt"

	"github.com/google-research/streamlined-genre/pipeline/config"
	"github.com/google-research/streamlined-genre/pipeline/stream"
	"github.com/google-research/streamlined-genre/tools/openxbow"
	"github.com/sirupsen/logrus"
)

// New returns the openXBOW quantizer of the configuration.
func New(cfg *config.Config, progress bool) *openxbow.Java {
	return &openxbow.Java{
		Java:     cfg.XBOW.Java,
		Jar:      cfg.XBOW.Jar,
		URL:      cfg.XBOW.URL,
		Memory:   cfg.XBOW.Memory,
		Progress: progress,
	}
}

// Jobs returns the train job, which creates the codebook, and the test job, which uses it.
func Jobs(fs config.FileSystem) []openxbow.Job {
	return []openxbow.Job{
		{
			LLDs:     fs.LLDTrainFile(),
			Labels:   fs.LabelsTrainFile(),
			Output:   fs.XBOWTrainFile(),
			Codebook: fs.CodebookFile(),
		},
		{
			LLDs:        fs.LLDTestFile(),
			Labels:      fs.LabelsTestFile(),
			Output:      fs.XBOWTestFile(),
			Codebook:    fs.CodebookFile(),
			UseCodebook: true,
		},
	}
}

// Quantize checks both splits before running any job, then runs the jobs in order.
func Quantize(ctx context.Context, fs config.FileSystem, quantizer openxbow.Quantizer) error {
	jobs := Jobs(fs)
	for _, job := range jobs {
		if err := stream.EnsurePair(job.LLDs, job.Labels); err != nil {
			return fmt.Errorf("cannot quantize: %w", err)
		}
	}
	for _, job := range jobs {
		log := logrus.WithFields(logrus.Fields{
			"component": "quantize",
			"path":      job.LLDs,
		})
		log.Info("Quantizing")
		if err := quantizer.Quantize(ctx, job); err != nil {
			return fmt.Errorf("quantizing %q: %w", job.LLDs, err)
		}
		log.WithField("output", job.Output).Info("Quantized")
	}
	return nil
}
