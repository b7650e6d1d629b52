/* compile augments the training split of a corpus and extracts the low level descriptors of every file.
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
package compile

import (
	"fmt"
	"math/rand"
	"path/filepath"

	"github.com/google-research/streamlined-genre/tools/augment"
	"github.com/google-research/streamlined-genre/tools/corpus"
	"github.com/google-research/streamlined-genre/tools/signals"
)

// SampleDecodeError is returned when a corpus file can't be decoded.
type SampleDecodeError struct {
	Path string
	Err  error
}

func (s *SampleDecodeError) Error() string {
	return fmt.Sprintf("cannot decode %q: %v", s.Path, s.Err)
}

func (s *SampleDecodeError) Unwrap() error {
	return s.Err
}

// DecodeFunc decodes the audio file at path into a buffer at rate.
type DecodeFunc func(path string, rate signals.Hz) (signals.Float64Slice, error)

// Scheduler writes augmented variants of samples as new corpus files.
type Scheduler struct {
	Pipeline *augment.Pipeline
	// Counter assigns the indices of the variants.
	Counter *corpus.Counter
	// Dir is where the variants are written.
	Dir  string
	Rate signals.Hz
	// Decode defaults to signals.ReadWAVFile.
	Decode DecodeFunc
}

// Schedule decodes sample once and writes n variants of it to Dir, each with a fresh
// index and the label of sample. Returns the written samples in variant order.
func (s *Scheduler) Schedule(rng *rand.Rand, sample corpus.Sample, n int) ([]corpus.Sample, error) {
	if n <= 0 {
		return []corpus.Sample{}, nil
	}
	decode := s.Decode
	if decode == nil {
		decode = signals.ReadWAVFile
	}
	buf, err := decode(sample.Path, s.Rate)
	if err != nil {
		return nil, &SampleDecodeError{Path: sample.Path, Err: err}
	}
	variants, err := s.Pipeline.Augment(rng, buf, n)
	if err != nil {
		return nil, fmt.Errorf("augmenting %q: %w", sample.Path, err)
	}
	result := make([]corpus.Sample, 0, len(variants))
	for _, variant := range variants {
		identity := corpus.Identity{
			Index: s.Counter.Next(),
			Label: sample.Label,
		}
		path := filepath.Join(s.Dir, identity.Filename())
		if err := variant.WriteWAVFile(path, s.Rate); err != nil {
			return nil, fmt.Errorf("writing variant of %q: %w", sample.Path, err)
		}
		result = append(result, corpus.Sample{
			Identity: identity,
			Path:     path,
		})
	}
	return result, nil
}
