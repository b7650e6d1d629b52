/* synthesize generates labelled corpora of band limited noise and tones, for smoke testing the pipeline.
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
package synthesize

import (
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/google-research/streamlined-genre/tools/corpus"
	"github.com/google-research/streamlined-genre/tools/signals"
	"github.com/mjibson/go-dsp/fft"
)

// Onset defines how a sound starts.
type Onset struct {
	// Delay is the silence before the onset starts.
	Delay signals.Seconds
	// Duration is how long it takes for the sound to reach peak level.
	Duration signals.Seconds
}

// Filter ramps buf, sampled at rate, linearly up to full level.
func (o Onset) Filter(buf signals.Float64Slice, rate signals.Hz) {
	peakT := o.Delay + o.Duration
	period := rate.Period()
	t := signals.Seconds(0)
	for idx := range buf {
		if t < o.Delay {
			buf[idx] = 0.0
		} else if t < peakT {
			buf[idx] *= float64((t - o.Delay) / o.Duration)
		} else {
			break
		}
		t += period
	}
}

// Noise describes a band limited white noise source.
type Noise struct {
	// LowerLimit is the lower (inclusive) limit of this source.
	LowerLimit signals.Hz
	// UpperLimit is the upper (exclusive) limit of this source.
	UpperLimit signals.Hz
	// Level is the level of this noise compared to a full scale sine.
	Level signals.DB
}

// Sample returns duration of noise at rate.
func (n Noise) Sample(rng *rand.Rand, duration signals.Seconds, rate signals.Hz) (signals.Float64Slice, error) {
	if n.LowerLimit < 0 || n.UpperLimit <= n.LowerLimit || n.UpperLimit > rate.Nyquist() {
		return nil, fmt.Errorf("invalid noise band %v-%vHz at %vHz", n.LowerLimit, n.UpperLimit, rate)
	}
	nSamples := int(float64(duration) * float64(rate))
	if nSamples == 0 {
		return nil, fmt.Errorf("%vs at %vHz is no samples", duration, rate)
	}
	coefficients := make([]complex128, nSamples)
	freqStep := 1 / float64(duration)
	fMinIdx := int(math.Round(float64(n.LowerLimit) / freqStep))
	fMaxIdx := int(math.Round(float64(n.UpperLimit) / freqStep))
	for i := fMinIdx; i < fMaxIdx && i < nSamples; i++ {
		coefficients[i] = complex(rng.NormFloat64(), rng.NormFloat64())
	}
	samples := fft.IFFT(coefficients)
	result := make(signals.Float64Slice, len(samples))
	pc := &signals.PowerCalculator{}
	for idx := range samples {
		result[idx] = real(samples[idx])
		pc.Feed(result[idx])
	}
	result.AddLevel(signals.FullScaleSinePower.DB() - pc.Power().DB() + n.Level)
	return result, nil
}

// Voice is the sound of one synthetic genre: a tone over a band of noise.
type Voice struct {
	Tone  signals.Signal
	Noise Noise
	Onset Onset
}

// VoiceOf returns a voice for the label at position idx of a label list, distinct
// from the voices of the other positions.
func VoiceOf(idx int) Voice {
	low := signals.Hz(400 * (idx + 1))
	return Voice{
		Tone:  signals.Signal{Frequency: signals.Hz(110 * (idx + 1)), Level: -12},
		Noise: Noise{LowerLimit: low, UpperLimit: low + 300, Level: -18},
		Onset: Onset{Duration: 0.05},
	}
}

// Sample returns duration of the voice at rate.
func (v Voice) Sample(rng *rand.Rand, duration signals.Seconds, rate signals.Hz) (signals.Float64Slice, error) {
	noise, err := v.Noise.Sample(rng, duration, rate)
	if err != nil {
		return nil, err
	}
	tone := v.Tone.Sample(signals.TimeStretch{FromInclusive: 0, ToExclusive: duration}, rate)
	for idx := range noise {
		if idx < len(tone) {
			noise[idx] += tone[idx]
		}
	}
	v.Onset.Filter(noise, rate)
	return noise, nil
}

// Spec describes a synthetic corpus.
type Spec struct {
	Labels   []string
	PerLabel int
	Duration signals.Seconds
	Rate     signals.Hz
	Seed     int64
}

// Corpus writes spec.PerLabel files of every label to dir, indexed after the files
// already there, and returns them in index order.
func Corpus(dir string, spec Spec) ([]corpus.Sample, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	existing, err := corpus.List(dir)
	if err != nil {
		return nil, err
	}
	counter := corpus.NewCounter(corpus.NextIndex(existing))
	rng := rand.New(rand.NewSource(spec.Seed))
	result := []corpus.Sample{}
	for i := 0; i < spec.PerLabel; i++ {
		for labelIdx, label := range spec.Labels {
			identity := corpus.Identity{Index: counter.Next(), Label: label}
			if err := identity.Validate(); err != nil {
				return nil, err
			}
			buf, err := VoiceOf(labelIdx).Sample(rng, spec.Duration, spec.Rate)
			if err != nil {
				return nil, err
			}
			path := filepath.Join(dir, identity.Filename())
			if err := buf.WriteWAVFile(path, spec.Rate); err != nil {
				return nil, err
			}
			result = append(result, corpus.Sample{Identity: identity, Path: path})
		}
	}
	return result, nil
}
