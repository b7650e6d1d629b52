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
package augment

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/google-research/streamlined-genre/tools/filter"
	"github.com/google-research/streamlined-genre/tools/signals"
)

// TimeMask silences one contiguous span of the buffer.
type TimeMask struct {
	// Coverage is the part of the buffer silenced, between 0 and 1.
	Coverage float64
}

// NewTimeMask returns a mask covering a tenth of the buffer.
func NewTimeMask() *TimeMask {
	return &TimeMask{Coverage: 0.1}
}

// Name returns TimeMaskName.
func (t *TimeMask) Name() string {
	return TimeMaskName
}

// Span returns the number of silenced samples for a buffer of length samples.
func (t *TimeMask) Span(length int) int {
	return int(math.Round(t.Coverage * float64(length)))
}

// Apply silences a span of Coverage times the buffer length at a random offset.
func (t *TimeMask) Apply(rng *rand.Rand, buf signals.Float64Slice) (signals.Float64Slice, error) {
	if t.Coverage < 0 || t.Coverage > 1 {
		return nil, fmt.Errorf("coverage %v not in [0, 1]", t.Coverage)
	}
	result := buf.Copy()
	span := t.Span(len(buf))
	if span == 0 {
		return result, nil
	}
	start := rng.Intn(len(buf) - span + 1)
	for idx := start; idx < start+span; idx++ {
		result[idx] = 0
	}
	return result, nil
}

// FreqMask removes a random Mel band with a steep band-stop filter.
type FreqMask struct {
	Rate signals.Hz
	Span filter.Mel
	// MaxAttempts is the number of bands drawn before an invalid range is returned.
	MaxAttempts int
}

// NewFreqMask returns a mask of 200 Mel for buffers at rate.
func NewFreqMask(rate signals.Hz) *FreqMask {
	return &FreqMask{
		Rate:        rate,
		Span:        filter.DefaultSpan,
		MaxAttempts: 3,
	}
}

// Name returns FreqMaskName.
func (f *FreqMask) Name() string {
	return FreqMaskName
}

// Draw returns a filter for a random band, redrawing bands outside the valid range.
func (f *FreqMask) Draw(rng *rand.Rand) (filter.SOS, error) {
	var err error
	for attempt := 0; attempt < f.MaxAttempts; attempt++ {
		var spec filter.BandstopSpec
		if spec, err = filter.RandomBandstop(rng, f.Rate, f.Span); err == nil {
			return filter.ButterBandstop(spec, f.Rate)
		}
		rangeErr := &filter.InvalidFilterRangeError{}
		if !errors.As(err, &rangeErr) {
			return nil, err
		}
	}
	if err == nil {
		err = fmt.Errorf("no attempts allowed")
	}
	return nil, err
}

// Apply filters buf with a band-stop for a random Mel band.
func (f *FreqMask) Apply(rng *rand.Rand, buf signals.Float64Slice) (signals.Float64Slice, error) {
	sos, err := f.Draw(rng)
	if err != nil {
		return nil, err
	}
	return sos.Filter(buf), nil
}

// Warp changes the tempo (and pitch) of the buffer by resampling it with linear interpolation.
type Warp struct {
	MinFactor float64
	MaxFactor float64
}

// NewWarp returns a warp between 0.8 and 1.2 times the original speed.
func NewWarp() *Warp {
	return &Warp{MinFactor: 0.8, MaxFactor: 1.2}
}

// Name returns WarpName.
func (w *Warp) Name() string {
	return WarpName
}

// Apply stretches buf by a random factor between MinFactor and MaxFactor.
func (w *Warp) Apply(rng *rand.Rand, buf signals.Float64Slice) (signals.Float64Slice, error) {
	if w.MinFactor <= 0 || w.MaxFactor < w.MinFactor {
		return nil, fmt.Errorf("invalid warp factors [%v, %v]", w.MinFactor, w.MaxFactor)
	}
	factor := w.MinFactor + rng.Float64()*(w.MaxFactor-w.MinFactor)
	return Stretch(buf, factor), nil
}

// Stretch plays buf factor times faster, so the result has len(buf)/factor samples.
func Stretch(buf signals.Float64Slice, factor float64) signals.Float64Slice {
	if len(buf) == 0 {
		return signals.Float64Slice{}
	}
	newLen := int(float64(len(buf)) / factor)
	result := make(signals.Float64Slice, newLen)
	for i := range result {
		pos := float64(i) * factor
		idx := int(pos)
		if idx >= len(buf)-1 {
			result[i] = buf[len(buf)-1]
			continue
		}
		frac := pos - float64(idx)
		result[i] = buf[idx]*(1-frac) + buf[idx+1]*frac
	}
	return result
}
