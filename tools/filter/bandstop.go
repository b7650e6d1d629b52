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
package filter

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/google-research/streamlined-genre/tools/signals"
)

const (
	// DefaultOrder is the Butterworth order of random band-stop filters.
	DefaultOrder = 81
	// DefaultSpan is the width of random band-stop filters.
	DefaultSpan Mel = 200
)

// Mel is a pitch on the Mel scale.
type Mel float64

// HzToMel converts a frequency to Mel.
func HzToMel(f signals.Hz) Mel {
	return Mel(2595 * math.Log10(1+float64(f)/700))
}

// MelToHz converts a Mel pitch to a frequency.
func MelToHz(m Mel) signals.Hz {
	return signals.Hz(700 * (math.Pow(10, float64(m)/2595) - 1))
}

// InvalidFilterRangeError is returned for bands that don't fit strictly between 0Hz and Nyquist.
type InvalidFilterRangeError struct {
	Low  signals.Hz
	High signals.Hz
	Rate signals.Hz
}

func (e *InvalidFilterRangeError) Error() string {
	return fmt.Sprintf("invalid band-stop range %.2fHz-%.2fHz at sample rate %vHz", e.Low, e.High, e.Rate)
}

// BandstopSpec describes a band-stop filter.
type BandstopSpec struct {
	Low   signals.Hz
	High  signals.Hz
	Order int
}

// Validate returns an InvalidFilterRangeError unless 0 < Low < High < rate/2.
func (b BandstopSpec) Validate(rate signals.Hz) error {
	if b.Low <= 0 || b.High >= rate.Nyquist() || b.Low >= b.High {
		return &InvalidFilterRangeError{Low: b.Low, High: b.High, Rate: rate}
	}
	if b.Order < 1 {
		return fmt.Errorf("invalid filter order %v", b.Order)
	}
	return nil
}

// RandomBandstop draws a band of span Mel placed uniformly on the Mel scale below Nyquist.
func RandomBandstop(rng *rand.Rand, rate signals.Hz, span Mel) (BandstopSpec, error) {
	maxMel := HzToMel(rate.Nyquist())
	if span <= 0 || span >= maxMel {
		return BandstopSpec{}, &InvalidFilterRangeError{Low: 0, High: MelToHz(span), Rate: rate}
	}
	start := Mel(rng.Float64()) * (maxMel - span)
	spec := BandstopSpec{
		Low:   MelToHz(start),
		High:  MelToHz(start + span),
		Order: DefaultOrder,
	}
	if err := spec.Validate(rate); err != nil {
		return BandstopSpec{}, err
	}
	return spec, nil
}

// ButterBandstop designs the Butterworth band-stop described by spec as second order sections.
func ButterBandstop(spec BandstopSpec, rate signals.Hz) (SOS, error) {
	sos, _, err := design(spec, rate)
	return sos, err
}

// ButterBandstopZPK designs the Butterworth band-stop described by spec in zero, pole and gain form.
func ButterBandstopZPK(spec BandstopSpec, rate signals.Hz) (ZPK, error) {
	_, zpk, err := design(spec, rate)
	return zpk, err
}

func design(spec BandstopSpec, rate signals.Hz) (SOS, ZPK, error) {
	if err := spec.Validate(rate); err != nil {
		return nil, ZPK{}, err
	}
	nyquist := float64(rate.Nyquist())
	sos, zpk := butterBandstop(spec.Order, float64(spec.Low)/nyquist, float64(spec.High)/nyquist)
	return sos, zpk, nil
}
