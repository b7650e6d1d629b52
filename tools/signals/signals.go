/* Package signals contains audio buffers, units and WAV input/output. *
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
package signals

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

const (
	// FullScaleSinePower is 0.5 due to power = avg(sum(v^2)) - avg(v)^2.
	FullScaleSinePower Power = 0.5
	// WorkingRate is the rate every buffer in the pipeline is resampled to,
	// since openXBOW expects it.
	WorkingRate Hz = 22050
)

// Hz is cycles per second.
type Hz float64

// Period returns the period of this frequency.
func (h Hz) Period() Seconds {
	return Seconds(1.0 / h)
}

// Nyquist returns the highest frequency representable at this sample rate.
func (h Hz) Nyquist() Hz {
	return h * 0.5
}

// Power is the signal power, which is equivalent to the variance ( avg(sum(v^2)) - avg(v)^2 ) of a signal.
type Power float64

// DB returns the power converted to Decibel.
func (p Power) DB() DB {
	return DB(10 * math.Log10(float64(p)))
}

// DB is power expressed on a logarithm scale.
type DB float64

// Gain returns the gain of this Decibel level.
func (d DB) Gain() float64 {
	return math.Pow(10, float64(d/20))
}

// Seconds is a point in time.
type Seconds float64

// TimeStretch defines a stretch of time.
type TimeStretch struct {
	// FromInclusive is the start of the stretch of time, inclusive.
	FromInclusive Seconds
	// ToExclusive is the end of the stretch of time, exclusive.
	ToExclusive Seconds
}

// Len returns the length of this time stretch.
func (t TimeStretch) Len() Seconds {
	return t.ToExclusive - t.FromInclusive
}

// Signal describes a sine tone, used to synthesize fixtures and probe filters.
type Signal struct {
	// Frequency is the frequency of this signal.
	Frequency Hz
	// Level is the level of this signal compared to a full scale sine.
	Level DB
}

func (s *Signal) String() string {
	return fmt.Sprintf("%+v", *s)
}

// Sample samples this signal during the provided time stretch, at the provided rate.
func (s Signal) Sample(ts TimeStretch, rate Hz) Float64Slice {
	period := rate.Period()
	gain := s.Level.Gain()
	result := Float64Slice{}
	for t := ts.FromInclusive; t < ts.ToExclusive; t += period {
		result = append(result, gain*math.Sin(2*math.Pi*float64(t)*float64(s.Frequency)))
	}
	return result
}

// Float64Slice represents a sound buffer of floats between -1 and 1.
type Float64Slice []float64

// Copy returns a copy of the buffer.
func (f Float64Slice) Copy() Float64Slice {
	res := make(Float64Slice, len(f))
	copy(res, f)
	return res
}

// Duration returns the length of the buffer at the given rate.
func (f Float64Slice) Duration(rate Hz) Seconds {
	return Seconds(float64(len(f)) / float64(rate))
}

// EqTol returns whether the other float slice is equal to this one,
// within the given tolerance.
func (f Float64Slice) EqTol(o Float64Slice, tol float64) bool {
	if len(f) != len(o) {
		return false
	}
	for idx := range f {
		if math.Abs(f[idx]-o[idx]) > tol {
			return false
		}
	}
	return true
}

// SpectrumGains returns a slice with the gain (the complex absolute value) of the
// first half of the FFT of the slice.
func (f Float64Slice) SpectrumGains() Float64Slice {
	coefficients := fft.FFTReal(f)
	halfCoefficients := len(coefficients) / 2
	invBuffer := 1 / float64(len(f))
	gains := make(Float64Slice, halfCoefficients)
	for bin := range gains {
		gains[bin] = cmplx.Abs(coefficients[bin]) * invBuffer * 2
	}
	return gains
}

// PowerCalculator calculates power of signals.
type PowerCalculator struct {
	sum          float64
	sumOfSquares float64
	len          float64
}

// Feed feeds the calculator the next sample.
func (p *PowerCalculator) Feed(f float64) {
	p.sum += f
	p.sumOfSquares += f * f
	p.len++
}

// Power returns the power of the signal so far.
func (p *PowerCalculator) Power() Power {
	if p.len == 0 {
		return 0
	}
	mean := p.sum / p.len
	return Power(p.sumOfSquares/p.len - mean*mean)
}

// Power returns the signal power of the slice.
func (f Float64Slice) Power() Power {
	pc := &PowerCalculator{}
	for _, val := range f {
		pc.Feed(val)
	}
	return pc.Power()
}

// AddLevel adds a number of Decibel to the signal.
func (f Float64Slice) AddLevel(d DB) {
	scale := d.Gain()
	for idx := range f {
		f[idx] *= scale
	}
}
