/* spectrum contains functions analysing and resynthesizing the spectrum of signals.
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
package spectrum

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/google-research/streamlined-genre/tools/signals"
	"github.com/mjibson/go-dsp/fft"
)

// S is the power spectrum of a whole buffer.
type S struct {
	Coeffs      []complex128
	SignalPower []signals.DB
	BinWidth    signals.Hz
	Rate        signals.Hz
}

// Compute returns the spectrum of the buffer.
func Compute(buffer signals.Float64Slice, rate signals.Hz) *S {
	spec := &S{
		BinWidth: rate / signals.Hz(len(buffer)),
		Rate:     rate,
		Coeffs:   fft.FFTReal(buffer),
	}
	halfCoefficients := len(spec.Coeffs) / 2
	spec.SignalPower = make([]signals.DB, halfCoefficients)
	for bin := range spec.SignalPower {
		if bin == 0 {
			continue
		}
		spec.SignalPower[bin] = spec.binPower(bin).DB()
	}
	return spec
}

func (s *S) binPower(bin int) signals.Power {
	gain := cmplx.Abs(s.Coeffs[bin]) / float64(len(s.Coeffs)) * 2
	return signals.Power(0.5 * gain * gain)
}

// BandPower returns the summed power of the bins between from (inclusive) and to (exclusive).
func (s *S) BandPower(from, to signals.Hz) signals.Power {
	sum := signals.Power(0)
	for bin := 1; bin < len(s.Coeffs)/2; bin++ {
		f := signals.Hz(bin) * s.BinWidth
		if f >= from && f < to {
			sum += s.binPower(bin)
		}
	}
	return sum
}

// Peak returns the frequency of the most powerful bin.
func (s *S) Peak() signals.Hz {
	peak := 0
	for bin := 1; bin < len(s.SignalPower); bin++ {
		if peak == 0 || s.SignalPower[bin] > s.SignalPower[peak] {
			peak = bin
		}
	}
	return signals.Hz(peak) * s.BinWidth
}

// STFT is a short time Fourier transform with a periodic Hann window.
// Frames are centered on multiples of Hop, so the first frame is centered on the first sample.
type STFT struct {
	// FrameSize is the FFT size, a power of two.
	FrameSize int
	// Hop is the distance between frame centers, at most FrameSize/2.
	Hop int
}

// DefaultSTFT is a 1024 point transform with 75% overlap.
var DefaultSTFT = STFT{FrameSize: 1024, Hop: 256}

func (s STFT) validate() error {
	if s.FrameSize < 2 || s.FrameSize&(s.FrameSize-1) != 0 {
		return fmt.Errorf("frame size %v is not a power of two", s.FrameSize)
	}
	if s.Hop < 1 || s.Hop > s.FrameSize/2 {
		return fmt.Errorf("hop %v not in [1, %v]", s.Hop, s.FrameSize/2)
	}
	return nil
}

func (s STFT) window() []float64 {
	w := make([]float64, s.FrameSize)
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(s.FrameSize))
	}
	return w
}

// Bins returns the number of non negative frequency bins per frame.
func (s STFT) Bins() int {
	return s.FrameSize/2 + 1
}

// Forward returns the non negative frequency bins of every frame of the buffer.
func (s STFT) Forward(buffer signals.Float64Slice) ([][]complex128, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	window := s.window()
	half := s.FrameSize / 2
	numFrames := len(buffer)/s.Hop + 1
	frames := make([][]complex128, numFrames)
	frame := make([]float64, s.FrameSize)
	for idx := range frames {
		start := idx*s.Hop - half
		for i := range frame {
			frame[i] = 0
			if pos := start + i; pos >= 0 && pos < len(buffer) {
				frame[i] = buffer[pos] * window[i]
			}
		}
		frames[idx] = fft.FFTReal(frame)[:s.Bins()]
	}
	return frames, nil
}

// Inverse resynthesizes length samples from frames produced by Forward, using a windowed
// overlap-add normalized by the summed squared window.
func (s STFT) Inverse(frames [][]complex128, length int) (signals.Float64Slice, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	window := s.window()
	half := s.FrameSize / 2
	result := make(signals.Float64Slice, length)
	norm := make([]float64, length)
	full := make([]complex128, s.FrameSize)
	for idx, bins := range frames {
		if len(bins) != s.Bins() {
			return nil, fmt.Errorf("frame %v has %v bins, wanted %v", idx, len(bins), s.Bins())
		}
		copy(full, bins)
		for bin := 1; bin < half; bin++ {
			full[s.FrameSize-bin] = cmplx.Conj(bins[bin])
		}
		timeDomain := fft.IFFT(full)
		start := idx*s.Hop - half
		for i, v := range timeDomain {
			pos := start + i
			if pos < 0 || pos >= length {
				continue
			}
			result[pos] += real(v) * window[i]
			norm[pos] += window[i] * window[i]
		}
	}
	for i := range result {
		if norm[i] > 1e-10 {
			result[i] /= norm[i]
		}
	}
	return result, nil
}
