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
	"fmt"
	"math"
	"math/rand"

	"github.com/google-research/streamlined-genre/tools/signals"
	"github.com/google-research/streamlined-genre/tools/spectrum"
)

// VTLP is vocal tract length perturbation: the spectrum of every frame is stretched
// by a random factor below FHi and compressed above it, so Nyquist stays in place.
type VTLP struct {
	Rate     signals.Hz
	FHi      signals.Hz
	MinAlpha float64
	MaxAlpha float64
	STFT     spectrum.STFT
}

// NewVTLP returns a perturbation with warp factors between 0.9 and 1.1 for buffers at rate.
func NewVTLP(rate signals.Hz) *VTLP {
	return &VTLP{
		Rate:     rate,
		FHi:      4800,
		MinAlpha: 0.9,
		MaxAlpha: 1.1,
		STFT:     spectrum.DefaultSTFT,
	}
}

// Name returns VTLPName.
func (v *VTLP) Name() string {
	return VTLPName
}

// WarpFrequency returns where f ends up for the warp factor alpha.
func (v *VTLP) WarpFrequency(f signals.Hz, alpha float64) signals.Hz {
	nyquist := v.Rate.Nyquist()
	scale := v.FHi * signals.Hz(math.Min(alpha, 1))
	boundary := scale / signals.Hz(alpha)
	if f <= boundary {
		return f * signals.Hz(alpha)
	}
	return nyquist - (nyquist-scale)/(nyquist-boundary)*(nyquist-f)
}

// Apply warps the spectrum of every frame by a random factor between MinAlpha and MaxAlpha.
func (v *VTLP) Apply(rng *rand.Rand, buf signals.Float64Slice) (signals.Float64Slice, error) {
	if v.MinAlpha <= 0 || v.MaxAlpha < v.MinAlpha {
		return nil, fmt.Errorf("invalid warp factors [%v, %v]", v.MinAlpha, v.MaxAlpha)
	}
	alpha := v.MinAlpha + rng.Float64()*(v.MaxAlpha-v.MinAlpha)
	return v.Perturb(buf, alpha)
}

// Perturb warps the spectrum of buf by alpha.
func (v *VTLP) Perturb(buf signals.Float64Slice, alpha float64) (signals.Float64Slice, error) {
	if len(buf) == 0 {
		return signals.Float64Slice{}, nil
	}
	frames, err := v.STFT.Forward(buf)
	if err != nil {
		return nil, err
	}
	binWidth := v.Rate / signals.Hz(v.STFT.FrameSize)
	last := v.STFT.Bins() - 1
	targets := make([]float64, v.STFT.Bins())
	for bin := range targets {
		targets[bin] = float64(v.WarpFrequency(signals.Hz(bin)*binWidth, alpha) / binWidth)
	}
	for idx, frame := range frames {
		warped := make([]complex128, len(frame))
		for bin, coeff := range frame {
			pos := math.Max(0, math.Min(float64(last), targets[bin]))
			lower := int(pos)
			frac := pos - float64(lower)
			warped[lower] += coeff * complex(1-frac, 0)
			if lower < last {
				warped[lower+1] += coeff * complex(frac, 0)
			}
		}
		// DC and Nyquist must stay real for the inverse transform to be real.
		warped[0] = complex(real(warped[0]), 0)
		warped[last] = complex(real(warped[last]), 0)
		frames[idx] = warped
	}
	return v.STFT.Inverse(frames, len(buf))
}
