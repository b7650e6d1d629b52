/* filter contains digital IIR filter design and filtering.
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
package filter

import (
	"math"
	"math/cmplx"

	"github.com/google-research/streamlined-genre/tools/signals"
)

// ZPK is a transfer function in zero, pole and gain form.
type ZPK struct {
	Gain  float64
	Poles []complex128
	Zeros []complex128
}

// Stable returns whether all poles are inside the unit circle.
func (z ZPK) Stable() bool {
	for _, pole := range z.Poles {
		if cmplx.Abs(pole) >= 1.0 {
			return false
		}
	}
	return true
}

// Causal returns whether there are at least as many poles as zeros.
func (z ZPK) Causal() bool {
	return len(z.Poles) >= len(z.Zeros)
}

// H = g * (z - q1) * (z - q2) * ... (z - qn) / ( (z - p1) * (z - p2) * ... (z - pn) )
func (z ZPK) H(at complex128) complex128 {
	res := complex(z.Gain, 0)
	for _, zero := range z.Zeros {
		res *= at - zero
	}
	denom := complex128(1)
	for _, pole := range z.Poles {
		denom *= at - pole
	}
	return res / denom
}

// HzToZ returns the point on the unit circle matching the frequency at the sample rate.
func HzToZ(f, rate signals.Hz) complex128 {
	return cmplx.Exp(complex(0, 2*math.Pi*float64(f/rate)))
}

// Section is a biquad, H(z) = (B[0] + B[1]/z + B[2]/z^2) / (A[0] + A[1]/z + A[2]/z^2), with A[0] == 1.
type Section struct {
	B [3]float64
	A [3]float64
}

// H evaluates the section at z.
func (s Section) H(z complex128) complex128 {
	inv := 1 / z
	num := complex(s.B[0], 0) + complex(s.B[1], 0)*inv + complex(s.B[2], 0)*inv*inv
	den := complex(s.A[0], 0) + complex(s.A[1], 0)*inv + complex(s.A[2], 0)*inv*inv
	return num / den
}

// SOS is a cascade of second order sections.
type SOS []Section

// H evaluates the cascade at z.
func (s SOS) H(z complex128) complex128 {
	res := complex128(1)
	for _, section := range s {
		res *= section.H(z)
	}
	return res
}

// Gain returns the absolute gain of the cascade at the frequency.
func (s SOS) Gain(f, rate signals.Hz) float64 {
	return cmplx.Abs(s.H(HzToZ(f, rate)))
}

// Filter runs the signal through the cascade, one transposed direct form II per section,
// and returns a new buffer of the same length.
func (s SOS) Filter(x signals.Float64Slice) signals.Float64Slice {
	y := x.Copy()
	for _, sec := range s {
		z1, z2 := 0.0, 0.0
		for n, in := range y {
			out := sec.B[0]*in + z1
			z1 = sec.B[1]*in - sec.A[1]*out + z2
			z2 = sec.B[2]*in - sec.A[2]*out
			y[n] = out
		}
	}
	return y
}

// bilinear maps an analog s-plane point to the z-plane for fs = 2, i.e. frequencies
// normalized against Nyquist.
func bilinear(s complex128) complex128 {
	const fs2 = 4
	return (fs2 + s) / (fs2 - s)
}

func prewarp(normalized float64) float64 {
	return 4 * math.Tan(math.Pi*normalized/2)
}

// butterBandstop returns the sections of a digital Butterworth band-stop of the given
// order, between low and high normalized against Nyquist, each with unity gain at DC.
//
// The analog low-pass prototype poles are moved to band-stop poles by
// s -> bw*s / (s^2 + w0^2), which puts all zeros at +-j*w0, and then through the
// bilinear transform. Each prototype conjugate pair yields two sections, the real
// prototype pole of odd orders yields one.
func butterBandstop(order int, low, high float64) (SOS, ZPK) {
	w1, w2 := prewarp(low), prewarp(high)
	bw := w2 - w1
	w0 := math.Sqrt(w1 * w2)

	zero := bilinear(complex(0, w0))
	b := [3]float64{1, -2 * real(zero), 1}

	result := ZPK{Gain: 1}
	sos := SOS{}
	addSection := func(a [3]float64, poles ...complex128) {
		g := (a[0] + a[1] + a[2]) / (b[0] + b[1] + b[2])
		sos = append(sos, Section{
			B: [3]float64{b[0] * g, b[1] * g, b[2] * g},
			A: a,
		})
		result.Gain *= g
		result.Zeros = append(result.Zeros, zero, cmplx.Conj(zero))
		result.Poles = append(result.Poles, poles...)
	}

	for m := -(order - 1); m <= 0; m += 2 {
		proto := -cmplx.Exp(complex(0, math.Pi*float64(m)/float64(2*order)))
		half := complex(bw/2, 0) / proto
		root := cmplx.Sqrt(half*half - complex(w0*w0, 0))
		d1, d2 := bilinear(half+root), bilinear(half-root)
		if m == 0 {
			sum, prod := d1+d2, d1*d2
			addSection([3]float64{1, -real(sum), real(prod)}, d1, d2)
			continue
		}
		for _, d := range []complex128{d1, d2} {
			addSection([3]float64{1, -2 * real(d), real(d * cmplx.Conj(d))}, d, cmplx.Conj(d))
		}
	}
	return sos, result
}
