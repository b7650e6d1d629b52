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
	"math"
	"math/rand"
	"testing"

	"github.com/google-research/streamlined-genre/tools/filter"
	"github.com/google-research/streamlined-genre/tools/signals"
	"github.com/google-research/streamlined-genre/tools/spectrum"
	"github.com/google/go-cmp/cmp"
)

const rate = signals.Hz(22050)

func tone(frequency signals.Hz, seconds signals.Seconds) signals.Float64Slice {
	return signals.Signal{Frequency: frequency, Level: -6}.Sample(signals.TimeStretch{FromInclusive: 0, ToExclusive: seconds}, rate)
}

func noise(rng *rand.Rand, length int) signals.Float64Slice {
	result := make(signals.Float64Slice, length)
	for i := range result {
		result[i] = rng.Float64() - 0.5
	}
	return result
}

func TestNew(t *testing.T) {
	for _, tc := range []struct {
		names       []string
		wantedNames []string
		wantErr     bool
	}{
		{
			names:       nil,
			wantedNames: Names(),
		},
		{
			names:       []string{VTLPName, TimeMaskName},
			wantedNames: []string{TimeMaskName, VTLPName},
		},
		{
			names:       []string{TimeMaskName, TimeMaskName},
			wantedNames: []string{TimeMaskName},
		},
		{
			names:   []string{TimeMaskName, "reverb"},
			wantErr: true,
		},
	} {
		p, err := New(tc.names, rate)
		if (err != nil) != tc.wantErr {
			t.Fatalf("New(%v): got %v, wanted error %v", tc.names, err, tc.wantErr)
		}
		if err != nil {
			continue
		}
		if diff := cmp.Diff(p.Operators(), tc.wantedNames); diff != "" {
			t.Errorf("New(%v): got operators %v, wanted %v", tc.names, p.Operators(), tc.wantedNames)
		}
	}
}

func TestAugmentCount(t *testing.T) {
	p, err := New(nil, rate)
	if err != nil {
		t.Fatal(err)
	}
	rng := rand.New(rand.NewSource(440))
	buf := tone(440, 0.1)
	for n := 0; n <= 5; n++ {
		variants, err := p.Augment(rng, buf, n)
		if err != nil {
			t.Fatal(err)
		}
		if len(variants) != n {
			t.Errorf("got %v variants, wanted %v", len(variants), n)
		}
		for _, variant := range variants {
			for _, v := range variant {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					t.Fatalf("got non finite sample %v", v)
				}
			}
		}
	}
}

func TestAugmentDeterministic(t *testing.T) {
	p, err := New(nil, rate)
	if err != nil {
		t.Fatal(err)
	}
	buf := tone(300, 0.1)
	first, err := p.Augment(rand.New(rand.NewSource(7)), buf, 4)
	if err != nil {
		t.Fatal(err)
	}
	second, err := p.Augment(rand.New(rand.NewSource(7)), buf, 4)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("same seed produced different variants: %v", diff)
	}
}

func TestAugmentLeavesInputAlone(t *testing.T) {
	p, err := New(nil, rate)
	if err != nil {
		t.Fatal(err)
	}
	buf := tone(300, 0.1)
	original := buf.Copy()
	if _, err := p.Augment(rand.New(rand.NewSource(3)), buf, 5); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(buf, original); diff != "" {
		t.Errorf("Augment modified its input: %v", diff)
	}
}

func TestIdentityVariants(t *testing.T) {
	p, err := New(nil, rate)
	if err != nil {
		t.Fatal(err)
	}
	rng := rand.New(rand.NewSource(11))
	buf := tone(300, 0.05)
	identities := 0
	for i := 0; i < 200; i++ {
		variant, applied, err := p.Apply(rng, buf)
		if err != nil {
			t.Fatal(err)
		}
		if len(applied) == 0 {
			identities++
			if diff := cmp.Diff(variant, buf); diff != "" {
				t.Fatalf("variant without operators differs from the input: %v", diff)
			}
		}
	}
	// One in 16 variants skips all four operators.
	if identities == 0 {
		t.Errorf("got no identity variants in 200 tries")
	}
}

func TestTimeMaskOnly(t *testing.T) {
	p, err := New([]string{TimeMaskName}, rate)
	if err != nil {
		t.Fatal(err)
	}
	rng := rand.New(rand.NewSource(5))
	buf := make(signals.Float64Slice, 1000)
	for i := range buf {
		buf[i] = 0.5
	}
	for i := 0; i < 100; i++ {
		variant, applied, err := p.Apply(rng, buf)
		if err != nil {
			t.Fatal(err)
		}
		for _, name := range applied {
			if name != TimeMaskName {
				t.Fatalf("got operator %v applied, wanted only %v", name, TimeMaskName)
			}
		}
		// Every sample is either untouched or silenced, so no filter ran.
		for idx, v := range variant {
			if v != 0 && v != 0.5 {
				t.Fatalf("got sample %v at %v, wanted 0 or 0.5", v, idx)
			}
		}
	}
}

func TestTimeMask(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	mask := NewTimeMask()
	for _, length := range []int{1, 4, 10, 1000, 22050} {
		buf := make(signals.Float64Slice, length)
		for i := range buf {
			buf[i] = 1
		}
		for i := 0; i < 20; i++ {
			masked, err := mask.Apply(rng, buf)
			if err != nil {
				t.Fatal(err)
			}
			if len(masked) != length {
				t.Fatalf("got %v samples, wanted %v", len(masked), length)
			}
			first, zeros := -1, 0
			for idx, v := range masked {
				if v == 0 {
					if first == -1 {
						first = idx
					}
					zeros++
				}
			}
			if zeros != mask.Span(length) {
				t.Fatalf("got %v silenced samples, wanted %v", zeros, mask.Span(length))
			}
			for idx := first; zeros > 0 && idx < first+zeros; idx++ {
				if masked[idx] != 0 {
					t.Fatalf("silenced span starting at %v is not contiguous", first)
				}
			}
		}
	}
	if _, err := (&TimeMask{Coverage: 2}).Apply(rng, signals.Float64Slice{1}); err == nil {
		t.Errorf("got no error for coverage 2")
	}
}

func TestFreqMask(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	mask := NewFreqMask(rate)
	buf := noise(rng, int(rate))
	masked, err := mask.Apply(rng, buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(masked) != len(buf) {
		t.Fatalf("got %v samples, wanted %v", len(masked), len(buf))
	}
	if masked.EqTol(buf, 1e-9) {
		t.Errorf("masking left the buffer unchanged")
	}

	invalid := &FreqMask{Rate: rate, Span: 5000, MaxAttempts: 3}
	_, err = invalid.Apply(rng, buf)
	rangeErr := &filter.InvalidFilterRangeError{}
	if !errors.As(err, &rangeErr) {
		t.Errorf("got %v, wanted *filter.InvalidFilterRangeError", err)
	}
}

func TestWarp(t *testing.T) {
	buf := tone(200, 0.5)
	for _, factor := range []float64{0.8, 1, 1.25} {
		w := &Warp{MinFactor: factor, MaxFactor: factor}
		warped, err := w.Apply(rand.New(rand.NewSource(1)), buf)
		if err != nil {
			t.Fatal(err)
		}
		if wanted := int(float64(len(buf)) / factor); len(warped) != wanted {
			t.Errorf("factor %v: got %v samples, wanted %v", factor, len(warped), wanted)
		}
		wantedPeak := 200 * signals.Hz(factor)
		if peak := spectrum.Compute(warped, rate).Peak(); math.Abs(float64(peak-wantedPeak)) > 5 {
			t.Errorf("factor %v: got peak at %vHz, wanted %vHz", factor, peak, wantedPeak)
		}
	}
	rng := rand.New(rand.NewSource(4))
	w := NewWarp()
	for i := 0; i < 100; i++ {
		warped, err := w.Apply(rng, buf)
		if err != nil {
			t.Fatal(err)
		}
		if min, max := int(float64(len(buf))/1.2), int(float64(len(buf))/0.8); len(warped) < min || len(warped) > max {
			t.Fatalf("got %v samples, wanted between %v and %v", len(warped), min, max)
		}
	}
}

func TestVTLPWarpFrequency(t *testing.T) {
	v := NewVTLP(rate)
	for _, alpha := range []float64{0.9, 1, 1.1} {
		if got := v.WarpFrequency(0, alpha); got != 0 {
			t.Errorf("alpha %v: 0Hz moved to %v", alpha, got)
		}
		if got := v.WarpFrequency(rate.Nyquist(), alpha); math.Abs(float64(got-rate.Nyquist())) > 1e-9 {
			t.Errorf("alpha %v: Nyquist moved to %v", alpha, got)
		}
		if got := v.WarpFrequency(1000, alpha); math.Abs(float64(got)-1000*alpha) > 1e-9 {
			t.Errorf("alpha %v: 1000Hz moved to %v, wanted %v", alpha, got, 1000*alpha)
		}
		prev := signals.Hz(-1)
		for f := signals.Hz(0); f <= rate.Nyquist(); f += 10 {
			got := v.WarpFrequency(f, alpha)
			if got <= prev {
				t.Fatalf("alpha %v: warp is not increasing at %vHz", alpha, f)
			}
			prev = got
		}
	}
}

func TestVTLP(t *testing.T) {
	v := NewVTLP(rate)
	buf := tone(1000, 0.5)
	same, err := v.Perturb(buf, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !same.EqTol(buf, 1e-6) {
		t.Errorf("alpha 1 changed the buffer")
	}
	for _, alpha := range []float64{0.9, 1.1} {
		warped, err := v.Perturb(buf, alpha)
		if err != nil {
			t.Fatal(err)
		}
		if len(warped) != len(buf) {
			t.Fatalf("got %v samples, wanted %v", len(warped), len(buf))
		}
		wantedPeak := 1000 * signals.Hz(alpha)
		if peak := spectrum.Compute(warped, rate).Peak(); math.Abs(float64(peak-wantedPeak)) > 25 {
			t.Errorf("alpha %v: got peak at %vHz, wanted %vHz", alpha, peak, wantedPeak)
		}
	}
	rng := rand.New(rand.NewSource(9))
	for i := 0; i < 10; i++ {
		warped, err := v.Apply(rng, buf)
		if err != nil {
			t.Fatal(err)
		}
		if len(warped) != len(buf) {
			t.Fatalf("got %v samples, wanted %v", len(warped), len(buf))
		}
	}
}
