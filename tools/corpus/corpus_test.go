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
package corpus

import (
	"errors"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseFilename(t *testing.T) {
	for _, tc := range []struct {
		name           string
		wantedIdentity Identity
		wantErr        bool
	}{
		{
			name:           "12__Narrative.wav",
			wantedIdentity: Identity{Index: 12, Label: "Narrative"},
		},
		{
			name:           "0__Procedural-discourse.wav",
			wantedIdentity: Identity{Index: 0, Label: "Procedural-discourse"},
		},
		{
			name:           "7__song_text.wav",
			wantedIdentity: Identity{Index: 7, Label: "song_text"},
		},
		{name: "12_Narrative.wav", wantErr: true},
		{name: "12__Narrative__x.wav", wantErr: true},
		{name: "x__Narrative.wav", wantErr: true},
		{name: "-3__Narrative.wav", wantErr: true},
		{name: "12__.wav", wantErr: true},
		{name: "12__Narrative.mp3", wantErr: true},
	} {
		identity, err := ParseFilename(tc.name)
		if (err != nil) != tc.wantErr {
			t.Fatalf("ParseFilename(%q): got %v, wanted error %v", tc.name, err, tc.wantErr)
		}
		if err != nil {
			parseErr := &LabelParseError{}
			if !errors.As(err, &parseErr) || parseErr.Name != tc.name {
				t.Errorf("ParseFilename(%q): got %#v, wanted *LabelParseError naming the file", tc.name, err)
			}
			continue
		}
		if identity != tc.wantedIdentity {
			t.Errorf("ParseFilename(%q): got %+v, wanted %+v", tc.name, identity, tc.wantedIdentity)
		}
		if identity.Filename() != tc.name {
			t.Errorf("got filename %q, wanted %q", identity.Filename(), tc.name)
		}
	}
}

func TestLabelRoundTrip(t *testing.T) {
	for _, label := range []string{"Narrative", "Procedural-discourse", "Oratory-political", "a_b"} {
		identity := Identity{Index: 41, Label: label}
		parsed, err := ParseFilename(identity.Filename())
		if err != nil {
			t.Fatal(err)
		}
		if parsed != identity {
			t.Errorf("got %+v, wanted %+v", parsed, identity)
		}
	}
	if err := (Identity{Index: 1, Label: "a__b"}).Validate(); err == nil {
		t.Errorf("got no error for a label containing the delimiter")
	}
}

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestList(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "10__b.wav", "2__a.wav", "1__c.wav", "notes.txt")
	if err := os.Mkdir(filepath.Join(dir, "5__sub.wav"), 0755); err != nil {
		t.Fatal(err)
	}
	samples, err := List(dir)
	if err != nil {
		t.Fatal(err)
	}
	wanted := []Sample{
		{Identity: Identity{Index: 1, Label: "c"}, Path: filepath.Join(dir, "1__c.wav")},
		{Identity: Identity{Index: 2, Label: "a"}, Path: filepath.Join(dir, "2__a.wav")},
		{Identity: Identity{Index: 10, Label: "b"}, Path: filepath.Join(dir, "10__b.wav")},
	}
	if diff := cmp.Diff(samples, wanted); diff != "" {
		t.Errorf("got unexpected samples: %v", diff)
	}
	if next := NextIndex(samples); next != 11 {
		t.Errorf("got next index %v, wanted 11", next)
	}

	touch(t, dir, "broken.wav")
	_, err = List(dir)
	parseErr := &LabelParseError{}
	if !errors.As(err, &parseErr) {
		t.Errorf("got %v, wanted *LabelParseError", err)
	}

	dupes := t.TempDir()
	touch(t, dupes, "3__a.wav", "3__b.wav")
	if _, err := List(dupes); err == nil {
		t.Errorf("got no error for a duplicate index")
	}
}

func TestNextIndex(t *testing.T) {
	for _, tc := range []struct {
		indices []int
		wanted  int
	}{
		{indices: nil, wanted: 0},
		{indices: []int{0, 1, 2}, wanted: 3},
		{indices: []int{5, 6}, wanted: 7},
		{indices: []int{0, 0, 0, 0}, wanted: 4},
	} {
		samples := []Sample{}
		for _, idx := range tc.indices {
			samples = append(samples, Sample{Identity: Identity{Index: idx, Label: "x"}})
		}
		if got := NextIndex(samples); got != tc.wanted {
			t.Errorf("NextIndex(%v): got %v, wanted %v", tc.indices, got, tc.wanted)
		}
	}
}

func TestCounter(t *testing.T) {
	c := NewCounter(10)
	if got := c.Next(); got != 10 {
		t.Errorf("got %v, wanted 10", got)
	}
	if got := c.Reserve(5); got != 11 {
		t.Errorf("got %v, wanted 11", got)
	}
	if got := c.Peek(); got != 16 {
		t.Errorf("got %v, wanted 16", got)
	}

	concurrent := NewCounter(0)
	seen := make([][]int, 8)
	wg := sync.WaitGroup{}
	for worker := range seen {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				seen[worker] = append(seen[worker], concurrent.Next())
			}
		}(worker)
	}
	wg.Wait()
	all := map[int]bool{}
	for _, indices := range seen {
		for idx, v := range indices {
			if idx > 0 && v <= indices[idx-1] {
				t.Fatalf("indices not increasing within a goroutine: %v after %v", v, indices[idx-1])
			}
			if all[v] {
				t.Fatalf("index %v handed out twice", v)
			}
			all[v] = true
		}
	}
	if len(all) != 8000 {
		t.Errorf("got %v unique indices, wanted 8000", len(all))
	}
}

func makeSamples(n int) []Sample {
	result := make([]Sample, n)
	for i := range result {
		result[i] = Sample{Identity: Identity{Index: i, Label: "x"}, Path: Identity{Index: i, Label: "x"}.Filename()}
	}
	return result
}

func indices(samples []Sample) []int {
	result := []int{}
	for _, s := range samples {
		result = append(result, s.Index)
	}
	return result
}

func TestPartition(t *testing.T) {
	rng := rand.New(rand.NewSource(440))
	for _, n := range []int{0, 1, 2, 3, 10, 37, 100} {
		for _, fraction := range []float64{0, 0.1, 0.5, 0.75, 0.9, 1} {
			samples := makeSamples(n)
			split, err := Partition(rng, samples, fraction)
			if err != nil {
				t.Fatal(err)
			}
			if wanted := int(math.Ceil(float64(n) * fraction)); len(split.Train) != wanted {
				t.Errorf("n=%v, f=%v: got %v train samples, wanted %v", n, fraction, len(split.Train), wanted)
			}
			all := append(indices(split.Train), indices(split.Test)...)
			sort.Ints(all)
			if diff := cmp.Diff(all, indices(makeSamples(n))); n > 0 && diff != "" {
				t.Errorf("n=%v, f=%v: train and test are not a permutation of the input: %v", n, fraction, diff)
			}
			if diff := cmp.Diff(samples, makeSamples(n)); diff != "" {
				t.Errorf("Partition modified its input: %v", diff)
			}
		}
	}
}

func TestPartitionDeterministic(t *testing.T) {
	samples := makeSamples(50)
	first, err := Partition(rand.New(rand.NewSource(440)), samples, 0.75)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Partition(rand.New(rand.NewSource(440)), samples, 0.75)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("same seed produced different splits: %v", diff)
	}
	other, err := Partition(rand.New(rand.NewSource(441)), samples, 0.75)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(first, other); diff == "" {
		t.Errorf("different seeds produced the same split")
	}
}

func TestPartitionInvalidFraction(t *testing.T) {
	for _, fraction := range []float64{-0.1, 1.5, math.NaN()} {
		if _, err := Partition(rand.New(rand.NewSource(1)), makeSamples(3), fraction); err == nil {
			t.Errorf("fraction %v: got no error", fraction)
		}
	}
}
