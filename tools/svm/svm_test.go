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
package svm

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func clusters(rng *rand.Rand, centers map[string][]float64, perClass int) ([][]float64, []string) {
	features := [][]float64{}
	classes := []string{}
	for _, class := range []string{"Narrative", "Song", "Oratory"} {
		center, found := centers[class]
		if !found {
			continue
		}
		for i := 0; i < perClass; i++ {
			row := make([]float64, len(center))
			for idx := range center {
				row[idx] = center[idx] + rng.NormFloat64()*0.3
			}
			features = append(features, row)
			classes = append(classes, class)
		}
	}
	return features, classes
}

func TestFitSeparable(t *testing.T) {
	for _, tc := range []struct {
		name    string
		centers map[string][]float64
	}{
		{
			name:    "binary",
			centers: map[string][]float64{"Narrative": {-2, 0}, "Song": {2, 1}},
		},
		{
			name:    "three classes",
			centers: map[string][]float64{"Narrative": {-4, 0}, "Song": {4, 0}, "Oratory": {0, 5}},
		},
	} {
		rng := rand.New(rand.NewSource(1))
		features, classes := clusters(rng, tc.centers, 30)
		model, err := Fit(features, classes, DefaultParams())
		if err != nil {
			t.Fatal(err)
		}
		wantedWeights := len(tc.centers)
		if wantedWeights == 2 {
			wantedWeights = 1
		}
		if len(model.Weights) != wantedWeights {
			t.Errorf("%s: got %v weight vectors, wanted %v", tc.name, len(model.Weights), wantedWeights)
		}
		accuracy, err := model.Accuracy(features, classes)
		if err != nil {
			t.Fatal(err)
		}
		if accuracy != 1 {
			t.Errorf("%s: got train accuracy %v, wanted 1", tc.name, accuracy)
		}
		testFeatures, testClasses := clusters(rng, tc.centers, 10)
		if accuracy, err = model.Accuracy(testFeatures, testClasses); err != nil || accuracy < 0.95 {
			t.Errorf("%s: got test accuracy %v, %v, wanted at least 0.95", tc.name, accuracy, err)
		}
	}
}

func TestFitDeterministic(t *testing.T) {
	features, classes := clusters(rand.New(rand.NewSource(2)), map[string][]float64{"Narrative": {0, 0}, "Song": {0.5, 0.5}}, 20)
	first, err := Fit(features, classes, DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	second, err := Fit(features, classes, DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("got different models from the same data: %v", diff)
	}
}

func TestFitErrors(t *testing.T) {
	for _, tc := range []struct {
		name     string
		features [][]float64
		classes  []string
		params   Params
	}{
		{name: "empty", params: DefaultParams()},
		{name: "one class", features: [][]float64{{1}, {2}}, classes: []string{"Song", "Song"}, params: DefaultParams()},
		{name: "ragged", features: [][]float64{{1}, {2, 3}}, classes: []string{"Song", "Narrative"}, params: DefaultParams()},
		{name: "length mismatch", features: [][]float64{{1}}, classes: []string{"Song", "Narrative"}, params: DefaultParams()},
		{name: "zero C", features: [][]float64{{1}, {2}}, classes: []string{"Song", "Narrative"}, params: Params{MaxIter: 1}},
	} {
		if _, err := Fit(tc.features, tc.classes, tc.params); err == nil {
			t.Errorf("%s: got no error", tc.name)
		}
	}
}

func TestPredictBinary(t *testing.T) {
	m := &Model{
		Classes: []string{"Narrative", "Song"},
		Weights: [][]float64{{1, 0}},
		Bias:    []float64{-1},
	}
	for _, tc := range []struct {
		row    []float64
		wanted string
	}{
		{row: []float64{2, 0}, wanted: "Song"},
		{row: []float64{0.5, 7}, wanted: "Narrative"},
	} {
		if got := m.Predict(tc.row); got != tc.wanted {
			t.Errorf("Predict(%v): got %v, wanted %v", tc.row, got, tc.wanted)
		}
	}
	if _, err := m.Accuracy([][]float64{{1}}, []string{"Song"}); err == nil {
		t.Errorf("got no error for a row of the wrong width")
	}
}
