/* svm trains one-vs-rest linear support vector machines with squared hinge loss.
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
package svm

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
)

// Params configures training.
type Params struct {
	// C is the inverse regularization strength.
	C       float64
	MaxIter int
	// Tol stops training when the projected gradient spans less than Tol.
	Tol  float64
	Seed int64
}

// DefaultParams returns C 1, 10000 iterations, tolerance 1e-4 and seed 0.
func DefaultParams() Params {
	return Params{
		C:       1,
		MaxIter: 10000,
		Tol:     1e-4,
	}
}

// Model is a trained classifier. With two classes it has a single weight vector
// voting for the second class, otherwise one per class.
type Model struct {
	Classes []string
	Weights [][]float64
	Bias    []float64
}

// Fit trains a model on the rows of features labelled by classes.
func Fit(features [][]float64, classes []string, params Params) (*Model, error) {
	if len(features) == 0 || len(features) != len(classes) {
		return nil, fmt.Errorf("got %v rows and %v classes", len(features), len(classes))
	}
	if params.C <= 0 || params.MaxIter <= 0 {
		return nil, fmt.Errorf("invalid parameters %+v", params)
	}
	width := len(features[0])
	// Every row gets a constant 1 feature, whose weight is the bias.
	rows := make([][]float64, len(features))
	for idx, row := range features {
		if len(row) != width {
			return nil, fmt.Errorf("row %v has %v features, wanted %v", idx, len(row), width)
		}
		rows[idx] = append(append(make([]float64, 0, width+1), row...), 1)
	}
	model := &Model{Classes: uniq(classes)}
	if len(model.Classes) < 2 {
		return nil, fmt.Errorf("got only classes %v, wanted at least 2", model.Classes)
	}
	positives := model.Classes
	if len(positives) == 2 {
		positives = positives[1:]
	}
	for _, positive := range positives {
		targets := make([]float64, len(classes))
		for idx, class := range classes {
			targets[idx] = -1
			if class == positive {
				targets[idx] = 1
			}
		}
		w, iterations := dualCoordinateDescent(rows, targets, params)
		if iterations >= params.MaxIter {
			logrus.WithFields(logrus.Fields{
				"component": "svm",
				"class":     positive,
			}).Warnf("Reached %v iterations without converging", params.MaxIter)
		}
		model.Weights = append(model.Weights, w[:width])
		model.Bias = append(model.Bias, w[width])
	}
	return model, nil
}

func uniq(classes []string) []string {
	seen := map[string]bool{}
	result := []string{}
	for _, class := range classes {
		if !seen[class] {
			seen[class] = true
			result = append(result, class)
		}
	}
	sort.Strings(result)
	return result
}

// dualCoordinateDescent solves the dual of the L2 regularized squared hinge loss
// problem, visiting the rows in a random order every iteration. Returns the weights
// and the number of iterations run.
func dualCoordinateDescent(rows [][]float64, targets []float64, params Params) ([]float64, int) {
	rng := rand.New(rand.NewSource(params.Seed))
	diag := 0.5 / params.C
	w := make([]float64, len(rows[0]))
	alpha := make([]float64, len(rows))
	qd := make([]float64, len(rows))
	for idx, row := range rows {
		qd[idx] = floats.Dot(row, row) + diag
	}
	order := make([]int, len(rows))
	for idx := range order {
		order[idx] = idx
	}
	iter := 0
	for ; iter < params.MaxIter; iter++ {
		rng.Shuffle(len(order), func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})
		maxPG, minPG := math.Inf(-1), math.Inf(1)
		for _, i := range order {
			g := targets[i]*floats.Dot(w, rows[i]) - 1 + diag*alpha[i]
			pg := g
			if alpha[i] == 0 {
				pg = math.Min(g, 0)
			}
			maxPG = math.Max(maxPG, pg)
			minPG = math.Min(minPG, pg)
			if math.Abs(pg) > 1e-12 {
				old := alpha[i]
				alpha[i] = math.Max(alpha[i]-g/qd[i], 0)
				floats.AddScaled(w, (alpha[i]-old)*targets[i], rows[i])
			}
		}
		if maxPG-minPG <= params.Tol {
			break
		}
	}
	return w, iter
}

// Scores returns the decision value of every weight vector for row.
func (m *Model) Scores(row []float64) []float64 {
	result := make([]float64, len(m.Weights))
	for idx, w := range m.Weights {
		result[idx] = floats.Dot(w, row) + m.Bias[idx]
	}
	return result
}

// Predict returns the class of row.
func (m *Model) Predict(row []float64) string {
	scores := m.Scores(row)
	if len(m.Classes) == 2 {
		if scores[0] > 0 {
			return m.Classes[1]
		}
		return m.Classes[0]
	}
	return m.Classes[floats.MaxIdx(scores)]
}

// Accuracy returns the fraction of rows predicted as their class.
func (m *Model) Accuracy(features [][]float64, classes []string) (float64, error) {
	if len(features) == 0 || len(features) != len(classes) {
		return 0, fmt.Errorf("got %v rows and %v classes", len(features), len(classes))
	}
	width := len(m.Weights[0])
	correct := 0
	for idx, row := range features {
		if len(row) != width {
			return 0, fmt.Errorf("row %v has %v features, wanted %v", idx, len(row), width)
		}
		if m.Predict(row) == classes[idx] {
			correct++
		}
	}
	return float64(correct) / float64(len(features)), nil
}
