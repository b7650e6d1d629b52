/* augment contains randomized audio augmentations and a pipeline choosing among them.
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
package augment

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/google-research/streamlined-genre/tools/signals"
)

// Registry names of the operators, in application order.
const (
	// TimeMaskName silences a random span of samples.
	TimeMaskName = "time_mask"
	// FreqMaskName removes a random Mel band with a band-stop filter.
	FreqMaskName = "freq_mask"
	// WarpName stretches or compresses time by a random factor.
	WarpName = "warp"
	// VTLPName warps the frequency axis with vocal tract length perturbation.
	VTLPName = "vtlp"
)

// Operator is a single randomized transformation of a buffer.
type Operator interface {
	Name() string
	// Apply returns a transformed copy of buf, drawing its parameters from rng.
	Apply(rng *rand.Rand, buf signals.Float64Slice) (signals.Float64Slice, error)
}

// Names returns the names of all operators, in the order they are applied.
func Names() []string {
	return []string{TimeMaskName, FreqMaskName, WarpName, VTLPName}
}

func makeOperator(name string, rate signals.Hz) Operator {
	switch name {
	case TimeMaskName:
		return NewTimeMask()
	case FreqMaskName:
		return NewFreqMask(rate)
	case WarpName:
		return NewWarp()
	case VTLPName:
		return NewVTLP(rate)
	}
	return nil
}

// Pipeline applies a random subset of its operators. It holds no mutable state and
// can be reused for any number of buffers.
type Pipeline struct {
	operators []Operator
}

// New returns a pipeline of the named operators with their default parameters for
// buffers at rate. No names selects all operators.
func New(names []string, rate signals.Hz) (*Pipeline, error) {
	if len(names) == 0 {
		names = Names()
	}
	wanted := map[string]bool{}
	for _, name := range names {
		if makeOperator(name, rate) == nil {
			return nil, fmt.Errorf("unknown augmentation %q, available are %s", name, strings.Join(Names(), ", "))
		}
		wanted[name] = true
	}
	operators := []Operator{}
	for _, name := range Names() {
		if wanted[name] {
			operators = append(operators, makeOperator(name, rate))
		}
	}
	return NewFromOperators(operators...), nil
}

// NewFromOperators returns a pipeline applying the given operators in the given order.
func NewFromOperators(operators ...Operator) *Pipeline {
	return &Pipeline{operators: operators}
}

// Operators returns the names of the operators of the pipeline.
func (p *Pipeline) Operators() []string {
	result := make([]string, len(p.operators))
	for idx, op := range p.operators {
		result[idx] = op.Name()
	}
	return result
}

// Apply produces one variant of buf. Every operator is selected by a coin flip, and the
// selected operators run in pipeline order. If none is selected the variant is a copy
// of buf. Returns the variant and the names of the applied operators.
func (p *Pipeline) Apply(rng *rand.Rand, buf signals.Float64Slice) (signals.Float64Slice, []string, error) {
	selected := []Operator{}
	for _, op := range p.operators {
		if rng.Intn(2) == 1 {
			selected = append(selected, op)
		}
	}
	result := buf.Copy()
	applied := []string{}
	for _, op := range selected {
		var err error
		if result, err = op.Apply(rng, result); err != nil {
			return nil, nil, fmt.Errorf("%s: %w", op.Name(), err)
		}
		applied = append(applied, op.Name())
	}
	return result, applied, nil
}

// Augment returns exactly n independent variants of buf, see Apply.
func (p *Pipeline) Augment(rng *rand.Rand, buf signals.Float64Slice, n int) ([]signals.Float64Slice, error) {
	if n <= 0 {
		return nil, nil
	}
	result := make([]signals.Float64Slice, 0, n)
	for i := 0; i < n; i++ {
		variant, _, err := p.Apply(rng, buf)
		if err != nil {
			return nil, err
		}
		result = append(result, variant)
	}
	return result, nil
}
