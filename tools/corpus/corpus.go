/* corpus contains the naming scheme, listing and partitioning of labelled WAV files.
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
package corpus

import (
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
)

const (
	// Delimiter separates index and label in file names.
	Delimiter = "__"
	// Extension is the extension of corpus files.
	Extension = ".wav"
)

// LabelParseError is returned for file names not following {index}__{label}.wav.
type LabelParseError struct {
	Name   string
	Reason string
}

func (l *LabelParseError) Error() string {
	return fmt.Sprintf("cannot parse %q: %s", l.Name, l.Reason)
}

// Identity is what a corpus file name encodes.
type Identity struct {
	Index int
	Label string
}

// Name returns the instance name used in feature and label files.
func (i Identity) Name() string {
	return strconv.Itoa(i.Index)
}

// Filename returns the base name of the file with this identity.
func (i Identity) Filename() string {
	return fmt.Sprintf("%d%s%s%s", i.Index, Delimiter, i.Label, Extension)
}

// Validate returns a LabelParseError if the identity can't survive a round trip through its file name.
func (i Identity) Validate() error {
	switch {
	case i.Index < 0:
		return &LabelParseError{Name: i.Filename(), Reason: "negative index"}
	case i.Label == "":
		return &LabelParseError{Name: i.Filename(), Reason: "empty label"}
	case strings.Contains(i.Label, Delimiter):
		return &LabelParseError{Name: i.Filename(), Reason: fmt.Sprintf("label contains %q", Delimiter)}
	case strings.ContainsAny(i.Label, "/;\n"):
		return &LabelParseError{Name: i.Filename(), Reason: "label contains a path or record separator"}
	}
	return nil
}

// ParseFilename parses a base name like 12__Narrative.wav.
func ParseFilename(name string) (Identity, error) {
	if filepath.Ext(name) != Extension {
		return Identity{}, &LabelParseError{Name: name, Reason: fmt.Sprintf("extension is not %s", Extension)}
	}
	parts := strings.Split(strings.TrimSuffix(name, Extension), Delimiter)
	if len(parts) != 2 {
		return Identity{}, &LabelParseError{Name: name, Reason: fmt.Sprintf("wanted exactly one %q", Delimiter)}
	}
	index, err := strconv.Atoi(parts[0])
	if err != nil {
		return Identity{}, &LabelParseError{Name: name, Reason: fmt.Sprintf("index %q is not an integer", parts[0])}
	}
	result := Identity{Index: index, Label: parts[1]}
	if err := result.Validate(); err != nil {
		return Identity{}, &LabelParseError{Name: name, Reason: err.(*LabelParseError).Reason}
	}
	return result, nil
}

// Sample is a corpus file.
type Sample struct {
	Identity
	Path string
}

// List returns the corpus files in dir, ordered by index. Files without the corpus
// extension and directories are ignored.
func List(dir string) ([]Sample, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	result := []Sample{}
	seen := map[int]string{}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != Extension {
			continue
		}
		identity, err := ParseFilename(entry.Name())
		if err != nil {
			return nil, err
		}
		if other, found := seen[identity.Index]; found {
			return nil, fmt.Errorf("index %v used by both %q and %q", identity.Index, other, entry.Name())
		}
		seen[identity.Index] = entry.Name()
		result = append(result, Sample{
			Identity: identity,
			Path:     filepath.Join(dir, entry.Name()),
		})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Index < result[j].Index
	})
	return result, nil
}

// NextIndex returns the first index safe to assign after the samples: the larger of
// their count and their highest index plus one.
func NextIndex(samples []Sample) int {
	next := len(samples)
	for _, sample := range samples {
		if sample.Index+1 > next {
			next = sample.Index + 1
		}
	}
	return next
}

// Counter hands out strictly increasing indices. It is safe for concurrent use.
type Counter struct {
	lock sync.Mutex
	next int
}

// NewCounter returns a counter starting at start.
func NewCounter(start int) *Counter {
	return &Counter{next: start}
}

// Next returns the next index.
func (c *Counter) Next() int {
	return c.Reserve(1)
}

// Reserve reserves n consecutive indices and returns the first.
func (c *Counter) Reserve(n int) int {
	c.lock.Lock()
	defer c.lock.Unlock()
	first := c.next
	if n > 0 {
		c.next += n
	}
	return first
}

// Peek returns the index the next call to Next would return.
func (c *Counter) Peek() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.next
}

// Split is a train/test partition.
type Split struct {
	Train []Sample
	Test  []Sample
}

// Partition shuffles a copy of samples and puts the first ceil(len * trainFraction)
// of them in the train split, the rest in the test split.
func Partition(rng *rand.Rand, samples []Sample, trainFraction float64) (Split, error) {
	if math.IsNaN(trainFraction) || trainFraction < 0 || trainFraction > 1 {
		return Split{}, fmt.Errorf("train fraction %v not in [0, 1]", trainFraction)
	}
	shuffled := make([]Sample, len(samples))
	copy(shuffled, samples)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	splitPoint := int(math.Ceil(float64(len(shuffled)) * trainFraction))
	return Split{
		Train: shuffled[:splitPoint:splitPoint],
		Test:  shuffled[splitPoint:],
	}, nil
}
