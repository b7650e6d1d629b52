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
package elar

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/bmatcuk/doublestar/v2"
	"github.com/cheggaaa/pb"
	"github.com/google-research/streamlined-genre/tools/corpus"
	"github.com/google-research/streamlined-genre/tools/workerpool"
	"github.com/sirupsen/logrus"
)

const convertQueue = "convert"

// ExpandSources returns the directories matched by the patterns, in pattern order and
// sorted within each pattern. A pattern without glob characters is returned as is.
func ExpandSources(patterns []string) ([]string, error) {
	result := []string{}
	seen := map[string]bool{}
	for _, pattern := range patterns {
		matches, err := doublestar.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad source pattern %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("source %q matches nothing", pattern)
		}
		sort.Strings(matches)
		for _, match := range matches {
			info, err := os.Stat(match)
			if err != nil {
				return nil, err
			}
			if !info.IsDir() || seen[match] {
				continue
			}
			seen[match] = true
			result = append(result, match)
		}
	}
	return result, nil
}

// Transfer converts the recordings of language directories into Dest.
type Transfer struct {
	Converter Converter
	Dest      string
	// Workers is the number of concurrent conversions, 0 for one per CPU.
	Workers  int
	Progress bool
}

// Run converts every entry of the manifests of sources. Indices continue after the
// highest index of the corpus already in Dest, and are assigned in manifest order before any
// conversion starts. Returns the number of converted files.
func (t *Transfer) Run(ctx context.Context, sources []string) (int, error) {
	if err := os.MkdirAll(t.Dest, 0755); err != nil {
		return 0, err
	}
	existing, err := corpus.List(t.Dest)
	if err != nil {
		return 0, fmt.Errorf("listing %q: %w", t.Dest, err)
	}
	counter := corpus.NewCounter(corpus.NextIndex(existing))
	conversions := []conversion{}
	for _, source := range sources {
		entries, err := ReadManifest(source)
		if err != nil {
			return 0, err
		}
		planned, err := plan(source, entries, counter.Reserve(len(entries)))
		if err != nil {
			return 0, err
		}
		logrus.WithFields(logrus.Fields{
			"component": "elar",
			"path":      ManifestPath(source),
			"entries":   len(entries),
		}).Info("Read manifest")
		conversions = append(conversions, planned...)
	}

	workers := t.Workers
	if workers == 0 {
		workers = runtime.NumCPU()
	}
	var bar *pb.ProgressBar
	if t.Progress {
		bar = pb.StartNew(len(conversions)).Prefix("Converting")
		defer bar.Finish()
	}
	pool := workerpool.New(map[string]int{convertQueue: workers})
	for _, cVar := range conversions {
		c := cVar
		pool.Queue(convertQueue, func() error {
			output := filepath.Join(t.Dest, c.identity.Filename())
			if err := t.Converter.Convert(ctx, c.input, output); err != nil {
				return fmt.Errorf("converting %q to %q: %w", c.input, output, err)
			}
			logrus.WithFields(logrus.Fields{
				"component": "elar",
				"path":      output,
			}).Debug("Converted")
			if bar != nil {
				bar.Increment()
			}
			return nil
		})
	}
	pool.Close(convertQueue)
	if err := pool.Wait(convertQueue); err != nil {
		return 0, err
	}
	return len(conversions), nil
}
