/* elar converts the recordings of ELAR language directories into a labelled WAV corpus.
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
package elar

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google-research/streamlined-genre/tools/corpus"
	"github.com/google-research/streamlined-genre/tools/external"
)

const (
	titleColumn = 0
	wavColumn   = 2
	labelColumn = 4

	manifestSuffix = "_ELAR_Directory.csv"
	bundlesDir     = "Bundles"
	byteOrderMark  = '\uFEFF'
)

// Entry is a row of an ELAR manifest.
type Entry struct {
	Title string
	WAV   string
	Label string
}

// Input returns the SPH file of the entry inside the language directory source.
func (e Entry) Input(source string) string {
	stem := strings.TrimSuffix(e.WAV, filepath.Ext(e.WAV))
	return filepath.Join(source, bundlesDir, e.Title, stem+".sph")
}

// ManifestPath returns where the manifest of the language directory source is.
func ManifestPath(source string) string {
	return filepath.Join(source, filepath.Base(filepath.Clean(source))+manifestSuffix)
}

// ExtractLabel returns the genre of a manifest label column like "Narrative - Personal history".
func ExtractLabel(raw string) string {
	raw = strings.ReplaceAll(raw, "\u00a0", " ")
	genre := strings.SplitN(raw, " - ", 2)[0]
	return strings.ReplaceAll(genre, " ", "-")
}

// ReadManifest parses the manifest of the language directory source.
func ReadManifest(source string) ([]Entry, error) {
	path := ManifestPath(source)
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	buffered := bufio.NewReader(f)
	if r, _, err := buffered.ReadRune(); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	} else if err == nil && r != byteOrderMark {
		if err := buffered.UnreadRune(); err != nil {
			return nil, err
		}
	}
	reader := csv.NewReader(buffered)
	reader.FieldsPerRecord = -1
	result := []Entry{}
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		if len(row) <= labelColumn {
			return nil, fmt.Errorf("reading %q: row %v has %v columns, wanted at least %v", path, len(result)+1, len(row), labelColumn+1)
		}
		result = append(result, Entry{
			Title: row[titleColumn],
			WAV:   row[wavColumn],
			Label: ExtractLabel(row[labelColumn]),
		})
	}
	return result, nil
}

// Converter converts an audio file to a 16 bit WAV file.
type Converter interface {
	Convert(ctx context.Context, input, output string) error
}

// Sox converts with the sox binary.
type Sox struct {
	Binary string
}

func (s *Sox) Args(input, output string) []string {
	return []string{input, "-t", "wav", "-b", "16", output}
}

func (s *Sox) Convert(ctx context.Context, input, output string) error {
	_, err := external.Run(ctx, external.Command{
		Tool:   "sox",
		Binary: s.Binary,
		Args:   s.Args(input, output),
		Path:   input,
	})
	return err
}

// conversion is one planned conversion with its reserved identity.
type conversion struct {
	input    string
	identity corpus.Identity
}

func plan(source string, entries []Entry, first int) ([]conversion, error) {
	result := make([]conversion, 0, len(entries))
	for idx, entry := range entries {
		identity := corpus.Identity{
			Index: first + idx,
			Label: entry.Label,
		}
		if err := identity.Validate(); err != nil {
			return nil, fmt.Errorf("%q entry %q: %w", ManifestPath(source), entry.WAV, err)
		}
		result = append(result, conversion{
			input:    entry.Input(source),
			identity: identity,
		})
	}
	return result, nil
}
