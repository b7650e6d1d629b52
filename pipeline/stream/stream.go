/* stream handles the label and feature files written by extraction and read by quantization.
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
package stream

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// Separator separates fields in label and feature files.
const Separator = ';'

// Label is one line of a label file.
type Label struct {
	Name  string
	Label string
}

// LabelWriter appends name;label lines to a file.
type LabelWriter struct {
	lock   sync.Mutex
	path   string
	file   *os.File
	writer *bufio.Writer
}

// OpenLabels opens path for appending, creating it if necessary.
func OpenLabels(path string) (*LabelWriter, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	return &LabelWriter{
		path:   path,
		file:   f,
		writer: bufio.NewWriter(f),
	}, nil
}

// Record appends a line and flushes it, so that the label file never runs behind
// the feature file of the same split.
func (l *LabelWriter) Record(name, label string) error {
	if strings.ContainsRune(name, Separator) || strings.ContainsRune(label, Separator) {
		return fmt.Errorf("%q;%q contains the separator", name, label)
	}
	l.lock.Lock()
	defer l.lock.Unlock()
	if l.file == nil {
		return fmt.Errorf("writing %q: closed", l.path)
	}
	if _, err := fmt.Fprintf(l.writer, "%s%c%s\n", name, Separator, label); err != nil {
		return fmt.Errorf("writing %q: %w", l.path, err)
	}
	if err := l.writer.Flush(); err != nil {
		return fmt.Errorf("writing %q: %w", l.path, err)
	}
	return nil
}

// Close flushes and closes the file. Closing twice is a no-op.
func (l *LabelWriter) Close() error {
	l.lock.Lock()
	defer l.lock.Unlock()
	if l.file == nil {
		return nil
	}
	defer func() { l.file = nil }()
	if err := l.writer.Flush(); err != nil {
		l.file.Close()
		return err
	}
	return l.file.Close()
}

func newReader(r io.Reader) *csv.Reader {
	reader := csv.NewReader(r)
	reader.Comma = Separator
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	return reader
}

// ReadLabels returns the lines of a label file.
func ReadLabels(path string) ([]Label, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	reader := newReader(f)
	result := []Label{}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		if len(record) != 2 {
			return nil, fmt.Errorf("reading %q: line %v has %v fields, wanted 2", path, len(result)+1, len(record))
		}
		result = append(result, Label{Name: record[0], Label: record[1]})
	}
	return result, nil
}

// ReadInstances returns the instance names of a feature file in order of appearance.
// Header lines are skipped, and consecutive rows of the same instance count once.
func ReadInstances(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	reader := newReader(f)
	result := []string{}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		name := strings.Trim(record[0], "'")
		if name == "name" {
			continue
		}
		if len(result) > 0 && result[len(result)-1] == name {
			continue
		}
		result = append(result, name)
	}
	return result, nil
}

// MismatchError is returned when a feature file and its label file disagree.
type MismatchError struct {
	LLDs   string
	Labels string
	Reason string
}

func (m *MismatchError) Error() string {
	return fmt.Sprintf("%q and %q don't match: %s", m.LLDs, m.Labels, m.Reason)
}

// Validate checks that the instances of the feature file are the names of the label
// file, in the same order.
func Validate(llds, labels string) error {
	instances, err := ReadInstances(llds)
	if err != nil {
		return err
	}
	lines, err := ReadLabels(labels)
	if err != nil {
		return err
	}
	if len(instances) != len(lines) {
		return &MismatchError{
			LLDs:   llds,
			Labels: labels,
			Reason: fmt.Sprintf("%v instances, %v labels", len(instances), len(lines)),
		}
	}
	for idx := range instances {
		if instances[idx] != lines[idx].Name {
			return &MismatchError{
				LLDs:   llds,
				Labels: labels,
				Reason: fmt.Sprintf("instance %v is %q, label %v is %q", idx, instances[idx], idx, lines[idx].Name),
			}
		}
	}
	return nil
}

// EnsurePair checks that both files of a split exist, are non-empty and match.
func EnsurePair(llds, labels string) error {
	for _, path := range []string{llds, labels} {
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("missing stream: %w", err)
		}
		if info.Size() == 0 {
			return fmt.Errorf("stream %q is empty", path)
		}
	}
	return Validate(llds, labels)
}

// Truncate empties the given files if they exist.
func Truncate(paths ...string) error {
	for _, path := range paths {
		if err := os.Truncate(path, 0); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}
