/* arff reads the attribute-relation files written by openXBOW.
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
package arff

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode"
)

// Missing is the value of missing cells.
const Missing = "?"

// Type is the type of an attribute.
type Type int

const (
	Numeric Type = iota
	Nominal
	String
	Date
)

func (t Type) String() string {
	switch t {
	case Numeric:
		return "numeric"
	case Nominal:
		return "nominal"
	case String:
		return "string"
	case Date:
		return "date"
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// Attribute is a column of a relation.
type Attribute struct {
	Name string
	Type Type
	// Values are the allowed values of a nominal attribute.
	Values []string
}

// Relation is a parsed ARFF file. Every row has one cell per attribute.
type Relation struct {
	Name       string
	Attributes []Attribute
	Rows       [][]string
}

// SyntaxError describes a line that could not be parsed.
type SyntaxError struct {
	Line   int
	Reason string
}

func (s *SyntaxError) Error() string {
	return fmt.Sprintf("line %d: %s", s.Line, s.Reason)
}

// ReadFile parses the ARFF file at path.
func ReadFile(path string) (*Relation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	rel, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %q: %w", path, err)
	}
	return rel, nil
}

// Parse parses an ARFF stream with dense or sparse data rows.
func Parse(r io.Reader) (*Relation, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1<<20), 1<<30)
	rel := &Relation{}
	inData := false
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "%") {
			continue
		}
		if inData {
			row, err := rel.parseRow(line)
			if err != nil {
				return nil, &SyntaxError{Line: lineNumber, Reason: err.Error()}
			}
			rel.Rows = append(rel.Rows, row)
			continue
		}
		keyword, rest := token(line)
		var err error
		switch strings.ToLower(keyword) {
		case "@relation":
			rel.Name, _, err = unquote(rest)
		case "@attribute":
			var attr Attribute
			attr, err = parseAttribute(rest)
			rel.Attributes = append(rel.Attributes, attr)
		case "@data":
			if len(rel.Attributes) == 0 {
				err = fmt.Errorf("@data before any @attribute")
			}
			inData = true
		default:
			err = fmt.Errorf("unexpected %q in header", keyword)
		}
		if err != nil {
			return nil, &SyntaxError{Line: lineNumber, Reason: err.Error()}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if !inData {
		return nil, fmt.Errorf("no @data section")
	}
	return rel, nil
}

// token splits s at the first whitespace outside quotes.
func token(s string) (string, string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ""
	}
	if s[0] == '\'' || s[0] == '"' {
		for idx := 1; idx < len(s); idx++ {
			if s[idx] == '\\' {
				idx++
			} else if s[idx] == s[0] {
				return s[:idx+1], strings.TrimSpace(s[idx+1:])
			}
		}
		return s, ""
	}
	if idx := strings.IndexFunc(s, unicode.IsSpace); idx >= 0 {
		return s[:idx], strings.TrimSpace(s[idx:])
	}
	return s, ""
}

// unquote removes surrounding quotes and escapes. Returns whether s was quoted.
func unquote(s string) (string, bool, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || (s[0] != '\'' && s[0] != '"') {
		return s, false, nil
	}
	if s[len(s)-1] != s[0] {
		return "", false, fmt.Errorf("unterminated quote in %q", s)
	}
	builder := &strings.Builder{}
	inner := s[1 : len(s)-1]
	for idx := 0; idx < len(inner); idx++ {
		if inner[idx] == '\\' && idx+1 < len(inner) {
			idx++
		}
		builder.WriteByte(inner[idx])
	}
	return builder.String(), true, nil
}

// split splits s at commas outside quotes, and unquotes the parts.
func split(s string) ([]string, error) {
	parts := []string{}
	start := 0
	var quote byte
	for idx := 0; idx < len(s); idx++ {
		switch {
		case quote != 0 && s[idx] == '\\':
			idx++
		case quote != 0 && s[idx] == quote:
			quote = 0
		case quote == 0 && (s[idx] == '\'' || s[idx] == '"'):
			quote = s[idx]
		case quote == 0 && s[idx] == ',':
			parts = append(parts, s[start:idx])
			start = idx + 1
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated quote in %q", s)
	}
	parts = append(parts, s[start:])
	for idx := range parts {
		value, _, err := unquote(parts[idx])
		if err != nil {
			return nil, err
		}
		parts[idx] = value
	}
	return parts, nil
}

func parseAttribute(s string) (Attribute, error) {
	quotedName, rest := token(s)
	name, _, err := unquote(quotedName)
	if err != nil {
		return Attribute{}, err
	}
	if name == "" || rest == "" {
		return Attribute{}, fmt.Errorf("wanted @attribute <name> <type>, got %q", s)
	}
	if strings.HasPrefix(rest, "{") {
		if !strings.HasSuffix(rest, "}") {
			return Attribute{}, fmt.Errorf("unterminated nominal values %q", rest)
		}
		values, err := split(rest[1 : len(rest)-1])
		if err != nil {
			return Attribute{}, err
		}
		return Attribute{Name: name, Type: Nominal, Values: values}, nil
	}
	kind, _ := token(rest)
	switch strings.ToLower(kind) {
	case "numeric", "real", "integer":
		return Attribute{Name: name, Type: Numeric}, nil
	case "string":
		return Attribute{Name: name, Type: String}, nil
	case "date":
		return Attribute{Name: name, Type: Date}, nil
	}
	return Attribute{}, fmt.Errorf("unknown type %q of attribute %q", kind, name)
}

// zero is the value of a cell left out of a sparse row.
func (a Attribute) zero() string {
	if a.Type == Nominal && len(a.Values) > 0 {
		return a.Values[0]
	}
	if a.Type == Numeric {
		return "0"
	}
	return ""
}

func (r *Relation) parseRow(line string) ([]string, error) {
	if strings.HasPrefix(line, "{") {
		if !strings.HasSuffix(line, "}") {
			return nil, fmt.Errorf("unterminated sparse row")
		}
		row := make([]string, len(r.Attributes))
		for idx, attr := range r.Attributes {
			row[idx] = attr.zero()
		}
		inner := strings.TrimSpace(line[1 : len(line)-1])
		if inner == "" {
			return row, nil
		}
		cells, err := split(inner)
		if err != nil {
			return nil, err
		}
		for _, cell := range cells {
			indexString, quotedValue := token(cell)
			index, err := strconv.Atoi(indexString)
			if err != nil || index < 0 || index >= len(row) {
				return nil, fmt.Errorf("bad sparse index %q", indexString)
			}
			value, _, err := unquote(quotedValue)
			if err != nil {
				return nil, err
			}
			row[index] = value
		}
		return row, r.check(row)
	}
	row, err := split(line)
	if err != nil {
		return nil, err
	}
	if len(row) != len(r.Attributes) {
		return nil, fmt.Errorf("got %v values, wanted %v", len(row), len(r.Attributes))
	}
	return row, r.check(row)
}

func (r *Relation) check(row []string) error {
	for idx, attr := range r.Attributes {
		if row[idx] == Missing {
			continue
		}
		switch attr.Type {
		case Numeric:
			if _, err := strconv.ParseFloat(row[idx], 64); err != nil {
				return fmt.Errorf("attribute %q: %q is not numeric", attr.Name, row[idx])
			}
		case Nominal:
			found := false
			for _, value := range attr.Values {
				if value == row[idx] {
					found = true
					break
				}
			}
			if !found {
				return fmt.Errorf("attribute %q: %q is not one of %v", attr.Name, row[idx], attr.Values)
			}
		}
	}
	return nil
}

// Matrix returns the numeric attributes of every row as features, and the last
// attribute as the class of the row. Missing numeric values are 0.
func (r *Relation) Matrix() ([][]float64, []string, error) {
	if len(r.Attributes) < 2 {
		return nil, nil, fmt.Errorf("relation %q has no features", r.Name)
	}
	class := len(r.Attributes) - 1
	if r.Attributes[class].Type == Numeric {
		return nil, nil, fmt.Errorf("class attribute %q is numeric", r.Attributes[class].Name)
	}
	numeric := []int{}
	for idx, attr := range r.Attributes[:class] {
		if attr.Type == Numeric {
			numeric = append(numeric, idx)
		}
	}
	features := make([][]float64, len(r.Rows))
	classes := make([]string, len(r.Rows))
	for rowIdx, row := range r.Rows {
		features[rowIdx] = make([]float64, len(numeric))
		for featureIdx, attrIdx := range numeric {
			if row[attrIdx] == Missing {
				continue
			}
			value, err := strconv.ParseFloat(row[attrIdx], 64)
			if err != nil {
				return nil, nil, err
			}
			features[rowIdx][featureIdx] = value
		}
		classes[rowIdx] = row[class]
	}
	return features, classes, nil
}
