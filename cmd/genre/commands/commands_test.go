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
package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google-research/streamlined-genre/tools/corpus"
	"github.com/google/go-cmp/cmp"
)

func TestVersion(t *testing.T) {
	out := &bytes.Buffer{}
	rootCmd.SetOut(out)
	rootCmd.SetArgs([]string{"version"})
	defer rootCmd.SetArgs(nil)
	if err := rootCmd.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out.String(), "genre dev") {
		t.Errorf("got %q, wanted the version", out.String())
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "genre.yaml")
	if err := os.WriteFile(path, []byte("extract:\n  num_augments: 2\n  train_fraction: 0.5\nxbow:\n  memory: 4G\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := extractCmd.ParseFlags([]string{"-f", path, "-n", "3", "-a", "vtlp", "-a", "warp", "-w", "corpus"}); err != nil {
		t.Fatal(err)
	}
	cfg, err := loadConfig(extractCmd)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Extract.NumAugments != 3 {
		t.Errorf("got %v augments, wanted the flag to override the file", cfg.Extract.NumAugments)
	}
	if cfg.Extract.TrainFraction != 0.5 || cfg.XBOW.Memory != "4G" {
		t.Errorf("got %+v, wanted the file values kept", cfg)
	}
	if diff := cmp.Diff(cfg.Extract.Augments, []string{"vtlp", "warp"}); diff != "" {
		t.Errorf("got unexpected augments: %v", diff)
	}
	if cfg.WAVDir != "corpus" || cfg.CompiledDir != "compiled" {
		t.Errorf("got directories %q and %q", cfg.WAVDir, cfg.CompiledDir)
	}
}

func TestClassifyCommand(t *testing.T) {
	dir := t.TempDir()
	bow := "@relation openXBOW\n@attribute name string\n@attribute Word_1 numeric\n@attribute class {Narrative,Song}\n@data\n'0',0,Narrative\n'1',5,Song\n"
	for _, name := range []string{"xbow_train.arff", "xbow_test.arff"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(bow), 0644); err != nil {
			t.Fatal(err)
		}
	}
	out := &bytes.Buffer{}
	rootCmd.SetOut(out)
	rootCmd.SetArgs([]string{"classify", "-o", dir})
	defer rootCmd.SetArgs(nil)
	if err := rootCmd.Execute(); err != nil {
		t.Fatal(err)
	}
	if wanted := "Train accuracy: 1\nTest accuracy: 1\n"; out.String() != wanted {
		t.Errorf("got %q, wanted %q", out.String(), wanted)
	}
}

func TestSynthesizeCommand(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "wavs")
	rootCmd.SetArgs([]string{"synthesize", "-w", dir, "--labels", "Narrative,Song", "--per-label", "2", "--duration", "0.1"})
	defer rootCmd.SetArgs(nil)
	if err := rootCmd.Execute(); err != nil {
		t.Fatal(err)
	}
	samples, err := corpus.List(dir)
	if err != nil {
		t.Fatal(err)
	}
	labels := []string{}
	for _, sample := range samples {
		labels = append(labels, sample.Label)
	}
	if diff := cmp.Diff(labels, []string{"Narrative", "Song", "Narrative", "Song"}); diff != "" {
		t.Errorf("got unexpected corpus: %v", diff)
	}
}
