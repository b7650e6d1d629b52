/* config contains the configuration of the genre pipeline and the file layout derived from it.
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
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"
	"github.com/google-research/streamlined-genre/tools/augment"
	"github.com/google-research/streamlined-genre/tools/opensmile"
	"github.com/google-research/streamlined-genre/tools/openxbow"
	"github.com/google-research/streamlined-genre/tools/signals"
)

// Config is the configuration of all pipeline stages.
type Config struct {
	// Sources are ELAR directories, or glob patterns matching them.
	Sources []string `yaml:"sources,omitempty"`
	// WAVDir holds the labelled corpus.
	WAVDir string `yaml:"wav_dir"`
	// CompiledDir holds features, labels, bags of words and the codebook.
	CompiledDir string `yaml:"compiled_dir"`
	// Seed seeds the single random source of an extraction run.
	Seed int64 `yaml:"seed"`
	// SampleRate is the rate every buffer is resampled to.
	SampleRate float64 `yaml:"sample_rate"`

	Transfer TransferConfig `yaml:"transfer"`
	Extract  ExtractConfig  `yaml:"extract"`
	XBOW     XBOWConfig     `yaml:"xbow"`
	Classify ClassifyConfig `yaml:"classify"`
}

// TransferConfig configures conversion of ELAR bundles.
type TransferConfig struct {
	Sox string `yaml:"sox"`
	// Workers is the number of concurrent conversions, 0 for one per CPU.
	Workers int `yaml:"workers"`
}

// ExtractConfig configures augmentation and feature extraction.
type ExtractConfig struct {
	NumAugments int `yaml:"num_augments"`
	// Augments are the operator names to choose from, empty for all.
	Augments      []string `yaml:"augments,omitempty"`
	TrainFraction float64  `yaml:"train_fraction"`
	// SkipUndecodable logs and skips augmentation of training files that can't be decoded
	// instead of failing the run.
	SkipUndecodable bool `yaml:"skip_undecodable"`
	// ScratchDir is where the temporary directory of augmented files is created,
	// empty for the system default.
	ScratchDir   string            `yaml:"scratch_dir,omitempty"`
	SMILExtract  string            `yaml:"smilextract"`
	SMILEConfig  string            `yaml:"smile_config"`
	SMILEOptions map[string]string `yaml:"smile_options,omitempty"`
}

// XBOWConfig configures quantization.
type XBOWConfig struct {
	Java   string `yaml:"java"`
	Jar    string `yaml:"jar"`
	URL    string `yaml:"url"`
	Memory string `yaml:"memory"`
}

// ClassifyConfig configures the linear classifier.
type ClassifyConfig struct {
	C       float64 `yaml:"c"`
	MaxIter int     `yaml:"max_iter"`
	Tol     float64 `yaml:"tol"`
	Seed    int64   `yaml:"seed"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		WAVDir:      "wavs",
		CompiledDir: "compiled",
		Seed:        440,
		SampleRate:  float64(signals.WorkingRate),
		Transfer: TransferConfig{
			Sox: "sox",
		},
		Extract: ExtractConfig{
			NumAugments:   5,
			TrainFraction: 0.75,
			SMILExtract:   "SMILExtract",
			SMILEConfig:   filepath.Join("config", "openSMILE", "ComParE_2016.conf"),
			SMILEOptions:  opensmile.DefaultOptions(),
		},
		XBOW: XBOWConfig{
			Java:   "java",
			Jar:    filepath.Join("lib", "openXBOW.jar"),
			URL:    openxbow.DefaultURL,
			Memory: "12G",
		},
		Classify: ClassifyConfig{
			C:       1,
			MaxIter: 10000,
			Tol:     1e-4,
		},
	}
}

// Load returns the defaults overridden by the YAML file at path.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %q: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration as YAML to path.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// Rate returns the working sample rate.
func (c *Config) Rate() signals.Hz {
	return signals.Hz(c.SampleRate)
}

// Validate returns an error describing the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.SampleRate <= 0:
		return fmt.Errorf("sample_rate %v must be positive", c.SampleRate)
	case c.Transfer.Workers < 0:
		return fmt.Errorf("transfer.workers %v must not be negative", c.Transfer.Workers)
	case c.Extract.NumAugments < 0:
		return fmt.Errorf("extract.num_augments %v must not be negative", c.Extract.NumAugments)
	case math.IsNaN(c.Extract.TrainFraction) || c.Extract.TrainFraction < 0 || c.Extract.TrainFraction > 1:
		return fmt.Errorf("extract.train_fraction %v not in [0, 1]", c.Extract.TrainFraction)
	case c.Classify.C <= 0:
		return fmt.Errorf("classify.c %v must be positive", c.Classify.C)
	case c.Classify.MaxIter <= 0:
		return fmt.Errorf("classify.max_iter %v must be positive", c.Classify.MaxIter)
	}
	if _, err := augment.New(c.Extract.Augments, c.Rate()); err != nil {
		return fmt.Errorf("extract.augments: %w", err)
	}
	return nil
}

// FileSystem returns the file layout of the configuration.
func (c *Config) FileSystem() FileSystem {
	return FileSystem{
		Sources:     c.Sources,
		WAVDir:      c.WAVDir,
		CompiledDir: c.CompiledDir,
	}
}

// FileSystem is where every stage reads and writes.
type FileSystem struct {
	Sources     []string
	WAVDir      string
	CompiledDir string
}

// EnsureCompiledDir creates the compiled directory if it doesn't exist.
func (f FileSystem) EnsureCompiledDir() error {
	if f.CompiledDir == "" {
		return fmt.Errorf("no compiled directory configured")
	}
	return os.MkdirAll(f.CompiledDir, 0755)
}

func (f FileSystem) LLDTrainFile() string {
	return filepath.Join(f.CompiledDir, "audio_llds_train.csv")
}

func (f FileSystem) LLDTestFile() string {
	return filepath.Join(f.CompiledDir, "audio_llds_test.csv")
}

func (f FileSystem) LabelsTrainFile() string {
	return filepath.Join(f.CompiledDir, "labels_train.csv")
}

func (f FileSystem) LabelsTestFile() string {
	return filepath.Join(f.CompiledDir, "labels_test.csv")
}

func (f FileSystem) XBOWTrainFile() string {
	return filepath.Join(f.CompiledDir, "xbow_train.arff")
}

func (f FileSystem) XBOWTestFile() string {
	return filepath.Join(f.CompiledDir, "xbow_test.arff")
}

func (f FileSystem) CodebookFile() string {
	return filepath.Join(f.CompiledDir, "codebook")
}

// StreamFiles returns the feature and label files written by extraction.
func (f FileSystem) StreamFiles() []string {
	return []string{f.LLDTrainFile(), f.LabelsTrainFile(), f.LLDTestFile(), f.LabelsTestFile()}
}
