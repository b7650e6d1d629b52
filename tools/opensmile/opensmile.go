/* opensmile extracts low level descriptors from WAV files with openSMILE.
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
package opensmile

import (
	"context"
	"sort"

	"github.com/google-research/streamlined-genre/tools/external"
)

// Extractor appends the low level descriptors of input to output, one row per frame,
// every row tagged with instance.
type Extractor interface {
	Extract(ctx context.Context, input, output, instance string) error
}

// DefaultOptions make SMILExtract append timestamped rows below a single header.
func DefaultOptions() map[string]string {
	return map[string]string{
		"appendcsvlld":    "1",
		"timestampcsvlld": "1",
		"headercsvlld":    "1",
	}
}

// SMILExtract runs the openSMILE command line tool.
type SMILExtract struct {
	Binary  string
	Config  string
	Options map[string]string
}

// New returns an extractor running binary with the given configuration file and options.
func New(binary, config string, options map[string]string) *SMILExtract {
	return &SMILExtract{
		Binary:  binary,
		Config:  config,
		Options: options,
	}
}

// Args returns the command line arguments for one extraction.
func (s *SMILExtract) Args(input, output, instance string) []string {
	args := []string{
		"-C", s.Config,
		"-I", input,
		"-lldcsvoutput", output,
		"-instname", instance,
	}
	keys := []string{}
	for key := range s.Options {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		args = append(args, "-"+key, s.Options[key])
	}
	return args
}

func (s *SMILExtract) Extract(ctx context.Context, input, output, instance string) error {
	_, err := external.Run(ctx, external.Command{
		Tool:   "SMILExtract",
		Binary: s.Binary,
		Args:   s.Args(input, output, instance),
		Path:   input,
	})
	return err
}
