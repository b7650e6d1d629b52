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
package signals

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	resampling "github.com/tphakala/go-audio-resampling"
	"github.com/youpy/go-wav"
)

// ErrNoSamples is returned when the data chunk of a WAV file holds no sample frames.
var ErrNoSamples = errors.New("no samples")

// WAVSource is what the WAV reader needs to parse the RIFF chunks.
type WAVSource interface {
	io.Reader
	io.ReaderAt
}

// ReadWAV decodes the first channel of a WAV stream and resamples it to rate.
func ReadWAV(r WAVSource, rate Hz) (Float64Slice, error) {
	reader := wav.NewReader(r)
	format, err := reader.Format()
	if err != nil {
		return nil, err
	}
	// FloatValue of the reader scales by 2^bits, which halves every sample.
	scale := math.Pow(2, float64(format.BitsPerSample-1))
	var buffer Float64Slice
	for {
		samples, err := reader.ReadSamples()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, err
		}
		for _, sample := range samples {
			buffer = append(buffer, float64(reader.IntValue(sample, 0))/scale)
		}
	}
	if len(buffer) == 0 {
		return nil, ErrNoSamples
	}
	return buffer.Resample(Hz(format.SampleRate), rate)
}

// ReadWAVFile decodes the WAV file at path, see ReadWAV.
func ReadWAVFile(path string, rate Hz) (Float64Slice, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadWAV(f, rate)
}

// WriteWAV writes the samples as a mono 16 bit WAV file to a writer, declaring a given
// sample rate. Values outside -1.0 and 1.0 are clipped.
func (f Float64Slice) WriteWAV(w io.Writer, rate Hz) error {
	wavSamples := make([]wav.Sample, len(f))
	for idx := range f {
		clipped := math.Max(-1, math.Min(1, f[idx]))
		val := int(clipped * float64(math.MaxInt16))
		wavSamples[idx] = wav.Sample{
			Values: [2]int{val, val},
		}
	}
	buf := &bytes.Buffer{}
	wavWriter := wav.NewWriter(buf, uint32(len(f)), 1, uint32(rate), 16)
	if err := wavWriter.WriteSamples(wavSamples); err != nil {
		return err
	}
	_, err := io.Copy(w, buf)
	return err
}

// WriteWAVFile creates (or truncates) path and writes the samples to it, see WriteWAV.
func (f Float64Slice) WriteWAVFile(path string, rate Hz) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := f.WriteWAV(out, rate); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// Resample returns the buffer converted from one sample rate to another.
func (f Float64Slice) Resample(from, to Hz) (Float64Slice, error) {
	if from <= 0 || to <= 0 {
		return nil, fmt.Errorf("invalid resampling %vHz -> %vHz", from, to)
	}
	if from == to || len(f) == 0 {
		return f.Copy(), nil
	}
	resampler, err := resampling.New(&resampling.Config{
		InputRate:  float64(from),
		OutputRate: float64(to),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create resampler: %w", err)
	}
	// One second of trailing silence pushes the last input samples through the filter delay.
	padded := make([]float64, len(f)+int(from))
	copy(padded, f)
	output, err := resampler.Process(padded)
	if err != nil {
		return nil, fmt.Errorf("resample error: %w", err)
	}
	want := int(math.Round(float64(len(f)) * float64(to) / float64(from)))
	result := make(Float64Slice, want)
	copy(result, output)
	return result, nil
}
