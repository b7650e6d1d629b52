/* openxbow quantizes low level descriptors into bags of words with openXBOW.
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
package openxbow

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/cheggaaa/pb"
	"github.com/google-research/streamlined-genre/tools/external"
	"github.com/sirupsen/logrus"
)

// DefaultURL is where the openXBOW jar is published.
const DefaultURL = "https://github.com/openXBOW/openXBOW/blob/master/openXBOW.jar?raw=true"

// Job is one quantization of a feature file and its label file.
type Job struct {
	LLDs   string
	Labels string
	Output string
	// Codebook is created when UseCodebook is false, and read otherwise.
	Codebook    string
	UseCodebook bool
	Append      bool
}

// Quantizer turns feature and label files into bags of words.
type Quantizer interface {
	Quantize(ctx context.Context, job Job) error
}

// Java runs the openXBOW jar.
type Java struct {
	// Java is the java binary.
	Java string
	Jar  string
	// URL is where Jar is downloaded from if it doesn't exist.
	URL string
	// Memory is the JVM heap limit, e.g. 12G. Empty leaves the JVM default.
	Memory   string
	Progress bool
}

// Args returns the command line arguments for the job.
func (j *Java) Args(job Job) []string {
	args := []string{}
	if j.Memory != "" {
		args = append(args, "-Xmx"+j.Memory)
	}
	args = append(args,
		"-jar", j.Jar,
		"-i", job.LLDs,
		"-o", job.Output,
		"-l", job.Labels,
	)
	if job.UseCodebook {
		args = append(args, "-b", job.Codebook)
	} else {
		args = append(args, "-B", job.Codebook)
	}
	if job.Append {
		args = append(args, "-append")
	}
	if job.Append || !job.UseCodebook {
		args = append(args, "-standardizeInput")
	}
	return append(args, "-log")
}

func (j *Java) Quantize(ctx context.Context, job Job) error {
	if err := EnsureJar(ctx, j.Jar, j.URL, j.Progress); err != nil {
		return err
	}
	_, err := external.Run(ctx, external.Command{
		Tool:   "openXBOW",
		Binary: j.Java,
		Args:   j.Args(job),
		Path:   job.LLDs,
	})
	return err
}

// EnsureJar downloads url to path unless path already exists.
func EnsureJar(ctx context.Context, path, url string, progress bool) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}
	log := logrus.WithFields(logrus.Fields{
		"component": "openxbow",
		"path":      path,
	})
	log.WithField("url", url).Info("Downloading openXBOW")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("downloading %q: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("downloading %q: %s", url, resp.Status)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".openXBOW-*.jar")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	var body io.Reader = resp.Body
	if progress && resp.ContentLength > 0 {
		bar := pb.New64(resp.ContentLength).SetUnits(pb.U_BYTES).Prefix("openXBOW")
		bar.Start()
		defer bar.Finish()
		body = bar.NewProxyReader(resp.Body)
	}
	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		return fmt.Errorf("downloading %q: %w", url, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return err
	}
	log.Info("Downloaded openXBOW")
	return nil
}
