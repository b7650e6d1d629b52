/* external runs the command line tools the pipeline delegates to.
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
package external

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// ToolError is returned when an external tool can't be started or exits unsuccessfully.
type ToolError struct {
	// Tool is the name of the tool, e.g. SMILExtract.
	Tool string
	// Path is the file the tool was working on.
	Path string
	Err  error
	// Output is the combined stdout and stderr of the tool.
	Output string
}

func (t *ToolError) Error() string {
	msg := fmt.Sprintf("%s failed on %q: %v", t.Tool, t.Path, t.Err)
	if out := strings.TrimSpace(t.Output); out != "" {
		msg = fmt.Sprintf("%s, output: %s", msg, out)
	}
	return msg
}

func (t *ToolError) Unwrap() error {
	return t.Err
}

// Command describes one invocation of an external tool.
type Command struct {
	Tool   string
	Binary string
	Args   []string
	// Path is the file the command works on, reported in errors.
	Path string
}

func (c Command) String() string {
	return strings.Join(append([]string{c.Binary}, c.Args...), " ")
}

// Run runs the command and returns its combined output.
func Run(ctx context.Context, c Command) ([]byte, error) {
	log := logrus.WithFields(logrus.Fields{
		"component": "external",
		"tool":      c.Tool,
		"path":      c.Path,
	})
	binary, err := exec.LookPath(c.Binary)
	if err != nil {
		return nil, &ToolError{Tool: c.Tool, Path: c.Path, Err: err}
	}
	log.WithField("command", c.String()).Debug("Running")
	start := time.Now()
	output, err := exec.CommandContext(ctx, binary, c.Args...).CombinedOutput()
	if err != nil {
		log.WithError(err).Debug("Failed")
		return output, &ToolError{Tool: c.Tool, Path: c.Path, Err: err, Output: string(output)}
	}
	log.WithField("duration", time.Since(start).Seconds()).Debug("Done")
	return output, nil
}

// Available returns whether binary can be found.
func Available(binary string) bool {
	_, err := exec.LookPath(binary)
	return err == nil
}
