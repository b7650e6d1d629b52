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
package external

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
)

func TestMissingBinary(t *testing.T) {
	_, err := Run(context.Background(), Command{
		Tool:   "SMILExtract",
		Binary: "definitely-not-an-installed-binary",
		Path:   "1__a.wav",
	})
	toolErr := &ToolError{}
	if !errors.As(err, &toolErr) {
		t.Fatalf("got %v, wanted *ToolError", err)
	}
	if toolErr.Tool != "SMILExtract" || toolErr.Path != "1__a.wav" {
		t.Errorf("got %+v, wanted tool and path set", toolErr)
	}
	if Available("definitely-not-an-installed-binary") {
		t.Errorf("got a missing binary reported as available")
	}
}

func TestExitStatus(t *testing.T) {
	if !Available("sh") {
		t.Skip("no sh available")
	}
	_, err := Run(context.Background(), Command{
		Tool:   "sox",
		Binary: "sh",
		Args:   []string{"-c", "echo boom >&2; exit 3"},
		Path:   "in.sph",
	})
	toolErr := &ToolError{}
	if !errors.As(err, &toolErr) {
		t.Fatalf("got %v, wanted *ToolError", err)
	}
	if !strings.Contains(toolErr.Output, "boom") {
		t.Errorf("got output %q, wanted it to contain the tool output", toolErr.Output)
	}
	exitErr := &exec.ExitError{}
	if !errors.As(err, &exitErr) || exitErr.ExitCode() != 3 {
		t.Errorf("got %v, wanted exit status 3", err)
	}
	if !strings.Contains(err.Error(), "in.sph") {
		t.Errorf("got %q, wanted the path in the message", err.Error())
	}
}

func TestSuccess(t *testing.T) {
	if !Available("sh") {
		t.Skip("no sh available")
	}
	out, err := Run(context.Background(), Command{
		Tool:   "echo",
		Binary: "sh",
		Args:   []string{"-c", "echo hello"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(string(out)) != "hello" {
		t.Errorf("got %q, wanted hello", out)
	}
}
