// Copyright 2019 Google Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not
// use this file except in compliance with the License. You may obtain a copy of
// the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the
// License for the specific language governing permissions and limitations under
// the License.

// Package platform derives the human-readable OS/distribution + machine
// string recorded as Session.platform_info (spec.md §6).
package platform

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"strings"

	"github.com/google/go-pts/pts"
	"golang.org/x/sys/unix"
)

// releaseFiles lists distribution release files in priority order: LSB
// first, Debian second, then vendor-specific files, mirroring
// original_source's pts_get_platform_info candidate list.
var releaseFiles = []string{
	"/etc/lsb-release",
	"/etc/debian_version",
	"/etc/redhat-release",
	"/etc/SuSE-release",
	"/etc/fedora-release",
	"/etc/os-release",
}

// lsbReleaseFile is handled specially: it is a shell-assignment file, not a
// human-readable string, so the value comes from its DISTRIB_DESCRIPTION
// field rather than the raw file content.
const lsbReleaseFile = "/etc/lsb-release"

// lsbDescriptionKey is the exact needle original_source searches for,
// including the opening quote of the field's value.
const lsbDescriptionKey = `DISTRIB_DESCRIPTION="`

// debianVersionFile holds a bare version number, e.g. "12.4"; the original
// prepends "Debian " to distinguish it from other vendors' bare version
// files sharing the same first-non-empty-line path.
const debianVersionFile = "/etc/debian_version"

// debianPrefix is prepended to debianVersionFile's content.
const debianPrefix = "Debian "

// Info derives the platform_info string from the first matching release
// file, followed by a space-separated uname machine string. For
// /etc/lsb-release the value is its DISTRIB_DESCRIPTION field; for
// /etc/debian_version it is the first non-empty line prefixed with "Debian
// "; for every other release file it is the bare first non-empty line. It
// returns pts.ErrPlatformInfoUnavailable if no release file matches;
// callers treat that as non-fatal and continue with an empty string, per
// SPEC_FULL.md §6.
//
// Unlike original_source, the machine string is appended with a Go string
// builder that has no fixed-size buffer, so there is no equivalent of the
// original's documented buffer-overflow defect to reproduce (see
// DESIGN.md).
func Info() (string, error) {
	release, err := firstReleaseLine()
	if err != nil {
		return "", err
	}

	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return release, nil
	}

	var b strings.Builder
	b.WriteString(release)
	if machine := machineString(uts); machine != "" {
		b.WriteByte(' ')
		b.WriteString(machine)
	}
	return b.String(), nil
}

func firstReleaseLine() (string, error) {
	for _, path := range releaseFiles {
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		var line string
		var ok bool
		switch path {
		case lsbReleaseFile:
			line, ok = lsbDescription(f)
		case debianVersionFile:
			line, ok = debianDescription(f)
		default:
			line, ok = firstNonEmptyLine(f)
		}
		f.Close()
		if ok {
			return line, nil
		}
	}
	return "", pts.ErrPlatformInfoUnavailable
}

func firstNonEmptyLine(f *os.File) (string, bool) {
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			return line, true
		}
	}
	return "", false
}

// debianDescription reads /etc/debian_version's bare version line and
// prepends debianPrefix, since the file itself carries only a number like
// "12.4" with no vendor name.
func debianDescription(f *os.File) (string, bool) {
	line, ok := firstNonEmptyLine(f)
	if !ok {
		return "", false
	}
	return debianPrefix + line, true
}

// lsbDescription extracts the quoted value of DISTRIB_DESCRIPTION from an
// /etc/lsb-release file, e.g. `DISTRIB_DESCRIPTION="Ubuntu 22.04.3 LTS"`
// yields "Ubuntu 22.04.3 LTS".
func lsbDescription(f *os.File) (string, bool) {
	data, err := io.ReadAll(f)
	if err != nil {
		return "", false
	}
	content := string(data)
	idx := strings.Index(content, lsbDescriptionKey)
	if idx < 0 {
		return "", false
	}
	value := content[idx+len(lsbDescriptionKey):]
	end := strings.IndexByte(value, '"')
	if end < 0 || end == 0 {
		return "", false
	}
	return value[:end], true
}

func machineString(uts unix.Utsname) string {
	n := bytes.IndexByte(uts.Machine[:], 0)
	if n < 0 {
		n = len(uts.Machine)
	}
	return string(uts.Machine[:n])
}
