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

package measure

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-pts/pts"
	"github.com/google/go-pts/pts/adapter"
)

func TestIsPathValid(t *testing.T) {
	// Spec scenario S5.
	if status, err := IsPathValid("/nonexistent/x"); status != PathNotFound || err != nil {
		t.Errorf("IsPathValid(/nonexistent/x) = (%v, %v), want (PathNotFound, nil)", status, err)
	}
	if status, err := IsPathValid("/"); status != PathOk || err != nil {
		t.Errorf("IsPathValid(/) = (%v, %v), want (PathOk, nil)", status, err)
	}
}

func writeTree(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"a.txt":   "alpha",
		"b.txt":   "beta",
		".hidden": "should be skipped",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("WriteFile(%s) = %v, want nil", name, err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "subdir"), 0o755); err != nil {
		t.Fatalf("Mkdir(subdir) = %v, want nil", err)
	}
	return dir
}

func sortedNames(m *FileMeasurements) []string {
	var names []string
	for _, e := range m.Entries {
		names = append(names, e.LogicalName)
	}
	sort.Strings(names)
	return names
}

func TestMeasureDirectoryDeterminism(t *testing.T) {
	dir := writeTree(t)
	hashers := adapter.HasherFactory{}
	enum := adapter.OSDirEnumerator{}

	first, err := Measure("req-1", dir, true, pts.HashSHA256, hashers, enum)
	if err != nil {
		t.Fatalf("Measure() first pass = %v, want nil", err)
	}
	second, err := Measure("req-2", dir, true, pts.HashSHA256, hashers, enum)
	if err != nil {
		t.Fatalf("Measure() second pass = %v, want nil", err)
	}

	if diff := cmp.Diff(sortedNames(first), sortedNames(second)); diff != "" {
		t.Errorf("logical names differ between passes (-first +second):\n%s", diff)
	}
	if got, want := sortedNames(first), []string{"a.txt", "b.txt"}; !cmp.Equal(got, want) {
		t.Errorf("logical names = %v, want %v (dot-prefixed and directory entries excluded)", got, want)
	}

	digestByName := func(m *FileMeasurements) map[string]string {
		out := map[string]string{}
		for _, e := range m.Entries {
			out[e.LogicalName] = string(e.Digest)
		}
		return out
	}
	if diff := cmp.Diff(digestByName(first), digestByName(second)); diff != "" {
		t.Errorf("digests differ between passes (-first +second):\n%s", diff)
	}
}

func TestMeasureSingleFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "single.txt")
	if err := os.WriteFile(path, []byte("payload"), 0o644); err != nil {
		t.Fatalf("WriteFile() = %v, want nil", err)
	}

	m, err := Measure("req", path, false, pts.HashSHA256, adapter.HasherFactory{}, adapter.OSDirEnumerator{})
	if err != nil {
		t.Fatalf("Measure() = %v, want nil", err)
	}
	if len(m.Entries) != 1 || m.Entries[0].LogicalName != "single.txt" {
		t.Errorf("Entries = %+v, want a single entry named single.txt", m.Entries)
	}
}

func TestMeasureFailsAtomicallyOnMissingFile(t *testing.T) {
	if _, err := Measure("req", "/nonexistent/x", false, pts.HashSHA256, adapter.HasherFactory{}, adapter.OSDirEnumerator{}); err == nil {
		t.Error("Measure() on a missing file = nil error, want error")
	}
}

func TestMetadataIncludesNonRegularEntries(t *testing.T) {
	dir := writeTree(t)
	res, err := Metadata(dir, true, adapter.OSDirEnumerator{})
	if err != nil {
		t.Fatalf("Metadata() = %v, want nil", err)
	}
	if len(res.Errors) != 0 {
		t.Errorf("Errors = %v, want none for a fully accessible directory", res.Errors)
	}
	foundSubdir := false
	for _, e := range res.Entries {
		if e.LogicalName == "subdir" {
			foundSubdir = true
			if e.Type != Directory {
				t.Errorf("subdir Type = %v, want Directory", e.Type)
			}
		}
	}
	if !foundSubdir {
		t.Errorf("Entries = %+v, want an entry for subdir", res.Entries)
	}
}
