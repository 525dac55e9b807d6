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

package adapter

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/google/go-pts/pts"
)

// OSDirEnumerator lists one level of a directory's entries using
// os.ReadDir + os.Lstat, skipping dot-prefixed names, per spec.md §4.1.
type OSDirEnumerator struct{}

// Enumerate implements pts.DirEnumerator.
func (OSDirEnumerator) Enumerate(dir string) ([]pts.DirEntry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &pts.DirectoryEnumError{Path: dir, Err: err}
	}
	out := make([]pts.DirEntry, 0, len(entries))
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		abs := filepath.Join(dir, e.Name())
		info, err := os.Lstat(abs)
		if err != nil {
			return nil, &pts.PathSystemError{Path: abs, Err: err}
		}
		out = append(out, pts.DirEntry{RelName: e.Name(), AbsPath: abs, Info: info})
	}
	return out, nil
}
