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

// Package measure stream-hashes files and directory trees for integrity
// measurement, and collects file metadata alongside them.
package measure

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/facebookincubator/flog"
	"github.com/google/go-pts/pts"
)

// bufSize is the fixed streaming-hash buffer width named in spec.md §4.2.
const bufSize = 4 * 1024

// PathStatus is the result of validating a path before measurement.
type PathStatus int

// PathStatus values.
const (
	PathOk PathStatus = iota
	PathNotFound
	PathInvalid
)

// IsPathValid classifies path without measuring it. A missing path yields
// PathNotFound; ENOTDIR and ENAMETOOLONG yield PathInvalid with a nil error.
// Any other OS failure yields PathInvalid with a *pts.PathSystemError;
// callers may treat that as non-fatal and skip the entry.
func IsPathValid(path string) (PathStatus, error) {
	_, err := os.Lstat(path)
	switch {
	case err == nil:
		return PathOk, nil
	case errors.Is(err, os.ErrNotExist):
		return PathNotFound, nil
	case errors.Is(err, syscall.ENOTDIR), errors.Is(err, syscall.ENAMETOOLONG):
		return PathInvalid, nil
	default:
		return PathInvalid, &pts.PathSystemError{Path: path, Err: err}
	}
}

// Measurement is one (logical_name, digest) pair.
type Measurement struct {
	LogicalName string
	Digest      []byte
}

// FileMeasurements is the ordered result of Measure, keyed by the caller's
// request id.
type FileMeasurements struct {
	RequestID string
	Entries   []Measurement
}

// Measure hashes path with a fresh Hasher for alg, per spec.md §4.2. If
// isDirectory, it enumerates one level deep via enum and hashes every
// regular, non-dot-prefixed file; otherwise it hashes the single file under
// basename(path). Fails atomically: no partial FileMeasurements is returned
// on any I/O error.
func Measure(requestID, path string, isDirectory bool, alg pts.HashAlg, hashers pts.HasherFactory, enum pts.DirEnumerator) (*FileMeasurements, error) {
	result := &FileMeasurements{RequestID: requestID}

	if !isDirectory {
		digest, err := hashFile(path, alg, hashers)
		if err != nil {
			return nil, err
		}
		result.Entries = append(result.Entries, Measurement{LogicalName: filepath.Base(path), Digest: digest})
		return result, nil
	}

	entries, err := enum.Enumerate(path)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if !e.Info.Mode().IsRegular() {
			continue
		}
		digest, err := hashFile(e.AbsPath, alg, hashers)
		if err != nil {
			return nil, err
		}
		result.Entries = append(result.Entries, Measurement{LogicalName: e.RelName, Digest: digest})
	}
	return result, nil
}

func hashFile(path string, alg pts.HashAlg, hashers pts.HasherFactory) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &pts.FileReadError{Path: path, Err: err}
	}
	defer f.Close()

	h, err := hashers.NewHasher(alg)
	if err != nil {
		return nil, fmt.Errorf("measure: %w", err)
	}

	buf := make([]byte, bufSize)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			h.Update(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &pts.FileReadError{Path: path, Err: err}
		}
	}
	return h.Finalize(), nil
}

// FileType classifies a directory entry's kind, per spec.md §4.2.
type FileType int

// FileType values.
const (
	Regular FileType = iota
	Directory
	CharSpec
	BlockSpec
	Fifo
	SymLink
	Socket
	Other
)

func classify(mode os.FileMode) FileType {
	switch {
	case mode.IsRegular():
		return Regular
	case mode.IsDir():
		return Directory
	case mode&os.ModeCharDevice != 0:
		return CharSpec
	case mode&os.ModeDevice != 0:
		return BlockSpec
	case mode&os.ModeNamedPipe != 0:
		return Fifo
	case mode&os.ModeSymlink != 0:
		return SymLink
	case mode&os.ModeSocket != 0:
		return Socket
	default:
		return Other
	}
}

// FileMetadata carries the per-entry stat information spec.md §4.2 names.
type FileMetadata struct {
	LogicalName string
	Type        FileType
	Size        int64
	ModTime     time.Time
	AccessTime  time.Time
	ChangeTime  time.Time
	UID         uint32
	GID         uint32
}

// MetadataResult is the outcome of a Metadata call: successfully collected
// entries plus any per-entry failures that were logged and skipped rather
// than aborting the whole walk.
type MetadataResult struct {
	Entries []FileMetadata
	Errors  []error
}

// Metadata collects FileMetadata for path itself, or for the entries enum
// yields when isDirectory, as Measure does. Unlike Measure, it keeps
// non-regular entries such as subdirectories, and a per-entry OS failure
// (e.g. a raced-away symlink target) is logged and skipped rather than
// aborting the call, mirroring the
// original implementation's warn-and-continue get_metadata behaviour
// (spec.md §4.2 supplement; see DESIGN.md).
func Metadata(path string, isDirectory bool, enum pts.DirEnumerator) (*MetadataResult, error) {
	res := &MetadataResult{}

	if !isDirectory {
		md, err := statOne(filepath.Base(path), path)
		if err != nil {
			return nil, err
		}
		res.Entries = append(res.Entries, *md)
		return res, nil
	}

	entries, err := enum.Enumerate(path)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		md, err := statOne(e.RelName, e.AbsPath)
		if err != nil {
			flog.Warningf("measure: metadata: skipping %s: %v", e.AbsPath, err)
			res.Errors = append(res.Errors, err)
			continue
		}
		res.Entries = append(res.Entries, *md)
	}
	return res, nil
}

func statOne(logicalName, path string) (*FileMetadata, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return nil, &pts.PathSystemError{Path: path, Err: err}
	}
	md := &FileMetadata{
		LogicalName: logicalName,
		Type:        classify(info.Mode()),
		Size:        info.Size(),
		ModTime:     info.ModTime(),
	}
	fillPlatformStat(md, info)
	return md, nil
}
