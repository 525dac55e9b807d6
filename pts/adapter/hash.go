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

// Package adapter provides the default capability implementations the core
// package pts is built against: hashing, randomness, Diffie-Hellman,
// AIK certificates, and directory enumeration.
package adapter

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"hash"

	"github.com/google/go-pts/pts"
)

// stdHasher wraps a stdlib hash.Hash to satisfy pts.Hasher.
type stdHasher struct {
	h   hash.Hash
	alg pts.HashAlg
}

func (s *stdHasher) Update(p []byte) { s.h.Write(p) }

func (s *stdHasher) Finalize() []byte {
	sum := s.h.Sum(nil)
	s.h.Reset()
	return sum
}

func (s *stdHasher) OutputLen() int      { return s.h.Size() }
func (s *stdHasher) Algorithm() pts.HashAlg { return s.alg }

// HasherFactory constructs Hashers for SHA-1/SHA-256/SHA-384/SHA-512, the
// hash families named in pts.HashAlg. Every family is backed by the
// standard library: hashing primitives are a language guarantee, not a
// library concern (see DESIGN.md).
type HasherFactory struct{}

// NewHasher implements pts.HasherFactory.
func (HasherFactory) NewHasher(alg pts.HashAlg) (pts.Hasher, error) {
	switch alg {
	case pts.HashSHA1:
		return &stdHasher{h: sha1.New(), alg: alg}, nil
	case pts.HashSHA256:
		return &stdHasher{h: sha256.New(), alg: alg}, nil
	case pts.HashSHA384:
		return &stdHasher{h: sha512.New384(), alg: alg}, nil
	case pts.HashSHA512:
		return &stdHasher{h: sha512.New(), alg: alg}, nil
	default:
		return nil, pts.ErrHasherUnavailable
	}
}
