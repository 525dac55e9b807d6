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

// Package pts implements the core of a Platform Trust Service attestation
// engine: session state, the PCR model, and the capability interfaces that
// the rest of the engine is built against.
package pts

import (
	"crypto"
	"os"
)

// HashAlg identifies a measurement or key-agreement hash family.
type HashAlg uint8

// Supported hash algorithms.
const (
	HashInvalid HashAlg = iota
	HashSHA1
	HashSHA256
	HashSHA384
	HashSHA512
)

// String returns the canonical name of the algorithm.
func (h HashAlg) String() string {
	switch h {
	case HashSHA1:
		return "SHA1"
	case HashSHA256:
		return "SHA256"
	case HashSHA384:
		return "SHA384"
	case HashSHA512:
		return "SHA512"
	default:
		return "unknown"
	}
}

// CryptoHash returns the crypto.Hash equivalent of h, or 0 if h is not a
// known algorithm.
func (h HashAlg) CryptoHash() crypto.Hash {
	switch h {
	case HashSHA1:
		return crypto.SHA1
	case HashSHA256:
		return crypto.SHA256
	case HashSHA384:
		return crypto.SHA384
	case HashSHA512:
		return crypto.SHA512
	default:
		return 0
	}
}

// Hasher is a streaming digest capability. Session.SetMeasAlgorithm and
// Session.SetDHHashAlgorithm accept any known HashAlg without consulting the
// HasherFactory; an algorithm the factory cannot build surfaces as
// ErrHasherUnavailable when a Hasher for it is first requested.
type Hasher interface {
	// Update feeds more data into the running digest.
	Update(p []byte)
	// Finalize returns the digest and resets the Hasher to its initial
	// state.
	Finalize() []byte
	// OutputLen is the digest size in bytes.
	OutputLen() int
	// Algorithm names the underlying hash family.
	Algorithm() HashAlg
}

// HasherFactory constructs a fresh Hasher for the given algorithm. It
// returns ErrHasherUnavailable if the algorithm is not backed by an
// implementation.
type HasherFactory interface {
	NewHasher(alg HashAlg) (Hasher, error)
}

// RNG is a strong random source. Fill returns ErrNoRNG if no strong source
// is available on the platform.
type RNG interface {
	Fill(n int) ([]byte, error)
}

// DHHandle is a Diffie-Hellman key-agreement handle bound to a group. It
// owns its own ephemeral keypair for the lifetime of the session.
type DHHandle interface {
	// MyPublic returns this side's public DH value.
	MyPublic() []byte
	// SetPeerPublic stores the peer's public DH value.
	SetPeerPublic(peer []byte) error
	// SharedSecret computes and returns Z. Callers must zero the
	// returned slice once consumed.
	SharedSecret() ([]byte, error)
}

// DHGroup identifies a Diffie-Hellman group used to create a DHHandle.
type DHGroup uint16

// Recognised DH groups (from the IKEv2 MODP group registry, reused as-is
// since the wire encoding of proto_caps does not redefine its own groups).
const (
	DHGroupInvalid  DHGroup = 0
	DHGroupMODP1024 DHGroup = 2
	DHGroupMODP1536 DHGroup = 5
	DHGroupMODP2048 DHGroup = 14
	DHGroupMODP3072 DHGroup = 15
	DHGroupMODP4096 DHGroup = 16
)

// DHFactory constructs a fresh DHHandle for the given group.
type DHFactory interface {
	NewDH(group DHGroup) (DHHandle, error)
}

// PubKey is the parsed public half of an AIK.
type PubKey struct {
	Algorithm string // e.g. "RSA"
	Modulus   []byte
	Exponent  []byte
}

// CertPublicKey is the capability wrapping an AIK, whether presented as an
// X.509 certificate or a bare trusted public key.
type CertPublicKey interface {
	// PublicKey returns the parsed AIK public key.
	PublicKey() (*PubKey, error)
	// Fingerprint returns the SHA-1 digest of the DER-encoded
	// SubjectPublicKeyInfo.
	Fingerprint() ([]byte, error)
	// Verify checks an RSA-PKCS1-SHA1 signature over data.
	Verify(data, signature []byte) (bool, error)
}

// DirEntry is one entry yielded by a DirEnumerator.
type DirEntry struct {
	// RelName is the entry's name relative to the enumerated directory.
	RelName string
	// AbsPath is the entry's absolute path.
	AbsPath string
	// Info is the entry's file info, as returned by lstat.
	Info os.FileInfo
}

// DirEnumerator yields entries of a directory, one level deep, skipping any
// entry whose relative name begins with a dot.
type DirEnumerator interface {
	Enumerate(dir string) ([]DirEntry, error)
}
