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
	"crypto"
	"crypto/rsa"
	"crypto/sha1"
	"fmt"

	ctx509 "github.com/google/certificate-transparency-go/x509"
	"github.com/google/go-pts/pts"
	"github.com/google/go-pts/pts/quote"
)

// X509AIK wraps an Attestation Identity Key presented as an X.509
// certificate, parsed with certificate-transparency-go/x509 rather than the
// standard library, matching the teacher's own choice for TPM-flavoured
// certificates (attest/tpm.go's parseCert): TPM 1.2 EK/AIK certs commonly
// carry extensions the stdlib parser rejects outright.
type X509AIK struct {
	cert *ctx509.Certificate
}

// NewX509AIK parses a DER-encoded certificate.
func NewX509AIK(der []byte) (*X509AIK, error) {
	cert, err := ctx509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("adapter: parsing aik certificate: %w", err)
	}
	return &X509AIK{cert: cert}, nil
}

// PublicKey implements pts.CertPublicKey.
func (a *X509AIK) PublicKey() (*pts.PubKey, error) {
	return rsaPubKey(a.cert.PublicKey)
}

// Fingerprint implements pts.CertPublicKey: the SHA-1 digest of the DER
// SubjectPublicKeyInfo.
func (a *X509AIK) Fingerprint() ([]byte, error) {
	sum := sha1.Sum(a.cert.RawSubjectPublicKeyInfo)
	return sum[:], nil
}

// Verify implements pts.CertPublicKey.
func (a *X509AIK) Verify(data, signature []byte) (bool, error) {
	pub, ok := a.cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return false, fmt.Errorf("adapter: aik certificate does not carry an rsa key")
	}
	if err := quote.VerifySignature(pub, data, signature); err != nil {
		return false, nil
	}
	return true, nil
}

// BarePublicKey wraps an AIK presented directly as a trusted RSA public key,
// with no enclosing certificate (spec.md §6: "certificate wins if both
// supplied", so this is the fallback path).
type BarePublicKey struct {
	pub *rsa.PublicKey
}

// NewBarePublicKey wraps pub.
func NewBarePublicKey(pub *rsa.PublicKey) *BarePublicKey {
	return &BarePublicKey{pub: pub}
}

// PublicKey implements pts.CertPublicKey.
func (b *BarePublicKey) PublicKey() (*pts.PubKey, error) {
	return rsaPubKey(b.pub)
}

// Fingerprint implements pts.CertPublicKey: the SHA-1 digest of the DER
// SubjectPublicKeyInfo, built the same way as X509AIK's for keyid parity
// between the two AIK sources.
func (b *BarePublicKey) Fingerprint() ([]byte, error) {
	der, err := ctx509.MarshalPKIXPublicKey(b.pub)
	if err != nil {
		return nil, fmt.Errorf("adapter: marshalling aik public key: %w", err)
	}
	sum := sha1.Sum(der)
	return sum[:], nil
}

// Verify implements pts.CertPublicKey.
func (b *BarePublicKey) Verify(data, signature []byte) (bool, error) {
	if err := quote.VerifySignature(b.pub, data, signature); err != nil {
		return false, nil
	}
	return true, nil
}

func rsaPubKey(pub crypto.PublicKey) (*pts.PubKey, error) {
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("adapter: aik public key is not rsa")
	}
	return &pts.PubKey{
		Algorithm: "RSA",
		Modulus:   rsaPub.N.Bytes(),
		Exponent:  bigEndianExponent(rsaPub.E),
	}, nil
}

func bigEndianExponent(e int) []byte {
	if e <= 0xff {
		return []byte{byte(e)}
	}
	if e <= 0xffff {
		return []byte{byte(e >> 8), byte(e)}
	}
	return []byte{byte(e >> 16), byte(e >> 8), byte(e)}
}
