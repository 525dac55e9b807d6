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

// Package quote builds and parses the TPM 1.2 wire structures signed by
// TPM_Quote and TPM_Quote2: the PCR Composite, TPM_QUOTE_INFO, and
// TPM_QUOTE_INFO2. It is the single source of truth for the byte layouts,
// per the typed-writer redesign note in SPEC_FULL.md §9, and is built on
// the same tpmutil.Pack/Unpack struct-tag idiom the teacher uses for its
// own TPM 1.2 attestation-data structures.
package quote

import (
	"crypto/sha1"
	"fmt"

	"github.com/google/go-tpm/tpmutil"
)

// InfoLen is the fixed length of a TPM_QUOTE_INFO structure.
const InfoLen = 48

var (
	versionTag = [4]byte{0x01, 0x01, 0x00, 0x00}
	fixedQuot  = [4]byte{'Q', 'U', 'O', 'T'}
	fixedQut2  = [4]byte{'Q', 'U', 'T', '2'}
)

// TagQuoteInfo2 is TPM_TAG_QUOTE_INFO2 from the TPM 1.2 structures spec.
const TagQuoteInfo2 uint16 = 0x0036

// LocalityZero is TPM_LOC_ZERO.
const LocalityZero uint8 = 0

type rawQuoteInfo struct {
	Version [4]byte
	Fixed   [4]byte
	Digest  [20]byte
	Nonce   [20]byte
}

// BuildQuoteInfo packs a TPM_QUOTE_INFO structure: version | "QUOT" |
// SHA1(pcrComposite) | secret. len(secret) must be 20.
func BuildQuoteInfo(pcrComposite []byte, secret []byte) ([]byte, error) {
	if len(secret) != 20 {
		return nil, fmt.Errorf("quote: secret must be 20 bytes, got %d", len(secret))
	}
	raw := rawQuoteInfo{Version: versionTag, Fixed: fixedQuot}
	raw.Digest = sha1.Sum(pcrComposite)
	copy(raw.Nonce[:], secret)
	return tpmutil.Pack(raw)
}

// Info is a parsed TPM_QUOTE_INFO.
type Info struct {
	Version [4]byte
	Digest  [20]byte
	Nonce   [20]byte
}

// ParseQuoteInfo unpacks a TPM_QUOTE_INFO, validating its fixed tag.
func ParseQuoteInfo(data []byte) (*Info, error) {
	var raw rawQuoteInfo
	if _, err := tpmutil.Unpack(data, &raw); err != nil {
		return nil, fmt.Errorf("quote: unpacking TPM_QUOTE_INFO: %w", err)
	}
	if raw.Fixed != fixedQuot {
		return nil, fmt.Errorf("quote: not a QUOT structure: %x", raw.Fixed)
	}
	return &Info{Version: raw.Version, Digest: raw.Digest, Nonce: raw.Nonce}, nil
}

// BuildQuoteInfo2 packs a TPM_QUOTE_INFO2 structure. versionInfo is
// appended verbatim when non-empty (the "only if requested" tail block).
func BuildQuoteInfo2(secret []byte, sizeOfSelect int, selectBitmap []byte, pcrComposite []byte, versionInfo []byte) ([]byte, error) {
	if len(secret) != 20 {
		return nil, fmt.Errorf("quote: secret must be 20 bytes, got %d", len(secret))
	}
	if len(selectBitmap) != sizeOfSelect {
		return nil, fmt.Errorf("quote: select bitmap length %d does not match sizeOfSelect %d", len(selectBitmap), sizeOfSelect)
	}
	var nonce [20]byte
	copy(nonce[:], secret)
	digest := sha1.Sum(pcrComposite)

	parts := []interface{}{
		TagQuoteInfo2,
		fixedQut2,
		nonce,
		uint16(sizeOfSelect),
		tpmutil.RawBytes(selectBitmap),
		LocalityZero,
		digest,
	}
	if len(versionInfo) > 0 {
		parts = append(parts, tpmutil.RawBytes(versionInfo))
	}
	return tpmutil.Pack(parts...)
}

// Info2 is a parsed TPM_QUOTE_INFO2. Any bytes after the digest are kept,
// unparsed, in VersionInfo.
type Info2 struct {
	Tag          uint16
	Nonce        [20]byte
	SizeOfSelect int
	SelectBitmap []byte
	Locality     uint8
	Digest       [20]byte
	VersionInfo  []byte // remaining trailing bytes, if any
}

// ParseQuoteInfo2 unpacks a TPM_QUOTE_INFO2, tolerating a trailing
// tpm_version_info block of unknown length.
func ParseQuoteInfo2(data []byte) (*Info2, error) {
	const fixedHeaderLen = 2 + 4 + 20 + 2
	if len(data) < fixedHeaderLen {
		return nil, fmt.Errorf("quote: TPM_QUOTE_INFO2 too short: %d bytes", len(data))
	}
	var tag uint16
	var fixed [4]byte
	var nonce [20]byte
	var sizeOfSelect uint16
	n, err := tpmutil.Unpack(data, &tag, &fixed, &nonce, &sizeOfSelect)
	if err != nil {
		return nil, fmt.Errorf("quote: unpacking TPM_QUOTE_INFO2 header: %w", err)
	}
	if fixed != fixedQut2 {
		return nil, fmt.Errorf("quote: not a QUT2 structure: %x", fixed)
	}
	rest := data[n:]
	tail := int(sizeOfSelect) + 1 + 20
	if len(rest) < tail {
		return nil, fmt.Errorf("quote: TPM_QUOTE_INFO2 truncated selection/digest")
	}
	selectBitmap := append([]byte(nil), rest[:sizeOfSelect]...)
	locality := rest[sizeOfSelect]
	var digest [20]byte
	copy(digest[:], rest[int(sizeOfSelect)+1:int(sizeOfSelect)+1+20])
	versionInfo := append([]byte(nil), rest[tail:]...)

	return &Info2{
		Tag:          tag,
		Nonce:        nonce,
		SizeOfSelect: int(sizeOfSelect),
		SelectBitmap: selectBitmap,
		Locality:     locality,
		Digest:       digest,
		VersionInfo:  versionInfo,
	}, nil
}

// ExtractCompositeHash extracts the SHA-1 PCR composite hash from the raw
// rgbData returned by TPM_Quote/TPM_Quote2, per SPEC_FULL.md §4.5 step 8.
//
// For Quote2, the hash is taken from the last 20 bytes of rgbData
// regardless of whether tpm_version_info was requested. This mirrors the
// original implementation's behaviour verbatim; it is an inherited, never
// independently validated assumption about the TSS layout in use (see
// SPEC_FULL.md Open Question 3).
func ExtractCompositeHash(rgbData []byte, useQuote2 bool) ([20]byte, error) {
	var out [20]byte
	if useQuote2 {
		if len(rgbData) < 20 {
			return out, fmt.Errorf("quote: rgbData too short for quote2 digest: %d bytes", len(rgbData))
		}
		copy(out[:], rgbData[len(rgbData)-20:])
		return out, nil
	}
	if len(rgbData) < 28 {
		return out, fmt.Errorf("quote: rgbData too short for quote digest: %d bytes", len(rgbData))
	}
	copy(out[:], rgbData[8:28])
	return out, nil
}
