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

package quote

import (
	"bytes"
	"crypto/sha1"
	"testing"
)

func TestBuildAndParseQuoteInfo(t *testing.T) {
	composite := []byte("fake pcr composite bytes")
	secret := bytes.Repeat([]byte{0x42}, 20)

	data, err := BuildQuoteInfo(composite, secret)
	if err != nil {
		t.Fatalf("BuildQuoteInfo() = %v, want nil", err)
	}
	if len(data) != InfoLen {
		t.Fatalf("len(BuildQuoteInfo()) = %d, want %d", len(data), InfoLen)
	}

	info, err := ParseQuoteInfo(data)
	if err != nil {
		t.Fatalf("ParseQuoteInfo() = %v, want nil", err)
	}
	wantDigest := sha1.Sum(composite)
	if info.Digest != wantDigest {
		t.Errorf("Digest = %x, want %x", info.Digest, wantDigest)
	}
	if !bytes.Equal(info.Nonce[:], secret) {
		t.Errorf("Nonce = %x, want %x", info.Nonce, secret)
	}
}

func TestBuildQuoteInfoRejectsShortSecret(t *testing.T) {
	if _, err := BuildQuoteInfo([]byte("x"), []byte{0x01}); err == nil {
		t.Error("BuildQuoteInfo() with 1-byte secret = nil error, want error")
	}
}

func TestParseQuoteInfoRejectsWrongTag(t *testing.T) {
	composite := []byte("composite")
	secret := bytes.Repeat([]byte{0x01}, 20)
	data, err := BuildQuoteInfo2(secret, 3, []byte{0x01, 0x00, 0x00}, composite, nil)
	if err != nil {
		t.Fatalf("BuildQuoteInfo2() = %v, want nil", err)
	}
	if _, err := ParseQuoteInfo(data); err == nil {
		t.Error("ParseQuoteInfo() on a QUOTE_INFO2 blob = nil error, want error")
	}
}

func TestBuildAndParseQuoteInfo2(t *testing.T) {
	composite := []byte("pcr composite v2")
	secret := bytes.Repeat([]byte{0x07}, 20)
	selectBitmap := []byte{0x01, 0x00, 0x00}

	data, err := BuildQuoteInfo2(secret, len(selectBitmap), selectBitmap, composite, nil)
	if err != nil {
		t.Fatalf("BuildQuoteInfo2() = %v, want nil", err)
	}

	info, err := ParseQuoteInfo2(data)
	if err != nil {
		t.Fatalf("ParseQuoteInfo2() = %v, want nil", err)
	}
	if info.Tag != TagQuoteInfo2 {
		t.Errorf("Tag = %#x, want %#x", info.Tag, TagQuoteInfo2)
	}
	if !bytes.Equal(info.SelectBitmap, selectBitmap) {
		t.Errorf("SelectBitmap = %x, want %x", info.SelectBitmap, selectBitmap)
	}
	if info.Locality != LocalityZero {
		t.Errorf("Locality = %d, want %d", info.Locality, LocalityZero)
	}
	wantDigest := sha1.Sum(composite)
	if info.Digest != wantDigest {
		t.Errorf("Digest = %x, want %x", info.Digest, wantDigest)
	}
	if len(info.VersionInfo) != 0 {
		t.Errorf("VersionInfo = %x, want empty", info.VersionInfo)
	}
}

func TestBuildAndParseQuoteInfo2WithVersionInfo(t *testing.T) {
	composite := []byte("pcr composite v2")
	secret := bytes.Repeat([]byte{0x07}, 20)
	selectBitmap := []byte{0x01, 0x00, 0x00}
	versionInfo := []byte{0x01, 0x02, 0x02, 0x00, 0xff, 0xff, 0xff, 0xff}

	data, err := BuildQuoteInfo2(secret, len(selectBitmap), selectBitmap, composite, versionInfo)
	if err != nil {
		t.Fatalf("BuildQuoteInfo2() = %v, want nil", err)
	}
	info, err := ParseQuoteInfo2(data)
	if err != nil {
		t.Fatalf("ParseQuoteInfo2() = %v, want nil", err)
	}
	if !bytes.Equal(info.VersionInfo, versionInfo) {
		t.Errorf("VersionInfo = %x, want %x", info.VersionInfo, versionInfo)
	}
}

func TestExtractCompositeHashQuote(t *testing.T) {
	// TPM_QUOTE_INFO layout: 4 version + 4 fixed + 20 digest + 20 nonce.
	rgbData := make([]byte, 48)
	digest := bytes.Repeat([]byte{0x99}, 20)
	copy(rgbData[8:28], digest)

	hash, err := ExtractCompositeHash(rgbData, false)
	if err != nil {
		t.Fatalf("ExtractCompositeHash() = %v, want nil", err)
	}
	if !bytes.Equal(hash[:], digest) {
		t.Errorf("hash = %x, want %x", hash, digest)
	}
}

func TestExtractCompositeHashQuote2(t *testing.T) {
	digest := bytes.Repeat([]byte{0x55}, 20)
	rgbData := append([]byte("leading tspi framing bytes"), digest...)

	hash, err := ExtractCompositeHash(rgbData, true)
	if err != nil {
		t.Fatalf("ExtractCompositeHash() = %v, want nil", err)
	}
	if !bytes.Equal(hash[:], digest) {
		t.Errorf("hash = %x, want %x", hash, digest)
	}
}

func TestExtractCompositeHashTooShort(t *testing.T) {
	if _, err := ExtractCompositeHash([]byte{0x01, 0x02}, false); err == nil {
		t.Error("ExtractCompositeHash() on short rgbData = nil error, want error")
	}
	if _, err := ExtractCompositeHash([]byte{0x01}, true); err == nil {
		t.Error("ExtractCompositeHash(quote2) on short rgbData = nil error, want error")
	}
}
