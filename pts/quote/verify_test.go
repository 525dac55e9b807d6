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
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"testing"
)

func TestVerifySignatureRoundTrip(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("rsa.GenerateKey() = %v, want nil", err)
	}
	data := []byte("data the tpm signed")
	digest := sha1.Sum(data)
	sig, err := rsa.SignPKCS1v15(rand.Reader, priv, crypto.SHA1, digest[:])
	if err != nil {
		t.Fatalf("rsa.SignPKCS1v15() = %v, want nil", err)
	}

	if err := VerifySignature(&priv.PublicKey, data, sig); err != nil {
		t.Errorf("VerifySignature() = %v, want nil", err)
	}
	if err := VerifySignature(&priv.PublicKey, []byte("tampered"), sig); err == nil {
		t.Error("VerifySignature() on tampered data = nil, want error")
	}
}
