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
	"crypto/rsa"
	"crypto/sha1"
)

// VerifySignature checks an RSA-PKCS1-SHA1 signature over data, the scheme
// named in SPEC_FULL.md §6. It mirrors attest.AIKPublic.validate12Quote's
// verification step but takes the raw signed bytes directly, since
// SPEC_FULL.md's verify_quote_signature operation does not itself recompute
// a PCR composite. pts/adapter's CertPublicKey implementations call this
// directly, so it is the single verification routine behind
// Session.VerifyQuoteSignature.
func VerifySignature(pub *rsa.PublicKey, data, signature []byte) error {
	digest := sha1.Sum(data)
	return rsa.VerifyPKCS1v15(pub, crypto.SHA1, digest[:], signature)
}
