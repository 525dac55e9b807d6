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

package pts

import (
	"fmt"

	"github.com/facebookincubator/flog"
	"github.com/google/go-pts/pts/quote"
	"github.com/google/go-pts/pts/tss"
)

// Role identifies which side of an attestation exchange a Session plays.
type Role uint8

// The two roles named in §3: the Measurer runs on the attested platform, the
// Verifier runs on the challenging peer.
const (
	RoleInvalid Role = iota
	Measurer
	Verifier
)

func (r Role) String() string {
	switch r {
	case Measurer:
		return "measurer"
	case Verifier:
		return "verifier"
	default:
		return "invalid"
	}
}

// ProtoCaps is the bit set of capability flags an endpoint advertises.
type ProtoCaps uint8

// Capability flags. Default is CapV alone; a usable TPM adds CapT|CapD.
const (
	CapC ProtoCaps = 1 << iota // Challenger
	CapV                       // Verifier
	CapD                       // DH key agreement
	CapT                       // TPM present
	CapX                       // extended measurements
)

// Session owns the per-exchange state named in §3 and implements every
// operation of §4.4 as a method. It is not safe for concurrent use; the core
// is single-threaded per session (§5).
type Session struct {
	role Role

	protoCaps  ProtoCaps
	measAlgo   HashAlg
	dhHashAlgo HashAlg

	hashers HasherFactory
	rng     RNG
	dhs     DHFactory
	tssOpen tss.Opener

	dh              DHHandle
	initiatorNonce  []byte
	responderNonce  []byte
	secret          []byte
	platformInfo    string
	hasTPM          bool
	tpmVersionInfo  []byte
	aik             CertPublicKey
	aikBlob         []byte

	PCRSet
}

// NewSession creates an empty session for role, parametrised by opts. The
// role is immutable for the session's lifetime.
func NewSession(role Role, opts ...Option) *Session {
	cfg := newConfig(opts...)
	s := &Session{
		role:         role,
		protoCaps:    CapV,
		measAlgo:     HashSHA256,
		dhHashAlgo:   HashSHA256,
		hashers:      cfg.Hashers,
		rng:          cfg.RNG,
		dhs:          cfg.DHs,
		tssOpen:      cfg.TSS,
		aik:          cfg.AIK,
		aikBlob:      cfg.AIKBlob,
		platformInfo: cfg.PlatformInfo,
		hasTPM:       cfg.HasTPM,
		PCRSet:       NewPCRSet(),
	}
	if s.hasTPM {
		s.protoCaps |= CapT | CapD
	}
	return s
}

// Role returns the session's immutable role.
func (s *Session) Role() Role { return s.role }

// HasTPM reports whether a usable TPM backs this session.
func (s *Session) HasTPM() bool { return s.hasTPM }

// PlatformInfo returns the human-readable OS/distribution + machine string,
// empty if never set.
func (s *Session) PlatformInfo() string { return s.platformInfo }

// GetProtoCaps returns the currently advertised capability bit set.
func (s *Session) GetProtoCaps() ProtoCaps { return s.protoCaps }

// SetProtoCaps stores caps verbatim.
func (s *Session) SetProtoCaps(caps ProtoCaps) { s.protoCaps = caps }

// GetMeasAlgorithm returns the hash used for file measurements.
func (s *Session) GetMeasAlgorithm() HashAlg { return s.measAlgo }

// SetMeasAlgorithm stores alg if it maps to a known hash family; unknown
// algorithms are ignored, per §4.4.
func (s *Session) SetMeasAlgorithm(alg HashAlg) {
	if alg.CryptoHash() == 0 {
		return
	}
	s.measAlgo = alg
}

// GetDHHashAlgorithm returns the hash used to derive the assessment secret.
func (s *Session) GetDHHashAlgorithm() HashAlg { return s.dhHashAlgo }

// SetDHHashAlgorithm stores alg if it maps to a known hash family; unknown
// algorithms are ignored, per §4.4.
func (s *Session) SetDHHashAlgorithm(alg HashAlg) {
	if alg.CryptoHash() == 0 {
		return
	}
	s.dhHashAlgo = alg
}

// CreateDHNonce creates a fresh DH handle for group and generates n random
// bytes into the role-appropriate nonce (responder_nonce for the Measurer,
// initiator_nonce for the Verifier).
func (s *Session) CreateDHNonce(group DHGroup, n int) error {
	if n <= 0 {
		return fmt.Errorf("pts: create_dh_nonce: n must be positive, got %d", n)
	}
	if s.dhs == nil {
		return fmt.Errorf("pts: create_dh_nonce: %w", ErrMissingDH)
	}
	if s.rng == nil {
		return ErrNoRNG
	}
	dh, err := s.dhs.NewDH(group)
	if err != nil {
		return fmt.Errorf("pts: create_dh_nonce: %w", err)
	}
	nonce, err := s.rng.Fill(n)
	if err != nil {
		return fmt.Errorf("pts: create_dh_nonce: %w", ErrNoRNG)
	}
	s.dh = dh
	switch s.role {
	case Measurer:
		s.responderNonce = nonce
	case Verifier:
		s.initiatorNonce = nonce
	default:
		return fmt.Errorf("pts: create_dh_nonce: session has no role")
	}
	return nil
}

// MyPublicValue returns this side's DH public value and its own nonce.
func (s *Session) MyPublicValue() (pub, nonce []byte, err error) {
	if s.dh == nil {
		return nil, nil, ErrMissingDH
	}
	return s.dh.MyPublic(), s.myNonce(), nil
}

func (s *Session) myNonce() []byte {
	if s.role == Measurer {
		return s.responderNonce
	}
	return s.initiatorNonce
}

func (s *Session) peerNonceSlot() *[]byte {
	if s.role == Measurer {
		return &s.initiatorNonce
	}
	return &s.responderNonce
}

// SetPeerPublicValue stores the peer's DH public value and clones its nonce
// into the peer-appropriate slot.
func (s *Session) SetPeerPublicValue(pub, nonce []byte) error {
	if s.dh == nil {
		return ErrMissingDH
	}
	if err := s.dh.SetPeerPublic(pub); err != nil {
		return fmt.Errorf("pts: set_peer_public_value: %w", err)
	}
	cloned := make([]byte, len(nonce))
	copy(cloned, nonce)
	*s.peerNonceSlot() = cloned
	return nil
}

// CalculateSecret derives the 20-byte assessment secret from both nonces and
// the DH shared value, per §4.4:
// H(dh_hash_algo; "1" ‖ initiator_nonce ‖ responder_nonce ‖ shared_secret)[0:20].
func (s *Session) CalculateSecret() error {
	if len(s.initiatorNonce) == 0 || len(s.responderNonce) == 0 {
		return ErrMissingNonce
	}
	if s.dh == nil {
		return fmt.Errorf("pts: calculate_secret: %w", ErrMissingDH)
	}
	if s.hashers == nil {
		return ErrHasherUnavailable
	}
	shared, err := s.dh.SharedSecret()
	if err != nil {
		return fmt.Errorf("pts: calculate_secret: %w: %v", ErrKeyAgreementFailed, err)
	}
	defer zero(shared)

	h, err := s.hashers.NewHasher(s.dhHashAlgo)
	if err != nil {
		return fmt.Errorf("pts: calculate_secret: %w", ErrHasherUnavailable)
	}
	h.Update([]byte{'1'})
	h.Update(s.initiatorNonce)
	h.Update(s.responderNonce)
	h.Update(shared)
	digest := h.Finalize()
	if len(digest) < 20 {
		return fmt.Errorf("pts: calculate_secret: %w: digest too short", ErrKeyAgreementFailed)
	}
	s.secret = append([]byte(nil), digest[:20]...)
	return nil
}

// GetAIKKeyID returns the SHA-1 digest of the AIK's SubjectPublicKeyInfo.
func (s *Session) GetAIKKeyID() ([]byte, error) {
	if s.aik == nil {
		return nil, ErrMissingAIK
	}
	fp, err := s.aik.Fingerprint()
	if err != nil {
		return nil, fmt.Errorf("pts: get_aik_keyid: %w", err)
	}
	return fp, nil
}

// SetAIK stores the Attestation Identity Key capability.
func (s *Session) SetAIK(aik CertPublicKey) { s.aik = aik }

// SetAIKBlob stores the TSS key-blob bytes needed to load the AIK.
func (s *Session) SetAIKBlob(blob []byte) { s.aikBlob = append([]byte(nil), blob...) }

// SetPlatformInfo stores the human-readable platform string (§6).
func (s *Session) SetPlatformInfo(info string) { s.platformInfo = info }

// SetHasTPM records whether a usable TPM backs this session.
func (s *Session) SetHasTPM(has bool) { s.hasTPM = has }

// TPMVersionInfo returns the stored TPM_CAP_VERSION_INFO blob, if any.
func (s *Session) TPMVersionInfo() []byte { return s.tpmVersionInfo }

// ReadPCR returns the current value of pcrIndex from the TPM.
func (s *Session) ReadPCR(pcrIndex int) ([]byte, error) {
	if !s.hasTPM {
		return nil, fmt.Errorf("pts: read_pcr: %w", tss.ErrUnsupported)
	}
	sess, err := s.tssOpen.Open()
	if err != nil {
		return nil, fmt.Errorf("pts: read_pcr: %w", err)
	}
	defer closeLogged(sess)
	return sess.ReadPCR(pcrIndex)
}

// ExtendPCR extends pcrIndex by input (20 bytes) and returns the resulting
// value.
func (s *Session) ExtendPCR(pcrIndex int, input []byte) ([]byte, error) {
	if !s.hasTPM {
		return nil, fmt.Errorf("pts: extend_pcr: %w", tss.ErrUnsupported)
	}
	if len(input) != PCRLen {
		return nil, fmt.Errorf("pts: extend_pcr: %w: got %d bytes, want %d", ErrPcrLengthMismatch, len(input), PCRLen)
	}
	sess, err := s.tssOpen.Open()
	if err != nil {
		return nil, fmt.Errorf("pts: extend_pcr: %w", err)
	}
	defer closeLogged(sess)
	return sess.ExtendPCR(pcrIndex, input)
}

// fetchVersionInfo populates tpmVersionInfo from an open TSS session, used
// by QueryVersionInfo when version info is requested.
func (s *Session) fetchVersionInfo(sess tss.Session) error {
	info, err := sess.VersionInfo()
	if err != nil {
		return err
	}
	s.tpmVersionInfo = info
	return nil
}

// QueryVersionInfo probes the local TPM for its TPM_CAP_VERSION_INFO blob
// and stores it for later inclusion in a TPM_Quote2 via GetQuoteInfo. It is
// a TSS operation and so only ever succeeds on the Measurer, which owns the
// TPM; it has no counterpart on the Verifier.
func (s *Session) QueryVersionInfo() error {
	if !s.hasTPM {
		return fmt.Errorf("pts: query_version_info: %w", tss.ErrUnsupported)
	}
	if s.tssOpen == nil {
		return fmt.Errorf("pts: query_version_info: %w", tss.ErrUnsupported)
	}
	sess, err := s.tssOpen.Open()
	if err != nil {
		return fmt.Errorf("pts: query_version_info: %w", err)
	}
	defer closeLogged(sess)
	if err := s.fetchVersionInfo(sess); err != nil {
		return fmt.Errorf("pts: query_version_info: %w", err)
	}
	return nil
}

// QuoteTPM drives TPM_Quote/TPM_Quote2 (§4.5) over the currently selected
// PCR set, using the derived secret as external data, and clears the PCR
// set on return.
func (s *Session) QuoteTPM(useQuote2 bool) (pcrCompositeHash, signature []byte, err error) {
	if s.Count() == 0 {
		return nil, nil, ErrMissingPCRs
	}
	if len(s.secret) == 0 {
		return nil, nil, ErrMissingSecret
	}
	if len(s.aikBlob) == 0 {
		return nil, nil, ErrMissingAIK
	}
	defer s.PCRSet.Clear()

	if s.tssOpen == nil {
		return nil, nil, fmt.Errorf("pts: quote_tpm: %w", tss.ErrUnsupported)
	}

	sess, err := s.tssOpen.Open()
	if err != nil {
		return nil, nil, fmt.Errorf("pts: quote_tpm: %w", err)
	}
	defer closeLogged(sess)

	rgbData, sig, err := sess.Quote(tss.QuoteRequest{
		AIKBlob:      s.aikBlob,
		PCRIndices:   s.selectedIndices(),
		ExternalData: s.secret,
		UseQuote2:    useQuote2,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("pts: quote_tpm: %w", err)
	}

	hash, err := quote.ExtractCompositeHash(rgbData, useQuote2)
	if err != nil {
		return nil, nil, fmt.Errorf("pts: quote_tpm: %w", err)
	}
	flog.V(5).Infof("pts: quote_tpm produced composite hash %x", hash)
	return hash[:], sig, nil
}

// GetQuoteInfo builds the PCR Composite and TPM_QUOTE_INFO/TPM_QUOTE_INFO2
// byte structures that a TPM_Quote/TPM_Quote2 call would sign, purely from
// in-memory state: the selected PCRs, the derived secret, and (for Quote2
// with useVersionInfo) a TPM_CAP_VERSION_INFO blob previously captured by
// QueryVersionInfo. It performs no TSS I/O, so unlike QuoteTPM it works on
// either side of an exchange, including the Verifier, which has no TPM of
// its own to query. It clears the PCR set on return.
//
// outPcrComp is the PCR Composite structure itself, or its digest under
// compHashAlgo when compHashAlgo is not HashInvalid.
func (s *Session) GetQuoteInfo(useQuote2, useVersionInfo bool, compHashAlgo HashAlg) (outPcrComp, quoteInfoBytes []byte, err error) {
	if s.Count() == 0 {
		return nil, nil, ErrMissingPCRs
	}
	if len(s.secret) == 0 {
		return nil, nil, ErrMissingSecret
	}
	if useQuote2 && useVersionInfo && len(s.tpmVersionInfo) == 0 {
		return nil, nil, ErrMissingVersionInfo
	}
	defer s.PCRSet.Clear()

	pcrComposite := s.PCRSet.Compose()

	outPcrComp = pcrComposite
	if compHashAlgo != HashInvalid {
		if s.hashers == nil {
			return nil, nil, ErrHasherUnavailable
		}
		hasher, hashErr := s.hashers.NewHasher(compHashAlgo)
		if hashErr != nil {
			return nil, nil, fmt.Errorf("pts: get_quote_info: %w", hashErr)
		}
		hasher.Update(pcrComposite)
		outPcrComp = hasher.Finalize()
	}

	if useQuote2 {
		versionInfo := []byte(nil)
		if useVersionInfo {
			versionInfo = s.tpmVersionInfo
		}
		info, err := quote.BuildQuoteInfo2(s.secret, s.PCRSet.SizeOfSelect(), pcrComposite[2:2+s.PCRSet.SizeOfSelect()], pcrComposite, versionInfo)
		if err != nil {
			return nil, nil, fmt.Errorf("pts: get_quote_info: %w", err)
		}
		return outPcrComp, info, nil
	}

	info, err := quote.BuildQuoteInfo(pcrComposite, s.secret)
	if err != nil {
		return nil, nil, fmt.Errorf("pts: get_quote_info: %w", err)
	}
	return outPcrComp, info, nil
}

// VerifyQuoteSignature reports whether the AIK public key verifies data
// under RSA-PKCS1-SHA1.
func (s *Session) VerifyQuoteSignature(data, sig []byte) (bool, error) {
	if s.aik == nil {
		return false, ErrMissingAIK
	}
	ok, err := s.aik.Verify(data, sig)
	if err != nil {
		return false, fmt.Errorf("pts: verify_quote_signature: %w", err)
	}
	return ok, nil
}

// Destroy zeroises nonces, secret, DH state, and the AIK blob. Safe to call
// from any state, including repeatedly.
func (s *Session) Destroy() {
	zero(s.initiatorNonce)
	zero(s.responderNonce)
	zero(s.secret)
	zero(s.aikBlob)
	s.initiatorNonce = nil
	s.responderNonce = nil
	s.secret = nil
	s.aikBlob = nil
	s.dh = nil
	s.PCRSet.Clear()
}

func (s *Session) selectedIndices() []int {
	var out []int
	for i := 0; i <= s.MaxIndex(); i++ {
		if s.isSelected(i) {
			out = append(out, i)
		}
	}
	return out
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

func closeLogged(sess tss.Session) {
	if err := sess.Close(); err != nil {
		flog.Warningf("pts: closing tss session: %v", err)
	}
}
