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

// Package tss defines the contract the PTS core binds to a concrete TCG
// Software Stack implementation (SPEC_FULL.md §4.1, §4.5), and ships the
// trousers/tcsd-backed implementation used on Linux.
//
// The core never owns TSS contexts, memory, or hardware directly. Open
// creates a context and Session.Close releases it; the core opens one
// Session per operation and closes it before that operation returns, per
// SPEC_FULL.md §5.
package tss

import "errors"

// ErrUnsupported is returned by Open on platforms with no TSS binding
// compiled in.
var ErrUnsupported = errors.New("tss: no TPM 1.2 software stack available for this build")

// QuoteRequest carries everything a Session needs to drive TPM_Quote or
// TPM_Quote2 (SPEC_FULL.md §4.5, steps 1-9).
type QuoteRequest struct {
	// AIKBlob is the TSS key-blob for the Attestation Identity Key, to be
	// loaded under the SRK.
	AIKBlob []byte
	// PCRIndices lists the registers to include in the composite, in any
	// order; the Session registers each with the composite object.
	PCRIndices []int
	// ExternalData is the 20-byte secret assessment value bound into the
	// quote as TSS_VALIDATION.ExternalData.
	ExternalData []byte
	// UseQuote2 selects PCRS_STRUCT_INFO_SHORT + TPM_Quote2 instead of
	// PCRS_STRUCT_DEFAULT + TPM_Quote.
	UseQuote2 bool
	// RequestVersionInfo asks TPM_Quote2 to append the TPM_CAP_VERSION_INFO
	// block. Ignored when UseQuote2 is false.
	RequestVersionInfo bool
}

// Session is the capability the core binds to the concrete TSS
// implementation (spec.md §4.1's "TSS session" adapter).
type Session interface {
	// Close releases the TSS context. Safe to call once.
	Close() error
	// VersionInfo returns the opaque TPM_CAP_VERSION_INFO blob.
	VersionInfo() ([]byte, error)
	// ReadPCR returns the current value of pcrIndex.
	ReadPCR(pcrIndex int) ([]byte, error)
	// ExtendPCR extends pcrIndex by input (20 bytes) and returns the
	// resulting value.
	ExtendPCR(pcrIndex int, input []byte) ([]byte, error)
	// Quote drives TPM_Quote/TPM_Quote2 per req and returns the raw
	// rgbData and rgbValidationData (signature) verbatim.
	Quote(req QuoteRequest) (rgbData, signature []byte, err error)
}

// Opener opens a fresh Session against the local TPM 1.2 device.
type Opener interface {
	Open() (Session, error)
}
