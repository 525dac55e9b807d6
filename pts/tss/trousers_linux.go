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

//go:build linux && !gofuzz && cgo && tspi
// +build linux,!gofuzz,cgo,tspi

package tss

import (
	"fmt"

	"github.com/facebookincubator/flog"
	"github.com/google/go-tspi/tspi"
	"github.com/google/go-tspi/tspiconst"
)

// trousersSession drives a TPM 1.2 device through tcsd via go-tspi, the
// same binding the teacher uses in attest/tpm12_linux.go.
type trousersSession struct {
	ctx *tspi.Context
}

// Open connects a fresh context to the local tcsd daemon.
func Open() (Session, error) {
	ctx, err := tspi.NewContext()
	if err != nil {
		return nil, fmt.Errorf("tss: tspi.NewContext: %w", err)
	}
	if err := ctx.Connect(); err != nil {
		ctx.Close()
		return nil, fmt.Errorf("tss: connecting to tcsd: %w", err)
	}
	return &trousersSession{ctx: ctx}, nil
}

func (s *trousersSession) Close() error {
	return s.ctx.Close()
}

func (s *trousersSession) VersionInfo() ([]byte, error) {
	info, err := s.ctx.GetCapability(tspiconst.TSS_TPMCAP_VERSION_VAL, 0, nil)
	if err != nil {
		return nil, &tssError{op: "GetCapability(VERSION_VAL)", err: err}
	}
	return info, nil
}

func (s *trousersSession) ReadPCR(pcrIndex int) ([]byte, error) {
	tpm := s.ctx.GetTPM()
	val, err := tpm.PcrRead(uint32(pcrIndex))
	if err != nil {
		return nil, &tssError{op: fmt.Sprintf("PcrRead(%d)", pcrIndex), err: err}
	}
	return val, nil
}

func (s *trousersSession) ExtendPCR(pcrIndex int, input []byte) ([]byte, error) {
	tpm := s.ctx.GetTPM()
	val, err := tpm.PcrExtend(uint32(pcrIndex), input)
	if err != nil {
		return nil, &tssError{op: fmt.Sprintf("PcrExtend(%d)", pcrIndex), err: err}
	}
	return val, nil
}

// loadSRK loads the Storage Root Key from the system persistent store using
// the 20-byte well-known secret, per SPEC_FULL.md §4.5 step 2.
func (s *trousersSession) loadSRK() (*tspi.Key, error) {
	srk, err := s.ctx.LoadKeyByUUID(tspiconst.TSS_PS_TYPE_SYSTEM, tspiconst.TSS_UUID_SRK)
	if err != nil {
		return nil, &tssError{op: "LoadKeyByUUID(SRK)", err: err}
	}
	policy, err := srk.GetPolicy(tspiconst.TSS_POLICY_USAGE)
	if err != nil {
		return nil, &tssError{op: "SRK GetPolicy", err: err}
	}
	if err := policy.SetSecret(tspiconst.TSS_SECRET_MODE_SHA1, tspiconst.TSS_WELL_KNOWN_SECRET); err != nil {
		return nil, &tssError{op: "SRK SetSecret(well-known)", err: err}
	}
	return srk, nil
}

// Quote drives steps 2-9 of SPEC_FULL.md §4.5 on the context Open created
// (step 1). It does not release that context: the caller closes the
// Session and clears the PCR set itself (step 10).
func (s *trousersSession) Quote(req QuoteRequest) (rgbData, signature []byte, err error) {
	srk, err := s.loadSRK()
	if err != nil {
		return nil, nil, err
	}

	aik, err := s.ctx.LoadKeyByBlob(srk, req.AIKBlob)
	if err != nil {
		return nil, nil, &tssError{op: "LoadKeyByBlob(AIK)", err: err}
	}

	pcrsKind := tspiconst.TSS_PCRS_STRUCT_DEFAULT
	if req.UseQuote2 {
		pcrsKind = tspiconst.TSS_PCRS_STRUCT_INFO_SHORT
	}
	pcrComposite, err := s.ctx.CreatePCRComposite(pcrsKind)
	if err != nil {
		return nil, nil, &tssError{op: "CreatePCRComposite", err: err}
	}
	for _, idx := range req.PCRIndices {
		if req.UseQuote2 {
			if err := pcrComposite.SelectPCRIndexRelease(idx); err != nil {
				return nil, nil, &tssError{op: fmt.Sprintf("SelectPCRIndexRelease(%d)", idx), err: err}
			}
		} else {
			if err := pcrComposite.SelectPCRIndex(idx); err != nil {
				return nil, nil, &tssError{op: fmt.Sprintf("SelectPCRIndex(%d)", idx), err: err}
			}
		}
	}

	tpm := s.ctx.GetTPM()
	if req.UseQuote2 {
		rgbData, signature, err = tpm.Quote2(aik, pcrComposite, req.ExternalData, req.RequestVersionInfo)
	} else {
		rgbData, signature, err = tpm.Quote(aik, pcrComposite, req.ExternalData)
	}
	if err != nil {
		return nil, nil, &tssError{op: "TPM_Quote", err: err}
	}

	flog.V(5).Infof("tss: quote produced %d bytes of data, %d bytes of signature", len(rgbData), len(signature))
	return rgbData, signature, nil
}

type tssError struct {
	op  string
	err error
}

func (e *tssError) Error() string { return fmt.Sprintf("tss: %s: %v", e.op, e.err) }
func (e *tssError) Unwrap() error { return e.err }
