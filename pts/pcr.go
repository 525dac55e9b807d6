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
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/facebookincubator/flog"
)

// PCRMaxNum is the number of PCRs on a TPM 1.2 device.
const PCRMaxNum = 24

// PCRLen is the width in bytes of a TPM 1.2 PCR register (SHA-1).
const PCRLen = 20

// PCRSet is the plain value type tracking which PCRs are selected and their
// latest post-extension values, embedded directly in a Session rather than
// separately allocated (per the redesign in SPEC_FULL.md §9).
type PCRSet struct {
	pcrLen   int
	values   [PCRMaxNum][]byte
	selected [3]byte
	count    int
	maxIndex int // -1 when nothing is selected
}

// NewPCRSet returns an empty PCR set.
func NewPCRSet() PCRSet {
	return PCRSet{maxIndex: -1}
}

// Count returns the number of selected registers.
func (p *PCRSet) Count() int { return p.count }

// MaxIndex returns the highest selected index, or -1 if none are selected.
func (p *PCRSet) MaxIndex() int { return p.maxIndex }

// PCRLen returns the fixed register width, 0 until the first Add call.
func (p *PCRSet) PCRLen() int { return p.pcrLen }

// SizeOfSelect returns the byte length of the selection bitmap, per
// SPEC_FULL.md §6: max(PCR_MAX_NUM/8, 1+pcr_max/8).
func (p *PCRSet) SizeOfSelect() int {
	minSize := PCRMaxNum / 8
	if p.maxIndex < 0 {
		return minSize
	}
	sz := 1 + p.maxIndex/8
	if sz < minSize {
		return minSize
	}
	return sz
}

func checkIndex(i int) error {
	if i < 0 || i >= PCRMaxNum {
		return fmt.Errorf("%w: %d", ErrPcrIndexOutOfRange, i)
	}
	return nil
}

func (p *PCRSet) isSelected(i int) bool {
	return p.selected[i/8]&(1<<uint(i%8)) != 0
}

// Select marks pcrIndex as part of the selection. Idempotent.
func (p *PCRSet) Select(pcrIndex int) error {
	if err := checkIndex(pcrIndex); err != nil {
		return err
	}
	if p.isSelected(pcrIndex) {
		return nil
	}
	p.selected[pcrIndex/8] |= 1 << uint(pcrIndex%8)
	p.count++
	if pcrIndex > p.maxIndex {
		p.maxIndex = pcrIndex
	}
	return nil
}

// Add records a post-extension value for pcrIndex, marking it selected. On
// the first call it fixes PCRLen(); subsequent calls with a differently
// sized value fail with ErrPcrLengthMismatch.
//
// If the register already holds a value, pcrBefore is compared against it.
// A mismatch is logged as a warning but is not fatal: pcrAfter still
// replaces the stored value. This mirrors the original implementation's
// documented, unresolved Open Question and is retained deliberately (see
// DESIGN.md).
func (p *PCRSet) Add(pcrIndex int, pcrBefore, pcrAfter []byte) error {
	if err := checkIndex(pcrIndex); err != nil {
		return err
	}
	if p.pcrLen == 0 {
		p.pcrLen = len(pcrAfter)
	} else if len(pcrAfter) != p.pcrLen {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrPcrLengthMismatch, len(pcrAfter), p.pcrLen)
	}

	if existing := p.values[pcrIndex]; existing != nil {
		if !bytes.Equal(existing, pcrBefore) {
			flog.Warningf("pts: pcr %d: pcr_before does not match stored value; overwriting anyway", pcrIndex)
		}
	}

	stored := make([]byte, len(pcrAfter))
	copy(stored, pcrAfter)
	p.values[pcrIndex] = stored

	return p.Select(pcrIndex)
}

// Clear frees all stored values and resets the selection.
func (p *PCRSet) Clear() {
	for i := range p.values {
		p.values[i] = nil
	}
	p.selected = [3]byte{}
	p.count = 0
	p.maxIndex = -1
}

// Compose builds the PCR Composite byte structure described in
// SPEC_FULL.md §6: a big-endian size_of_select, the selection bitmap, a
// big-endian value_size, and the concatenated stored values in ascending
// index order for every selected index that has one.
//
// value_size is p.count*p.pcrLen, the size a fully-populated selection
// would occupy, not the byte length actually concatenated below. A
// register can be selected via Select without ever receiving a value via
// Add, in which case fewer bytes follow than value_size claims. This
// mirrors original_source's pts_get_pcr_composite, which sizes the field
// from pcr_count (incremented by selection, not just by storing a value)
// and is preserved here rather than "corrected".
func (p *PCRSet) Compose() []byte {
	sizeOfSelect := p.SizeOfSelect()
	sel := make([]byte, sizeOfSelect)
	copy(sel, p.selected[:])

	var values bytes.Buffer
	for i := 0; i < PCRMaxNum; i++ {
		if !p.isSelected(i) || p.values[i] == nil {
			continue
		}
		values.Write(p.values[i])
	}

	var buf bytes.Buffer
	binary.Write(&buf, binary.BigEndian, uint16(sizeOfSelect))
	buf.Write(sel)
	binary.Write(&buf, binary.BigEndian, uint32(p.count*p.pcrLen))
	buf.Write(values.Bytes())
	return buf.Bytes()
}
