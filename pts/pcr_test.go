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
	"errors"
	"testing"
)

func TestPCRSetSelectIdempotent(t *testing.T) {
	p := NewPCRSet()
	if err := p.Select(3); err != nil {
		t.Fatalf("Select(3) = %v, want nil", err)
	}
	if err := p.Select(3); err != nil {
		t.Fatalf("Select(3) again = %v, want nil", err)
	}
	if got, want := p.Count(), 1; got != want {
		t.Errorf("Count() = %d, want %d", got, want)
	}
	if got, want := p.MaxIndex(), 3; got != want {
		t.Errorf("MaxIndex() = %d, want %d", got, want)
	}
}

func TestPCRSetSelectOutOfRange(t *testing.T) {
	p := NewPCRSet()
	if err := p.Select(PCRMaxNum); !errors.Is(err, ErrPcrIndexOutOfRange) {
		t.Errorf("Select(%d) = %v, want ErrPcrIndexOutOfRange", PCRMaxNum, err)
	}
	if err := p.Select(-1); !errors.Is(err, ErrPcrIndexOutOfRange) {
		t.Errorf("Select(-1) = %v, want ErrPcrIndexOutOfRange", err)
	}
}

func TestPCRSetAddFixesLength(t *testing.T) {
	p := NewPCRSet()
	first := bytes.Repeat([]byte{0x01}, 20)
	if err := p.Add(0, nil, first); err != nil {
		t.Fatalf("Add(0) = %v, want nil", err)
	}
	if got, want := p.PCRLen(), 20; got != want {
		t.Errorf("PCRLen() = %d, want %d", got, want)
	}

	short := bytes.Repeat([]byte{0x02}, 10)
	if err := p.Add(1, nil, short); !errors.Is(err, ErrPcrLengthMismatch) {
		t.Errorf("Add(1, mismatched length) = %v, want ErrPcrLengthMismatch", err)
	}
}

func TestPCRSetAddMismatchedBeforeStillOverwrites(t *testing.T) {
	p := NewPCRSet()
	v1 := bytes.Repeat([]byte{0x01}, 20)
	v2 := bytes.Repeat([]byte{0x02}, 20)
	wrongBefore := bytes.Repeat([]byte{0xff}, 20)

	if err := p.Add(5, nil, v1); err != nil {
		t.Fatalf("first Add(5) = %v, want nil", err)
	}
	if err := p.Add(5, wrongBefore, v2); err != nil {
		t.Fatalf("second Add(5) with mismatched pcr_before = %v, want nil (logged, not fatal)", err)
	}
	if !bytes.Equal(p.values[5], v2) {
		t.Errorf("stored value = %x, want %x (pcr_after always wins)", p.values[5], v2)
	}
}

func TestPCRSetClear(t *testing.T) {
	p := NewPCRSet()
	if err := p.Add(2, nil, bytes.Repeat([]byte{0x01}, 20)); err != nil {
		t.Fatalf("Add(2) = %v, want nil", err)
	}
	p.Clear()
	if got, want := p.Count(), 0; got != want {
		t.Errorf("Count() after Clear() = %d, want %d", got, want)
	}
	if got, want := p.MaxIndex(), -1; got != want {
		t.Errorf("MaxIndex() after Clear() = %d, want %d", got, want)
	}
	if p.values[2] != nil {
		t.Errorf("values[2] after Clear() = %x, want nil", p.values[2])
	}
}

func TestPCRSetSizeOfSelect(t *testing.T) {
	tests := []struct {
		maxIndex int
		want     int
	}{
		{-1, 3},
		{7, 3},
		{8, 3},
		{23, 3},
	}
	for _, tc := range tests {
		p := NewPCRSet()
		if tc.maxIndex >= 0 {
			if err := p.Select(tc.maxIndex); err != nil {
				t.Fatalf("Select(%d) = %v, want nil", tc.maxIndex, err)
			}
		}
		if got := p.SizeOfSelect(); got != tc.want {
			t.Errorf("SizeOfSelect() with maxIndex=%d = %d, want %d", tc.maxIndex, got, tc.want)
		}
	}
}

func TestPCRSetComposeLayout(t *testing.T) {
	p := NewPCRSet()
	v0 := bytes.Repeat([]byte{0xAA}, 20)
	v2 := bytes.Repeat([]byte{0xBB}, 20)
	if err := p.Add(0, nil, v0); err != nil {
		t.Fatalf("Add(0) = %v, want nil", err)
	}
	if err := p.Add(2, nil, v2); err != nil {
		t.Fatalf("Add(2) = %v, want nil", err)
	}
	// A selection-only register (no stored value) still counts toward
	// value_size, since value_size reports p.count*pcrLen regardless of
	// how many registers actually have a stored value concatenated below.
	if err := p.Select(4); err != nil {
		t.Fatalf("Select(4) = %v, want nil", err)
	}

	composite := p.Compose()
	sizeOfSelect := p.SizeOfSelect()
	wantLen := 2 + sizeOfSelect + 4 + 2*20
	if len(composite) != wantLen {
		t.Fatalf("len(Compose()) = %d, want %d", len(composite), wantLen)
	}

	gotSizeOfSelect := int(composite[0])<<8 | int(composite[1])
	if gotSizeOfSelect != sizeOfSelect {
		t.Errorf("encoded size_of_select = %d, want %d", gotSizeOfSelect, sizeOfSelect)
	}

	valueSizeOff := 2 + sizeOfSelect
	valueSize := int(composite[valueSizeOff])<<24 | int(composite[valueSizeOff+1])<<16 |
		int(composite[valueSizeOff+2])<<8 | int(composite[valueSizeOff+3])
	if want := p.Count() * 20; valueSize != want {
		t.Errorf("encoded value_size = %d, want %d (p.count*pcrLen, including the selection-only register)", valueSize, want)
	}

	values := composite[valueSizeOff+4:]
	if !bytes.Equal(values[:20], v0) || !bytes.Equal(values[20:40], v2) {
		t.Errorf("composed values = %x, want %x||%x", values, v0, v2)
	}
}
