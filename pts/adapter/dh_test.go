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
	"bytes"
	"testing"

	"github.com/google/go-pts/pts"
)

func TestDHFactoryAgreement(t *testing.T) {
	f := DHFactory{}
	a, err := f.NewDH(pts.DHGroupMODP1024)
	if err != nil {
		t.Fatalf("NewDH(a) = %v, want nil", err)
	}
	b, err := f.NewDH(pts.DHGroupMODP1024)
	if err != nil {
		t.Fatalf("NewDH(b) = %v, want nil", err)
	}

	if err := a.SetPeerPublic(b.MyPublic()); err != nil {
		t.Fatalf("a.SetPeerPublic() = %v, want nil", err)
	}
	if err := b.SetPeerPublic(a.MyPublic()); err != nil {
		t.Fatalf("b.SetPeerPublic() = %v, want nil", err)
	}

	za, err := a.SharedSecret()
	if err != nil {
		t.Fatalf("a.SharedSecret() = %v, want nil", err)
	}
	zb, err := b.SharedSecret()
	if err != nil {
		t.Fatalf("b.SharedSecret() = %v, want nil", err)
	}
	if !bytes.Equal(za, zb) {
		t.Errorf("shared secrets differ: a=%x b=%x", za, zb)
	}
}

func TestDHFactoryUnknownGroup(t *testing.T) {
	f := DHFactory{}
	if _, err := f.NewDH(pts.DHGroupInvalid); err == nil {
		t.Error("NewDH(DHGroupInvalid) = nil error, want error")
	}
}

func TestDHSharedSecretWithoutPeer(t *testing.T) {
	f := DHFactory{}
	a, err := f.NewDH(pts.DHGroupMODP1024)
	if err != nil {
		t.Fatalf("NewDH() = %v, want nil", err)
	}
	if _, err := a.SharedSecret(); err == nil {
		t.Error("SharedSecret() before SetPeerPublic() = nil error, want error")
	}
}
