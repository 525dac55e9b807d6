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

//go:build !linux || gofuzz || !cgo || !tspi
// +build !linux gofuzz !cgo !tspi

package tss

// Open reports ErrUnsupported on any build without the trousers/tcsd
// binding compiled in (matches attest/tpm_other.go's build-parameter
// fallback in the teacher).
func Open() (Session, error) {
	return nil, ErrUnsupported
}
