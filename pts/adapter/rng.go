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
	"crypto/rand"
	"fmt"

	"github.com/google/go-pts/pts"
)

// SystemRNG fills nonces from the operating system's strong random source.
type SystemRNG struct{}

// Fill implements pts.RNG.
func (SystemRNG) Fill(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("adapter: %w: %v", pts.ErrNoRNG, err)
	}
	return buf, nil
}
