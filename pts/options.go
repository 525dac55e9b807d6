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

import "github.com/google/go-pts/pts/tss"

// Config collects the capability adapters and initial parameters a Session
// is built from.
type Config struct {
	Hashers HasherFactory
	RNG     RNG
	DHs     DHFactory
	TSS     tss.Opener

	AIK     CertPublicKey
	AIKBlob []byte

	PlatformInfo string
	HasTPM       bool
}

// Option mutates a Config being assembled for NewSession.
type Option func(config *Config) *Config

func newConfig(options ...Option) *Config {
	config := &Config{}
	for _, opt := range options {
		config = opt(config)
	}
	return config
}

// WithHashers sets the factory used to construct measurement and DH-hash
// Hashers.
func WithHashers(f HasherFactory) Option {
	return func(c *Config) *Config {
		c.Hashers = f
		return c
	}
}

// WithRNG sets the strong random source used for nonce generation.
func WithRNG(r RNG) Option {
	return func(c *Config) *Config {
		c.RNG = r
		return c
	}
}

// WithDHFactory sets the factory used to construct DH handles.
func WithDHFactory(f DHFactory) Option {
	return func(c *Config) *Config {
		c.DHs = f
		return c
	}
}

// WithTSS sets the opener used to reach the TPM 1.2 software stack.
func WithTSS(o tss.Opener) Option {
	return func(c *Config) *Config {
		c.TSS = o
		return c
	}
}

// WithAIK sets the Attestation Identity Key capability. The TSS key-blob
// bytes needed to load it are set separately, with WithAIKBlob.
func WithAIK(aik CertPublicKey) Option {
	return func(c *Config) *Config {
		c.AIK = aik
		return c
	}
}

// WithAIKBlob sets the TSS key-blob bytes needed to load the AIK.
func WithAIKBlob(blob []byte) Option {
	return func(c *Config) *Config {
		c.AIKBlob = append([]byte(nil), blob...)
		return c
	}
}

// WithPlatformInfo sets the human-readable OS/distribution + machine string
// (§6), normally produced by pts/platform.
func WithPlatformInfo(info string) Option {
	return func(c *Config) *Config {
		c.PlatformInfo = info
		return c
	}
}

// WithTPM marks the session as backed by a usable TPM.
func WithTPM(has bool) Option {
	return func(c *Config) *Config {
		c.HasTPM = has
		return c
	}
}
