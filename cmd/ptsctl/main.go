// Binary ptsctl exercises the platform trust engine's measurer-side
// operations against the local system.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"

	"github.com/google/go-pts/pts"
	"github.com/google/go-pts/pts/adapter"
	"github.com/google/go-pts/pts/measure"
	"github.com/google/go-pts/pts/platform"
	"github.com/google/go-pts/pts/tss"
)

var (
	path        = flag.String("path", "", "File or directory to measure")
	isDirectory = flag.Bool("dir", false, "Treat -path as a directory")
	aikBlobPath = flag.String("aik-blob", "", "Path to the AIK TSS key blob")
	pcrList     = flag.String("pcrs", "0", "Comma-separated PCR indices to quote")
	useQuote2   = flag.Bool("quote2", false, "Use TPM_Quote2 instead of TPM_Quote")
)

func main() {
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "ptsctl: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	switch flag.Arg(0) {
	case "measure":
		return runMeasure()
	case "platform-info":
		return runPlatformInfo()
	case "quote":
		return runQuote()
	default:
		return fmt.Errorf("no such command %q (want measure, platform-info, or quote)", flag.Arg(0))
	}
}

func runMeasure() error {
	if *path == "" {
		return fmt.Errorf("-path is required")
	}
	result, err := measure.Measure("ptsctl", *path, *isDirectory, pts.HashSHA256, adapter.HasherFactory{}, adapter.OSDirEnumerator{})
	if err != nil {
		return fmt.Errorf("measuring %s: %w", *path, err)
	}
	for _, m := range result.Entries {
		fmt.Printf("%s  %x\n", m.LogicalName, m.Digest)
	}
	return nil
}

func runPlatformInfo() error {
	info, err := platform.Info()
	if err != nil {
		return fmt.Errorf("deriving platform info: %w", err)
	}
	fmt.Println(info)
	return nil
}

func runQuote() error {
	if *aikBlobPath == "" {
		return fmt.Errorf("-aik-blob is required")
	}
	blob, err := os.ReadFile(*aikBlobPath)
	if err != nil {
		return fmt.Errorf("reading aik blob: %w", err)
	}

	measurer := pts.NewSession(pts.Measurer,
		pts.WithHashers(adapter.HasherFactory{}),
		pts.WithRNG(adapter.SystemRNG{}),
		pts.WithDHFactory(adapter.DHFactory{}),
		pts.WithTSS(localOpener{}),
		pts.WithAIKBlob(blob),
		pts.WithTPM(true),
	)
	defer measurer.Destroy()

	verifier := pts.NewSession(pts.Verifier,
		pts.WithHashers(adapter.HasherFactory{}),
		pts.WithRNG(adapter.SystemRNG{}),
		pts.WithDHFactory(adapter.DHFactory{}),
	)
	defer verifier.Destroy()

	// No real peer is present, so ptsctl runs both sides of the DH
	// handshake itself to derive the assessment secret the quote binds to.
	if err := negotiateSecret(measurer, verifier); err != nil {
		return fmt.Errorf("deriving assessment secret: %w", err)
	}

	for _, idx := range parsePCRList(*pcrList) {
		val, err := measurer.ReadPCR(idx)
		if err != nil {
			return fmt.Errorf("reading pcr %d: %w", idx, err)
		}
		if err := measurer.Select(idx); err != nil {
			return fmt.Errorf("selecting pcr %d: %w", idx, err)
		}
		if err := measurer.Add(idx, val, val); err != nil {
			return fmt.Errorf("recording pcr %d: %w", idx, err)
		}
	}

	hash, sig, err := measurer.QuoteTPM(*useQuote2)
	if err != nil {
		return fmt.Errorf("quoting: %w", err)
	}
	fmt.Printf("Composite hash: %s\n", hex.EncodeToString(hash))
	fmt.Printf("Signature: %s\n", hex.EncodeToString(sig))
	return nil
}

// negotiateSecret runs a loopback DH handshake between measurer and
// verifier, exercising the same Session methods a real peer exchange would
// drive over the wire.
func negotiateSecret(measurer, verifier *pts.Session) error {
	const nonceLen = 20
	if err := measurer.CreateDHNonce(pts.DHGroupMODP2048, nonceLen); err != nil {
		return err
	}
	if err := verifier.CreateDHNonce(pts.DHGroupMODP2048, nonceLen); err != nil {
		return err
	}
	mPub, mNonce, err := measurer.MyPublicValue()
	if err != nil {
		return err
	}
	vPub, vNonce, err := verifier.MyPublicValue()
	if err != nil {
		return err
	}
	if err := measurer.SetPeerPublicValue(vPub, vNonce); err != nil {
		return err
	}
	if err := verifier.SetPeerPublicValue(mPub, mNonce); err != nil {
		return err
	}
	if err := measurer.CalculateSecret(); err != nil {
		return err
	}
	return verifier.CalculateSecret()
}

type localOpener struct{}

func (localOpener) Open() (tss.Session, error) {
	return tss.Open()
}

func parsePCRList(s string) []int {
	var out []int
	cur := 0
	has := false
	for _, r := range s {
		if r >= '0' && r <= '9' {
			cur = cur*10 + int(r-'0')
			has = true
			continue
		}
		if r == ',' && has {
			out = append(out, cur)
			cur, has = 0, false
		}
	}
	if has {
		out = append(out, cur)
	}
	return out
}
