package fingerprint

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Deriver computes device identities from characteristics.
//
// It is a pure value: construct once at startup with the configured peppers
// and share freely; Derive is safe for concurrent use.
type Deriver struct {
	pepperA []byte
	pepperB []byte
}

// NewDeriver constructs a Deriver from the two stage peppers.
func NewDeriver(cfg Config) Deriver {
	return Deriver{
		pepperA: []byte(cfg.PepperA),
		pepperB: []byte(cfg.PepperB),
	}
}

// Derive computes the device identity for the given characteristics and
// client network address.
//
// The chain is deliberately one-way at every stage: an identity can be
// recomputed only by a party holding the peppers and the raw inputs, and the
// raw inputs cannot be recovered from any digest. Identical inputs always
// yield the same identity; any single-byte change avalanches through the
// final digest.
//
// The primary (stage A) and secondary (stage B) characteristic groups are
// digested separately before combination so a future policy could re-verify
// a subset (for example accept a stage A match across a network move) without
// redesigning the chain. Current policy only ever checks the final composite.
func (d Deriver) Derive(chars Characteristics, clientAddr string) Identity {
	stageA := digestChain(d.pepperA,
		orUnknown(chars.ProcessorModel),
		orUnknown(chars.GraphicsRenderer),
		orUnknown(chars.OSArchitecture),
		orUnknown(chars.EngineCapabilities),
	)

	stageB := digestChain(d.pepperB,
		orUnknown(chars.ProcessorArchitecture),
		orUnknown(chars.GraphicsMemory),
		orUnknown(chars.OSPlatform),
	)

	final := digestChain(d.pepperA,
		hex.EncodeToString(stageA),
		hex.EncodeToString(stageB),
		orUnknown(clientAddr),
	)

	return Identity(hex.EncodeToString(final))
}

// digestChain computes BLAKE2b-256(pepper || f1 || ... || fn || pepper).
// Fields are length-prefix separated to avoid ambiguity between adjacent
// fields ("ab"+"c" vs "a"+"bc").
func digestChain(pepper []byte, fields ...string) []byte {
	h, err := blake2b.New256(nil)
	if err != nil {
		// blake2b.New256 with a nil key cannot fail.
		panic(err)
	}

	_, _ = h.Write(pepper)
	for _, f := range fields {
		var lp [2]byte
		lp[0] = byte(len(f) >> 8)
		lp[1] = byte(len(f))
		_, _ = h.Write(lp[:])
		_, _ = h.Write([]byte(f))
	}
	_, _ = h.Write(pepper)

	return h.Sum(nil)
}
