package fingerprint

import "strings"

// Characteristics is the ephemeral set of device traits submitted by a client
// during authentication. It is consumed by Deriver.Derive and must never be
// stored or forwarded past the hashing step.
type Characteristics struct {
	ProcessorModel        string `json:"processor_model"`
	ProcessorArchitecture string `json:"processor_architecture"`

	GraphicsVendor   string `json:"graphics_vendor"`
	GraphicsRenderer string `json:"graphics_renderer"`
	GraphicsMemory   string `json:"graphics_memory"`

	OSPlatform     string `json:"os_platform"`
	OSArchitecture string `json:"os_architecture"`
	OSVersion      string `json:"os_version"`

	// EngineCapabilities is an opaque browser-engine capability string.
	EngineCapabilities string `json:"engine_capabilities"`
}

// unknownField is substituted for empty characteristic fields so that
// derivation always succeeds on partial client data.
const unknownField = "unknown"

func orUnknown(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return unknownField
	}
	return v
}
