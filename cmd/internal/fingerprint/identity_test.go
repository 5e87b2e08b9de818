package fingerprint

import (
	"strings"
	"testing"
)

func TestIdentityValidate(t *testing.T) {
	t.Parallel()

	valid := Identity(strings.Repeat("ab", 32))
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid identity rejected: %v", err)
	}

	cases := []struct {
		name string
		id   Identity
	}{
		{name: "empty", id: ""},
		{name: "short", id: Identity(strings.Repeat("a", 63))},
		{name: "long", id: Identity(strings.Repeat("a", 65))},
		{name: "uppercase", id: Identity(strings.Repeat("A", 64))},
		{name: "non-hex", id: Identity(strings.Repeat("zz", 32))},
	}

	for _, tc := range cases {
		if err := tc.id.Validate(); err != ErrMalformedIdentity {
			t.Fatalf("%s: expected ErrMalformedIdentity, got %v", tc.name, err)
		}
	}
}
