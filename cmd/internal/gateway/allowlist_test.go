package gateway

import "testing"

func TestParseAllowList(t *testing.T) {
	al, err := parseAllowList([]string{" 10.0.0.0/8 ", "192.0.2.7", "", "2001:db8::/32"})
	if err != nil {
		t.Fatalf("parseAllowList: %v", err)
	}

	tests := []struct {
		addr string
		want bool
	}{
		{"10.200.1.1", true},
		{"192.0.2.7", true},
		{"192.0.2.8", false},
		{"2001:db8::1", true},
		{"2001:db9::1", false},
		{"::ffff:10.0.0.5", true}, // mapped v4 unwraps to the v4 prefix
		{"not-an-address", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := al.contains(tt.addr); got != tt.want {
			t.Errorf("contains(%q) = %v, want %v", tt.addr, got, tt.want)
		}
	}
}

func TestParseAllowListRejectsGarbage(t *testing.T) {
	for _, entry := range []string{"10.0.0.0/99", "256.1.1.1", "10.0.0.1/abc"} {
		if _, err := parseAllowList([]string{entry}); err == nil {
			t.Errorf("parseAllowList(%q): expected error", entry)
		}
	}
}

func TestEmptyAllowListContainsNothing(t *testing.T) {
	al, err := parseAllowList(nil)
	if err != nil {
		t.Fatalf("parseAllowList: %v", err)
	}
	if al.contains("127.0.0.1") {
		t.Fatal("empty allow-list must deny everything")
	}
}
