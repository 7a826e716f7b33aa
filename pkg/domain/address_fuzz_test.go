//go:build go1.18

package domain

import (
	"testing"
	"unicode/utf8"
)

// FuzzParseAddress checks that parsing never panics and that accepted
// addresses round-trip unchanged.
func FuzzParseAddress(f *testing.F) {
	f.Add("")
	f.Add("0x00000000000000000000000000000000000000aa")
	f.Add("0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")
	f.Add("not-an-address")
	f.Add("'; DROP TABLE airlines;--")
	f.Add(string([]byte{0x00, 0x01, 0x02}))

	f.Fuzz(func(t *testing.T, input string) {
		addr, err := ParseAddress(input)
		if err == nil {
			roundTrip, err2 := ParseAddress(addr.String())
			if err2 != nil {
				t.Errorf("valid address failed round-trip: %v", err2)
			}
			if roundTrip != addr {
				t.Error("round-trip changed address value")
			}
		}
		if !utf8.ValidString(input) && err == nil {
			t.Error("non-UTF8 input was accepted")
		}
	})
}
