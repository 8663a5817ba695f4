package crypto

import "testing"

func TestSha256Hex(t *testing.T) {
	// sha256("abc")
	if got := Sha256Hex("abc"); got != "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad" {
		t.Errorf("Sha256Hex(abc) = %s", got)
	}
	if Sha256Hex("ab", "c") == Sha256Hex("a", "bc") {
		t.Error("part boundaries must affect the digest")
	}
	if Sha256Hex("x") != Sha256Hex("x") {
		t.Error("digest not deterministic")
	}
}
