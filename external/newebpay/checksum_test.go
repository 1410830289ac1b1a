package newebpay

import (
	"strings"
	"testing"
)

func TestChecksumVerify(t *testing.T) {
	enc, err := Encrypt("Amt=1200&MerchantOrderNo=ORD1-1", testKey, testIV)
	if err != nil {
		t.Fatal(err)
	}
	sum := Checksum(enc, testKey, testIV)

	if sum != strings.ToUpper(sum) {
		t.Errorf("checksum not uppercase: %s", sum)
	}
	if !VerifyChecksum(enc, sum, testKey, testIV) {
		t.Error("checksum of own output rejected")
	}
	if !VerifyChecksum(enc, strings.ToLower(sum), testKey, testIV) {
		t.Error("lowercase checksum rejected; comparison must be case-insensitive")
	}
}

// Any single-character mutation of either the ciphertext or the digest must
// fail verification.
func TestVerifyRejectsMutation(t *testing.T) {
	enc, err := Encrypt("Amt=1200&MerchantOrderNo=ORD1-1", testKey, testIV)
	if err != nil {
		t.Fatal(err)
	}
	sum := Checksum(enc, testKey, testIV)

	flip := func(s string, i int) string {
		b := []byte(s)
		if b[i] == '0' {
			b[i] = '1'
		} else {
			b[i] = '0'
		}
		return string(b)
	}

	for _, i := range []int{0, len(enc) / 2, len(enc) - 1} {
		if VerifyChecksum(flip(enc, i), sum, testKey, testIV) {
			t.Errorf("mutated ciphertext at %d passed verification", i)
		}
	}
	for _, i := range []int{0, len(sum) / 2, len(sum) - 1} {
		if VerifyChecksum(enc, flip(sum, i), testKey, testIV) {
			t.Errorf("mutated checksum at %d passed verification", i)
		}
	}
}

func TestVerifyRejectsForeignKey(t *testing.T) {
	enc, err := Encrypt("Amt=1200", testKey, testIV)
	if err != nil {
		t.Fatal(err)
	}
	foreign := Checksum(enc, strings.Repeat("W", 32), testIV)
	if VerifyChecksum(enc, foreign, testKey, testIV) {
		t.Error("checksum computed with a different HashKey passed verification")
	}
}
