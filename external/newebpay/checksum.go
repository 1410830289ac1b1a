package newebpay

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// ErrChecksumMismatch flags an inbound callback whose TradeSha does not match
// the TradeInfo. Treated as untrusted input, never as a reason for a non-200.
var ErrChecksumMismatch = errors.New("newebpay: trade checksum mismatch")

// Checksum computes the keyed digest the gateway attaches to every encrypted
// parameter block: SHA256("HashKey="+key+"&"+cipherHex+"&HashIV="+iv),
// uppercase hex.
func Checksum(cipherHex, key, iv string) string {
	sum := sha256.Sum256([]byte("HashKey=" + key + "&" + cipherHex + "&HashIV=" + iv))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

// VerifyChecksum authenticates cipherHex against the received digest. The
// comparison is case-insensitive; the counterparty is inconsistent about
// casing. Must run before Decrypt on every inbound callback so undecodable
// garbage never reaches the codec masking the real cause.
func VerifyChecksum(cipherHex, received, key, iv string) bool {
	return strings.EqualFold(Checksum(cipherHex, key, iv), received)
}
