package newebpay

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/hex"
	"strings"
)

// CodecError marks ciphertext this side cannot decode: wrong shape, wrong
// key/iv, or a payload format we do not recognize. Callers on the callback
// path swallow it toward the gateway and only log diagnostics.
type CodecError struct {
	Reason string
}

func (e *CodecError) Error() string {
	return "newebpay: " + e.Reason
}

// Encrypt AES-256-CBC encrypts plain with PKCS7 padding and returns uppercase
// hex. Key and iv are the raw UTF-8 HashKey/HashIV secrets used byte-for-byte;
// the protocol never base64-decodes them.
func Encrypt(plain, key, iv string) (string, error) {
	block, err := aes.NewCipher([]byte(key))
	if err != nil {
		return "", &CodecError{Reason: "bad key length"}
	}
	if len(iv) != aes.BlockSize {
		return "", &CodecError{Reason: "bad iv length"}
	}

	padded := pkcs7Pad([]byte(plain), aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, []byte(iv)).CryptBlocks(out, padded)

	return strings.ToUpper(hex.EncodeToString(out)), nil
}

// Decrypt reverses Encrypt. The gateway is inconsistent about hex casing
// between the notify and return paths, so both cases are accepted.
func Decrypt(cipherHex, key, iv string) (string, error) {
	if cipherHex == "" {
		return "", &CodecError{Reason: "empty ciphertext"}
	}
	if len(cipherHex)%2 != 0 {
		return "", &CodecError{Reason: "odd hex length"}
	}
	raw, err := hex.DecodeString(strings.ToLower(cipherHex))
	if err != nil {
		return "", &CodecError{Reason: "invalid hex"}
	}
	if len(raw)%aes.BlockSize != 0 {
		return "", &CodecError{Reason: "ciphertext not block aligned"}
	}

	block, err := aes.NewCipher([]byte(key))
	if err != nil {
		return "", &CodecError{Reason: "bad key length"}
	}
	if len(iv) != aes.BlockSize {
		return "", &CodecError{Reason: "bad iv length"}
	}

	plain := make([]byte, len(raw))
	cipher.NewCBCDecrypter(block, []byte(iv)).CryptBlocks(plain, raw)

	unpadded, ok := pkcs7Unpad(plain, aes.BlockSize)
	if !ok {
		return "", &CodecError{Reason: "invalid padding"}
	}
	return string(unpadded), nil
}

func pkcs7Pad(b []byte, size int) []byte {
	n := size - len(b)%size
	padded := make([]byte, len(b)+n)
	copy(padded, b)
	for i := len(b); i < len(padded); i++ {
		padded[i] = byte(n)
	}
	return padded
}

func pkcs7Unpad(b []byte, size int) ([]byte, bool) {
	if len(b) == 0 || len(b)%size != 0 {
		return nil, false
	}
	n := int(b[len(b)-1])
	if n == 0 || n > size {
		return nil, false
	}
	for _, c := range b[len(b)-n:] {
		if int(c) != n {
			return nil, false
		}
	}
	return b[:len(b)-n], true
}
