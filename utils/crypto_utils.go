package utils

import (
	"crypto/ecdsa"
	"strings"

	"github.com/crytic/medusa-geth/common/hexutil"
	"github.com/crytic/medusa-geth/crypto"
	"github.com/pkg/errors"
)

// GetPrivateKey will return a private key object given a byte slice. Only slices between lengths 1 and 32 (inclusive)
// are valid.
func GetPrivateKey(b []byte) (*ecdsa.PrivateKey, error) {
	// Make sure that private key is not zero
	if len(b) < 1 || len(b) > 32 {
		return nil, errors.New("invalid private key")
	}

	// Then pad the private key slice to a fixed 32-byte array
	paddedPrivateKey := make([]byte, 32)
	copy(paddedPrivateKey[32-len(b):], b)

	// Next we will actually retrieve the private key object
	privateKey, err := crypto.ToECDSA(paddedPrivateKey[:])
	return privateKey, errors.WithStack(err)
}

// HexStringToPrivateKey parses a hex-encoded private key, with or without the "0x" prefix.
func HexStringToPrivateKey(s string) (*ecdsa.PrivateKey, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		s = "0x" + s
	}
	b, err := hexutil.Decode(s)
	if err != nil {
		return nil, errors.Wrap(err, "private key is not valid hex")
	}
	return GetPrivateKey(b)
}
