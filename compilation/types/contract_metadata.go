package types

import (
	"bytes"
	"fmt"

	"github.com/fxamacker/cbor"
)

// ContractMetadata is the CBOR-encoded map that solc appends to runtime bytecode, unless told not to.
// Reference: https://docs.soliditylang.org/en/latest/metadata.html
type ContractMetadata map[string]any

// metadataPrefixes are the leading bytes of the CBOR map for each known metadata layout.
var metadataPrefixes = [][]byte{
	{0xa1, 0x65, 'b', 'z', 'z', 'r', '0', 0x58, 0x20}, // solc <= 0.5.8
	{0xa2, 0x65, 'b', 'z', 'z', 'r', '0', 0x58, 0x20}, // solc >= 0.5.9
	{0xa2, 0x65, 'b', 'z', 'z', 'r', '1', 0x58, 0x20}, // solc >= 0.5.11
	{0xa2, 0x64, 'i', 'p', 'f', 's', 0x58, 0x22},      // solc >= 0.6.0
}

// bytecodeHashKeys are the metadata keys that may hold the metadata hash.
var bytecodeHashKeys = []string{"ipfs", "bzzr1", "bzzr0"}

// ExtractContractMetadata decodes the metadata embedded at the end of the provided bytecode. It returns nil if no
// metadata could be found or decoded.
func ExtractContractMetadata(bytecode []byte) ContractMetadata {
	for _, prefix := range metadataPrefixes {
		offset := bytes.LastIndex(bytecode, prefix)
		if offset == -1 {
			continue
		}
		// solc terminates the metadata with its two byte big-endian length
		end := len(bytecode)
		if end >= 2 && offset+(int(bytecode[end-2])<<8|int(bytecode[end-1])) == end-2 {
			end -= 2
		}
		var metadata ContractMetadata
		if err := cbor.Unmarshal(bytecode[offset:end], &metadata); err != nil {
			continue
		}
		return metadata
	}
	return nil
}

// BytecodeHash returns the metadata hash and the key it was stored under, or nil if there is none.
func (m ContractMetadata) BytecodeHash() ([]byte, string) {
	for _, key := range bytecodeHashKeys {
		if hash, ok := m[key].([]byte); ok {
			return hash, key
		}
	}
	return nil, ""
}

// CompilerVersion returns the "solc" entry as a dotted version string. Older compilers, and experimental builds,
// store a string instead of the three version bytes.
func (m ContractMetadata) CompilerVersion() (string, bool) {
	switch v := m["solc"].(type) {
	case []byte:
		if len(v) != 3 {
			return "", false
		}
		return fmt.Sprintf("%d.%d.%d", v[0], v[1], v[2]), true
	case string:
		return v, true
	default:
		return "", false
	}
}
