package types

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/crytic/medusa-geth/accounts/abi"
	"golang.org/x/exp/slices"
)

// ErrArtifactIncomplete is returned when a contract output lacks its ABI or its bytecode.
var ErrArtifactIncomplete = errors.New("missing ABI or bytecode in compilation result")

// ContractArtifact is the deployable output of a single compiled contract. It is only ever constructed whole, through
// NewContractArtifact, and is not modified afterwards.
type ContractArtifact struct {
	// Name is the contract name.
	Name string

	// SourcePath is the source path the contract was declared in.
	SourcePath string

	// Abi is the parsed application binary interface.
	Abi abi.ABI

	// AbiJSON is the ABI exactly as emitted by the compiler.
	AbiJSON json.RawMessage

	// Bytecode is the hex-encoded init bytecode, without a 0x prefix.
	Bytecode string

	// DeployedBytecode is the hex-encoded runtime bytecode, without a 0x prefix. It may be empty.
	DeployedBytecode string

	// Devdoc and Userdoc hold the NatSpec documentation, if any was produced.
	Devdoc  json.RawMessage
	Userdoc json.RawMessage

	// Metadata is decoded from the runtime bytecode, if present.
	Metadata ContractMetadata
}

// NewContractArtifact creates an artifact from compiler output. It returns ErrArtifactIncomplete if the ABI or the
// init bytecode is empty, and a parse error if either is malformed.
func NewContractArtifact(sourcePath string, name string, output ContractOutput) (*ContractArtifact, error) {
	abiJSON := strings.TrimSpace(string(output.Abi))
	bytecode := strings.TrimPrefix(strings.TrimSpace(output.Evm.Bytecode.Object), "0x")
	if abiJSON == "" || abiJSON == "null" || bytecode == "" {
		return nil, ErrArtifactIncomplete
	}

	parsedAbi, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		return nil, fmt.Errorf("could not parse ABI of contract %v: %w", name, err)
	}
	if _, err := hex.DecodeString(bytecode); err != nil {
		return nil, fmt.Errorf("could not decode bytecode of contract %v (unlinked libraries are not supported): %w", name, err)
	}

	artifact := &ContractArtifact{
		Name:             name,
		SourcePath:       sourcePath,
		Abi:              parsedAbi,
		AbiJSON:          slices.Clone(output.Abi),
		Bytecode:         bytecode,
		DeployedBytecode: strings.TrimPrefix(output.Evm.DeployedBytecode.Object, "0x"),
		Devdoc:           slices.Clone(output.Devdoc),
		Userdoc:          slices.Clone(output.Userdoc),
	}
	if runtime, err := hex.DecodeString(artifact.DeployedBytecode); err == nil {
		artifact.Metadata = ExtractContractMetadata(runtime)
	}
	return artifact, nil
}

// IsValid indicates whether both the ABI and the bytecode are present.
func (c *ContractArtifact) IsValid() bool {
	return c != nil && len(c.AbiJSON) > 0 && c.Bytecode != ""
}

// InitBytecode returns the decoded init bytecode.
func (c *ContractArtifact) InitBytecode() ([]byte, error) {
	return hex.DecodeString(c.Bytecode)
}

// GetDeploymentMessageData returns the init bytecode with the ABI-encoded constructor arguments appended, for use as
// the data of a contract creation transaction.
func (c *ContractArtifact) GetDeploymentMessageData(args []any) ([]byte, error) {
	initBytecode, err := c.InitBytecode()
	if err != nil {
		return nil, err
	}
	if len(c.Abi.Constructor.Inputs) == 0 {
		if len(args) > 0 {
			return nil, fmt.Errorf("contract %v has no constructor arguments but %d were provided", c.Name, len(args))
		}
		return initBytecode, nil
	}

	data, err := c.Abi.Pack("", args...)
	if err != nil {
		return nil, fmt.Errorf("could not encode constructor arguments: %w", err)
	}
	return append(initBytecode, data...), nil
}
