package types

import (
	"encoding/json"
)

// OutputSelection selects which outputs the compiler produces, keyed by source path then contract name. "*" matches
// everything.
type OutputSelection map[string]map[string][]string

// DefaultOutputSelection requests the ABI, both bytecode objects, documentation and metadata for every contract.
func DefaultOutputSelection() OutputSelection {
	return OutputSelection{
		"*": {
			"*": {"abi", "evm.bytecode.object", "evm.deployedBytecode.object", "devdoc", "userdoc", "metadata"},
		},
	}
}

// OptimizerSettings describes the compiler optimizer settings.
type OptimizerSettings struct {
	Enabled bool `json:"enabled"`
	Runs    int  `json:"runs,omitempty"`
}

// CompilerSettings are the standard JSON "settings" of a compilation.
type CompilerSettings struct {
	OutputSelection OutputSelection    `json:"outputSelection"`
	EVMVersion      string             `json:"evmVersion,omitempty"`
	Optimizer       *OptimizerSettings `json:"optimizer,omitempty"`
}

// CompileRequest is a single compilation request sent across the compiler boundary. ID correlates the request with
// its response.
type CompileRequest struct {
	ID       string           `json:"id"`
	Sources  SourceMap        `json:"sources"`
	Settings CompilerSettings `json:"settings"`
}

// StandardJSONInput is the compiler's standard JSON input document.
type StandardJSONInput struct {
	Language string           `json:"language"`
	Sources  SourceMap        `json:"sources"`
	Settings CompilerSettings `json:"settings"`
}

// StandardJSONInput converts the request into the compiler's standard JSON input. The correlation id is not part of
// the compiler input.
func (r *CompileRequest) StandardJSONInput() StandardJSONInput {
	return StandardJSONInput{
		Language: "Solidity",
		Sources:  r.Sources,
		Settings: r.Settings,
	}
}

// CompileResponse is the single response to a CompileRequest. On success, Output carries the structured compiler
// output, which may still contain error diagnostics. On failure, Error carries the reason the compiler could not
// produce output at all.
type CompileResponse struct {
	ID      string          `json:"id"`
	Success bool            `json:"success"`
	Output  *CompilerOutput `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// NewCompileFailure creates a failed CompileResponse for the given request id.
func NewCompileFailure(id string, err error) *CompileResponse {
	return &CompileResponse{ID: id, Success: false, Error: err.Error()}
}

// EncodeCompileRequest serializes a request for transport across the compiler boundary.
func EncodeCompileRequest(request *CompileRequest) ([]byte, error) {
	return json.Marshal(request)
}

// DecodeCompileRequest deserializes a request received across the compiler boundary.
func DecodeCompileRequest(b []byte) (*CompileRequest, error) {
	var request CompileRequest
	if err := json.Unmarshal(b, &request); err != nil {
		return nil, err
	}
	return &request, nil
}

// EncodeCompileResponse serializes a response for transport across the compiler boundary.
func EncodeCompileResponse(response *CompileResponse) ([]byte, error) {
	return json.Marshal(response)
}

// DecodeCompileResponse deserializes a response received across the compiler boundary.
func DecodeCompileResponse(b []byte) (*CompileResponse, error) {
	var response CompileResponse
	if err := json.Unmarshal(b, &response); err != nil {
		return nil, err
	}
	return &response, nil
}
