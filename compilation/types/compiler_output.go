package types

import (
	"encoding/json"
	"strings"

	"golang.org/x/exp/slices"
)

// DiagnosticSeverity describes the severity of a compiler diagnostic.
type DiagnosticSeverity string

const (
	// SeverityError marks a diagnostic that fails the compilation.
	SeverityError DiagnosticSeverity = "error"
	// SeverityWarning marks a diagnostic that does not fail the compilation.
	SeverityWarning DiagnosticSeverity = "warning"
	// SeverityInfo marks an informational diagnostic.
	SeverityInfo DiagnosticSeverity = "info"
)

// SourceLocation points into a source file by byte offsets.
type SourceLocation struct {
	File  string `json:"file"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// CompilerDiagnostic is a single entry of the compiler's "errors" list. Despite the name of that list, entries may be
// warnings or informational messages.
type CompilerDiagnostic struct {
	Severity         DiagnosticSeverity `json:"severity"`
	Type             string             `json:"type"`
	Component        string             `json:"component"`
	Message          string             `json:"message"`
	FormattedMessage string             `json:"formattedMessage,omitempty"`
	ErrorCode        string             `json:"errorCode,omitempty"`
	SourceLocation   *SourceLocation    `json:"sourceLocation,omitempty"`
}

// IsError indicates whether the diagnostic fails the compilation.
func (d CompilerDiagnostic) IsError() bool {
	return strings.EqualFold(string(d.Severity), string(SeverityError))
}

// String returns the most descriptive message available for the diagnostic.
func (d CompilerDiagnostic) String() string {
	if d.FormattedMessage != "" {
		return strings.TrimSpace(d.FormattedMessage)
	}
	return d.Message
}

// BytecodeOutput holds a hex-encoded bytecode object.
type BytecodeOutput struct {
	Object string `json:"object"`
}

// EVMOutput holds the EVM-related outputs of a single contract.
type EVMOutput struct {
	Bytecode         BytecodeOutput `json:"bytecode"`
	DeployedBytecode BytecodeOutput `json:"deployedBytecode"`
}

// ContractOutput is the compiler output for a single contract.
type ContractOutput struct {
	Abi      json.RawMessage `json:"abi,omitempty"`
	Devdoc   json.RawMessage `json:"devdoc,omitempty"`
	Userdoc  json.RawMessage `json:"userdoc,omitempty"`
	Metadata string          `json:"metadata,omitempty"`
	Evm      EVMOutput       `json:"evm"`
}

// CompilerOutput is the standard JSON output of a compilation. Contracts are keyed by source path, then by contract
// name.
type CompilerOutput struct {
	Errors    []CompilerDiagnostic                 `json:"errors,omitempty"`
	Contracts map[string]map[string]ContractOutput `json:"contracts,omitempty"`
}

// Diagnostics returns the diagnostics with the given severity, or all of them if severity is empty.
func (o *CompilerOutput) Diagnostics(severity DiagnosticSeverity) []CompilerDiagnostic {
	if severity == "" {
		return slices.Clone(o.Errors)
	}
	diagnostics := make([]CompilerDiagnostic, 0)
	for _, diagnostic := range o.Errors {
		if strings.EqualFold(string(diagnostic.Severity), string(severity)) {
			diagnostics = append(diagnostics, diagnostic)
		}
	}
	return diagnostics
}

// HasErrors indicates whether any diagnostic has error severity.
func (o *CompilerOutput) HasErrors() bool {
	return slices.ContainsFunc(o.Errors, CompilerDiagnostic.IsError)
}

// Contract looks up the output for the named contract declared in the given source path.
func (o *CompilerOutput) Contract(sourcePath string, name string) (ContractOutput, bool) {
	contracts, ok := o.Contracts[sourcePath]
	if !ok {
		return ContractOutput{}, false
	}
	contract, ok := contracts[name]
	return contract, ok
}
