package compilation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/Masterminds/semver"
	"github.com/crytic/sollab/compilation/sources"
)

var (
	// contractPattern matches the first concrete or abstract contract declaration, including inheritance lists.
	contractPattern = regexp.MustCompile(`\b(?:abstract\s+)?contract\s+([A-Za-z_$][A-Za-z0-9_$]*)[^{;]*\{`)

	// pragmaPattern matches the version pragma.
	pragmaPattern = regexp.MustCompile(`\bpragma\s+solidity\s+([^;]+);`)

	// pragmaSpacing collapses the whitespace solc allows between an operator and its version.
	pragmaSpacing = regexp.MustCompile(`(\^|~|>=|<=|>|<|=)\s+`)
)

var (
	// ErrContractNameNotFound is returned when no contract declaration is present.
	ErrContractNameNotFound = errors.New("could not find contract name in code")
	// ErrVersionNotFound is returned when the version pragma is missing or cannot be parsed.
	ErrVersionNotFound = errors.New("could not determine Solidity version from pragma")
)

// ContractInfo is what can be learned about a source from its text alone.
type ContractInfo struct {
	// Name is the name of the first contract declared in the source.
	Name string

	// Pragma is the version expression of the version pragma, as written.
	Pragma string

	// Constraint is Pragma parsed as a semantic version constraint.
	Constraint *semver.Constraints
}

// ExtractContractInfo extracts the contract name and language version from source text. Comments are ignored.
func ExtractContractInfo(source string) (*ContractInfo, error) {
	stripped := sources.StripComments(source)

	nameMatch := contractPattern.FindStringSubmatch(stripped)
	if nameMatch == nil {
		return nil, ErrContractNameNotFound
	}

	pragmaMatch := pragmaPattern.FindStringSubmatch(stripped)
	if pragmaMatch == nil {
		return nil, ErrVersionNotFound
	}
	pragma := strings.TrimSpace(pragmaMatch[1])
	constraint, err := parsePragma(pragma)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVersionNotFound, err)
	}

	return &ContractInfo{Name: nameMatch[1], Pragma: pragma, Constraint: constraint}, nil
}

// parsePragma converts a solidity version expression into semver constraints. Solidity separates conjunctions with
// spaces and disjunctions with "||", and a bare version means an exact match.
func parsePragma(pragma string) (*semver.Constraints, error) {
	normalized := pragmaSpacing.ReplaceAllString(pragma, "$1")
	alternatives := strings.Split(normalized, "||")
	for i, alternative := range alternatives {
		alternatives[i] = strings.Join(strings.Fields(alternative), ", ")
	}
	return semver.NewConstraint(strings.Join(alternatives, " || "))
}
