package abiutils

import (
	"fmt"
	"strings"

	"github.com/crytic/medusa-geth/accounts/abi"
)

// GetAbiItemSignature returns the canonical signature of a method, e.g. `transfer(address,uint256)`. Tuple
// parameters are written as parenthesized component lists, keeping any array suffix.
func GetAbiItemSignature(method abi.Method) string {
	if strings.Contains(method.RawName, "(") {
		return method.RawName
	}
	name := method.RawName
	if name == "" {
		name = method.Name
	}
	return fmt.Sprintf("%v(%v)", name, strings.Join(flattenTypes(method.Inputs), ","))
}

// flattenTypes returns the type names of args with tuples expanded into their components.
func flattenTypes(args abi.Arguments) []string {
	names := make([]string, len(args))
	for i, arg := range args {
		names[i] = flattenType(&arg.Type)
	}
	return names
}

// flattenType returns the type name of t with tuples expanded into their components.
func flattenType(t *abi.Type) string {
	switch t.T {
	case abi.TupleTy:
		components := make([]string, len(t.TupleElems))
		for i, elem := range t.TupleElems {
			components[i] = flattenType(elem)
		}
		return "(" + strings.Join(components, ",") + ")"
	case abi.SliceTy:
		return flattenType(t.Elem) + "[]"
	case abi.ArrayTy:
		return fmt.Sprintf("%v[%d]", flattenType(t.Elem), t.Size)
	default:
		return t.String()
	}
}
