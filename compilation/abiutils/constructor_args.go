package abiutils

import (
	"encoding/json"
	"fmt"
	"math/big"
	"reflect"
	"strconv"
	"strings"

	"github.com/crytic/medusa-geth/accounts/abi"
	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/medusa-geth/common/hexutil"
)

// ParseConstructorArgs converts textual constructor arguments into values that can be packed against the
// constructor of contractAbi. Arrays, slices and tuples are written as JSON arrays, e.g. `[1, 2]` or
// `["0x01", true]`.
func ParseConstructorArgs(contractAbi *abi.ABI, rawArgs []string) ([]any, error) {
	var inputs abi.Arguments
	if contractAbi != nil {
		inputs = contractAbi.Constructor.Inputs
	}
	if len(rawArgs) != len(inputs) {
		return nil, fmt.Errorf("constructor expects %d argument(s) but %d were provided", len(inputs), len(rawArgs))
	}

	args := make([]any, len(inputs))
	for i, input := range inputs {
		value, err := ParseAbiValue(&input.Type, rawArgs[i])
		if err != nil {
			name := input.Name
			if name == "" {
				name = strconv.Itoa(i)
			}
			return nil, fmt.Errorf("invalid value for constructor argument %v (%v): %w", name, input.Type.String(), err)
		}
		args[i] = value
	}
	return args, nil
}

// ParseAbiValue converts raw into the Go value go-ethereum packs for inputType.
func ParseAbiValue(inputType *abi.Type, raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	switch inputType.T {
	case abi.AddressTy:
		if !common.IsHexAddress(raw) {
			return nil, fmt.Errorf("%q is not an address", raw)
		}
		return common.HexToAddress(raw), nil
	case abi.UintTy, abi.IntTy:
		return parseInteger(inputType, raw)
	case abi.BoolTy:
		return strconv.ParseBool(raw)
	case abi.StringTy:
		return raw, nil
	case abi.BytesTy:
		return hexutil.Decode(raw)
	case abi.FixedBytesTy:
		b, err := hexutil.Decode(raw)
		if err != nil {
			return nil, err
		}
		if len(b) > inputType.Size {
			return nil, fmt.Errorf("%d bytes do not fit in bytes%d", len(b), inputType.Size)
		}
		array := reflect.New(inputType.GetType()).Elem()
		reflect.Copy(array, reflect.ValueOf(b))
		return array.Interface(), nil
	case abi.ArrayTy, abi.SliceTy, abi.TupleTy:
		return parseComposite(inputType, raw)
	default:
		return nil, fmt.Errorf("unsupported argument type %v", inputType.String())
	}
}

// parseInteger parses a decimal or 0x-prefixed integer and checks it against the bounds of inputType.
func parseInteger(inputType *abi.Type, raw string) (any, error) {
	value, ok := new(big.Int).SetString(raw, 0)
	if !ok {
		return nil, fmt.Errorf("%q is not an integer", raw)
	}
	signed := inputType.T == abi.IntTy
	min, max := integerBounds(signed, inputType.Size)
	if value.Cmp(min) < 0 || value.Cmp(max) > 0 {
		return nil, fmt.Errorf("%v is out of range for %v", value, inputType.String())
	}

	// go-ethereum expects native integer types for the sizes that have one.
	switch inputType.Size {
	case 8, 16, 32, 64:
		converted := reflect.New(inputType.GetType()).Elem()
		if signed {
			converted.SetInt(value.Int64())
		} else {
			converted.SetUint(value.Uint64())
		}
		return converted.Interface(), nil
	default:
		return value, nil
	}
}

// parseComposite parses a JSON array into an array, slice or tuple value.
func parseComposite(inputType *abi.Type, raw string) (any, error) {
	var elements []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &elements); err != nil {
		return nil, fmt.Errorf("%v values must be written as a JSON array: %w", inputType.String(), err)
	}

	var value reflect.Value
	switch inputType.T {
	case abi.ArrayTy:
		if len(elements) != inputType.Size {
			return nil, fmt.Errorf("expected %d elements but got %d", inputType.Size, len(elements))
		}
		value = reflect.New(inputType.GetType()).Elem()
	case abi.SliceTy:
		value = reflect.MakeSlice(inputType.GetType(), len(elements), len(elements))
	case abi.TupleTy:
		if len(elements) != len(inputType.TupleElems) {
			return nil, fmt.Errorf("expected %d tuple components but got %d", len(inputType.TupleElems), len(elements))
		}
		value = reflect.New(inputType.GetType()).Elem()
	}

	for i, element := range elements {
		elementType := inputType.Elem
		if inputType.T == abi.TupleTy {
			elementType = inputType.TupleElems[i]
		}
		parsed, err := ParseAbiValue(elementType, jsonElementText(element))
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		if inputType.T == abi.TupleTy {
			value.Field(i).Set(reflect.ValueOf(parsed))
		} else {
			value.Index(i).Set(reflect.ValueOf(parsed))
		}
	}
	return value.Interface(), nil
}

// jsonElementText returns the text of a JSON string element, or the raw JSON of any other element.
func jsonElementText(element json.RawMessage) string {
	var s string
	if err := json.Unmarshal(element, &s); err == nil {
		return s
	}
	return string(element)
}

// integerBounds returns the inclusive minimum and maximum of an integer type with the given signedness and bit size.
func integerBounds(signed bool, bits int) (*big.Int, *big.Int) {
	if !signed {
		max := new(big.Int).Lsh(big.NewInt(1), uint(bits))
		return new(big.Int), max.Sub(max, big.NewInt(1))
	}
	half := new(big.Int).Lsh(big.NewInt(1), uint(bits-1))
	return new(big.Int).Neg(half), new(big.Int).Sub(half, big.NewInt(1))
}
