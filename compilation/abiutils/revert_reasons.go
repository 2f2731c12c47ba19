package abiutils

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/crytic/medusa-geth/accounts/abi"
	"github.com/crytic/medusa-geth/core/vm"
)

// Solidity `Panic(uint256)` codes.
// Reference: https://docs.soliditylang.org/en/latest/control-structures.html#panic-via-assert-and-error-via-require
const (
	PanicCodeCompilerInserted              = 0x00
	PanicCodeAssertFailed                  = 0x01
	PanicCodeArithmeticUnderOverflow       = 0x11
	PanicCodeDivideByZero                  = 0x12
	PanicCodeEnumTypeConversionOutOfBounds = 0x21
	PanicCodeIncorrectStorageAccess        = 0x22
	PanicCodePopEmptyArray                 = 0x31
	PanicCodeOutOfBoundsArrayAccess        = 0x32
	PanicCodeAllocateTooMuchMemory         = 0x41
	PanicCodeCallUninitializedVariable     = 0x51
)

var (
	uint256Type, _ = abi.NewType("uint256", "", nil)
	stringType, _  = abi.NewType("string", "", nil)

	panicMethod = abi.NewMethod("Panic", "Panic", abi.Function, "", false, false, abi.Arguments{{Type: uint256Type}}, nil)
	errorMethod = abi.NewMethod("Error", "Error", abi.Function, "", false, false, abi.Arguments{{Type: stringType}}, nil)
)

// GetSolidityPanicCode returns the code of a `Panic(uint256)` revert, or nil if the error and return data do not
// represent one.
func GetSolidityPanicCode(returnError error, returnData []byte) *big.Int {
	if !errors.Is(returnError, vm.ErrExecutionReverted) || len(returnData) != 4+32 {
		return nil
	}
	if !bytes.Equal(returnData[:4], panicMethod.ID) {
		return nil
	}
	values, err := panicMethod.Inputs.Unpack(returnData[4:])
	if err != nil || len(values) == 0 {
		return nil
	}
	code, _ := values[0].(*big.Int)
	return code
}

// GetSolidityRevertErrorString returns the message of an `Error(string)` revert, or nil if the error and return data
// do not represent one.
func GetSolidityRevertErrorString(returnError error, returnData []byte) *string {
	if !errors.Is(returnError, vm.ErrExecutionReverted) || len(returnData) <= 4 {
		return nil
	}
	if !bytes.Equal(returnData[:4], errorMethod.ID) {
		return nil
	}
	values, err := errorMethod.Inputs.Unpack(returnData[4:])
	if err != nil || len(values) == 0 {
		return nil
	}
	message, ok := values[0].(string)
	if !ok {
		return nil
	}
	return &message
}

// GetSolidityCustomRevertError resolves a custom error revert against the errors declared in contractAbi. It returns
// the matching error definition and its unpacked arguments, or nils if no declared error matches.
func GetSolidityCustomRevertError(contractAbi *abi.ABI, returnError error, returnData []byte) (*abi.Error, []any) {
	if contractAbi == nil || !errors.Is(returnError, vm.ErrExecutionReverted) || len(returnData) < 4 {
		return nil, nil
	}
	for _, abiError := range contractAbi.Errors {
		if !bytes.Equal(abiError.ID.Bytes()[:4], returnData[:4]) {
			continue
		}
		args, err := abiError.Inputs.Unpack(returnData[4:])
		if err == nil {
			matched := abiError
			return &matched, args
		}
	}
	return nil, nil
}

// GetPanicReason returns a description of a Solidity panic code.
func GetPanicReason(panicCode uint64) string {
	switch panicCode {
	case PanicCodeCompilerInserted:
		return "panic: compiler inserted panic"
	case PanicCodeAssertFailed:
		return "panic: assertion failed"
	case PanicCodeArithmeticUnderOverflow:
		return "panic: arithmetic underflow or overflow"
	case PanicCodeDivideByZero:
		return "panic: division by zero"
	case PanicCodeEnumTypeConversionOutOfBounds:
		return "panic: enum access out of bounds"
	case PanicCodeIncorrectStorageAccess:
		return "panic: incorrect storage access"
	case PanicCodePopEmptyArray:
		return "panic: pop on empty array"
	case PanicCodeOutOfBoundsArrayAccess:
		return "panic: out of bounds array access"
	case PanicCodeAllocateTooMuchMemory:
		return "panic: overallocation of memory"
	case PanicCodeCallUninitializedVariable:
		return "panic: call on uninitialized variable"
	default:
		return fmt.Sprintf("unknown panic code(%v)", panicCode)
	}
}

// DescribeExecutionError returns a human-readable reason for a failed execution, decoding Solidity panics, error
// strings and custom errors declared in contractAbi from the return data where possible.
func DescribeExecutionError(contractAbi *abi.ABI, returnError error, returnData []byte) string {
	if returnError == nil {
		return ""
	}
	if code := GetSolidityPanicCode(returnError, returnData); code != nil {
		if code.IsUint64() {
			return GetPanicReason(code.Uint64())
		}
		return fmt.Sprintf("unknown panic code(%v)", code)
	}
	if message := GetSolidityRevertErrorString(returnError, returnData); message != nil {
		return fmt.Sprintf("execution reverted: %v", *message)
	}
	if customError, args := GetSolidityCustomRevertError(contractAbi, returnError, returnData); customError != nil {
		values := make([]string, len(args))
		for i, arg := range args {
			values[i] = fmt.Sprintf("%v", arg)
		}
		return fmt.Sprintf("execution reverted: %v(%v)", customError.Name, strings.Join(values, ", "))
	}
	if errors.Is(returnError, vm.ErrExecutionReverted) && len(returnData) > 0 {
		return fmt.Sprintf("%v: 0x%v", returnError, hex.EncodeToString(returnData))
	}
	return returnError.Error()
}
