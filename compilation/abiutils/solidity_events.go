package abiutils

import (
	"github.com/crytic/medusa-geth/accounts/abi"
	coreTypes "github.com/crytic/medusa-geth/core/types"
)

// UnpackEventAndValues finds the event definition in contractAbi matching eventLog's first topic and unpacks its
// inputs in declaration order. It returns nils if no definition matches or the log cannot be unpacked.
func UnpackEventAndValues(contractAbi *abi.ABI, eventLog *coreTypes.Log) (*abi.Event, []any) {
	if contractAbi == nil || len(eventLog.Topics) == 0 {
		return nil, nil
	}
	event, err := contractAbi.EventByID(eventLog.Topics[0])
	if err != nil {
		return nil, nil
	}

	// go-ethereum cannot unpack indexed arguments, so they are redeclared as non-indexed and unpacked from the
	// concatenated topics instead of the data.
	var indexed, unindexed abi.Arguments
	for _, arg := range event.Inputs {
		if arg.Indexed {
			indexed = append(indexed, abi.Argument{Name: arg.Name, Type: arg.Type})
		} else {
			unindexed = append(unindexed, arg)
		}
	}
	if len(eventLog.Topics) != len(indexed)+1 {
		return nil, nil
	}
	var topicData []byte
	for _, topic := range eventLog.Topics[1:] {
		topicData = append(topicData, topic.Bytes()...)
	}

	unindexedValues, err := unindexed.Unpack(eventLog.Data)
	if err != nil {
		return nil, nil
	}
	indexedValues, err := indexed.Unpack(topicData)
	if err != nil {
		return nil, nil
	}

	values := make([]any, 0, len(event.Inputs))
	for _, arg := range event.Inputs {
		if arg.Indexed {
			values = append(values, indexedValues[0])
			indexedValues = indexedValues[1:]
		} else {
			values = append(values, unindexedValues[0])
			unindexedValues = unindexedValues[1:]
		}
	}
	return event, values
}
