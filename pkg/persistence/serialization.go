package persistence

import (
	"encoding/json"
	"fmt"
)

// MarshalObserverState serializes ObserverState to JSON bytes.
func MarshalObserverState(s *ObserverState) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("cannot marshal nil ObserverState")
	}

	return json.Marshal(s)
}

// UnmarshalObserverState deserializes ObserverState from JSON bytes.
func UnmarshalObserverState(data []byte) (*ObserverState, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("cannot unmarshal empty data")
	}

	var s ObserverState
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON to ObserverState: %w", err)
	}

	return &s, nil
}

// MarshalFutureWalletRecord serializes a FutureWalletRecord to JSON bytes.
func MarshalFutureWalletRecord(w *FutureWalletRecord) ([]byte, error) {
	if w == nil {
		return nil, fmt.Errorf("cannot marshal nil FutureWalletRecord")
	}
	if w.ContractAddress == "" {
		return nil, fmt.Errorf("cannot marshal FutureWalletRecord without contract address")
	}

	data, err := json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal FutureWalletRecord to JSON: %w", err)
	}

	return data, nil
}

// UnmarshalFutureWalletRecord deserializes a FutureWalletRecord from JSON bytes.
func UnmarshalFutureWalletRecord(data []byte) (*FutureWalletRecord, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("cannot unmarshal empty data")
	}

	var w FutureWalletRecord
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON to FutureWalletRecord: %w", err)
	}

	return &w, nil
}
