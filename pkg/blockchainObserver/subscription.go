package blockchainObserver

import (
	"strings"
	"sync"

	"github.com/Layr-Labs/wallet-sdk-go/pkg/blockchain"
	"github.com/Layr-Labs/wallet-sdk-go/pkg/sdkErrors"
	"github.com/Layr-Labs/wallet-sdk-go/pkg/types"
)

// EventPayload is what subscribers receive for KeyAdded and KeyRemoved.
type EventPayload struct {
	// Key is the lowercase hex address of the key.
	Key     string `json:"key"`
	Purpose uint64 `json:"purpose"`
}

// EventFilter selects events of one wallet contract. Key and Purpose are the
// event's indexed fields; an empty Key or nil Purpose matches any value.
type EventFilter struct {
	ContractAddress string
	Key             string
	Purpose         *uint64
}

type Callback func(payload EventPayload)

var supportedEvents = map[string]struct{}{
	blockchain.EventKeyAdded:   {},
	blockchain.EventKeyRemoved: {},
}

// normalize validates the filter and lowercases its addresses.
func (f EventFilter) normalize() (EventFilter, error) {
	if !types.IsProperAddress(f.ContractAddress) {
		return EventFilter{}, sdkErrors.NewInvalidAddress(f.ContractAddress)
	}
	if f.Key != "" && !types.IsProperAddress(f.Key) {
		return EventFilter{}, sdkErrors.NewInvalidAddress(f.Key)
	}

	normalized := EventFilter{
		ContractAddress: strings.ToLower(f.ContractAddress),
		Key:             strings.ToLower(f.Key),
	}
	if f.Purpose != nil {
		purpose := *f.Purpose
		normalized.Purpose = &purpose
	}
	return normalized, nil
}

func (f EventFilter) matches(contractAddress string, payload EventPayload) bool {
	if f.ContractAddress != contractAddress {
		return false
	}
	if f.Key != "" && f.Key != payload.Key {
		return false
	}
	if f.Purpose != nil && *f.Purpose != payload.Purpose {
		return false
	}
	return true
}

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	id        uint64
	eventName string
	filter    EventFilter
	callback  Callback
	observer  *Observer
	once      sync.Once
}

func (s *Subscription) EventName() string {
	return s.eventName
}

func (s *Subscription) Filter() EventFilter {
	return s.filter
}

// Unsubscribe stops future deliveries. A delivery already in progress completes.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.observer.removeSubscription(s.id)
	})
}
