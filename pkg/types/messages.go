package types

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Message is a fully specified wallet action, ready to be hashed and signed.
type Message struct {
	From          common.Address
	To            common.Address
	Value         *big.Int
	Data          []byte
	Nonce         *big.Int
	GasPrice      *big.Int
	GasLimit      *big.Int
	GasToken      common.Address
	OperationType uint8
}

// PartialMessage is a Message where every field is optional. A nil field means
// "not specified" and is distinct from an explicit zero value.
type PartialMessage struct {
	From          *common.Address
	To            *common.Address
	Value         *big.Int
	Data          hexutil.Bytes
	Nonce         *big.Int
	GasPrice      *big.Int
	GasLimit      *big.Int
	GasToken      *common.Address
	OperationType *uint8
}

// Complete merges the specified fields of p over defaults.
func (p PartialMessage) Complete(defaults Message) Message {
	m := defaults
	if p.From != nil {
		m.From = *p.From
	}
	if p.To != nil {
		m.To = *p.To
	}
	if p.Value != nil {
		m.Value = new(big.Int).Set(p.Value)
	}
	if p.Data != nil {
		m.Data = append([]byte{}, p.Data...)
	}
	if p.Nonce != nil {
		m.Nonce = new(big.Int).Set(p.Nonce)
	}
	if p.GasPrice != nil {
		m.GasPrice = new(big.Int).Set(p.GasPrice)
	}
	if p.GasLimit != nil {
		m.GasLimit = new(big.Int).Set(p.GasLimit)
	}
	if p.GasToken != nil {
		m.GasToken = *p.GasToken
	}
	if p.OperationType != nil {
		m.OperationType = *p.OperationType
	}
	return m
}

// SignatureKeyPair is one collected signature and the address that produced it.
type SignatureKeyPair struct {
	Key       common.Address
	Signature []byte
}

type SignedMessage struct {
	Message
	Signature []byte
}

// MessageState is the relayer-side lifecycle of a submitted message.
type MessageState string

const (
	MessageStateAwaitSignature MessageState = "AwaitSignature"
	MessageStateQueued         MessageState = "Queued"
	MessageStatePending        MessageState = "Pending"
	MessageStateSuccess        MessageState = "Success"
	MessageStateError          MessageState = "Error"
)

// MessageStatus is the relayer's view of a submitted message.
type MessageStatus struct {
	MessageHash         common.Hash  `json:"messageHash"`
	TransactionHash     *common.Hash `json:"transactionHash"`
	CollectedSignatures []string     `json:"collectedSignatures"`
	TotalCollected      int          `json:"totalCollected"`
	Required            int          `json:"required"`
	State               MessageState `json:"state"`
	Error               string       `json:"error,omitempty"`
	Confirmations       uint64       `json:"confirmations"`
}

// IsComplete reports whether enough signatures were collected to execute the message.
func (s *MessageStatus) IsComplete() bool {
	return s.Required > 0 && s.TotalCollected >= s.Required
}
