package execution

import (
	"context"
	"fmt"
	"sync"

	"github.com/Layr-Labs/wallet-sdk-go/pkg/types"
	"github.com/ethereum/go-ethereum/common"
)

// MessageError is a failure reported by the relayer for a submitted message.
type MessageError struct {
	MessageHash common.Hash
	Reason      string
}

func (e *MessageError) Error() string {
	return fmt.Sprintf("message %s failed: %s", e.MessageHash.Hex(), e.Reason)
}

// Execution is the handle of a message submitted to the relayer. It resolves
// once the message is mined, fails, times out, or the coordinator stops.
type Execution struct {
	MessageHash common.Hash

	done   chan struct{}
	once   sync.Once
	status *types.MessageStatus
	err    error
}

func newExecution(messageHash common.Hash) *Execution {
	return &Execution{
		MessageHash: messageHash,
		done:        make(chan struct{}),
	}
}

func (e *Execution) resolve(status *types.MessageStatus, err error) {
	e.once.Do(func() {
		e.status = status
		e.err = err
		close(e.done)
	})
}

// Done is closed when the execution has resolved.
func (e *Execution) Done() <-chan struct{} {
	return e.done
}

// WaitToBeMined blocks until the message is mined and returns its final
// status. ctx only bounds this wait; it does not cancel the execution.
func (e *Execution) WaitToBeMined(ctx context.Context) (*types.MessageStatus, error) {
	select {
	case <-e.done:
		return e.status, e.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
