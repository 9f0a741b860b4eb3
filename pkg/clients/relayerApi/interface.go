package relayerApi

import (
	"context"

	"github.com/Layr-Labs/wallet-sdk-go/pkg/types"
	"github.com/ethereum/go-ethereum/common"
)

// IRelayerApi is the client side of the relayer HTTP contract.
type IRelayerApi interface {
	// Execute submits a signed message and returns its message hash.
	// An empty hash in the reply fails with MissingMessageHash.
	Execute(ctx context.Context, message *types.SignedMessage) (common.Hash, error)

	// GetStatus returns the relayer's view of a previously submitted message.
	GetStatus(ctx context.Context, messageHash common.Hash) (*types.MessageStatus, error)

	// GetConfig returns the relayer's public configuration.
	// A missing or empty configuration fails with MissingConfiguration.
	GetConfig(ctx context.Context) (*types.PublicRelayerConfig, error)

	// Deploy asks the relayer to deploy a counterfactual wallet.
	Deploy(ctx context.Context, args *types.DeployArgs) error

	// ConnectDevice requests that a new key be added to a wallet.
	ConnectDevice(ctx context.Context, contractAddress, key common.Address) error

	// GetPendingAuthorisations lists connection requests waiting on the wallet owner.
	GetPendingAuthorisations(ctx context.Context, request *types.GetAuthorisationRequest) ([]types.Notification, error)

	// DenyConnection withdraws a pending connection request.
	DenyConnection(ctx context.Context, request *types.CancelAuthorisationRequest) error
}

var _ IRelayerApi = (*RelayerApi)(nil)
