package sdkSigner

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/Layr-Labs/wallet-sdk-go/pkg/blockchain"
	"github.com/Layr-Labs/wallet-sdk-go/pkg/clients/relayerApi"
	"github.com/Layr-Labs/wallet-sdk-go/pkg/config"
	"github.com/Layr-Labs/wallet-sdk-go/pkg/execution"
	"github.com/Layr-Labs/wallet-sdk-go/pkg/logger"
	"github.com/Layr-Labs/wallet-sdk-go/pkg/messages"
	"github.com/Layr-Labs/wallet-sdk-go/pkg/sdkErrors"
	"github.com/Layr-Labs/wallet-sdk-go/pkg/testutil"
	"github.com/Layr-Labs/wallet-sdk-go/pkg/types"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethereumTypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var walletAddress = common.HexToAddress("0x00000000000000000000000000000000000000a1")

func newTestSigner(t *testing.T) (*Signer, *testutil.FakeChain, *testutil.FakeRelayer) {
	t.Helper()
	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	require.NoError(t, err)

	privateKey, err := crypto.GenerateKey()
	require.NoError(t, err)

	chain := testutil.NewFakeChain()
	chain.DeployWallet(walletAddress, map[common.Address]uint64{
		crypto.PubkeyToAddress(privateKey.PublicKey): types.ManagementKey,
	}, 1)

	relayer := testutil.NewFakeRelayer(&types.PublicRelayerConfig{})
	t.Cleanup(relayer.Close)

	api, err := relayerApi.NewRelayerApi(&relayerApi.Config{BaseURL: relayer.URL()}, l)
	require.NoError(t, err)

	coordinator, err := execution.NewCoordinator(&config.ExecutionConfig{
		PollInterval:          5 * time.Millisecond,
		MineTimeout:           time.Second,
		RequiredConfirmations: 1,
	}, api, blockchain.NewBlockchainService(chain, l), l)
	require.NoError(t, err)
	t.Cleanup(coordinator.Stop)

	signer, err := New(coordinator, chain, walletAddress, privateKey, l)
	require.NoError(t, err)
	return signer, chain, relayer
}

func TestNew_Validation(t *testing.T) {
	signer, chain, _ := newTestSigner(t)

	_, err := New(nil, chain, walletAddress, signer.privateKey, nil)
	assert.Error(t, err)
	_, err = New(signer.executor, chain, walletAddress, nil, nil)
	assert.Error(t, err)
	_, err = New(signer.executor, chain, common.Address{}, signer.privateKey, nil)
	assert.True(t, sdkErrors.IsType(err, sdkErrors.InvalidAddress))
}

func TestGetAddress(t *testing.T) {
	signer, _, _ := newTestSigner(t)
	assert.Equal(t, crypto.PubkeyToAddress(signer.privateKey.PublicKey), signer.GetAddress())
	assert.NotEqual(t, walletAddress, signer.GetAddress())
	assert.Equal(t, walletAddress, signer.ContractAddress())
}

func TestSignMessage(t *testing.T) {
	signer, _, _ := newTestSigner(t)
	data := []byte("hello wallet")

	signature, err := signer.SignMessage(data)
	require.NoError(t, err)
	require.Len(t, signature, 65)

	recovered, err := messages.RecoverPersonal(data, signature)
	require.NoError(t, err)
	assert.Equal(t, signer.GetAddress(), recovered)
}

func TestSendTransaction(t *testing.T) {
	to := common.HexToAddress("0x00000000000000000000000000000000000000c1")

	t.Run("returns the mined transaction", func(t *testing.T) {
		signer, chain, relayer := newTestSigner(t)

		tx := ethereumTypes.NewTx(&ethereumTypes.LegacyTx{
			Nonce:    1,
			To:       &walletAddress,
			Gas:      500_000,
			GasPrice: big.NewInt(1),
			Value:    big.NewInt(0),
		})
		chain.AddTransaction(tx)

		relayer.SetStatusFunc(func(messageHash common.Hash, poll int) *types.MessageStatus {
			txHash := tx.Hash()
			return &types.MessageStatus{
				MessageHash:     messageHash,
				TransactionHash: &txHash,
				State:           types.MessageStateSuccess,
				Confirmations:   1,
			}
		})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		got, err := signer.SendTransaction(ctx, &TransactionRequest{
			To:       &to,
			Data:     []byte{0xde, 0xad},
			Value:    big.NewInt(3),
			GasLimit: big.NewInt(90_000),
		})
		require.NoError(t, err)
		assert.Equal(t, tx.Hash(), got.Hash())

		received := relayer.Executions()
		require.Len(t, received, 1)
		assert.Equal(t, walletAddress, received[0].From)
		assert.Equal(t, to, received[0].To)
		assert.Equal(t, []byte{0xde, 0xad}, []byte(received[0].Data))
		assert.Equal(t, "3", received[0].Value)
		assert.Equal(t, "90000", received[0].GasLimit)
		assert.Equal(t, types.DefaultGasPrice.String(), received[0].GasPrice)
	})

	t.Run("mined status without transaction hash", func(t *testing.T) {
		signer, _, relayer := newTestSigner(t)
		relayer.SetStatusFunc(func(messageHash common.Hash, poll int) *types.MessageStatus {
			return &types.MessageStatus{MessageHash: messageHash, State: types.MessageStateSuccess, Confirmations: 1}
		})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_, err := signer.SendTransaction(ctx, &TransactionRequest{To: &to})
		assert.True(t, sdkErrors.IsType(err, sdkErrors.TransactionHashNotFound))
	})

	t.Run("transaction missing on chain", func(t *testing.T) {
		signer, _, _ := newTestSigner(t)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_, err := signer.SendTransaction(ctx, &TransactionRequest{To: &to})
		assert.ErrorIs(t, err, ethereum.NotFound)
	})

	t.Run("nil request", func(t *testing.T) {
		signer, _, _ := newTestSigner(t)
		_, err := signer.SendTransaction(context.Background(), nil)
		assert.Error(t, err)
	})
}
