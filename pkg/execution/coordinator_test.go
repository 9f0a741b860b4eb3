package execution

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/Layr-Labs/wallet-sdk-go/pkg/blockchain"
	"github.com/Layr-Labs/wallet-sdk-go/pkg/clients/relayerApi"
	"github.com/Layr-Labs/wallet-sdk-go/pkg/config"
	"github.com/Layr-Labs/wallet-sdk-go/pkg/logger"
	"github.com/Layr-Labs/wallet-sdk-go/pkg/messages"
	"github.com/Layr-Labs/wallet-sdk-go/pkg/sdkErrors"
	"github.com/Layr-Labs/wallet-sdk-go/pkg/testutil"
	"github.com/Layr-Labs/wallet-sdk-go/pkg/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	testWallet  = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	otherWallet = common.HexToAddress("0x00000000000000000000000000000000000000a2")
	newKey      = common.HexToAddress("0x00000000000000000000000000000000000000b1")
)

func testLogger() *zap.Logger {
	l, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	return l
}

type harness struct {
	chain       *testutil.FakeChain
	relayer     *testutil.FakeRelayer
	coordinator *Coordinator
	privateKey  *ecdsa.PrivateKey
}

func newHarness(t *testing.T, cfg *config.ExecutionConfig) *harness {
	t.Helper()
	l := testLogger()

	privateKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	signer := crypto.PubkeyToAddress(privateKey.PublicKey)

	chain := testutil.NewFakeChain()
	chain.DeployWallet(testWallet, map[common.Address]uint64{signer: types.ManagementKey}, 1)
	chain.DeployWallet(otherWallet, map[common.Address]uint64{signer: types.ManagementKey}, 1)

	relayer := testutil.NewFakeRelayer(&types.PublicRelayerConfig{})
	t.Cleanup(relayer.Close)

	api, err := relayerApi.NewRelayerApi(&relayerApi.Config{BaseURL: relayer.URL()}, l)
	require.NoError(t, err)

	if cfg == nil {
		cfg = &config.ExecutionConfig{
			PollInterval:          5 * time.Millisecond,
			MineTimeout:           2 * time.Second,
			RequiredConfirmations: 1,
		}
	}
	coordinator, err := NewCoordinator(cfg, api, blockchain.NewBlockchainService(chain, l), l)
	require.NoError(t, err)
	t.Cleanup(coordinator.Stop)

	return &harness{chain: chain, relayer: relayer, coordinator: coordinator, privateKey: privateKey}
}

func waitCtx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestNewCoordinator_Validation(t *testing.T) {
	l := testLogger()
	api, err := relayerApi.NewRelayerApi(&relayerApi.Config{BaseURL: "http://localhost:1"}, l)
	require.NoError(t, err)
	wallets := blockchain.NewBlockchainService(testutil.NewFakeChain(), l)

	_, err = NewCoordinator(nil, api, wallets, l)
	assert.Error(t, err)
	_, err = NewCoordinator(&config.ExecutionConfig{MineTimeout: time.Second}, api, wallets, l)
	assert.Error(t, err)
	_, err = NewCoordinator(&config.ExecutionConfig{PollInterval: time.Second}, api, wallets, l)
	assert.Error(t, err)
	_, err = NewCoordinator(&config.ExecutionConfig{PollInterval: time.Second, MineTimeout: time.Second}, nil, wallets, l)
	assert.Error(t, err)
}

func TestExecute(t *testing.T) {
	t.Run("fills defaults, nonce and signature", func(t *testing.T) {
		h := newHarness(t, nil)
		h.chain.IncrementNonce(testWallet)
		h.chain.IncrementNonce(testWallet)

		to := common.HexToAddress("0x00000000000000000000000000000000000000c1")
		execution, err := h.coordinator.Execute(context.Background(), types.PartialMessage{
			From:  &testWallet,
			To:    &to,
			Value: big.NewInt(7),
		}, h.privateKey)
		require.NoError(t, err)

		received := h.relayer.Executions()
		require.Len(t, received, 1)
		message := received[0].Message()
		assert.Equal(t, testWallet, message.From)
		assert.Equal(t, to, message.To)
		assert.Equal(t, "7", message.Value.String())
		assert.Equal(t, "2", message.Nonce.String())
		assert.Equal(t, types.DefaultGasPrice.String(), message.GasPrice.String())
		assert.Equal(t, types.DefaultGasLimit.String(), message.GasLimit.String())
		assert.Equal(t, types.OperationCall, message.OperationType)

		messageHash := messages.CalculateMessageHash(message)
		assert.Equal(t, messageHash, execution.MessageHash)

		signer, err := messages.RecoverPersonal(messageHash.Bytes(), received[0].Signature)
		require.NoError(t, err)
		assert.Equal(t, crypto.PubkeyToAddress(h.privateKey.PublicKey), signer)
	})

	t.Run("explicit nonce is kept", func(t *testing.T) {
		h := newHarness(t, nil)
		_, err := h.coordinator.Execute(context.Background(), types.PartialMessage{
			From:  &testWallet,
			To:    &testWallet,
			Nonce: big.NewInt(42),
		}, h.privateKey)
		require.NoError(t, err)
		assert.Equal(t, "42", h.relayer.Executions()[0].Nonce)
	})

	t.Run("missing from address", func(t *testing.T) {
		h := newHarness(t, nil)
		_, err := h.coordinator.Execute(context.Background(), types.PartialMessage{To: &testWallet}, h.privateKey)
		assert.True(t, sdkErrors.IsType(err, sdkErrors.InvalidAddress))
		assert.Empty(t, h.relayer.Executions())
	})
}

func TestWaitToBeMined(t *testing.T) {
	t.Run("resolves once mined", func(t *testing.T) {
		h := newHarness(t, nil)
		execution, err := h.coordinator.Execute(context.Background(), types.PartialMessage{From: &testWallet, To: &testWallet}, h.privateKey)
		require.NoError(t, err)

		status, err := execution.WaitToBeMined(waitCtx(t))
		require.NoError(t, err)
		assert.Equal(t, types.MessageStateSuccess, status.State)
		require.NotNil(t, status.TransactionHash)
		assert.Equal(t, crypto.Keccak256Hash(execution.MessageHash.Bytes()), *status.TransactionHash)
	})

	t.Run("waits for required confirmations", func(t *testing.T) {
		h := newHarness(t, &config.ExecutionConfig{
			PollInterval:          5 * time.Millisecond,
			MineTimeout:           2 * time.Second,
			RequiredConfirmations: 3,
		})
		h.relayer.SetStatusFunc(func(messageHash common.Hash, poll int) *types.MessageStatus {
			status := testutil.MinedStatus(uint64(poll))(messageHash, poll)
			return status
		})

		execution, err := h.coordinator.Execute(context.Background(), types.PartialMessage{From: &testWallet, To: &testWallet}, h.privateKey)
		require.NoError(t, err)

		status, err := execution.WaitToBeMined(waitCtx(t))
		require.NoError(t, err)
		assert.GreaterOrEqual(t, status.Confirmations, uint64(3))
	})

	t.Run("relayer reports failure", func(t *testing.T) {
		h := newHarness(t, nil)
		h.relayer.SetStatusFunc(func(messageHash common.Hash, poll int) *types.MessageStatus {
			return &types.MessageStatus{MessageHash: messageHash, State: types.MessageStateError, Error: "reverted"}
		})

		execution, err := h.coordinator.Execute(context.Background(), types.PartialMessage{From: &testWallet, To: &testWallet}, h.privateKey)
		require.NoError(t, err)

		_, err = execution.WaitToBeMined(waitCtx(t))
		var messageErr *MessageError
		require.ErrorAs(t, err, &messageErr)
		assert.Equal(t, "reverted", messageErr.Reason)
		assert.Equal(t, execution.MessageHash, messageErr.MessageHash)
	})

	t.Run("times out", func(t *testing.T) {
		h := newHarness(t, &config.ExecutionConfig{
			PollInterval:          5 * time.Millisecond,
			MineTimeout:           50 * time.Millisecond,
			RequiredConfirmations: 1,
		})
		h.relayer.SetStatusFunc(testutil.PendingStatus())

		execution, err := h.coordinator.Execute(context.Background(), types.PartialMessage{From: &testWallet, To: &testWallet}, h.privateKey)
		require.NoError(t, err)

		_, err = execution.WaitToBeMined(waitCtx(t))
		assert.True(t, sdkErrors.IsType(err, sdkErrors.TimeoutError))
		assert.Equal(t, "Timeout exceeded", err.Error())
	})

	t.Run("caller context only bounds the wait", func(t *testing.T) {
		h := newHarness(t, nil)
		h.relayer.SetStatusFunc(testutil.PendingStatus())

		execution, err := h.coordinator.Execute(context.Background(), types.PartialMessage{From: &testWallet, To: &testWallet}, h.privateKey)
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err = execution.WaitToBeMined(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)

		h.relayer.SetStatusFunc(testutil.MinedStatus(1))
		_, err = execution.WaitToBeMined(waitCtx(t))
		assert.NoError(t, err)
	})
}

func TestStop(t *testing.T) {
	h := newHarness(t, nil)
	h.relayer.SetStatusFunc(testutil.PendingStatus())

	execution, err := h.coordinator.Execute(context.Background(), types.PartialMessage{From: &testWallet, To: &testWallet}, h.privateKey)
	require.NoError(t, err)

	h.coordinator.Stop()

	_, err = execution.WaitToBeMined(waitCtx(t))
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, IsCanceled(err))

	_, err = h.coordinator.Execute(context.Background(), types.PartialMessage{From: &testWallet, To: &testWallet}, h.privateKey)
	assert.ErrorIs(t, err, context.Canceled)

	// second Stop is a no-op
	h.coordinator.Stop()
}

// stallingRelayer holds Execute until proceed is closed.
type stallingRelayer struct {
	relayerApi.IRelayerApi
	entered chan struct{}
	proceed chan struct{}
}

func (r *stallingRelayer) Execute(ctx context.Context, message *types.SignedMessage) (common.Hash, error) {
	close(r.entered)
	<-r.proceed
	return r.IRelayerApi.Execute(ctx, message)
}

func TestStopDuringSubmit(t *testing.T) {
	h := newHarness(t, nil)
	h.relayer.SetStatusFunc(testutil.PendingStatus())
	l := testLogger()

	api, err := relayerApi.NewRelayerApi(&relayerApi.Config{BaseURL: h.relayer.URL()}, l)
	require.NoError(t, err)
	stalling := &stallingRelayer{IRelayerApi: api, entered: make(chan struct{}), proceed: make(chan struct{})}

	coordinator, err := NewCoordinator(&config.ExecutionConfig{
		PollInterval:          5 * time.Millisecond,
		MineTimeout:           time.Minute,
		RequiredConfirmations: 1,
	}, stalling, blockchain.NewBlockchainService(h.chain, l), l)
	require.NoError(t, err)

	type result struct {
		execution *Execution
		err       error
	}
	results := make(chan result, 1)
	go func() {
		execution, err := coordinator.AddKey(context.Background(), testWallet, newKey, h.privateKey, types.PartialMessage{})
		results <- result{execution, err}
	}()

	<-stalling.entered
	coordinator.Stop()
	close(stalling.proceed)

	res := <-results
	require.NoError(t, res.err)
	assert.Len(t, h.relayer.Executions(), 1)

	_, err = res.execution.WaitToBeMined(waitCtx(t))
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, coordinator.InFlight(testWallet))

	// nothing was left running past Stop
	coordinator.Stop()
}

func TestAuthorisationChanges(t *testing.T) {
	t.Run("add key encodes the wallet call", func(t *testing.T) {
		h := newHarness(t, nil)
		execution, err := h.coordinator.AddKey(context.Background(), testWallet, newKey, h.privateKey, types.PartialMessage{})
		require.NoError(t, err)
		_, err = execution.WaitToBeMined(waitCtx(t))
		require.NoError(t, err)

		expected, err := blockchain.EncodeAddKey(newKey, types.ManagementKey)
		require.NoError(t, err)

		received := h.relayer.Executions()
		require.Len(t, received, 1)
		assert.Equal(t, testWallet, received[0].From)
		assert.Equal(t, testWallet, received[0].To)
		assert.Equal(t, expected, []byte(received[0].Data))
	})

	t.Run("each operation encodes its call", func(t *testing.T) {
		h := newHarness(t, nil)
		keys := []common.Address{newKey, otherWallet}

		addKeys, err := blockchain.EncodeAddKeys(keys, types.ManagementKey)
		require.NoError(t, err)
		removeKey, err := blockchain.EncodeRemoveKey(newKey, types.ManagementKey)
		require.NoError(t, err)
		setRequired, err := blockchain.EncodeSetRequiredSignatures(2)
		require.NoError(t, err)

		steps := []struct {
			name string
			run  func() (*Execution, error)
			data []byte
		}{
			{"addKeys", func() (*Execution, error) {
				return h.coordinator.AddKeys(context.Background(), testWallet, keys, h.privateKey, types.PartialMessage{})
			}, addKeys},
			{"removeKey", func() (*Execution, error) {
				return h.coordinator.RemoveKey(context.Background(), testWallet, newKey, h.privateKey, types.PartialMessage{})
			}, removeKey},
			{"setRequiredSignatures", func() (*Execution, error) {
				return h.coordinator.SetRequiredSignatures(context.Background(), testWallet, 2, h.privateKey, types.PartialMessage{})
			}, setRequired},
		}

		for i, step := range steps {
			execution, err := step.run()
			require.NoError(t, err, step.name)
			_, err = execution.WaitToBeMined(waitCtx(t))
			require.NoError(t, err, step.name)

			received := h.relayer.Executions()
			require.Len(t, received, i+1)
			assert.Equal(t, step.data, []byte(received[i].Data), step.name)
		}
	})

	t.Run("concurrent change on the same wallet is rejected", func(t *testing.T) {
		h := newHarness(t, nil)
		h.relayer.ExecuteGate = make(chan struct{})

		var wg sync.WaitGroup
		var first *Execution
		var firstErr error
		wg.Add(1)
		go func() {
			defer wg.Done()
			first, firstErr = h.coordinator.AddKey(context.Background(), testWallet, newKey, h.privateKey, types.PartialMessage{})
		}()

		require.Eventually(t, func() bool { return h.coordinator.InFlight(testWallet) }, time.Second, time.Millisecond)

		_, err := h.coordinator.RemoveKey(context.Background(), testWallet, newKey, h.privateKey, types.PartialMessage{})
		assert.True(t, sdkErrors.IsType(err, sdkErrors.ConcurrentAuthorisation))
		assert.Equal(t, "Another wallet is subscribed.", err.Error())

		close(h.relayer.ExecuteGate)
		wg.Wait()
		require.NoError(t, firstErr)

		// only the first request reached the relayer
		assert.Len(t, h.relayer.Executions(), 1)

		_, err = first.WaitToBeMined(waitCtx(t))
		require.NoError(t, err)
		require.Eventually(t, func() bool { return !h.coordinator.InFlight(testWallet) }, time.Second, time.Millisecond)

		execution, err := h.coordinator.RemoveKey(context.Background(), testWallet, newKey, h.privateKey, types.PartialMessage{})
		require.NoError(t, err)
		_, err = execution.WaitToBeMined(waitCtx(t))
		require.NoError(t, err)
	})

	t.Run("different wallets do not conflict", func(t *testing.T) {
		h := newHarness(t, nil)
		h.relayer.SetStatusFunc(testutil.PendingStatus())

		_, err := h.coordinator.AddKey(context.Background(), testWallet, newKey, h.privateKey, types.PartialMessage{})
		require.NoError(t, err)
		_, err = h.coordinator.AddKey(context.Background(), otherWallet, newKey, h.privateKey, types.PartialMessage{})
		require.NoError(t, err)

		_, err = h.coordinator.AddKey(context.Background(), testWallet, newKey, h.privateKey, types.PartialMessage{})
		assert.True(t, sdkErrors.IsType(err, sdkErrors.ConcurrentAuthorisation))
	})

	t.Run("failed submission releases the wallet", func(t *testing.T) {
		h := newHarness(t, nil)
		h.relayer.Close()

		_, err := h.coordinator.AddKey(context.Background(), testWallet, newKey, h.privateKey, types.PartialMessage{})
		require.Error(t, err)
		assert.False(t, h.coordinator.InFlight(testWallet))
	})

	t.Run("failed execution releases the wallet", func(t *testing.T) {
		h := newHarness(t, nil)
		h.relayer.SetStatusFunc(func(messageHash common.Hash, poll int) *types.MessageStatus {
			return &types.MessageStatus{MessageHash: messageHash, State: types.MessageStateError, Error: "reverted"}
		})

		execution, err := h.coordinator.AddKey(context.Background(), testWallet, newKey, h.privateKey, types.PartialMessage{})
		require.NoError(t, err)
		_, err = execution.WaitToBeMined(waitCtx(t))
		require.Error(t, err)

		require.Eventually(t, func() bool { return !h.coordinator.InFlight(testWallet) }, time.Second, time.Millisecond)
	})

	t.Run("empty key list is rejected before locking", func(t *testing.T) {
		h := newHarness(t, nil)
		_, err := h.coordinator.AddKeys(context.Background(), testWallet, nil, h.privateKey, types.PartialMessage{})
		require.Error(t, err)
		assert.False(t, h.coordinator.InFlight(testWallet))
	})
}

func TestTransfer(t *testing.T) {
	recipient := common.HexToAddress("0x00000000000000000000000000000000000000d1")
	token := common.HexToAddress("0x00000000000000000000000000000000000000e1")

	t.Run("ether", func(t *testing.T) {
		h := newHarness(t, nil)
		_, err := h.coordinator.Transfer(context.Background(), testWallet, h.privateKey, TransferDetails{
			To:     recipient,
			Amount: big.NewInt(1000),
		})
		require.NoError(t, err)

		received := h.relayer.Executions()
		require.Len(t, received, 1)
		assert.Equal(t, recipient, received[0].To)
		assert.Equal(t, "1000", received[0].Value)
		assert.Empty(t, received[0].Data)
	})

	t.Run("token", func(t *testing.T) {
		h := newHarness(t, nil)
		_, err := h.coordinator.Transfer(context.Background(), testWallet, h.privateKey, TransferDetails{
			To:            recipient,
			Amount:        big.NewInt(5),
			TransferToken: token,
		})
		require.NoError(t, err)

		expected, err := blockchain.EncodeTokenTransfer(recipient, big.NewInt(5))
		require.NoError(t, err)

		received := h.relayer.Executions()
		require.Len(t, received, 1)
		assert.Equal(t, token, received[0].To)
		assert.Equal(t, "0", received[0].Value)
		assert.Equal(t, expected, []byte(received[0].Data))
	})

	t.Run("invalid details", func(t *testing.T) {
		h := newHarness(t, nil)
		_, err := h.coordinator.Transfer(context.Background(), testWallet, h.privateKey, TransferDetails{To: recipient})
		assert.Error(t, err)
		_, err = h.coordinator.Transfer(context.Background(), testWallet, h.privateKey, TransferDetails{Amount: big.NewInt(1)})
		assert.True(t, sdkErrors.IsType(err, sdkErrors.InvalidAddress))
		assert.Empty(t, h.relayer.Executions())
	})
}

func TestWalletReads(t *testing.T) {
	h := newHarness(t, nil)
	h.chain.IncrementNonce(testWallet)
	signer := crypto.PubkeyToAddress(h.privateKey.PublicKey)

	nonce, err := h.coordinator.GetNonce(context.Background(), testWallet)
	require.NoError(t, err)
	assert.Equal(t, int64(1), nonce.Int64())

	required, err := h.coordinator.GetRequiredSignatures(context.Background(), testWallet)
	require.NoError(t, err)
	assert.Equal(t, int64(1), required.Int64())

	exists, err := h.coordinator.KeyExist(context.Background(), testWallet, signer)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = h.coordinator.KeyExist(context.Background(), testWallet, newKey)
	require.NoError(t, err)
	assert.False(t, exists)
}
