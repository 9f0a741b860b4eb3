package main

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"strings"
	"syscall"

	EVMChainPoller "github.com/Layr-Labs/chain-indexer/pkg/chainPollers/evm"
	"github.com/Layr-Labs/chain-indexer/pkg/chainPollers/persistence/memory"
	"github.com/Layr-Labs/chain-indexer/pkg/clients/ethereum"
	chainIndexerConfig "github.com/Layr-Labs/chain-indexer/pkg/config"
	"github.com/Layr-Labs/chain-indexer/pkg/contractStore/inMemoryContractStore"
	"github.com/Layr-Labs/chain-indexer/pkg/transactionLogParser"
	"github.com/Layr-Labs/wallet-sdk-go/pkg/blockHandler"
	"github.com/Layr-Labs/wallet-sdk-go/pkg/blockchain"
	"github.com/Layr-Labs/wallet-sdk-go/pkg/blockchainObserver"
	"github.com/Layr-Labs/wallet-sdk-go/pkg/config"
	"github.com/Layr-Labs/wallet-sdk-go/pkg/logger"
	"github.com/Layr-Labs/wallet-sdk-go/pkg/sdk"
	"github.com/Layr-Labs/wallet-sdk-go/pkg/transactionSigner"
	"github.com/Layr-Labs/wallet-sdk-go/pkg/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

type runtime struct {
	sdk       *sdk.WalletSDK
	ethClient *ethereum.EthereumClient
	l1Client  *ethclient.Client
	config    *config.SDKConfig
	logger    *zap.Logger
}

func newRuntime(c *cli.Context) (*runtime, error) {
	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: c.Bool("verbose")})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	cfg := parseSDKConfig(c)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	ethClient := ethereum.NewEthereumClient(&ethereum.EthereumClientConfig{
		BaseUrl:   cfg.RpcUrl,
		BlockType: ethereum.BlockType_Latest,
	}, l)

	l1Client, err := ethClient.GetEthereumContractCaller()
	if err != nil {
		return nil, fmt.Errorf("failed to get Ethereum contract caller: %w", err)
	}

	walletSdk, err := sdk.New(cfg, l1Client, l)
	if err != nil {
		return nil, err
	}

	return &runtime{sdk: walletSdk, ethClient: ethClient, l1Client: l1Client, config: cfg, logger: l}, nil
}

func (r *runtime) close() {
	if err := r.sdk.Stop(); err != nil {
		r.logger.Sugar().Warnw("Failed to stop SDK", "error", err)
	}
	_ = r.logger.Sync()
}

func signalContext(c *cli.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
}

func parsePrivateKey(value string) (*ecdsa.PrivateKey, error) {
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(value, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return privateKey, nil
}

func parseWei(name, value string) (*big.Int, error) {
	parsed, ok := new(big.Int).SetString(value, 10)
	if !ok || parsed.Sign() <= 0 {
		return nil, fmt.Errorf("invalid %s %q", name, value)
	}
	return parsed, nil
}

func (r *runtime) fund(ctx context.Context, funderKey string, to common.Address, amount *big.Int) error {
	signer, err := transactionSigner.NewTransactionSigner(ctx, &transactionSigner.SignerConfig{PrivateKey: funderKey}, r.l1Client, r.logger)
	if err != nil {
		return err
	}
	receipt, err := signer.SendValue(ctx, to, amount)
	if err != nil {
		return err
	}
	fmt.Printf("Sent %s wei from %s in transaction %s\n", amount.String(), signer.GetFromAddress().Hex(), receipt.TxHash.Hex())
	return nil
}

func fundWalletCommand(c *cli.Context) error {
	to, err := types.ParseAddress(c.String("to"))
	if err != nil {
		return err
	}
	amount, err := parseWei("amount", c.String("amount"))
	if err != nil {
		return err
	}

	r, err := newRuntime(c)
	if err != nil {
		return err
	}
	defer r.close()

	ctx, cancel := signalContext(c)
	defer cancel()

	return r.fund(ctx, c.String("funder-private-key"), to, amount)
}

func relayerConfigCommand(c *cli.Context) error {
	r, err := newRuntime(c)
	if err != nil {
		return err
	}
	defer r.close()

	relayerConfig, err := r.sdk.FetchRelayerConfig(c.Context)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(relayerConfig, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode relayer config: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

func createWalletCommand(c *cli.Context) error {
	var gasPrice, fundAmount *big.Int
	if value := c.String("gas-price"); value != "" {
		parsed, err := parseWei("gas price", value)
		if err != nil {
			return err
		}
		gasPrice = parsed
	}
	funderKey := c.String("funder-private-key")
	if funderKey != "" {
		parsed, err := parseWei("fund amount", c.String("fund-amount"))
		if err != nil {
			return err
		}
		fundAmount = parsed
	}

	r, err := newRuntime(c)
	if err != nil {
		return err
	}
	defer r.close()

	ctx, cancel := signalContext(c)
	defer cancel()

	wallet, err := r.sdk.CreateFutureWallet(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Wallet address: %s\n", wallet.ContractAddress.Hex())
	fmt.Printf("Private key:    %s\n", hexutil.Encode(crypto.FromECDSA(wallet.PrivateKey)))
	if fundAmount != nil {
		if err := r.fund(ctx, funderKey, wallet.ContractAddress, fundAmount); err != nil {
			return err
		}
	}
	fmt.Println("Waiting for funding...")

	funding, err := wallet.WaitForBalance(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Funded with %s of token %s\n", funding.Amount.String(), funding.TokenAddress.Hex())

	ensName := c.String("ens-name")
	if err := wallet.Deploy(ctx, ensName, gasPrice); err != nil {
		return err
	}
	fmt.Printf("Deployed %s as %s\n", wallet.ContractAddress.Hex(), ensName)
	return nil
}

func addKeyCommand(c *cli.Context) error {
	return changeKey(c, func(ctx context.Context, r *runtime, contract, key common.Address, privateKey *ecdsa.PrivateKey) (string, error) {
		execution, err := r.sdk.AddKey(ctx, contract, key, privateKey, types.PartialMessage{})
		if err != nil {
			return "", err
		}
		return waitForTransaction(ctx, execution.WaitToBeMined)
	})
}

func removeKeyCommand(c *cli.Context) error {
	return changeKey(c, func(ctx context.Context, r *runtime, contract, key common.Address, privateKey *ecdsa.PrivateKey) (string, error) {
		execution, err := r.sdk.RemoveKey(ctx, contract, key, privateKey, types.PartialMessage{})
		if err != nil {
			return "", err
		}
		return waitForTransaction(ctx, execution.WaitToBeMined)
	})
}

type keyChange func(ctx context.Context, r *runtime, contract, key common.Address, privateKey *ecdsa.PrivateKey) (string, error)

func changeKey(c *cli.Context, change keyChange) error {
	contract, err := types.ParseAddress(c.String("contract"))
	if err != nil {
		return err
	}
	key, err := types.ParseAddress(c.String("key"))
	if err != nil {
		return err
	}
	privateKey, err := parsePrivateKey(c.String("private-key"))
	if err != nil {
		return err
	}

	r, err := newRuntime(c)
	if err != nil {
		return err
	}
	defer r.close()

	ctx, cancel := signalContext(c)
	defer cancel()

	txHash, err := change(ctx, r, contract, key, privateKey)
	if err != nil {
		return err
	}
	fmt.Printf("Mined in transaction %s\n", txHash)
	return nil
}

func waitForTransaction(ctx context.Context, wait func(context.Context) (*types.MessageStatus, error)) (string, error) {
	status, err := wait(ctx)
	if err != nil {
		return "", err
	}
	if status.TransactionHash == nil {
		return "", fmt.Errorf("message %s mined without a transaction hash", status.MessageHash.Hex())
	}
	return status.TransactionHash.Hex(), nil
}

func watchKeysCommand(c *cli.Context) error {
	contract, err := types.ParseAddress(c.String("contract"))
	if err != nil {
		return err
	}

	r, err := newRuntime(c)
	if err != nil {
		return err
	}
	defer r.close()

	ctx, cancel := signalContext(c)
	defer cancel()

	observer := r.sdk.Observer()
	if c.IsSet("from-block") {
		if err := observer.Configure(c.Uint64("from-block"), r.config.Observer.Step); err != nil {
			return err
		}
	}

	for _, eventName := range []string{blockchain.EventKeyAdded, blockchain.EventKeyRemoved} {
		name := eventName
		_, err := r.sdk.Subscribe(name, blockchainObserver.EventFilter{ContractAddress: contract.Hex()}, func(payload blockchainObserver.EventPayload) {
			fmt.Printf("%s key=%s purpose=%d\n", name, payload.Key, payload.Purpose)
		})
		if err != nil {
			return err
		}
	}

	bh := blockHandler.NewBlockHandler(r.logger)

	// logs are read by the observer, the poller only reports new blocks
	cs := inMemoryContractStore.NewInMemoryContractStore(nil, r.logger)
	logParser := transactionLogParser.NewTransactionLogParser(cs, r.logger)
	pollerStore := memory.NewInMemoryChainPollerPersistence()

	poller, err := EVMChainPoller.NewEVMChainPoller(
		r.ethClient,
		logParser,
		&EVMChainPoller.EVMChainPollerConfig{
			ChainId:         chainIndexerConfig.ChainId(r.config.ChainID),
			PollingInterval: r.config.Observer.PollInterval,
		},
		pollerStore, bh, r.logger)
	if err != nil {
		return fmt.Errorf("failed to create EVM chain poller: %w", err)
	}

	if err := observer.Initialize(ctx); err != nil {
		return err
	}

	if err := poller.Start(ctx); err != nil {
		return fmt.Errorf("failed to start chain poller: %w", err)
	}

	r.logger.Sugar().Infow("Watching wallet keys", "contract", contract.Hex(), "cursor", observer.Cursor())
	fmt.Println("Press Ctrl+C to stop")

	observer.ListenToBlocks(ctx, bh)
	return nil
}
