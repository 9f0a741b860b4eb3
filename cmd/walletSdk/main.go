package main

import (
	"fmt"
	"log"
	"os"

	"github.com/Layr-Labs/wallet-sdk-go/pkg/config"
	"github.com/urfave/cli/v2"
)

const (
	envPrivateKey       = "WALLET_SDK_PRIVATE_KEY"
	envFunderPrivateKey = "WALLET_SDK_FUNDER_PRIVATE_KEY"
)

func main() {
	app := &cli.App{
		Name:  "wallet-sdk",
		Usage: "Client for relayer-backed smart contract wallets",
		Description: `Drives smart contract wallets through a relayer.

This tool can:
- Create a counterfactual wallet, wait for it to be funded and deploy it
- Add and remove management keys
- Watch a wallet for key changes`,
		Version: "1.0.0",
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			{
				Name:   "relayer-config",
				Usage:  "Print the relayer's public configuration",
				Action: relayerConfigCommand,
			},
			{
				Name:  "create-wallet",
				Usage: "Create a future wallet, wait for funding and deploy it",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "ens-name",
						Usage:    "ENS name to bind, e.g. alice.mylogin.eth",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "gas-price",
						Usage: "Gas price in wei used by the wallet",
						Value: "",
					},
					&cli.StringFlag{
						Name:    "funder-private-key",
						Usage:   "Hex private key of an account that funds the new wallet",
						EnvVars: []string{envFunderPrivateKey},
					},
					&cli.StringFlag{
						Name:  "fund-amount",
						Usage: "Wei sent to the new wallet when --funder-private-key is set",
					},
				},
				Action: createWalletCommand,
			},
			{
				Name:  "fund-wallet",
				Usage: "Send native currency to a wallet from an externally owned account",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "to",
						Usage:    "Wallet address",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "amount",
						Usage:    "Amount in wei",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "funder-private-key",
						Usage:    "Hex private key of the funding account",
						EnvVars:  []string{envFunderPrivateKey},
						Required: true,
					},
				},
				Action: fundWalletCommand,
			},
			{
				Name:   "add-key",
				Usage:  "Add a management key to a wallet",
				Flags:  keyChangeFlags(),
				Action: addKeyCommand,
			},
			{
				Name:   "remove-key",
				Usage:  "Remove a management key from a wallet",
				Flags:  keyChangeFlags(),
				Action: removeKeyCommand,
			},
			{
				Name:  "watch-keys",
				Usage: "Print KeyAdded and KeyRemoved events of a wallet as new blocks arrive",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "contract",
						Usage:    "Wallet contract address",
						Required: true,
					},
					&cli.Uint64Flag{
						Name:  "from-block",
						Usage: "First block to scan; defaults to the persisted cursor or the chain head",
					},
				},
				Action: watchKeysCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "relayer-url",
			Aliases:  []string{"relayer"},
			Usage:    "Relayer base URL",
			EnvVars:  []string{config.EnvRelayerURL},
			Required: true,
		},
		&cli.StringFlag{
			Name:    "rpc-url",
			Aliases: []string{"rpc"},
			Usage:   "Ethereum RPC endpoint URL",
			Value:   "http://localhost:8545",
			EnvVars: []string{config.EnvRPCURL},
		},
		&cli.Uint64Flag{
			Name:    "chain-id",
			Aliases: []string{"chain"},
			Usage:   fmt.Sprintf("Ethereum chain ID: %s", config.GetSupportedChainIDsString()),
			Value:   uint64(config.ChainId_EthereumAnvil),
			EnvVars: []string{config.EnvChainID},
		},
		&cli.Uint64Flag{
			Name:    "observer-step",
			Usage:   "Blocks scanned per observer poll",
			Value:   config.DefaultObserverStep,
			EnvVars: []string{config.EnvObserverStep},
		},
		&cli.DurationFlag{
			Name:    "observer-poll-interval",
			Usage:   "Delay between observer polls; defaults to the chain's block time",
			EnvVars: []string{config.EnvObserverPollInterval},
		},
		&cli.DurationFlag{
			Name:    "mine-timeout",
			Usage:   "How long to wait for a relayed message to be mined",
			Value:   config.DefaultMineTimeout,
			EnvVars: []string{config.EnvMineTimeout},
		},
		&cli.Uint64Flag{
			Name:    "required-confirmations",
			Usage:   "Confirmations before a message counts as mined",
			Value:   config.DefaultRequiredConfirmations,
			EnvVars: []string{config.EnvRequiredConfirmations},
		},
		&cli.StringFlag{
			Name:    "proxy-init-code",
			Usage:   "Hex creation code of the wallet proxy, required by create-wallet",
			EnvVars: []string{config.EnvProxyInitCode},
		},
		&cli.StringFlag{
			Name:    "persistence",
			Usage:   "State store: memory, badger or redis",
			Value:   string(config.PersistenceType_Memory),
			EnvVars: []string{config.EnvPersistenceType},
		},
		&cli.StringFlag{
			Name:    "badger-data-path",
			Usage:   "Directory of the badger store",
			EnvVars: []string{config.EnvBadgerDataPath},
		},
		&cli.StringFlag{
			Name:    "redis-address",
			Usage:   "Redis host:port",
			EnvVars: []string{config.EnvRedisAddress},
		},
		&cli.StringFlag{
			Name:    "redis-password",
			Usage:   "Redis password",
			EnvVars: []string{config.EnvRedisPassword},
		},
		&cli.IntFlag{
			Name:    "redis-db",
			Usage:   "Redis database number",
			EnvVars: []string{config.EnvRedisDB},
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Usage:   "Enable verbose logging",
			EnvVars: []string{config.EnvVerbose},
		},
	}
}

func keyChangeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "contract",
			Usage:    "Wallet contract address",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "key",
			Usage:    "Address of the key to add or remove",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "private-key",
			Usage:    "Hex private key of an existing management key",
			EnvVars:  []string{envPrivateKey},
			Required: true,
		},
	}
}

func parseSDKConfig(c *cli.Context) *config.SDKConfig {
	chainId := config.ChainId(c.Uint64("chain-id"))
	cfg := config.NewDefaultSDKConfig(c.String("relayer-url"), c.String("rpc-url"), chainId)

	cfg.Debug = c.Bool("verbose")
	cfg.Observer.Step = c.Uint64("observer-step")
	if interval := c.Duration("observer-poll-interval"); interval > 0 {
		cfg.Observer.PollInterval = interval
	}
	cfg.Execution.MineTimeout = c.Duration("mine-timeout")
	cfg.Execution.RequiredConfirmations = c.Uint64("required-confirmations")
	cfg.FutureWallet.ProxyInitCode = c.String("proxy-init-code")
	cfg.Persistence = config.PersistenceConfig{
		Type:           config.PersistenceType(c.String("persistence")),
		BadgerDataPath: c.String("badger-data-path"),
		RedisAddress:   c.String("redis-address"),
		RedisPassword:  c.String("redis-password"),
		RedisDB:        c.Int("redis-db"),
	}
	return cfg
}
