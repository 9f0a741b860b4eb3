package testutil

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/Layr-Labs/wallet-sdk-go/pkg/blockchain"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethereumTypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// FakeWallet is the state of a deployed wallet contract on a FakeChain.
type FakeWallet struct {
	Nonce              *big.Int
	RequiredSignatures *big.Int
	Keys               map[common.Address]uint64
}

// FakeChain is an in-memory blockchain.IChainReader. Logs, balances, code and
// wallet contract state are set directly by tests.
type FakeChain struct {
	mu sync.Mutex

	head          uint64
	logs          []ethereumTypes.Log
	code          map[common.Address][]byte
	balances      map[common.Address]*big.Int
	tokenBalances map[common.Address]map[common.Address]*big.Int
	wallets       map[common.Address]*FakeWallet
	transactions  map[common.Hash]*ethereumTypes.Transaction
	accountNonces map[common.Address]uint64

	// ChainId is returned by ChainID and used to recover transaction senders.
	ChainId *big.Int
	// GasPrice is returned by SuggestGasPrice.
	GasPrice *big.Int
	// FilterLogsErr, when set, is returned by FilterLogs.
	FilterLogsErr error
	// BlockNumberErr, when set, is returned by BlockNumber.
	BlockNumberErr error
	// SendTransactionErr, when set, is returned by SendTransaction.
	SendTransactionErr error

	filterLogsCalls  int
	blockNumberCalls int
}

var _ blockchain.IChainReader = (*FakeChain)(nil)

func NewFakeChain() *FakeChain {
	return &FakeChain{
		code:          make(map[common.Address][]byte),
		balances:      make(map[common.Address]*big.Int),
		tokenBalances: make(map[common.Address]map[common.Address]*big.Int),
		wallets:       make(map[common.Address]*FakeWallet),
		transactions:  make(map[common.Hash]*ethereumTypes.Transaction),
		accountNonces: make(map[common.Address]uint64),
		ChainId:       big.NewInt(31337),
		GasPrice:      big.NewInt(1_000_000_000),
	}
}

func (c *FakeChain) SetHead(head uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.head = head
}

func (c *FakeChain) Head() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.head
}

// MineBlocks advances the head by n empty blocks.
func (c *FakeChain) MineBlocks(n uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.head += n
}

// AddLog appends a log as-is. BlockNumber and Index must already be set.
func (c *FakeChain) AddLog(log ethereumTypes.Log) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logs = append(c.logs, log)
}

// EmitWalletEvent mines a new block holding a KeyAdded or KeyRemoved log and
// applies it to the wallet's key set.
func (c *FakeChain) EmitWalletEvent(eventName string, contract, key common.Address, purpose uint64) ethereumTypes.Log {
	event := blockchain.WalletABI.Events[eventName]

	c.mu.Lock()
	defer c.mu.Unlock()

	c.head++
	log := ethereumTypes.Log{
		Address: contract,
		Topics: []common.Hash{
			event.ID,
			common.BytesToHash(key.Bytes()),
			common.BigToHash(new(big.Int).SetUint64(purpose)),
		},
		BlockNumber: c.head,
		TxHash:      crypto.Keccak256Hash(contract.Bytes(), key.Bytes(), new(big.Int).SetUint64(c.head).Bytes()),
		Index:       0,
	}
	c.logs = append(c.logs, log)

	if wallet, ok := c.wallets[contract]; ok {
		switch eventName {
		case blockchain.EventKeyAdded:
			wallet.Keys[key] = purpose
		case blockchain.EventKeyRemoved:
			delete(wallet.Keys, key)
		}
	}
	return log
}

func (c *FakeChain) SetCode(address common.Address, code []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.code[address] = code
}

func (c *FakeChain) SetBalance(address common.Address, balance *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.balances[address] = balance
}

func (c *FakeChain) SetTokenBalance(token, owner common.Address, balance *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tokenBalances[token] == nil {
		c.tokenBalances[token] = make(map[common.Address]*big.Int)
	}
	c.tokenBalances[token][owner] = balance
}

// DeployWallet installs wallet state and some placeholder code at address.
func (c *FakeChain) DeployWallet(address common.Address, keys map[common.Address]uint64, requiredSignatures int64) *FakeWallet {
	c.mu.Lock()
	defer c.mu.Unlock()

	if keys == nil {
		keys = make(map[common.Address]uint64)
	}
	wallet := &FakeWallet{
		Nonce:              big.NewInt(0),
		RequiredSignatures: big.NewInt(requiredSignatures),
		Keys:               keys,
	}
	c.wallets[address] = wallet
	if _, ok := c.code[address]; !ok {
		c.code[address] = []byte{0x60, 0x80}
	}
	return wallet
}

// IncrementNonce bumps lastNonce() of a deployed wallet.
func (c *FakeChain) IncrementNonce(address common.Address) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if wallet, ok := c.wallets[address]; ok {
		wallet.Nonce = new(big.Int).Add(wallet.Nonce, big.NewInt(1))
	}
}

func (c *FakeChain) AddTransaction(tx *ethereumTypes.Transaction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transactions[tx.Hash()] = tx
}

func (c *FakeChain) FilterLogsCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filterLogsCalls
}

func (c *FakeChain) BlockNumberCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.blockNumberCalls
}

func (c *FakeChain) BlockNumber(ctx context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.blockNumberCalls++
	if c.BlockNumberErr != nil {
		return 0, c.BlockNumberErr
	}
	return c.head, nil
}

func (c *FakeChain) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.code[account], nil
}

func (c *FakeChain) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if balance, ok := c.balances[account]; ok {
		return new(big.Int).Set(balance), nil
	}
	return big.NewInt(0), nil
}

func (c *FakeChain) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if msg.To == nil || len(msg.Data) < 4 {
		return nil, fmt.Errorf("invalid call")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if method, err := blockchain.TokenABI.MethodById(msg.Data[:4]); err == nil && method.Name == "balanceOf" {
		args, err := method.Inputs.Unpack(msg.Data[4:])
		if err != nil {
			return nil, err
		}
		owner := args[0].(common.Address)
		balance := big.NewInt(0)
		if b, ok := c.tokenBalances[*msg.To][owner]; ok {
			balance = b
		}
		return method.Outputs.Pack(balance)
	}

	method, err := blockchain.WalletABI.MethodById(msg.Data[:4])
	if err != nil {
		return nil, fmt.Errorf("execution reverted")
	}
	wallet, ok := c.wallets[*msg.To]
	if !ok {
		return nil, fmt.Errorf("execution reverted: no contract at %s", msg.To.Hex())
	}

	switch method.Name {
	case "lastNonce":
		return method.Outputs.Pack(wallet.Nonce)
	case "requiredSignatures":
		return method.Outputs.Pack(wallet.RequiredSignatures)
	case "keyExist":
		args, err := method.Inputs.Unpack(msg.Data[4:])
		if err != nil {
			return nil, err
		}
		_, exists := wallet.Keys[args[0].(common.Address)]
		return method.Outputs.Pack(exists)
	}
	return nil, fmt.Errorf("execution reverted: %s is not callable", method.Name)
}

// FilterLogs matches on block range, addresses and the first topic position only.
func (c *FakeChain) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]ethereumTypes.Log, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filterLogsCalls++

	if c.FilterLogsErr != nil {
		return nil, c.FilterLogsErr
	}

	from := uint64(0)
	if q.FromBlock != nil {
		from = q.FromBlock.Uint64()
	}
	to := c.head
	if q.ToBlock != nil {
		to = q.ToBlock.Uint64()
	}

	var result []ethereumTypes.Log
	for _, log := range c.logs {
		if log.BlockNumber < from || log.BlockNumber > to {
			continue
		}
		if len(q.Addresses) > 0 && !containsAddress(q.Addresses, log.Address) {
			continue
		}
		if len(q.Topics) > 0 && len(q.Topics[0]) > 0 {
			if len(log.Topics) == 0 || !containsHash(q.Topics[0], log.Topics[0]) {
				continue
			}
		}
		result = append(result, log)
	}
	return result, nil
}

// SendTransaction records tx. Signed transactions also bump the sender's
// account nonce and credit their value to the recipient.
func (c *FakeChain) SendTransaction(ctx context.Context, tx *ethereumTypes.Transaction) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.SendTransactionErr != nil {
		return c.SendTransactionErr
	}
	c.transactions[tx.Hash()] = tx

	sender, err := ethereumTypes.Sender(ethereumTypes.LatestSignerForChainID(c.ChainId), tx)
	if err != nil {
		return nil
	}
	if tx.Nonce() != c.accountNonces[sender] {
		return fmt.Errorf("nonce mismatch: expected %d, got %d", c.accountNonces[sender], tx.Nonce())
	}
	c.accountNonces[sender]++
	if tx.To() != nil && tx.Value() != nil && tx.Value().Sign() > 0 {
		balance := c.balances[*tx.To()]
		if balance == nil {
			balance = big.NewInt(0)
		}
		c.balances[*tx.To()] = new(big.Int).Add(balance, tx.Value())
	}
	return nil
}

func (c *FakeChain) ChainID(ctx context.Context) (*big.Int, error) {
	return c.ChainId, nil
}

func (c *FakeChain) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return c.GasPrice, nil
}

func (c *FakeChain) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	if len(msg.Data) == 0 {
		return 21000, nil
	}
	return 100000, nil
}

func (c *FakeChain) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accountNonces[account], nil
}

func (c *FakeChain) TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethereumTypes.Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.transactions[txHash]; !ok {
		return nil, ethereum.NotFound
	}
	return &ethereumTypes.Receipt{TxHash: txHash, Status: ethereumTypes.ReceiptStatusSuccessful, BlockNumber: new(big.Int).SetUint64(c.head)}, nil
}

func (c *FakeChain) TransactionByHash(ctx context.Context, hash common.Hash) (*ethereumTypes.Transaction, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	tx, ok := c.transactions[hash]
	if !ok {
		return nil, false, ethereum.NotFound
	}
	return tx, false, nil
}

func containsAddress(list []common.Address, a common.Address) bool {
	for _, item := range list {
		if item == a {
			return true
		}
	}
	return false
}

func containsHash(list []common.Hash, h common.Hash) bool {
	for _, item := range list {
		if item == h {
			return true
		}
	}
	return false
}
