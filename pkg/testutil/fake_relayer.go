package testutil

import (
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/Layr-Labs/wallet-sdk-go/pkg/messages"
	"github.com/Layr-Labs/wallet-sdk-go/pkg/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// ReceivedMessage is a POST /wallet/execution body as decoded by the fake relayer.
type ReceivedMessage struct {
	From          common.Address `json:"from"`
	To            common.Address `json:"to"`
	Value         string         `json:"value"`
	Data          hexutil.Bytes  `json:"data"`
	Nonce         string         `json:"nonce"`
	GasPrice      string         `json:"gasPrice"`
	GasLimit      string         `json:"gasLimit"`
	GasToken      common.Address `json:"gasToken"`
	OperationType uint8          `json:"operationType"`
	Signature     hexutil.Bytes  `json:"signature"`
}

// Message converts the received body back into a types.Message.
func (m *ReceivedMessage) Message() types.Message {
	parse := func(s string) *big.Int {
		v, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return big.NewInt(0)
		}
		return v
	}
	return types.Message{
		From:          m.From,
		To:            m.To,
		Value:         parse(m.Value),
		Data:          m.Data,
		Nonce:         parse(m.Nonce),
		GasPrice:      parse(m.GasPrice),
		GasLimit:      parse(m.GasLimit),
		GasToken:      m.GasToken,
		OperationType: m.OperationType,
	}
}

// StatusFunc decides what GET /wallet/execution/{hash} returns on the n-th poll (1-based).
type StatusFunc func(messageHash common.Hash, poll int) *types.MessageStatus

// MinedStatus reports the message as mined with the given confirmations.
func MinedStatus(confirmations uint64) StatusFunc {
	return func(messageHash common.Hash, poll int) *types.MessageStatus {
		txHash := crypto.Keccak256Hash(messageHash.Bytes())
		return &types.MessageStatus{
			MessageHash:     messageHash,
			TransactionHash: &txHash,
			TotalCollected:  1,
			Required:        1,
			State:           types.MessageStateSuccess,
			Confirmations:   confirmations,
		}
	}
}

// PendingStatus never lets the message get mined.
func PendingStatus() StatusFunc {
	return func(messageHash common.Hash, poll int) *types.MessageStatus {
		return &types.MessageStatus{
			MessageHash:    messageHash,
			TotalCollected: 1,
			Required:       1,
			State:          types.MessageStatePending,
		}
	}
}

// FakeRelayer is an httptest server speaking the relayer HTTP API.
type FakeRelayer struct {
	Server *httptest.Server

	mu          sync.Mutex
	config      *types.PublicRelayerConfig
	statusFunc  StatusFunc
	executions  []ReceivedMessage
	deploys     []types.DeployArgs
	connections []common.Address
	polls       map[common.Hash]int

	// ExecuteGate, when non-nil, holds every execution request until it is closed.
	ExecuteGate chan struct{}
	// OnExecute runs after an execution is accepted.
	OnExecute func(message ReceivedMessage, messageHash common.Hash)
	// OnDeploy runs after a deployment is accepted.
	OnDeploy func(args types.DeployArgs)
	// OnConfig runs before the config reply is written.
	OnConfig func()
}

func NewFakeRelayer(config *types.PublicRelayerConfig) *FakeRelayer {
	r := &FakeRelayer{
		config:     config,
		statusFunc: MinedStatus(1),
		polls:      make(map[common.Hash]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/config", r.handleConfig)
	mux.HandleFunc("/wallet/execution", r.handleExecute)
	mux.HandleFunc("/wallet/execution/", r.handleStatus)
	mux.HandleFunc("/wallet/deploy", r.handleDeploy)
	mux.HandleFunc("/authorisation", r.handleConnect)
	mux.HandleFunc("/authorisation/", r.handleAuthorisation)
	r.Server = httptest.NewServer(mux)
	return r
}

func (r *FakeRelayer) URL() string {
	return r.Server.URL
}

func (r *FakeRelayer) Close() {
	r.Server.Close()
}

func (r *FakeRelayer) SetStatusFunc(f StatusFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statusFunc = f
}

func (r *FakeRelayer) Executions() []ReceivedMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ReceivedMessage{}, r.executions...)
}

func (r *FakeRelayer) Deploys() []types.DeployArgs {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]types.DeployArgs{}, r.deploys...)
}

func (r *FakeRelayer) Connections() []common.Address {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]common.Address{}, r.connections...)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (r *FakeRelayer) handleConfig(w http.ResponseWriter, req *http.Request) {
	r.mu.Lock()
	cfg := r.config
	r.mu.Unlock()
	if r.OnConfig != nil {
		r.OnConfig()
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"config": cfg})
}

func (r *FakeRelayer) handleExecute(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if r.ExecuteGate != nil {
		<-r.ExecuteGate
	}

	var msg ReceivedMessage
	if err := json.NewDecoder(req.Body).Decode(&msg); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	messageHash := messages.CalculateMessageHash(msg.Message())

	r.mu.Lock()
	r.executions = append(r.executions, msg)
	onExecute := r.OnExecute
	r.mu.Unlock()

	if onExecute != nil {
		onExecute(msg, messageHash)
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"status": &types.MessageStatus{MessageHash: messageHash, State: types.MessageStateQueued},
	})
}

func (r *FakeRelayer) handleStatus(w http.ResponseWriter, req *http.Request) {
	messageHash := common.HexToHash(strings.TrimPrefix(req.URL.Path, "/wallet/execution/"))

	r.mu.Lock()
	r.polls[messageHash]++
	poll := r.polls[messageHash]
	statusFunc := r.statusFunc
	r.mu.Unlock()

	status := statusFunc(messageHash, poll)
	if status == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "message not found"})
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (r *FakeRelayer) handleDeploy(w http.ResponseWriter, req *http.Request) {
	var args types.DeployArgs
	if err := json.NewDecoder(req.Body).Decode(&args); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	r.mu.Lock()
	r.deploys = append(r.deploys, args)
	onDeploy := r.OnDeploy
	r.mu.Unlock()

	if onDeploy != nil {
		onDeploy(args)
	}
	w.WriteHeader(http.StatusCreated)
}

func (r *FakeRelayer) handleConnect(w http.ResponseWriter, req *http.Request) {
	var body struct {
		WalletContractAddress common.Address `json:"walletContractAddress"`
		Key                   common.Address `json:"key"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	r.mu.Lock()
	r.connections = append(r.connections, body.Key)
	r.mu.Unlock()
	w.WriteHeader(http.StatusCreated)
}

func (r *FakeRelayer) handleAuthorisation(w http.ResponseWriter, req *http.Request) {
	switch req.Method {
	case http.MethodGet:
		r.mu.Lock()
		notifications := make([]types.Notification, 0, len(r.connections))
		for i, key := range r.connections {
			notifications = append(notifications, types.Notification{ID: i + 1, Key: key.Hex()})
		}
		r.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]interface{}{"response": notifications})
	case http.MethodPost:
		var body struct {
			AuthorisationRequest types.CancelAuthorisationRequest `json:"authorisationRequest"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		r.mu.Lock()
		remaining := r.connections[:0]
		for _, key := range r.connections {
			if key != body.AuthorisationRequest.Key {
				remaining = append(remaining, key)
			}
		}
		r.connections = remaining
		r.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}
