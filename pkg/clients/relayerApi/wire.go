package relayerApi

import (
	"math/big"

	"github.com/Layr-Labs/wallet-sdk-go/pkg/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// signedMessageJSON is the body of POST /wallet/execution. Quantities travel
// as decimal strings.
type signedMessageJSON struct {
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

func decimal(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func toSignedMessageJSON(m *types.SignedMessage) *signedMessageJSON {
	data := m.Data
	if data == nil {
		data = []byte{}
	}
	return &signedMessageJSON{
		From:          m.From,
		To:            m.To,
		Value:         decimal(m.Value),
		Data:          data,
		Nonce:         decimal(m.Nonce),
		GasPrice:      decimal(m.GasPrice),
		GasLimit:      decimal(m.GasLimit),
		GasToken:      m.GasToken,
		OperationType: m.OperationType,
		Signature:     m.Signature,
	}
}

type statusResponse struct {
	Status *types.MessageStatus `json:"status"`
}

type configResponse struct {
	Config *types.PublicRelayerConfig `json:"config"`
}

type connectRequest struct {
	WalletContractAddress common.Address `json:"walletContractAddress"`
	Key                   common.Address `json:"key"`
}

type denyRequest struct {
	AuthorisationRequest *types.CancelAuthorisationRequest `json:"authorisationRequest"`
}

type pendingAuthorisationsResponse struct {
	Response []types.Notification `json:"response"`
}

type errorResponse struct {
	Error string `json:"error"`
}
