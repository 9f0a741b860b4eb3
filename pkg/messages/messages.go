package messages

import (
	"bytes"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"sort"

	"github.com/Layr-Labs/wallet-sdk-go/pkg/types"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

func uint256Bytes(v *big.Int) []byte {
	if v == nil {
		return make([]byte, 32)
	}
	return common.LeftPadBytes(v.Bytes(), 32)
}

// CalculateMessageHash is keccak256 over the tightly packed message fields, matching the
// wallet contract's executeSigned hashing.
func CalculateMessageHash(m types.Message) common.Hash {
	packed := bytes.Join([][]byte{
		m.From.Bytes(),
		m.To.Bytes(),
		uint256Bytes(m.Value),
		crypto.Keccak256(m.Data),
		uint256Bytes(m.Nonce),
		uint256Bytes(m.GasPrice),
		m.GasToken.Bytes(),
		uint256Bytes(m.GasLimit),
		{m.OperationType},
	}, nil)
	return crypto.Keccak256Hash(packed)
}

// SignPersonal produces an EIP-191 signature over data with v in {27, 28}.
func SignPersonal(data []byte, privateKey *ecdsa.PrivateKey) ([]byte, error) {
	sig, err := crypto.Sign(accounts.TextHash(data), privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign message: %w", err)
	}
	sig[crypto.RecoveryIDOffset] += 27
	return sig, nil
}

// RecoverPersonal returns the address that produced an EIP-191 signature over data.
func RecoverPersonal(data []byte, signature []byte) (common.Address, error) {
	if len(signature) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("invalid signature length: %d", len(signature))
	}
	sig := append([]byte{}, signature...)
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}
	pub, err := crypto.SigToPub(accounts.TextHash(data), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to recover signer: %w", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

func CalculateMessageSignature(m types.Message, privateKey *ecdsa.PrivateKey) ([]byte, error) {
	hash := CalculateMessageHash(m)
	return SignPersonal(hash.Bytes(), privateKey)
}

// CreateSignedMessage signs m with privateKey.
func CreateSignedMessage(m types.Message, privateKey *ecdsa.PrivateKey) (*types.SignedMessage, error) {
	sig, err := CalculateMessageSignature(m, privateKey)
	if err != nil {
		return nil, err
	}
	return &types.SignedMessage{Message: m, Signature: sig}, nil
}

// CalculateMessageSignatures signs m with every key and returns the pairs sorted by signer address.
func CalculateMessageSignatures(m types.Message, privateKeys []*ecdsa.PrivateKey) ([]types.SignatureKeyPair, error) {
	pairs := make([]types.SignatureKeyPair, 0, len(privateKeys))
	for _, pk := range privateKeys {
		sig, err := CalculateMessageSignature(m, pk)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, types.SignatureKeyPair{Key: crypto.PubkeyToAddress(pk.PublicKey), Signature: sig})
	}
	SortSignatureKeyPairsByKey(pairs)
	return pairs, nil
}

// SortSignatureKeyPairsByKey orders pairs by signer address ascending, in place.
func SortSignatureKeyPairsByKey(pairs []types.SignatureKeyPair) {
	sort.SliceStable(pairs, func(i, j int) bool {
		return bytes.Compare(pairs[i].Key.Bytes(), pairs[j].Key.Bytes()) < 0
	})
}

// ConcatenateSignatures sorts pairs by signer and joins their signatures.
func ConcatenateSignatures(pairs []types.SignatureKeyPair) []byte {
	sorted := append([]types.SignatureKeyPair{}, pairs...)
	SortSignatureKeyPairsByKey(sorted)
	out := make([]byte, 0, len(sorted)*crypto.SignatureLength)
	for _, p := range sorted {
		out = append(out, p.Signature...)
	}
	return out
}

// IsComplete reports whether pairs carry at least required distinct signers.
func IsComplete(pairs []types.SignatureKeyPair, required int) bool {
	seen := make(map[common.Address]struct{}, len(pairs))
	for _, p := range pairs {
		seen[p.Key] = struct{}{}
	}
	return required > 0 && len(seen) >= required
}

func hashGetAuthorisationRequest(contractAddress common.Address) []byte {
	return crypto.Keccak256(contractAddress.Bytes())
}

func hashCancelAuthorisationRequest(contractAddress, key common.Address) []byte {
	return crypto.Keccak256(contractAddress.Bytes(), key.Bytes())
}

// SignGetAuthorisationRequest authenticates a pending-authorisations query as a wallet key holder.
func SignGetAuthorisationRequest(contractAddress common.Address, privateKey *ecdsa.PrivateKey) (*types.GetAuthorisationRequest, error) {
	sig, err := SignPersonal(hashGetAuthorisationRequest(contractAddress), privateKey)
	if err != nil {
		return nil, err
	}
	return &types.GetAuthorisationRequest{ContractAddress: contractAddress, Signature: hexutil.Encode(sig)}, nil
}

// SignCancelAuthorisationRequest is signed by the device that requested the connection.
func SignCancelAuthorisationRequest(contractAddress common.Address, privateKey *ecdsa.PrivateKey) (*types.CancelAuthorisationRequest, error) {
	key := crypto.PubkeyToAddress(privateKey.PublicKey)
	sig, err := SignPersonal(hashCancelAuthorisationRequest(contractAddress, key), privateKey)
	if err != nil {
		return nil, err
	}
	return &types.CancelAuthorisationRequest{ContractAddress: contractAddress, Key: key, Signature: hexutil.Encode(sig)}, nil
}

// RecoverFromCancelAuthorisationRequest returns the signer of req.
func RecoverFromCancelAuthorisationRequest(req *types.CancelAuthorisationRequest) (common.Address, error) {
	sig, err := hexutil.Decode(req.Signature)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to decode signature: %w", err)
	}
	return RecoverPersonal(hashCancelAuthorisationRequest(req.ContractAddress, req.Key), sig)
}
