package blockchain

import (
	"math/big"
	"testing"

	"github.com/Layr-Labs/wallet-sdk-go/pkg/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeWalletCalls(t *testing.T) {
	key := common.HexToAddress("0x2222222222222222222222222222222222222222")

	tests := []struct {
		name   string
		method string
		encode func() ([]byte, error)
		check  func(t *testing.T, args []interface{})
	}{
		{
			name:   "addKey",
			method: "addKey",
			encode: func() ([]byte, error) { return EncodeAddKey(key, types.ManagementKey) },
			check: func(t *testing.T, args []interface{}) {
				assert.Equal(t, key, args[0])
				assert.Equal(t, big.NewInt(1), args[1])
			},
		},
		{
			name:   "addKeys",
			method: "addKeys",
			encode: func() ([]byte, error) { return EncodeAddKeys([]common.Address{key, key}, types.ActionKey) },
			check: func(t *testing.T, args []interface{}) {
				assert.Len(t, args[0], 2)
				assert.Equal(t, []*big.Int{big.NewInt(2), big.NewInt(2)}, args[1])
			},
		},
		{
			name:   "removeKey",
			method: "removeKey",
			encode: func() ([]byte, error) { return EncodeRemoveKey(key, types.ManagementKey) },
			check: func(t *testing.T, args []interface{}) {
				assert.Equal(t, key, args[0])
			},
		},
		{
			name:   "setRequiredSignatures",
			method: "setRequiredSignatures",
			encode: func() ([]byte, error) { return EncodeSetRequiredSignatures(3) },
			check: func(t *testing.T, args []interface{}) {
				assert.Equal(t, big.NewInt(3), args[0])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := tt.encode()
			require.NoError(t, err)

			method, err := WalletABI.MethodById(data[:4])
			require.NoError(t, err)
			assert.Equal(t, tt.method, method.Name)

			args, err := method.Inputs.Unpack(data[4:])
			require.NoError(t, err)
			tt.check(t, args)
		})
	}
}

func TestEncodeAddKeys_Empty(t *testing.T) {
	_, err := EncodeAddKeys(nil, types.ManagementKey)
	assert.Error(t, err)
}

func TestEncodeInitializeWithENS(t *testing.T) {
	key := common.HexToAddress("0x2222222222222222222222222222222222222222")
	ens := common.HexToAddress("0x5555555555555555555555555555555555555555")

	data, err := EncodeInitializeWithENS(key, "alex", "alex.mylogin.eth", ens, big.NewInt(1))
	require.NoError(t, err)

	method, err := WalletABI.MethodById(data[:4])
	require.NoError(t, err)
	assert.Equal(t, "initializeWithENS", method.Name)

	args, err := method.Inputs.Unpack(data[4:])
	require.NoError(t, err)
	assert.Equal(t, [32]byte(types.LabelHash("alex")), args[1])
	assert.Equal(t, "alex.mylogin.eth", args[2])
	assert.Equal(t, [32]byte(types.Namehash("alex.mylogin.eth")), args[3])
}

func TestWalletEvents(t *testing.T) {
	for _, name := range []string{EventKeyAdded, EventKeyRemoved} {
		event, ok := WalletABI.Events[name]
		require.True(t, ok)
		assert.Len(t, event.Inputs, 2)
		assert.True(t, event.Inputs[0].Indexed)
	}
}
