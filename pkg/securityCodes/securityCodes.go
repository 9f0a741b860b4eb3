// Package securityCodes derives the short emoji codes shown on both devices
// while a new key is being connected to a wallet. The user compares them to
// make sure the pending request is their own.
package securityCodes

import (
	"encoding/binary"

	"github.com/Layr-Labs/wallet-sdk-go/pkg/types"
	"golang.org/x/crypto/sha3"
)

const (
	// CodeLength is the number of emojis in a security code.
	CodeLength = 6
	// EmojiCount is the size of the emoji alphabet; every code number indexes it.
	EmojiCount = 1024
)

func digest(address string) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(normalize(address))
	return h.Sum(nil)
}

func normalize(address string) []byte {
	addr, err := types.ParseAddress(address)
	if err != nil {
		return []byte(address)
	}
	return addr.Bytes()
}

func codeAt(hash []byte, i int) int {
	return int(binary.BigEndian.Uint16(hash[2*i:2*i+2])) % EmojiCount
}

// GenerateCode returns the security code of a public key address.
func GenerateCode(address string) []int {
	hash := digest(address)
	code := make([]int, CodeLength)
	for i := range code {
		code[i] = codeAt(hash, i)
	}
	return code
}

// GenerateCodeWithFakes mixes the real code with as many decoys. Shown on the
// device that already owns the wallet, where the user picks the real emojis.
func GenerateCodeWithFakes(address string) []int {
	hash := digest(address)
	order := hash[2*2*CodeLength]

	mixed := make([]int, 0, 2*CodeLength)
	for i := 0; i < CodeLength; i++ {
		actual := codeAt(hash, i)
		fake := codeAt(hash, CodeLength+i)
		if order&(1<<uint(i)) == 0 {
			mixed = append(mixed, actual, fake)
		} else {
			mixed = append(mixed, fake, actual)
		}
	}
	return mixed
}

// IsValidCode reports whether code is exactly the security code of address.
func IsValidCode(code []int, address string) bool {
	expected := GenerateCode(address)
	if len(code) != len(expected) {
		return false
	}
	for i := range expected {
		if code[i] != expected[i] {
			return false
		}
	}
	return true
}

func IsProperCodeNumber(n int) bool {
	return n >= 0 && n < EmojiCount
}

func isProperCode(code []int, length int) bool {
	if len(code) != length {
		return false
	}
	for _, n := range code {
		if !IsProperCodeNumber(n) {
			return false
		}
	}
	return true
}

func IsProperSecurityCode(code []int) bool {
	return isProperCode(code, CodeLength)
}

func IsProperSecurityCodeWithFakes(code []int) bool {
	return isProperCode(code, 2*CodeLength)
}

// NotificationWithCode is a pending connection request ready to be shown.
type NotificationWithCode struct {
	types.Notification
	SecurityCodeWithFakes []int `json:"securityCodeWithFakes"`
}

// AddCodesToNotifications attaches the decoy-mixed code of each requesting key.
func AddCodesToNotifications(notifications []types.Notification) []NotificationWithCode {
	out := make([]NotificationWithCode, 0, len(notifications))
	for _, n := range notifications {
		out = append(out, NotificationWithCode{
			Notification:          n,
			SecurityCodeWithFakes: GenerateCodeWithFakes(n.Key),
		})
	}
	return out
}
