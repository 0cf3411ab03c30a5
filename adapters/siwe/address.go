package siwe

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/layer-3/rangda/ports"
)

// AddressValidator reports whether a string is a well-formed
// 0x-prefixed Ethereum address.
type AddressValidator struct{}

// NewAddressValidator creates a new address validator
func NewAddressValidator() *AddressValidator {
	return &AddressValidator{}
}

var _ ports.AddressValidator = (*AddressValidator)(nil)

// IsWellFormed reports whether address is a valid hex address.
func (AddressValidator) IsWellFormed(address string) bool {
	return common.IsHexAddress(address)
}
