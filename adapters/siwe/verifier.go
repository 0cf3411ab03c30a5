package siwe

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/layer-3/rangda/ports"
)

// Verifier checks EIP-191 personal-sign signatures over handshake
// messages. The signer is recovered from the signature and compared
// against the address the message itself names.
type Verifier struct {
	codec *Codec
}

// NewVerifier creates a new signature verifier
func NewVerifier(codec *Codec) *Verifier {
	return &Verifier{codec: codec}
}

var _ ports.SignatureVerifier = (*Verifier)(nil)

// Verify checks the signature over message and that the message
// carries expectedNonce.
func (v *Verifier) Verify(ctx context.Context, message, signature, expectedNonce string) (ports.Verdict, error) {
	fields, err := v.codec.Parse(message)
	if err != nil {
		return ports.VerdictError, fmt.Errorf("failed to parse message: %w", err)
	}

	if fields.Nonce != expectedNonce {
		return ports.VerdictUnknownNonce, nil
	}

	decodedSig, err := hexutil.Decode(signature)
	if err != nil {
		return ports.VerdictInvalidSignature, nil
	}
	if len(decodedSig) != crypto.SignatureLength {
		return ports.VerdictInvalidSignature, nil
	}

	// Wallets produce V as 27/28; crypto.SigToPub wants 0/1.
	sig := make([]byte, crypto.SignatureLength)
	copy(sig, decodedSig)
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	pubKey, err := crypto.SigToPub(personalHash(message), sig)
	if err != nil {
		return ports.VerdictInvalidSignature, nil
	}

	recovered := crypto.PubkeyToAddress(*pubKey)
	if recovered != common.HexToAddress(fields.Address) {
		return ports.VerdictInvalidSignature, nil
	}

	return ports.VerdictValid, nil
}

// personalHash computes the EIP-191 personal-sign digest of msg.
func personalHash(msg string) []byte {
	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(msg), msg)
	return crypto.Keccak256([]byte(prefixed))
}
