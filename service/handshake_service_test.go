package service_test

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/rangda/adapters/siwe"
	"github.com/layer-3/rangda/adapters/store"
	"github.com/layer-3/rangda/core"
	"github.com/layer-3/rangda/ports"
	"github.com/layer-3/rangda/service"
)

func testConfig() core.Config {
	return core.Config{
		Domain:                "example.com",
		Statement:             "Sign in",
		Version:               "1",
		PreventReplay:         true,
		MessageValidityWindow: time.Minute,
	}
}

func newService(t *testing.T, nonceStore ports.NonceStore, verifier ports.SignatureVerifier, conf core.Config) *service.HandshakeService {
	t.Helper()

	codec := siwe.NewCodec()
	if verifier == nil {
		verifier = siwe.NewVerifier(codec)
	}

	svc, err := service.NewHandshakeService(nonceStore, verifier, codec, siwe.NewAddressValidator(), conf)
	require.NoError(t, err)

	return svc
}

func signMessage(t *testing.T, key *ecdsa.PrivateKey, message string) string {
	t.Helper()

	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(message), message)
	sig, err := crypto.Sign(crypto.Keccak256([]byte(prefixed)), key)
	require.NoError(t, err)
	sig[crypto.RecoveryIDOffset] += 27

	return hexutil.Encode(sig)
}

// spyVerifier records invocations and returns a fixed verdict.
type spyVerifier struct {
	calls   atomic.Int64
	verdict ports.Verdict
	err     error
}

func (v *spyVerifier) Verify(ctx context.Context, message, signature, expectedNonce string) (ports.Verdict, error) {
	v.calls.Add(1)
	return v.verdict, v.err
}

// failingStore rejects every operation.
type failingStore struct{}

var errStoreDown = errors.New("store down")

func (failingStore) Create(ctx context.Context, token string, expiresAt time.Time) error {
	return errStoreDown
}

func (failingStore) FindUnexpired(ctx context.Context, token string, now time.Time) (*core.NonceRecord, error) {
	return nil, errStoreDown
}

func (failingStore) Consume(ctx context.Context, token string, now time.Time) (bool, error) {
	return false, errStoreDown
}

func (failingStore) DeleteIfPresent(ctx context.Context, token string) (bool, error) {
	return false, errStoreDown
}

func (failingStore) DeleteAllExpired(ctx context.Context, now time.Time) (int, error) {
	return 0, errStoreDown
}

func TestNewHandshakeServiceRejectsInvalidConfig(t *testing.T) {
	conf := testConfig()
	conf.Domain = ""

	_, err := service.NewHandshakeService(
		store.NewMemoryStore(), &spyVerifier{}, siwe.NewCodec(), siwe.NewAddressValidator(), conf)
	require.ErrorIs(t, err, core.ErrInvalidConfig)
}

func TestIssueChallengeMinimal(t *testing.T) {
	ctx := context.Background()
	nonceStore := store.NewMemoryStore()
	svc := newService(t, nonceStore, nil, testConfig())

	before := time.Now()
	resp, err := svc.IssueChallenge(ctx, core.MinimalChallengeRequest{})
	require.NoError(t, err)

	assert.Empty(t, resp.Message)
	assert.Len(t, resp.Nonce, 64) // 32 random bytes, hex-encoded
	assert.WithinDuration(t, before.Add(time.Minute), resp.ExpiresAt, 5*time.Second)

	// Replay prevention is on, so the guard record must exist.
	rec, err := nonceStore.FindUnexpired(ctx, resp.Nonce, time.Now())
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, resp.ExpiresAt, rec.ExpiresAt)
}

func TestIssueChallengeMinimalSkipsStoreWhenReplayOff(t *testing.T) {
	conf := testConfig()
	conf.PreventReplay = false

	// A dead store proves the issuer never touches it.
	svc := newService(t, failingStore{}, nil, conf)

	resp, err := svc.IssueChallenge(context.Background(), core.MinimalChallengeRequest{})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Nonce)
}

func TestIssueChallengeFullComposesMessage(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, store.NewMemoryStore(), nil, testConfig())

	resp, err := svc.IssueChallenge(ctx, core.FullChallengeRequest{
		Address:     "0x70997970C51812dc3A010C7d01b50e0d17dc79C8",
		CallbackURI: "https://example.com/callback",
		ChainID:     137,
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Message)

	// The composed message must echo the configured binding fields.
	fields, err := siwe.NewCodec().Parse(resp.Message)
	require.NoError(t, err)
	assert.Equal(t, "example.com", fields.Domain)
	assert.Equal(t, "Sign in", fields.Statement)
	assert.Equal(t, "1", fields.Version)
	assert.Equal(t, "0x70997970C51812dc3A010C7d01b50e0d17dc79C8", fields.Address)
	assert.Equal(t, "https://example.com/callback", fields.URI)
	assert.Equal(t, int64(137), fields.ChainID)
	assert.Equal(t, resp.Nonce, fields.Nonce)
}

func TestIssueChallengeFullValidatesRequest(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, store.NewMemoryStore(), nil, testConfig())

	valid := core.FullChallengeRequest{
		Address:     "0x70997970C51812dc3A010C7d01b50e0d17dc79C8",
		CallbackURI: "https://example.com/callback",
		ChainID:     1,
	}

	tests := []struct {
		name   string
		mutate func(*core.FullChallengeRequest)
	}{
		{"zero chain id", func(r *core.FullChallengeRequest) { r.ChainID = 0 }},
		{"negative chain id", func(r *core.FullChallengeRequest) { r.ChainID = -5 }},
		{"malformed address", func(r *core.FullChallengeRequest) { r.Address = "0x1234" }},
		{"empty callback uri", func(r *core.FullChallengeRequest) { r.CallbackURI = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)

			_, err := svc.IssueChallenge(ctx, req)
			require.ErrorIs(t, err, core.ErrInvalidRequest)
		})
	}
}

func TestIssueChallengeStorageFailureAbortsIssuance(t *testing.T) {
	svc := newService(t, failingStore{}, nil, testConfig())

	resp, err := svc.IssueChallenge(context.Background(), core.MinimalChallengeRequest{})
	require.ErrorIs(t, err, core.ErrStorageUnavailable)
	assert.Nil(t, resp)
}

// issueAndSign runs the issuance path and signs the returned message,
// yielding a valid proof for the service under test.
func issueAndSign(t *testing.T, svc *service.HandshakeService, key *ecdsa.PrivateKey) core.ProofEnvelope {
	t.Helper()

	address := crypto.PubkeyToAddress(key.PublicKey).Hex()
	resp, err := svc.IssueChallenge(context.Background(), core.FullChallengeRequest{
		Address:     address,
		CallbackURI: "https://example.com/callback",
		ChainID:     1,
	})
	require.NoError(t, err)

	return core.ProofEnvelope{
		Message:   resp.Message,
		Signature: signMessage(t, key, resp.Message),
		Nonce:     resp.Nonce,
		Address:   address,
	}
}

func TestValidateHandshakeAcceptsThenRejectsReplay(t *testing.T) {
	ctx := context.Background()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	nonceStore := store.NewMemoryStore()
	svc := newService(t, nonceStore, nil, testConfig())

	proof := issueAndSign(t, svc, key)

	address, err := svc.ValidateHandshake(ctx, proof)
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey).Hex(), address)

	// Consumption is deletion: the record is gone.
	rec, err := nonceStore.FindUnexpired(ctx, proof.Nonce, time.Now())
	require.NoError(t, err)
	assert.Nil(t, rec)

	// The identical proof presents as expired on the second attempt.
	_, err = svc.ValidateHandshake(ctx, proof)
	require.ErrorIs(t, err, core.ErrMessageExpired)
}

func TestValidateHandshakeBindingMismatchShortCircuits(t *testing.T) {
	ctx := context.Background()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	issuing := newService(t, store.NewMemoryStore(), nil, testConfig())

	tests := []struct {
		name    string
		mutate  func(*core.Config)
		wantErr error
	}{
		{"domain", func(c *core.Config) { c.Domain = "other.com" }, core.ErrInvalidDomain},
		{"statement", func(c *core.Config) { c.Statement = "Other statement" }, core.ErrInvalidStatement},
		{"version", func(c *core.Config) { c.Version = "2" }, core.ErrInvalidVersion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proof := issueAndSign(t, issuing, key)

			// Validate against a service configured differently from the
			// issuer, with a spy proving the verifier is never reached.
			conf := testConfig()
			tt.mutate(&conf)
			spy := &spyVerifier{verdict: ports.VerdictValid}
			validating := newService(t, store.NewMemoryStore(), spy, conf)

			_, err := validating.ValidateHandshake(ctx, proof)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, int64(0), spy.calls.Load())
		})
	}
}

func TestValidateHandshakeInvalidSignature(t *testing.T) {
	ctx := context.Background()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	otherKey, err := crypto.GenerateKey()
	require.NoError(t, err)

	svc := newService(t, store.NewMemoryStore(), nil, testConfig())

	proof := issueAndSign(t, svc, key)
	proof.Signature = signMessage(t, otherKey, proof.Message)

	_, err = svc.ValidateHandshake(ctx, proof)
	require.ErrorIs(t, err, core.ErrInvalidSignature)
}

func TestValidateHandshakeClaimedAddressMismatch(t *testing.T) {
	ctx := context.Background()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	svc := newService(t, store.NewMemoryStore(), nil, testConfig())

	proof := issueAndSign(t, svc, key)
	proof.Address = "0x0000000000000000000000000000000000000001"

	_, err = svc.ValidateHandshake(ctx, proof)
	require.ErrorIs(t, err, core.ErrInvalidSignature)
}

func TestValidateHandshakeVerifierOutcomes(t *testing.T) {
	ctx := context.Background()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	issuing := newService(t, store.NewMemoryStore(), nil, testConfig())

	tests := []struct {
		name    string
		verdict ports.Verdict
		err     error
		wantErr error
	}{
		{"invalid signature", ports.VerdictInvalidSignature, nil, core.ErrInvalidSignature},
		{"unknown nonce", ports.VerdictUnknownNonce, nil, core.ErrMessageExpired},
		{"verifier error", ports.VerdictError, errors.New("boom"), core.ErrUnknownError},
		{"verifier error without cause", ports.VerdictError, nil, core.ErrUnknownError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proof := issueAndSign(t, issuing, key)

			spy := &spyVerifier{verdict: tt.verdict, err: tt.err}
			validating := newService(t, store.NewMemoryStore(), spy, testConfig())

			_, err := validating.ValidateHandshake(ctx, proof)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, int64(1), spy.calls.Load())
		})
	}
}

func TestValidateHandshakeReplayOffSkipsStore(t *testing.T) {
	ctx := context.Background()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	conf := testConfig()
	conf.PreventReplay = false

	issuing := newService(t, store.NewMemoryStore(), nil, conf)
	proof := issueAndSign(t, issuing, key)

	// A dead store proves validation never touches it, and the same
	// proof verifies any number of times.
	validating := newService(t, failingStore{}, nil, conf)

	for i := 0; i < 3; i++ {
		address, err := validating.ValidateHandshake(ctx, proof)
		require.NoError(t, err)
		assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey).Hex(), address)
	}
}

func TestValidateHandshakeStorageFailure(t *testing.T) {
	ctx := context.Background()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	issuing := newService(t, store.NewMemoryStore(), nil, testConfig())
	proof := issueAndSign(t, issuing, key)

	validating := newService(t, failingStore{}, nil, testConfig())

	_, err = validating.ValidateHandshake(ctx, proof)
	require.ErrorIs(t, err, core.ErrStorageUnavailable)
}

func TestValidateHandshakeConcurrentIdenticalProofs(t *testing.T) {
	ctx := context.Background()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	svc := newService(t, store.NewMemoryStore(), nil, testConfig())
	proof := issueAndSign(t, svc, key)

	const n = 16
	var successes, replays atomic.Int64
	var wg sync.WaitGroup

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := svc.ValidateHandshake(ctx, proof)
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, core.ErrMessageExpired):
				replays.Add(1)
			default:
				assert.Fail(t, "unexpected outcome", "err: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), successes.Load())
	assert.Equal(t, int64(n-1), replays.Load())
}
