package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/stellar/go/keypair"
	"github.com/stellar/go/txnbuild"

	"github.com/vorpalengineering/x402-stellar/stellar"
)

// ErrSigningCancelled is returned by interactive signers when the user
// declines the transaction. Callers must be able to tell a refusal apart
// from a transport failure.
var ErrSigningCancelled = errors.New("signing cancelled by user")

// Signer produces signatures for payment transactions. Only the inner
// payment transaction is ever offered for signing; fee-bump envelopes are
// signed by the facilitator alone.
type Signer interface {
	// PublicKey returns the account id this signer signs for.
	PublicKey() (string, error)

	// SignTransaction signs a transaction for the given network. The
	// call may block on user approval and may fail with
	// ErrSigningCancelled.
	SignTransaction(ctx context.Context, tx *txnbuild.Transaction, networkPassphrase string) (*txnbuild.Transaction, error)
}

// LocalSigner signs synchronously with a raw secret key.
type LocalSigner struct {
	kp *keypair.Full
}

func NewLocalSigner(secret string) (*LocalSigner, error) {
	kp, err := keypair.ParseFull(secret)
	if err != nil {
		return nil, fmt.Errorf("invalid secret key: %w", err)
	}
	return &LocalSigner{kp: kp}, nil
}

func (s *LocalSigner) PublicKey() (string, error) {
	return s.kp.Address(), nil
}

func (s *LocalSigner) SignTransaction(_ context.Context, tx *txnbuild.Transaction, networkPassphrase string) (*txnbuild.Transaction, error) {
	signed, err := tx.Sign(networkPassphrase, s.kp)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}
	return signed, nil
}

// WalletSigner delegates signing to an interactive wallet. Approve
// receives the unsigned transaction XDR and returns the signed XDR once
// the user confirms; it returns ErrSigningCancelled when the user
// declines.
type WalletSigner struct {
	// Address is the wallet's account id.
	Address string

	// Approve asks the wallet to sign. It may block on user interaction.
	Approve func(ctx context.Context, txXDR, networkPassphrase string) (string, error)
}

func (s *WalletSigner) PublicKey() (string, error) {
	if s.Address == "" {
		return "", errors.New("wallet signer has no address")
	}
	return s.Address, nil
}

func (s *WalletSigner) SignTransaction(ctx context.Context, tx *txnbuild.Transaction, networkPassphrase string) (*txnbuild.Transaction, error) {
	if s.Approve == nil {
		return nil, errors.New("wallet signer has no approval callback")
	}

	unsigned, err := tx.Base64()
	if err != nil {
		return nil, fmt.Errorf("failed to encode transaction: %w", err)
	}

	signedXDR, err := s.Approve(ctx, unsigned, networkPassphrase)
	if err != nil {
		// ErrSigningCancelled passes through untouched so callers can
		// distinguish refusal from failure.
		return nil, err
	}

	signed, err := stellar.ParseTransaction(signedXDR)
	if err != nil {
		return nil, fmt.Errorf("wallet returned invalid transaction: %w", err)
	}
	return signed, nil
}
