package stellar

import (
	"fmt"
	"math/big"
	"strconv"

	"github.com/stellar/go/amount"
	"github.com/stellar/go/keypair"
	"github.com/stellar/go/strkey"
	"github.com/stellar/go/txnbuild"
	"github.com/stellar/go/xdr"

	"github.com/vorpalengineering/x402-stellar/stellar/sorobanrpc"
	"github.com/vorpalengineering/x402-stellar/types"
)

// PaymentDetails is the single payment a submitted transaction must carry:
// either a native Payment operation or a contract transfer(from, to,
// amount) invocation.
type PaymentDetails struct {
	Source      string
	Destination string
	Asset       string
	Amount      *big.Int
}

// ParseTransaction decodes a base64 transaction envelope. Fee-bump
// envelopes are rejected: callers submit plain transactions, the
// facilitator adds its own fee-bump wrapper at settlement time.
func ParseTransaction(txXDR string) (*txnbuild.Transaction, error) {
	generic, err := txnbuild.TransactionFromXDR(txXDR)
	if err != nil {
		return nil, fmt.Errorf("invalid transaction XDR: %w", err)
	}

	tx, ok := generic.Transaction()
	if !ok {
		return nil, fmt.Errorf("fee-bump envelopes are not accepted as payment payloads")
	}
	return tx, nil
}

// HashHex computes the hex transaction hash under the given network
// passphrase.
func HashHex(tx *txnbuild.Transaction, passphrase string) (string, error) {
	hash, err := tx.HashHex(passphrase)
	if err != nil {
		return "", fmt.Errorf("failed to hash transaction: %w", err)
	}
	return hash, nil
}

// ExtractPayment pulls the payment details out of a parsed transaction.
// The transaction must contain exactly one payment-style operation.
func ExtractPayment(tx *txnbuild.Transaction) (*PaymentDetails, error) {
	ops := tx.Operations()
	if len(ops) != 1 {
		return nil, fmt.Errorf("expected exactly one operation, got %d", len(ops))
	}

	source := tx.SourceAccount().AccountID

	switch op := ops[0].(type) {
	case *txnbuild.Payment:
		if op.Asset == nil || !op.Asset.IsNative() {
			return nil, fmt.Errorf("only native-asset payments are supported in payment operations")
		}
		stroops, err := amount.ParseInt64(op.Amount)
		if err != nil {
			return nil, fmt.Errorf("invalid payment amount: %w", err)
		}
		if op.SourceAccount != "" {
			source = op.SourceAccount
		}
		return &PaymentDetails{
			Source:      source,
			Destination: op.Destination,
			Asset:       types.AssetNative,
			Amount:      big.NewInt(stroops),
		}, nil

	case *txnbuild.InvokeHostFunction:
		if op.SourceAccount != "" {
			source = op.SourceAccount
		}
		return extractContractTransfer(op, source)

	default:
		return nil, fmt.Errorf("unsupported operation type %T", op)
	}
}

func extractContractTransfer(op *txnbuild.InvokeHostFunction, source string) (*PaymentDetails, error) {
	if op.HostFunction.Type != xdr.HostFunctionTypeHostFunctionTypeInvokeContract {
		return nil, fmt.Errorf("unsupported host function type")
	}
	invoke := op.HostFunction.InvokeContract
	if invoke == nil {
		return nil, fmt.Errorf("missing contract invocation arguments")
	}
	if string(invoke.FunctionName) != "transfer" {
		return nil, fmt.Errorf("expected transfer invocation, got %s", invoke.FunctionName)
	}
	if len(invoke.Args) != 3 {
		return nil, fmt.Errorf("transfer expects 3 arguments, got %d", len(invoke.Args))
	}

	contractID, err := scAddressString(invoke.ContractAddress)
	if err != nil {
		return nil, fmt.Errorf("invalid contract address: %w", err)
	}

	from, err := scValAddress(invoke.Args[0])
	if err != nil {
		return nil, fmt.Errorf("invalid transfer source: %w", err)
	}
	to, err := scValAddress(invoke.Args[1])
	if err != nil {
		return nil, fmt.Errorf("invalid transfer destination: %w", err)
	}
	value, err := scValI128(invoke.Args[2])
	if err != nil {
		return nil, fmt.Errorf("invalid transfer amount: %w", err)
	}

	if from != source {
		return nil, fmt.Errorf("transfer source %s does not match transaction source %s", from, source)
	}

	return &PaymentDetails{
		Source:      from,
		Destination: to,
		Asset:       contractID,
		Amount:      value,
	}, nil
}

// WrapFeeBump wraps a signed transaction in a fee-bump envelope paid and
// signed by feeSource. The inner transaction bytes are left untouched.
func WrapFeeBump(inner *txnbuild.Transaction, feeSource *keypair.Full, passphrase string) (string, error) {
	feeBump, err := txnbuild.NewFeeBumpTransaction(txnbuild.FeeBumpTransactionParams{
		Inner:      inner,
		FeeAccount: feeSource.Address(),
		BaseFee:    2 * txnbuild.MinBaseFee,
	})
	if err != nil {
		return "", fmt.Errorf("failed to build fee-bump envelope: %w", err)
	}

	feeBump, err = feeBump.Sign(passphrase, feeSource)
	if err != nil {
		return "", fmt.Errorf("failed to sign fee-bump envelope: %w", err)
	}

	encoded, err := feeBump.Base64()
	if err != nil {
		return "", fmt.Errorf("failed to encode fee-bump envelope: %w", err)
	}
	return encoded, nil
}

// NewContractTransferOp assembles a transfer(from, to, amount) invocation
// on a token contract. The amount is encoded as a 128-bit signed integer.
func NewContractTransferOp(contractID, from, to string, value *big.Int) (*txnbuild.InvokeHostFunction, error) {
	contractAddr, err := contractScAddress(contractID)
	if err != nil {
		return nil, err
	}
	fromVal, err := addressScVal(from)
	if err != nil {
		return nil, err
	}
	toVal, err := addressScVal(to)
	if err != nil {
		return nil, err
	}
	amountVal, err := i128ScVal(value)
	if err != nil {
		return nil, err
	}

	return &txnbuild.InvokeHostFunction{
		SourceAccount: from,
		HostFunction: xdr.HostFunction{
			Type: xdr.HostFunctionTypeHostFunctionTypeInvokeContract,
			InvokeContract: &xdr.InvokeContractArgs{
				ContractAddress: contractAddr,
				FunctionName:    xdr.ScSymbol("transfer"),
				Args:            []xdr.ScVal{fromVal, toVal, amountVal},
			},
		},
	}, nil
}

// ApplySimulation attaches the resource footprint and authorization
// entries obtained from a simulation to an invocation operation. It
// returns the resource fee the final transaction must add to its base fee.
func ApplySimulation(op *txnbuild.InvokeHostFunction, sim *sorobanrpc.SimulateResult) (int64, error) {
	if sim.Error != "" {
		return 0, fmt.Errorf("simulation failed: %s", sim.Error)
	}

	var sorobanData xdr.SorobanTransactionData
	if err := xdr.SafeUnmarshalBase64(sim.TransactionData, &sorobanData); err != nil {
		return 0, fmt.Errorf("invalid simulation transaction data: %w", err)
	}
	op.Ext = xdr.TransactionExt{
		V:           1,
		SorobanData: &sorobanData,
	}

	var auth []xdr.SorobanAuthorizationEntry
	for _, result := range sim.Results {
		for _, entry := range result.Auth {
			var decoded xdr.SorobanAuthorizationEntry
			if err := xdr.SafeUnmarshalBase64(entry, &decoded); err != nil {
				return 0, fmt.Errorf("invalid authorization entry: %w", err)
			}
			auth = append(auth, decoded)
		}
	}
	op.Auth = auth

	resourceFee, err := strconv.ParseInt(sim.MinResourceFee, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid min resource fee %q: %w", sim.MinResourceFee, err)
	}
	return resourceFee, nil
}

func scAddressString(addr xdr.ScAddress) (string, error) {
	switch addr.Type {
	case xdr.ScAddressTypeScAddressTypeAccount:
		if addr.AccountId == nil {
			return "", fmt.Errorf("missing account id")
		}
		return addr.AccountId.Address(), nil
	case xdr.ScAddressTypeScAddressTypeContract:
		if addr.ContractId == nil {
			return "", fmt.Errorf("missing contract id")
		}
		id := *addr.ContractId
		return strkey.Encode(strkey.VersionByteContract, id[:])
	default:
		return "", fmt.Errorf("unsupported address type %d", addr.Type)
	}
}

func scValAddress(val xdr.ScVal) (string, error) {
	if val.Type != xdr.ScValTypeScvAddress || val.Address == nil {
		return "", fmt.Errorf("expected address value")
	}
	return scAddressString(*val.Address)
}

func scValI128(val xdr.ScVal) (*big.Int, error) {
	if val.Type != xdr.ScValTypeScvI128 || val.I128 == nil {
		return nil, fmt.Errorf("expected i128 value")
	}
	result := new(big.Int).SetInt64(int64(val.I128.Hi))
	result.Lsh(result, 64)
	result.Or(result, new(big.Int).SetUint64(uint64(val.I128.Lo)))
	return result, nil
}

func contractScAddress(contractID string) (xdr.ScAddress, error) {
	raw, err := strkey.Decode(strkey.VersionByteContract, contractID)
	if err != nil {
		return xdr.ScAddress{}, fmt.Errorf("invalid contract id %s: %w", contractID, err)
	}
	var id xdr.ContractId
	copy(id[:], raw)
	return xdr.ScAddress{
		Type:       xdr.ScAddressTypeScAddressTypeContract,
		ContractId: &id,
	}, nil
}

func addressScVal(address string) (xdr.ScVal, error) {
	var scAddr xdr.ScAddress
	if strkey.IsValidEd25519PublicKey(address) {
		accountID := xdr.MustAddress(address)
		scAddr = xdr.ScAddress{
			Type:      xdr.ScAddressTypeScAddressTypeAccount,
			AccountId: &accountID,
		}
	} else {
		contractAddr, err := contractScAddress(address)
		if err != nil {
			return xdr.ScVal{}, fmt.Errorf("invalid address %s: %w", address, err)
		}
		scAddr = contractAddr
	}
	return xdr.ScVal{
		Type:    xdr.ScValTypeScvAddress,
		Address: &scAddr,
	}, nil
}

func i128ScVal(value *big.Int) (xdr.ScVal, error) {
	if value.Sign() < 0 {
		return xdr.ScVal{}, fmt.Errorf("amount cannot be negative")
	}
	if value.BitLen() > 127 {
		return xdr.ScVal{}, fmt.Errorf("amount exceeds i128 range")
	}

	lo := new(big.Int).And(value, new(big.Int).SetUint64(^uint64(0)))
	hi := new(big.Int).Rsh(value, 64)

	parts := xdr.Int128Parts{
		Hi: xdr.Int64(hi.Int64()),
		Lo: xdr.Uint64(lo.Uint64()),
	}
	return xdr.ScVal{
		Type: xdr.ScValTypeScvI128,
		I128: &parts,
	}, nil
}
