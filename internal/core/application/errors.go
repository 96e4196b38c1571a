package application

import (
	"errors"

	"github.com/safe-network/safe-recoveryd/internal/core/domain"
)

var (
	// ErrInvalidContractAddress ...
	ErrInvalidContractAddress = errors.New("invalid contract address")
	// ErrWalletAlreadyExists ...
	ErrWalletAlreadyExists = errors.New("wallet already exists")
	// ErrRecoveryPhraseInvalid ...
	ErrRecoveryPhraseInvalid = errors.New("recovery phrase is invalid")
	// ErrRecoveryAccountsNotFound ...
	ErrRecoveryAccountsNotFound = errors.New("recovery accounts not found")
	// ErrUnsupportedOwnerCount ...
	ErrUnsupportedOwnerCount = errors.New("unsupported owner count")
	// ErrUnsupportedWalletConfiguration ...
	ErrUnsupportedWalletConfiguration = errors.New(
		"unsupported wallet configuration",
	)
	// ErrFailedToChangeOwners ...
	ErrFailedToChangeOwners = errors.New("failed to change owners")
	// ErrFailedToChangeConfirmationCount ...
	ErrFailedToChangeConfirmationCount = errors.New(
		"failed to change confirmation count",
	)
	// ErrFailedToCreateValidTransactionData ...
	ErrFailedToCreateValidTransactionData = errors.New(
		"failed to create valid transaction data",
	)
	// ErrWalletNotFound ...
	ErrWalletNotFound = errors.New("wallet not found")
	// ErrFailedToCreateValidTransaction ...
	ErrFailedToCreateValidTransaction = errors.New(
		"failed to create valid transaction",
	)
	// ErrInternalServerError ...
	ErrInternalServerError = errors.New("internal server error")

	// ErrRecoveryTransactionNotReady is returned when submitting a recovery
	// transaction that is not signed or whose fee is not covered yet.
	ErrRecoveryTransactionNotReady = errors.New(
		"recovery transaction is not ready to be submitted",
	)
	// ErrRecoveryTransactionFailed is delivered to the watchers of a wallet
	// when its recovery transaction is reverted on-chain.
	ErrRecoveryTransactionFailed = errors.New("recovery transaction failed")
)

// the order matters only for errors wrapping more than one of these.
var domainErrors = []struct {
	domainErr error
	appErr    error
}{
	{domain.ErrInvalidContractAddress, ErrInvalidContractAddress},
	{domain.ErrWalletAlreadyExists, ErrWalletAlreadyExists},
	{domain.ErrRecoveryPhraseInvalid, ErrRecoveryPhraseInvalid},
	{domain.ErrRecoveryAccountsNotFound, ErrRecoveryAccountsNotFound},
	{domain.ErrUnsupportedOwnerCount, ErrUnsupportedOwnerCount},
	{domain.ErrUnsupportedWalletConfiguration, ErrUnsupportedWalletConfiguration},
	{domain.ErrFailedToChangeOwners, ErrFailedToChangeOwners},
	{domain.ErrFailedToChangeConfirmationCount, ErrFailedToChangeConfirmationCount},
	{domain.ErrFailedToCreateValidTransactionData, ErrFailedToCreateValidTransactionData},
	{domain.ErrWalletNotFound, ErrWalletNotFound},
	{domain.ErrNoWalletSelected, ErrWalletNotFound},
	{domain.ErrFailedToCreateValidTransaction, ErrFailedToCreateValidTransaction},
	{domain.ErrInternalServerError, ErrInternalServerError},
}

// TranslateError maps a domain error to the matching error of this package.
// Errors that are not recognized are returned unchanged.
func TranslateError(err error) error {
	if err == nil {
		return nil
	}
	for _, e := range domainErrors {
		if errors.Is(err, e.appErr) {
			return e.appErr
		}
		if errors.Is(err, e.domainErr) {
			return e.appErr
		}
	}
	return err
}
