package domain

import "errors"

var (
	// ErrInvalidContractAddress is returned if the wallet address is malformed
	// or doesn't resolve to an existing wallet contract.
	ErrInvalidContractAddress = errors.New("invalid wallet contract address")
	// ErrWalletAlreadyExists is returned when trying to recover a wallet whose
	// address is already registered by another local wallet.
	ErrWalletAlreadyExists = errors.New("wallet already exists")
	// ErrRecoveryPhraseInvalid is returned if the recovery phrase fails the
	// word list or checksum validation.
	ErrRecoveryPhraseInvalid = errors.New("recovery phrase is invalid")
	// ErrRecoveryAccountsNotFound is returned if any of the accounts derived
	// from the recovery phrase is not an owner of the wallet.
	ErrRecoveryAccountsNotFound = errors.New(
		"recovery accounts derived from phrase are not owners of the wallet",
	)
	// ErrUnsupportedOwnerCount ...
	ErrUnsupportedOwnerCount = errors.New("unsupported number of wallet owners")
	// ErrUnsupportedWalletConfiguration ...
	ErrUnsupportedWalletConfiguration = errors.New(
		"unsupported wallet owners configuration",
	)
	// ErrFailedToChangeOwners ...
	ErrFailedToChangeOwners = errors.New("failed to change wallet owners")
	// ErrFailedToChangeConfirmationCount ...
	ErrFailedToChangeConfirmationCount = errors.New(
		"failed to change wallet confirmation count",
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
	// ErrInternalServerError is returned for unexpected relay failures.
	ErrInternalServerError = errors.New("internal server error")

	// ErrTransactionNotFound ...
	ErrTransactionNotFound = errors.New("transaction not found")
	// ErrNoWalletSelected ...
	ErrNoWalletSelected = errors.New("no wallet is selected")
	// ErrInvalidOwnerAddress ...
	ErrInvalidOwnerAddress = errors.New("owner address is not a valid hex address")
	// ErrDuplicatedOwner ...
	ErrDuplicatedOwner = errors.New("owner addresses must be unique")
	// ErrInvalidThreshold ...
	ErrInvalidThreshold = errors.New(
		"threshold must be in range [1, number of owners]",
	)
	// ErrWalletMustBeDraft ...
	ErrWalletMustBeDraft = errors.New("wallet must be in draft status")
	// ErrInvalidWalletStatusTransition ...
	ErrInvalidWalletStatusTransition = errors.New("invalid wallet status transition")
	// ErrRecoveryNotInProgress ...
	ErrRecoveryNotInProgress = errors.New("wallet recovery is not in progress")
	// ErrTransactionAlreadySubmitted ...
	ErrTransactionAlreadySubmitted = errors.New("transaction is already submitted")
	// ErrTransactionMustBePending ...
	ErrTransactionMustBePending = errors.New(
		"transaction must be estimated to be signed",
	)
	// ErrTransactionMustBeSigned ...
	ErrTransactionMustBeSigned = errors.New(
		"transaction must be signed to be submitted",
	)
	// ErrTransactionMustBeSubmitted ...
	ErrTransactionMustBeSubmitted = errors.New(
		"transaction must be submitted to be processed",
	)
	// ErrTransactionTerminated ...
	ErrTransactionTerminated = errors.New(
		"transaction is already confirmed, rejected or failed",
	)
	// ErrNullTransactionHash ...
	ErrNullTransactionHash = errors.New("transaction hash must not be null")
	// ErrNullSignatures ...
	ErrNullSignatures = errors.New("signature list must not be empty")
	// ErrFeeTokenMismatch ...
	ErrFeeTokenMismatch = errors.New("balance token doesn't match the fee token")
)
