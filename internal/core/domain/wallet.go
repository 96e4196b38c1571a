package domain

import (
	"time"

	"github.com/google/uuid"
)

// WalletStatus ...
type WalletStatus int

const (
	WalletStatusDraft WalletStatus = iota
	WalletStatusDeploying
	WalletStatusReadyToUse
	WalletStatusRecoveryInProgress
	WalletStatusRecovered
)

func (s WalletStatus) String() string {
	switch s {
	case WalletStatusDeploying:
		return "deploying"
	case WalletStatusReadyToUse:
		return "readyToUse"
	case WalletStatusRecoveryInProgress:
		return "recoveryInProgress"
	case WalletStatusRecovered:
		return "recovered"
	default:
		return "draft"
	}
}

// Wallet is the aggregate root of a multisig wallet known to this service.
type Wallet struct {
	ID                   string
	Address              string
	Owners               OwnerList
	Threshold            int
	Status               WalletStatus
	IsRecoveryInProgress bool
	StatusBeforeRecovery WalletStatus
	CreatedAt            int64
	UpdatedAt            int64
}

// NewDraftWallet returns an empty wallet in draft status with a fresh id.
func NewDraftWallet() *Wallet {
	now := time.Now().Unix()
	return &Wallet{
		ID:        uuid.New().String(),
		Status:    WalletStatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewWallet returns a wallet with the given address, owners and status.
func NewWallet(
	address string, owners OwnerList, threshold int, status WalletStatus,
) (*Wallet, error) {
	w := NewDraftWallet()
	if err := w.SetAddress(address); err != nil {
		return nil, err
	}
	if err := w.SetOwners(owners, threshold); err != nil {
		return nil, err
	}
	w.Status = status
	return w, nil
}

// SetAddress sets the contract address of a draft wallet.
func (w *Wallet) SetAddress(address string) error {
	addr, err := NormalizeAddress(address)
	if err != nil {
		return ErrInvalidContractAddress
	}
	if w.Status != WalletStatusDraft {
		if SameAddress(w.Address, addr) {
			return nil
		}
		return ErrWalletMustBeDraft
	}

	w.Address = addr
	w.touch()
	return nil
}

// SetOwners replaces owners and threshold of the wallet.
func (w *Wallet) SetOwners(owners OwnerList, threshold int) error {
	if err := owners.validate(); err != nil {
		return err
	}
	if threshold < 1 || threshold > len(owners) {
		return ErrInvalidThreshold
	}

	normalized := make(OwnerList, 0, len(owners))
	for _, o := range owners {
		addr, _ := NormalizeAddress(o.Address)
		normalized = append(normalized, Owner{Address: addr, Role: o.Role})
	}
	w.Owners = normalized
	w.Threshold = threshold
	w.touch()
	return nil
}

// OwnerSet ...
func (w *Wallet) OwnerSet() OwnerSet {
	return OwnerSet{Owners: w.Owners.Copy(), Threshold: w.Threshold}
}

// AssignRecoveryRoles tags the owners matching the given recovery addresses
// with a recovery role, in order. If after that a single owner of unknown
// kind is left and no device owner exists, it is tagged as device. Two
// leftovers with no device nor second factor known are tagged as device and
// second factor, in list order.
// Owners with a known role are left untouched.
func (w *Wallet) AssignRecoveryRoles(recoveryAddresses []string) {
	for i, addr := range recoveryAddresses {
		idx := w.Owners.indexOf(addr)
		if idx < 0 || w.Owners[idx].Role != OwnerRoleUnknown {
			continue
		}
		w.Owners[idx].Role = RecoveryRole(i)
	}

	unknown := w.Owners.WithRole(OwnerRoleUnknown)
	hasDevice := len(w.Owners.WithRole(OwnerRoleDevice)) > 0
	switch {
	case len(unknown) == 1 && !hasDevice:
		idx := w.Owners.indexOf(unknown[0].Address)
		w.Owners[idx].Role = OwnerRoleDevice
	case len(unknown) == 2 && !hasDevice && len(w.Owners.Authenticators()) == 0:
		idx := w.Owners.indexOf(unknown[0].Address)
		w.Owners[idx].Role = OwnerRoleDevice
		idx = w.Owners.indexOf(unknown[1].Address)
		w.Owners[idx].Role = OwnerRoleSecondFactor
	}
	w.touch()
}

// StartRecovery flags the wallet as being recovered. A recovery can start
// from a draft, ready to use or already recovered wallet, starting twice is a
// no-op.
func (w *Wallet) StartRecovery() error {
	if w.IsRecoveryInProgress {
		return nil
	}
	switch w.Status {
	case WalletStatusDraft, WalletStatusReadyToUse, WalletStatusRecovered:
	default:
		return ErrInvalidWalletStatusTransition
	}
	if w.Address == "" {
		return ErrInvalidContractAddress
	}

	w.StatusBeforeRecovery = w.Status
	w.Status = WalletStatusRecoveryInProgress
	w.IsRecoveryInProgress = true
	w.touch()
	return nil
}

// CancelRecovery clears the recovery flag and restores the status the wallet
// had before the recovery started. No-op if no recovery is in progress.
func (w *Wallet) CancelRecovery() {
	if !w.IsRecoveryInProgress {
		return
	}
	w.Status = w.StatusBeforeRecovery
	w.IsRecoveryInProgress = false
	w.touch()
}

// FinishRecovery replaces the owners with those set by the recovery
// transaction and marks the wallet as recovered.
func (w *Wallet) FinishRecovery(owners OwnerList, threshold int) error {
	if !w.IsRecoveryInProgress {
		return ErrRecoveryNotInProgress
	}
	if err := w.SetOwners(owners, threshold); err != nil {
		return err
	}
	w.Status = WalletStatusRecovered
	w.IsRecoveryInProgress = false
	w.touch()
	return nil
}

// IsReadyToUse ...
func (w *Wallet) IsReadyToUse() bool {
	return w.Status == WalletStatusReadyToUse ||
		w.Status == WalletStatusRecovered
}

func (w *Wallet) touch() {
	w.UpdatedAt = time.Now().Unix()
}
