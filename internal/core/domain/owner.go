package domain

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// OwnerRole tells what kind of key controls a wallet owner.
type OwnerRole int

const (
	OwnerRoleUnknown OwnerRole = iota
	OwnerRoleDevice
	OwnerRolePaperWallet
	OwnerRolePaperWalletDerived
	OwnerRoleBrowserExtension
	OwnerRoleAuthenticator
	OwnerRoleKeycard
	OwnerRoleRecoveryContact
	// OwnerRoleSecondFactor is a second factor key of unknown kind, inferred
	// from the owner layout.
	OwnerRoleSecondFactor
)

var ownerRoleNames = map[OwnerRole]string{
	OwnerRoleUnknown:            "unknown",
	OwnerRoleDevice:             "device",
	OwnerRolePaperWallet:        "paperWallet",
	OwnerRolePaperWalletDerived: "paperWalletDerived",
	OwnerRoleBrowserExtension:   "browserExtension",
	OwnerRoleAuthenticator:      "authenticator",
	OwnerRoleKeycard:            "keycard",
	OwnerRoleRecoveryContact:    "recoveryContact",
	OwnerRoleSecondFactor:       "secondFactor",
}

func (r OwnerRole) String() string {
	if name, ok := ownerRoleNames[r]; ok {
		return name
	}
	return ownerRoleNames[OwnerRoleUnknown]
}

// IsAuthenticator returns whether the role is a second factor key.
func (r OwnerRole) IsAuthenticator() bool {
	switch r {
	case OwnerRoleBrowserExtension, OwnerRoleAuthenticator, OwnerRoleKeycard,
		OwnerRoleSecondFactor:
		return true
	default:
		return false
	}
}

// IsRecovery returns whether the role is a key derived from a recovery
// phrase.
func (r OwnerRole) IsRecovery() bool {
	switch r {
	case OwnerRolePaperWallet, OwnerRolePaperWalletDerived,
		OwnerRoleRecoveryContact:
		return true
	default:
		return false
	}
}

// ParseOwnerRole is the inverse of OwnerRole.String.
func ParseOwnerRole(name string) (OwnerRole, error) {
	for role, n := range ownerRoleNames {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return role, nil
		}
	}
	return OwnerRoleUnknown, fmt.Errorf("unknown owner role %q", name)
}

// RecoveryRole returns the role assigned to the i-th recovery account.
func RecoveryRole(i int) OwnerRole {
	switch i {
	case 0:
		return OwnerRolePaperWallet
	case 1:
		return OwnerRolePaperWalletDerived
	default:
		return OwnerRoleRecoveryContact
	}
}

// Owner is a key that is allowed to confirm wallet transactions.
type Owner struct {
	Address string
	Role    OwnerRole
}

func (o Owner) String() string {
	return fmt.Sprintf("%s:%s", o.Role, o.Address)
}

// NormalizeAddress validates the given hex address and returns its checksum
// encoded form.
func NormalizeAddress(address string) (string, error) {
	address = strings.TrimSpace(address)
	if !common.IsHexAddress(address) {
		return "", ErrInvalidOwnerAddress
	}
	return common.HexToAddress(address).Hex(), nil
}

// SameAddress compares 2 hex addresses regardless of their case.
func SameAddress(a, b string) bool {
	return strings.EqualFold(
		strings.TrimPrefix(strings.ToLower(a), "0x"),
		strings.TrimPrefix(strings.ToLower(b), "0x"),
	)
}

// OwnerList is an ordered list of wallet owners. The order mirrors the one of
// the owners linked list stored in the wallet contract.
type OwnerList []Owner

// NewOwnerList returns a validated list with normalized addresses.
func NewOwnerList(owners ...Owner) (OwnerList, error) {
	list := make(OwnerList, 0, len(owners))
	for _, o := range owners {
		addr, err := NormalizeAddress(o.Address)
		if err != nil {
			return nil, err
		}
		if list.Contains(addr) {
			return nil, ErrDuplicatedOwner
		}
		list = append(list, Owner{Address: addr, Role: o.Role})
	}
	return list, nil
}

// Addresses ...
func (l OwnerList) Addresses() []string {
	addresses := make([]string, 0, len(l))
	for _, o := range l {
		addresses = append(addresses, o.Address)
	}
	return addresses
}

// Contains ...
func (l OwnerList) Contains(address string) bool {
	return l.indexOf(address) >= 0
}

// Get returns the owner with the given address, if any.
func (l OwnerList) Get(address string) (Owner, bool) {
	if i := l.indexOf(address); i >= 0 {
		return l[i], true
	}
	return Owner{}, false
}

// WithRole returns the owners with the given role.
func (l OwnerList) WithRole(role OwnerRole) OwnerList {
	owners := make(OwnerList, 0)
	for _, o := range l {
		if o.Role == role {
			owners = append(owners, o)
		}
	}
	return owners
}

// Authenticators returns the second factor owners.
func (l OwnerList) Authenticators() OwnerList {
	owners := make(OwnerList, 0)
	for _, o := range l {
		if o.Role.IsAuthenticator() {
			owners = append(owners, o)
		}
	}
	return owners
}

// Copy ...
func (l OwnerList) Copy() OwnerList {
	if l == nil {
		return nil
	}
	owners := make(OwnerList, len(l))
	copy(owners, l)
	return owners
}

// SameOwners returns whether the 2 lists contain the same addresses,
// regardless of order and roles.
func (l OwnerList) SameOwners(other OwnerList) bool {
	if len(l) != len(other) {
		return false
	}
	for _, o := range l {
		if !other.Contains(o.Address) {
			return false
		}
	}
	return true
}

// validate checks addresses and uniqueness.
func (l OwnerList) validate() error {
	for i, o := range l {
		if !common.IsHexAddress(o.Address) {
			return ErrInvalidOwnerAddress
		}
		if l[:i].Contains(o.Address) {
			return ErrDuplicatedOwner
		}
	}
	return nil
}

func (l OwnerList) indexOf(address string) int {
	for i, o := range l {
		if SameAddress(o.Address, address) {
			return i
		}
	}
	return -1
}

// OwnerSet is a list of owners together with the number of confirmations
// required to execute a wallet transaction.
type OwnerSet struct {
	Owners    OwnerList
	Threshold int
}

// ValidateRecoveryTopology checks that the owner set belongs to the class of
// wallets that can be recovered: a bounded number of owners, exactly one
// device key, at most one second factor and no owner of unknown kind.
func ValidateRecoveryTopology(set OwnerSet) error {
	count := len(set.Owners)
	if count < MinOwnerCount || count > MaxOwnerCount {
		return ErrUnsupportedOwnerCount
	}
	if err := set.Owners.validate(); err != nil {
		return ErrUnsupportedWalletConfiguration
	}
	if set.Threshold < 1 || set.Threshold > count {
		return ErrUnsupportedWalletConfiguration
	}
	if len(set.Owners.WithRole(OwnerRoleDevice)) != 1 {
		return ErrUnsupportedWalletConfiguration
	}
	if len(set.Owners.Authenticators()) > 1 {
		return ErrUnsupportedWalletConfiguration
	}
	if len(set.Owners.WithRole(OwnerRoleUnknown)) > 0 {
		return ErrUnsupportedWalletConfiguration
	}
	return nil
}
