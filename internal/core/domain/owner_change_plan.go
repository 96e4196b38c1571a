package domain

import "fmt"

// OwnerChangeType enumerates the owner management calls of a wallet
// contract.
type OwnerChangeType int

const (
	OwnerChangeSwapOwner OwnerChangeType = iota
	OwnerChangeAddOwnerWithThreshold
	OwnerChangeRemoveOwner
	OwnerChangeChangeThreshold
)

func (t OwnerChangeType) String() string {
	switch t {
	case OwnerChangeSwapOwner:
		return "swapOwner"
	case OwnerChangeAddOwnerWithThreshold:
		return "addOwnerWithThreshold"
	case OwnerChangeRemoveOwner:
		return "removeOwner"
	case OwnerChangeChangeThreshold:
		return "changeThreshold"
	default:
		return "unknown"
	}
}

// OwnerChange is a single step of an owner replacement. PrevOwner is the
// owner that precedes OldOwner in the contract linked list at the time the
// step is executed.
type OwnerChange struct {
	Type         OwnerChangeType
	PrevOwner    string
	OldOwner     string
	NewOwner     string
	NewOwnerRole OwnerRole
	Threshold    int
}

func (c OwnerChange) String() string {
	switch c.Type {
	case OwnerChangeSwapOwner:
		return fmt.Sprintf("%s(%s -> %s)", c.Type, c.OldOwner, c.NewOwner)
	case OwnerChangeAddOwnerWithThreshold:
		return fmt.Sprintf("%s(%s, %d)", c.Type, c.NewOwner, c.Threshold)
	case OwnerChangeRemoveOwner:
		return fmt.Sprintf("%s(%s, %d)", c.Type, c.OldOwner, c.Threshold)
	default:
		return fmt.Sprintf("%s(%d)", c.Type, c.Threshold)
	}
}

// OwnerChangePlan is the ordered list of owner management calls that brings
// a wallet from the current to the proposed owner set.
type OwnerChangePlan struct {
	Current  OwnerSet
	Proposed OwnerSet
	Changes  []OwnerChange
}

// ConnectsAuthenticator returns whether the plan brings in a new second
// factor owner.
func (p *OwnerChangePlan) ConnectsAuthenticator() bool {
	return ChangesConnectAuthenticator(p.Changes)
}

// ChangesConnectAuthenticator ...
func ChangesConnectAuthenticator(changes []OwnerChange) bool {
	for _, c := range changes {
		switch c.Type {
		case OwnerChangeSwapOwner, OwnerChangeAddOwnerWithThreshold:
			if c.NewOwnerRole.IsAuthenticator() {
				return true
			}
		}
	}
	return false
}

// Validate replays the plan over the current owner set and checks that every
// intermediate state is a valid wallet configuration and that the final one
// matches the proposed set.
func (p *OwnerChangePlan) Validate() error {
	owners := newLinkedOwners(p.Current.Owners)
	threshold := p.Current.Threshold

	for _, c := range p.Changes {
		switch c.Type {
		case OwnerChangeSwapOwner:
			if !SameAddress(owners.prev(c.OldOwner), c.PrevOwner) {
				return ErrFailedToChangeOwners
			}
			if owners.contains(c.NewOwner) {
				return ErrFailedToChangeOwners
			}
			owners.swap(c.OldOwner, c.NewOwner)
		case OwnerChangeAddOwnerWithThreshold:
			if owners.contains(c.NewOwner) {
				return ErrFailedToChangeOwners
			}
			owners.add(c.NewOwner)
			threshold = c.Threshold
		case OwnerChangeRemoveOwner:
			if !SameAddress(owners.prev(c.OldOwner), c.PrevOwner) {
				return ErrFailedToChangeOwners
			}
			owners.remove(c.OldOwner)
			threshold = c.Threshold
		case OwnerChangeChangeThreshold:
			threshold = c.Threshold
		default:
			return ErrFailedToChangeOwners
		}

		if threshold < 1 || threshold > owners.len() {
			return ErrFailedToChangeConfirmationCount
		}
	}

	if !owners.sameAs(p.Proposed.Owners) {
		return ErrFailedToChangeOwners
	}
	if threshold != p.Proposed.Threshold {
		return ErrFailedToChangeConfirmationCount
	}
	return nil
}

// ValidateOwnerReplacement checks that both the current and proposed owner
// sets are supported and returns the minimal plan of owner management calls
// that turns the first into the second.
// The plan swaps owners whenever possible (same role first), then adds the
// remaining new owners and finally removes the remaining old ones, so that
// the owner count never drops below the threshold.
func ValidateOwnerReplacement(
	current, proposed OwnerSet,
) (*OwnerChangePlan, error) {
	if err := ValidateRecoveryTopology(current); err != nil {
		return nil, err
	}
	if err := proposed.Owners.validate(); err != nil {
		return nil, ErrFailedToChangeOwners
	}
	if err := ValidateRecoveryTopology(OwnerSet{
		Owners: proposed.Owners, Threshold: 1,
	}); err != nil {
		return nil, err
	}
	if proposed.Threshold < 1 || proposed.Threshold > len(proposed.Owners) {
		return nil, ErrFailedToChangeConfirmationCount
	}

	removed := make(OwnerList, 0)
	for _, o := range current.Owners {
		if !proposed.Owners.Contains(o.Address) {
			removed = append(removed, o)
		}
	}
	added := make(OwnerList, 0)
	for _, o := range proposed.Owners {
		if !current.Owners.Contains(o.Address) {
			added = append(added, o)
		}
	}
	if len(removed) == 0 && len(added) == 0 &&
		current.Threshold == proposed.Threshold {
		return nil, ErrFailedToChangeOwners
	}

	owners := newLinkedOwners(current.Owners)
	threshold := current.Threshold
	changes := make([]OwnerChange, 0)

	swap := func(old, next Owner) {
		changes = append(changes, OwnerChange{
			Type:         OwnerChangeSwapOwner,
			PrevOwner:    owners.prev(old.Address),
			OldOwner:     old.Address,
			NewOwner:     next.Address,
			NewOwnerRole: next.Role,
		})
		owners.swap(old.Address, next.Address)
	}

	// same role swaps first, then pair whatever is left in list order
	usedRemoved := make([]bool, len(removed))
	usedAdded := make([]bool, len(added))
	for i, old := range removed {
		for j, next := range added {
			if usedAdded[j] || old.Role != next.Role {
				continue
			}
			swap(old, next)
			usedRemoved[i], usedAdded[j] = true, true
			break
		}
	}
	for i, old := range removed {
		if usedRemoved[i] {
			continue
		}
		for j, next := range added {
			if usedAdded[j] {
				continue
			}
			swap(old, next)
			usedRemoved[i], usedAdded[j] = true, true
			break
		}
	}

	for j, next := range added {
		if usedAdded[j] {
			continue
		}
		owners.add(next.Address)
		changes = append(changes, OwnerChange{
			Type:         OwnerChangeAddOwnerWithThreshold,
			PrevOwner:    SentinelOwner,
			NewOwner:     next.Address,
			NewOwnerRole: next.Role,
			Threshold:    threshold,
		})
	}

	for i, old := range removed {
		if usedRemoved[i] {
			continue
		}
		prev := owners.prev(old.Address)
		owners.remove(old.Address)
		if threshold > owners.len() {
			threshold = owners.len()
		}
		changes = append(changes, OwnerChange{
			Type:      OwnerChangeRemoveOwner,
			PrevOwner: prev,
			OldOwner:  old.Address,
			Threshold: threshold,
		})
	}

	if threshold != proposed.Threshold {
		last := len(changes) - 1
		if last >= 0 && changes[last].Type != OwnerChangeSwapOwner {
			changes[last].Threshold = proposed.Threshold
		} else {
			changes = append(changes, OwnerChange{
				Type:      OwnerChangeChangeThreshold,
				Threshold: proposed.Threshold,
			})
		}
	}

	plan := &OwnerChangePlan{
		Current: OwnerSet{
			Owners: current.Owners.Copy(), Threshold: current.Threshold,
		},
		Proposed: OwnerSet{
			Owners: proposed.Owners.Copy(), Threshold: proposed.Threshold,
		},
		Changes: changes,
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	return plan, nil
}

// linkedOwners mimics the owners linked list of the wallet contract: new
// owners are inserted right after the sentinel, swaps happen in place.
type linkedOwners struct {
	list []string
}

func newLinkedOwners(owners OwnerList) *linkedOwners {
	return &linkedOwners{list: owners.Addresses()}
}

func (l *linkedOwners) len() int {
	return len(l.list)
}

func (l *linkedOwners) indexOf(address string) int {
	for i, a := range l.list {
		if SameAddress(a, address) {
			return i
		}
	}
	return -1
}

func (l *linkedOwners) contains(address string) bool {
	return l.indexOf(address) >= 0
}

func (l *linkedOwners) prev(address string) string {
	i := l.indexOf(address)
	if i <= 0 {
		return SentinelOwner
	}
	return l.list[i-1]
}

func (l *linkedOwners) swap(old, next string) {
	if i := l.indexOf(old); i >= 0 {
		l.list[i] = next
	}
}

func (l *linkedOwners) add(address string) {
	l.list = append([]string{address}, l.list...)
}

func (l *linkedOwners) remove(address string) {
	if i := l.indexOf(address); i >= 0 {
		l.list = append(l.list[:i], l.list[i+1:]...)
	}
}

func (l *linkedOwners) sameAs(owners OwnerList) bool {
	if len(l.list) != len(owners) {
		return false
	}
	for _, a := range l.list {
		if !owners.Contains(a) {
			return false
		}
	}
	return true
}
