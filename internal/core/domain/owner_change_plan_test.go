package domain_test

import (
	"math/rand"
	"testing"

	"github.com/safe-network/safe-recoveryd/internal/core/domain"
	"github.com/stretchr/testify/require"
)

func TestValidateOwnerReplacement(t *testing.T) {
	a, b, c, e, p, d := addr(1), addr(2), addr(3), addr(4), addr(5), addr(6)

	t.Run("swap device keeps threshold", func(t *testing.T) {
		current := domain.OwnerSet{
			Owners: domain.OwnerList{
				{Address: a, Role: domain.OwnerRoleDevice},
				{Address: b, Role: domain.OwnerRoleBrowserExtension},
			},
			Threshold: 2,
		}
		proposed := domain.OwnerSet{
			Owners: domain.OwnerList{
				{Address: c, Role: domain.OwnerRoleDevice},
				{Address: b, Role: domain.OwnerRoleBrowserExtension},
			},
			Threshold: 2,
		}

		plan, err := domain.ValidateOwnerReplacement(current, proposed)
		require.NoError(t, err)
		require.NotNil(t, plan)
		require.Len(t, plan.Changes, 1)

		change := plan.Changes[0]
		require.Equal(t, domain.OwnerChangeSwapOwner, change.Type)
		require.Equal(t, domain.SentinelOwner, change.PrevOwner)
		require.Equal(t, a, change.OldOwner)
		require.Equal(t, c, change.NewOwner)
		require.False(t, plan.ConnectsAuthenticator())
		require.NoError(t, plan.Validate())
	})

	t.Run("connect authenticator raises threshold", func(t *testing.T) {
		current := domain.OwnerSet{
			Owners: domain.OwnerList{
				{Address: a, Role: domain.OwnerRoleDevice},
				{Address: p, Role: domain.OwnerRolePaperWallet},
				{Address: d, Role: domain.OwnerRolePaperWalletDerived},
			},
			Threshold: 1,
		}
		proposed := domain.OwnerSet{
			Owners: domain.OwnerList{
				{Address: c, Role: domain.OwnerRoleDevice},
				{Address: p, Role: domain.OwnerRolePaperWallet},
				{Address: d, Role: domain.OwnerRolePaperWalletDerived},
				{Address: e, Role: domain.OwnerRoleAuthenticator},
			},
			Threshold: 2,
		}

		plan, err := domain.ValidateOwnerReplacement(current, proposed)
		require.NoError(t, err)
		require.Len(t, plan.Changes, 2)
		require.Equal(t, domain.OwnerChangeSwapOwner, plan.Changes[0].Type)
		require.Equal(t, domain.OwnerChangeAddOwnerWithThreshold, plan.Changes[1].Type)
		require.Equal(t, e, plan.Changes[1].NewOwner)
		require.Equal(t, 2, plan.Changes[1].Threshold)
		require.True(t, plan.ConnectsAuthenticator())
	})

	t.Run("disconnect extension lowers threshold before removal", func(t *testing.T) {
		current := domain.OwnerSet{
			Owners: domain.OwnerList{
				{Address: a, Role: domain.OwnerRoleDevice},
				{Address: b, Role: domain.OwnerRoleBrowserExtension},
				{Address: p, Role: domain.OwnerRolePaperWallet},
				{Address: d, Role: domain.OwnerRolePaperWalletDerived},
			},
			Threshold: 2,
		}
		proposed := domain.OwnerSet{
			Owners: domain.OwnerList{
				{Address: c, Role: domain.OwnerRoleDevice},
				{Address: p, Role: domain.OwnerRolePaperWallet},
				{Address: d, Role: domain.OwnerRolePaperWalletDerived},
			},
			Threshold: 1,
		}

		plan, err := domain.ValidateOwnerReplacement(current, proposed)
		require.NoError(t, err)
		require.Len(t, plan.Changes, 2)

		swap, remove := plan.Changes[0], plan.Changes[1]
		require.Equal(t, domain.OwnerChangeSwapOwner, swap.Type)
		require.Equal(t, a, swap.OldOwner)
		require.Equal(t, domain.OwnerChangeRemoveOwner, remove.Type)
		require.Equal(t, b, remove.OldOwner)
		require.Equal(t, c, remove.PrevOwner)
		require.Equal(t, 1, remove.Threshold)
	})

	t.Run("threshold only", func(t *testing.T) {
		current := domain.OwnerSet{
			Owners: domain.OwnerList{
				{Address: a, Role: domain.OwnerRoleDevice},
				{Address: p, Role: domain.OwnerRolePaperWallet},
				{Address: d, Role: domain.OwnerRolePaperWalletDerived},
			},
			Threshold: 1,
		}
		proposed := domain.OwnerSet{
			Owners: domain.OwnerList{
				{Address: a, Role: domain.OwnerRoleDevice},
				{Address: p, Role: domain.OwnerRolePaperWallet},
				{Address: d, Role: domain.OwnerRolePaperWalletDerived},
			},
			Threshold: 2,
		}

		plan, err := domain.ValidateOwnerReplacement(current, proposed)
		require.NoError(t, err)
		require.Len(t, plan.Changes, 1)
		require.Equal(t, domain.OwnerChangeChangeThreshold, plan.Changes[0].Type)
		require.Equal(t, 2, plan.Changes[0].Threshold)
	})
}

func TestFailingValidateOwnerReplacement(t *testing.T) {
	a, b, c, e := addr(1), addr(2), addr(3), addr(4)
	valid := domain.OwnerSet{
		Owners: domain.OwnerList{
			{Address: a, Role: domain.OwnerRoleDevice},
			{Address: b, Role: domain.OwnerRolePaperWallet},
		},
		Threshold: 1,
	}

	tests := []struct {
		name     string
		current  domain.OwnerSet
		proposed domain.OwnerSet
		err      error
	}{
		{
			name: "too few owners",
			current: domain.OwnerSet{
				Owners:    domain.OwnerList{{Address: a, Role: domain.OwnerRoleDevice}},
				Threshold: 1,
			},
			proposed: valid,
			err:      domain.ErrUnsupportedOwnerCount,
		},
		{
			name:    "too many proposed owners",
			current: valid,
			proposed: domain.OwnerSet{
				Owners: domain.OwnerList{
					{Address: c, Role: domain.OwnerRoleDevice},
					{Address: b, Role: domain.OwnerRolePaperWallet},
					{Address: addr(10), Role: domain.OwnerRoleRecoveryContact},
					{Address: addr(11), Role: domain.OwnerRoleRecoveryContact},
					{Address: addr(12), Role: domain.OwnerRoleRecoveryContact},
					{Address: addr(13), Role: domain.OwnerRoleRecoveryContact},
				},
				Threshold: 1,
			},
			err: domain.ErrUnsupportedOwnerCount,
		},
		{
			name: "two devices",
			current: domain.OwnerSet{
				Owners: domain.OwnerList{
					{Address: a, Role: domain.OwnerRoleDevice},
					{Address: b, Role: domain.OwnerRoleDevice},
				},
				Threshold: 1,
			},
			proposed: valid,
			err:      domain.ErrUnsupportedWalletConfiguration,
		},
		{
			name: "unknown owner",
			current: domain.OwnerSet{
				Owners: domain.OwnerList{
					{Address: a, Role: domain.OwnerRoleDevice},
					{Address: b, Role: domain.OwnerRoleUnknown},
				},
				Threshold: 1,
			},
			proposed: valid,
			err:      domain.ErrUnsupportedWalletConfiguration,
		},
		{
			name:    "two authenticators",
			current: valid,
			proposed: domain.OwnerSet{
				Owners: domain.OwnerList{
					{Address: c, Role: domain.OwnerRoleDevice},
					{Address: b, Role: domain.OwnerRolePaperWallet},
					{Address: e, Role: domain.OwnerRoleKeycard},
					{Address: addr(9), Role: domain.OwnerRoleBrowserExtension},
				},
				Threshold: 2,
			},
			err: domain.ErrUnsupportedWalletConfiguration,
		},
		{
			name:    "duplicated proposed owner",
			current: valid,
			proposed: domain.OwnerSet{
				Owners: domain.OwnerList{
					{Address: c, Role: domain.OwnerRoleDevice},
					{Address: c, Role: domain.OwnerRolePaperWallet},
				},
				Threshold: 1,
			},
			err: domain.ErrFailedToChangeOwners,
		},
		{
			name:    "threshold above owner count",
			current: valid,
			proposed: domain.OwnerSet{
				Owners: domain.OwnerList{
					{Address: c, Role: domain.OwnerRoleDevice},
					{Address: b, Role: domain.OwnerRolePaperWallet},
				},
				Threshold: 3,
			},
			err: domain.ErrFailedToChangeConfirmationCount,
		},
		{
			name:    "zero threshold",
			current: valid,
			proposed: domain.OwnerSet{
				Owners: domain.OwnerList{
					{Address: c, Role: domain.OwnerRoleDevice},
					{Address: b, Role: domain.OwnerRolePaperWallet},
				},
				Threshold: 0,
			},
			err: domain.ErrFailedToChangeConfirmationCount,
		},
		{
			name:     "nothing to change",
			current:  valid,
			proposed: valid,
			err:      domain.ErrFailedToChangeOwners,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := domain.ValidateOwnerReplacement(tt.current, tt.proposed)
			require.ErrorIs(t, err, tt.err)
			require.Nil(t, plan)
		})
	}
}

// Every generated plan must keep 1 <= threshold <= owners at each step and
// end up with exactly the proposed set.
func TestOwnerChangePlanInvariants(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))

	for i := 0; i < 500; i++ {
		current := randomOwnerSet(rnd)
		proposed := randomOwnerSet(rnd)

		plan, err := domain.ValidateOwnerReplacement(current, proposed)
		if err != nil {
			require.ErrorIs(t, err, domain.ErrFailedToChangeOwners)
			require.True(t, current.Owners.SameOwners(proposed.Owners))
			require.Equal(t, current.Threshold, proposed.Threshold)
			continue
		}
		require.NoError(t, plan.Validate())

		removed, added := 0, 0
		for _, o := range current.Owners {
			if !proposed.Owners.Contains(o.Address) {
				removed++
			}
		}
		for _, o := range proposed.Owners {
			if !current.Owners.Contains(o.Address) {
				added++
			}
		}
		maxChanges := removed
		if added > maxChanges {
			maxChanges = added
		}
		require.LessOrEqual(t, len(plan.Changes), maxChanges+1)
	}
}

func TestOwnerChangePlanValidateDetectsBadPlans(t *testing.T) {
	a, b, c := addr(1), addr(2), addr(3)
	current := domain.OwnerSet{
		Owners: domain.OwnerList{
			{Address: a, Role: domain.OwnerRoleDevice},
			{Address: b, Role: domain.OwnerRolePaperWallet},
		},
		Threshold: 2,
	}
	proposed := domain.OwnerSet{
		Owners: domain.OwnerList{
			{Address: a, Role: domain.OwnerRoleDevice},
			{Address: c, Role: domain.OwnerRolePaperWallet},
		},
		Threshold: 2,
	}

	// removing before adding would leave 1 owner with threshold 2
	plan := &domain.OwnerChangePlan{
		Current:  current,
		Proposed: proposed,
		Changes: []domain.OwnerChange{
			{Type: domain.OwnerChangeRemoveOwner, PrevOwner: a, OldOwner: b, Threshold: 2},
			{Type: domain.OwnerChangeAddOwnerWithThreshold, NewOwner: c, Threshold: 2},
		},
	}
	require.ErrorIs(t, plan.Validate(), domain.ErrFailedToChangeConfirmationCount)

	// wrong linked list pointer
	plan.Changes = []domain.OwnerChange{
		{Type: domain.OwnerChangeSwapOwner, PrevOwner: domain.SentinelOwner, OldOwner: b, NewOwner: c},
	}
	require.ErrorIs(t, plan.Validate(), domain.ErrFailedToChangeOwners)

	plan.Changes = []domain.OwnerChange{
		{Type: domain.OwnerChangeSwapOwner, PrevOwner: a, OldOwner: b, NewOwner: c},
	}
	require.NoError(t, plan.Validate())
}

func randomOwnerSet(rnd *rand.Rand) domain.OwnerSet {
	count := domain.MinOwnerCount + rnd.Intn(domain.MaxOwnerCount-domain.MinOwnerCount+1)
	perm := rnd.Perm(8)

	owners := domain.OwnerList{
		{Address: addr(perm[0]), Role: domain.OwnerRoleDevice},
	}
	authRoles := []domain.OwnerRole{
		domain.OwnerRoleBrowserExtension,
		domain.OwnerRoleAuthenticator,
		domain.OwnerRoleKeycard,
	}
	hasAuth := false
	for i := 1; i < count; i++ {
		role := domain.RecoveryRole(i - 1)
		if !hasAuth && rnd.Intn(3) == 0 {
			role = authRoles[rnd.Intn(len(authRoles))]
			hasAuth = true
		}
		owners = append(owners, domain.Owner{Address: addr(perm[i]), Role: role})
	}
	return domain.OwnerSet{Owners: owners, Threshold: 1 + rnd.Intn(count)}
}
