package domain

const (
	// MinOwnerCount and MaxOwnerCount bound the number of owners a recoverable
	// wallet can have, before and after the recovery.
	MinOwnerCount = 2
	MaxOwnerCount = 5

	// ZeroAddress identifies the native coin when used as token address.
	ZeroAddress = "0x0000000000000000000000000000000000000000"
	// SentinelOwner is the head of the owners linked list of a wallet contract.
	SentinelOwner = "0x0000000000000000000000000000000000000001"
)

var (
	// DefaultRecoveryPathComponents are the key path components used to
	// derive the recovery accounts from a phrase.
	DefaultRecoveryPathComponents = []string{"0", "1"}
)
