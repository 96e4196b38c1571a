package ports

import "context"

// DeviceKeyProvider gives access to the owner key of this device that takes
// the place of the lost one when a wallet is recovered.
type DeviceKeyProvider interface {
	// DeviceAddress returns the address of the device key for the wallet.
	DeviceAddress(ctx context.Context, walletID string) (string, error)
}
