package wallet

import "context"

// Signer is the opaque wallet collaborator. It receives a hex-encoded PSBT
// and returns it signed, either partially (script-path signature slots
// populated) or fully finalized, both are handled by the payout signer.
// One call per signing request, no polling.
type Signer interface {
	SignPsbt(ctx context.Context, psbtHex string) (string, error)
}
