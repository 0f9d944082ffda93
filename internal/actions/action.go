package actions

import "context"

// Action is a single provisioning step.
type Action interface {
	// Describe returns a human-readable summary of the action.
	Describe() string
	// Run executes the action. When dryRun is true it only prints what would happen.
	// Run is safe to call when the action is already applied.
	Run(ctx context.Context, dryRun bool) error
}

// Idempotent is optionally implemented by actions that can self-check whether
// they have already been applied. The runner uses this for automatic skip logic.
//
// Idempotency contracts per action type:
//   - Installer: every dependency's presence probe succeeds.
//   - CertificateAction: both the certificate and the key file exist. Their
//     contents and expiry are not inspected.
//   - StaticSiteAction: the static root and its index file both exist.
//   - BuildAction: does not implement Idempotent; configuration always re-runs.
type Idempotent interface {
	// IsApplied returns true when the action's desired state is already in
	// place and the action can safely be skipped.
	IsApplied(ctx context.Context) (bool, error)
}
