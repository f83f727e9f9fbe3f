//go:generate go run go.uber.org/mock/mockgen -destination=mocks/provider_mock.go -package=mocks -source=interfaces.go
package capability

import "context"

// Provider is supplied by the host platform. Both calls may block on a
// device or service round-trip and should honour ctx.
type Provider interface {
	// QueryCapability asks the device / runtime whether AR can run.
	QueryCapability(ctx context.Context) (*RawResult, error)
	// RequestInstall starts the platform's install or update flow for the
	// AR runtime. It fails when no installation channel exists.
	RequestInstall(ctx context.Context) error
}
