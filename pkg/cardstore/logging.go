package cardstore

import "context"

// ServiceOption configures a Service instance.
type ServiceOption func(*Service)

// OperationLogger records domain-level events emitted by Service operations.
type OperationLogger interface {
	LogOperation(ctx context.Context, entry OperationLog)
}

// OperationLog describes a state-changing account operation.
type OperationLog struct {
	Operation string
	AccountID AccountID
	Amount    BalanceCents
	Status    string
	Error     error
}

// WithOperationLogger wires a logger that receives callbacks for every
// operation.
func WithOperationLogger(logger OperationLogger) ServiceOption {
	return func(service *Service) {
		service.logger = logger
	}
}

// WithRemoteLedger wires the optional remote counterpart. Mutating
// operations push to it best-effort; a push failure never fails the local
// operation.
func WithRemoteLedger(remote RemoteLedger) ServiceOption {
	return func(service *Service) {
		service.remote = remote
	}
}
