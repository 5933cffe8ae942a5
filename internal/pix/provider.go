package pix

import (
	"context"

	"github.com/shopspring/decimal"
)

// ChargeStatus is the provider-side status of a charge or transfer
type ChargeStatus string

const (
	ChargeStatusPending   ChargeStatus = "PENDING"
	ChargeStatusPaid      ChargeStatus = "PAID"
	ChargeStatusFailed    ChargeStatus = "FAILED"
	ChargeStatusCancelled ChargeStatus = "CANCELLED"
)

// Charge is the provider's view of a payment request
type Charge struct {
	ProviderTxID string
	Status       ChargeStatus
	FailReason   string
}

// PaymentProvider abstracts the external PIX payment provider. The
// production implementation calls the provider's REST API; tests use
// StubProvider so no production code path depends on random outcomes.
type PaymentProvider interface {
	// CreateCharge registers a deposit charge and returns the provider id
	CreateCharge(ctx context.Context, reference string, amount decimal.Decimal, pixKey string) (*Charge, error)
	// CreateTransfer initiates an outbound transfer to the given key
	CreateTransfer(ctx context.Context, reference string, amount decimal.Decimal, pixKey, pixKeyType string) (*Charge, error)
	// GetStatus fetches the current status of a charge or transfer
	GetStatus(ctx context.Context, providerTxID string) (*Charge, error)
}

// StubProvider is a deterministic PaymentProvider for tests and local
// development. Outcomes are scripted per reference, default PENDING.
type StubProvider struct {
	Outcomes map[string]ChargeStatus
}

func NewStubProvider() *StubProvider {
	return &StubProvider{Outcomes: make(map[string]ChargeStatus)}
}

func (p *StubProvider) CreateCharge(ctx context.Context, reference string, amount decimal.Decimal, pixKey string) (*Charge, error) {
	return &Charge{ProviderTxID: "stub-" + reference, Status: ChargeStatusPending}, nil
}

func (p *StubProvider) CreateTransfer(ctx context.Context, reference string, amount decimal.Decimal, pixKey, pixKeyType string) (*Charge, error) {
	return &Charge{ProviderTxID: "stub-" + reference, Status: ChargeStatusPending}, nil
}

func (p *StubProvider) GetStatus(ctx context.Context, providerTxID string) (*Charge, error) {
	ref := providerTxID
	if len(ref) > 5 && ref[:5] == "stub-" {
		ref = ref[5:]
	}
	if status, ok := p.Outcomes[ref]; ok {
		return &Charge{ProviderTxID: providerTxID, Status: status}, nil
	}
	return &Charge{ProviderTxID: providerTxID, Status: ChargeStatusPending}, nil
}
