package mocks

import (
	"context"
	"errors"
	"sync"
)

// ForwardCall records one transfer attempt against the mock rail.
type ForwardCall struct {
	AccountID string
	Amount    int64
	Reference string
}

// MockPaymentRail is a test double for the rewards.PaymentRail interface. It
// records every call and can be told to fail the next N attempts, which is
// how the forwarder retry path is exercised.
type MockPaymentRail struct {
	mu        sync.Mutex
	calls     []ForwardCall
	failNext  int
	failAlway bool
}

// NewMockPaymentRail creates a new mock payment rail.
func NewMockPaymentRail() *MockPaymentRail {
	return &MockPaymentRail{}
}

// Forward records the transfer and fails if configured to.
func (m *MockPaymentRail) Forward(ctx context.Context, accountID string, amount int64, reference string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, ForwardCall{AccountID: accountID, Amount: amount, Reference: reference})
	if m.failAlway {
		return errors.New("rail unavailable")
	}
	if m.failNext > 0 {
		m.failNext--
		return errors.New("rail unavailable")
	}
	return nil
}

// FailNext makes the next n calls fail.
func (m *MockPaymentRail) FailNext(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = n
}

// FailAlways makes every call fail.
func (m *MockPaymentRail) FailAlways(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAlway = fail
}

// Calls returns a copy of the recorded calls.
func (m *MockPaymentRail) Calls() []ForwardCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ForwardCall, len(m.calls))
	copy(out, m.calls)
	return out
}
