// Package payment wraps the external payment gateway behind a small
// contract and keeps the per-ticket payment record in step with each
// charge attempt.  The gateway is a black box: it may be slow, it may
// decline, and repeated charges are not assumed to be idempotent, so
// the service never re-invokes it automatically after a failure.
package payment

import (
    "context"
    "errors"
    "log"
    "strings"
)

// ErrDeclined is returned when the gateway refuses the charge.  The
// caller surfaces the computed amount alongside the failure so the
// driver can be told what is due, and the ticket stays retryable.
var ErrDeclined = errors.New("payment declined by gateway")

// Gateway is the charge contract.  Charge either completes the
// payment or returns ErrDeclined; any other error is an
// infrastructure fault.
type Gateway interface {
    Charge(ctx context.Context, ticketID uint64, amountCents int64) error
}

// SimulatedGateway stands in for a real provider.  In "accept" mode
// every charge succeeds; in "decline" mode it refuses everything,
// which is how failure paths are exercised in development.
type SimulatedGateway struct {
    decline bool
}

// NewSimulatedGateway builds the simulator for the given mode
// (PAYMENT_GATEWAY_MODE in the environment).
func NewSimulatedGateway(mode string) *SimulatedGateway {
    mode = strings.ToLower(mode)
    if mode == "decline" {
        log.Printf("payment: simulated gateway running in decline mode")
    }
    return &SimulatedGateway{decline: mode == "decline"}
}

// Charge implements Gateway.
func (g *SimulatedGateway) Charge(ctx context.Context, ticketID uint64, amountCents int64) error {
    if g.decline {
        return ErrDeclined
    }
    return nil
}
