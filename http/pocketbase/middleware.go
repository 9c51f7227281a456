// Package pocketbase adapts the x402 payment middleware to PocketBase's
// router hook chain. The adapter is a thin shim: all verification,
// settlement, and 402 rendering live in the http package.
package pocketbase

import (
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/hook"

	x402http "github.com/x402dev/x402-go/http"
)

// PaymentStoreKey is the request-store key under which the facilitator's
// verify response is exposed to handlers:
//
//	verify := e.Get(pocketbase.PaymentStoreKey).(*x402http.VerifyResponse)
const PaymentStoreKey = "x402_payment"

// Middleware creates a PocketBase hook handler that gates matching routes
// behind payment:
//
//	se.Router.GET("/api/premium", handler).Bind(mw)
//
// PocketBase handlers write through e.Response, so the adapter swaps in a
// writer that holds the response open until settlement: the first 2xx
// status the handler commits triggers settle, a handler error or non-2xx
// status suppresses settlement entirely, and a settle failure turns into
// a 402 in place of the handler's output. OPTIONS requests bypass payment
// so CORS preflight never sees a 402.
func Middleware(config x402http.Config) (*hook.Handler[*core.RequestEvent], error) {
	fn, err := MiddlewareFunc(config)
	if err != nil {
		return nil, err
	}
	return &hook.Handler[*core.RequestEvent]{
		Id:   "x402",
		Func: fn,
	}, nil
}

// MiddlewareFunc is Middleware in the bare function form accepted by
// BindFunc.
func MiddlewareFunc(config x402http.Config) (func(*core.RequestEvent) error, error) {
	m, err := x402http.NewMiddleware(config)
	if err != nil {
		return nil, err
	}

	return func(e *core.RequestEvent) error {
		if e.Request.Method == "OPTIONS" || !m.Matches(e.Request.URL.Path) {
			return e.Next()
		}

		requirements := m.BuildRequirements(e.Request)

		payment, requirement, verify, perr := m.ProcessPayment(e.Request, requirements)
		if perr != nil {
			m.RespondPaymentRequired(e.Response, e.Request, perr.Reason, requirements)
			return nil
		}

		e.Set(PaymentStoreKey, verify)
		e.Request = e.Request.WithContext(
			x402http.NewPaymentContext(e.Request.Context(), requirement, verify))

		w := e.Response
		e.Response = x402http.NewSettlementWriter(w,
			func() bool {
				settlement, serr := m.SettlePayment(e.Request.Context(), payment, requirement)
				if serr != nil {
					m.RespondPaymentRequired(w, e.Request, serr.Reason, requirements)
					return false
				}
				if err := x402http.SetPaymentResponseHeader(w.Header(), settlement); err != nil {
					m.Logger().Warn("failed to attach payment response header", "error", err)
				}
				return true
			},
			func(status int) {
				m.Logger().Warn("handler returned non-success status, skipping settlement", "status", status)
			},
		)

		return e.Next()
	}, nil
}
