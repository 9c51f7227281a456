// Package gin adapts the x402 payment middleware to Gin. The adapter is a
// thin shim: all verification, settlement, and 402 rendering live in the
// http package.
package gin

import (
	"github.com/gin-gonic/gin"

	x402http "github.com/x402dev/x402-go/http"
)

// Middleware creates Gin middleware that gates matching routes behind
// payment. Verified payment details are exposed both through the request
// context accessors and via c.Get("x402_payment").
//
// Gin commits handler output directly to the connection, so settlement
// runs after c.Next() rather than before the first write. When the
// handler has already written a response and settlement then fails, the
// failure is logged and the response stands.
func Middleware(config x402http.Config) (gin.HandlerFunc, error) {
	m, err := x402http.NewMiddleware(config)
	if err != nil {
		return nil, err
	}

	return func(c *gin.Context) {
		if !m.Matches(c.Request.URL.Path) {
			c.Next()
			return
		}

		requirements := m.BuildRequirements(c.Request)

		payment, requirement, verify, perr := m.ProcessPayment(c.Request, requirements)
		if perr != nil {
			m.RespondPaymentRequired(c.Writer, c.Request, perr.Reason, requirements)
			c.Abort()
			return
		}

		c.Set("x402_payment", verify)
		c.Request = c.Request.WithContext(
			x402http.NewPaymentContext(c.Request.Context(), requirement, verify))

		c.Next()

		if c.Writer.Status() < 200 || c.Writer.Status() >= 300 {
			return
		}

		settlement, serr := m.SettlePayment(c.Request.Context(), payment, requirement)
		if serr != nil {
			if c.Writer.Written() {
				m.Logger().Error("settlement failed after response was written",
					"reason", serr.Reason, "path", c.Request.URL.Path)
				return
			}
			m.RespondPaymentRequired(c.Writer, c.Request, serr.Reason, requirements)
			c.Abort()
			return
		}

		if !c.Writer.Written() {
			if err := x402http.SetPaymentResponseHeader(c.Writer.Header(), settlement); err != nil {
				m.Logger().Warn("failed to attach payment response header", "error", err)
			}
		} else {
			m.Logger().Warn("response already written, payment receipt header dropped",
				"transaction", settlement.Transaction)
		}
	}, nil
}
