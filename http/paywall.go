package http

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/x402dev/x402-go"
)

// PaywallConfig customizes the browser paywall page.
type PaywallConfig struct {
	// CDPClientKey enables the embedded onramp widget.
	CDPClientKey string

	// AppName is shown in the paywall header.
	AppName string

	// AppLogo is a URL for the paywall header logo.
	AppLogo string

	// SessionTokenEndpoint is the host endpoint minting onramp session
	// tokens.
	SessionTokenEndpoint string
}

// IsBrowserRequest reports whether a request looks like it came from a
// browser rather than an API client. The heuristic is deliberately
// conservative: Accept must mention text/html and the User-Agent must
// mention Mozilla.
func IsBrowserRequest(accept, userAgent string) bool {
	return strings.Contains(accept, "text/html") && strings.Contains(userAgent, "Mozilla")
}

// CreateX402Config builds the window.x402 object the paywall page reads.
func CreateX402Config(errorMessage string, requirements []x402.PaymentRequirement, config *PaywallConfig) map[string]interface{} {
	amount := float64(0)
	currentURL := ""
	testnet := false

	if len(requirements) > 0 {
		first := requirements[0]
		// Display value assumes a 6-decimal stablecoin; unparseable
		// amounts render as 0 rather than breaking the page.
		if atomic, err := strconv.ParseFloat(first.MaxAmountRequired, 64); err == nil {
			amount = atomic / 1e6
		}
		currentURL = first.Resource
		testnet = first.Network == x402.NetworkBSCMainnet
	}

	if config == nil {
		config = &PaywallConfig{}
	}

	return map[string]interface{}{
		"amount":               amount,
		"paymentRequirements":  requirements,
		"testnet":              testnet,
		"currentUrl":           currentURL,
		"error":                errorMessage,
		"x402_version":         x402.X402Version,
		"cdpClientKey":         config.CDPClientKey,
		"appName":              config.AppName,
		"appLogo":              config.AppLogo,
		"sessionTokenEndpoint": config.SessionTokenEndpoint,
	}
}

// InjectPaymentData injects the window.x402 configuration script into an
// HTML page, immediately before the closing </head> tag.
func InjectPaymentData(html, errorMessage string, requirements []x402.PaymentRequirement, config *PaywallConfig) string {
	x402Config := CreateX402Config(errorMessage, requirements, config)

	encoded, err := json.Marshal(x402Config)
	if err != nil {
		// The config is built from marshalable types; this only fires on
		// hand-rolled requirements carrying unmarshalable Extra values.
		encoded = []byte("{}")
	}

	logOnTestnet := ""
	if testnet, _ := x402Config["testnet"].(bool); testnet {
		logOnTestnet = "\n    console.log('Payment requirements initialized:', window.x402);"
	}

	script := "\n  <script>\n    window.x402 = " + string(encoded) + ";" + logOnTestnet + "\n  </script>\n"
	return strings.Replace(html, "</head>", script+"</head>", 1)
}

// GetPaywallHTML renders the built-in paywall page with the payment data
// injected.
func GetPaywallHTML(errorMessage string, requirements []x402.PaymentRequirement, config *PaywallConfig) string {
	return InjectPaymentData(paywallTemplate, errorMessage, requirements, config)
}
