package coinbase

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	x402http "github.com/x402dev/x402-go/http"
)

// CDPFacilitatorURL is Coinbase's hosted x402 facilitator.
const CDPFacilitatorURL = "https://api.cdp.coinbase.com/platform/v2/x402"

// HeaderProvider adapts the auth into the facilitator client's header
// hook: each operation gets a fresh Bearer JWT bound to its method and
// path under the given facilitator URL.
func (a *CDPAuth) HeaderProvider(facilitatorURL string) x402http.HeaderProvider {
	return func(ctx context.Context) (x402http.FacilitatorHeaders, error) {
		parsed, err := url.Parse(facilitatorURL)
		if err != nil {
			return x402http.FacilitatorHeaders{}, fmt.Errorf("invalid facilitator URL %q: %w", facilitatorURL, err)
		}
		basePath := strings.TrimSuffix(parsed.Path, "/")

		verify, err := a.bearer(http.MethodPost, parsed.Host, basePath+"/verify")
		if err != nil {
			return x402http.FacilitatorHeaders{}, err
		}
		settle, err := a.bearer(http.MethodPost, parsed.Host, basePath+"/settle")
		if err != nil {
			return x402http.FacilitatorHeaders{}, err
		}
		list, err := a.bearer(http.MethodGet, parsed.Host, basePath+"/discovery/resources")
		if err != nil {
			return x402http.FacilitatorHeaders{}, err
		}

		return x402http.FacilitatorHeaders{
			Verify: verify,
			Settle: settle,
			List:   list,
		}, nil
	}
}

func (a *CDPAuth) bearer(method, host, path string) (map[string]string, error) {
	token, err := a.GenerateJWT(method, host, path)
	if err != nil {
		return nil, err
	}
	return map[string]string{"Authorization": "Bearer " + token}, nil
}

// FacilitatorConfigFromEnv builds a config for Coinbase's facilitator
// from CDP_API_KEY_ID and CDP_API_KEY_SECRET. This is the only place the
// library reads the environment.
func FacilitatorConfigFromEnv() (*x402http.FacilitatorConfig, error) {
	keyID := os.Getenv("CDP_API_KEY_ID")
	keySecret := os.Getenv("CDP_API_KEY_SECRET")
	if keyID == "" || keySecret == "" {
		return nil, fmt.Errorf("CDP_API_KEY_ID and CDP_API_KEY_SECRET must be set")
	}

	auth, err := NewCDPAuth(keyID, keySecret)
	if err != nil {
		return nil, err
	}

	return &x402http.FacilitatorConfig{
		URL:           CDPFacilitatorURL,
		CreateHeaders: auth.HeaderProvider(CDPFacilitatorURL),
	}, nil
}
