package x402

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestGetChainID(t *testing.T) {
	tests := []struct {
		name    string
		network string
		want    string
		wantErr bool
	}{
		{"base", "base", "8453", false},
		{"bsc-mainnet", "bsc-mainnet", "84532", false},
		{"avalanche-fuji", "avalanche-fuji", "43113", false},
		{"avalanche", "avalanche", "43114", false},
		{"numeric passthrough", "84532", "84532", false},
		{"numeric passthrough arbitrary", "1", "1", false},
		{"unknown network", "ethereum", "", true},
		{"empty", "", "", true},
		{"mixed alphanumeric", "84532x", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := GetChainID(tt.network)
			if (err != nil) != tt.wantErr {
				t.Fatalf("GetChainID(%q) error = %v, wantErr %v", tt.network, err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrUnsupportedNetwork) {
					t.Errorf("GetChainID(%q) error = %v, want ErrUnsupportedNetwork", tt.network, err)
				}
				return
			}
			if got != tt.want {
				t.Errorf("GetChainID(%q) = %s, want %s", tt.network, got, tt.want)
			}
		})
	}
}

func TestSupportedNetworks(t *testing.T) {
	want := []string{"avalanche", "avalanche-fuji", "base", "bsc-mainnet"}
	got := SupportedNetworks()
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SupportedNetworks() = %v, want %v", got, want)
	}

	for _, network := range want {
		if !IsSupportedNetwork(network) {
			t.Errorf("IsSupportedNetwork(%q) = false, want true", network)
		}
	}
	if IsSupportedNetwork("8453") {
		t.Error("IsSupportedNetwork should not accept raw chain IDs")
	}
}

func TestDefaultToken(t *testing.T) {
	tests := []struct {
		network     string
		wantAddress string
		wantName    string
		wantVersion string
	}{
		{"base", "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913", "USD Coin", "2"},
		{"bsc-mainnet", "0x036CbD53842c5426634e7929541eC2318f3dCF7e", "USDC", "2"},
		{"avalanche-fuji", "0x5425890298aed601595a70AB815c96711a31Bc65", "USD Coin", "2"},
		{"avalanche", "0xB97EF9Ef8734C71904D8002F8b6Bc66Dd9c48a6E", "USDC", "2"},
	}

	for _, tt := range tests {
		t.Run(tt.network, func(t *testing.T) {
			tok, err := DefaultToken(tt.network)
			if err != nil {
				t.Fatalf("DefaultToken(%q) error = %v", tt.network, err)
			}
			if tok.Address != tt.wantAddress {
				t.Errorf("Address = %s, want %s", tok.Address, tt.wantAddress)
			}
			if tok.Name != tt.wantName {
				t.Errorf("Name = %s, want %s", tok.Name, tt.wantName)
			}
			if tok.Version != tt.wantVersion {
				t.Errorf("Version = %s, want %s", tok.Version, tt.wantVersion)
			}
			if tok.Decimals != 6 {
				t.Errorf("Decimals = %d, want 6", tok.Decimals)
			}
			if tok.HumanName != "usdc" {
				t.Errorf("HumanName = %s, want usdc", tok.HumanName)
			}
		})
	}

	t.Run("unknown network", func(t *testing.T) {
		if _, err := DefaultToken("ethereum"); !errors.Is(err, ErrUnsupportedNetwork) {
			t.Errorf("error = %v, want ErrUnsupportedNetwork", err)
		}
	})

	t.Run("unknown chain id", func(t *testing.T) {
		if _, err := DefaultToken("1"); !errors.Is(err, ErrUnknownToken) {
			t.Errorf("error = %v, want ErrUnknownToken", err)
		}
	})
}

func TestTokenByAddress(t *testing.T) {
	t.Run("exact case", func(t *testing.T) {
		tok, err := TokenByAddress("base", "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913")
		if err != nil {
			t.Fatalf("TokenByAddress() error = %v", err)
		}
		if tok.Name != "USD Coin" {
			t.Errorf("Name = %s, want USD Coin", tok.Name)
		}
	})

	t.Run("case-insensitive", func(t *testing.T) {
		tok, err := TokenByAddress("base", "0X833589FCD6EDB6E08F4C7C32D4F71B54BDA02913")
		if err != nil {
			t.Fatalf("TokenByAddress() error = %v", err)
		}
		if tok.Decimals != 6 {
			t.Errorf("Decimals = %d, want 6", tok.Decimals)
		}
	})

	t.Run("unknown address", func(t *testing.T) {
		_, err := TokenByAddress("base", "0x0000000000000000000000000000000000000000")
		if !errors.Is(err, ErrUnknownToken) {
			t.Errorf("error = %v, want ErrUnknownToken", err)
		}
	})
}

func TestTokenByName(t *testing.T) {
	tok, err := TokenByName("bsc-mainnet", "usdc")
	if err != nil {
		t.Fatalf("TokenByName() error = %v", err)
	}
	if tok.Address != "0x036CbD53842c5426634e7929541eC2318f3dCF7e" {
		t.Errorf("Address = %s", tok.Address)
	}

	if _, err := TokenByName("bsc-mainnet", "dai"); !errors.Is(err, ErrUnknownToken) {
		t.Errorf("error = %v, want ErrUnknownToken", err)
	}
}

func TestKnownTokenAsset(t *testing.T) {
	tok, err := DefaultToken("base")
	if err != nil {
		t.Fatalf("DefaultToken() error = %v", err)
	}

	asset := tok.Asset()
	if asset.Address != tok.Address {
		t.Errorf("Address = %s, want %s", asset.Address, tok.Address)
	}
	if asset.Decimals != 6 {
		t.Errorf("Decimals = %d, want 6", asset.Decimals)
	}
	if asset.EIP712.Name != "USD Coin" || asset.EIP712.Version != "2" {
		t.Errorf("EIP712 = %+v", asset.EIP712)
	}
}

func TestNewUSDCTokenConfig(t *testing.T) {
	tests := []struct {
		network  string
		priority int
	}{
		{"base", 1},
		{"bsc-mainnet", 2},
		{"avalanche", 1},
		{"avalanche-fuji", 3},
	}

	for _, tt := range tests {
		t.Run(tt.network, func(t *testing.T) {
			token, err := NewUSDCTokenConfig(tt.network, tt.priority)
			if err != nil {
				t.Fatalf("NewUSDCTokenConfig() error = %v", err)
			}

			want, _ := DefaultToken(tt.network)
			if token.Address != want.Address {
				t.Errorf("Address = %s, want %s", token.Address, want.Address)
			}
			if token.Symbol != "USDC" {
				t.Errorf("Symbol = %s, want USDC", token.Symbol)
			}
			if token.Decimals != 6 {
				t.Errorf("Decimals = %d, want 6", token.Decimals)
			}
			if token.Priority != tt.priority {
				t.Errorf("Priority = %d, want %d", token.Priority, tt.priority)
			}
		})
	}

	t.Run("unknown network", func(t *testing.T) {
		if _, err := NewUSDCTokenConfig("ethereum", 1); err == nil {
			t.Fatal("expected error for unknown network")
		}
	})
}

func TestNewUSDCPaymentRequirementValidInputs(t *testing.T) {
	tests := []struct {
		name          string
		config        USDCRequirementConfig
		wantAsset     string
		wantMaxAmount string
	}{
		{
			name: "Base_1USDC",
			config: USDCRequirementConfig{
				Network:          "base",
				Amount:           "1.0",
				RecipientAddress: "0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb0",
			},
			wantAsset:     "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
			wantMaxAmount: "1000000",
		},
		{
			name: "BSCMainnet_0.001USDC",
			config: USDCRequirementConfig{
				Network:          "bsc-mainnet",
				Amount:           "0.001",
				RecipientAddress: "0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb0",
			},
			wantAsset:     "0x036CbD53842c5426634e7929541eC2318f3dCF7e",
			wantMaxAmount: "1000",
		},
		{
			name: "Avalanche_100USDC",
			config: USDCRequirementConfig{
				Network:          "avalanche",
				Amount:           "100",
				RecipientAddress: "0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb0",
			},
			wantAsset:     "0xB97EF9Ef8734C71904D8002F8b6Bc66Dd9c48a6E",
			wantMaxAmount: "100000000",
		},
		{
			name: "AvalancheFuji_999.999999USDC",
			config: USDCRequirementConfig{
				Network:          "avalanche-fuji",
				Amount:           "999.999999",
				RecipientAddress: "0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb0",
			},
			wantAsset:     "0x5425890298aed601595a70AB815c96711a31Bc65",
			wantMaxAmount: "999999999",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := NewUSDCPaymentRequirement(tt.config)
			if err != nil {
				t.Fatalf("NewUSDCPaymentRequirement() error = %v", err)
			}

			if req.Network != tt.config.Network {
				t.Errorf("Network = %s, want %s", req.Network, tt.config.Network)
			}
			if req.Asset != tt.wantAsset {
				t.Errorf("Asset = %s, want %s", req.Asset, tt.wantAsset)
			}
			if req.MaxAmountRequired != tt.wantMaxAmount {
				t.Errorf("MaxAmountRequired = %s, want %s", req.MaxAmountRequired, tt.wantMaxAmount)
			}
			if req.Scheme != "exact" {
				t.Errorf("Scheme = %s, want exact", req.Scheme)
			}
			if req.MaxTimeoutSeconds != 300 {
				t.Errorf("MaxTimeoutSeconds = %d, want 300", req.MaxTimeoutSeconds)
			}
			if req.MimeType != "application/json" {
				t.Errorf("MimeType = %s, want application/json", req.MimeType)
			}
			if len(req.Extra) == 0 {
				t.Error("Extra is empty, expected EIP-712 domain parameters")
			}
		})
	}
}

func TestNewUSDCPaymentRequirementDomainExtra(t *testing.T) {
	tests := []struct {
		network     string
		wantName    string
		wantVersion string
	}{
		{"base", "USD Coin", "2"},
		{"bsc-mainnet", "USDC", "2"},
		{"avalanche-fuji", "USD Coin", "2"},
		{"avalanche", "USDC", "2"},
	}

	for _, tt := range tests {
		t.Run(tt.network, func(t *testing.T) {
			req, err := NewUSDCPaymentRequirement(USDCRequirementConfig{
				Network:          tt.network,
				Amount:           "1.0",
				RecipientAddress: "0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb0",
			})
			if err != nil {
				t.Fatalf("NewUSDCPaymentRequirement() error = %v", err)
			}

			if req.Extra == nil {
				t.Fatal("Extra is nil, expected EIP-712 domain parameters")
			}
			if name, _ := req.Extra["name"].(string); name != tt.wantName {
				t.Errorf("Extra[name] = %v, want %s", req.Extra["name"], tt.wantName)
			}
			if version, _ := req.Extra["version"].(string); version != tt.wantVersion {
				t.Errorf("Extra[version] = %v, want %s", req.Extra["version"], tt.wantVersion)
			}
		})
	}
}

func TestNewUSDCPaymentRequirementAmountConversion(t *testing.T) {
	tests := []struct {
		name       string
		amount     string
		wantAtomic string
	}{
		{"1.5_USDC", "1.5", "1500000"},
		{"10.50_USDC", "10.50", "10500000"},
		{"0.123456_USDC", "0.123456", "123456"},
		{"dollar_prefix", "$2.00", "2000000"},
		{"sub_atomic_truncated", "0.0000015", "1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := NewUSDCPaymentRequirement(USDCRequirementConfig{
				Network:          "base",
				Amount:           tt.amount,
				RecipientAddress: "0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb0",
			})
			if err != nil {
				t.Fatalf("NewUSDCPaymentRequirement() error = %v", err)
			}

			if req.MaxAmountRequired != tt.wantAtomic {
				t.Errorf("MaxAmountRequired = %s, want %s", req.MaxAmountRequired, tt.wantAtomic)
			}
		})
	}
}

func TestNewUSDCPaymentRequirementZeroAmounts(t *testing.T) {
	tests := []struct {
		name   string
		amount string
	}{
		{"Zero", "0"},
		{"Zero_Decimal", "0.0"},
		{"Zero_SixDecimals", "0.000000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := NewUSDCPaymentRequirement(USDCRequirementConfig{
				Network:          "base",
				Amount:           tt.amount,
				RecipientAddress: "0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb0",
			})
			if err != nil {
				t.Fatalf("NewUSDCPaymentRequirement() error = %v, want nil", err)
			}

			if req.MaxAmountRequired != "0" {
				t.Errorf("MaxAmountRequired = %s, want 0", req.MaxAmountRequired)
			}
		})
	}
}

func TestNewUSDCPaymentRequirementErrors(t *testing.T) {
	tests := []struct {
		name         string
		config       USDCRequirementConfig
		wantContains string
	}{
		{
			name: "NegativeAmount",
			config: USDCRequirementConfig{
				Network:          "base",
				Amount:           "-5",
				RecipientAddress: "0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb0",
			},
			wantContains: "amount",
		},
		{
			name: "EmptyRecipient",
			config: USDCRequirementConfig{
				Network:          "base",
				Amount:           "1.0",
				RecipientAddress: "",
			},
			wantContains: "recipientAddress: cannot be empty",
		},
		{
			name: "InvalidAmount",
			config: USDCRequirementConfig{
				Network:          "base",
				Amount:           "abc",
				RecipientAddress: "0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb0",
			},
			wantContains: "amount",
		},
		{
			name: "UnknownNetwork",
			config: USDCRequirementConfig{
				Network:          "ethereum",
				Amount:           "1.0",
				RecipientAddress: "0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb0",
			},
			wantContains: "unsupported network",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewUSDCPaymentRequirement(tt.config)
			if err == nil {
				t.Fatal("NewUSDCPaymentRequirement() error = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantContains) {
				t.Errorf("error = %v, want to contain %q", err, tt.wantContains)
			}
		})
	}
}

func TestNewUSDCPaymentRequirementCustomConfig(t *testing.T) {
	req, err := NewUSDCPaymentRequirement(USDCRequirementConfig{
		Network:           "base",
		Amount:            "5.0",
		RecipientAddress:  "0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb0",
		Resource:          "https://api.example.com/reports",
		Description:       "Report access",
		Scheme:            "estimate",
		MaxTimeoutSeconds: 600,
		MimeType:          "text/plain",
	})
	if err != nil {
		t.Fatalf("NewUSDCPaymentRequirement() error = %v", err)
	}

	if req.Scheme != "estimate" {
		t.Errorf("Scheme = %s, want estimate", req.Scheme)
	}
	if req.MaxTimeoutSeconds != 600 {
		t.Errorf("MaxTimeoutSeconds = %d, want 600", req.MaxTimeoutSeconds)
	}
	if req.MimeType != "text/plain" {
		t.Errorf("MimeType = %s, want text/plain", req.MimeType)
	}
	if req.Resource != "https://api.example.com/reports" {
		t.Errorf("Resource = %s", req.Resource)
	}
	if req.Description != "Report access" {
		t.Errorf("Description = %s", req.Description)
	}
}
