// Package x402 implements the x402 payment protocol: pay-per-request HTTP
// using the 402 Payment Required status code and signed stablecoin transfer
// authorizations.
//
// A server advertises payment options in a 402 response; a client signs an
// EIP-3009 transfer authorization for one of them and retries the request
// with the signed payment in the X-PAYMENT header; the server verifies and
// settles the payment through a facilitator service and returns the
// protected resource together with a settlement receipt in the
// X-PAYMENT-RESPONSE header.
//
// This package holds the protocol types, the chain and token registry,
// price resolution, payment selection, and validation. Subpackages provide
// the moving parts:
//
//   - encoding: base64-framed JSON codec for headers
//   - evm: EIP-712 authorization signing for EVM chains
//   - http: client transport, server middleware, facilitator client
//   - http/gin, http/chi, http/pocketbase: framework adapters
//   - mcp: payment support for Model Context Protocol tool calls
//   - coinbase: Coinbase Developer Platform facilitator authentication
package x402
