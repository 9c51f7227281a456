package server

import (
	"fmt"
	"net/http"

	mcpproto "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/x402dev/x402-go"
	"github.com/x402dev/x402-go/mcp"
)

// X402Server bundles an mcp-go server with payment gating for selected
// tools.
type X402Server struct {
	mcpServer *mcpserver.MCPServer
	config    *Config
}

// NewX402Server creates an MCP server with x402 payment support.
func NewX402Server(name, version string, config *Config) *X402Server {
	if config == nil {
		config = &Config{}
	}
	if config.PaymentTools == nil {
		config.PaymentTools = make(map[string][]x402.PaymentRequirement)
	}

	return &X402Server{
		mcpServer: mcpserver.NewMCPServer(name, version),
		config:    config,
	}
}

// AddTool registers a free tool.
func (s *X402Server) AddTool(tool mcpproto.Tool, handler mcpserver.ToolHandlerFunc) {
	s.mcpServer.AddTool(tool, handler)
}

// AddPayableTool registers a payment-gated tool. Each requirement is
// validated and stamped with the tool's resource URL.
func (s *X402Server) AddPayableTool(tool mcpproto.Tool, handler mcpserver.ToolHandlerFunc, requirements ...x402.PaymentRequirement) error {
	if len(requirements) == 0 {
		return fmt.Errorf("tool %s: at least one payment requirement is required", tool.Name)
	}

	for i := range requirements {
		if err := requirements[i].Validate(); err != nil {
			return fmt.Errorf("tool %s: requirement %d: %w", tool.Name, i, err)
		}
		requirements[i].Resource = mcp.ToolResource(tool.Name)
	}

	s.config.AddPaymentTool(tool.Name, requirements...)
	s.mcpServer.AddTool(tool, handler)
	return nil
}

// Handler returns the payment-gated HTTP handler for the server.
func (s *X402Server) Handler() (http.Handler, error) {
	httpServer := mcpserver.NewStreamableHTTPServer(s.mcpServer)
	return NewX402Handler(httpServer, s.config)
}

// Start serves the payment-gated MCP server on addr.
func (s *X402Server) Start(addr string) error {
	handler, err := s.Handler()
	if err != nil {
		return err
	}
	return http.ListenAndServe(addr, handler)
}

// MCPServer exposes the underlying mcp-go server for advanced setup.
func (s *X402Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}
