// SPDX-License-Identifier: Apache-2.0

package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// DefaultTool is the tool name called on the oracle server.
const DefaultTool = "score_similarity"

// TransportFunc returns a fresh transport for each connection attempt.
type TransportFunc func() mcp.Transport

// CommandTransport launches command with args and speaks MCP over its stdio.
func CommandTransport(command string, args ...string) TransportFunc {
	return func() mcp.Transport {
		return &mcp.CommandTransport{Command: exec.Command(command, args...)}
	}
}

// MCPOptions configures an MCP oracle.
type MCPOptions struct {
	// Tool defaults to DefaultTool.
	Tool    string
	Version string
	Logger  *slog.Logger
}

// MCP delegates scoring to a score_similarity tool served over the Model
// Context Protocol. The session is opened on first use and reopened after a
// failed connection or a failed call.
type MCP struct {
	client    *mcp.Client
	transport TransportFunc
	tool      string
	logger    *slog.Logger

	mu      sync.Mutex
	session *mcp.ClientSession
}

// NewMCP creates an MCP oracle. No connection is made until Score is called.
func NewMCP(transport TransportFunc, opts MCPOptions) *MCP {
	if opts.Tool == "" {
		opts.Tool = DefaultTool
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &MCP{
		client:    mcp.NewClient(&mcp.Implementation{Name: "docdiff", Version: opts.Version}, nil),
		transport: transport,
		tool:      opts.Tool,
		logger:    opts.Logger,
	}
}

func (o *MCP) connect(ctx context.Context) (*mcp.ClientSession, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.session != nil {
		return o.session, nil
	}
	session, err := o.client.Connect(ctx, o.transport(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: connect: %w", ErrUnavailable, err)
	}
	o.logger.Debug("oracle session opened", "tool", o.tool)
	o.session = session
	return session, nil
}

func (o *MCP) Score(ctx context.Context, a, b string) (Result, error) {
	session, err := o.connect(ctx)
	if err != nil {
		return Result{}, deadline(ctx, err)
	}
	res, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      o.tool,
		Arguments: map[string]any{"text_a": a, "text_b": b},
	})
	if err != nil {
		if ctx.Err() == nil {
			o.drop(session)
		}
		return Result{}, deadline(ctx, fmt.Errorf("%w: call %s: %w", ErrUnavailable, o.tool, err))
	}
	if res.IsError {
		return Result{}, fmt.Errorf("%w: %s reported: %s", ErrUnavailable, o.tool, firstText(res))
	}
	return decodeResult(res)
}

// drop forgets session if it is still the current one, so the next call
// dials a fresh connection.
func (o *MCP) drop(session *mcp.ClientSession) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.session != session {
		return
	}
	o.session = nil
	if err := session.Close(); err != nil {
		o.logger.Debug("closing failed oracle session", "error", err)
	}
	o.logger.Debug("oracle session dropped", "tool", o.tool)
}

// Close ends the session if one is open.
func (o *MCP) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.session == nil {
		return nil
	}
	err := o.session.Close()
	o.session = nil
	return err
}

// deadline rewrites err as a timeout when ctx ran out of time.
func deadline(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return err
}

// decodeResult reads the structured tool output, falling back to the first
// text content for servers that only return text.
func decodeResult(res *mcp.CallToolResult) (Result, error) {
	var raw []byte
	if res.StructuredContent != nil {
		b, err := json.Marshal(res.StructuredContent)
		if err != nil {
			return Result{}, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
		}
		raw = b
	} else {
		raw = []byte(firstText(res))
	}

	var out struct {
		Similarity *float64 `json:"similarity"`
		Entities   []Entity `json:"entities"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	if out.Similarity == nil {
		return Result{}, fmt.Errorf("%w: missing similarity", ErrInvalidResponse)
	}
	return Result{Similarity: *out.Similarity, Entities: out.Entities}, nil
}

func firstText(res *mcp.CallToolResult) string {
	for _, c := range res.Content {
		if t, ok := c.(*mcp.TextContent); ok {
			return t.Text
		}
	}
	return ""
}

var _ Oracle = (*MCP)(nil)
