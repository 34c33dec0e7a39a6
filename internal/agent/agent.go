// Package agent exposes cart operations as MCP tools using the official MCP
// Go SDK, so assistants can read and mutate a shopper's cart through the same
// storefront client the interactive controllers use.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"cart-engine/internal/model"
	"cart-engine/internal/storefront"
)

// Agent holds the dependencies the MCP tools run against.
type Agent struct {
	client *storefront.Client
	logger *slog.Logger
}

// New creates an Agent bound to one storefront.
func New(client *storefront.Client, logger *slog.Logger) *Agent {
	return &Agent{client: client, logger: logger}
}

// === Tool Input/Output Types ===

// GetCartInput is the input schema for the get_cart tool.
type GetCartInput struct{}

// AddItemInput is one variant to add.
type AddItemInput struct {
	VariantID int64 `json:"variant_id" jsonschema:"variant ID to add,required"`
	Quantity  int   `json:"quantity" jsonschema:"quantity to add,required"`
}

// AddToCartInput is the input schema for the add_to_cart tool.
type AddToCartInput struct {
	Items []AddItemInput `json:"items" jsonschema:"items to add,required"`
}

// UpdateLineInput is the input schema for the update_line_quantity tool.
type UpdateLineInput struct {
	Line     int `json:"line" jsonschema:"1-based cart line number,required"`
	Quantity int `json:"quantity" jsonschema:"new quantity; 0 removes the line,required"`
}

// SetNoteInput is the input schema for the set_cart_note tool.
type SetNoteInput struct {
	Note string `json:"note" jsonschema:"cart note text,required"`
}

// NoteResult reports a note update back to the caller.
type NoteResult struct {
	OK bool `json:"ok"`
}

// GetProductInput is the input schema for the get_product tool.
type GetProductInput struct {
	ID string `json:"id" jsonschema:"product ID or handle,required"`
}

// NewMCPServer creates an MCP server with the cart tools registered.
func (a *Agent) NewMCPServer() *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "cart-engine",
			Version: "1.0.0",
		},
		&mcp.ServerOptions{
			Instructions: "Storefront cart operations. Use these tools to inspect the cart, " +
				"add variants, change line quantities, and look up products.",
		},
	)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_cart",
		Description: "Get the current cart: line items, quantities, note, and totals.",
	}, a.mcpGetCart)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_to_cart",
		Description: "Add one or more variants to the cart. Quantities must be positive.",
	}, a.mcpAddToCart)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_line_quantity",
		Description: "Set the quantity of an existing cart line. Quantity 0 removes the line.",
	}, a.mcpUpdateLine)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "set_cart_note",
		Description: "Set the cart note.",
	}, a.mcpSetNote)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_product",
		Description: "Look up a product by ID or handle, including its variants and availability.",
	}, a.mcpGetProduct)

	return server
}

// NewMCPHandler returns an HTTP handler for the MCP endpoint.
// Mount this at /mcp on your mux.
func (a *Agent) NewMCPHandler() http.Handler {
	server := a.NewMCPServer()
	return mcp.NewStreamableHTTPHandler(
		func(r *http.Request) *mcp.Server { return server },
		nil,
	)
}

// === Tool Handlers ===

func (a *Agent) mcpGetCart(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input GetCartInput,
) (*mcp.CallToolResult, *model.CartState, error) {
	cart, err := a.client.GetCart(ctx)
	if err != nil {
		return nil, nil, a.mcpError(err)
	}
	return nil, cart, nil
}

func (a *Agent) mcpAddToCart(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input AddToCartInput,
) (*mcp.CallToolResult, *model.CartState, error) {
	if len(input.Items) == 0 {
		return nil, nil, fmt.Errorf("items is required")
	}
	items := make([]model.AddItem, len(input.Items))
	for i, item := range input.Items {
		if item.VariantID <= 0 {
			return nil, nil, fmt.Errorf("items[%d].variant_id must be positive", i)
		}
		if item.Quantity <= 0 {
			return nil, nil, fmt.Errorf("items[%d].quantity must be positive", i)
		}
		items[i] = model.AddItem{ID: item.VariantID, Quantity: item.Quantity}
	}

	cart, err := a.client.AddItems(ctx, storefront.AddRequest{Items: items})
	if err != nil {
		return nil, nil, a.mcpError(err)
	}
	return nil, cart, nil
}

func (a *Agent) mcpUpdateLine(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input UpdateLineInput,
) (*mcp.CallToolResult, *model.CartState, error) {
	if input.Line < 1 {
		return nil, nil, fmt.Errorf("line must be at least 1")
	}
	if input.Quantity < 0 {
		return nil, nil, fmt.Errorf("quantity must not be negative")
	}

	cart, err := a.client.ChangeCart(ctx, storefront.ChangeRequest{
		Line:     input.Line,
		Quantity: input.Quantity,
	})
	if err != nil {
		return nil, nil, a.mcpError(err)
	}
	// The storefront reports stock-limit pushback in-band
	if cart.Errors != "" {
		return nil, nil, fmt.Errorf("SERVER_REJECTION: %s", cart.Errors)
	}
	return nil, cart, nil
}

func (a *Agent) mcpSetNote(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input SetNoteInput,
) (*mcp.CallToolResult, *NoteResult, error) {
	if err := a.client.UpdateNote(ctx, input.Note); err != nil {
		return nil, nil, a.mcpError(err)
	}
	return nil, &NoteResult{OK: true}, nil
}

func (a *Agent) mcpGetProduct(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input GetProductInput,
) (*mcp.CallToolResult, *model.Product, error) {
	if input.ID == "" {
		return nil, nil, fmt.Errorf("id is required")
	}
	product, err := a.client.GetProduct(ctx, input.ID)
	if err != nil {
		return nil, nil, a.mcpError(err)
	}
	return nil, product, nil
}

// mcpError converts client errors to MCP-friendly errors.
func (a *Agent) mcpError(err error) error {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s: %s", apiErr.Code, apiErr.Message)
	}
	// Don't leak internal error details
	a.logger.Error("mcp internal error", "error", err.Error())
	return fmt.Errorf("internal error")
}
