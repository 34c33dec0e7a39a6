// Package grid implements the variant quantity grid: the size/variant matrix
// on product pages whose inputs feed batch add-to-cart and whose price labels
// track quantity-break tiers.
package grid

import (
	"context"
	"log/slog"
	"strconv"

	"cart-engine/internal/model"
	"cart-engine/internal/pubsub"
	"cart-engine/internal/storefront"
	"cart-engine/internal/view"
)

// Cell binds one variant's row of the grid: its quantity input, its
// price-table cell, and the text nodes inside that cell. The cell carries the
// cart-confirmed quantity as a data-cartquantity attribute; the input carries
// the shopper's pending quantity.
type Cell struct {
	VariantID   int64
	InputID     string
	CellID      string
	QtyTextID   string
	PriceTextID string
	WrapperID   string
}

// Config configures a Grid.
type Config struct {
	Cells []Cell

	// Tiers are the quantity-break price tiers. Empty means flat pricing.
	Tiers []model.PriceTier

	// VariantPrice is the flat price in minor units, used when no tiers
	// are configured.
	VariantPrice int64
}

// Grid recomputes tier pricing whenever a quantity input changes or the cart
// itself moves. Tier selection runs over the combined quantity: confirmed
// cart contents plus pending inputs.
type Grid struct {
	view   view.View
	client *storefront.Client
	bus    *pubsub.Bus
	log    *slog.Logger
	cfg    Config

	unsub func()
}

// New creates a Grid bound to a view. Call Start to attach it to the bus.
func New(v view.View, client *storefront.Client, bus *pubsub.Bus, logger *slog.Logger, cfg Config) *Grid {
	return &Grid{
		view:   v,
		client: client,
		bus:    bus,
		log:    logger,
		cfg:    cfg,
	}
}

// Start subscribes the grid to cart updates so add-to-cart from any widget
// refreshes the confirmed quantities and repaints the tier pricing.
func (g *Grid) Start(ctx context.Context) {
	g.unsub = g.bus.Subscribe(pubsub.EventCartUpdate, func(pubsub.Event) {
		g.AfterRender(ctx)
	})
}

// Stop detaches the grid from the bus.
func (g *Grid) Stop() {
	if g.unsub != nil {
		g.unsub()
	}
}

// cartQuantity sums the cart-confirmed quantities stored on the price cells.
func (g *Grid) cartQuantity() int {
	total := 0
	for _, cell := range g.cfg.Cells {
		total += model.ParseQuantity(g.view.Attr(cell.CellID, "data-cartquantity"))
	}
	return total
}

// pendingQuantity sums the grid inputs, normalizing each displayed value to
// its integer form on the way (an emptied input counts as zero).
func (g *Grid) pendingQuantity() int {
	total := 0
	for _, cell := range g.cfg.Cells {
		qty := model.ParseQuantity(g.view.ReadField(cell.InputID))
		g.view.WriteField(cell.InputID, strconv.Itoa(qty))
		total += qty
	}
	return total
}

// OnQuantityChange handles an edit to one variant's input: it mirrors the
// value into the variant's price cell, toggles the cell's visibility, and
// repaints tier pricing against the combined quantity.
func (g *Grid) OnQuantityChange(variantID int64) {
	combined := g.cartQuantity()
	pending := g.pendingQuantity()
	combined += pending

	changedQty := 0
	for _, cell := range g.cfg.Cells {
		if cell.VariantID != variantID {
			continue
		}
		changedQty = model.ParseQuantity(g.view.ReadField(cell.InputID))
		if cell.CellID != "" {
			g.view.SetText(cell.QtyTextID, strconv.Itoa(changedQty))
			g.view.ToggleClass(cell.WrapperID, view.ClassOpacityZero, changedQty == 0)
		}
		break
	}

	if len(g.cfg.Tiers) > 0 {
		g.applyTiers(combined, pending, " - $")
		return
	}

	// Flat pricing: the provisional subtotal reflects only the edited input
	flat := model.FormatPrice(float64(g.cfg.VariantPrice) * float64(changedQty) / 100)
	if pending > 0 {
		g.view.SetText(view.IDTempSubtotal, " - $"+flat)
	} else {
		g.view.SetText(view.IDTempSubtotal, "")
	}
}

// IsoUpdate repaints tier pricing from the current cell attributes and input
// values without an edit event, after the cart re-renders.
func (g *Grid) IsoUpdate() {
	pending := g.pendingQuantity()
	g.applyTiers(g.cartQuantity()+pending, pending, "- $")
}

// applyTiers walks the tiers in configured order and applies every one whose
// threshold the combined quantity meets. The walk deliberately does not stop
// at the first match: with tiers listed ascending the last matching tier
// wins, which is the selection rule the price tables are authored against.
func (g *Grid) applyTiers(combined, pending int, subtotalPrefix string) {
	if pending == 0 {
		g.view.SetText(view.IDTempSubtotal, "")
		return
	}
	for _, tier := range g.cfg.Tiers {
		if combined < tier.Quantity {
			continue
		}
		subtotal := model.FormatPrice(float64(pending) * tier.Price)
		g.view.SetText(view.IDTempSubtotal, subtotalPrefix+subtotal)
		label := "$" + model.FormatPrice(tier.Price) + " "
		for _, cell := range g.cfg.Cells {
			if cell.PriceTextID != "" {
				g.view.SetText(cell.PriceTextID, label)
			}
		}
	}
}

// UpdateQuantities fetches the live cart and reconciles the grid's confirmed
// quantities: each price cell's data-cartquantity is set to the cart's
// quantity for that variant (zero when absent), then pricing repaints. An
// empty cart also resets the header bubble to its zero state.
func (g *Grid) UpdateQuantities(ctx context.Context) error {
	cart, err := g.client.GetCart(ctx)
	if err != nil {
		g.log.Error("cart fetch failed", "error", err)
		return err
	}

	if cart.ItemCount == 0 {
		g.view.ReplaceRegion(view.IDCartIconBubble, `Cart <span aria-hidden="true">&nbsp;(0)</span>`)
	}

	quantities := make(map[int64]int)
	for _, item := range cart.Items {
		quantities[item.VariantID] += item.Quantity
	}

	if g.hasPriceTable() {
		for _, cell := range g.cfg.Cells {
			g.view.SetAttr(cell.CellID, "data-cartquantity", strconv.Itoa(quantities[cell.VariantID]))
		}
		g.IsoUpdate()
		return nil
	}

	// No price table on this page: clear the provisional subtotal once every
	// input has drained to zero
	for _, cell := range g.cfg.Cells {
		if model.ParseQuantity(g.view.ReadField(cell.InputID)) > 0 {
			return nil
		}
	}
	g.view.SetText(view.IDTempSubtotal, "")
	return nil
}

func (g *Grid) hasPriceTable() bool {
	for _, cell := range g.cfg.Cells {
		if cell.CellID != "" && g.view.Exists(cell.CellID) {
			return true
		}
	}
	return false
}

// AfterRender is the post-render repaint: it clears the drawer's loading
// affordances, re-syncs each cell's visibility with its input, and then
// reconciles confirmed quantities from the live cart.
func (g *Grid) AfterRender(ctx context.Context) {
	g.view.AddClass(view.SpinnerID(view.IDCartDrawer), view.ClassHidden)
	g.view.AddClass(view.IDCartDrawer+" .loading__text", view.ClassHidden)
	g.view.RemoveClass(view.IDCartDrawer+" .totals", view.ClassHidden)
	g.view.RemoveClass(".price-swap", view.ClassHidden)

	for _, cell := range g.cfg.Cells {
		if cell.WrapperID == "" {
			continue
		}
		qty := model.ParseQuantity(g.view.ReadField(cell.InputID))
		g.view.ToggleClass(cell.WrapperID, view.ClassOpacityZero, qty == 0)
	}

	if err := g.UpdateQuantities(ctx); err != nil {
		g.log.Warn("grid reconcile failed", "error", err)
	}
}

// ResetInputs zeroes every grid input and fires the change path for each, so
// cell text, visibility and the provisional subtotal all drain. The product
// form calls this after a successful batch add.
func (g *Grid) ResetInputs() {
	for _, cell := range g.cfg.Cells {
		g.view.WriteField(cell.InputID, "0")
		g.OnQuantityChange(cell.VariantID)
	}
}

// StepQuantity adjusts one variant's input by delta, flooring at zero, and
// runs the change path. Steppers on the grid use this instead of raw writes.
func (g *Grid) StepQuantity(variantID int64, delta int) {
	for _, cell := range g.cfg.Cells {
		if cell.VariantID != variantID {
			continue
		}
		qty := model.ParseQuantity(g.view.ReadField(cell.InputID)) + delta
		if qty < 0 {
			qty = 0
		}
		g.view.WriteField(cell.InputID, strconv.Itoa(qty))
		g.OnQuantityChange(variantID)
		return
	}
}
