// Package cart implements the cart-side widgets: the line-items controller
// that drives quantity changes and section re-rendering, and the debounced
// cart note.
package cart

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"cart-engine/internal/config"
	"cart-engine/internal/debounce"
	"cart-engine/internal/model"
	"cart-engine/internal/pubsub"
	"cart-engine/internal/sections"
	"cart-engine/internal/storefront"
	"cart-engine/internal/view"
)

// Scope selects which of the two cart surfaces a controller is bound to.
// Main cart and drawer carry parallel element id sets.
type Scope int

const (
	ScopeMain Scope = iota
	ScopeDrawer
)

const (
	// SourceTag is the source both cart surfaces publish under. Subscribers
	// drop events carrying their own tag, so cart controllers never refresh
	// off each other's broadcasts, only off the product form's.
	SourceTag = "cart-items"

	defaultDebounceDelay   = 300 * time.Millisecond
	defaultLiveRegionDelay = time.Second
)

// DefaultSections returns the main cart's section descriptors: the regions
// re-rendered after every line mutation.
func DefaultSections() []model.SectionDescriptor {
	return []model.SectionDescriptor{
		{ID: "main-cart-items", Section: "main-cart-items", Selector: ".js-contents"},
		{ID: "cart-icon-bubble", Section: "cart-icon-bubble", Selector: ".shopify-section"},
		{ID: "cart-live-region-text", Section: "cart-live-region-text", Selector: ".shopify-section"},
		{ID: "main-cart-footer", Section: "main-cart-footer", Selector: ".js-contents"},
	}
}

// ItemsConfig configures an Items controller.
type ItemsConfig struct {
	Scope    Scope
	Sections []model.SectionDescriptor
	Strings  config.CartStrings

	// SectionsURL is the page path sent with change requests.
	SectionsURL string

	// DebounceDelay is the quiet window for quantity-input changes.
	DebounceDelay time.Duration
	// LiveRegionDelay is how long the status live region stays announced.
	LiveRegionDelay time.Duration
}

func (c ItemsConfig) withDefaults() ItemsConfig {
	if len(c.Sections) == 0 {
		c.Sections = DefaultSections()
	}
	if c.SectionsURL == "" {
		c.SectionsURL = "/cart"
	}
	if c.DebounceDelay == 0 {
		c.DebounceDelay = defaultDebounceDelay
	}
	if c.LiveRegionDelay == 0 {
		c.LiveRegionDelay = defaultLiveRegionDelay
	}
	return c
}

// pendingChange is the latest not-yet-flushed quantity edit. Rapid edits
// overwrite it; only the last one reaches the network.
type pendingChange struct {
	line      int
	value     string
	fieldName string
	variantID int64
}

// Items is the cart line-item controller. Per pending operation it walks
// Idle → Loading → (Success | Error) → Idle, always re-enabling the cart
// region on the way out.
type Items struct {
	view   view.View
	client *storefront.Client
	bus    *pubsub.Bus
	log    *slog.Logger
	cfg    ItemsConfig

	deb   *debounce.Debouncer
	unsub func()

	mu        sync.Mutex
	ctx       context.Context
	pending   pendingChange
	itemCount int // last known line count, -1 until the first round trip
	liveTimer *time.Timer
}

// NewItems creates an Items controller bound to a view. Call Start to attach
// it to the bus.
func NewItems(v view.View, client *storefront.Client, bus *pubsub.Bus, logger *slog.Logger, cfg ItemsConfig) *Items {
	c := &Items{
		view:      v,
		client:    client,
		bus:       bus,
		log:       logger,
		cfg:       cfg.withDefaults(),
		itemCount: -1,
		ctx:       context.Background(),
	}
	c.deb = debounce.New(c.cfg.DebounceDelay, c.flushChange)
	return c
}

// Start subscribes the controller to cart-update events. The pairing with
// Stop is mandatory; a stopped controller must not hold a live subscription.
func (c *Items) Start(ctx context.Context) {
	c.mu.Lock()
	c.ctx = ctx
	c.mu.Unlock()

	c.unsub = c.bus.Subscribe(pubsub.EventCartUpdate, func(e pubsub.Event) {
		if e.Source == SourceTag {
			return
		}
		if e.Cart != nil {
			c.mu.Lock()
			c.itemCount = len(e.Cart.Items)
			c.mu.Unlock()
		}
		c.OnCartUpdate(ctx)
	})
}

// Stop detaches the controller from the bus and cancels pending work.
// Safe to call more than once.
func (c *Items) Stop() {
	if c.unsub != nil {
		c.unsub()
	}
	c.deb.Stop()
	c.mu.Lock()
	if c.liveTimer != nil {
		c.liveTimer.Stop()
		c.liveTimer = nil
	}
	c.mu.Unlock()
}

// OnChange records a quantity-input edit and schedules the flush. Rapid
// edits inside the debounce window collapse; only the last payload reaches
// the network. The focused field's name is captured now so focus can be
// restored after the re-render.
func (c *Items) OnChange(line int, value string, variantID int64) {
	c.mu.Lock()
	c.pending = pendingChange{
		line:      line,
		value:     value,
		fieldName: c.view.ActiveFieldName(),
		variantID: variantID,
	}
	c.mu.Unlock()
	c.deb.Trigger()
}

func (c *Items) flushChange() {
	c.mu.Lock()
	p := c.pending
	ctx := c.ctx
	c.mu.Unlock()

	if err := c.UpdateQuantity(ctx, p.line, model.ParseQuantity(p.value), p.fieldName, p.variantID); err != nil {
		c.log.Error("cart change failed", "line", p.line, "error", err)
	}
}

// Remove deletes a line. The remove affordance is a quantity-zero change.
func (c *Items) Remove(ctx context.Context, line int) error {
	return c.UpdateQuantity(ctx, line, 0, "", 0)
}

// UpdateQuantity sets a line's quantity and reconciles the server response
// into the page: sections are re-rendered, the empty-cart class toggled, the
// status live region announced, and focus restored. A response carrying an
// Errors field reverts the displayed value instead of rendering. The loading
// state is cleared on every exit path.
func (c *Items) UpdateQuantity(ctx context.Context, line, quantity int, focusName string, variantID int64) error {
	c.enableLoading(line)
	defer c.disableLoading(line)

	state, err := c.client.ChangeCart(ctx, storefront.ChangeRequest{
		Line:        line,
		Quantity:    quantity,
		Sections:    model.SectionNames(c.cfg.Sections),
		SectionsURL: c.cfg.SectionsURL,
	})
	if err != nil {
		c.view.AddClass(view.SpinnerID(view.CartItemID(line)), view.ClassHidden)
		c.view.AddClass(view.SpinnerID(view.DrawerItemID(line)), view.ClassHidden)
		c.view.SetText(c.errorsID(), c.cfg.Strings.Error)
		return err
	}

	qtyInput := c.quantityInputID(line)
	if state.Errors != "" {
		// Server kept the cart unchanged; put the last known-good value back
		c.view.WriteField(qtyInput, c.view.Attr(qtyInput, "value"))
		c.updateLiveRegions(line, state.Errors)
		return nil
	}

	empty := state.ItemCount == 0
	c.view.ToggleClass(c.containerID(), view.ClassIsEmpty, empty)
	if c.view.Exists(view.IDMainCartFooter) {
		c.view.ToggleClass(view.IDMainCartFooter, view.ClassIsEmpty, empty)
	}
	drawer := c.view.Exists(view.IDCartDrawer)
	if drawer {
		c.view.ToggleClass(view.IDCartDrawer, view.ClassIsEmpty, empty)
	}

	c.renderSections(state)

	message := c.statusMessage(state, line, quantity, qtyInput)

	c.mu.Lock()
	c.itemCount = len(state.Items)
	c.mu.Unlock()

	c.updateLiveRegions(line, message)
	c.restoreFocus(state, line, focusName, drawer)

	c.bus.Publish(pubsub.EventCartUpdate, pubsub.Event{
		Source:    SourceTag,
		Cart:      state,
		VariantID: variantID,
	})
	return nil
}

// statusMessage computes the user-facing status for an update: empty when
// the server confirmed the requested quantity, the generic error when the
// line vanished unexpectedly, or the quantity-adjusted string when the
// server clamped it. Only computed when the line count stayed stable; a
// removal legitimately shrinks the cart and says nothing.
func (c *Items) statusMessage(state *model.CartState, line, requested int, qtyInput string) string {
	c.mu.Lock()
	prior := c.itemCount
	c.mu.Unlock()

	if prior >= 0 && prior != len(state.Items) {
		return ""
	}

	item, ok := state.Line(line)
	if !ok {
		return c.cfg.Strings.Error
	}
	if item.Quantity == requested {
		return ""
	}
	// Server clamped the quantity; the authoritative value wins on screen
	c.view.WriteField(qtyInput, strconv.Itoa(item.Quantity))
	c.view.SetAttr(qtyInput, "value", strconv.Itoa(item.Quantity))
	return strings.ReplaceAll(c.cfg.Strings.QuantityError, "[quantity]", strconv.Itoa(item.Quantity))
}

func (c *Items) renderSections(state *model.CartState) {
	for _, d := range c.cfg.Sections {
		fragment, ok := state.Sections[d.Section]
		if !ok {
			continue
		}
		inner, err := sections.Extract(fragment, d.Selector)
		if err != nil {
			c.log.Warn("section extract failed", "section", d.Section, "selector", d.Selector, "error", err)
			continue
		}
		c.view.ReplaceRegion(d.ID, inner)
	}
}

// RenderContents reconciles an add-to-cart response into the cart surface.
// Add responses key their sections map by region id rather than section name.
func (c *Items) RenderContents(state *model.CartState) {
	for _, d := range c.cfg.Sections {
		fragment, ok := state.Sections[d.ID]
		if !ok {
			if fragment, ok = state.Sections[d.Section]; !ok {
				continue
			}
		}
		inner, err := sections.Extract(fragment, d.Selector)
		if err != nil {
			c.log.Warn("section extract failed", "section", d.ID, "error", err)
			continue
		}
		c.view.ReplaceRegion(d.ID, inner)
	}
	c.view.ToggleClass(c.containerID(), view.ClassIsEmpty, state.ItemCount == 0)
}

// OnCartUpdate refreshes this controller's surface after another widget
// mutated the cart. The drawer mirrors the primary cart by re-fetching its
// whole section; the main cart swaps only its own contents.
func (c *Items) OnCartUpdate(ctx context.Context) {
	if c.cfg.Scope == ScopeDrawer {
		fragment, err := c.client.GetSection(ctx, "cart-drawer")
		if err != nil {
			c.log.Error("drawer refresh failed", "error", err)
			return
		}
		for _, selector := range []string{"cart-drawer-items", ".cart-drawer__footer"} {
			outer, err := sections.ExtractOuter(fragment, selector)
			if err != nil {
				continue
			}
			c.view.ReplaceRegion(selector, outer)
		}
		return
	}

	fragment, err := c.client.GetSection(ctx, "main-cart-items")
	if err != nil {
		c.log.Error("cart refresh failed", "error", err)
		return
	}
	inner, err := sections.Extract(fragment, "cart-items")
	if err != nil {
		c.log.Error("cart refresh parse failed", "error", err)
		return
	}
	c.view.ReplaceRegion(view.IDMainCartItems, inner)
}

// === loading state ===

func (c *Items) enableLoading(line int) {
	c.view.AddClass(c.containerID(), view.ClassCartItemsDisabled)
	c.view.RemoveClass(view.SpinnerID(view.CartItemID(line)), view.ClassHidden)
	c.view.RemoveClass(view.SpinnerID(view.DrawerItemID(line)), view.ClassHidden)
	c.view.Blur()
	c.view.SetAttr(c.statusID(), "aria-hidden", "false")
}

func (c *Items) disableLoading(line int) {
	c.view.RemoveClass(c.containerID(), view.ClassCartItemsDisabled)
	c.view.AddClass(view.SpinnerID(view.CartItemID(line)), view.ClassHidden)
	c.view.AddClass(view.SpinnerID(view.DrawerItemID(line)), view.ClassHidden)
}

// updateLiveRegions writes the per-line error text and announces the status
// live region, clearing the announcement after the configured delay.
func (c *Items) updateLiveRegions(line int, message string) {
	lineError := c.lineErrorID(line)
	if c.view.Exists(lineError) {
		c.view.SetText(lineError+" .cart-item__error-text", message)
	}

	c.view.SetAttr(c.statusID(), "aria-hidden", "true")

	liveRegion := c.liveRegionID()
	c.view.SetText(liveRegion, message)
	c.view.SetAttr(liveRegion, "aria-hidden", "false")

	c.mu.Lock()
	if c.liveTimer != nil {
		c.liveTimer.Stop()
	}
	c.liveTimer = time.AfterFunc(c.cfg.LiveRegionDelay, func() {
		c.view.SetAttr(liveRegion, "aria-hidden", "true")
	})
	c.mu.Unlock()
}

// restoreFocus puts focus on the most relevant element after a re-render:
// the edited field if its row survived, the empty-drawer landing target when
// the cart emptied, or the first remaining row. Drawer contexts trap focus
// inside the drawer.
func (c *Items) restoreFocus(state *model.CartState, line int, focusName string, drawer bool) {
	if focusName != "" {
		for _, itemID := range []string{view.CartItemID(line), view.DrawerItemID(line)} {
			fieldID := view.ItemFieldID(itemID, focusName)
			if c.view.Exists(itemID) && c.view.Exists(fieldID) {
				if drawer {
					c.view.TrapFocus(view.IDCartDrawer, fieldID)
				} else {
					c.view.Focus(fieldID)
				}
				return
			}
		}
	}

	if state.ItemCount == 0 && drawer {
		c.view.TrapFocus(view.IDDrawerInnerEmpty, view.IDDrawerInnerEmpty+" a")
		return
	}
	if drawer {
		first := view.DrawerItemID(1)
		if c.view.Exists(first) {
			c.view.TrapFocus(view.IDCartDrawer, first+" .cart-item__name")
		}
	}
}

// === scoped element ids ===

func (c *Items) containerID() string {
	if c.cfg.Scope == ScopeDrawer {
		return view.IDDrawerCartItems
	}
	return view.IDMainCartItems
}

func (c *Items) errorsID() string {
	if c.cfg.Scope == ScopeDrawer || !c.view.Exists(view.IDCartErrors) {
		if c.view.Exists(view.IDDrawerCartErrors) {
			return view.IDDrawerCartErrors
		}
	}
	return view.IDCartErrors
}

func (c *Items) statusID() string {
	if c.view.Exists(view.IDLineItemStatus) {
		return view.IDLineItemStatus
	}
	return view.IDDrawerLineItemStatus
}

func (c *Items) liveRegionID() string {
	if c.view.Exists(view.IDCartLiveRegionText) {
		return view.IDCartLiveRegionText
	}
	return view.IDDrawerLiveRegionText
}

func (c *Items) quantityInputID(line int) string {
	main := view.QuantityInputID(line)
	if c.view.Exists(main) {
		return main
	}
	return view.DrawerQuantityInputID(line)
}

func (c *Items) lineErrorID(line int) string {
	main := view.LineItemErrorID(line)
	if c.view.Exists(main) {
		return main
	}
	return view.DrawerLineItemErrorID(line)
}
