// Package productform implements the add-to-cart form controller: id
// resolution, single and multi-variant submission, the loading and sold-out
// button states, and deferred cart rendering behind quick-add overlays.
package productform

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"sort"
	"strconv"

	"cart-engine/internal/model"
	"cart-engine/internal/pubsub"
	"cart-engine/internal/storefront"
	"cart-engine/internal/view"
)

// SourceTag is the source the product form publishes under. Cart widgets
// refresh off it; the form itself holds no cart state to refresh.
const SourceTag = "product-form"

// User-facing copy for the form's own failure modes. Server rejection text
// always comes from the server verbatim.
const (
	msgMissingID  = "Unable to add product to cart. Product or Variant ID is missing."
	msgNoVariants = "No available variants found for this product."
	msgAddFailed  = "An error occurred while adding the product to the cart."
)

var itemQuantityKey = regexp.MustCompile(`^items\[(\d+)\]\[quantity\]$`)

// CartRenderer is the attached cart widget an add response renders into.
type CartRenderer interface {
	RenderContents(state *model.CartState)
}

// Config configures a Form.
type Config struct {
	// FormID is the form's element namespace; fields live under it.
	FormID string

	// ProductID is the form's product id, when the markup carries one.
	// Field values (product-id, id) are consulted after it.
	ProductID string

	// Sections are the attached cart widget's regions; their ids are sent
	// with add requests so the response carries fresh fragments.
	Sections    []model.SectionDescriptor
	SectionsURL string

	// CartContainerID is the attached cart widget's container, unflagged
	// from its empty state after a successful add. Empty means none.
	CartContainerID string

	// QuantityInputIDs are the grid inputs reset to zero after a
	// successful batch add.
	QuantityInputIDs []string

	// InQuickAdd marks a form rendered inside a quick-add overlay. Cart
	// rendering is then deferred until the overlay reports closed.
	InQuickAdd bool
	// HideModal asks the owning overlay to close. Only used with InQuickAdd.
	HideModal func()

	// HideErrors suppresses the inline error region entirely.
	HideErrors bool
}

// Form is the product form controller.
type Form struct {
	view     view.View
	client   *storefront.Client
	bus      *pubsub.Bus
	log      *slog.Logger
	cfg      Config
	renderer CartRenderer

	errored bool
}

// New creates a Form. renderer may be nil when no cart widget is attached;
// adds still succeed, they just render nothing locally.
func New(v view.View, client *storefront.Client, bus *pubsub.Bus, logger *slog.Logger, renderer CartRenderer, cfg Config) *Form {
	return &Form{
		view:     v,
		client:   client,
		bus:      bus,
		log:      logger,
		cfg:      cfg,
		renderer: renderer,
	}
}

// OnSubmit handles a form submission. A form with a positive single quantity
// field goes through id resolution; otherwise the multi-variant fields are
// scanned and zero-quantity rows dropped. A submission with nothing to add
// is a silent no-op. A disabled submit button swallows the submission.
func (f *Form) OnSubmit(ctx context.Context) error {
	if f.view.Attr(f.submitID(), "aria-disabled") == "true" {
		return nil
	}

	values := f.view.FormValues(f.cfg.FormID)

	if qty := model.ParseQuantity(values["quantity"]); qty > 0 {
		return f.submitSingle(ctx, values, qty)
	}

	items := multiItems(values)
	if len(items) == 0 {
		return nil
	}
	return f.addItems(ctx, items)
}

// submitSingle resolves the id for a single-quantity submission: an explicit
// variant id wins; otherwise the product id (markup, then product-id, then
// id field) is looked up and its first available variant used.
func (f *Form) submitSingle(ctx context.Context, values map[string]string, qty int) error {
	variantID := values["variant-id"]

	productID := f.cfg.ProductID
	if productID == "" {
		productID = values["product-id"]
	}
	if productID == "" {
		productID = values["id"]
	}

	if variantID == "" && productID == "" {
		f.showError(msgMissingID)
		return model.NewValidationError("id", "product or variant id is missing")
	}

	if variantID == "" {
		return f.addFirstAvailable(ctx, productID, qty)
	}

	id, err := strconv.ParseInt(variantID, 10, 64)
	if err != nil {
		f.showError(msgMissingID)
		return model.NewValidationError("variant-id", "not a numeric id")
	}
	return f.addItems(ctx, []model.AddItem{{ID: id, Quantity: qty}})
}

// multiItems collects the items[N][quantity] fields, dropping zero and
// malformed quantities. N is the variant id. Rows come back in id order.
func multiItems(values map[string]string) []model.AddItem {
	var items []model.AddItem
	for key, value := range values {
		m := itemQuantityKey.FindStringSubmatch(key)
		if m == nil {
			continue
		}
		qty := model.ParseQuantity(value)
		if qty == 0 {
			continue
		}
		id, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			continue
		}
		items = append(items, model.AddItem{ID: id, Quantity: qty})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items
}

// addFirstAvailable looks the product up and adds its first available
// variant (or the first variant at all when none are available).
func (f *Form) addFirstAvailable(ctx context.Context, productID string, qty int) error {
	product, err := f.client.GetProduct(ctx, productID)
	if err != nil {
		f.log.Error("product lookup failed", "product_id", productID, "error", err)
		f.showError(msgAddFailed)
		return err
	}
	variant, ok := product.FirstAvailableVariant()
	if !ok {
		f.showError(msgNoVariants)
		return model.NewValidationError("product-id", "product has no variants")
	}
	return f.addItems(ctx, []model.AddItem{{ID: variant.ID, Quantity: qty}})
}

// addItems runs the batch add: loading state on, request out, response
// reconciled. The loading state clears on every exit path; the button stays
// disabled only when the sold-out affordance took over.
func (f *Form) addItems(ctx context.Context, items []model.AddItem) error {
	f.showError("")

	submit := f.submitID()
	f.view.SetAttr(submit, "aria-disabled", "true")
	f.view.AddClass(submit, view.ClassLoading)
	f.view.RemoveClass(f.spinnerID(), view.ClassHidden)
	f.errored = false

	defer func() {
		f.view.RemoveClass(submit, view.ClassLoading)
		if f.cfg.CartContainerID != "" && f.view.HasClass(f.cfg.CartContainerID, view.ClassIsEmpty) {
			f.view.RemoveClass(f.cfg.CartContainerID, view.ClassIsEmpty)
		}
		if !f.errored {
			f.view.SetAttr(submit, "aria-disabled", "false")
		}
		f.view.AddClass(f.spinnerID(), view.ClassHidden)
	}()

	req := storefront.AddRequest{Items: items}
	if f.renderer != nil {
		req.Sections = model.SectionIDs(f.cfg.Sections)
		req.SectionsURL = f.cfg.SectionsURL
	}

	state, err := f.client.AddItems(ctx, req)
	if err != nil {
		if errors.Is(err, model.ErrServerRejection) {
			var apiErr *model.APIError
			message := msgAddFailed
			if errors.As(err, &apiErr) {
				message = apiErr.Message
			}
			f.showError(message)
			f.applySoldOutState(submit)
		} else {
			f.log.Error("add to cart failed", "error", err)
			f.showError(msgAddFailed)
		}
		return err
	}

	if f.renderer != nil {
		if f.cfg.InQuickAdd {
			// Render only after the overlay is out of the way
			f.bus.SubscribeOnce(pubsub.EventModalClosed, func(pubsub.Event) {
				f.renderer.RenderContents(state)
			})
			if f.cfg.HideModal != nil {
				f.cfg.HideModal()
			}
		} else {
			f.renderer.RenderContents(state)
		}
	}

	f.resetQuantities()

	f.bus.Publish(pubsub.EventCartUpdate, pubsub.Event{Source: SourceTag, Cart: state})
	return nil
}

// applySoldOutState swaps the button label for the sold-out message and
// keeps the button disabled. Without a sold-out element in the markup the
// button is re-enabled on exit and only the error region speaks.
func (f *Form) applySoldOutState(submit string) {
	soldOut := submit + " .sold-out-message"
	if !f.view.Exists(soldOut) {
		return
	}
	f.view.SetAttr(submit, "aria-disabled", "true")
	f.view.AddClass(submit+" span", view.ClassHidden)
	f.view.RemoveClass(soldOut, view.ClassHidden)
	f.errored = true
}

// StepQuantity adjusts a quantity input by delta, flooring at zero, and
// reports the new value so the owner can run its change path.
func (f *Form) StepQuantity(inputID string, delta int) int {
	qty := model.ParseQuantity(f.view.ReadField(inputID)) + delta
	if qty < 0 {
		qty = 0
	}
	f.view.WriteField(inputID, strconv.Itoa(qty))
	return qty
}

func (f *Form) resetQuantities() {
	for _, id := range f.cfg.QuantityInputIDs {
		f.view.WriteField(id, "0")
	}
}

// showError writes the inline error region; an empty message hides it.
func (f *Form) showError(message string) {
	if f.cfg.HideErrors {
		return
	}
	wrapper := f.cfg.FormID + " .product-form__error-message-wrapper"
	if !f.view.Exists(wrapper) {
		return
	}
	if message == "" {
		f.view.SetAttr(wrapper, "hidden", "true")
		return
	}
	f.view.SetAttr(wrapper, "hidden", "false")
	f.view.SetText(f.cfg.FormID+" .product-form__error-message", message)
}

func (f *Form) submitID() string {
	return f.cfg.FormID + " [type=submit]"
}

func (f *Form) spinnerID() string {
	return view.SpinnerID(f.cfg.FormID)
}
