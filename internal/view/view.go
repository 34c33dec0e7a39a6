// Package view is the thin binding between controllers and the rendering
// surface. Controllers only ever read fields, write fields, toggle classes
// and replace regions, so the whole interaction layer runs and tests without
// a real page behind it.
package view

import "fmt"

// View is the capability set a controller needs from the page. Identifiers
// are the storefront markup's fixed element ids and classes; they are the
// schema of this system and must not be renamed.
type View interface {
	// Exists reports whether the element is present on the page.
	Exists(id string) bool

	// ReadField returns the current value of an input element.
	ReadField(id string) string
	// WriteField sets the displayed value of an input element.
	WriteField(id, value string)

	// Attr and SetAttr access element attributes (value, aria-hidden,
	// aria-disabled, data-cartquantity, ...).
	Attr(id, name string) string
	SetAttr(id, name, value string)

	// Text and SetText access an element's text content.
	Text(id string) string
	SetText(id, text string)

	HasClass(id, class string) bool
	AddClass(id, class string)
	RemoveClass(id, class string)
	ToggleClass(id, class string, on bool)

	// ReplaceRegion swaps the rendered contents of a named region.
	ReplaceRegion(id, html string)
	// Region returns the current contents of a named region.
	Region(id string) string

	// Focus management. ActiveFieldName returns the name attribute of the
	// currently focused field, or "" when nothing relevant is focused.
	Focus(id string)
	Blur()
	TrapFocus(containerID, targetID string)
	ActiveFieldName() string

	// FormValues snapshots every field of a form as name → value.
	FormValues(formID string) map[string]string
}

// Element identifiers and class names fixed by the surrounding markup.
// Main-cart and drawer variants exist side by side; controllers resolve
// whichever is present.
const (
	IDMainCartItems   = "main-cart-items"
	IDDrawerCartItems = "CartDrawer-CartItems"
	IDCartDrawer      = "cart-drawer"
	IDMainCartFooter  = "main-cart-footer"
	IDCartIconBubble  = "cart-icon-bubble"

	IDCartErrors       = "cart-errors"
	IDDrawerCartErrors = "CartDrawer-CartErrors"

	IDLineItemStatus       = "shopping-cart-line-item-status"
	IDDrawerLineItemStatus = "CartDrawer-LineItemStatus"

	IDCartLiveRegionText   = "cart-live-region-text"
	IDDrawerLiveRegionText = "CartDrawer-LiveRegionText"

	IDDrawerInnerEmpty = "CartDrawer-EmptyInner"
	IDTempSubtotal     = "temp-subtotal-submit"

	ClassCartItemsDisabled = "cart__items--disabled"
	ClassHidden            = "hidden"
	ClassIsEmpty           = "is-empty"
	ClassOpacityZero       = "opacity-zero"
	ClassLoading           = "loading"
)

// QuantityInputID returns the main-cart quantity input id for a line.
func QuantityInputID(line int) string { return fmt.Sprintf("Quantity-%d", line) }

// DrawerQuantityInputID returns the drawer quantity input id for a line.
func DrawerQuantityInputID(line int) string { return fmt.Sprintf("Drawer-quantity-%d", line) }

// CartItemID returns the main-cart row id for a line.
func CartItemID(line int) string { return fmt.Sprintf("CartItem-%d", line) }

// DrawerItemID returns the drawer row id for a line.
func DrawerItemID(line int) string { return fmt.Sprintf("CartDrawer-Item-%d", line) }

// LineItemErrorID returns the main-cart per-line error region id.
func LineItemErrorID(line int) string { return fmt.Sprintf("Line-item-error-%d", line) }

// DrawerLineItemErrorID returns the drawer per-line error region id.
func DrawerLineItemErrorID(line int) string { return fmt.Sprintf("CartDrawer-LineItemError-%d", line) }

// SpinnerID returns the loading spinner id scoped to a cart row.
func SpinnerID(itemID string) string { return itemID + " .loading__spinner" }

// ItemFieldID returns the id of a named field inside a cart row.
func ItemFieldID(itemID, name string) string { return itemID + " [name=" + name + "]" }

// FieldID returns the id of a named field inside a form. Form fields live in
// the form's namespace so FormValues can enumerate them.
func FieldID(formID, name string) string { return formID + "/" + name }
