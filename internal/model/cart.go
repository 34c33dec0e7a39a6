// Package model defines the cart, product, and pricing types shared by every
// controller, plus the error and money helpers.
package model

// CartState is the server-authoritative cart snapshot returned by the cart
// endpoints. Each round trip produces a fresh CartState that wholly supersedes
// the previous one; the client never persists it.
type CartState struct {
	ItemCount int        `json:"item_count"`
	Items     []LineItem `json:"items"`

	// Sections maps section names to server-rendered HTML fragments.
	// Present on change/add responses that requested sections.
	Sections map[string]string `json:"sections,omitempty"`

	// Errors is set when the server accepted the request but rejected the
	// mutation (e.g. insufficient stock on a quantity change).
	Errors string `json:"errors,omitempty"`

	// Status and Description are set on rejected add-to-cart responses.
	Status      int    `json:"status,omitempty"`
	Description string `json:"description,omitempty"`

	Note       string `json:"note,omitempty"`
	TotalPrice int64  `json:"total_price,omitempty"`
}

// Line returns the line item at the given 1-based position, or false when the
// line no longer exists in this snapshot.
func (c *CartState) Line(line int) (LineItem, bool) {
	if line < 1 || line > len(c.Items) {
		return LineItem{}, false
	}
	return c.Items[line-1], true
}

// LineItem is one row in the cart, identified by its 1-based position in
// CartState.Items. Price is in minor currency units (cents).
type LineItem struct {
	Key          string `json:"key"`
	VariantID    int64  `json:"variant_id"`
	Quantity     int    `json:"quantity"`
	Price        int64  `json:"price"`
	ProductTitle string `json:"product_title,omitempty"`
}

// Product is the descriptor returned by GET /products/{id}.js.
type Product struct {
	ID       int64     `json:"id"`
	Title    string    `json:"title"`
	Variants []Variant `json:"variants"`
}

// Variant is a purchasable SKU of a product.
type Variant struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Available bool   `json:"available"`
	Price     int64  `json:"price"`
}

// FirstAvailableVariant returns the first variant flagged available, falling
// back to the first variant when none are. Returns false for products with no
// variants at all.
func (p *Product) FirstAvailableVariant() (Variant, bool) {
	for _, v := range p.Variants {
		if v.Available {
			return v, true
		}
	}
	if len(p.Variants) > 0 {
		return p.Variants[0], true
	}
	return Variant{}, false
}

// SectionDescriptor identifies one re-renderable page region and which part
// of a multi-section server response it maps to. Descriptors are defined
// statically by each controller, never persisted.
type SectionDescriptor struct {
	// ID is the element identifier of the target region on the page.
	ID string
	// Section is the server-side section name to request.
	Section string
	// Selector picks the relevant node out of the returned fragment.
	Selector string
}

// SectionNames returns the section names to include in a mutation request.
func SectionNames(descriptors []SectionDescriptor) []string {
	names := make([]string, len(descriptors))
	for i, d := range descriptors {
		names[i] = d.Section
	}
	return names
}

// SectionIDs returns the descriptor IDs. Add-to-cart requests send IDs rather
// than section names; the add response keys its sections map by requested ID.
func SectionIDs(descriptors []SectionDescriptor) []string {
	ids := make([]string, len(descriptors))
	for i, d := range descriptors {
		ids[i] = d.ID
	}
	return ids
}

// PriceTier is one quantity break: buying at least Quantity units prices
// every unit at Price (major units, e.g. dollars).
type PriceTier struct {
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// SelectTier returns the tier applied for the combined quantity. Tiers are
// scanned in the order provided and every tier whose threshold is met
// overwrites the previous match, so with ascending tiers the highest
// satisfied threshold wins. Returns false when no tier matches.
func SelectTier(tiers []PriceTier, combinedQty int) (PriceTier, bool) {
	var selected PriceTier
	matched := false
	for _, tier := range tiers {
		if combinedQty >= tier.Quantity {
			selected = tier
			matched = true
		}
	}
	return selected, matched
}

// AddItem is one entry in a batch add-to-cart request.
type AddItem struct {
	ID       int64 `json:"id"`
	Quantity int   `json:"quantity"`
}
