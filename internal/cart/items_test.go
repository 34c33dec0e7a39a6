package cart

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"cart-engine/internal/config"
	"cart-engine/internal/model"
	"cart-engine/internal/pubsub"
	"cart-engine/internal/storefront"
	"cart-engine/internal/view"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testStrings() config.CartStrings {
	return config.CartStrings{
		Error:         "There was an error while updating your cart. Please try again.",
		QuantityError: "You can only add [quantity] of this item to your cart.",
	}
}

func newFixture(t *testing.T, handler http.Handler, cfg ItemsConfig) (*Items, *view.Page, *pubsub.Bus) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := storefront.New(storefront.Config{
		StoreURL:   server.URL,
		HTTPClient: server.Client(),
	})
	if err != nil {
		t.Fatalf("storefront.New: %v", err)
	}

	if cfg.Strings == (config.CartStrings{}) {
		cfg.Strings = testStrings()
	}

	page := view.NewPage()
	bus := pubsub.New()
	items := NewItems(page, client, bus, testLogger(), cfg)
	t.Cleanup(items.Stop)
	return items, page, bus
}

func cartResponse(itemCount int, items []model.LineItem, sections map[string]string) model.CartState {
	return model.CartState{ItemCount: itemCount, Items: items, Sections: sections}
}

func TestUpdateQuantityRendersSectionsAndPublishes(t *testing.T) {
	var gotChange storefront.ChangeRequest
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotChange)
		json.NewEncoder(w).Encode(cartResponse(2,
			[]model.LineItem{{VariantID: 7, Quantity: 2}},
			map[string]string{
				"main-cart-items": `<div id="shopify-section-main" class="shopify-section"><cart-items><div class="js-contents">two items</div></cart-items></div>`,
			}))
	})

	items, page, bus := newFixture(t, handler, ItemsConfig{})
	page.Add(view.IDMainCartItems, view.QuantityInputID(1), view.CartItemID(1))

	var published atomic.Int32
	var gotEvent pubsub.Event
	bus.Subscribe(pubsub.EventCartUpdate, func(e pubsub.Event) {
		published.Add(1)
		gotEvent = e
	})

	if err := items.UpdateQuantity(context.Background(), 1, 2, "", 7); err != nil {
		t.Fatalf("UpdateQuantity: %v", err)
	}

	if gotChange.Line != 1 || gotChange.Quantity != 2 {
		t.Errorf("change request = %+v", gotChange)
	}
	if len(gotChange.Sections) == 0 {
		t.Error("change request carried no section names")
	}
	if got := page.Region(view.IDMainCartItems); got != "two items" {
		t.Errorf("rendered region = %q, want inner contents", got)
	}
	if page.HasClass(view.IDMainCartItems, view.ClassCartItemsDisabled) {
		t.Error("loading class not cleared after success")
	}
	if !page.HasClass(view.SpinnerID(view.CartItemID(1)), view.ClassHidden) {
		t.Error("spinner not hidden after success")
	}
	if published.Load() != 1 {
		t.Fatalf("published %d events, want 1", published.Load())
	}
	if gotEvent.Source != SourceTag || gotEvent.VariantID != 7 {
		t.Errorf("event = %+v", gotEvent)
	}
	if gotEvent.Cart == nil || gotEvent.Cart.ItemCount != 2 {
		t.Errorf("event cart = %+v", gotEvent.Cart)
	}
}

func TestUpdateQuantityClampedByServer(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(cartResponse(3,
			[]model.LineItem{{VariantID: 7, Quantity: 3}}, nil))
	})

	items, page, _ := newFixture(t, handler, ItemsConfig{})
	qty := view.QuantityInputID(1)
	page.Add(view.IDMainCartItems, qty, view.LineItemErrorID(1))
	page.WriteField(qty, "9")

	if err := items.UpdateQuantity(context.Background(), 1, 9, "", 7); err != nil {
		t.Fatalf("UpdateQuantity: %v", err)
	}

	if got := page.ReadField(qty); got != "3" {
		t.Errorf("input value = %q, want server-confirmed 3", got)
	}
	want := "You can only add 3 of this item to your cart."
	if got := page.Text(view.LineItemErrorID(1) + " .cart-item__error-text"); got != want {
		t.Errorf("line error = %q, want %q", got, want)
	}
}

func TestUpdateQuantityNoMessageWhenConfirmed(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(cartResponse(4,
			[]model.LineItem{{VariantID: 7, Quantity: 4}}, nil))
	})

	items, page, _ := newFixture(t, handler, ItemsConfig{})
	page.Add(view.IDMainCartItems, view.QuantityInputID(1), view.LineItemErrorID(1))

	if err := items.UpdateQuantity(context.Background(), 1, 4, "", 7); err != nil {
		t.Fatalf("UpdateQuantity: %v", err)
	}
	if got := page.Text(view.LineItemErrorID(1) + " .cart-item__error-text"); got != "" {
		t.Errorf("line error = %q, want empty", got)
	}
}

func TestUpdateQuantityErrorsFieldRevertsInput(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(model.CartState{
			ItemCount: 1,
			Errors:    "You can only add 2 of this item to your cart.",
		})
	})

	items, page, bus := newFixture(t, handler, ItemsConfig{})
	qty := view.QuantityInputID(1)
	page.Add(view.IDMainCartItems, qty, view.LineItemErrorID(1))
	page.SetAttr(qty, "value", "2")
	page.WriteField(qty, "9")

	var published atomic.Int32
	bus.Subscribe(pubsub.EventCartUpdate, func(pubsub.Event) { published.Add(1) })

	if err := items.UpdateQuantity(context.Background(), 1, 9, "", 7); err != nil {
		t.Fatalf("UpdateQuantity: %v", err)
	}

	if got := page.ReadField(qty); got != "2" {
		t.Errorf("input value = %q, want reverted 2", got)
	}
	if got := page.Text(view.LineItemErrorID(1) + " .cart-item__error-text"); got == "" {
		t.Error("server message not surfaced on line error region")
	}
	if published.Load() != 0 {
		t.Error("rejected change must not publish a cart update")
	}
	if page.HasClass(view.IDMainCartItems, view.ClassCartItemsDisabled) {
		t.Error("loading class not cleared after rejection")
	}
}

func TestUpdateQuantityTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	client, err := storefront.New(storefront.Config{StoreURL: server.URL, HTTPClient: server.Client()})
	if err != nil {
		t.Fatalf("storefront.New: %v", err)
	}
	server.Close() // force connection failures

	page := view.NewPage()
	page.Add(view.IDMainCartItems, view.IDCartErrors)
	items := NewItems(page, client, pubsub.New(), testLogger(), ItemsConfig{Strings: testStrings()})
	defer items.Stop()

	if err := items.UpdateQuantity(context.Background(), 1, 2, "", 0); err == nil {
		t.Fatal("expected transport error")
	}
	if got := page.Text(view.IDCartErrors); got != testStrings().Error {
		t.Errorf("errors region = %q, want generic error copy", got)
	}
	if !page.HasClass(view.SpinnerID(view.CartItemID(1)), view.ClassHidden) {
		t.Error("spinner not hidden after failure")
	}
	if page.HasClass(view.IDMainCartItems, view.ClassCartItemsDisabled) {
		t.Error("loading class not cleared after failure")
	}
}

func TestRemoveSendsQuantityZero(t *testing.T) {
	var gotChange storefront.ChangeRequest
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotChange)
		json.NewEncoder(w).Encode(cartResponse(0, nil, nil))
	})

	items, page, _ := newFixture(t, handler, ItemsConfig{})
	page.Add(view.IDMainCartItems, view.IDMainCartFooter)

	if err := items.Remove(context.Background(), 2); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if gotChange.Line != 2 || gotChange.Quantity != 0 {
		t.Errorf("change request = %+v, want line 2 quantity 0", gotChange)
	}
	if !page.HasClass(view.IDMainCartItems, view.ClassIsEmpty) {
		t.Error("empty cart must flag the items container")
	}
	if !page.HasClass(view.IDMainCartFooter, view.ClassIsEmpty) {
		t.Error("empty cart must flag the footer")
	}
}

func TestUpdateQuantityRestoresFocus(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(cartResponse(1,
			[]model.LineItem{{VariantID: 7, Quantity: 2}}, nil))
	})

	items, page, _ := newFixture(t, handler, ItemsConfig{})
	field := view.ItemFieldID(view.CartItemID(1), "updates[]")
	page.Add(view.IDMainCartItems, view.CartItemID(1), field)

	if err := items.UpdateQuantity(context.Background(), 1, 2, "updates[]", 7); err != nil {
		t.Fatalf("UpdateQuantity: %v", err)
	}
	if got := page.ActiveID(); got != field {
		t.Errorf("focus = %q, want %q", got, field)
	}
}

func TestUpdateQuantityDrawerTrapsFocus(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(cartResponse(1,
			[]model.LineItem{{VariantID: 7, Quantity: 2}}, nil))
	})

	items, page, _ := newFixture(t, handler, ItemsConfig{Scope: ScopeDrawer})
	field := view.ItemFieldID(view.DrawerItemID(1), "updates[]")
	page.Add(view.IDDrawerCartItems, view.IDCartDrawer, view.DrawerItemID(1), field)

	if err := items.UpdateQuantity(context.Background(), 1, 2, "updates[]", 7); err != nil {
		t.Fatalf("UpdateQuantity: %v", err)
	}
	if got := page.TrappedIn(); got != view.IDCartDrawer {
		t.Errorf("focus trapped in %q, want drawer", got)
	}
	if got := page.ActiveID(); got != field {
		t.Errorf("focus = %q, want %q", got, field)
	}
}

func TestLiveRegionAnnouncesThenClears(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(cartResponse(3,
			[]model.LineItem{{VariantID: 7, Quantity: 3}}, nil))
	})

	items, page, _ := newFixture(t, handler, ItemsConfig{LiveRegionDelay: 20 * time.Millisecond})
	page.Add(view.IDMainCartItems, view.IDCartLiveRegionText)

	if err := items.UpdateQuantity(context.Background(), 1, 9, "", 7); err != nil {
		t.Fatalf("UpdateQuantity: %v", err)
	}
	if got := page.Attr(view.IDCartLiveRegionText, "aria-hidden"); got != "false" {
		t.Errorf("aria-hidden = %q immediately after update, want false", got)
	}

	time.Sleep(100 * time.Millisecond)
	if got := page.Attr(view.IDCartLiveRegionText, "aria-hidden"); got != "true" {
		t.Errorf("aria-hidden = %q after delay, want true", got)
	}
}

func TestOnChangeDebouncesToLastValue(t *testing.T) {
	var requests atomic.Int32
	var gotChange storefront.ChangeRequest
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		json.NewDecoder(r.Body).Decode(&gotChange)
		json.NewEncoder(w).Encode(cartResponse(1,
			[]model.LineItem{{VariantID: 7, Quantity: 5}}, nil))
	})

	items, page, _ := newFixture(t, handler, ItemsConfig{DebounceDelay: 30 * time.Millisecond})
	page.Add(view.IDMainCartItems)
	items.Start(context.Background())

	items.OnChange(1, "2", 7)
	items.OnChange(1, "3", 7)
	items.OnChange(1, "5", 7)

	time.Sleep(150 * time.Millisecond)

	if got := requests.Load(); got != 1 {
		t.Fatalf("server saw %d requests, want 1", got)
	}
	if gotChange.Quantity != 5 {
		t.Errorf("flushed quantity = %d, want last value 5", gotChange.Quantity)
	}
}

func TestOnCartUpdateIgnoresOwnSource(t *testing.T) {
	var requests atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
	})

	items, _, bus := newFixture(t, handler, ItemsConfig{})
	items.Start(context.Background())

	bus.Publish(pubsub.EventCartUpdate, pubsub.Event{Source: SourceTag})

	if got := requests.Load(); got != 0 {
		t.Errorf("controller refreshed off its own broadcast (%d requests)", got)
	}
}

func TestOnCartUpdateRefreshesMainContents(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("section_id"); got != "main-cart-items" {
			t.Errorf("section_id = %q", got)
		}
		io.WriteString(w, `<div class="shopify-section"><cart-items>fresh contents</cart-items></div>`)
	})

	items, page, bus := newFixture(t, handler, ItemsConfig{})
	page.Add(view.IDMainCartItems)
	items.Start(context.Background())

	bus.Publish(pubsub.EventCartUpdate, pubsub.Event{Source: "product-form"})

	if got := page.Region(view.IDMainCartItems); got != "fresh contents" {
		t.Errorf("region = %q after external update", got)
	}
}

func TestOnCartUpdateRefreshesDrawer(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("section_id"); got != "cart-drawer" {
			t.Errorf("section_id = %q", got)
		}
		io.WriteString(w, `<div class="shopify-section"><cart-drawer-items>rows</cart-drawer-items><div class="cart-drawer__footer">totals</div></div>`)
	})

	items, page, bus := newFixture(t, handler, ItemsConfig{Scope: ScopeDrawer})
	page.Add(view.IDDrawerCartItems)
	items.Start(context.Background())

	bus.Publish(pubsub.EventCartUpdate, pubsub.Event{Source: "product-form"})

	if got := page.Region("cart-drawer-items"); got == "" {
		t.Error("drawer items region not replaced")
	}
	if got := page.Region(".cart-drawer__footer"); got == "" {
		t.Error("drawer footer region not replaced")
	}
}

func TestStopUnsubscribes(t *testing.T) {
	var requests atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
	})

	items, _, bus := newFixture(t, handler, ItemsConfig{})
	items.Start(context.Background())
	items.Stop()

	bus.Publish(pubsub.EventCartUpdate, pubsub.Event{Source: "product-form"})

	if got := requests.Load(); got != 0 {
		t.Errorf("stopped controller still refreshed (%d requests)", got)
	}
}

func TestRenderContentsUsesRegionKeys(t *testing.T) {
	items, page, _ := newFixture(t, http.NewServeMux(), ItemsConfig{})
	page.Add(view.IDMainCartItems)

	items.RenderContents(&model.CartState{
		ItemCount: 1,
		Sections: map[string]string{
			"main-cart-items": `<div class="shopify-section"><div class="js-contents">added</div></div>`,
		},
	})

	if got := page.Region(view.IDMainCartItems); got != "added" {
		t.Errorf("region = %q, want %q", got, "added")
	}
	if page.HasClass(view.IDMainCartItems, view.ClassIsEmpty) {
		t.Error("non-empty cart flagged as empty")
	}
}
