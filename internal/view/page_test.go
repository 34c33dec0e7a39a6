package view

import (
	"testing"
)

func TestPageFieldsAndAttrs(t *testing.T) {
	p := NewPage()

	if p.Exists("Quantity-1") {
		t.Error("element should not exist before first write")
	}

	p.WriteField("Quantity-1", "3")
	if !p.Exists("Quantity-1") {
		t.Error("write should create the element")
	}
	if got := p.ReadField("Quantity-1"); got != "3" {
		t.Errorf("ReadField = %q, want 3", got)
	}

	p.SetAttr("Quantity-1", "value", "2")
	if got := p.Attr("Quantity-1", "value"); got != "2" {
		t.Errorf("Attr = %q, want 2", got)
	}

	if got := p.ReadField("missing"); got != "" {
		t.Errorf("missing field read = %q, want empty", got)
	}
}

func TestPageClasses(t *testing.T) {
	p := NewPage()

	p.AddClass(IDMainCartItems, ClassCartItemsDisabled)
	if !p.HasClass(IDMainCartItems, ClassCartItemsDisabled) {
		t.Error("class missing after AddClass")
	}

	p.ToggleClass(IDMainCartItems, ClassCartItemsDisabled, false)
	if p.HasClass(IDMainCartItems, ClassCartItemsDisabled) {
		t.Error("class present after toggle off")
	}

	// Removing from a missing element is a no-op
	p.RemoveClass("missing", "anything")
}

func TestPageFocus(t *testing.T) {
	p := NewPage()
	p.WriteField("Quantity-2", "1")
	p.SetAttr("Quantity-2", "name", "updates[]")

	p.Focus("Quantity-2")
	if got := p.ActiveFieldName(); got != "updates[]" {
		t.Errorf("ActiveFieldName = %q, want updates[]", got)
	}

	p.Blur()
	if got := p.ActiveFieldName(); got != "" {
		t.Errorf("ActiveFieldName after blur = %q, want empty", got)
	}

	p.TrapFocus(IDCartDrawer, "Quantity-2")
	if got := p.TrappedIn(); got != IDCartDrawer {
		t.Errorf("TrappedIn = %q, want %q", got, IDCartDrawer)
	}
	if got := p.ActiveID(); got != "Quantity-2" {
		t.Errorf("ActiveID = %q, want Quantity-2", got)
	}
}

func TestPageFormValues(t *testing.T) {
	p := NewPage()
	form := "product-form"

	p.WriteField(FieldID(form, "quantity"), "2")
	p.WriteField(FieldID(form, "items[3][quantity]"), "1")
	p.WriteField("unrelated", "x")

	values := p.FormValues(form)
	if len(values) != 2 {
		t.Fatalf("FormValues has %d entries, want 2: %v", len(values), values)
	}
	if values["quantity"] != "2" {
		t.Errorf("quantity = %q, want 2", values["quantity"])
	}
	if values["items[3][quantity]"] != "1" {
		t.Errorf("items[3][quantity] = %q, want 1", values["items[3][quantity]"])
	}
}
