package view

import (
	"strings"
	"sync"
)

// Page is an in-memory View. It behaves like a loose DOM: writes create
// elements on demand, reads on absent elements return zero values. The CLI
// binds controllers to a Page, and tests use it to observe exactly what a
// controller did to the page.
type Page struct {
	mu       sync.Mutex
	elements map[string]*element
	active   string
	trapped  string
}

type element struct {
	value   string
	text    string
	region  string
	attrs   map[string]string
	classes map[string]bool
}

// NewPage creates an empty page.
func NewPage() *Page {
	return &Page{elements: make(map[string]*element)}
}

// Add declares an element so Exists reports it before any write touches it.
func (p *Page) Add(ids ...string) *Page {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, id := range ids {
		p.ensure(id)
	}
	return p
}

func (p *Page) ensure(id string) *element {
	el, ok := p.elements[id]
	if !ok {
		el = &element{attrs: make(map[string]string), classes: make(map[string]bool)}
		p.elements[id] = el
	}
	return el
}

func (p *Page) get(id string) (*element, bool) {
	el, ok := p.elements[id]
	return el, ok
}

func (p *Page) Exists(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.elements[id]
	return ok
}

func (p *Page) ReadField(id string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if el, ok := p.get(id); ok {
		return el.value
	}
	return ""
}

func (p *Page) WriteField(id, value string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ensure(id).value = value
}

func (p *Page) Attr(id, name string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if el, ok := p.get(id); ok {
		return el.attrs[name]
	}
	return ""
}

func (p *Page) SetAttr(id, name, value string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ensure(id).attrs[name] = value
}

func (p *Page) Text(id string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if el, ok := p.get(id); ok {
		return el.text
	}
	return ""
}

func (p *Page) SetText(id, text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ensure(id).text = text
}

func (p *Page) HasClass(id, class string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if el, ok := p.get(id); ok {
		return el.classes[class]
	}
	return false
}

func (p *Page) AddClass(id, class string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ensure(id).classes[class] = true
}

func (p *Page) RemoveClass(id, class string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if el, ok := p.get(id); ok {
		delete(el.classes, class)
	}
}

func (p *Page) ToggleClass(id, class string, on bool) {
	if on {
		p.AddClass(id, class)
	} else {
		p.RemoveClass(id, class)
	}
}

func (p *Page) ReplaceRegion(id, html string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ensure(id).region = html
}

func (p *Page) Region(id string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if el, ok := p.get(id); ok {
		return el.region
	}
	return ""
}

func (p *Page) Focus(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ensure(id)
	p.active = id
	p.trapped = ""
}

func (p *Page) Blur() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.active = ""
}

func (p *Page) TrapFocus(containerID, targetID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ensure(targetID)
	p.active = targetID
	p.trapped = containerID
}

func (p *Page) ActiveFieldName() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active == "" {
		return ""
	}
	if el, ok := p.get(p.active); ok {
		return el.attrs["name"]
	}
	return ""
}

// ActiveID returns the focused element id. Test hook, not part of View.
func (p *Page) ActiveID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// TrappedIn returns the container focus is trapped in, or "".
// Test hook, not part of View.
func (p *Page) TrappedIn() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.trapped
}

// FormValues snapshots every field in the form's namespace. Field ids are
// formID + "/" + name (see FieldID); the returned map is keyed by name.
func (p *Page) FormValues(formID string) map[string]string {
	p.mu.Lock()
	defer p.mu.Unlock()
	prefix := formID + "/"
	values := make(map[string]string)
	for id, el := range p.elements {
		if strings.HasPrefix(id, prefix) {
			values[strings.TrimPrefix(id, prefix)] = el.value
		}
	}
	return values
}

var _ View = (*Page)(nil)
