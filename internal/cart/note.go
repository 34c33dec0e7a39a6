package cart

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"cart-engine/internal/debounce"
	"cart-engine/internal/storefront"
)

// Note persists the cart note field. Input bursts collapse through the
// debouncer; the note has no rendered feedback, persistence is best effort.
type Note struct {
	client *storefront.Client
	log    *slog.Logger
	deb    *debounce.Debouncer

	mu    sync.Mutex
	ctx   context.Context
	value string
}

// NewNote creates a cart note widget. Delay 0 uses the shared default.
func NewNote(client *storefront.Client, logger *slog.Logger, delay time.Duration) *Note {
	if delay == 0 {
		delay = defaultDebounceDelay
	}
	n := &Note{
		client: client,
		log:    logger,
		ctx:    context.Background(),
	}
	n.deb = debounce.New(delay, n.flush)
	return n
}

// Start binds the widget to a lifetime context.
func (n *Note) Start(ctx context.Context) {
	n.mu.Lock()
	n.ctx = ctx
	n.mu.Unlock()
}

// Stop cancels any pending write.
func (n *Note) Stop() {
	n.deb.Stop()
}

// OnInput records the latest note text and schedules the write. Only the
// last value inside the quiet window is sent.
func (n *Note) OnInput(value string) {
	n.mu.Lock()
	n.value = value
	n.mu.Unlock()
	n.deb.Trigger()
}

func (n *Note) flush() {
	n.mu.Lock()
	ctx := n.ctx
	value := n.value
	n.mu.Unlock()

	if err := n.client.UpdateNote(ctx, value); err != nil {
		n.log.Error("cart note update failed", "error", err)
	}
}
