package maprender

import (
	"sync"
	"time"

	"geowatch/internal/filter"
)

// Debouncer owns the filter-change timer. Rapid successive Schedule calls
// coalesce into one merged payload and a single settled event once the
// burst goes quiet; an explicit timer-owning object avoids the reentrancy
// bugs of stacked callbacks.
type Debouncer struct {
	mu      sync.Mutex
	delay   time.Duration
	timer   *time.Timer
	pending filter.Update
	armed   bool
	settled func(filter.Update)
}

// NewDebouncer builds a Debouncer firing settled after delay of quiet.
func NewDebouncer(delay time.Duration, settled func(filter.Update)) *Debouncer {
	return &Debouncer{delay: delay, settled: settled}
}

// Schedule merges the partial update into the pending payload and restarts
// the timer. Only one settled event fires per burst.
func (d *Debouncer) Schedule(u filter.Update) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending = mergeUpdates(d.pending, u)
	d.armed = true
	if d.timer == nil {
		d.timer = time.AfterFunc(d.delay, d.fire)
		return
	}
	d.timer.Reset(d.delay)
}

// Cancel drops any pending payload and stops the timer. A payload already
// being delivered is not interrupted.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.pending = filter.Update{}
	d.armed = false
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	if !d.armed {
		d.mu.Unlock()
		return
	}
	payload := d.pending
	d.pending = filter.Update{}
	d.armed = false
	d.mu.Unlock()
	d.settled(payload)
}

// mergeUpdates overlays b onto a field-wise; later calls win per field.
func mergeUpdates(a, b filter.Update) filter.Update {
	if b.View != nil {
		a.View = b.View
	}
	if b.Type != nil {
		a.Type = b.Type
	}
	if b.Status != nil {
		a.Status = b.Status
	}
	if b.Commune != nil {
		a.Commune = b.Commune
	}
	if b.From != nil {
		a.From = b.From
	}
	if b.To != nil {
		a.To = b.To
	}
	return a
}
