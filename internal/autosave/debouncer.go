package autosave

import (
	"sync"
	"time"
)

// DefaultWindow is the quiescence period after the last edit before a write.
const DefaultWindow = 3 * time.Second

// Debouncer coalesces bursts of Notify calls into one run of its save func.
// There is a single pending slot: each Notify cancels and restarts the timer.
type Debouncer struct {
	window time.Duration
	save   func()

	mu      sync.Mutex
	timer   *time.Timer
	pending bool
	running bool
	stopped bool
}

type Opts struct {
	Window time.Duration
	// Save runs on the timer goroutine. It must not call back into the Debouncer.
	Save func()
}

func New(opts Opts) *Debouncer {
	window := opts.Window
	if window <= 0 {
		window = DefaultWindow
	}
	return &Debouncer{window: window, save: opts.Save}
}

// Notify marks work pending and (re)starts the quiescence window.
func (d *Debouncer) Notify() {
	if d == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.pending = true
	if d.timer == nil {
		d.timer = time.AfterFunc(d.window, d.onTimer)
		return
	}
	d.timer.Stop()
	d.timer.Reset(d.window)
}

// Pending reports whether a write is scheduled but has not run.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

func (d *Debouncer) onTimer() {
	d.mu.Lock()
	if d.running {
		// A flush is in flight; try again after it settles.
		if d.timer != nil && !d.stopped {
			d.timer.Reset(d.window)
		}
		d.mu.Unlock()
		return
	}
	if !d.pending {
		d.mu.Unlock()
		return
	}
	d.pending = false
	d.running = true
	d.mu.Unlock()

	d.run()

	d.mu.Lock()
	d.running = false
	if d.pending && d.timer != nil && !d.stopped {
		d.timer.Reset(d.window)
	}
	d.mu.Unlock()
}

func (d *Debouncer) run() {
	if d.save != nil {
		d.save()
	}
}

// Flush cancels the timer and runs the save now if anything is pending.
// Reports whether a save ran.
func (d *Debouncer) Flush() bool {
	if d == nil {
		return false
	}
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
	}
	if !d.pending || d.running {
		d.mu.Unlock()
		return false
	}
	d.pending = false
	d.running = true
	d.mu.Unlock()

	d.run()

	d.mu.Lock()
	d.running = false
	d.mu.Unlock()
	return true
}

// Cancel drops any pending write without running it.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.pending = false
}

// Stop flushes pending work and disables further scheduling.
func (d *Debouncer) Stop() {
	if d == nil {
		return
	}
	d.Flush()
	d.mu.Lock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.mu.Unlock()
}
