package annotate

import "time"

// debounceConfig controls how mutation notifications are coalesced.
type debounceConfig struct {
	// Window is the quiet time before a pass runs. Default: 100ms.
	Window time.Duration
	// MaxPending forces a pass once this many notifications accumulate,
	// so continuous layout churn cannot postpone annotation forever.
	// Default: 64.
	MaxPending int
}

func (dc *debounceConfig) defaults() {
	if dc.Window <= 0 {
		dc.Window = 100 * time.Millisecond
	}
	if dc.MaxPending <= 0 {
		dc.MaxPending = 64
	}
}

// debouncer counts notifications and calls flushFn once per quiet window
// or when the pending count reaches MaxPending. It is driven from a single
// goroutine and is not safe for concurrent use.
type debouncer struct {
	cfg     debounceConfig
	pending int
	timer   *time.Timer
	timerCh <-chan time.Time
	flushFn func(pending int)
}

func newDebouncer(cfg debounceConfig, flushFn func(int)) *debouncer {
	cfg.defaults()
	return &debouncer{cfg: cfg, flushFn: flushFn}
}

// add registers one notification. Returns true if an immediate flush was
// triggered.
func (d *debouncer) add() bool {
	d.pending++

	if d.pending >= d.cfg.MaxPending {
		d.flush()
		return true
	}

	// (Re)start the window timer.
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.NewTimer(d.cfg.Window)
	d.timerCh = d.timer.C
	return false
}

// timerC returns the channel that fires when the window expires. It is nil
// while nothing is pending, which blocks forever in a select.
func (d *debouncer) timerC() <-chan time.Time {
	return d.timerCh
}

// flush runs flushFn for the pending notifications and resets.
func (d *debouncer) flush() {
	if d.pending == 0 {
		return
	}
	n := d.pending
	d.pending = 0
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
		d.timerCh = nil
	}
	d.flushFn(n)
}
