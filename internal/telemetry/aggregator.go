package telemetry

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sync"
	"time"
)

// Snapshot is the decoded sensor readings of one frame, keyed by
// sensor name. Values are whatever JSON produced (bools and numbers in
// practice). Snapshots are compared structurally, never by reference.
type Snapshot map[string]interface{}

// Equal reports structural equality with another snapshot.
func (s Snapshot) Equal(other Snapshot) bool {
	return reflect.DeepEqual(s, other)
}

// DeliverFunc receives a settled snapshot for a station.
type DeliverFunc func(stationID int, snapshot Snapshot)

// Aggregator debounces raw per-station sensor telemetry.
//
// Each frame is compared structurally to the last delivered snapshot
// for its station. Unchanged frames are dropped. A changed frame
// re-arms a short timer; only the frame present when the timer fires
// is delivered and cached. Bursts of bouncing readings collapse into
// one settled update, which bounds the downstream broadcast rate.
//
// Deliveries run on timer goroutines; the DeliverFunc must be safe for
// concurrent use.
type Aggregator struct {
	window  time.Duration
	deliver DeliverFunc

	mu       sync.Mutex
	stations map[int]*stationReadings
	closed   bool
}

// stationReadings is the debounce state of one station.
type stationReadings struct {
	lastDelivered Snapshot
	pending       Snapshot
	timer         *time.Timer

	// gen increments on every re-arm. A fire carrying a stale
	// generation lost a Stop race with a newer frame and must not
	// deliver that frame before its own window has elapsed.
	gen uint64
}

// NewAggregator creates an aggregator with the given debounce window.
func NewAggregator(window time.Duration, deliver DeliverFunc) *Aggregator {
	return &Aggregator{
		window:   window,
		deliver:  deliver,
		stations: make(map[int]*stationReadings),
	}
}

// Ingest feeds one raw sensor frame into the debounce filter.
//
// Returns ErrUnparseable when the payload is not a JSON object; the
// caller forwards such frames to observers as a raw fallback but never
// lets them drive a control decision.
func (a *Aggregator) Ingest(stationID int, payload []byte) error {
	var snapshot Snapshot
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		return fmt.Errorf("%w: %w", ErrUnparseable, err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}

	st := a.stations[stationID]
	if st == nil {
		st = &stationReadings{}
		a.stations[stationID] = st
	}

	// Identical to what observers already have: drop.
	if snapshot.Equal(st.lastDelivered) {
		return nil
	}

	st.pending = snapshot
	if st.timer != nil {
		st.timer.Stop()
	}
	st.gen++
	gen := st.gen
	st.timer = time.AfterFunc(a.window, func() {
		a.fire(stationID, gen)
	})
	return nil
}

// fire delivers the pending snapshot once the window has elapsed with
// no further changes.
func (a *Aggregator) fire(stationID int, gen uint64) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	st := a.stations[stationID]
	if st == nil || st.pending == nil || st.gen != gen {
		a.mu.Unlock()
		return
	}
	snapshot := st.pending
	st.lastDelivered = snapshot
	st.pending = nil
	st.timer = nil
	a.mu.Unlock()

	a.deliver(stationID, snapshot)
}

// Last returns the last delivered snapshot for a station, or nil.
func (a *Aggregator) Last(stationID int) Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	if st := a.stations[stationID]; st != nil {
		return st.lastDelivered
	}
	return nil
}

// Close stops all pending timers. Armed windows never fire afterwards.
func (a *Aggregator) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	for _, st := range a.stations {
		if st.timer != nil {
			st.timer.Stop()
		}
	}
}
