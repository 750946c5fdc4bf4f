package dispatch

import (
	"sync"
	"time"
)

// Class identifies a logical device class with its own command queue.
// Pacing applies within a class; classes never delay each other.
type Class string

const (
	ClassLift     Class = "lift"
	ClassAGV      Class = "agv"
	ClassTray     Class = "tray"
	ClassLighting Class = "lighting"
	ClassWater    Class = "water"
)

// Classes lists every known device class.
var Classes = []Class{ClassLift, ClassAGV, ClassTray, ClassLighting, ClassWater}

// IsValid returns true for a known class value.
func (c Class) IsValid() bool {
	for _, known := range Classes {
		if c == known {
			return true
		}
	}
	return false
}

// Command is one outbound device command.
type Command struct {
	Topic   string
	Payload []byte
	QoS     byte
}

// Publisher is the transport the dispatcher publishes through.
// *mqtt.Client satisfies it.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Logger is the minimal logging interface the dispatcher needs.
type Logger interface {
	Debug(msg string, args ...any)
	Error(msg string, args ...any)
}

// Dispatcher serializes outbound device commands per class.
//
// Each class runs one worker holding a FIFO: pop front, publish, wait
// the minimum inter-command delay, continue. Workers sleep when their
// queue is empty and wake on submission. The pacing exists to protect
// downstream devices that cannot absorb command bursts; it is not a
// retry or reliability layer. Publish failures are logged and the
// command is dropped, matching the no-retry rule of the flow engine.
//
// Ordering holds per producer within a class. There is no duplicate
// suppression; callers submit idempotent commands.
type Dispatcher struct {
	publisher   Publisher
	minInterval time.Duration
	logger      Logger

	mu     sync.Mutex
	queues map[Class]*classQueue
	closed bool

	wg sync.WaitGroup
}

// classQueue is the per-class FIFO plus its wake signal.
type classQueue struct {
	mu      sync.Mutex
	pending []Command

	// wake has capacity 1: a submission into an idle queue wakes the
	// worker, further submissions while awake coalesce.
	wake chan struct{}
	stop chan struct{}
}

// New creates a dispatcher and starts one worker per class.
// minInterval is the minimum gap between two publishes of one class.
func New(publisher Publisher, minInterval time.Duration, logger Logger) *Dispatcher {
	d := &Dispatcher{
		publisher:   publisher,
		minInterval: minInterval,
		logger:      logger,
		queues:      make(map[Class]*classQueue, len(Classes)),
	}
	for _, class := range Classes {
		q := &classQueue{
			wake: make(chan struct{}, 1),
			stop: make(chan struct{}),
		}
		d.queues[class] = q
		d.wg.Add(1)
		go d.run(class, q)
	}
	return d
}

// Submit appends a command to its class queue.
// Returns ErrUnknownClass for a class without a queue and ErrClosed
// after Close.
func (d *Dispatcher) Submit(class Class, cmd Command) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrClosed
	}
	q, ok := d.queues[class]
	d.mu.Unlock()

	if !ok {
		return ErrUnknownClass
	}

	q.mu.Lock()
	q.pending = append(q.pending, cmd)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return nil
}

// SubmitAfter schedules a command for submission after a delay.
// Used for settle delays: the flow machine never blocks, it defers the
// follow-up command instead. The timer is best-effort; a dispatcher
// closed before it fires drops the command.
func (d *Dispatcher) SubmitAfter(class Class, cmd Command, delay time.Duration) {
	if delay <= 0 {
		_ = d.Submit(class, cmd) //nolint:errcheck // Drop on closed, as documented
		return
	}
	time.AfterFunc(delay, func() {
		_ = d.Submit(class, cmd) //nolint:errcheck // Drop on closed, as documented
	})
}

// Pending returns the queued command count for a class.
func (d *Dispatcher) Pending(class Class) int {
	d.mu.Lock()
	q, ok := d.queues[class]
	d.mu.Unlock()
	if !ok {
		return 0
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Close stops all workers. Queued commands that have not been
// published are discarded.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, q := range d.queues {
		close(q.stop)
	}
	d.mu.Unlock()

	d.wg.Wait()
}

// run is the per-class worker loop.
func (d *Dispatcher) run(class Class, q *classQueue) {
	defer d.wg.Done()

	var lastDispatch time.Time
	for {
		cmd, ok := q.pop()
		if !ok {
			select {
			case <-q.wake:
				continue
			case <-q.stop:
				return
			}
		}

		// Pace: honour the minimum gap since the previous publish.
		if wait := d.minInterval - time.Since(lastDispatch); wait > 0 {
			select {
			case <-time.After(wait):
			case <-q.stop:
				return
			}
		}

		if err := d.publisher.Publish(cmd.Topic, cmd.Payload, cmd.QoS, false); err != nil {
			if d.logger != nil {
				d.logger.Error("command publish failed",
					"class", string(class), "topic", cmd.Topic, "error", err)
			}
		} else if d.logger != nil {
			d.logger.Debug("command dispatched",
				"class", string(class), "topic", cmd.Topic)
		}
		lastDispatch = time.Now()

		select {
		case <-q.stop:
			return
		default:
		}
	}
}

func (q *classQueue) pop() (Command, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return Command{}, false
	}
	cmd := q.pending[0]
	q.pending = q.pending[1:]
	return cmd, true
}
