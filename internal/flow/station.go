package flow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/greenrack/greenrack-core/internal/dispatch"
	"github.com/greenrack/greenrack-core/internal/infrastructure/logging"
	"github.com/greenrack/greenrack-core/internal/infrastructure/mqtt"
	"github.com/greenrack/greenrack-core/internal/task"
	"github.com/greenrack/greenrack-core/internal/tray"
)

// Metadata is the plant information carried by an inbound tray.
type Metadata struct {
	Species        string     `json:"species,omitempty"`
	Quantity       int        `json:"quantity,omitempty"`
	BatchID        string     `json:"batch_id,omitempty"`
	SeededAt       *time.Time `json:"seeded_at,omitempty"`
	Notes          string     `json:"notes,omitempty"`
	WorkOrderID    string     `json:"work_order_id,omitempty"`
	PlantingPlanID string     `json:"planting_plan_id,omitempty"`
}

// Status is the read view of one station, safe to serialize.
type Status struct {
	StationID   int     `json:"station_id"`
	HomeFloor   int     `json:"home_floor"`
	State       State   `json:"state"`
	Job         JobType `json:"job"`
	TaskID      string  `json:"task_id,omitempty"`
	TrayID      string  `json:"tray_id,omitempty"`
	TargetFloor int     `json:"target_floor,omitempty"`
	TargetSlot  int     `json:"target_slot,omitempty"`

	LatestLift *LiftStatusEvent `json:"latest_lift,omitempty"`
	LatestAGV  *AGVStatusEvent  `json:"latest_agv,omitempty"`
}

// Submitter is the dispatcher surface the supervisor drives.
type Submitter interface {
	Submit(class dispatch.Class, cmd dispatch.Command) error
	SubmitAfter(class dispatch.Class, cmd dispatch.Command, delay time.Duration)
}

// Broadcaster fans state changes out to the push channel. Fire and
// forget; never part of the control loop.
type Broadcaster interface {
	Broadcast(eventType string, payload interface{})
}

// StationConfig wires one station.
type StationConfig struct {
	ID        int
	HomeFloor int
}

// Deps are the supervisor's collaborators.
type Deps struct {
	Tasks       task.Repository
	Trays       tray.Repository
	Dispatcher  Submitter
	Broadcaster Broadcaster // optional
	Logger      *logging.Logger

	// SettleDelay is the pause inserted before the next command after
	// a mechanical acknowledgment.
	SettleDelay time.Duration
}

// station is the runtime state of one machine. All access runs under
// mu, which serializes each station's events in arrival order while
// leaving stations independent of each other.
type station struct {
	id      int
	machine Machine

	mu sync.Mutex

	state  State
	job    Job
	taskID string
	trayID string
	meta   Metadata

	latestLift *LiftStatusEvent
	latestAGV  *AGVStatusEvent

	// trayAck latches an acknowledgment that arrived before the
	// machine was waiting for it. One-shot: cleared on read.
	trayAck bool
}

// Supervisor owns every station machine and applies their effects:
// dispatcher submissions, task and inventory writes, broadcasts.
type Supervisor struct {
	deps     Deps
	topics   mqtt.Topics
	stations map[int]*station
	log      *logging.Logger

	closed bool
	mu     sync.RWMutex
}

// NewSupervisor creates a supervisor with one machine per configured
// station. All stations begin idle.
func NewSupervisor(stations []StationConfig, deps Deps) *Supervisor {
	s := &Supervisor{
		deps:     deps,
		stations: make(map[int]*station, len(stations)),
		log:      deps.Logger.With("component", "flow"),
	}
	for _, cfg := range stations {
		s.stations[cfg.ID] = &station{
			id:      cfg.ID,
			machine: Machine{HomeFloor: cfg.HomeFloor},
			state:   StateIdle,
			job:     Job{Type: JobNone},
		}
	}
	return s
}

// Close stops the supervisor. Subsequent starts and events are
// rejected or dropped.
func (s *Supervisor) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

func (s *Supervisor) station(id int) (*station, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	st, ok := s.stations[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownStation, id)
	}
	return st, nil
}

// ─── External Start / Resolve Calls ──────────────────────────────────────────

// StartInbound begins moving a new tray from the workstation into the
// slot at (floor, slot). Fails with ErrBusy unless the station is
// idle; a busy station rejects, never queues.
func (s *Supervisor) StartInbound(ctx context.Context, stationID, floor, slot int, meta Metadata) (string, error) {
	st, err := s.station(stationID)
	if err != nil {
		return "", err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if !st.state.IsIdle() {
		return "", fmt.Errorf("%w: station %d in state %s", ErrBusy, stationID, st.state)
	}

	// The slot must be free before any hardware moves.
	if _, err := s.deps.Trays.GetStoredAt(ctx, floor, slot); err == nil {
		return "", fmt.Errorf("%w: floor %d slot %d", tray.ErrSlotOccupied, floor, slot)
	} else if !errors.Is(err, tray.ErrSlotEmpty) {
		return "", err
	}

	t := &task.Task{
		ID:             uuid.NewString(),
		StationID:      stationID,
		Direction:      task.DirectionInbound,
		TargetFloor:    floor,
		TargetSlot:     slot,
		WorkOrderID:    meta.WorkOrderID,
		PlantingPlanID: meta.PlantingPlanID,
	}
	if err := s.deps.Tasks.Create(ctx, t); err != nil {
		return "", fmt.Errorf("creating inbound task: %w", err)
	}

	st.job = Job{Type: JobInbound, TargetFloor: floor, TargetSlot: slot}
	st.taskID = t.ID
	st.trayID = uuid.NewString()
	st.meta = meta
	st.trayAck = false

	from := st.state
	next, effects := st.machine.StartInbound()
	s.commit(ctx, st, from, next, effects)

	s.log.Info("inbound started",
		"station", stationID, "task", t.ID, "floor", floor, "slot", slot)
	return t.ID, nil
}

// StartOutbound begins retrieving the tray stored at (floor, slot) to
// the workstation. Fails with ErrBusy unless the station is idle and
// with ErrNotFound when the slot is empty.
func (s *Supervisor) StartOutbound(ctx context.Context, stationID, floor, slot int) (string, error) {
	st, err := s.station(stationID)
	if err != nil {
		return "", err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if !st.state.IsIdle() {
		return "", fmt.Errorf("%w: station %d in state %s", ErrBusy, stationID, st.state)
	}

	occupant, err := s.deps.Trays.GetStoredAt(ctx, floor, slot)
	if err != nil {
		if errors.Is(err, tray.ErrSlotEmpty) {
			return "", fmt.Errorf("%w: floor %d slot %d", ErrNotFound, floor, slot)
		}
		return "", err
	}

	t := &task.Task{
		ID:          uuid.NewString(),
		StationID:   stationID,
		Direction:   task.DirectionOutbound,
		TrayID:      occupant.ID,
		TargetFloor: floor,
		TargetSlot:  slot,
	}
	if err := s.deps.Tasks.Create(ctx, t); err != nil {
		return "", fmt.Errorf("creating outbound task: %w", err)
	}

	st.job = Job{Type: JobOutbound, TargetFloor: floor, TargetSlot: slot}
	st.taskID = t.ID
	st.trayID = occupant.ID
	st.meta = Metadata{}
	st.trayAck = false

	from := st.state
	next, effects := st.machine.StartOutbound(st.job)
	s.commit(ctx, st, from, next, effects)

	s.log.Info("outbound started",
		"station", stationID, "task", t.ID, "floor", floor, "slot", slot)
	return t.ID, nil
}

// Confirm resolves a task parked at the workstation: the operator took
// the tray. Independent of the event loop; the station may already be
// running a new job.
func (s *Supervisor) Confirm(ctx context.Context, stationID int) error {
	return s.resolveWorkstation(ctx, stationID, task.StatusSuccess, "")
}

// Dispose resolves a parked task as rejected: the tray was discarded.
func (s *Supervisor) Dispose(ctx context.Context, stationID int) error {
	return s.resolveWorkstation(ctx, stationID, task.StatusError, "disposed by operator")
}

func (s *Supervisor) resolveWorkstation(ctx context.Context, stationID int, to task.Status, detail string) error {
	if _, err := s.station(stationID); err != nil {
		return err
	}

	open, err := s.workstationTask(ctx, stationID)
	if err != nil {
		return err
	}

	if err := s.deps.Tasks.TransitionStatus(ctx, open.ID, task.StatusAtWorkstation, to, detail); err != nil {
		return err
	}
	if open.TrayID != "" {
		if err := s.deps.Trays.MarkRemoved(ctx, open.TrayID); err != nil && !errors.Is(err, tray.ErrTrayNotFound) {
			s.log.Error("marking tray removed failed",
				"station", stationID, "tray", open.TrayID, "error", err)
		}
	}

	s.broadcast("task_resolved", map[string]interface{}{
		"station_id": stationID,
		"task_id":    open.ID,
		"status":     to,
	})
	s.log.Info("workstation task resolved",
		"station", stationID, "task", open.ID, "status", string(to))
	return nil
}

// workstationTask finds the station's open at_workstation task.
func (s *Supervisor) workstationTask(ctx context.Context, stationID int) (*task.Task, error) {
	tasks, err := s.deps.Tasks.ListByStation(ctx, stationID)
	if err != nil {
		return nil, err
	}
	for i := range tasks {
		if tasks[i].Status == task.StatusAtWorkstation {
			return &tasks[i], nil
		}
	}
	return nil, fmt.Errorf("%w: station %d", ErrNoOpenTask, stationID)
}

// ─── Inbound Event Routing ───────────────────────────────────────────────────

// HandleLiftStatus feeds a raw lift status payload into a station.
func (s *Supervisor) HandleLiftStatus(stationID int, payload []byte) {
	ev, err := ParseLiftStatus(payload)
	if err != nil {
		s.rawFallback(stationID, "lift/status", payload, err)
		return
	}
	s.handleEvent(stationID, ev)
}

// HandleAGVStatus feeds a raw AGV status payload into a station.
func (s *Supervisor) HandleAGVStatus(stationID int, payload []byte) {
	ev, err := ParseAGVStatus(payload)
	if err != nil {
		s.rawFallback(stationID, "agv/status", payload, err)
		return
	}
	s.handleEvent(stationID, ev)
}

// HandleTrayActionDone feeds the tray acknowledgment signal into a
// station. Payload content is ignored.
func (s *Supervisor) HandleTrayActionDone(stationID int) {
	s.handleEvent(stationID, TrayActionDoneEvent{})
}

// rawFallback surfaces an unparseable payload to observers without
// letting it near a control decision.
func (s *Supervisor) rawFallback(stationID int, kind string, payload []byte, parseErr error) {
	s.log.Warn("unparseable payload ignored",
		"station", stationID, "kind", kind, "error", parseErr)
	s.broadcast("raw_message", map[string]interface{}{
		"station_id": stationID,
		"kind":       kind,
		"payload":    string(payload),
	})
}

// handleEvent routes one typed event into its station machine.
func (s *Supervisor) handleEvent(stationID int, ev Event) {
	st, err := s.station(stationID)
	if err != nil {
		s.log.Warn("event for unknown station dropped", "station", stationID)
		return
	}

	ctx := context.Background()

	st.mu.Lock()
	defer st.mu.Unlock()

	switch e := ev.(type) {
	case LiftStatusEvent:
		st.latestLift = &e
	case AGVStatusEvent:
		st.latestAGV = &e
	case TrayActionDoneEvent:
		// An ack the machine is not waiting for latches one-shot.
		if !st.state.waitsForTrayAction() {
			st.trayAck = true
			return
		}
	}

	from := st.state
	next, effects := st.machine.Transition(st.state, st.job, ev)
	if next == from && len(effects) == 0 {
		return
	}
	s.commit(ctx, st, from, next, effects)

	// A latched ack is consumed the moment the machine starts waiting
	// for one, and cleared on that read.
	if st.trayAck && st.state.waitsForTrayAction() {
		st.trayAck = false
		ackFrom := st.state
		ackNext, ackEffects := st.machine.Transition(st.state, st.job, TrayActionDoneEvent{})
		if ackNext != ackFrom || len(ackEffects) > 0 {
			s.commit(ctx, st, ackFrom, ackNext, ackEffects)
		}
	}
}

// ─── Effect Application ──────────────────────────────────────────────────────

// commit applies a transition's effects and publishes the state
// change. Caller holds st.mu.
func (s *Supervisor) commit(ctx context.Context, st *station, from, next State, effects []Effect) {
	st.state = next

	for _, effect := range effects {
		if !s.applyEffect(ctx, st, effect) {
			// Persistence failed: the flow was aborted inside
			// applyEffect; drop the remaining effects.
			break
		}
	}

	if st.state != from {
		s.broadcast("flow_state_changed", map[string]interface{}{
			"station_id": st.id,
			"from":       from,
			"to":         st.state,
			"job":        st.job.Type,
			"task_id":    st.taskID,
		})
		s.log.Debug("flow transition",
			"station", st.id, "from", string(from), "to", string(st.state))
	}
}

// applyEffect performs one effect. Returns false when the flow was
// aborted and remaining effects must be dropped.
func (s *Supervisor) applyEffect(ctx context.Context, st *station, effect Effect) bool {
	switch e := effect.(type) {
	case CmdTrayAction:
		s.submit(dispatch.ClassTray, s.topics.TrayCommand(st.id),
			map[string]interface{}{"command": string(e.Action)}, e.Settle)

	case CmdAGVGoto:
		payload := map[string]interface{}{"command": "goto_" + string(e.Dest)}
		if e.Dest == AGVToSlot {
			payload["slot"] = st.job.TargetSlot
		}
		s.submit(dispatch.ClassAGV, s.topics.AGVCommand(st.id), payload, e.Settle)

	case CmdLiftMoveTo:
		s.submit(dispatch.ClassLift, s.topics.LiftCommand(st.id),
			map[string]interface{}{"action": "moveTo", "floor": e.Floor}, e.Settle)

	case PersistArrival:
		if err := s.persistArrival(ctx, st); err != nil {
			s.abortForPersistence(ctx, st, err)
			return false
		}

	case TaskTransition:
		s.applyTaskTransition(ctx, st, e)

	case ResetStation:
		st.job = Job{Type: JobNone}
		st.taskID = ""
		st.trayID = ""
		st.meta = Metadata{}
		st.trayAck = false
	}
	return true
}

// submit serializes a command payload onto the dispatcher, deferred by
// the settle window when requested.
func (s *Supervisor) submit(class dispatch.Class, topic string, payload map[string]interface{}, settle bool) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Error("encoding command failed", "topic", topic, "error", err)
		return
	}
	cmd := dispatch.Command{Topic: topic, Payload: data, QoS: 1}
	if settle {
		s.deps.Dispatcher.SubmitAfter(class, cmd, s.deps.SettleDelay)
		return
	}
	if err := s.deps.Dispatcher.Submit(class, cmd); err != nil {
		s.log.Error("command submission failed", "topic", topic, "error", err)
	}
}

// persistArrival records the slot visit in the inventory: inbound
// inserts the tray row, outbound flips the occupant to outbound.
func (s *Supervisor) persistArrival(ctx context.Context, st *station) error {
	switch st.job.Type {
	case JobInbound:
		t := &tray.Tray{
			ID:        st.trayID,
			Floor:     st.job.TargetFloor,
			Slot:      st.job.TargetSlot,
			StationID: st.id,
			Species:   st.meta.Species,
			Quantity:  st.meta.Quantity,
			BatchID:   st.meta.BatchID,
			SeededAt:  st.meta.SeededAt,
			Notes:     st.meta.Notes,
		}
		if err := s.deps.Trays.Create(ctx, t); err != nil {
			return fmt.Errorf("storing tray: %w", err)
		}
		if err := s.deps.Tasks.SetTray(ctx, st.taskID, st.trayID); err != nil {
			return fmt.Errorf("linking tray to task: %w", err)
		}
		return nil

	case JobOutbound:
		if _, err := s.deps.Trays.MarkOutbound(ctx, st.job.TargetFloor, st.job.TargetSlot); err != nil {
			return fmt.Errorf("marking tray outbound: %w", err)
		}
		return nil
	}
	return nil
}

// abortForPersistence kills the flow after a failed inventory write.
// Continuing on a stale assumption risks duplicate physical actuation,
// so the job dies and the task is marked failed.
func (s *Supervisor) abortForPersistence(ctx context.Context, st *station, cause error) {
	s.log.Error("persistence failure, aborting flow",
		"station", st.id, "task", st.taskID, "error", cause)

	s.applyTaskTransition(ctx, st, TaskTransition{
		From:   task.StatusWorking,
		To:     task.StatusError,
		Detail: fmt.Sprintf("persistence failure: %v", cause),
	})

	from := st.state
	st.state = StateIdle
	st.job = Job{Type: JobNone}
	st.taskID = ""
	st.trayID = ""
	st.meta = Metadata{}
	st.trayAck = false

	s.broadcast("flow_state_changed", map[string]interface{}{
		"station_id": st.id,
		"from":       from,
		"to":         StateIdle,
		"job":        JobNone,
	})
}

// applyTaskTransition moves the station's task. An error abort may
// catch the task still pending; the pending->error fallback covers it.
func (s *Supervisor) applyTaskTransition(ctx context.Context, st *station, e TaskTransition) {
	if st.taskID == "" {
		return
	}
	err := s.deps.Tasks.TransitionStatus(ctx, st.taskID, e.From, e.To, e.Detail)
	if errors.Is(err, task.ErrInvalidTransition) && e.To == task.StatusError {
		err = s.deps.Tasks.TransitionStatus(ctx, st.taskID, task.StatusPending, task.StatusError, e.Detail)
	}
	if err != nil {
		s.log.Error("task transition failed",
			"task", st.taskID, "from", string(e.From), "to", string(e.To), "error", err)
	}
}

func (s *Supervisor) broadcast(eventType string, payload interface{}) {
	if s.deps.Broadcaster != nil {
		s.deps.Broadcaster.Broadcast(eventType, payload)
	}
}

// ─── Read Views ──────────────────────────────────────────────────────────────

// Status returns the read view of one station.
func (s *Supervisor) Status(stationID int) (Status, error) {
	st, err := s.station(stationID)
	if err != nil {
		return Status{}, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	return Status{
		StationID:   st.id,
		HomeFloor:   st.machine.HomeFloor,
		State:       st.state,
		Job:         st.job.Type,
		TaskID:      st.taskID,
		TrayID:      st.trayID,
		TargetFloor: st.job.TargetFloor,
		TargetSlot:  st.job.TargetSlot,
		LatestLift:  st.latestLift,
		LatestAGV:   st.latestAGV,
	}, nil
}

// StatusAll returns the read view of every station, ordered by id.
func (s *Supervisor) StatusAll() []Status {
	s.mu.RLock()
	ids := make([]int, 0, len(s.stations))
	for id := range s.stations {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	sort.Ints(ids)
	out := make([]Status, 0, len(ids))
	for _, id := range ids {
		if status, err := s.Status(id); err == nil {
			out = append(out, status)
		}
	}
	return out
}
