package flow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/greenrack/greenrack-core/internal/dispatch"
	"github.com/greenrack/greenrack-core/internal/infrastructure/config"
	"github.com/greenrack/greenrack-core/internal/infrastructure/logging"
	"github.com/greenrack/greenrack-core/internal/task"
	"github.com/greenrack/greenrack-core/internal/tray"
)

// ─── Mocks ───────────────────────────────────────────────────────────────────

type mockTaskRepo struct {
	mu          sync.Mutex
	tasks       map[string]*task.Task
	transitions []string
}

func newMockTaskRepo() *mockTaskRepo {
	return &mockTaskRepo{tasks: make(map[string]*task.Task)}
}

func (r *mockTaskRepo) GetByID(_ context.Context, id string) (*task.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return nil, task.ErrTaskNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *mockTaskRepo) List(_ context.Context) ([]task.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]task.Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		out = append(out, *t)
	}
	return out, nil
}

func (r *mockTaskRepo) ListByStation(_ context.Context, stationID int) ([]task.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []task.Task
	for _, t := range r.tasks {
		if t.StationID == stationID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (r *mockTaskRepo) ListActive(_ context.Context) ([]task.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []task.Task
	for _, t := range r.tasks {
		if !t.Status.IsTerminal() {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (r *mockTaskRepo) Create(_ context.Context, t *task.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[t.ID]; ok {
		return task.ErrTaskExists
	}
	cp := *t
	cp.Status = task.StatusPending
	r.tasks[t.ID] = &cp
	return nil
}

func (r *mockTaskRepo) TransitionStatus(_ context.Context, id string, from, to task.Status, detail string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return task.ErrTaskNotFound
	}
	if t.Status == to {
		return nil
	}
	if t.Status != from || !task.CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", task.ErrInvalidTransition, t.Status, to)
	}
	t.Status = to
	t.Detail = detail
	r.transitions = append(r.transitions, string(from)+"->"+string(to))
	return nil
}

func (r *mockTaskRepo) SetTray(_ context.Context, id, trayID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return task.ErrTaskNotFound
	}
	t.TrayID = trayID
	return nil
}

func (r *mockTaskRepo) statusSequence() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.transitions...)
}

type mockTrayRepo struct {
	mu        sync.Mutex
	trays     map[string]*tray.Tray
	createErr error
	removed   []string
}

func newMockTrayRepo() *mockTrayRepo {
	return &mockTrayRepo{trays: make(map[string]*tray.Tray)}
}

func (r *mockTrayRepo) GetByID(_ context.Context, id string) (*tray.Tray, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.trays[id]
	if !ok {
		return nil, tray.ErrTrayNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *mockTrayRepo) GetStoredAt(_ context.Context, floor, slot int) (*tray.Tray, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.trays {
		if t.Status == tray.StatusStored && t.Floor == floor && t.Slot == slot {
			cp := *t
			return &cp, nil
		}
	}
	return nil, tray.ErrSlotEmpty
}

func (r *mockTrayRepo) List(_ context.Context) ([]tray.Tray, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]tray.Tray, 0, len(r.trays))
	for _, t := range r.trays {
		out = append(out, *t)
	}
	return out, nil
}

func (r *mockTrayRepo) ListStored(_ context.Context) ([]tray.Tray, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []tray.Tray
	for _, t := range r.trays {
		if t.Status == tray.StatusStored {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (r *mockTrayRepo) Create(_ context.Context, t *tray.Tray) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	for _, existing := range r.trays {
		if existing.Status == tray.StatusStored && existing.Floor == t.Floor && existing.Slot == t.Slot {
			return tray.ErrSlotOccupied
		}
	}
	cp := *t
	cp.Status = tray.StatusStored
	r.trays[t.ID] = &cp
	return nil
}

func (r *mockTrayRepo) MarkOutbound(_ context.Context, floor, slot int) (*tray.Tray, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.trays {
		if t.Status == tray.StatusStored && t.Floor == floor && t.Slot == slot {
			t.Status = tray.StatusOutbound
			cp := *t
			return &cp, nil
		}
	}
	return nil, tray.ErrSlotEmpty
}

func (r *mockTrayRepo) MarkRemoved(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.trays[id]
	if !ok {
		return tray.ErrTrayNotFound
	}
	t.Status = tray.StatusRemoved
	r.removed = append(r.removed, id)
	return nil
}

func (r *mockTrayRepo) UpdateWater(_ context.Context, id string, level float64, wateredAt time.Time) error {
	return nil
}

type dispatched struct {
	class   dispatch.Class
	cmd     dispatch.Command
	settled bool
}

type mockSubmitter struct {
	mu   sync.Mutex
	cmds []dispatched
}

func (m *mockSubmitter) Submit(class dispatch.Class, cmd dispatch.Command) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cmds = append(m.cmds, dispatched{class: class, cmd: cmd})
	return nil
}

func (m *mockSubmitter) SubmitAfter(class dispatch.Class, cmd dispatch.Command, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cmds = append(m.cmds, dispatched{class: class, cmd: cmd, settled: true})
}

// commands decodes every dispatched payload's "command"/"action" field.
func (m *mockSubmitter) commands() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.cmds))
	for _, d := range m.cmds {
		var payload map[string]interface{}
		if err := json.Unmarshal(d.cmd.Payload, &payload); err != nil {
			out = append(out, "unparseable")
			continue
		}
		if cmd, ok := payload["command"].(string); ok {
			out = append(out, cmd)
		} else if action, ok := payload["action"].(string); ok {
			out = append(out, action)
		}
	}
	return out
}

func (m *mockSubmitter) countClass(class dispatch.Class) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, d := range m.cmds {
		if d.class == class {
			n++
		}
	}
	return n
}

type mockBroadcaster struct {
	mu     sync.Mutex
	events []string
}

func (m *mockBroadcaster) Broadcast(eventType string, _ interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, eventType)
}

func (m *mockBroadcaster) has(eventType string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.events {
		if e == eventType {
			return true
		}
	}
	return false
}

// ─── Test Setup ──────────────────────────────────────────────────────────────

type testRig struct {
	sup   *Supervisor
	tasks *mockTaskRepo
	trays *mockTrayRepo
	disp  *mockSubmitter
	cast  *mockBroadcaster
}

func newTestRig(t *testing.T) *testRig {
	t.Helper()
	rig := &testRig{
		tasks: newMockTaskRepo(),
		trays: newMockTrayRepo(),
		disp:  &mockSubmitter{},
		cast:  &mockBroadcaster{},
	}
	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")
	rig.sup = NewSupervisor(
		[]StationConfig{{ID: 1, HomeFloor: 1}, {ID: 2, HomeFloor: 1}},
		Deps{
			Tasks:       rig.tasks,
			Trays:       rig.trays,
			Dispatcher:  rig.disp,
			Broadcaster: rig.cast,
			Logger:      log,
			SettleDelay: 100 * time.Millisecond,
		},
	)
	t.Cleanup(rig.sup.Close)
	return rig
}

func (rig *testRig) mustState(t *testing.T, stationID int, want State) {
	t.Helper()
	status, err := rig.sup.Status(stationID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.State != want {
		t.Fatalf("station %d state = %s, want %s", stationID, status.State, want)
	}
}

func agvStatus(status, location string) []byte {
	return []byte(fmt.Sprintf(`{"status":%q,"location":%q}`, status, location))
}

// ─── Start Guards ────────────────────────────────────────────────────────────

func TestStartInboundRejectsBusyStation(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()

	if _, err := rig.sup.StartInbound(ctx, 1, 3, 5, Metadata{}); err != nil {
		t.Fatalf("first start: %v", err)
	}
	if _, err := rig.sup.StartInbound(ctx, 1, 3, 6, Metadata{}); !errors.Is(err, ErrBusy) {
		t.Errorf("second start err = %v, want ErrBusy", err)
	}
	if _, err := rig.sup.StartOutbound(ctx, 1, 3, 5); !errors.Is(err, ErrBusy) {
		t.Errorf("outbound on busy station err = %v, want ErrBusy", err)
	}

	// Other stations are unaffected.
	if _, err := rig.sup.StartInbound(ctx, 2, 4, 1, Metadata{}); err != nil {
		t.Errorf("start on idle sibling: %v", err)
	}
}

func TestConcurrentStartsAcceptExactlyOne(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()

	const racers = 8
	var wg sync.WaitGroup
	errs := make([]error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = rig.sup.StartInbound(ctx, 1, 3, 5+i, Metadata{})
		}(i)
	}
	wg.Wait()

	accepted, busy := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			accepted++
		case errors.Is(err, ErrBusy):
			busy++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if accepted != 1 || busy != racers-1 {
		t.Errorf("accepted = %d, busy = %d, want 1 and %d", accepted, busy, racers-1)
	}
}

func TestStartInboundRejectsOccupiedSlot(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()
	rig.trays.trays["t1"] = &tray.Tray{ID: "t1", Status: tray.StatusStored, Floor: 3, Slot: 5}

	if _, err := rig.sup.StartInbound(ctx, 1, 3, 5, Metadata{}); !errors.Is(err, tray.ErrSlotOccupied) {
		t.Errorf("err = %v, want ErrSlotOccupied", err)
	}
	rig.mustState(t, 1, StateIdle)
}

func TestStartOutboundRequiresOccupant(t *testing.T) {
	rig := newTestRig(t)

	if _, err := rig.sup.StartOutbound(context.Background(), 1, 3, 5); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	rig.mustState(t, 1, StateIdle)
}

func TestUnknownStationRejected(t *testing.T) {
	rig := newTestRig(t)

	if _, err := rig.sup.StartInbound(context.Background(), 9, 1, 1, Metadata{}); !errors.Is(err, ErrUnknownStation) {
		t.Errorf("err = %v, want ErrUnknownStation", err)
	}
}

// ─── Full Flows ──────────────────────────────────────────────────────────────

// Inbound to the home floor: the lift never moves, and the task runs
// pending -> working -> success.
func TestInboundHomeFloorHappyPath(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()

	taskID, err := rig.sup.StartInbound(ctx, 1, 1, 3, Metadata{Species: "lettuce", Quantity: 40})
	if err != nil {
		t.Fatalf("StartInbound: %v", err)
	}
	rig.mustState(t, 1, StateInboundWaitForTrayLift)

	rig.sup.HandleTrayActionDone(1)
	rig.mustState(t, 1, StateWaitAGVAtSlot)

	rig.sup.HandleAGVStatus(1, agvStatus("idle", "at_slot"))
	rig.mustState(t, 1, StateWaitTrayActionDone)

	rig.sup.HandleTrayActionDone(1)
	rig.mustState(t, 1, StateWaitAGVHome)

	rig.sup.HandleAGVStatus(1, agvStatus("idle", "home"))
	rig.mustState(t, 1, StateIdle)

	if n := rig.disp.countClass(dispatch.ClassLift); n != 0 {
		t.Errorf("lift commands = %d, want 0 for home floor job", n)
	}

	wantCmds := []string{"pickup_tray", "goto_slot", "place_tray", "goto_home"}
	gotCmds := rig.disp.commands()
	if len(gotCmds) != len(wantCmds) {
		t.Fatalf("commands = %v, want %v", gotCmds, wantCmds)
	}
	for i := range wantCmds {
		if gotCmds[i] != wantCmds[i] {
			t.Errorf("command[%d] = %s, want %s", i, gotCmds[i], wantCmds[i])
		}
	}

	wantSeq := []string{"pending->working", "working->success"}
	gotSeq := rig.tasks.statusSequence()
	if len(gotSeq) != 2 || gotSeq[0] != wantSeq[0] || gotSeq[1] != wantSeq[1] {
		t.Errorf("task sequence = %v, want %v", gotSeq, wantSeq)
	}

	stored, err := rig.trays.GetStoredAt(ctx, 1, 3)
	if err != nil {
		t.Fatalf("tray not stored: %v", err)
	}
	if stored.Species != "lettuce" || stored.Quantity != 40 {
		t.Errorf("stored tray = %+v", stored)
	}
	done, _ := rig.tasks.GetByID(ctx, taskID)
	if done.TrayID != stored.ID {
		t.Errorf("task tray id = %q, want %q", done.TrayID, stored.ID)
	}
}

// Inbound to another floor walks the full lift path in order.
func TestInboundLiftPath(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()

	if _, err := rig.sup.StartInbound(ctx, 1, 4, 2, Metadata{}); err != nil {
		t.Fatalf("StartInbound: %v", err)
	}

	rig.sup.HandleTrayActionDone(1)
	rig.mustState(t, 1, StateWaitAGVAtLift)

	rig.sup.HandleAGVStatus(1, agvStatus("idle", "at_lift"))
	rig.mustState(t, 1, StateLiftMovingUp)

	rig.sup.HandleLiftStatus(1, []byte(`{"floor":4,"moving":true}`))
	rig.mustState(t, 1, StateLiftMovingUp)

	rig.sup.HandleLiftStatus(1, []byte(`{"floor":4,"moving":false}`))
	rig.mustState(t, 1, StateWaitAGVAtSlot)

	rig.sup.HandleAGVStatus(1, agvStatus("idle", "at_slot"))
	rig.sup.HandleTrayActionDone(1)
	rig.mustState(t, 1, StateWaitAGVReturnToLift)

	rig.sup.HandleAGVStatus(1, agvStatus("idle", "at_lift"))
	rig.mustState(t, 1, StateLiftMovingDown)

	rig.sup.HandleLiftStatus(1, []byte(`{"floor":1,"moving":false}`))
	rig.mustState(t, 1, StateWaitAGVHome)

	rig.sup.HandleAGVStatus(1, agvStatus("idle", "home"))
	rig.mustState(t, 1, StateIdle)

	if n := rig.disp.countClass(dispatch.ClassLift); n != 2 {
		t.Errorf("lift commands = %d, want 2 (up and down)", n)
	}
}

// Outbound parks the task at the workstation and frees the station
// before the operator resolves it.
func TestOutboundHandOffDecoupling(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()
	rig.trays.trays["t1"] = &tray.Tray{ID: "t1", Status: tray.StatusStored, Floor: 1, Slot: 2}

	taskID, err := rig.sup.StartOutbound(ctx, 1, 1, 2)
	if err != nil {
		t.Fatalf("StartOutbound: %v", err)
	}
	rig.mustState(t, 1, StateWaitAGVAtSlot)

	rig.sup.HandleAGVStatus(1, agvStatus("idle", "at_slot"))
	rig.sup.HandleTrayActionDone(1)
	rig.mustState(t, 1, StateWaitAGVHome)

	if picked, _ := rig.trays.GetByID(ctx, "t1"); picked.Status != tray.StatusOutbound {
		t.Errorf("tray status = %s, want outbound", picked.Status)
	}

	rig.sup.HandleAGVStatus(1, agvStatus("idle", "home"))
	rig.mustState(t, 1, StateOutboundWaitForFinalPlace)

	rig.sup.HandleTrayActionDone(1)
	rig.mustState(t, 1, StateIdle)

	parked, _ := rig.tasks.GetByID(ctx, taskID)
	if parked.Status != task.StatusAtWorkstation {
		t.Fatalf("task status = %s, want at_workstation", parked.Status)
	}

	// The station is free for new work while the task sits open.
	if _, err := rig.sup.StartInbound(ctx, 1, 3, 7, Metadata{}); err != nil {
		t.Fatalf("interim StartInbound: %v", err)
	}

	if err := rig.sup.Confirm(ctx, 1); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	resolved, _ := rig.tasks.GetByID(ctx, taskID)
	if resolved.Status != task.StatusSuccess {
		t.Errorf("task status = %s, want success", resolved.Status)
	}
	if removed, _ := rig.trays.GetByID(ctx, "t1"); removed.Status != tray.StatusRemoved {
		t.Errorf("tray status = %s, want removed", removed.Status)
	}
}

func TestDisposeMarksTaskError(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()
	rig.trays.trays["t1"] = &tray.Tray{ID: "t1", Status: tray.StatusStored, Floor: 1, Slot: 2}

	taskID, err := rig.sup.StartOutbound(ctx, 1, 1, 2)
	if err != nil {
		t.Fatalf("StartOutbound: %v", err)
	}
	rig.sup.HandleAGVStatus(1, agvStatus("idle", "at_slot"))
	rig.sup.HandleTrayActionDone(1)
	rig.sup.HandleAGVStatus(1, agvStatus("idle", "home"))
	rig.sup.HandleTrayActionDone(1)

	if err := rig.sup.Dispose(ctx, 1); err != nil {
		t.Fatalf("Dispose: %v", err)
	}
	resolved, _ := rig.tasks.GetByID(ctx, taskID)
	if resolved.Status != task.StatusError {
		t.Errorf("task status = %s, want error", resolved.Status)
	}
}

func TestConfirmWithoutOpenTask(t *testing.T) {
	rig := newTestRig(t)

	if err := rig.sup.Confirm(context.Background(), 1); !errors.Is(err, ErrNoOpenTask) {
		t.Errorf("err = %v, want ErrNoOpenTask", err)
	}
}

// ─── Fault Handling ──────────────────────────────────────────────────────────

func TestAGVErrorAbortsMidFlight(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()

	taskID, err := rig.sup.StartInbound(ctx, 1, 4, 2, Metadata{})
	if err != nil {
		t.Fatalf("StartInbound: %v", err)
	}
	rig.sup.HandleTrayActionDone(1)
	rig.mustState(t, 1, StateWaitAGVAtLift)

	rig.sup.HandleAGVStatus(1, agvStatus("error", ""))
	rig.mustState(t, 1, StateIdle)

	failed, _ := rig.tasks.GetByID(ctx, taskID)
	if failed.Status != task.StatusError {
		t.Errorf("task status = %s, want error", failed.Status)
	}

	// The station accepts new work after the abort.
	if _, err := rig.sup.StartInbound(ctx, 1, 4, 2, Metadata{}); err != nil {
		t.Errorf("start after abort: %v", err)
	}
}

func TestPersistenceFailureAbortsFlow(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()
	rig.trays.createErr = errors.New("disk full")

	taskID, err := rig.sup.StartInbound(ctx, 1, 1, 3, Metadata{})
	if err != nil {
		t.Fatalf("StartInbound: %v", err)
	}
	rig.sup.HandleTrayActionDone(1)
	rig.sup.HandleAGVStatus(1, agvStatus("idle", "at_slot"))

	// The arrival write fails: flow aborts, nothing more moves.
	rig.sup.HandleTrayActionDone(1)
	rig.mustState(t, 1, StateIdle)

	failed, _ := rig.tasks.GetByID(ctx, taskID)
	if failed.Status != task.StatusError {
		t.Errorf("task status = %s, want error", failed.Status)
	}
	for _, cmd := range rig.disp.commands() {
		if cmd == "goto_home" {
			t.Error("return command dispatched after aborted persistence")
		}
	}
}

func TestRawFallbackOnUnparseablePayload(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()

	if _, err := rig.sup.StartInbound(ctx, 1, 1, 3, Metadata{}); err != nil {
		t.Fatalf("StartInbound: %v", err)
	}
	before, _ := rig.sup.Status(1)

	rig.sup.HandleAGVStatus(1, []byte("garbage"))
	rig.sup.HandleLiftStatus(1, []byte("{broken"))

	after, _ := rig.sup.Status(1)
	if after.State != before.State {
		t.Errorf("state moved on unparseable payload: %s -> %s", before.State, after.State)
	}
	if !rig.cast.has("raw_message") {
		t.Error("raw fallback not broadcast")
	}
}

// ─── Acknowledgment Latch ────────────────────────────────────────────────────

// An acknowledgment that lands before the machine is waiting for it is
// held and consumed the moment the wait begins.
func TestEarlyTrayAckLatched(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()

	if _, err := rig.sup.StartInbound(ctx, 1, 1, 3, Metadata{}); err != nil {
		t.Fatalf("StartInbound: %v", err)
	}
	rig.sup.HandleTrayActionDone(1)
	rig.mustState(t, 1, StateWaitAGVAtSlot)

	// The gripper's done signal races ahead of the AGV arrival
	// report.
	rig.sup.HandleTrayActionDone(1)
	rig.mustState(t, 1, StateWaitAGVAtSlot)

	rig.sup.HandleAGVStatus(1, agvStatus("idle", "at_slot"))
	rig.mustState(t, 1, StateWaitAGVHome)

	if _, err := rig.trays.GetStoredAt(ctx, 1, 3); err != nil {
		t.Errorf("arrival not persisted after latched ack: %v", err)
	}
}

// The latch is one-shot: a consumed ack does not replay into the next
// waiting state.
func TestTrayAckLatchClearedOnRead(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()
	rig.trays.trays["t1"] = &tray.Tray{ID: "t1", Status: tray.StatusStored, Floor: 1, Slot: 2}

	if _, err := rig.sup.StartOutbound(ctx, 1, 1, 2); err != nil {
		t.Fatalf("StartOutbound: %v", err)
	}

	// Early ack while the AGV is still traveling.
	rig.sup.HandleTrayActionDone(1)
	rig.mustState(t, 1, StateWaitAGVAtSlot)

	// Arrival consumes the latch: pickup acked, AGV heads home.
	rig.sup.HandleAGVStatus(1, agvStatus("idle", "at_slot"))
	rig.mustState(t, 1, StateWaitAGVHome)

	// Home arrival starts the hand-off wait; the spent latch must not
	// complete it.
	rig.sup.HandleAGVStatus(1, agvStatus("idle", "home"))
	rig.mustState(t, 1, StateOutboundWaitForFinalPlace)
}

// ─── Read Views ──────────────────────────────────────────────────────────────

func TestStatusAllOrderedByID(t *testing.T) {
	rig := newTestRig(t)

	all := rig.sup.StatusAll()
	if len(all) != 2 {
		t.Fatalf("stations = %d, want 2", len(all))
	}
	if all[0].StationID != 1 || all[1].StationID != 2 {
		t.Errorf("order = [%d %d], want [1 2]", all[0].StationID, all[1].StationID)
	}
	for _, s := range all {
		if s.State != StateIdle {
			t.Errorf("station %d state = %s, want idle", s.StationID, s.State)
		}
	}
}

func TestClosedSupervisorRejectsWork(t *testing.T) {
	rig := newTestRig(t)
	rig.sup.Close()

	if _, err := rig.sup.StartInbound(context.Background(), 1, 1, 3, Metadata{}); !errors.Is(err, ErrClosed) {
		t.Errorf("err = %v, want ErrClosed", err)
	}
	if _, err := rig.sup.Status(1); !errors.Is(err, ErrClosed) {
		t.Errorf("Status err = %v, want ErrClosed", err)
	}
}

// ─── Manual Lift Control ─────────────────────────────────────────────────────

func (m *mockSubmitter) lastForClass(class dispatch.Class) (dispatched, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.cmds) - 1; i >= 0; i-- {
		if m.cmds[i].class == class {
			return m.cmds[i], true
		}
	}
	return dispatched{}, false
}

func TestManualLiftMoveToWhenIdle(t *testing.T) {
	rig := newTestRig(t)

	if err := rig.sup.LiftCommand(1, LiftMoveTo, 4); err != nil {
		t.Fatalf("LiftCommand() error = %v", err)
	}

	d, ok := rig.disp.lastForClass(dispatch.ClassLift)
	if !ok {
		t.Fatal("no lift command dispatched")
	}
	if d.settled {
		t.Error("manual command must not be settle-deferred")
	}
	if d.cmd.Topic != "greenrack/station/1/lift/command" {
		t.Errorf("topic = %q", d.cmd.Topic)
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(d.cmd.Payload, &payload); err != nil {
		t.Fatalf("payload not JSON: %v", err)
	}
	if payload["action"] != "moveTo" {
		t.Errorf("action = %v, want moveTo", payload["action"])
	}
	if payload["floor"] != float64(4) {
		t.Errorf("floor = %v, want 4", payload["floor"])
	}

	if !rig.cast.has("lift_manual_command") {
		t.Error("manual command was not broadcast")
	}
}

func TestManualLiftJogOmitsFloor(t *testing.T) {
	rig := newTestRig(t)

	if err := rig.sup.LiftCommand(1, LiftJogUp, 0); err != nil {
		t.Fatalf("LiftCommand() error = %v", err)
	}

	d, _ := rig.disp.lastForClass(dispatch.ClassLift)
	var payload map[string]interface{}
	if err := json.Unmarshal(d.cmd.Payload, &payload); err != nil {
		t.Fatalf("payload not JSON: %v", err)
	}
	if payload["action"] != "jogUp" {
		t.Errorf("action = %v, want jogUp", payload["action"])
	}
	if _, ok := payload["floor"]; ok {
		t.Error("jog command must not carry a floor")
	}
}

func TestManualLiftMovementRejectedWhileBusy(t *testing.T) {
	rig := newTestRig(t)
	if _, err := rig.sup.StartInbound(context.Background(), 1, 1, 3, Metadata{}); err != nil {
		t.Fatalf("StartInbound() error = %v", err)
	}

	for _, action := range []LiftAction{LiftMoveTo, LiftJogUp, LiftJogDown} {
		if err := rig.sup.LiftCommand(1, action, 2); !errors.Is(err, ErrBusy) {
			t.Errorf("LiftCommand(%s) err = %v, want ErrBusy", action, err)
		}
	}
	if n := rig.disp.countClass(dispatch.ClassLift); n != 0 {
		t.Errorf("lift commands dispatched = %d, want 0", n)
	}
}

func TestManualLiftStopCutsThroughActiveFlow(t *testing.T) {
	rig := newTestRig(t)
	if _, err := rig.sup.StartInbound(context.Background(), 1, 3, 5, Metadata{}); err != nil {
		t.Fatalf("StartInbound() error = %v", err)
	}

	for _, action := range []LiftAction{LiftStop, LiftEmergency} {
		if err := rig.sup.LiftCommand(1, action, 0); err != nil {
			t.Errorf("LiftCommand(%s) err = %v, want nil", action, err)
		}
	}
	if n := rig.disp.countClass(dispatch.ClassLift); n != 2 {
		t.Errorf("lift commands dispatched = %d, want 2", n)
	}
}

func TestManualLiftValidation(t *testing.T) {
	rig := newTestRig(t)

	if err := rig.sup.LiftCommand(1, LiftAction("launch"), 0); !errors.Is(err, ErrInvalidLiftAction) {
		t.Errorf("unknown action err = %v, want ErrInvalidLiftAction", err)
	}
	if err := rig.sup.LiftCommand(1, LiftMoveTo, 0); !errors.Is(err, ErrInvalidLiftAction) {
		t.Errorf("moveTo without floor err = %v, want ErrInvalidLiftAction", err)
	}
	if err := rig.sup.LiftCommand(99, LiftStop, 0); !errors.Is(err, ErrUnknownStation) {
		t.Errorf("unknown station err = %v, want ErrUnknownStation", err)
	}
}
