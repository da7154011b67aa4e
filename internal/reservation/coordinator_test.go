package reservation

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaccine-scheduler/internal/apperr"
	"vaccine-scheduler/internal/model"
)

// In-memory ledgers with the same atomicity contracts as the pgx store:
// check-and-decrement and claim are single critical sections.

type memInventory struct {
	mu    sync.Mutex
	doses map[string]int
}

func newMemInventory() *memInventory {
	return &memInventory{doses: make(map[string]int)}
}

func (m *memInventory) add(name string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.doses[name] += n
}

func (m *memInventory) get(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.doses[name]
}

func (m *memInventory) TryReserveDose(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.doses[name]
	if !ok {
		return apperr.Newf(apperr.CodeNotFound, "unknown vaccine %s", name)
	}
	if n == 0 {
		return apperr.Newf(apperr.CodeInsufficientDoses, "no doses left for %s", name)
	}
	m.doses[name] = n - 1
	return nil
}

func (m *memInventory) ReturnDose(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.doses[name]; !ok {
		return apperr.Newf(apperr.CodeNotFound, "unknown vaccine %s", name)
	}
	m.doses[name]++
	return nil
}

type memRegistry struct {
	mu    sync.Mutex
	slots map[string]map[string]bool // day -> caregiver set
}

func newMemRegistry() *memRegistry {
	return &memRegistry{slots: make(map[string]map[string]bool)}
}

func dayKey(day time.Time) string { return day.Format(model.DateLayout) }

func (m *memRegistry) has(caregiver string, day time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slots[dayKey(day)][caregiver]
}

func (m *memRegistry) PublishAvailability(_ context.Context, caregiver string, day time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := dayKey(day)
	if m.slots[k] == nil {
		m.slots[k] = make(map[string]bool)
	}
	if m.slots[k][caregiver] {
		return apperr.New(apperr.CodeAlreadyExists, "already published")
	}
	m.slots[k][caregiver] = true
	return nil
}

func (m *memRegistry) AvailableCaregivers(_ context.Context, day time.Time) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for caregiver := range m.slots[dayKey(day)] {
		out = append(out, caregiver)
	}
	sort.Strings(out)
	return out, nil
}

func (m *memRegistry) ClaimSlot(_ context.Context, caregiver string, day time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := dayKey(day)
	if !m.slots[k][caregiver] {
		return false, nil
	}
	delete(m.slots[k], caregiver)
	return true, nil
}

type memLedger struct {
	mu        sync.Mutex
	next      int64
	appts     map[int64]model.Appointment
	inventory *memInventory
	registry  *memRegistry
}

func newMemLedger(inv *memInventory, reg *memRegistry) *memLedger {
	return &memLedger{appts: make(map[int64]model.Appointment), inventory: inv, registry: reg}
}

func (m *memLedger) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.appts)
}

func (m *memLedger) AppendAppointment(_ context.Context, caregiver, patient, vaccine string, day time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	m.appts[m.next] = model.Appointment{
		ID:                m.next,
		CaregiverUsername: caregiver,
		PatientUsername:   patient,
		VaccineName:       vaccine,
		Day:               day,
	}
	return m.next, nil
}

func (m *memLedger) AppointmentByID(_ context.Context, id int64) (*model.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok {
		return nil, apperr.Newf(apperr.CodeNotFound, "appointment %d not found", id)
	}
	return &a, nil
}

func (m *memLedger) CancelAppointment(ctx context.Context, id int64) error {
	m.mu.Lock()
	a, ok := m.appts[id]
	if !ok {
		m.mu.Unlock()
		return apperr.Newf(apperr.CodeNotFound, "appointment %d not found", id)
	}
	delete(m.appts, id)
	m.mu.Unlock()

	if err := m.inventory.ReturnDose(ctx, a.VaccineName); err != nil {
		return err
	}
	_ = m.registry.PublishAvailability(ctx, a.CaregiverUsername, a.Day)
	return nil
}

func fixture(t *testing.T) (*memInventory, *memRegistry, *memLedger, *Coordinator) {
	t.Helper()
	inv := newMemInventory()
	reg := newMemRegistry()
	led := newMemLedger(inv, reg)
	return inv, reg, led, New(inv, reg, led, zerolog.Nop())
}

var (
	day10   = time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	patient = model.Identity{Role: model.RolePatient, Username: "pat"}
)

func TestReservePicksLexicographicallyFirstCaregiver(t *testing.T) {
	inv, reg, led, coord := fixture(t)
	ctx := context.Background()

	inv.add("X", 1)
	require.NoError(t, reg.PublishAvailability(ctx, "bob", day10))
	require.NoError(t, reg.PublishAvailability(ctx, "alice", day10))

	conf, err := coord.Reserve(ctx, patient, day10, "X")
	require.NoError(t, err)
	assert.Equal(t, "alice", conf.CaregiverUsername)
	assert.Equal(t, 0, inv.get("X"))
	assert.False(t, reg.has("alice", day10))
	assert.True(t, reg.has("bob", day10))

	appt, err := led.AppointmentByID(ctx, conf.AppointmentID)
	require.NoError(t, err)
	assert.Equal(t, "alice", appt.CaregiverUsername)
	assert.Equal(t, "pat", appt.PatientUsername)
	assert.Equal(t, "X", appt.VaccineName)
	assert.True(t, appt.Day.Equal(day10))
}

func TestReserveExhaustedDosesChecksFirst(t *testing.T) {
	inv, reg, led, coord := fixture(t)
	ctx := context.Background()

	inv.add("X", 1)
	require.NoError(t, reg.PublishAvailability(ctx, "alice", day10))
	require.NoError(t, reg.PublishAvailability(ctx, "bob", day10))

	_, err := coord.Reserve(ctx, patient, day10, "X")
	require.NoError(t, err)

	// second patient: dose check fires before caregiver selection
	pat2 := model.Identity{Role: model.RolePatient, Username: "pat2"}
	_, err = coord.Reserve(ctx, pat2, day10, "X")
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeInsufficientDoses))

	assert.Equal(t, 1, led.count())
	assert.True(t, reg.has("bob", day10))
}

func TestReserveNoCaregiverCompensatesDose(t *testing.T) {
	inv, _, led, coord := fixture(t)
	ctx := context.Background()

	inv.add("Y", 5)

	_, err := coord.Reserve(ctx, patient, day10, "Y")
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeNoCaregiverAvailable))

	// the reserved dose was returned, not lost
	assert.Equal(t, 5, inv.get("Y"))
	assert.Equal(t, 0, led.count())
}

func TestReserveUnknownVaccine(t *testing.T) {
	_, reg, _, coord := fixture(t)
	ctx := context.Background()

	require.NoError(t, reg.PublishAvailability(ctx, "alice", day10))

	_, err := coord.Reserve(ctx, patient, day10, "Z")
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeNotFound))
}

func TestReserveIdentityChecks(t *testing.T) {
	inv, reg, _, coord := fixture(t)
	ctx := context.Background()

	inv.add("X", 1)
	require.NoError(t, reg.PublishAvailability(ctx, "alice", day10))

	_, err := coord.Reserve(ctx, model.Identity{}, day10, "X")
	assert.True(t, apperr.HasCode(err, apperr.CodeUnauthenticated))

	caregiver := model.Identity{Role: model.RoleCaregiver, Username: "alice"}
	_, err = coord.Reserve(ctx, caregiver, day10, "X")
	assert.True(t, apperr.HasCode(err, apperr.CodePermissionDenied))

	_, err = coord.Reserve(ctx, patient, day10, "")
	assert.True(t, apperr.HasCode(err, apperr.CodeInvalidArgument))

	_, err = coord.Reserve(ctx, patient, time.Time{}, "X")
	assert.True(t, apperr.HasCode(err, apperr.CodeInvalidArgument))

	// none of the rejected attempts touched the dose count
	assert.Equal(t, 1, inv.get("X"))
}

// lostClaimRegistry simulates losing the first candidate's slot to a
// concurrent reservation between listing and claiming.
type lostClaimRegistry struct {
	*memRegistry
	loser string
}

func (r *lostClaimRegistry) ClaimSlot(ctx context.Context, caregiver string, day time.Time) (bool, error) {
	if caregiver == r.loser {
		r.loser = "" // lose only once
		return false, nil
	}
	return r.memRegistry.ClaimSlot(ctx, caregiver, day)
}

func TestReserveFallsThroughToNextCandidate(t *testing.T) {
	inv := newMemInventory()
	reg := &lostClaimRegistry{memRegistry: newMemRegistry(), loser: "alice"}
	led := newMemLedger(inv, reg.memRegistry)
	coord := New(inv, reg, led, zerolog.Nop())
	ctx := context.Background()

	inv.add("X", 2)
	require.NoError(t, reg.PublishAvailability(ctx, "alice", day10))
	require.NoError(t, reg.PublishAvailability(ctx, "bob", day10))

	conf, err := coord.Reserve(ctx, patient, day10, "X")
	require.NoError(t, err)
	assert.Equal(t, "bob", conf.CaregiverUsername)
	assert.Equal(t, 1, inv.get("X"))
}

// failingLedger rejects every append, exercising the slot + dose rollback.
type failingLedger struct {
	*memLedger
}

func (l *failingLedger) AppendAppointment(context.Context, string, string, string, time.Time) (int64, error) {
	return 0, apperr.Wrap(apperr.CodeStorage, "append appointment", errors.New("disk full"))
}

func TestReserveAppendFailureRestoresEverything(t *testing.T) {
	inv := newMemInventory()
	reg := newMemRegistry()
	led := &failingLedger{newMemLedger(inv, reg)}
	coord := New(inv, reg, led, zerolog.Nop())
	ctx := context.Background()

	inv.add("X", 3)
	require.NoError(t, reg.PublishAvailability(ctx, "alice", day10))

	_, err := coord.Reserve(ctx, patient, day10, "X")
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeStorage))

	assert.Equal(t, 3, inv.get("X"))
	assert.True(t, reg.has("alice", day10))
}

func TestConcurrentReservesNeverOversubscribe(t *testing.T) {
	inv, reg, led, coord := fixture(t)
	ctx := context.Background()

	const doses = 3
	const attempts = 12
	inv.add("X", doses)
	caregivers := []string{"c01", "c02", "c03", "c04", "c05", "c06", "c07", "c08", "c09", "c10", "c11", "c12"}
	for _, c := range caregivers {
		require.NoError(t, reg.PublishAvailability(ctx, c, day10))
	}

	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := coord.Reserve(ctx, patient, day10, "X")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			assert.True(t, apperr.HasCode(err, apperr.CodeInsufficientDoses))
		}
	}
	assert.Equal(t, doses, succeeded)
	assert.Equal(t, 0, inv.get("X"))
	assert.Equal(t, doses, led.count())
}

func TestConcurrentClaimsSingleWinner(t *testing.T) {
	reg := newMemRegistry()
	ctx := context.Background()
	require.NoError(t, reg.PublishAvailability(ctx, "alice", day10))

	const claimers = 8
	var wg sync.WaitGroup
	wins := make(chan bool, claimers)
	for i := 0; i < claimers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			won, err := reg.ClaimSlot(ctx, "alice", day10)
			assert.NoError(t, err)
			wins <- won
		}()
	}
	wg.Wait()
	close(wins)

	total := 0
	for won := range wins {
		if won {
			total++
		}
	}
	assert.Equal(t, 1, total)
}

func TestCancelRestoresDoseAndSlot(t *testing.T) {
	inv, reg, led, coord := fixture(t)
	ctx := context.Background()

	inv.add("X", 1)
	require.NoError(t, reg.PublishAvailability(ctx, "alice", day10))

	conf, err := coord.Reserve(ctx, patient, day10, "X")
	require.NoError(t, err)

	require.NoError(t, coord.Cancel(ctx, patient, conf.AppointmentID))

	assert.Equal(t, 1, inv.get("X"))
	assert.True(t, reg.has("alice", day10))
	assert.Equal(t, 0, led.count())
}

func TestCancelAuthorization(t *testing.T) {
	inv, reg, _, coord := fixture(t)
	ctx := context.Background()

	inv.add("X", 1)
	require.NoError(t, reg.PublishAvailability(ctx, "alice", day10))
	conf, err := coord.Reserve(ctx, patient, day10, "X")
	require.NoError(t, err)

	err = coord.Cancel(ctx, model.Identity{}, conf.AppointmentID)
	assert.True(t, apperr.HasCode(err, apperr.CodeUnauthenticated))

	// a different patient sees NotFound, not a permission hint
	other := model.Identity{Role: model.RolePatient, Username: "mallory"}
	err = coord.Cancel(ctx, other, conf.AppointmentID)
	assert.True(t, apperr.HasCode(err, apperr.CodeNotFound))

	// the assigned caregiver may cancel
	alice := model.Identity{Role: model.RoleCaregiver, Username: "alice"}
	require.NoError(t, coord.Cancel(ctx, alice, conf.AppointmentID))
}

func TestCancelUnknownAppointment(t *testing.T) {
	_, _, _, coord := fixture(t)

	err := coord.Cancel(context.Background(), patient, 404)
	assert.True(t, apperr.HasCode(err, apperr.CodeNotFound))
}
