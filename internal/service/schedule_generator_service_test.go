package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/shift-rota-api/internal/dto"
	"github.com/noah-isme/shift-rota-api/internal/models"
	"github.com/noah-isme/shift-rota-api/pkg/config"
	appErrors "github.com/noah-isme/shift-rota-api/pkg/errors"
)

type recordingWarmer struct {
	mu  sync.Mutex
	ids []models.ID
}

func (w *recordingWarmer) Warm(id models.ID) {
	w.mu.Lock()
	w.ids = append(w.ids, id)
	w.mu.Unlock()
}

type schedulerFixtureConfig struct {
	workers int
	logger  *zap.Logger
	metrics *MetricsService
}

type schedulerFixture struct {
	store   *memoryStore
	mock    sqlmock.Sqlmock
	warmer  *recordingWarmer
	service *ScheduleGeneratorService
}

func defaultSchedulerConfig(workers int) config.SchedulerConfig {
	return config.SchedulerConfig{
		MaxChainDepth:       100,
		HistoryWorkers:      workers,
		NeverScheduledWeeks: 100,
		FlexibilityDivisor:  20,
		LoadDivisor:         5,
		RunLoadOffset:       2,
		RunLoadExponent:     3,
	}
}

func newSchedulerFixture(t *testing.T, store *memoryStore, cfg schedulerFixtureConfig) *schedulerFixture {
	t.Helper()
	db, mock := newTxProviderMock(t)
	availability := NewAvailabilityService(db, memoryAvailability{store}, memorySubjects{store}, memorySlots{store}, store, nil, nil, nil)
	warmer := &recordingWarmer{}
	service := NewScheduleGeneratorService(db, store, store, availability, warmer, cfg.metrics, defaultSchedulerConfig(cfg.workers), nil, cfg.logger)
	return &schedulerFixture{store: store, mock: mock, warmer: warmer, service: service}
}

func (f *schedulerFixture) generate(t *testing.T, req dto.GenerateScheduleRequest) *dto.GenerateScheduleResponse {
	t.Helper()
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	resp, err := f.service.Generate(context.Background(), req)
	require.NoError(t, err)
	require.NoError(t, f.mock.ExpectationsWereMet())
	return resp
}

func TestScheduleGeneratorServiceGenerateFromEmptyHistory(t *testing.T) {
	for _, workers := range []int{1, 4} {
		store := newMemoryStore()
		a := store.addSubject("A")
		b := store.addSubject("B")
		c := store.addSubject("C")
		s1 := store.addSlot(1)
		s2 := store.addSlot(2)
		store.addAvailability(map[models.ID][]models.ID{s1: {a, b, c}, s2: {a, b}})

		fixture := newSchedulerFixture(t, store, schedulerFixtureConfig{workers: workers})
		resp := fixture.generate(t, dto.GenerateScheduleRequest{Name: " week 1 "})

		assert.True(t, resp.Parent.IsZero())
		require.NotNil(t, resp.Name)
		assert.Equal(t, "week 1", *resp.Name)
		assert.Equal(t, []models.ID{a, b}, store.slotAssignments(resp.ID, s2))
		assert.Equal(t, []models.ID{c, a}, store.slotAssignments(resp.ID, s1))
		assert.Equal(t, resp.ID, store.current().ScheduleID)
		assert.Equal(t, []models.ID{resp.ID}, fixture.warmer.ids)
	}
}

func TestScheduleGeneratorServiceExtendsCurrentHead(t *testing.T) {
	store := newMemoryStore()
	a := store.addSubject("A")
	b := store.addSubject("B")
	c := store.addSubject("C")
	slot := store.addSlot(1)
	store.addAvailability(map[models.ID][]models.ID{slot: {a, b, c}})

	fixture := newSchedulerFixture(t, store, schedulerFixtureConfig{workers: 1})
	first := fixture.generate(t, dto.GenerateScheduleRequest{})
	assert.Equal(t, []models.ID{a, b}, store.slotAssignments(first.ID, slot))

	second := fixture.generate(t, dto.GenerateScheduleRequest{})
	assert.Equal(t, first.ID, second.Parent)
	assigned := store.slotAssignments(second.ID, slot)
	require.Len(t, assigned, 2)
	assert.Equal(t, c, assigned[0])
	assert.Equal(t, second.ID, store.current().ScheduleID)
}

func TestScheduleGeneratorServiceParentOverride(t *testing.T) {
	store := newMemoryStore()
	a := store.addSubject("A")
	b := store.addSubject("B")
	slot := store.addSlot(1)
	store.addAvailability(map[models.ID][]models.ID{slot: {a, b}})

	fixture := newSchedulerFixture(t, store, schedulerFixtureConfig{workers: 1})
	first := fixture.generate(t, dto.GenerateScheduleRequest{})
	fixture.generate(t, dto.GenerateScheduleRequest{})

	branch := fixture.generate(t, dto.GenerateScheduleRequest{Parent: first.ID.String()})
	assert.Equal(t, first.ID, branch.Parent)
	assert.Equal(t, branch.ID, store.current().ScheduleID)
}

func TestScheduleGeneratorServiceRejectsUnderfilledSlot(t *testing.T) {
	store := newMemoryStore()
	a := store.addSubject("A")
	b := store.addSubject("B")
	s1 := store.addSlot(1)
	s2 := store.addSlot(2)
	store.addAvailability(map[models.ID][]models.ID{s1: {a, b}, s2: {a}})
	head := store.addSchedule(models.ID{}, nil)
	require.NoError(t, store.SetSchedule(context.Background(), nil, head))
	before := store.current()

	metrics := NewMetricsService()
	fixture := newSchedulerFixture(t, store, schedulerFixtureConfig{workers: 1, metrics: metrics})
	fixture.mock.ExpectBegin()
	fixture.mock.ExpectRollback()

	_, err := fixture.service.Generate(context.Background(), dto.GenerateScheduleRequest{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrDataIntegrity))
	assert.Equal(t, before.ScheduleID, store.current().ScheduleID)
	assert.Empty(t, fixture.warmer.ids)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.generations.WithLabelValues(GenerationFailed)))
	require.NoError(t, fixture.mock.ExpectationsWereMet())
}

func TestScheduleGeneratorServiceRequiresActiveAvailability(t *testing.T) {
	store := newMemoryStore()
	fixture := newSchedulerFixture(t, store, schedulerFixtureConfig{workers: 1})
	fixture.mock.ExpectBegin()
	fixture.mock.ExpectRollback()

	_, err := fixture.service.Generate(context.Background(), dto.GenerateScheduleRequest{})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
	require.NoError(t, fixture.mock.ExpectationsWereMet())
}

func TestScheduleGeneratorServiceUnknownParent(t *testing.T) {
	store := newMemoryStore()
	a := store.addSubject("A")
	b := store.addSubject("B")
	slot := store.addSlot(1)
	store.addAvailability(map[models.ID][]models.ID{slot: {a, b}})

	fixture := newSchedulerFixture(t, store, schedulerFixtureConfig{workers: 1})
	fixture.mock.ExpectBegin()
	fixture.mock.ExpectRollback()

	_, err := fixture.service.Generate(context.Background(), dto.GenerateScheduleRequest{Parent: testID(models.KindSchedule, 777).String()})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
	assert.True(t, store.current().ScheduleID.IsZero())
	require.NoError(t, fixture.mock.ExpectationsWereMet())
}

func TestScheduleGeneratorServiceInvalidParent(t *testing.T) {
	fixture := newSchedulerFixture(t, newMemoryStore(), schedulerFixtureConfig{workers: 1})

	_, err := fixture.service.Generate(context.Background(), dto.GenerateScheduleRequest{Parent: "slot_not-a-schedule"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	require.NoError(t, fixture.mock.ExpectationsWereMet())
}

func TestScheduleGeneratorServiceHistoryWorkersAgree(t *testing.T) {
	run := func(workers int) [][]models.ID {
		store := newMemoryStore()
		subjects := make([]models.ID, 0, 5)
		for _, name := range []string{"A", "B", "C", "D", "E"} {
			subjects = append(subjects, store.addSubject(name))
		}
		s1, s2, s3 := store.addSlot(1), store.addSlot(2), store.addSlot(3)
		store.addAvailability(map[models.ID][]models.ID{
			s1: subjects,
			s2: subjects[:3],
			s3: subjects[2:],
		})

		fixture := newSchedulerFixture(t, store, schedulerFixtureConfig{workers: workers})
		var rounds [][]models.ID
		for i := 0; i < 4; i++ {
			resp := fixture.generate(t, dto.GenerateScheduleRequest{})
			for _, slot := range []models.ID{s1, s2, s3} {
				rounds = append(rounds, store.slotAssignments(resp.ID, slot))
			}
		}
		return rounds
	}

	assert.Equal(t, run(1), run(4))
}

func TestScheduleGeneratorServiceEveryRoundFillsSlotsWithDistinctEligibleSubjects(t *testing.T) {
	store := newMemoryStore()
	subjects := make([]models.ID, 0, 6)
	for _, name := range []string{"A", "B", "C", "D", "E", "F"} {
		subjects = append(subjects, store.addSubject(name))
	}
	slots := []models.ID{store.addSlot(1), store.addSlot(2), store.addSlot(3), store.addSlot(4)}
	eligible := map[models.ID][]models.ID{
		slots[0]: subjects,
		slots[1]: {subjects[0], subjects[1], subjects[2]},
		slots[2]: {subjects[3], subjects[4]},
		slots[3]: {subjects[1], subjects[3], subjects[5]},
	}
	store.addAvailability(eligible)

	fixture := newSchedulerFixture(t, store, schedulerFixtureConfig{workers: 3})
	seen := make(map[models.ID]int)
	for round := 0; round < 6; round++ {
		resp := fixture.generate(t, dto.GenerateScheduleRequest{})
		for _, slot := range slots {
			assigned := store.slotAssignments(resp.ID, slot)
			require.Len(t, assigned, 2)
			assert.NotEqual(t, assigned[0], assigned[1])
			for _, subject := range assigned {
				assert.Contains(t, eligible[slot], subject)
				seen[subject]++
			}
		}
	}
	assert.Len(t, seen, len(subjects))
}

func TestScheduleGeneratorServiceLogsRejectedCoefficients(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	db, _ := newTxProviderMock(t)
	store := newMemoryStore()
	cfg := defaultSchedulerConfig(1)
	cfg.RunLoadExponent = 0.5

	service := NewScheduleGeneratorService(db, store, store, nil, nil, nil, cfg, nil, zap.New(core))
	assert.Equal(t, DefaultWeighting().RunLoadExponent, service.weighting.RunLoadExponent)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, []interface{}{"SCHEDULER_RUN_LOAD_EXPONENT"}, logs.All()[0].ContextMap()["keys"])
}

func TestScheduleGeneratorServiceRecordsSuccessMetrics(t *testing.T) {
	store := newMemoryStore()
	a := store.addSubject("A")
	b := store.addSubject("B")
	slot := store.addSlot(1)
	store.addAvailability(map[models.ID][]models.ID{slot: {a, b}})

	metrics := NewMetricsService()
	fixture := newSchedulerFixture(t, store, schedulerFixtureConfig{workers: 1, metrics: metrics})
	fixture.generate(t, dto.GenerateScheduleRequest{})

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.generations.WithLabelValues(GenerationSucceeded)))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.assignments))
}

// drainedPoolStore blocks every read that asks for a pooled connection until the
// caller gives up, the way database/sql waits when the pool is exhausted.
type drainedPoolStore struct {
	*memoryStore
}

func (s drainedPoolStore) CountAssignments(ctx context.Context, exec sqlx.ExtContext, scheduleID, subjectID models.ID) (int, error) {
	if exec == nil {
		<-ctx.Done()
		return 0, ctx.Err()
	}
	return s.memoryStore.CountAssignments(ctx, exec, scheduleID, subjectID)
}

func TestScheduleGeneratorServiceHistoryTimeoutOnDrainedPool(t *testing.T) {
	store := newMemoryStore()
	a := store.addSubject("A")
	b := store.addSubject("B")
	slot := store.addSlot(1)
	store.addAvailability(map[models.ID][]models.ID{slot: {a, b}})
	head := store.addSchedule(models.ID{}, map[models.ID][]models.ID{slot: {a, b}})
	require.NoError(t, store.SetSchedule(context.Background(), nil, head))

	db, mock := newTxProviderMock(t)
	availability := NewAvailabilityService(db, memoryAvailability{store}, memorySubjects{store}, memorySlots{store}, store, nil, nil, nil)
	cfg := defaultSchedulerConfig(4)
	cfg.HistoryTimeout = 20 * time.Millisecond
	service := NewScheduleGeneratorService(db, drainedPoolStore{store}, store, availability, nil, nil, cfg, nil, nil)

	mock.ExpectBegin()
	mock.ExpectRollback()
	done := make(chan error, 1)
	go func() {
		_, err := service.Generate(context.Background(), dto.GenerateScheduleRequest{})
		done <- err
	}()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.True(t, errors.Is(err, appErrors.ErrStorage))
		assert.True(t, errors.Is(err, context.DeadlineExceeded))
	case <-time.After(5 * time.Second):
		t.Fatal("generate did not return while the pool was drained")
	}
	require.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, head, store.current().ScheduleID)
}
