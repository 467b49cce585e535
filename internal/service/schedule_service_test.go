package service

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/shift-rota-api/internal/dto"
	"github.com/noah-isme/shift-rota-api/internal/models"
	"github.com/noah-isme/shift-rota-api/pkg/config"
	appErrors "github.com/noah-isme/shift-rota-api/pkg/errors"
)

type scheduleFixture struct {
	store   *memoryStore
	cache   *memoryCache
	mock    sqlmock.Sqlmock
	service *ScheduleService

	subjects map[string]models.ID
	slots    []models.ID
	root     models.ID
	child    models.ID
}

func newScheduleFixture(t *testing.T) *scheduleFixture {
	t.Helper()
	store := newMemoryStore()
	f := &scheduleFixture{store: store, cache: newMemoryCache(), subjects: make(map[string]models.ID)}
	for _, name := range []string{"Ann", "Bob", "Cid", "Dee", "Eve", "Fay"} {
		f.subjects[name] = store.addSubject(name)
	}
	f.slots = []models.ID{store.addSlot(1), store.addSlot(2), store.addSlot(3)}
	f.root = store.addSchedule(models.ID{}, map[models.ID][]models.ID{
		f.slots[0]: {f.subjects["Ann"], f.subjects["Bob"]},
	})
	f.child = store.addSchedule(f.root, map[models.ID][]models.ID{
		f.slots[0]: {f.subjects["Bob"], f.subjects["Ann"]},
		f.slots[1]: {f.subjects["Dee"], f.subjects["Cid"]},
		f.slots[2]: {f.subjects["Eve"], f.subjects["Fay"]},
	})
	require.NoError(t, store.SetSchedule(context.Background(), nil, f.child))

	db, mock := newTxProviderMock(t)
	f.mock = mock
	cache := NewCacheService(f.cache, nil, time.Minute, nil, true)
	f.service = NewScheduleService(db, store, store, cache, nil, config.SchedulerConfig{}, config.ExportConfig{SlotsPerDay: 2}, nil, nil)
	return f
}

func TestScheduleServiceList(t *testing.T) {
	f := newScheduleFixture(t)

	list, err := f.service.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	for _, summary := range list {
		assert.Equal(t, summary.ID == f.child, summary.Current)
		if summary.ID == f.child {
			assert.Equal(t, f.root, summary.Parent)
		}
	}
}

func TestScheduleServiceGetUsesCache(t *testing.T) {
	f := newScheduleFixture(t)
	ctx := context.Background()

	detail, err := f.service.Get(ctx, f.child.String())
	require.NoError(t, err)
	assert.Equal(t, f.root, detail.Parent)
	require.Len(t, detail.Assignments, 3)
	assert.Equal(t, []models.SubjectRef{
		{ID: f.subjects["Cid"], Name: "Cid"},
		{ID: f.subjects["Dee"], Name: "Dee"},
	}, detail.Assignments[f.slots[1]])
	assert.True(t, f.cache.has(scheduleCacheKey(f.child)))

	f.store.mu.Lock()
	f.store.subjects[f.subjects["Cid"]] = models.Subject{ID: f.subjects["Cid"], Name: "Renamed"}
	f.store.mu.Unlock()

	cached, err := f.service.Get(ctx, f.child.String())
	require.NoError(t, err)
	assert.Equal(t, "Cid", cached.Assignments[f.slots[1]][0].Name)
}

func TestScheduleServiceGetErrors(t *testing.T) {
	f := newScheduleFixture(t)

	_, err := f.service.Get(context.Background(), "bogus")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = f.service.Get(context.Background(), testID(models.KindSchedule, 999).String())
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestScheduleServiceExportCSV(t *testing.T) {
	f := newScheduleFixture(t)

	result, err := f.service.Export(context.Background(), f.child.String(), "")
	require.NoError(t, err)
	assert.Equal(t, "schedule-"+f.child.String()+".csv", result.Filename)
	assert.Equal(t, "text/csv; charset=utf-8", result.ContentType)
	assert.Equal(t, "Ann,Eve\nBob,Fay\nCid,\nDee,\n", string(result.Body))
}

func TestScheduleServiceExportSheets(t *testing.T) {
	f := newScheduleFixture(t)

	result, err := f.service.Export(context.Background(), f.root.String(), "Sheets-Export")
	require.NoError(t, err)
	assert.Equal(t, "Ann\nBob\nAnn\nBob\n\n\n\n\n", string(result.Body))
}

func TestScheduleServiceExportPDF(t *testing.T) {
	f := newScheduleFixture(t)

	result, err := f.service.Export(context.Background(), f.child.String(), "pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", result.ContentType)
	assert.True(t, bytes.HasPrefix(result.Body, []byte("%PDF")))
}

func TestScheduleServiceExportErrors(t *testing.T) {
	f := newScheduleFixture(t)

	_, err := f.service.Export(context.Background(), f.child.String(), "xlsx")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = f.service.Export(context.Background(), testID(models.KindSchedule, 999).String(), "csv")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestScheduleServiceRevert(t *testing.T) {
	f := newScheduleFixture(t)
	ctx := context.Background()

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	params, err := f.service.Revert(ctx, dto.RevertScheduleRequest{Target: f.root.String()})
	require.NoError(t, err)
	assert.Equal(t, f.root, params.ScheduleID)

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	params, err = f.service.Revert(ctx, dto.RevertScheduleRequest{Target: "root"})
	require.NoError(t, err)
	assert.True(t, params.ScheduleID.IsZero())

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	_, err = f.service.Revert(ctx, dto.RevertScheduleRequest{Target: testID(models.KindSchedule, 999).String()})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
	assert.True(t, f.store.current().ScheduleID.IsZero())

	_, err = f.service.Revert(ctx, dto.RevertScheduleRequest{})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestScheduleServiceAncestry(t *testing.T) {
	f := newScheduleFixture(t)

	resp, err := f.service.Ancestry(context.Background(), f.child.String())
	require.NoError(t, err)
	assert.Equal(t, []models.ID{f.child, f.root}, resp.Ancestors)
}

func TestScheduleServiceStats(t *testing.T) {
	f := newScheduleFixture(t)
	ctx := context.Background()

	stats, err := f.service.Stats(ctx, f.child.String(), f.subjects["Ann"].String())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Count)
	assert.Equal(t, 2, stats.CountTotal)
	require.NotNil(t, stats.LastScheduled)
	assert.Equal(t, 0, *stats.LastScheduled)

	stats, err = f.service.Stats(ctx, f.child.String(), f.subjects["Eve"].String())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.CountTotal)

	stats, err = f.service.Stats(ctx, f.root.String(), f.subjects["Eve"].String())
	require.NoError(t, err)
	assert.Zero(t, stats.CountTotal)
	assert.Nil(t, stats.LastScheduled)

	_, err = f.service.Stats(ctx, f.child.String(), f.slots[0].String())
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}
