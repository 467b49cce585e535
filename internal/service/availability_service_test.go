package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/shift-rota-api/internal/dto"
	"github.com/noah-isme/shift-rota-api/internal/models"
	appErrors "github.com/noah-isme/shift-rota-api/pkg/errors"
)

func TestAvailabilityServiceCreateAndGet(t *testing.T) {
	store := newMemoryStore()
	a := store.addSubject("Ann")
	b := store.addSubject("Bob")
	s1 := store.addSlot(1)
	s2 := store.addSlot(2)

	db, mock := newTxProviderMock(t)
	cache := newMemoryCache()
	svc := NewAvailabilityService(db, memoryAvailability{store}, memorySubjects{store}, memorySlots{store}, store,
		NewCacheService(cache, nil, time.Minute, nil, true), nil, nil)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectCommit()
	resp, err := svc.Create(ctx, dto.CreateAvailabilityRequest{
		Name: "spring",
		Entries: []dto.AvailabilityEntryInput{
			{SlotID: s2.String(), SubjectIDs: []string{b.String(), a.String(), b.String()}},
			{SlotID: s1.String(), SubjectIDs: []string{a.String()}},
		},
		Activate: true,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.True(t, resp.Active)
	require.NotNil(t, resp.Name)
	assert.Equal(t, "spring", *resp.Name)
	require.Len(t, resp.Slots, 2)
	assert.Equal(t, s1, resp.Slots[0].SlotID)
	assert.Equal(t, []models.SubjectRef{{ID: a, Name: "Ann"}, {ID: b, Name: "Bob"}}, resp.Slots[1].Subjects)
	assert.Equal(t, resp.ID, store.current().AvailabilityID)
	assert.True(t, cache.has(availabilityCacheKey(resp.ID)))

	require.NoError(t, store.SetAvailability(ctx, nil, models.ID{}))
	cached, err := svc.Get(ctx, resp.ID.String())
	require.NoError(t, err)
	assert.False(t, cached.Active)

	ranked, err := svc.Ranking(ctx, resp.ID.String())
	require.NoError(t, err)
	require.Len(t, ranked, 2)
	assert.Equal(t, s1, ranked[0].SlotID)
}

func TestAvailabilityServiceCreateRejectsUnknownReferences(t *testing.T) {
	store := newMemoryStore()
	a := store.addSubject("Ann")
	slot := store.addSlot(1)

	db, mock := newTxProviderMock(t)
	svc := NewAvailabilityService(db, memoryAvailability{store}, memorySubjects{store}, memorySlots{store}, store, nil, nil, nil)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectRollback()
	_, err := svc.Create(ctx, dto.CreateAvailabilityRequest{Entries: []dto.AvailabilityEntryInput{
		{SlotID: slot.String(), SubjectIDs: []string{a.String(), testID(models.KindSubject, 404).String()}},
	}})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	mock.ExpectBegin()
	mock.ExpectRollback()
	_, err = svc.Create(ctx, dto.CreateAvailabilityRequest{Entries: []dto.AvailabilityEntryInput{
		{SlotID: testID(models.KindSlot, 404).String(), SubjectIDs: []string{a.String()}},
	}})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, err = svc.Create(ctx, dto.CreateAvailabilityRequest{Entries: []dto.AvailabilityEntryInput{
		{SlotID: a.String(), SubjectIDs: []string{a.String()}},
	}})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.Create(ctx, dto.CreateAvailabilityRequest{})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	assert.Empty(t, store.sets)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAvailabilityServiceLoadActive(t *testing.T) {
	store := newMemoryStore()
	svc := NewAvailabilityService(nil, memoryAvailability{store}, memorySubjects{store}, memorySlots{store}, store, nil, nil, nil)

	_, err := svc.LoadActive(context.Background(), nil)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	a := store.addSubject("Ann")
	slot := store.addSlot(1)
	id := store.addAvailability(map[models.ID][]models.ID{slot: {a}})
	set, err := svc.LoadActive(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, id, set.Header.ID)
	assert.Equal(t, []models.ID{a}, set.ForSlot(slot))

	_, err = svc.Get(context.Background(), testID(models.KindAvailability, 404).String())
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}
