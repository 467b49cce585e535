package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/shift-rota-api/internal/models"
	"github.com/noah-isme/shift-rota-api/pkg/database"
)

// memoryStore is an in-memory stand-in for every repository the services use.
// It ignores the executor argument.
type memoryStore struct {
	mu          sync.Mutex
	schedules   map[models.ID]models.Schedule
	assignments []models.Assignment
	params      models.Parameters
	sets        map[models.ID]models.AvailabilitySet
	entries     map[models.ID][]models.AvailabilityEntry
	subjects    map[models.ID]models.Subject
	slots       map[models.ID]models.Slot
	seq         int

	countErr   error
	countCalls int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		schedules: make(map[models.ID]models.Schedule),
		sets:      make(map[models.ID]models.AvailabilitySet),
		entries:   make(map[models.ID][]models.AvailabilityEntry),
		subjects:  make(map[models.ID]models.Subject),
		slots:     make(map[models.ID]models.Slot),
	}
}

func testID(kind models.Kind, n int) models.ID {
	return models.MustParseID(kind, fmt.Sprintf("%s_00000000-0000-0000-0000-%012x", kind, n))
}

func (m *memoryStore) next() int {
	m.seq++
	return m.seq
}

func (m *memoryStore) addSubject(name string) models.ID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := testID(models.KindSubject, m.next())
	m.subjects[id] = models.Subject{ID: id, Name: name}
	return id
}

func (m *memoryStore) addSlot(orderKey int) models.ID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := testID(models.KindSlot, m.next())
	m.slots[id] = models.Slot{ID: id, OrderKey: orderKey}
	return id
}

// addAvailability stores a set and makes it the active one.
func (m *memoryStore) addAvailability(eligible map[models.ID][]models.ID) models.ID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := testID(models.KindAvailability, m.next())
	m.sets[id] = models.AvailabilitySet{ID: id, CreatedAt: time.Now().UTC()}
	for slot, subjects := range eligible {
		for _, subject := range subjects {
			m.entries[id] = append(m.entries[id], models.AvailabilityEntry{AvailabilityID: id, SlotID: slot, SubjectID: subject})
		}
	}
	m.params.AvailabilityID = id
	return id
}

func (m *memoryStore) addSchedule(parent models.ID, assigned map[models.ID][]models.ID) models.ID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := testID(models.KindSchedule, m.next())
	m.schedules[id] = models.Schedule{ID: id, ParentID: parent, CreatedAt: time.Now().UTC()}
	for slot, subjects := range assigned {
		for _, subject := range subjects {
			m.assignments = append(m.assignments, models.Assignment{ScheduleID: id, SlotID: slot, SubjectID: subject})
		}
	}
	return id
}

func (m *memoryStore) current() models.Parameters {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.params
}

func (m *memoryStore) slotAssignments(schedule, slot models.ID) []models.ID {
	subjects, _ := m.SlotSubjects(context.Background(), nil, schedule, slot)
	return subjects
}

// scheduleStore

func (m *memoryStore) FindByID(_ context.Context, _ sqlx.ExtContext, id models.ID) (*models.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	node, ok := m.schedules[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &node, nil
}

func (m *memoryStore) Upsert(_ context.Context, _ sqlx.ExtContext, schedule *models.Schedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.schedules[schedule.ID]; ok {
		existing.ParentID = schedule.ParentID
		m.schedules[schedule.ID] = existing
		return nil
	}
	m.schedules[schedule.ID] = *schedule
	return nil
}

func (m *memoryStore) AddAssignment(_ context.Context, _ sqlx.ExtContext, assignment models.Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assignments = append(m.assignments, assignment)
	return nil
}

func (m *memoryStore) CountAssignments(_ context.Context, _ sqlx.ExtContext, scheduleID, subjectID models.ID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.countCalls++
	if m.countErr != nil {
		return 0, m.countErr
	}
	count := 0
	for _, a := range m.assignments {
		if a.ScheduleID == scheduleID && a.SubjectID == subjectID {
			count++
		}
	}
	return count, nil
}

func (m *memoryStore) SlotSubjects(_ context.Context, _ sqlx.ExtContext, scheduleID, slotID models.ID) ([]models.ID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var subjects []models.ID
	for _, a := range m.assignments {
		if a.ScheduleID == scheduleID && a.SlotID == slotID {
			subjects = append(subjects, a.SubjectID)
		}
	}
	return subjects, nil
}

func (m *memoryStore) List(_ context.Context) ([]models.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := make([]models.Schedule, 0, len(m.schedules))
	for _, node := range m.schedules {
		list = append(list, node)
	}
	sort.Slice(list, func(i, j int) bool { return list[j].ID.Less(list[i].ID) })
	return list, nil
}

func (m *memoryStore) Assignments(_ context.Context, scheduleID models.ID) ([]models.SlotSubject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var rows []models.SlotSubject
	for _, a := range m.assignments {
		if a.ScheduleID == scheduleID {
			rows = append(rows, models.SlotSubject{
				SlotID:      a.SlotID,
				OrderKey:    m.slots[a.SlotID].OrderKey,
				SubjectID:   a.SubjectID,
				SubjectName: m.subjects[a.SubjectID].Name,
			})
		}
	}
	sortSlotSubjects(rows)
	return rows, nil
}

// parametersStore

func (m *memoryStore) Get(_ context.Context, _ sqlx.ExtContext) (*models.Parameters, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	params := m.params
	return &params, nil
}

func (m *memoryStore) SetSchedule(_ context.Context, _ sqlx.ExtContext, id models.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.params.ScheduleID = id
	m.params.Version++
	return nil
}

func (m *memoryStore) SetAvailability(_ context.Context, _ sqlx.ExtContext, id models.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.params.AvailabilityID = id
	m.params.Version++
	return nil
}

// memoryAvailability adapts memoryStore to availabilityStore.
type memoryAvailability struct{ *memoryStore }

func (m memoryAvailability) List(_ context.Context) ([]models.AvailabilitySet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sets []models.AvailabilitySet
	for _, set := range m.sets {
		sets = append(sets, set)
	}
	sort.Slice(sets, func(i, j int) bool { return sets[i].ID.Less(sets[j].ID) })
	return sets, nil
}

func (m memoryAvailability) FindByID(_ context.Context, _ sqlx.ExtContext, id models.ID) (*models.AvailabilitySet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.sets[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &set, nil
}

func (m memoryAvailability) Entries(_ context.Context, _ sqlx.ExtContext, id models.ID) ([]models.SlotSubject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var rows []models.SlotSubject
	for _, e := range m.entries[id] {
		rows = append(rows, models.SlotSubject{
			SlotID:      e.SlotID,
			OrderKey:    m.slots[e.SlotID].OrderKey,
			SubjectID:   e.SubjectID,
			SubjectName: m.subjects[e.SubjectID].Name,
		})
	}
	sortSlotSubjects(rows)
	return rows, nil
}

func (m memoryAvailability) Create(_ context.Context, _ sqlx.ExtContext, set *models.AvailabilitySet, entries []models.AvailabilityEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets[set.ID] = *set
	for _, e := range entries {
		e.AvailabilityID = set.ID
		m.entries[set.ID] = append(m.entries[set.ID], e)
	}
	return nil
}

// memorySubjects adapts memoryStore to subjectLookup.
type memorySubjects struct{ *memoryStore }

func (m memorySubjects) FindByIDs(_ context.Context, _ sqlx.ExtContext, ids []models.ID) ([]models.Subject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var found []models.Subject
	for _, id := range ids {
		if subject, ok := m.subjects[id]; ok {
			found = append(found, subject)
		}
	}
	return found, nil
}

// memorySlots adapts memoryStore to slotLookup.
type memorySlots struct{ *memoryStore }

func (m memorySlots) FindByIDs(_ context.Context, _ sqlx.ExtContext, ids []models.ID) ([]models.Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var found []models.Slot
	for _, id := range ids {
		if slot, ok := m.slots[id]; ok {
			found = append(found, slot)
		}
	}
	return found, nil
}

func sortSlotSubjects(rows []models.SlotSubject) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].OrderKey != rows[j].OrderKey {
			return rows[i].OrderKey < rows[j].OrderKey
		}
		return rows[i].SubjectName < rows[j].SubjectName
	})
}

type txProviderMock struct {
	db *sqlx.DB
}

func (p *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return p.db.BeginTxx(ctx, opts)
}

func newTxProviderMock(t *testing.T) (database.TxBeginner, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlx.NewDb(db, "sqlmock")}, mock
}
