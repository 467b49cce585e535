package service

import (
	"sort"

	"github.com/noah-isme/shift-rota-api/internal/models"
)

// AvailabilitySet is a loaded, read-only availability snapshot.
type AvailabilitySet struct {
	Header models.AvailabilitySet

	slots     []models.RankedSlot
	bySlot    map[models.ID][]models.ID
	bySubject map[models.ID][]models.ID
}

// NewAvailabilitySet indexes the joined entry rows of one set.
func NewAvailabilitySet(header models.AvailabilitySet, rows []models.SlotSubject) *AvailabilitySet {
	set := &AvailabilitySet{
		Header:    header,
		bySlot:    make(map[models.ID][]models.ID),
		bySubject: make(map[models.ID][]models.ID),
	}
	orderKeys := make(map[models.ID]int)
	for _, row := range rows {
		if _, seen := orderKeys[row.SlotID]; !seen {
			orderKeys[row.SlotID] = row.OrderKey
		}
		if containsID(set.bySlot[row.SlotID], row.SubjectID) {
			continue
		}
		set.bySlot[row.SlotID] = append(set.bySlot[row.SlotID], row.SubjectID)
		set.bySubject[row.SubjectID] = append(set.bySubject[row.SubjectID], row.SlotID)
	}

	for slotID, subjects := range set.bySlot {
		sortIDs(subjects)
		set.slots = append(set.slots, models.RankedSlot{SlotID: slotID, OrderKey: orderKeys[slotID], Subjects: subjects})
	}
	for _, slots := range set.bySubject {
		sortIDs(slots)
	}

	sort.SliceStable(set.slots, func(i, j int) bool {
		a, b := set.slots[i], set.slots[j]
		if len(a.Subjects) != len(b.Subjects) {
			return len(a.Subjects) < len(b.Subjects)
		}
		if a.OrderKey != b.OrderKey {
			return a.OrderKey < b.OrderKey
		}
		return a.SlotID.Less(b.SlotID)
	})
	return set
}

// ForSlot returns the subjects eligible for slot, or nil when it has no entries.
func (a *AvailabilitySet) ForSlot(slot models.ID) []models.ID {
	return append([]models.ID(nil), a.bySlot[slot]...)
}

// ForSubject returns the slots subject is eligible for.
func (a *AvailabilitySet) ForSubject(subject models.ID) []models.ID {
	return append([]models.ID(nil), a.bySubject[subject]...)
}

// Flexibility is the number of slots subject is eligible for.
func (a *AvailabilitySet) Flexibility(subject models.ID) int {
	return len(a.bySubject[subject])
}

// RankedByFlexibility returns every slot with entries, least-flexible first.
// Ties fall back to the slot order key, then the slot id.
func (a *AvailabilitySet) RankedByFlexibility() []models.RankedSlot {
	ranked := make([]models.RankedSlot, len(a.slots))
	for i, slot := range a.slots {
		ranked[i] = models.RankedSlot{SlotID: slot.SlotID, OrderKey: slot.OrderKey, Subjects: append([]models.ID(nil), slot.Subjects...)}
	}
	return ranked
}

// Subjects returns every subject appearing in the set, sorted by id.
func (a *AvailabilitySet) Subjects() []models.ID {
	subjects := make([]models.ID, 0, len(a.bySubject))
	for id := range a.bySubject {
		subjects = append(subjects, id)
	}
	sortIDs(subjects)
	return subjects
}

func sortIDs(ids []models.ID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })
}

func containsID(ids []models.ID, id models.ID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
