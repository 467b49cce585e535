package models

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseID(t *testing.T) {
	id := NewID(KindSchedule)
	parsed, err := ParseID(KindSchedule, id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)

	_, err = ParseID(KindSubject, id.String())
	assert.True(t, errors.Is(err, ErrInvalidID))

	for _, raw := range []string{"", "sch", "sch_nope", "foo_3b241101-e2bb-4255-8caf-4136c566a962"} {
		_, err := ParseID(KindSchedule, raw)
		assert.Error(t, err, raw)
	}
}

func TestIDJSONAndSQL(t *testing.T) {
	id := MustParseID(KindSlot, "slot_3b241101-e2bb-4255-8caf-4136c566a962")

	payload, err := json.Marshal(map[string]interface{}{"id": id, "parent": ID{}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"slot_3b241101-e2bb-4255-8caf-4136c566a962","parent":null}`, string(payload))

	keyed, err := json.Marshal(map[ID]int{id: 2})
	require.NoError(t, err)
	assert.JSONEq(t, `{"slot_3b241101-e2bb-4255-8caf-4136c566a962":2}`, string(keyed))

	var scanned ID
	require.NoError(t, scanned.Scan([]byte(id.String())))
	assert.Equal(t, id, scanned)
	require.NoError(t, scanned.Scan(nil))
	assert.True(t, scanned.IsZero())

	value, err := ID{}.Value()
	require.NoError(t, err)
	assert.Nil(t, value)
}
