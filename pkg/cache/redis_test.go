package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "rota:schedule:sch_1", Key("schedule", "sch_1"))
	assert.Equal(t, "rota:availability:*", Key("availability", "*"))
}
