package hashid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShort(t *testing.T) {
	assert.Equal(t, "2cf24dba5fb0", Short("hello"))
	assert.Len(t, Short(""), HexLen)
}

func TestPrefixesDiverge(t *testing.T) {
	payload := "A|svc|2024-01-01|0|2|15"

	assert.Equal(t, "337fa451bca9", Evidence(payload))
	assert.NotEqual(t, Evidence(payload), Replay(payload))
	assert.NotEqual(t, Evidence(payload), TxRef(payload))
	assert.NotEqual(t, Replay(payload), TxRef(payload))
}

func TestStableAcrossCalls(t *testing.T) {
	for i := 0; i < 3; i++ {
		assert.Equal(t, "c5abea85a97c", TxRef("A:2024-01-01T10:00:00Z:10"))
	}
}
