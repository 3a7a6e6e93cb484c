package mailbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRangeContains(t *testing.T) {
	fixtures := []struct {
		name     string
		rng      Range
		uid      uint64
		expected bool
	}{
		{"one match", One(3), 3, true},
		{"one below", One(3), 2, false},
		{"one above", One(3), 4, false},
		{"from start", From(3), 3, true},
		{"from below", From(3), 2, false},
		{"from far above", From(3), 1 << 40, true},
		{"between low bound", Between(2, 5), 2, true},
		{"between high bound", Between(2, 5), 5, true},
		{"between inside", Between(2, 5), 4, true},
		{"between below", Between(2, 5), 1, false},
		{"between above", Between(2, 5), 6, false},
		{"between reversed", Between(5, 2), 3, true},
		{"all low", All(), 1, true},
		{"all high", All(), 1 << 40, true},
	}
	for _, fixture := range fixtures {
		t.Run(fixture.name, func(t *testing.T) {
			assert.Equal(t, fixture.expected, fixture.rng.Contains(fixture.uid))
		})
	}
}

func TestRangeString(t *testing.T) {
	assert.Equal(t, "1:*", All().String())
	assert.Equal(t, "3:*", From(3).String())
	assert.Equal(t, "3", One(3).String())
	assert.Equal(t, "2:5", Between(2, 5).String())
	assert.Equal(t, "2:5", Between(5, 2).String())
}
