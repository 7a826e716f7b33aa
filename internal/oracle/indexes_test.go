package oracle

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"flightsurety/internal/ledger/models"
	"flightsurety/pkg/domain"
)

func TestIndexDeriver(t *testing.T) {
	caller := domain.MustAddress("0x821aea9a577a9b44299b9c15c88cf3087f3b5544")

	t.Run("advances the nonce once per draw", func(t *testing.T) {
		d := newIndexDeriver([]byte("seed"), 10)
		state := &models.LedgerState{}
		d.triple(state, caller)
		assert.Equal(t, uint64(3), state.IndexNonce)
	})

	t.Run("same seed and nonce give the same index", func(t *testing.T) {
		d := newIndexDeriver([]byte("seed"), 10)
		a := d.next(&models.LedgerState{IndexNonce: 7}, caller)
		b := d.next(&models.LedgerState{IndexNonce: 7}, caller)
		assert.Equal(t, a, b)
	})

	t.Run("stays within bound", func(t *testing.T) {
		d := newIndexDeriver([]byte("seed"), 10)
		state := &models.LedgerState{}
		seen := make(map[uint8]bool)
		for iter := 0; iter < 500; iter++ {
			idx := d.next(state, caller)
			assert.Less(t, idx, uint8(10))
			seen[idx] = true
		}
		assert.Len(t, seen, 10)
	})

	t.Run("zero bound falls back to ten", func(t *testing.T) {
		d := newIndexDeriver(nil, 0)
		assert.Equal(t, uint8(10), d.bound)
	})
}
