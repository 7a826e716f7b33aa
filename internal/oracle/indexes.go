package oracle

import (
	"encoding/binary"

	"golang.org/x/crypto/sha3"

	"flightsurety/internal/ledger/models"
	"flightsurety/pkg/domain"
)

// indexDeriver draws pseudo-random shard indexes. Draws are a pure function of
// the seed, the persisted nonce and the account, so replaying the same
// operations against the same seed yields the same indexes.
type indexDeriver struct {
	seed  []byte
	bound uint8
}

func newIndexDeriver(seed []byte, bound uint8) indexDeriver {
	if bound == 0 {
		bound = 10
	}
	return indexDeriver{seed: append([]byte(nil), seed...), bound: bound}
}

// next returns keccak256(seed || nonce || account)[0] % bound and advances
// the nonce held in state.
func (d indexDeriver) next(state *models.LedgerState, account domain.Address) uint8 {
	var nonce [8]byte
	binary.BigEndian.PutUint64(nonce[:], state.IndexNonce)
	state.IndexNonce++

	h := sha3.NewLegacyKeccak256()
	h.Write(d.seed)
	h.Write(nonce[:])
	h.Write(account.Bytes())
	return h.Sum(nil)[0] % d.bound
}

// triple draws three indexes. Repeats within the triple are kept.
func (d indexDeriver) triple(state *models.LedgerState, account domain.Address) models.OracleIndexes {
	var out models.OracleIndexes
	for i := range out {
		out[i] = d.next(state, account)
	}
	return out
}
