package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/lib/pq"

	"flightsurety/internal/ledger/models"
	"flightsurety/pkg/domain"
	dErrors "flightsurety/pkg/domain-errors"
)

//go:embed schema.sql
var schemaSQL string

// ledgerLockKey serializes writers through pg_advisory_xact_lock.
const ledgerLockKey int64 = 0x466c69676874

const defaultTxTimeout = 5 * time.Second

// uniqueViolation is the SQLSTATE for duplicate keys.
const uniqueViolation = "23505"

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresStore persists ledger state in PostgreSQL. Each write transaction
// takes a transaction-scoped advisory lock so operations apply one at a time.
type PostgresStore struct {
	db      *sql.DB
	timeout time.Duration
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, timeout: defaultTxTimeout}
}

// Migrate creates the schema if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("migrate ledger schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) RunInTx(ctx context.Context, fn func(tx Tx) error) error {
	return s.runTx(ctx, false, fn)
}

func (s *PostgresStore) View(ctx context.Context, fn func(tx Tx) error) error {
	return s.runTx(ctx, true, fn)
}

func (s *PostgresStore) runTx(ctx context.Context, readOnly bool, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	opts := &sql.TxOptions{ReadOnly: readOnly}
	if readOnly {
		opts.Isolation = sql.LevelRepeatableRead
	}
	sqlTx, err := s.db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin ledger tx: %w", err)
	}
	defer func() {
		_ = sqlTx.Rollback()
	}()

	if !readOnly {
		if _, err := sqlTx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, ledgerLockKey); err != nil {
			return fmt.Errorf("acquire ledger lock: %w", err)
		}
	}

	if err := fn(&postgresTx{q: sqlTx}); err != nil {
		return err
	}
	if readOnly {
		return nil
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit ledger tx: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListEvents(ctx context.Context, after int64, limit int) ([]*models.Event, error) {
	return queryEvents(ctx, s.db, `
		SELECT seq, id, type, payload, created_at, dispatched_at
		FROM events WHERE seq > $1 ORDER BY seq LIMIT $2`, after, limitOrAll(limit))
}

func (s *PostgresStore) PendingEvents(ctx context.Context, limit int) ([]*models.Event, error) {
	return queryEvents(ctx, s.db, `
		SELECT seq, id, type, payload, created_at, dispatched_at
		FROM events WHERE dispatched_at IS NULL ORDER BY seq LIMIT $1`, limitOrAll(limit))
}

func (s *PostgresStore) MarkDispatched(ctx context.Context, seqs []int64, at time.Time) error {
	if len(seqs) == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE events SET dispatched_at = $2
		WHERE seq = ANY($1) AND dispatched_at IS NULL`, pq.Array(seqs), at)
	if err != nil {
		return fmt.Errorf("mark events dispatched: %w", err)
	}
	return nil
}

// EvictStaleRequests deletes under the ledger lock so an eviction cannot
// interleave with a response being recorded on the same request.
func (s *PostgresStore) EvictStaleRequests(ctx context.Context, cutoff time.Time) (int, error) {
	var evicted int
	err := s.runTx(ctx, false, func(tx Tx) error {
		q := tx.(*postgresTx).q
		res, err := q.ExecContext(ctx, `DELETE FROM status_requests WHERE is_open AND opened_at < $1`, cutoff)
		if err != nil {
			return fmt.Errorf("evict stale requests: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("evict stale requests: %w", err)
		}
		evicted = int(n)
		return nil
	})
	return evicted, err
}

type postgresTx struct {
	q querier
}

func (t *postgresTx) State(ctx context.Context) (*models.LedgerState, error) {
	var state models.LedgerState
	var admin string
	var nonce int64
	err := t.q.QueryRowContext(ctx, `SELECT admin, operational, index_nonce FROM ledger_state WHERE id = 1`).
		Scan(&admin, &state.Operational, &nonce)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotInitialized
	}
	if err != nil {
		return nil, fmt.Errorf("load ledger state: %w", err)
	}
	state.Admin = domain.Address(admin)
	state.IndexNonce = uint64(nonce)
	return &state, nil
}

func (t *postgresTx) SaveState(ctx context.Context, state *models.LedgerState) error {
	_, err := t.q.ExecContext(ctx, `
		INSERT INTO ledger_state (id, admin, operational, index_nonce)
		VALUES (1, $1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			admin = EXCLUDED.admin,
			operational = EXCLUDED.operational,
			index_nonce = EXCLUDED.index_nonce`,
		state.Admin.String(), state.Operational, int64(state.IndexNonce))
	if err != nil {
		return fmt.Errorf("save ledger state: %w", err)
	}
	return nil
}

func (t *postgresTx) Airline(ctx context.Context, addr domain.Address) (*models.Airline, error) {
	var a models.Airline
	var address, funded string
	var registeredAt sql.NullTime
	err := t.q.QueryRowContext(ctx, `
		SELECT address, code, name, is_registered, is_paid, funded::text, votes, registered_at, created_at
		FROM airlines WHERE address = $1`, addr.String()).
		Scan(&address, &a.Code, &a.Name, &a.IsRegistered, &a.IsPaid, &funded, &a.Votes, &registeredAt, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load airline: %w", err)
	}
	a.Address = domain.Address(address)
	if a.Funded, err = parseNumeric(funded); err != nil {
		return nil, err
	}
	if registeredAt.Valid {
		t := registeredAt.Time
		a.RegisteredAt = &t
	}
	return &a, nil
}

func (t *postgresTx) SaveAirline(ctx context.Context, a *models.Airline) error {
	var registeredAt any
	if a.RegisteredAt != nil {
		registeredAt = *a.RegisteredAt
	}
	_, err := t.q.ExecContext(ctx, `
		INSERT INTO airlines (address, code, name, is_registered, is_paid, funded, votes, registered_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6::numeric, $7, $8, $9)
		ON CONFLICT (address) DO UPDATE SET
			code = EXCLUDED.code,
			name = EXCLUDED.name,
			is_registered = EXCLUDED.is_registered,
			is_paid = EXCLUDED.is_paid,
			funded = EXCLUDED.funded,
			votes = EXCLUDED.votes,
			registered_at = EXCLUDED.registered_at`,
		a.Address.String(), a.Code, a.Name, a.IsRegistered, a.IsPaid, domain.CopyWei(a.Funded).String(),
		a.Votes, registeredAt, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("save airline: %w", err)
	}
	return nil
}

func (t *postgresTx) CountAirlines(ctx context.Context) (registered, paid int, err error) {
	err = t.q.QueryRowContext(ctx, `
		SELECT COUNT(*) FILTER (WHERE is_registered),
		       COUNT(*) FILTER (WHERE is_registered AND is_paid)
		FROM airlines`).Scan(&registered, &paid)
	if err != nil {
		return 0, 0, fmt.Errorf("count airlines: %w", err)
	}
	return registered, paid, nil
}

func (t *postgresTx) HasVoted(ctx context.Context, candidate, voter domain.Address) (bool, error) {
	var exists bool
	err := t.q.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM airline_votes WHERE candidate = $1 AND voter = $2)`,
		candidate.String(), voter.String()).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check vote: %w", err)
	}
	return exists, nil
}

func (t *postgresTx) AddVote(ctx context.Context, candidate, voter domain.Address, at time.Time) error {
	_, err := t.q.ExecContext(ctx, `
		INSERT INTO airline_votes (candidate, voter, created_at) VALUES ($1, $2, $3)`,
		candidate.String(), voter.String(), at)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("add vote: %w", err)
	}
	return nil
}

func (t *postgresTx) Flight(ctx context.Context, code models.FlightCode) (*models.Flight, error) {
	var f models.Flight
	var flightCode, airline string
	var status int16
	err := t.q.QueryRowContext(ctx, `
		SELECT code, airline, status, is_registered, registered_at, updated_at
		FROM flights WHERE code = $1`, code.String()).
		Scan(&flightCode, &airline, &status, &f.IsRegistered, &f.RegisteredAt, &f.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load flight: %w", err)
	}
	f.Code = models.FlightCode(flightCode)
	f.Airline = domain.Address(airline)
	f.Status = models.StatusCode(status)
	return &f, nil
}

func (t *postgresTx) CreateFlight(ctx context.Context, f *models.Flight) error {
	_, err := t.q.ExecContext(ctx, `
		INSERT INTO flights (code, airline, status, is_registered, registered_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		f.Code.String(), f.Airline.String(), int16(f.Status), f.IsRegistered, f.RegisteredAt, f.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("create flight: %w", err)
	}
	return nil
}

func (t *postgresTx) UpdateFlight(ctx context.Context, f *models.Flight) error {
	res, err := t.q.ExecContext(ctx, `
		UPDATE flights SET status = $2, is_registered = $3, updated_at = $4 WHERE code = $1`,
		f.Code.String(), int16(f.Status), f.IsRegistered, f.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update flight: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *postgresTx) Policy(ctx context.Context, flight models.FlightCode, purchaser domain.Address) (*models.Policy, error) {
	var p models.Policy
	var flightCode, buyer, amount string
	var payout sql.NullString
	err := t.q.QueryRowContext(ctx, `
		SELECT flight, purchaser, amount_paid::text, is_cancelled, is_paid_out, payout::text, created_at, updated_at
		FROM policies WHERE flight = $1 AND purchaser = $2`, flight.String(), purchaser.String()).
		Scan(&flightCode, &buyer, &amount, &p.IsCancelled, &p.IsPaidOut, &payout, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load policy: %w", err)
	}
	p.Flight = models.FlightCode(flightCode)
	p.Purchaser = domain.Address(buyer)
	if p.AmountPaid, err = parseNumeric(amount); err != nil {
		return nil, err
	}
	if payout.Valid {
		if p.Payout, err = parseNumeric(payout.String); err != nil {
			return nil, err
		}
	}
	return &p, nil
}

func (t *postgresTx) SavePolicy(ctx context.Context, p *models.Policy) error {
	var payout any
	if p.Payout != nil {
		payout = p.Payout.String()
	}
	_, err := t.q.ExecContext(ctx, `
		INSERT INTO policies (flight, purchaser, amount_paid, is_cancelled, is_paid_out, payout, created_at, updated_at)
		VALUES ($1, $2, $3::numeric, $4, $5, $6::numeric, $7, $8)
		ON CONFLICT (flight, purchaser) DO UPDATE SET
			amount_paid = EXCLUDED.amount_paid,
			is_cancelled = EXCLUDED.is_cancelled,
			is_paid_out = EXCLUDED.is_paid_out,
			payout = EXCLUDED.payout,
			updated_at = EXCLUDED.updated_at`,
		p.Flight.String(), p.Purchaser.String(), domain.CopyWei(p.AmountPaid).String(), p.IsCancelled, p.IsPaidOut,
		payout, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save policy: %w", err)
	}
	return nil
}

func (t *postgresTx) Oracle(ctx context.Context, addr domain.Address) (*models.Oracle, error) {
	var o models.Oracle
	var address string
	var indexes pq.Int64Array
	err := t.q.QueryRowContext(ctx, `
		SELECT address, indexes, registered_at FROM oracles WHERE address = $1`, addr.String()).
		Scan(&address, &indexes, &o.RegisteredAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load oracle: %w", err)
	}
	if len(indexes) != len(o.Indexes) {
		return nil, fmt.Errorf("load oracle: expected %d indexes, got %d", len(o.Indexes), len(indexes))
	}
	o.Address = domain.Address(address)
	for i, idx := range indexes {
		o.Indexes[i] = uint8(idx)
	}
	return &o, nil
}

func (t *postgresTx) CreateOracle(ctx context.Context, o *models.Oracle) error {
	indexes := make([]int64, len(o.Indexes))
	for i, idx := range o.Indexes {
		indexes[i] = int64(idx)
	}
	_, err := t.q.ExecContext(ctx, `
		INSERT INTO oracles (address, indexes, registered_at) VALUES ($1, $2, $3)`,
		o.Address.String(), pq.Array(indexes), o.RegisteredAt)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("create oracle: %w", err)
	}
	return nil
}

const requestColumns = `idx, flight, ts, requester, is_open, final_status, opened_at, closed_at`

func (t *postgresTx) StatusRequest(ctx context.Context, key models.RequestKey) (*models.StatusRequest, error) {
	row := t.q.QueryRowContext(ctx, `SELECT `+requestColumns+`
		FROM status_requests WHERE idx = $1 AND flight = $2 AND ts = $3`,
		int16(key.Index), key.Flight.String(), key.Timestamp)
	return t.loadRequest(ctx, row)
}

func (t *postgresTx) LatestOpenRequest(ctx context.Context, index uint8, flight models.FlightCode) (*models.StatusRequest, error) {
	row := t.q.QueryRowContext(ctx, `SELECT `+requestColumns+`
		FROM status_requests WHERE idx = $1 AND flight = $2 AND is_open
		ORDER BY opened_at DESC, ts DESC LIMIT 1`, int16(index), flight.String())
	return t.loadRequest(ctx, row)
}

func (t *postgresTx) OpenRequests(ctx context.Context, flight models.FlightCode) ([]*models.StatusRequest, error) {
	rows, err := t.q.QueryContext(ctx, `SELECT `+requestColumns+`
		FROM status_requests WHERE flight = $1 AND is_open
		ORDER BY opened_at, ts, idx`, flight.String())
	if err != nil {
		return nil, fmt.Errorf("list open requests: %w", err)
	}
	var out []*models.StatusRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("list open requests: %w", err)
	}
	rows.Close()
	for _, req := range out {
		if err := t.loadResponses(ctx, req); err != nil {
			return nil, err
		}
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*models.StatusRequest, error) {
	var idx, finalStatus int16
	var flight, requester string
	var ts int64
	var isOpen bool
	var openedAt time.Time
	var closedAt sql.NullTime
	if err := row.Scan(&idx, &flight, &ts, &requester, &isOpen, &finalStatus, &openedAt, &closedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan status request: %w", err)
	}
	req := models.NewStatusRequest(models.RequestKey{
		Index:     uint8(idx),
		Flight:    models.FlightCode(flight),
		Timestamp: ts,
	}, domain.Address(requester), openedAt)
	req.IsOpen = isOpen
	req.FinalStatus = models.StatusCode(finalStatus)
	if closedAt.Valid {
		t := closedAt.Time
		req.ClosedAt = &t
	}
	return req, nil
}

func (t *postgresTx) loadRequest(ctx context.Context, row *sql.Row) (*models.StatusRequest, error) {
	req, err := scanRequest(row)
	if err != nil {
		return nil, err
	}
	if err := t.loadResponses(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

func (t *postgresTx) loadResponses(ctx context.Context, req *models.StatusRequest) error {
	rows, err := t.q.QueryContext(ctx, `
		SELECT status, oracle FROM status_responses
		WHERE idx = $1 AND flight = $2 AND ts = $3 ORDER BY seq`,
		int16(req.Key.Index), req.Key.Flight.String(), req.Key.Timestamp)
	if err != nil {
		return fmt.Errorf("load responses: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status int16
		var oracle string
		if err := rows.Scan(&status, &oracle); err != nil {
			return fmt.Errorf("scan response: %w", err)
		}
		req.AddResponse(models.StatusCode(status), domain.Address(oracle))
	}
	return rows.Err()
}

func (t *postgresTx) SaveStatusRequest(ctx context.Context, req *models.StatusRequest) error {
	var closedAt any
	if req.ClosedAt != nil {
		closedAt = *req.ClosedAt
	}
	_, err := t.q.ExecContext(ctx, `
		INSERT INTO status_requests (`+requestColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (idx, flight, ts) DO UPDATE SET
			is_open = EXCLUDED.is_open,
			final_status = EXCLUDED.final_status,
			closed_at = EXCLUDED.closed_at`,
		int16(req.Key.Index), req.Key.Flight.String(), req.Key.Timestamp, req.Requester.String(),
		req.IsOpen, int16(req.FinalStatus), req.OpenedAt, closedAt)
	if err != nil {
		return fmt.Errorf("save status request: %w", err)
	}
	for status, oracles := range req.Responses {
		for _, oracle := range oracles {
			_, err := t.q.ExecContext(ctx, `
				INSERT INTO status_responses (idx, flight, ts, status, oracle)
				VALUES ($1, $2, $3, $4, $5)
				ON CONFLICT DO NOTHING`,
				int16(req.Key.Index), req.Key.Flight.String(), req.Key.Timestamp, int16(status), oracle.String())
			if err != nil {
				return fmt.Errorf("save status response: %w", err)
			}
		}
	}
	return nil
}

func (t *postgresTx) DeleteStatusRequest(ctx context.Context, key models.RequestKey) error {
	_, err := t.q.ExecContext(ctx, `
		DELETE FROM status_requests WHERE idx = $1 AND flight = $2 AND ts = $3`,
		int16(key.Index), key.Flight.String(), key.Timestamp)
	if err != nil {
		return fmt.Errorf("delete status request: %w", err)
	}
	return nil
}

func (t *postgresTx) Balance(ctx context.Context, account domain.Address) (*big.Int, error) {
	var amount string
	err := t.q.QueryRowContext(ctx, `SELECT amount::text FROM balances WHERE account = $1`, account.String()).Scan(&amount)
	if errors.Is(err, sql.ErrNoRows) {
		return new(big.Int), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load balance: %w", err)
	}
	return parseNumeric(amount)
}

func (t *postgresTx) SetBalance(ctx context.Context, account domain.Address, amount *big.Int) error {
	_, err := t.q.ExecContext(ctx, `
		INSERT INTO balances (account, amount) VALUES ($1, $2::numeric)
		ON CONFLICT (account) DO UPDATE SET amount = EXCLUDED.amount`,
		account.String(), domain.CopyWei(amount).String())
	if err != nil {
		return fmt.Errorf("save balance: %w", err)
	}
	return nil
}

func (t *postgresTx) AppendEvent(ctx context.Context, e *models.Event) error {
	err := t.q.QueryRowContext(ctx, `
		INSERT INTO events (id, type, payload, created_at) VALUES ($1, $2, $3, $4)
		RETURNING seq`, e.ID, string(e.Type), []byte(e.Payload), e.CreatedAt).Scan(&e.Seq)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

func queryEvents(ctx context.Context, q querier, query string, args ...any) ([]*models.Event, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()
	var out []*models.Event
	for rows.Next() {
		var e models.Event
		var eventType string
		var payload []byte
		var dispatchedAt sql.NullTime
		if err := rows.Scan(&e.Seq, &e.ID, &eventType, &payload, &e.CreatedAt, &dispatchedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Type = models.EventType(eventType)
		e.Payload = payload
		if dispatchedAt.Valid {
			t := dispatchedAt.Time
			e.DispatchedAt = &t
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

func parseNumeric(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid numeric value %q", s)
	}
	return v, nil
}

func limitOrAll(limit int) any {
	if limit <= 0 {
		return nil
	}
	return limit
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == uniqueViolation
	}
	var coded interface{ SQLState() string }
	if errors.As(err, &coded) {
		return coded.SQLState() == uniqueViolation
	}
	return false
}
