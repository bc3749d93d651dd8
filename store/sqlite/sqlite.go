/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements collections.Store and collections.TxStore using SQLite. In
  production, the same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

APPEND-ONLY ENFORCEMENT:
  payment_records, extension_history and unattributed_credits carry no
  UPDATE or DELETE statements. Installments are never deleted; mutations
  go through UpdateInstallment with an optimistic version check.

KEY TABLES:
  policies:             Contract headers (currency, premium)
  installments:         The payment schedule, one row per cuota
  payment_records:      Immutable rows, one per registered payment
  extension_history:    Append-only due-date change log
  unattributed_credits: Excess with no installment left to receive it
  overdue_refresh_runs: Materializer audit rows

OVERDUE FLAG:
  installments.overdue_flag is a materialized, periodically refreshed
  column for indexable filtering only. The effective status reported to
  callers is always derived fresh from status + due_date + today; the
  flag never feeds that derivation. See api/refresher.go.

CONCURRENCY:
  Uses sync.Mutex around writes and transactions. The optimistic version
  check on installments rejects a racing double-submit even across
  processes.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  multiple readers don't block and crash recovery improves.

USAGE:
  store, err := sqlite.New("./data/collections.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - collections/store.go: Interface definitions
  - store/memory: In-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/corredora/collections-engine/collections"
)

const (
	dateLayout = "2006-01-02"
	tsLayout   = time.RFC3339
)

// Store implements collections.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS policies (
		id TEXT PRIMARY KEY,
		currency TEXT NOT NULL,
		total_premium TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS installments (
		id TEXT PRIMARY KEY,
		policy_id TEXT NOT NULL REFERENCES policies(id),
		seq INTEGER NOT NULL,
		amount_due TEXT NOT NULL,
		amount_paid TEXT NOT NULL DEFAULT '0',
		due_date TEXT NOT NULL,
		original_due_date TEXT,
		paid_date TEXT,
		status TEXT NOT NULL DEFAULT 'pending',
		notes TEXT NOT NULL DEFAULT '',
		version INTEGER NOT NULL DEFAULT 0,
		-- Materialized query aid, refreshed periodically. Never the
		-- source of truth for effective status.
		overdue_flag INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		UNIQUE(policy_id, seq)
	);

	CREATE INDEX IF NOT EXISTS idx_installments_policy
		ON installments(policy_id, seq);
	CREATE INDEX IF NOT EXISTS idx_installments_due_date
		ON installments(due_date);
	CREATE INDEX IF NOT EXISTS idx_installments_status
		ON installments(status);
	CREATE INDEX IF NOT EXISTS idx_installments_overdue
		ON installments(overdue_flag) WHERE overdue_flag = 1;

	-- Payment records (append-only)
	CREATE TABLE IF NOT EXISTS payment_records (
		id TEXT PRIMARY KEY,
		installment_id TEXT NOT NULL REFERENCES installments(id),
		amount TEXT NOT NULL,
		payment_date TEXT NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		proof_reference TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_payment_records_installment
		ON payment_records(installment_id, created_at);

	-- Extension history (append-only)
	CREATE TABLE IF NOT EXISTS extension_history (
		id TEXT PRIMARY KEY,
		installment_id TEXT NOT NULL REFERENCES installments(id),
		previous_date TEXT NOT NULL,
		new_date TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		actor TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_extension_history_installment
		ON extension_history(installment_id, created_at);

	-- Unattributed credits (append-only)
	CREATE TABLE IF NOT EXISTS unattributed_credits (
		id TEXT PRIMARY KEY,
		policy_id TEXT NOT NULL REFERENCES policies(id),
		source_installment_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_unattributed_credits_policy
		ON unattributed_credits(policy_id);

	-- Overdue flag materializer audit rows
	CREATE TABLE IF NOT EXISTS overdue_refresh_runs (
		id TEXT PRIMARY KEY,
		ran_at TEXT NOT NULL,
		as_of TEXT NOT NULL,
		flagged INTEGER NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// execer abstracts *sql.DB and *sql.Tx so the same statements serve both.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// POLICIES
// =============================================================================

func (s *Store) SavePolicy(ctx context.Context, p collections.Policy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return savePolicy(ctx, s.db, p)
}

func savePolicy(ctx context.Context, db execer, p collections.Policy) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO policies (id, currency, total_premium, created_at)
		VALUES (?, ?, ?, ?)`,
		p.ID, p.Currency, p.TotalPremium.String(), p.CreatedAt.Format(tsLayout))
	if err != nil {
		return fmt.Errorf("failed to save policy: %w", err)
	}
	return nil
}

func (s *Store) GetPolicy(ctx context.Context, id collections.PolicyID) (*collections.Policy, error) {
	return getPolicy(ctx, s.db, id)
}

func getPolicy(ctx context.Context, db execer, id collections.PolicyID) (*collections.Policy, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, currency, total_premium, created_at
		FROM policies WHERE id = ?`, id)
	p, err := scanPolicy(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, collections.ErrPolicyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get policy: %w", err)
	}
	return p, nil
}

func (s *Store) ListPolicies(ctx context.Context) ([]collections.Policy, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, currency, total_premium, created_at
		FROM policies ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list policies: %w", err)
	}
	defer rows.Close()

	var out []collections.Policy
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPolicy(row rowScanner) (*collections.Policy, error) {
	var p collections.Policy
	var premium, createdAt string
	if err := row.Scan(&p.ID, &p.Currency, &premium, &createdAt); err != nil {
		return nil, err
	}
	var err error
	if p.TotalPremium, err = decimal.NewFromString(premium); err != nil {
		return nil, fmt.Errorf("invalid premium %q: %w", premium, err)
	}
	p.CreatedAt, _ = time.Parse(tsLayout, createdAt)
	return &p, nil
}

// =============================================================================
// INSTALLMENTS
// =============================================================================

const installmentColumns = `id, policy_id, seq, amount_due, amount_paid, due_date,
	original_due_date, paid_date, status, notes, version, created_at`

func (s *Store) SaveInstallment(ctx context.Context, inst collections.Installment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveInstallment(ctx, s.db, inst)
}

func saveInstallment(ctx context.Context, db execer, inst collections.Installment) error {
	if inst.CreatedAt.IsZero() {
		inst.CreatedAt = time.Now().UTC()
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO installments
		(id, policy_id, seq, amount_due, amount_paid, due_date, original_due_date,
		 paid_date, status, notes, version, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inst.ID,
		inst.PolicyID,
		inst.Sequence,
		inst.AmountDue.String(),
		inst.AmountPaid.String(),
		inst.DueDate.Format(dateLayout),
		nullDate(inst.OriginalDueDate),
		nullDate(inst.PaidDate),
		inst.Status,
		inst.Notes,
		inst.Version,
		inst.CreatedAt.Format(tsLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to save installment: %w", err)
	}
	return nil
}

func (s *Store) GetInstallment(ctx context.Context, id collections.InstallmentID) (*collections.Installment, error) {
	return getInstallment(ctx, s.db, id)
}

func getInstallment(ctx context.Context, db execer, id collections.InstallmentID) (*collections.Installment, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+installmentColumns+` FROM installments WHERE id = ?`, id)
	inst, err := scanInstallment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, collections.ErrInstallmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get installment: %w", err)
	}
	return inst, nil
}

func (s *Store) ListByPolicy(ctx context.Context, policyID collections.PolicyID) ([]collections.Installment, error) {
	return listInstallments(ctx, s.db,
		`SELECT `+installmentColumns+` FROM installments WHERE policy_id = ? ORDER BY seq`,
		policyID)
}

func (s *Store) ListInstallments(ctx context.Context) ([]collections.Installment, error) {
	return listInstallments(ctx, s.db,
		`SELECT `+installmentColumns+` FROM installments ORDER BY policy_id, seq`)
}

func listInstallments(ctx context.Context, db execer, query string, args ...any) ([]collections.Installment, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list installments: %w", err)
	}
	defer rows.Close()

	var out []collections.Installment
	for rows.Next() {
		inst, err := scanInstallment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *inst)
	}
	return out, rows.Err()
}

func (s *Store) UpdateInstallment(ctx context.Context, inst collections.Installment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateInstallment(ctx, s.db, inst)
}

// updateInstallment matches on the version the caller read and bumps it.
// A racing writer sees zero affected rows and gets ErrVersionConflict.
func updateInstallment(ctx context.Context, db execer, inst collections.Installment) error {
	res, err := db.ExecContext(ctx, `
		UPDATE installments
		SET amount_paid = ?, due_date = ?, original_due_date = ?, paid_date = ?,
		    status = ?, notes = ?, version = version + 1
		WHERE id = ? AND version = ?`,
		inst.AmountPaid.String(),
		inst.DueDate.Format(dateLayout),
		nullDate(inst.OriginalDueDate),
		nullDate(inst.PaidDate),
		inst.Status,
		inst.Notes,
		inst.ID,
		inst.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update installment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update installment: %w", err)
	}
	if affected == 0 {
		if _, err := getInstallment(ctx, db, inst.ID); err != nil {
			return err
		}
		return collections.ErrVersionConflict
	}
	return nil
}

func scanInstallment(row rowScanner) (*collections.Installment, error) {
	var inst collections.Installment
	var amountDue, amountPaid, dueDate, createdAt string
	var originalDue, paidDate sql.NullString
	if err := row.Scan(&inst.ID, &inst.PolicyID, &inst.Sequence, &amountDue, &amountPaid,
		&dueDate, &originalDue, &paidDate, &inst.Status, &inst.Notes, &inst.Version, &createdAt); err != nil {
		return nil, err
	}
	var err error
	if inst.AmountDue, err = decimal.NewFromString(amountDue); err != nil {
		return nil, fmt.Errorf("invalid amount_due %q: %w", amountDue, err)
	}
	if inst.AmountPaid, err = decimal.NewFromString(amountPaid); err != nil {
		return nil, fmt.Errorf("invalid amount_paid %q: %w", amountPaid, err)
	}
	if inst.DueDate, err = time.Parse(dateLayout, dueDate); err != nil {
		return nil, fmt.Errorf("invalid due_date %q: %w", dueDate, err)
	}
	inst.OriginalDueDate = parseNullDate(originalDue)
	inst.PaidDate = parseNullDate(paidDate)
	inst.CreatedAt, _ = time.Parse(tsLayout, createdAt)
	return &inst, nil
}

// =============================================================================
// PAYMENT RECORDS (append-only)
// =============================================================================

func (s *Store) AppendPayment(ctx context.Context, rec collections.PaymentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendPayment(ctx, s.db, rec)
}

func appendPayment(ctx context.Context, db execer, rec collections.PaymentRecord) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO payment_records
		(id, installment_id, amount, payment_date, notes, proof_reference, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.InstallmentID,
		rec.Amount.String(),
		rec.PaymentDate.Format(dateLayout),
		rec.Notes,
		rec.ProofReference,
		rec.CreatedAt.Format(tsLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to append payment record: %w", err)
	}
	return nil
}

func (s *Store) ListPayments(ctx context.Context, installmentID collections.InstallmentID) ([]collections.PaymentRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, installment_id, amount, payment_date, notes, proof_reference, created_at
		FROM payment_records WHERE installment_id = ? ORDER BY created_at, id`, installmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payment records: %w", err)
	}
	defer rows.Close()

	var out []collections.PaymentRecord
	for rows.Next() {
		var rec collections.PaymentRecord
		var amount, paymentDate, createdAt string
		if err := rows.Scan(&rec.ID, &rec.InstallmentID, &amount, &paymentDate,
			&rec.Notes, &rec.ProofReference, &createdAt); err != nil {
			return nil, err
		}
		if rec.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("invalid payment amount %q: %w", amount, err)
		}
		rec.PaymentDate, _ = time.Parse(dateLayout, paymentDate)
		rec.CreatedAt, _ = time.Parse(tsLayout, createdAt)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// =============================================================================
// EXTENSION HISTORY (append-only)
// =============================================================================

func (s *Store) AppendExtension(ctx context.Context, entry collections.ExtensionEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendExtension(ctx, s.db, entry)
}

func appendExtension(ctx context.Context, db execer, entry collections.ExtensionEntry) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO extension_history
		(id, installment_id, previous_date, new_date, reason, actor, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.InstallmentID,
		entry.PreviousDate.Format(dateLayout),
		entry.NewDate.Format(dateLayout),
		entry.Reason,
		entry.Actor,
		entry.CreatedAt.Format(tsLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to append extension entry: %w", err)
	}
	return nil
}

func (s *Store) ListExtensions(ctx context.Context, installmentID collections.InstallmentID) ([]collections.ExtensionEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, installment_id, previous_date, new_date, reason, actor, created_at
		FROM extension_history WHERE installment_id = ? ORDER BY created_at, id`, installmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list extension history: %w", err)
	}
	defer rows.Close()

	var out []collections.ExtensionEntry
	for rows.Next() {
		var entry collections.ExtensionEntry
		var previous, next, createdAt string
		if err := rows.Scan(&entry.ID, &entry.InstallmentID, &previous, &next,
			&entry.Reason, &entry.Actor, &createdAt); err != nil {
			return nil, err
		}
		entry.PreviousDate, _ = time.Parse(dateLayout, previous)
		entry.NewDate, _ = time.Parse(dateLayout, next)
		entry.CreatedAt, _ = time.Parse(tsLayout, createdAt)
		out = append(out, entry)
	}
	return out, rows.Err()
}

// =============================================================================
// UNATTRIBUTED CREDITS (append-only)
// =============================================================================

func (s *Store) AppendUnattributedCredit(ctx context.Context, credit collections.UnattributedCredit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendCredit(ctx, s.db, credit)
}

func appendCredit(ctx context.Context, db execer, credit collections.UnattributedCredit) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO unattributed_credits
		(id, policy_id, source_installment_id, amount, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		credit.ID,
		credit.PolicyID,
		credit.SourceInstallmentID,
		credit.Amount.String(),
		credit.Notes,
		credit.CreatedAt.Format(tsLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to append unattributed credit: %w", err)
	}
	return nil
}

func (s *Store) ListUnattributedCredits(ctx context.Context, policyID collections.PolicyID) ([]collections.UnattributedCredit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, policy_id, source_installment_id, amount, notes, created_at
		FROM unattributed_credits WHERE policy_id = ? ORDER BY created_at, id`, policyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list unattributed credits: %w", err)
	}
	defer rows.Close()

	var out []collections.UnattributedCredit
	for rows.Next() {
		var credit collections.UnattributedCredit
		var amount, createdAt string
		if err := rows.Scan(&credit.ID, &credit.PolicyID, &credit.SourceInstallmentID,
			&amount, &credit.Notes, &createdAt); err != nil {
			return nil, err
		}
		if credit.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("invalid credit amount %q: %w", amount, err)
		}
		credit.CreatedAt, _ = time.Parse(tsLayout, createdAt)
		out = append(out, credit)
	}
	return out, rows.Err()
}

// =============================================================================
// OVERDUE FLAG MATERIALIZATION
// =============================================================================

// RefreshOverdueFlags recomputes the materialized overdue_flag column as of
// the given day and records an audit row. Returns how many installments
// are currently flagged.
func (s *Store) RefreshOverdueFlags(ctx context.Context, asOf time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	day := asOf.Format(dateLayout)
	_, err := s.db.ExecContext(ctx, `
		UPDATE installments
		SET overdue_flag = CASE
			WHEN status != 'paid' AND due_date < ? THEN 1
			ELSE 0
		END`, day)
	if err != nil {
		return 0, fmt.Errorf("failed to refresh overdue flags: %w", err)
	}

	var flagged int64
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM installments WHERE overdue_flag = 1`).Scan(&flagged); err != nil {
		return 0, fmt.Errorf("failed to count flagged installments: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO overdue_refresh_runs (id, ran_at, as_of, flagged)
		VALUES (?, ?, ?, ?)`,
		uuid.NewString(), time.Now().UTC().Format(tsLayout), day, flagged)
	if err != nil {
		return 0, fmt.Errorf("failed to record refresh run: %w", err)
	}
	return flagged, nil
}

// ListFlaggedOverdue returns installments carrying the materialized flag.
// Query aid only; callers wanting the authoritative status derive it.
func (s *Store) ListFlaggedOverdue(ctx context.Context) ([]collections.Installment, error) {
	return listInstallments(ctx, s.db,
		`SELECT `+installmentColumns+` FROM installments WHERE overdue_flag = 1 ORDER BY policy_id, seq`)
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store collections.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx, parent: s}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// txStore routes Store calls through an open *sql.Tx.
type txStore struct {
	tx     *sql.Tx
	parent *Store
}

func (ts *txStore) SavePolicy(ctx context.Context, p collections.Policy) error {
	return savePolicy(ctx, ts.tx, p)
}

func (ts *txStore) GetPolicy(ctx context.Context, id collections.PolicyID) (*collections.Policy, error) {
	return getPolicy(ctx, ts.tx, id)
}

func (ts *txStore) ListPolicies(ctx context.Context) ([]collections.Policy, error) {
	return nil, fmt.Errorf("ListPolicies not supported inside a transaction")
}

func (ts *txStore) SaveInstallment(ctx context.Context, inst collections.Installment) error {
	return saveInstallment(ctx, ts.tx, inst)
}

func (ts *txStore) GetInstallment(ctx context.Context, id collections.InstallmentID) (*collections.Installment, error) {
	return getInstallment(ctx, ts.tx, id)
}

func (ts *txStore) ListByPolicy(ctx context.Context, policyID collections.PolicyID) ([]collections.Installment, error) {
	return listInstallments(ctx, ts.tx,
		`SELECT `+installmentColumns+` FROM installments WHERE policy_id = ? ORDER BY seq`,
		policyID)
}

func (ts *txStore) ListInstallments(ctx context.Context) ([]collections.Installment, error) {
	return listInstallments(ctx, ts.tx,
		`SELECT `+installmentColumns+` FROM installments ORDER BY policy_id, seq`)
}

func (ts *txStore) UpdateInstallment(ctx context.Context, inst collections.Installment) error {
	return updateInstallment(ctx, ts.tx, inst)
}

func (ts *txStore) AppendPayment(ctx context.Context, rec collections.PaymentRecord) error {
	return appendPayment(ctx, ts.tx, rec)
}

func (ts *txStore) ListPayments(ctx context.Context, installmentID collections.InstallmentID) ([]collections.PaymentRecord, error) {
	return nil, fmt.Errorf("ListPayments not supported inside a transaction")
}

func (ts *txStore) AppendExtension(ctx context.Context, entry collections.ExtensionEntry) error {
	return appendExtension(ctx, ts.tx, entry)
}

func (ts *txStore) ListExtensions(ctx context.Context, installmentID collections.InstallmentID) ([]collections.ExtensionEntry, error) {
	return nil, fmt.Errorf("ListExtensions not supported inside a transaction")
}

func (ts *txStore) AppendUnattributedCredit(ctx context.Context, credit collections.UnattributedCredit) error {
	return appendCredit(ctx, ts.tx, credit)
}

func (ts *txStore) ListUnattributedCredits(ctx context.Context, policyID collections.PolicyID) ([]collections.UnattributedCredit, error) {
	return nil, fmt.Errorf("ListUnattributedCredits not supported inside a transaction")
}

// =============================================================================
// HELPERS
// =============================================================================

func nullDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(dateLayout)
}

func parseNullDate(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t, err := time.Parse(dateLayout, s.String)
	if err != nil {
		return nil
	}
	return &t
}
