package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-gl/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-gl/internal/accounting/locks"
	"github.com/odyssey-erp/odyssey-gl/internal/accounting/shared"
)

func (r *Tx) LockHorizon(ctx context.Context, companyID int64) (*time.Time, error) {
	var h *time.Time
	err := r.tx.QueryRow(ctx, `SELECT MAX(lock_date) FROM period_locks WHERE company_id=$1 AND active`, companyID).Scan(&h)
	if err != nil {
		return nil, err
	}
	if h != nil {
		d := shared.DateOf(*h)
		h = &d
	}
	return h, nil
}

func (r *Tx) InsertPeriodLock(ctx context.Context, lock locks.PeriodLock) (locks.PeriodLock, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO period_locks (company_id, lock_date, reason, active, created_by, created_at)
VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`, lock.CompanyID, lock.LockDate, lock.Reason, lock.Active, lock.CreatedBy, lock.CreatedAt).Scan(&lock.ID)
	if err != nil {
		return locks.PeriodLock{}, err
	}
	return lock, nil
}

func (r *Tx) DeactivatePeriodLock(ctx context.Context, companyID, lockID, actorID int64, at time.Time) error {
	tag, err := r.tx.Exec(ctx, `UPDATE period_locks SET active=FALSE, deleted_by=$3, deleted_at=$4
WHERE company_id=$1 AND id=$2 AND active`, companyID, lockID, actorID, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("period lock", lockID)
	}
	return nil
}

func (r *Tx) ActiveAccountCodes(ctx context.Context, companyID int64, codes []string) (map[string]bool, error) {
	rows, err := r.tx.Query(ctx, `SELECT code FROM accounts WHERE company_id=$1 AND is_active AND code = ANY($2)`, companyID, codes)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]bool, len(codes))
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		out[code] = true
	}
	return out, rows.Err()
}

func (r *Tx) FindActiveJournalBySource(ctx context.Context, companyID int64, sourceType string, sourceID uuid.UUID, refType string) (int64, bool, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `SELECT id FROM journal_entries
WHERE company_id=$1 AND source_type=$2 AND source_id=$3 AND ref_type=$4 AND NOT reversed`,
		companyID, sourceType, sourceID, refType).Scan(&id)
	if err != nil {
		if notFound(err) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return id, true, nil
}

// InsertJournalEntry maps a lost race on the active-source index to a
// DuplicatePostingError carrying the winner's id. The insert runs under a
// savepoint so the transaction stays usable after the violation.
func (r *Tx) InsertJournalEntry(ctx context.Context, e journals.JournalEntry) (journals.JournalEntry, error) {
	sp, err := r.tx.Begin(ctx)
	if err != nil {
		return journals.JournalEntry{}, err
	}
	err = sp.QueryRow(ctx, `INSERT INTO journal_entries
(company_id, entry_date, reference, description, module, ref_type, ref_id, source_type, source_id, created_by, created_at, reversal_of_id)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12) RETURNING id`,
		e.CompanyID, e.EntryDate, e.Reference, e.Description, e.Module, e.RefType, e.RefID,
		e.SourceType, e.SourceID, e.CreatedBy, e.CreatedAt, e.ReversalOfID).Scan(&e.ID)
	if err != nil {
		_ = sp.Rollback(ctx)
		if isUniqueViolation(err, "uq_journal_entries_active_source") {
			id, _, findErr := r.FindActiveJournalBySource(ctx, e.CompanyID, e.SourceType, e.SourceID, e.RefType)
			if findErr != nil {
				return journals.JournalEntry{}, findErr
			}
			return journals.JournalEntry{}, &shared.DuplicatePostingError{JournalID: id}
		}
		return journals.JournalEntry{}, err
	}
	if err := sp.Commit(ctx); err != nil {
		return journals.JournalEntry{}, err
	}
	e.Lines = nil
	return e, nil
}

func (r *Tx) InsertJournalLines(ctx context.Context, journalID int64, lines []journals.JournalLine) error {
	for _, l := range lines {
		if _, err := r.tx.Exec(ctx, `INSERT INTO journal_lines (journal_id, line_no, account_code, description, debit, credit)
VALUES ($1,$2,$3,$4,$5,$6)`, journalID, l.LineNo, l.AccountCode, l.Description, l.Debit, l.Credit); err != nil {
			return err
		}
	}
	return nil
}

func (r *Tx) GetJournalWithLines(ctx context.Context, companyID, journalID int64, lock bool) (journals.JournalEntry, error) {
	var e journals.JournalEntry
	err := r.tx.QueryRow(ctx, `SELECT id, company_id, entry_date, reference, description, module, ref_type, ref_id,
source_type, source_id, created_by, created_at, reversed, reversal_of_id
FROM journal_entries WHERE company_id=$1 AND id=$2`+forUpdate(lock), companyID, journalID).
		Scan(&e.ID, &e.CompanyID, &e.EntryDate, &e.Reference, &e.Description, &e.Module, &e.RefType, &e.RefID,
			&e.SourceType, &e.SourceID, &e.CreatedBy, &e.CreatedAt, &e.Reversed, &e.ReversalOfID)
	if err != nil {
		if notFound(err) {
			return journals.JournalEntry{}, shared.NotFound("journal entry", journalID)
		}
		return journals.JournalEntry{}, err
	}
	e.EntryDate = shared.DateOf(e.EntryDate)
	rows, err := r.tx.Query(ctx, `SELECT id, journal_id, line_no, account_code, description, debit, credit
FROM journal_lines WHERE journal_id=$1 ORDER BY line_no`, journalID)
	if err != nil {
		return journals.JournalEntry{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var l journals.JournalLine
		if err := rows.Scan(&l.ID, &l.JournalID, &l.LineNo, &l.AccountCode, &l.Description, &l.Debit, &l.Credit); err != nil {
			return journals.JournalEntry{}, err
		}
		e.Lines = append(e.Lines, l)
	}
	return e, rows.Err()
}

func (r *Tx) MarkJournalReversed(ctx context.Context, companyID, journalID int64) error {
	tag, err := r.tx.Exec(ctx, `UPDATE journal_entries SET reversed=TRUE WHERE company_id=$1 AND id=$2 AND NOT reversed`, companyID, journalID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &shared.AlreadyReversedError{JournalID: journalID}
	}
	return nil
}

func (r *Tx) ClearJournalReferences(ctx context.Context, companyID, journalID int64) error {
	statements := []string{
		`UPDATE bank_transactions SET matched=FALSE, journal_id=NULL, rule_id=NULL WHERE company_id=$1 AND journal_id=$2`,
		`UPDATE documents SET journal_id=NULL WHERE company_id=$1 AND journal_id=$2`,
		`UPDATE payments SET journal_id=NULL WHERE company_id=$1 AND journal_id=$2`,
		`UPDATE fixed_assets SET disposal_journal_id=NULL, disposed_on=NULL WHERE company_id=$1 AND disposal_journal_id=$2`,
	}
	for _, stmt := range statements {
		if _, err := r.tx.Exec(ctx, stmt, companyID, journalID); err != nil {
			return err
		}
	}
	return nil
}
