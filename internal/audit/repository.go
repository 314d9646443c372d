package audit

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGRepository reads audit_logs with pgx.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository returns a PGRepository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Timeline implements Repository.
func (r *PGRepository) Timeline(ctx context.Context, q TimelineQuery) ([]TimelineRow, error) {
	sql, args := timelineSQL(q)
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (TimelineRow, error) {
		var (
			out     TimelineRow
			eventID *string
			meta    []byte
		)
		if err := row.Scan(&eventID, &out.At, &out.ActorID, &out.Action, &out.Entity, &out.EntityID, &meta); err != nil {
			return TimelineRow{}, err
		}
		if eventID != nil {
			out.EventID = *eventID
		}
		if len(meta) > 0 && string(meta) != "null" {
			if err := json.Unmarshal(meta, &out.Meta); err != nil {
				return TimelineRow{}, err
			}
		}
		return out, nil
	})
}

func timelineSQL(q TimelineQuery) (string, []any) {
	var b strings.Builder
	args := []any{q.CompanyID}
	b.WriteString(`SELECT event_id, occurred_at, actor_id, action, entity, entity_id, meta FROM audit_logs WHERE company_id=$1`)
	add := func(clause string, v any) {
		args = append(args, v)
		b.WriteString(" AND ")
		b.WriteString(strings.Replace(clause, "?", "$"+strconv.Itoa(len(args)), 1))
	}
	if !q.From.IsZero() {
		add("occurred_at >= ?", q.From)
	}
	if !q.To.IsZero() {
		add("occurred_at < ?", q.To)
	}
	if q.ActorID > 0 {
		add("actor_id = ?", q.ActorID)
	}
	if q.Entity != "" {
		add("entity = ?", q.Entity)
	}
	if q.EntityID != "" {
		add("entity_id = ?", q.EntityID)
	}
	if q.Action != "" {
		add("action = ?", q.Action)
	}
	b.WriteString(" ORDER BY occurred_at DESC, id DESC")
	if q.Limit > 0 {
		args = append(args, q.Limit)
		b.WriteString(" LIMIT $" + strconv.Itoa(len(args)))
	}
	if q.Offset > 0 {
		args = append(args, q.Offset)
		b.WriteString(" OFFSET $" + strconv.Itoa(len(args)))
	}
	return b.String(), args
}
