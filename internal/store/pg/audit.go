package pg

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/santhoshmp/LearningPlanner-sub010/internal/domain/repository"
)

type auditRepo struct {
	q querier
}

func (r *auditRepo) Append(ctx context.Context, ev repository.AuditEvent) error {
	id := ev.ID
	if id == "" {
		id = uuid.NewString()
	}
	ts := ev.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	details, err := json.Marshal(ev.Details)
	if err != nil {
		return err
	}

	_, err = r.q.Exec(ctx, `
		INSERT INTO security_audit_event (id, event_type, user_id, details, ip_address, user_agent, ts)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, ev.EventType, ev.UserID, details, ev.IPAddress, ev.UserAgent, ts,
	)
	return mapPgError(err)
}

func (r *auditRepo) Query(ctx context.Context, f repository.AuditFilter) ([]repository.AuditEvent, int, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}

	// filtros dinámicos
	where := `WHERE 1=1`
	args := []any{}
	n := 0
	add := func(cond string, v any) {
		n++
		args = append(args, v)
		where += ` AND ` + cond
	}
	if f.EventType != "" {
		add(`event_type = $`+strconv.Itoa(n+1), f.EventType)
	}
	if f.Provider != "" {
		add(`details->>'provider' = $`+strconv.Itoa(n+1), f.Provider)
	}
	if f.From != nil {
		add(`ts >= $`+strconv.Itoa(n+1), *f.From)
	}
	if f.To != nil {
		add(`ts <= $`+strconv.Itoa(n+1), *f.To)
	}

	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM security_audit_event `+where, args...).Scan(&total); err != nil {
		return nil, 0, mapPgError(err)
	}

	query := `SELECT id, event_type, user_id, details, ip_address, user_agent, ts
		FROM security_audit_event ` + where +
		` ORDER BY ts DESC LIMIT $` + strconv.Itoa(n+1) + ` OFFSET $` + strconv.Itoa(n+2)
	args = append(args, limit, f.Offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, mapPgError(err)
	}
	defer rows.Close()

	var out []repository.AuditEvent
	for rows.Next() {
		var ev repository.AuditEvent
		var details []byte
		if err := rows.Scan(&ev.ID, &ev.EventType, &ev.UserID, &details, &ev.IPAddress, &ev.UserAgent, &ev.Timestamp); err != nil {
			return nil, 0, err
		}
		if len(details) > 0 {
			_ = json.Unmarshal(details, &ev.Details)
		}
		out = append(out, ev)
	}
	return out, total, rows.Err()
}
