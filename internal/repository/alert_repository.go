// Package repository persists an append-only audit trail of every
// alert the engine raises, grounded on wisefido-alarm's
// AlarmEventsRepository filter/pagination pattern, stripped of its
// multi-tenant and device-hierarchy joins since the engine has neither.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

type AlertRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewAlertRepository(db *sql.DB, logger *zap.Logger) *AlertRepository {
	return &AlertRepository{db: db, logger: logger}
}

func (r *AlertRepository) InsertAlertRecord(ctx context.Context, rec AlertRecord) error {
	const query = `
		INSERT INTO alert_records (id, slot_id, kind, message, triggered_at, acknowledged, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.SlotID, rec.Kind, rec.Message, rec.TriggeredAt, rec.Acknowledged, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert alert record: %w", err)
	}
	return nil
}

func (r *AlertRepository) buildWhereClause(filters AlertRecordFilters, args *[]interface{}, argN *int) []string {
	where := []string{}

	if filters.SlotID != nil {
		where = append(where, fmt.Sprintf("slot_id = $%d", *argN))
		*args = append(*args, *filters.SlotID)
		*argN++
	}
	if filters.Kind != nil {
		where = append(where, fmt.Sprintf("kind = $%d", *argN))
		*args = append(*args, *filters.Kind)
		*argN++
	}
	if filters.StartTime != nil {
		where = append(where, fmt.Sprintf("triggered_at >= $%d", *argN))
		*args = append(*args, *filters.StartTime)
		*argN++
	}
	if filters.EndTime != nil {
		where = append(where, fmt.Sprintf("triggered_at <= $%d", *argN))
		*args = append(*args, *filters.EndTime)
		*argN++
	}

	return where
}

// ListAlertRecords supports the operational audit queries; the engine
// itself never consults this table, it only writes to it.
func (r *AlertRepository) ListAlertRecords(ctx context.Context, filters AlertRecordFilters, page, size int) ([]AlertRecord, int, error) {
	args := []interface{}{}
	argN := 1
	where := r.buildWhereClause(filters, &args, &argN)

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM alert_records %s`, whereClause)
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count alert records: %w", err)
	}

	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`
		SELECT id, slot_id, kind, message, triggered_at, acknowledged, created_at
		FROM alert_records
		%s
		ORDER BY triggered_at DESC
		LIMIT $%d OFFSET $%d
	`, whereClause, len(args)+1, len(args)+2)
	args = append(args, size, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query alert records: %w", err)
	}
	defer rows.Close()

	records := []AlertRecord{}
	for rows.Next() {
		var rec AlertRecord
		if err := rows.Scan(&rec.ID, &rec.SlotID, &rec.Kind, &rec.Message, &rec.TriggeredAt, &rec.Acknowledged, &rec.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan alert record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate alert records: %w", err)
	}

	return records, total, nil
}
