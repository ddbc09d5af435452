package repository

import (
	"context"
	"fmt"

	"github.com/ayo6706/salon-ledger/internal/models"
)

func (q *Queries) InsertAuditLog(ctx context.Context, ev models.AuditEvent) error {
	query := `
		INSERT INTO audit_log (entity_type, entity_id, actor, action, prev_state, next_state, metadata, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7, NOW())
	`
	var metadata any
	if len(ev.Metadata) > 0 {
		metadata = ev.Metadata
	}
	if _, err := q.db.Exec(ctx, query, ev.EntityType, ev.EntityID, ev.Actor, ev.Action, ev.PrevState, ev.NextState, metadata); err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}
