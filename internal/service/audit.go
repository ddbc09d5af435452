package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ayo6706/salon-ledger/internal/models"
	"go.uber.org/zap"
)

// AuditService writes immutable audit trail entries.
type AuditService struct {
	store AuditStore
}

func NewAuditService(store AuditStore) *AuditService {
	return &AuditService{store: store}
}

// Write stores a single immutable audit record.
func (s *AuditService) Write(ctx context.Context, entityType, entityID, actor, action, prevState, nextState string, metadata map[string]any) error {
	var raw []byte
	if len(metadata) > 0 {
		encoded, err := json.Marshal(metadata)
		if err != nil {
			return fmt.Errorf("encode audit metadata: %w", err)
		}
		raw = encoded
	}

	if err := s.store.InsertAuditLog(ctx, models.AuditEvent{
		EntityType: entityType,
		EntityID:   entityID,
		Actor:      actor,
		Action:     action,
		PrevState:  prevState,
		NextState:  nextState,
		Metadata:   raw,
	}); err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

// Emit writes an audit record and logs instead of failing; the audit sink is
// never allowed to change the outcome of the operation it describes.
func (s *AuditService) Emit(ctx context.Context, entityType, entityID, actor, action, nextState string, metadata map[string]any) {
	if s == nil {
		return
	}
	if err := s.Write(ctx, entityType, entityID, actor, action, "", nextState, metadata); err != nil {
		zap.L().Warn("audit write failed",
			zap.String("entity_type", entityType),
			zap.String("entity_id", entityID),
			zap.String("action", action),
			zap.Error(err))
	}
}
