package storage

import (
	"context"

	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
)

// Store persists the audit rows written by agent sessions
type Store interface {
	SaveDispositionRecord(ctx context.Context, record types.DispositionRecord) error
	SaveShiftRecord(ctx context.Context, record types.ShiftRecord) error
	GetDispositionRecords(ctx context.Context, dateKey string) ([]types.DispositionRecord, error)
	GetAgentDispositions(ctx context.Context, agentID, date string) ([]types.DispositionRecord, error)
	GetAgentShifts(ctx context.Context, agentID string) ([]types.ShiftRecord, error)
	TruncateAll(ctx context.Context) error
}

// NoopStore is a no-op implementation when DynamoDB is disabled
type NoopStore struct{}

func NewNoopStore() *NoopStore { return &NoopStore{} }

func (s *NoopStore) SaveDispositionRecord(context.Context, types.DispositionRecord) error { return nil }
func (s *NoopStore) SaveShiftRecord(context.Context, types.ShiftRecord) error             { return nil }
func (s *NoopStore) GetDispositionRecords(context.Context, string) ([]types.DispositionRecord, error) {
	return nil, nil
}
func (s *NoopStore) GetAgentDispositions(context.Context, string, string) ([]types.DispositionRecord, error) {
	return nil, nil
}
func (s *NoopStore) GetAgentShifts(context.Context, string) ([]types.ShiftRecord, error) {
	return nil, nil
}
func (s *NoopStore) TruncateAll(context.Context) error { return nil }
