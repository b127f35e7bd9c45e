package attendance

import (
	"context"

	domain "flock/internal/domain/attendance"
)

// Store persists attendance Records.
type Store interface {
	GetByMemberAndDate(ctx context.Context, memberID, date string) (domain.Record, error)
	ListByDate(ctx context.Context, date string) ([]domain.Record, error)
	ListByMemberID(ctx context.Context, memberID string) ([]domain.Record, error)
	ListByDateRange(ctx context.Context, startDate, endDate string) ([]domain.Record, error)
	Save(ctx context.Context, value domain.Record) error
	SaveIfUnrecorded(ctx context.Context, value domain.Record) (bool, error)
	DeleteByMemberID(ctx context.Context, memberID string) error
}
