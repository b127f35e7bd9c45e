package member

import (
	"context"

	domain "flock/internal/domain/member"
)

// Store persists Member state.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Member, error)
	Save(ctx context.Context, value domain.Member) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter ListFilter) ([]domain.Member, error)
	Count(ctx context.Context, filter ListFilter) (int, error)
	ListActive(ctx context.Context) ([]domain.Member, error)
	SearchByName(ctx context.Context, query string, limit int) ([]domain.Member, error)
}

// ListFilter carries filtering parameters for List/Count operations.
// Empty string and zero values mean "no filter" for their dimension.
type ListFilter struct {
	Limit            int
	Offset           int
	Search           string // matches first or last name
	AgeGroup         string
	Status           string // Active, Inactive
	Ministry         string // substring match against the encoded ministry list
	Training         string // substring match against the encoded training list
	MaritalStatus    string
	BirthMonth       int    // 1-12
	WaterBaptized    string // "yes" or "no"
	DateAttendedFrom string // YYYY-MM inclusive
	DateAttendedTo   string // YYYY-MM inclusive
	Sort             string
	Dir              string
}
