package projections

import (
	"context"

	"flock/internal/adapters/storage/member"
	domainAttendance "flock/internal/domain/attendance"
	domainMember "flock/internal/domain/member"
	domainNotice "flock/internal/domain/notice"
)

// MemberStore interface for member queries.
type MemberStore interface {
	GetByID(ctx context.Context, id string) (domainMember.Member, error)
	List(ctx context.Context, filter member.ListFilter) ([]domainMember.Member, error)
	Count(ctx context.Context, filter member.ListFilter) (int, error)
}

// AttendanceStore interface for attendance queries.
type AttendanceStore interface {
	ListByMemberID(ctx context.Context, memberID string) ([]domainAttendance.Record, error)
	ListByDateRange(ctx context.Context, from, to string) ([]domainAttendance.Record, error)
}

// NoticeStore interface for notice board queries.
type NoticeStore interface {
	ListPublished(ctx context.Context, noticeType string) ([]domainNotice.Notice, error)
}
