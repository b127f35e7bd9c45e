package projections

import (
	"context"
	"strconv"

	"flock/internal/adapters/storage/member"
	"flock/internal/application/listutil"
)

// GetMemberListQuery carries the directory view parameters. Filter values use
// "" (or the "all" sentinel, stripped by listutil before it gets here) to mean
// no constraint on that dimension.
type GetMemberListQuery struct {
	Page             int
	PerPage          int
	Search           string
	AgeGroup         string
	Status           string
	Ministry         string
	Training         string
	MaritalStatus    string
	BirthMonth       string // "1".."12"
	WaterBaptized    string // "yes" or "no"
	DateAttendedFrom string // YYYY-MM
	DateAttendedTo   string // YYYY-MM
	Sort             string
	Dir              string
}

// MemberRow is one directory row, flattened for rendering.
type MemberRow struct {
	ID            string `json:"id"`
	FullName      string `json:"fullName"`
	AgeGroup      string `json:"ageGroup"`
	Gender        string `json:"gender"`
	ContactNumber string `json:"contactNumber"`
	Status        string `json:"status"`
	DateAttended  string `json:"dateAttended"`
	WaterBaptized bool   `json:"waterBaptized"`
}

// GetMemberListResult carries the rows plus pagination metadata.
type GetMemberListResult struct {
	Rows []MemberRow       `json:"rows"`
	Page listutil.PageInfo `json:"page"`
}

// GetMemberListDeps holds dependencies for GetMemberList.
type GetMemberListDeps struct {
	MemberStore MemberStore
}

// QueryGetMemberList retrieves one page of the member directory.
// PRE: Query filters are already sentinel-stripped
// POST: Rows hold the requested page; Page is clamped to the valid range, so
// a filter change that shrinks the result set still returns rows
func QueryGetMemberList(ctx context.Context, query GetMemberListQuery, deps GetMemberListDeps) (GetMemberListResult, error) {
	filter := member.ListFilter{
		Search:           query.Search,
		AgeGroup:         query.AgeGroup,
		Status:           query.Status,
		Ministry:         query.Ministry,
		Training:         query.Training,
		MaritalStatus:    query.MaritalStatus,
		WaterBaptized:    query.WaterBaptized,
		DateAttendedFrom: query.DateAttendedFrom,
		DateAttendedTo:   query.DateAttendedTo,
		Sort:             query.Sort,
		Dir:              query.Dir,
	}
	if month, err := strconv.Atoi(query.BirthMonth); err == nil && month >= 1 && month <= 12 {
		filter.BirthMonth = month
	}

	total, err := deps.MemberStore.Count(ctx, filter)
	if err != nil {
		return GetMemberListResult{}, err
	}

	perPage := query.PerPage
	if perPage < 1 {
		perPage = listutil.DefaultPerPage
	}
	pageInfo := listutil.NewPageInfo(query.Page, perPage, total)

	filter.Limit = pageInfo.PerPage
	filter.Offset = pageInfo.Offset()

	members, err := deps.MemberStore.List(ctx, filter)
	if err != nil {
		return GetMemberListResult{}, err
	}

	rows := make([]MemberRow, 0, len(members))
	for _, m := range members {
		rows = append(rows, MemberRow{
			ID:            m.ID,
			FullName:      m.FullName(),
			AgeGroup:      m.AgeGroup,
			Gender:        m.Gender,
			ContactNumber: m.ContactNumber,
			Status:        m.Status,
			DateAttended:  m.DateAttended,
			WaterBaptized: m.WaterBaptized,
		})
	}

	return GetMemberListResult{Rows: rows, Page: pageInfo}, nil
}
