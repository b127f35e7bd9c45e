package projections

import (
	"context"
	"sort"

	domainAttendance "flock/internal/domain/attendance"
)

// GetAttendanceReportQuery carries the reporting date range (inclusive,
// YYYY-MM-DD). An empty DateTo collapses to a single-day report.
type GetAttendanceReportQuery struct {
	DateFrom string
	DateTo   string
}

// AgeGroupBreakdown is the per-band slice of one day's attendance.
type AgeGroupBreakdown struct {
	AgeGroup string `json:"ageGroup"`
	Present  int    `json:"present"`
	Absent   int    `json:"absent"`
}

// DailyAttendance is one reporting row: a service date with its summary and
// age band breakdown.
type DailyAttendance struct {
	Date       string                   `json:"date"`
	Summary    domainAttendance.Summary `json:"summary"`
	ByAgeGroup []AgeGroupBreakdown      `json:"byAgeGroup"`
}

// GetAttendanceReportResult carries the per-day rows plus range totals.
type GetAttendanceReportResult struct {
	Days         []DailyAttendance `json:"days"`
	TotalPresent int               `json:"totalPresent"`
	TotalAbsent  int               `json:"totalAbsent"`
}

// GetAttendanceReportDeps holds dependencies for GetAttendanceReport.
type GetAttendanceReportDeps struct {
	AttendanceStore AttendanceStore
}

// QueryGetAttendanceReport aggregates attendance over a date range, grouped
// by day and age band. Unrecorded statuses are excluded from every count.
// PRE: DateFrom is a valid YYYY-MM-DD date
// POST: Days are sorted ascending; totals sum the per-day summaries
func QueryGetAttendanceReport(ctx context.Context, query GetAttendanceReportQuery, deps GetAttendanceReportDeps) (GetAttendanceReportResult, error) {
	dateTo := query.DateTo
	if dateTo == "" {
		dateTo = query.DateFrom
	}

	records, err := deps.AttendanceStore.ListByDateRange(ctx, query.DateFrom, dateTo)
	if err != nil {
		return GetAttendanceReportResult{}, err
	}

	type bandKey struct {
		date     string
		ageGroup string
	}
	byDay := make(map[string][]domainAttendance.Record)
	byBand := make(map[bandKey]*AgeGroupBreakdown)

	for _, r := range records {
		if r.Status == domainAttendance.StatusUnrecorded {
			continue
		}
		byDay[r.Date] = append(byDay[r.Date], r)

		key := bandKey{date: r.Date, ageGroup: r.AgeGroup}
		band, ok := byBand[key]
		if !ok {
			band = &AgeGroupBreakdown{AgeGroup: r.AgeGroup}
			byBand[key] = band
		}
		switch r.Status {
		case domainAttendance.StatusPresent:
			band.Present++
		case domainAttendance.StatusAbsent:
			band.Absent++
		}
	}

	dates := make([]string, 0, len(byDay))
	for d := range byDay {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	var result GetAttendanceReportResult
	for _, d := range dates {
		dayRecords := byDay[d]
		summary := domainAttendance.Recompute(dayRecords, len(dayRecords))

		var bands []AgeGroupBreakdown
		for key, band := range byBand {
			if key.date == d {
				bands = append(bands, *band)
			}
		}
		sort.Slice(bands, func(i, j int) bool { return bands[i].AgeGroup < bands[j].AgeGroup })

		result.Days = append(result.Days, DailyAttendance{Date: d, Summary: summary, ByAgeGroup: bands})
		result.TotalPresent += summary.PresentCount
		result.TotalAbsent += summary.AbsentCount
	}

	return result, nil
}
