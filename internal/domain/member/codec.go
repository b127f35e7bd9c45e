package member

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// The persistence layer stores composite member data as delimited text. These
// boundary functions convert between the flat stored strings and the
// structured shapes the edit forms work with. Decoding is lossy-tolerant:
// malformed segments are dropped (and logged) rather than failing the whole
// record, so one bad sub-field never blocks loading a member.

// HouseholdMember is the structured edit-form shape of one household entry.
type HouseholdMember struct {
	ID           string // opaque, generated at decode time; not persisted
	Name         string
	Relationship string
	DateOfBirth  string // YYYY-MM-DD
}

// TrainingRecord is the structured edit-form shape of one completed training.
// Year is empty for year-less trainings; they are valid and must round-trip
// without a year suffix.
type TrainingRecord struct {
	Name string
	Year string
}

var (
	ministryDelimiter = regexp.MustCompile(`\s*(?:,|-)\s*`)
	householdPattern  = regexp.MustCompile(`^(.*?)\s*-\s*(.*?)\s*\((\d{4}-\d{2}-\d{2})\)$`)
	trainingPattern   = regexp.MustCompile(`^(.*?)\s*\((\d{4})\)$`)
)

// DecodeMinistries splits a stored ministry string into its set of names.
// Both "A, B" and "A - B" style separators are accepted.
// PRE: raw is the stored delimited string (may be empty)
// POST: Returns trimmed non-empty tokens; empty input yields an empty slice
func DecodeMinistries(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return []string{}
	}
	parts := ministryDelimiter.Split(raw, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// EncodeMinistries joins a ministry set back into the stored string form.
// POST: Returns "" for an empty set
func EncodeMinistries(ministries []string) string {
	out := make([]string, 0, len(ministries))
	for _, m := range ministries {
		m = strings.TrimSpace(m)
		if m != "" {
			out = append(out, m)
		}
	}
	return strings.Join(out, ", ")
}

// DecodeHouseholds parses a semicolon-separated household string into
// structured entries. Each segment must match "NAME - RELATIONSHIP
// (YYYY-MM-DD)"; segments that do not are dropped and logged.
// PRE: raw is the stored delimited string (may be empty)
// POST: Each returned entry carries a freshly generated opaque ID
func DecodeHouseholds(raw string) []HouseholdMember {
	if strings.TrimSpace(raw) == "" {
		return []HouseholdMember{}
	}
	segments := strings.Split(raw, ";")
	out := make([]HouseholdMember, 0, len(segments))
	for _, seg := range segments {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		match := householdPattern.FindStringSubmatch(seg)
		if match == nil {
			slog.Warn("household_segment_dropped", "segment", seg)
			continue
		}
		out = append(out, HouseholdMember{
			ID:           uuid.New().String(),
			Name:         match[1],
			Relationship: match[2],
			DateOfBirth:  match[3],
		})
	}
	return out
}

// EncodeHouseholds renders household entries back into the stored string form.
// Entries missing any of name, relationship, or date of birth are skipped.
// POST: Returns "" when no entry survives; the storage layer persists that as
// NULL to keep "no data" distinct from an explicitly cleared field
func EncodeHouseholds(households []HouseholdMember) string {
	out := make([]string, 0, len(households))
	for _, h := range households {
		if h.Name == "" || h.Relationship == "" || h.DateOfBirth == "" {
			continue
		}
		out = append(out, fmt.Sprintf("%s - %s (%s)", h.Name, h.Relationship, h.DateOfBirth))
	}
	return strings.Join(out, "; ")
}

// DecodeTrainings parses a comma-separated training string into a name→year
// map. Tokens matching "NAME (YYYY)" record the year; any other non-empty
// token is treated as a bare training name with no year.
// PRE: raw is the stored delimited string (may be empty)
// POST: Map keys are training names; a value of "" means completed without a year
func DecodeTrainings(raw string) map[string]string {
	out := map[string]string{}
	if strings.TrimSpace(raw) == "" {
		return out
	}
	for _, token := range strings.Split(raw, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		if match := trainingPattern.FindStringSubmatch(token); match != nil {
			out[match[1]] = match[2]
		} else {
			out[token] = ""
		}
	}
	return out
}

// EncodeTrainings renders a training map back into the stored string form.
// Names are emitted in sorted order so output is deterministic.
// POST: Year-less trainings render as the bare name, no "()" suffix
func EncodeTrainings(trainings map[string]string) string {
	names := make([]string, 0, len(trainings))
	for name := range trainings {
		if strings.TrimSpace(name) != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	out := make([]string, 0, len(names))
	for _, name := range names {
		if year := trainings[name]; year != "" {
			out = append(out, fmt.Sprintf("%s (%s)", name, year))
		} else {
			out = append(out, name)
		}
	}
	return strings.Join(out, ", ")
}
