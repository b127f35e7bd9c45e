package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// UpdateMemberInput carries the member being edited and the full replacement
// form. Updates are whole-record: every field comes from the form, so the
// last submitted edit session wins.
type UpdateMemberInput struct {
	MemberID string
	Form     MemberFormInput
}

// UpdateMemberDeps holds dependencies for UpdateMember.
type UpdateMemberDeps struct {
	MemberStore MemberStore
	Now         func() time.Time
}

// ExecuteUpdateMember replaces a member record with the submitted form.
// PRE: MemberID refers to an existing member
// POST: All fields replaced; AgeGroup recomputed from the new birthdate and
// marital status
func ExecuteUpdateMember(ctx context.Context, input UpdateMemberInput, deps UpdateMemberDeps) error {
	if input.MemberID == "" {
		return errors.New("member ID is required")
	}

	if _, err := deps.MemberStore.GetByID(ctx, input.MemberID); err != nil {
		return err
	}

	m := memberFromForm(input.Form)
	m.ID = input.MemberID
	m.RecomputeAgeGroup(deps.Now())

	if err := m.Validate(); err != nil {
		return err
	}

	if err := deps.MemberStore.Save(ctx, m); err != nil {
		return err
	}

	slog.Info("member_event", "event", "member_updated", "member_id", m.ID, "age_group", m.AgeGroup)
	return nil
}

// DeleteMemberDeps holds dependencies for DeleteMember.
type DeleteMemberDeps struct {
	MemberStore MemberStore
}

// ExecuteDeleteMember removes a member. The store cascades the delete to the
// member's attendance history.
// PRE: MemberID refers to an existing member
// POST: Member and their attendance rows are gone
func ExecuteDeleteMember(ctx context.Context, memberID string, deps DeleteMemberDeps) error {
	if memberID == "" {
		return errors.New("member ID is required")
	}

	if _, err := deps.MemberStore.GetByID(ctx, memberID); err != nil {
		return err
	}

	if err := deps.MemberStore.Delete(ctx, memberID); err != nil {
		return err
	}

	slog.Info("member_event", "event", "member_deleted", "member_id", memberID)
	return nil
}
