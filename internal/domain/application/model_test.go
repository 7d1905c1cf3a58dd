package application_test

import (
	"errors"
	"testing"

	"clubhouse/internal/domain/account"
	"clubhouse/internal/domain/application"
	"clubhouse/internal/domain/failure"
)

// TestTransition walks the review table.
func TestTransition(t *testing.T) {
	tests := []struct {
		name     string
		current  string
		action   string
		reason   string
		want     string
		wantKind error
	}{
		{"approve pending", application.StatusPending, application.ActionApprove, "", application.StatusApproved, nil},
		{"reject pending with reason", application.StatusPending, application.ActionReject, "incomplete", application.StatusRejected, nil},
		{"reject pending without reason", application.StatusPending, application.ActionReject, "  ", "", failure.ErrValidation},
		{"request info on pending", application.StatusPending, application.ActionRequestInfo, "", application.StatusInfoRequested, nil},
		{"approve info requested", application.StatusInfoRequested, application.ActionApprove, "", application.StatusApproved, nil},
		{"reject info requested", application.StatusInfoRequested, application.ActionReject, "no reply", application.StatusRejected, nil},
		{"request info twice", application.StatusInfoRequested, application.ActionRequestInfo, "", "", failure.ErrAlreadyProcessed},
		{"approve approved", application.StatusApproved, application.ActionApprove, "", "", failure.ErrAlreadyProcessed},
		{"reject rejected", application.StatusRejected, application.ActionReject, "again", "", failure.ErrAlreadyProcessed},
		{"terminal wins over missing reason", application.StatusApproved, application.ActionReject, "", "", failure.ErrAlreadyProcessed},
		{"unknown action", application.StatusPending, "escalate", "", "", failure.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := application.Transition(tt.current, tt.action, tt.reason)
			if tt.wantKind != nil {
				if !errors.Is(err, tt.wantKind) {
					t.Fatalf("Transition() error = %v, want kind %v", err, tt.wantKind)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Transition() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestTransition_RejectNamesReason checks the validation error carries the field.
func TestTransition_RejectNamesReason(t *testing.T) {
	_, err := application.Transition(application.StatusPending, application.ActionReject, "")
	if failure.FieldOf(err) != "reason" {
		t.Errorf("FieldOf = %q, want reason", failure.FieldOf(err))
	}
}

// TestMembershipStatusFor maps every status.
func TestMembershipStatusFor(t *testing.T) {
	cases := map[string]string{
		application.StatusPending:       account.MembershipPending,
		application.StatusInfoRequested: account.MembershipPending,
		application.StatusApproved:      account.MembershipActive,
		application.StatusRejected:      account.MembershipRejected,
		"":                              account.MembershipNone,
	}
	for status, want := range cases {
		if got := application.MembershipStatusFor(status); got != want {
			t.Errorf("MembershipStatusFor(%q) = %q, want %q", status, got, want)
		}
	}
}

func TestApplication_Validate(t *testing.T) {
	a := application.Application{UserID: "u1", ClubID: "c1", Status: application.StatusPending}
	if err := a.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a.Status = "archived"
	if err := a.Validate(); !errors.Is(err, failure.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}
