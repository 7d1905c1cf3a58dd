package athlete_test

import (
	"testing"

	"clubhouse/internal/domain/athlete"
)

// TestSplitFullName covers the first-whitespace split rule.
func TestSplitFullName(t *testing.T) {
	tests := []struct {
		name      string
		fullName  string
		wantFirst string
		wantLast  string
	}{
		{"two tokens", "Somchai Jaidee", "Somchai", "Jaidee"},
		{"three tokens keep remainder", "Anna Maria Lopez", "Anna", "Maria Lopez"},
		{"single token becomes last name", "Madonna", "", "Madonna"},
		{"surrounding whitespace ignored", "  Lee   Chong Wei ", "Lee", "Chong Wei"},
		{"tab separator", "Ana\tSilva", "Ana", "Silva"},
		{"empty", "", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, last := athlete.SplitFullName(tt.fullName)
			if first != tt.wantFirst || last != tt.wantLast {
				t.Errorf("SplitFullName(%q) = (%q, %q), want (%q, %q)", tt.fullName, first, last, tt.wantFirst, tt.wantLast)
			}
		})
	}
}

// TestAthlete_Validate requires the owning user and club.
func TestAthlete_Validate(t *testing.T) {
	a := athlete.Athlete{UserID: "u1"}
	if err := a.Validate(); err != athlete.ErrEmptyClubID {
		t.Errorf("expected ErrEmptyClubID, got %v", err)
	}
	a.ClubID = "c1"
	if err := a.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
