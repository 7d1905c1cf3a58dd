package club_test

import (
	"testing"

	"clubhouse/internal/domain/club"
)

// TestClub_Validate tests validation of Club.
func TestClub_Validate(t *testing.T) {
	tests := []struct {
		name    string
		club    club.Club
		wantErr bool
	}{
		{"valid", club.Club{Name: "Riverside Athletics", SportType: "track"}, false},
		{"empty name", club.Club{SportType: "track"}, true},
		{"empty sport", club.Club{Name: "Riverside"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.club.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAcceptsApplications(t *testing.T) {
	if club.AcceptsApplications(0) {
		t.Error("club without coaches accepted applications")
	}
	if !club.AcceptsApplications(1) {
		t.Error("club with a coach rejected applications")
	}
}
