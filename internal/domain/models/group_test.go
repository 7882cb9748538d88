package models

import "testing"

func TestMeetingTimeFormat(t *testing.T) {
	cases := []struct {
		mt   MeetingTime
		want string
	}{
		{MeetingTime{DayOfWeek: "Monday", Hour: 19, Minute: 0}, "Monday at 7:00 PM"},
		{MeetingTime{DayOfWeek: "Sunday", Hour: 0, Minute: 15}, "Sunday at 12:15 AM"},
		{MeetingTime{DayOfWeek: "Friday", Hour: 12, Minute: 30}, "Friday at 12:30 PM"},
		{MeetingTime{DayOfWeek: "Tuesday", Hour: 9, Minute: 45}, "Tuesday at 9:45 AM"},
		{MeetingTime{DayOfWeek: "Saturday", Hour: 23, Minute: 0}, "Saturday at 11:00 PM"},
	}
	for _, c := range cases {
		if got := c.mt.Format(); got != c.want {
			t.Errorf("Format(%+v) = %q, want %q", c.mt, got, c.want)
		}
	}
}

func TestMeetingTimeValid(t *testing.T) {
	valid := []MeetingTime{
		{DayOfWeek: "Monday", Hour: 0, Minute: 0},
		{DayOfWeek: "Sunday", Hour: 23, Minute: 45},
		{DayOfWeek: "Wednesday", Hour: 12, Minute: 15},
	}
	for _, mt := range valid {
		if !mt.Valid() {
			t.Errorf("expected %+v to be valid", mt)
		}
	}

	invalid := []MeetingTime{
		{DayOfWeek: "Funday", Hour: 12, Minute: 0},
		{DayOfWeek: "monday", Hour: 12, Minute: 0}, // case-sensitive day names
		{DayOfWeek: "Monday", Hour: 24, Minute: 0},
		{DayOfWeek: "Monday", Hour: -1, Minute: 0},
		{DayOfWeek: "Monday", Hour: 12, Minute: 10},
	}
	for _, mt := range invalid {
		if mt.Valid() {
			t.Errorf("expected %+v to be invalid", mt)
		}
	}
}

func TestValidRole(t *testing.T) {
	for _, role := range []string{"admin", "leader", "user"} {
		if !ValidRole(role) {
			t.Errorf("expected %q to be a valid role", role)
		}
	}
	for _, role := range []string{"", "Admin", "superadmin", "member"} {
		if ValidRole(role) {
			t.Errorf("expected %q to be rejected", role)
		}
	}
}
