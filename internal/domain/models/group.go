package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DayNames lists valid meeting days in display order.
var DayNames = []string{
	"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday",
}

// MeetingTime is one recurring weekly meeting slot.
type MeetingTime struct {
	DayOfWeek string `bson:"day_of_week" json:"dayOfWeek"`
	Hour      int    `bson:"hour" json:"hour"`     // 0-23
	Minute    int    `bson:"minute" json:"minute"` // 0, 15, 30, 45
}

// Valid reports whether the meeting time has a known day, an hour in 0-23
// and a minute on a quarter-hour boundary.
func (m MeetingTime) Valid() bool {
	day := false
	for _, d := range DayNames {
		if m.DayOfWeek == d {
			day = true
			break
		}
	}
	if !day {
		return false
	}
	if m.Hour < 0 || m.Hour > 23 {
		return false
	}
	switch m.Minute {
	case 0, 15, 30, 45:
		return true
	}
	return false
}

// Format renders the meeting time for display, e.g. "Monday at 7:00 PM".
func (m MeetingTime) Format() string {
	hour12 := m.Hour % 12
	if hour12 == 0 {
		hour12 = 12
	}
	period := "AM"
	if m.Hour >= 12 {
		period = "PM"
	}
	return fmt.Sprintf("%s at %d:%02d %s", m.DayOfWeek, hour12, m.Minute, period)
}

// Leader is an embedded leader snapshot on a group: the user's ID plus the
// display name at assignment time (refreshed from public_profiles on read).
type Leader struct {
	UserID primitive.ObjectID `bson:"user_id" json:"userId"`
	Name   string             `bson:"name" json:"name"`
}

// Member is one membership entry: who joined and when. The members array is
// a set keyed by user_id; the store's join/leave operations keep it that way.
type Member struct {
	UserID   primitive.ObjectID `bson:"user_id" json:"userId"`
	JoinedAt time.Time          `bson:"joined_at" json:"joinedAt"`
}

// BibleStudyGroup is the central aggregate (bible_study_groups collection).
//
// Invariants:
//   - meeting_times is non-empty (enforced at create/update).
//   - members contains each user_id at most once.
type BibleStudyGroup struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Description  string             `bson:"description" json:"description"`
	Location     string             `bson:"location" json:"location"`
	Leaders      []Leader           `bson:"leaders" json:"leaders"`
	MeetingTimes []MeetingTime      `bson:"meeting_times" json:"meetingTimes"`
	Members      []Member           `bson:"members" json:"members"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// HasMember reports whether uid is present in the members list.
func (g BibleStudyGroup) HasMember(uid primitive.ObjectID) bool {
	for _, m := range g.Members {
		if m.UserID == uid {
			return true
		}
	}
	return false
}
