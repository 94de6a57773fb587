package service

import "github.com/gradewise/gradewise/internal/domain"

// Canned data served in demo mode so the dashboard works without provider
// credentials.

// DemoProfile is the identity bound to demo sessions.
func DemoProfile(userID string) domain.Profile {
	return domain.Profile{
		UserID:      userID,
		DisplayName: "Demo Parent",
		Email:       "demo@gradewise.example",
	}
}

// DemoOverview is the fixture dashboard payload.
func DemoOverview() *Overview {
	return &Overview{
		Sections: []domain.Section{
			{ID: "demo-s1", Title: "Algebra I", SectionName: "Period 2", TeacherName: "Ms. Rivera"},
			{ID: "demo-s2", Title: "Biology", SectionName: "Period 4", TeacherName: "Mr. Okafor"},
		},
		Grades: []domain.Grade{
			{SectionID: "demo-s1", AssignmentID: "demo-a1", Grade: 88, MaxPoints: 100},
			{SectionID: "demo-s2", AssignmentID: "demo-a2", Grade: 19, MaxPoints: 20, Comment: "Nice lab writeup"},
		},
		Announcements: []domain.Announcement{
			{ID: "demo-n1", Title: "Welcome to GradeWise", Body: "This is demo data; connect Schoology to see live grades."},
		},
	}
}
