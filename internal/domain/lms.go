package domain

// Section is a course section the user is enrolled in.
type Section struct {
	ID          string `json:"id"`
	Title       string `json:"course_title"`
	SectionName string `json:"section_title"`
	TeacherName string `json:"teacher_name,omitempty"`
}

// Grade is one graded item within a section.
type Grade struct {
	SectionID    string  `json:"section_id"`
	AssignmentID string  `json:"assignment_id"`
	Grade        float64 `json:"grade"`
	MaxPoints    float64 `json:"max_points"`
	Comment      string  `json:"comment,omitempty"`
}

// Announcement is a school or section-level update shown on the dashboard.
type Announcement struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Body  string `json:"body"`
}
