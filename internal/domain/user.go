package domain

// Profile is the identity the LMS provider reports for an authorized user.
type Profile struct {
	UserID      string `json:"uid"`
	DisplayName string `json:"name_display"`
	Email       string `json:"primary_email"`
	PictureURL  string `json:"picture_url"`
	Admin       bool   `json:"admin"`
}
