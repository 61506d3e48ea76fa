package models

// UserRequest carries create and update input. Active is a pointer so an
// update can tell "not given" from false.
type UserRequest struct {
	UserID      string   `json:"userId"`
	Email       string   `json:"email"`
	Username    string   `json:"username"`
	Password    string   `json:"password"`
	Role        Role     `json:"role"`
	Active      *bool    `json:"active,omitempty"`
	Preferences []string `json:"preferences"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ResetPasswordRequest struct {
	Password string `json:"password"`
}

type PreferencesRequest struct {
	Preferences []string `json:"preferences"`
}
