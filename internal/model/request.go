package model

type RegisterRequest struct {
	Email       string       `json:"email"`
	Username    string       `json:"username"`
	Password    string       `json:"password"`
	Preferences *Preferences `json:"preferences,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type UpdateProfileRequest struct {
	Username    *string      `json:"username,omitempty"`
	Preferences *Preferences `json:"preferences,omitempty"`
}
