package models

// RegisterRequest represents a registration request
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email,max=254" example:"user@example.com"`
	Password string `json:"password" binding:"required,min=8,max=72" example:"correct horse battery"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email,max=254" example:"user@example.com"`
	Password string `json:"password" binding:"required" example:"mypassword123"`
}

// TokenRefreshRequest represents a token refresh request
type TokenRefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// PasswordResetRequest represents a request to start a password reset
type PasswordResetRequest struct {
	Email string `json:"email" binding:"required,email,max=254"`
}

// CompleteResetRequest represents the request to complete a password reset
type CompleteResetRequest struct {
	Token           string `json:"token" binding:"required,nospaces"`
	Password        string `json:"password" binding:"required,min=8,max=72"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
}

// ChangePasswordRequest represents an authenticated password change
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8,max=72"`
}
