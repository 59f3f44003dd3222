package dto

// RegisterRequestDTO is used for incoming registration requests
type RegisterRequestDTO struct {
	Username string `json:"username" validate:"required,min=3,max=50,alphanum"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// LoginRequestDTO accepts a username or an email as identity
type LoginRequestDTO struct {
	Identity string `json:"identity" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// TokenResponseDTO is returned on successful login or refresh
type TokenResponseDTO struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// RefreshRequestDTO is used for incoming token refresh requests
type RefreshRequestDTO struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// VerifyEmailRequestDTO carries an email verification token
type VerifyEmailRequestDTO struct {
	Token string `json:"token" validate:"required"`
}

// ForgotPasswordRequestDTO is used for incoming password reset requests
type ForgotPasswordRequestDTO struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequestDTO completes a password reset
type ResetPasswordRequestDTO struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=128"`
}

// MessageResponseDTO is a generic acknowledgement body
type MessageResponseDTO struct {
	Message string `json:"message"`
}
