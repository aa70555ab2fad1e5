package domain

// ============================================================
// Authentication
// ============================================================

// User is the serialized user object kept next to the auth token.
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name,omitempty"`
}

// LoginRequest is the body of POST /login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest is the body of POST /register.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	FullName string `json:"full_name" validate:"required"`
}

// AuthResult is a normalized login/register/refresh response.
// User is nil for refresh responses that only carry a token.
type AuthResult struct {
	Token string
	User  *User
}

// SessionInfo describes a session to the presentation layer.
type SessionInfo struct {
	ID    string `json:"session_id"`
	State string `json:"state"`
	User  *User  `json:"user,omitempty"`
}
