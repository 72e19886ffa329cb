package auth

import "github.com/odyssey-erp/useradmin/internal/users"

// RegisterInput is the body of POST /auth/register.
type RegisterInput struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,basic_email"`
	Password string `json:"password" validate:"required,min=6"`
}

// LoginInput is the body of POST /auth/login.
type LoginInput struct {
	Email    string `json:"email" validate:"required,basic_email"`
	Password string `json:"password" validate:"required"`
}

// RegisterResult is returned on successful registration.
type RegisterResult struct {
	User  *users.User `json:"user"`
	Token string      `json:"token"`
}

// LoginResult is returned on successful login.
type LoginResult struct {
	Token string `json:"token"`
}
