package auth

import "errors"

// Ошибки одной категории намеренно неразличимы снаружи:
// «нет такого пользователя» и «не тот пароль» — один и тот же
// ErrInvalidCredentials, чтобы не давать oracle по email'ам.
var (
	ErrInvalidCredentials = errors.New("incorrect email or password")
	ErrEmailNotVerified   = errors.New("email not verified")
	ErrAccountDeactivated = errors.New("account deactivated")
	ErrInvalidCode        = errors.New("invalid or expired code")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrUserNotFound       = errors.New("user not found")
)
