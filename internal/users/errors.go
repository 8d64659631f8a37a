package users

import "errors"

var (
	ErrMissingEmail     = errors.New("email is required")
	ErrMissingFirstName = errors.New("first name is required")
	ErrMissingLastName  = errors.New("last name is required")
	ErrInvalidRole      = errors.New("invalid role")
	ErrUserNotFound     = errors.New("user not found")
)
