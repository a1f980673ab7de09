package errors

import "fmt"

var (
	ErrUserNotFound        = fmt.Errorf("user not found")
	ErrUserAlreadyExists   = fmt.Errorf("login or username is already taken")
	ErrInvalidCredentials  = fmt.Errorf("invalid login or password")
	ErrInvalidRegistration = fmt.Errorf("invalid registration details")
	ErrInvalidIdentifier   = fmt.Errorf("login and username may only contain letters, digits and underscores")
	ErrFrameTooLarge       = fmt.Errorf("frame exceeds maximum size")
	ErrWorkerPanic         = fmt.Errorf("worker panic")
)
