package domain

import (
	"errors"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrNoTags        = errors.New("no tags")
	ErrTagTooLong    = errors.New("tag name is too long")
)
