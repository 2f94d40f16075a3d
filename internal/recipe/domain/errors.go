package domain

import "errors"

var (
	ErrNotFound     = errors.New("not_found")
	ErrInvalidID    = errors.New("invalid_recipe_id")
	ErrInvalidUser  = errors.New("invalid_user")
	ErrInvalidTitle = errors.New("invalid_title")
)
