package store

import "errors"

var (
	ErrNotFound          = errors.New("diary record not found")
	ErrDuplicateFavorite = errors.New("favorite already saved")
)
