package repository

import "errors"

// ErrDuplicateSlug slug 唯一约束冲突
var ErrDuplicateSlug = errors.New("duplicate story slug")
