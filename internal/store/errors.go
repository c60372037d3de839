package store

import "errors"

// ErrNotFound is returned by LoadOrder when no order matches the given id.
var ErrNotFound = errors.New("order not found")

// ErrDuplicateID is returned by InsertOrder when the id already exists.
var ErrDuplicateID = errors.New("duplicate order id")
