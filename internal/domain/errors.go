package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidOperationKey = errors.New("invalid operation key")
	ErrInvalidThreadTitle  = errors.New("invalid thread title")
	ErrMalformedBatch      = errors.New("malformed batch")
	ErrMalformedDictionary = errors.New("malformed rename dictionary")
)

var ErrInvalidDateRange = errors.New("invalid date range")
