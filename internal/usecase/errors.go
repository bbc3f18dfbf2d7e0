package usecase

import "errors"

var (
	// ErrLoadHistory aborts a cycle when the rolling history cannot be read.
	ErrLoadHistory = errors.New("load history")
	// ErrPublishArchive aborts a cycle when the archival copy cannot be written.
	ErrPublishArchive = errors.New("publish archive")
)
