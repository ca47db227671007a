package client

import "errors"

var (
	ErrUnavailable     = errors.New("server unavailable")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrFileUnavailable = errors.New("file unavailable")
	ErrRejected        = errors.New("request rejected")
)
