package usecase

import "errors"

var (
	ErrUnsupportedFormat     = errors.New("unsupported file type")
	ErrUnreadableDocument    = errors.New("unreadable document")
	ErrEmptyText             = errors.New("document has no text")
	ErrNoSkillsFound         = errors.New("no recognizable skills")
	ErrInvalidInput          = errors.New("invalid input")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrAdminDisabled         = errors.New("admin login disabled")
	ErrPendingUpdateNotFound = errors.New("pending update not found")
	ErrRunInProgress         = errors.New("evolution run in progress")
	ErrUpstream              = errors.New("upstream unavailable")
	ErrInternal              = errors.New("internal error")
)
