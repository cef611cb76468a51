package message

import (
	"database/sql/driver"
	"errors"
)

type Status string

const (
	StatusQueued          Status = "queued"
	StatusProcessing      Status = "processing"
	StatusSucceeded       Status = "succeeded"
	StatusFailedTransient Status = "failed_transient"
	StatusDead            Status = "dead"
)

var ErrInvalidStatus = errors.New("invalid message status")

func (s Status) String() string {
	return string(s)
}

func (s Status) Value() (driver.Value, error) {
	return s.String(), nil
}

// Terminal reports whether the status is a final state.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusDead
}

func ParseStatus(s string) (Status, error) {
	switch s {
	case StatusQueued.String():
		return StatusQueued, nil
	case StatusProcessing.String():
		return StatusProcessing, nil
	case StatusSucceeded.String():
		return StatusSucceeded, nil
	case StatusFailedTransient.String():
		return StatusFailedTransient, nil
	case StatusDead.String():
		return StatusDead, nil
	default:
		return "", ErrInvalidStatus
	}
}
