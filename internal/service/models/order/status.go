package order

import (
	"database/sql/driver"
	"errors"
	"strings"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
	StatusRefunded   Status = "refunded"
	StatusVerified   Status = "verified"
	StatusUnverified Status = "unverified"
)

var ErrInvalidStatus = errors.New("invalid order status")

func (s Status) String() string {
	return string(s)
}

func (s Status) Value() (driver.Value, error) {
	return s.String(), nil
}

func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(s) {
	case StatusPending.String():
		return StatusPending, nil
	case StatusProcessing.String():
		return StatusProcessing, nil
	case StatusShipped.String():
		return StatusShipped, nil
	case StatusDelivered.String():
		return StatusDelivered, nil
	case StatusCancelled.String():
		return StatusCancelled, nil
	case StatusRefunded.String():
		return StatusRefunded, nil
	case StatusVerified.String():
		return StatusVerified, nil
	case StatusUnverified.String():
		return StatusUnverified, nil
	default:
		return "", ErrInvalidStatus
	}
}
