package ideadletterrepo

import "errors"

var ErrNotFound = errors.New("dead letter entry not found")
