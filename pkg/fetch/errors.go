package fetch

import "errors"

var (
	// ErrNotFound means Wikidata has no entity under the requested id.
	ErrNotFound = errors.New("entity not found")
	// ErrBadResponse means the endpoint answered with something that is not an entity document.
	ErrBadResponse = errors.New("unexpected response")
)
