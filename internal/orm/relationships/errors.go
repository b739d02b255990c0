package relationships

import "errors"

var (
	// ErrNotAssociation is returned when a relationship has no join table
	ErrNotAssociation = errors.New("relationship is not a many-to-many association")

	// ErrNilID is returned when an association is asked about a nil id
	ErrNilID = errors.New("ID cannot be nil")
)
