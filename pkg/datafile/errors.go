package datafile

import "errors"

// Predefined errors for the datafile package.
var (
	// ErrMalformedDatafile indicates the raw document is not valid datafile
	// JSON. The update must be discarded wholesale.
	ErrMalformedDatafile = errors.New("malformed datafile")

	// ErrUnsupportedVersion indicates a schema version this client does not
	// understand.
	ErrUnsupportedVersion = errors.New("unsupported datafile version")

	// ErrEmptyDatafile indicates an empty document was supplied.
	ErrEmptyDatafile = errors.New("empty datafile")
)
