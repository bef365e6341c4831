package asset

import "errors"

var (
	// ErrNotFound reports that a binary asset or folder does not exist.
	ErrNotFound = errors.New("asset not found")
	// ErrSerializationFailure reports that an asset's data could not be produced.
	ErrSerializationFailure = errors.New("unable to serialize asset")
	// ErrNoMatch reports that no export matched a type filter.
	ErrNoMatch = errors.New("no matching export")
	// ErrAmbiguousMatch reports that more than one export matched a type filter.
	ErrAmbiguousMatch = errors.New("multiple matching exports")
	// ErrInvalidComposition reports an unsupported operand to Folder.Join.
	ErrInvalidComposition = errors.New("invalid path composition")
)
