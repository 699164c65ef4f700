package errors

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalid           = errors.New("invalid")
	ErrIndexNotBuilt     = errors.New("index not built")
	ErrDimensionMismatch = errors.New("dimension mismatch")
	ErrDegenerateVector  = errors.New("degenerate vector")
	ErrCorruptIndex      = errors.New("corrupt index")
	ErrEmbedding         = errors.New("embedding failed")
	ErrGeneration        = errors.New("generation failed")
	ErrInternal          = errors.New("internal")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsIndexNotBuilt(err error) bool {
	return errors.Is(err, ErrIndexNotBuilt)
}
