package errcode

const (
	ErrUnknown = 10000000 + iota
	ErrInvalid
	ErrNotFound
	ErrInternal
	ErrIndexNotBuilt
	ErrCorruptIndex
	ErrEmbeddingFailed
	ErrGenerationFailed
	ErrAIUnavailable
	ErrTooMany
)
