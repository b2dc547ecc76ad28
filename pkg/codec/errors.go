package codec

// Errors
var (
	ErrTruncatedBuffer     = &CodecError{"truncated buffer"}
	ErrMalformedListLength = &CodecError{"malformed list length"}
	ErrTrailingBytes       = &CodecError{"trailing bytes"}
	ErrSizeLimit           = &CodecError{"size limit exceeded"}
)

// CodecError represents an encoding or decoding error
type CodecError struct {
	Message string
}

func (e *CodecError) Error() string {
	return e.Message
}
