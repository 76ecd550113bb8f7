package pipeline

import "errors"

// BadRequestError reports a request the pipeline cannot act on.
type BadRequestError struct{ Msg string }

func (e *BadRequestError) Error() string { return e.Msg }

// IsBadRequest reports whether err is a BadRequestError.
func IsBadRequest(err error) bool {
	var t *BadRequestError
	return errors.As(err, &t)
}

// ErrNoImages is returned by Screen when neither image is supplied.
var ErrNoImages = &BadRequestError{Msg: "At least one image (lidah or kuku) must be provided"}

// ErrHistoryDisabled is returned by History when no store is configured.
var ErrHistoryDisabled = errors.New("history disabled")
