package restclient

import (
	"fmt"
)

// UnexpectedStatusError is returned when the status code of a response
// does not match the expected one
type UnexpectedStatusError struct {
	Expected int
	Actual   int
	Resp     string
}

func (e *UnexpectedStatusError) Error() string {
	return fmt.Sprintf("status code: %d (expected %d) error: %s", e.Actual, e.Expected, e.Resp)
}
