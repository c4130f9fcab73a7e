package notebook

import "fmt"

type (
	EmptyContent struct{}

	MissingSubject struct{}

	CorruptNote struct {
		ID    int64
		cause error
	}
)

func (EmptyContent) Error() string {
	return "note content is required"
}

func (MissingSubject) Error() string {
	return "subject id cannot be empty"
}

func (c CorruptNote) Error() string {
	return fmt.Sprintf("note %v cannot be decoded, cause %v", c.ID, c.cause)
}

func (c CorruptNote) Unwrap() error {
	return c.cause
}
