package cli

import "fmt"

// backendError wraps an error marker the backend returned inside a 200
// envelope, so scripts see a non-zero exit with the server's message.
type backendError struct {
	message string
}

func (e backendError) Error() string {
	return fmt.Sprintf("backend error: %s", e.message)
}

func apiError(message string) error {
	return backendError{message: message}
}

type notFoundError struct {
	kind string
	id   string
}

func (e notFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.kind, e.id)
}

func errNotFound(kind, id string) error {
	return notFoundError{kind: kind, id: id}
}
