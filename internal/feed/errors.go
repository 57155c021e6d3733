package feed

import "fmt"

// ParseError reports a document that does not identify itself as a feed.
type ParseError struct {
	URL   string
	Cause error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("Invalid RSS feed %s: %v", e.URL, e.Cause)
	}
	return fmt.Sprintf("Invalid RSS feed %s", e.URL)
}

func (e *ParseError) Unwrap() error { return e.Cause }

// NotFoundError reports a title lookup with no matching episode.
type NotFoundError struct {
	Title string
	URL   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("Could not find episode %q in %s", e.Title, e.URL)
}
