package publish

import (
	"context"
	"errors"
	"fmt"
)

// Post is one outbound payload. Fields not selected by the account format
// are left empty.
type Post struct {
	Title    string
	Link     string
	ImageURL string
}

// Publisher submits one post to a social-media destination.
type Publisher interface {
	Publish(ctx context.Context, post Post) error
}

type Kind int

const (
	// KindTransient covers one-off API failures; the entry is skipped and
	// the feed continues.
	KindTransient Kind = iota
	// KindAuth means the API rejected the account credentials; they will
	// not self-heal mid-run.
	KindAuth
	// KindRateLimit means the API asked us to slow down.
	KindRateLimit
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindRateLimit:
		return "rate_limit"
	default:
		return "transient"
	}
}

// Error is a classified publish failure.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("publish (%s): %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsAuth reports whether err carries a credential rejection.
func IsAuth(err error) bool {
	var publishErr *Error
	return errors.As(err, &publishErr) && publishErr.Kind == KindAuth
}
