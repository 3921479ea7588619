package resource

import (
	"strings"

	"github.com/oklog/ulid/v2"
)

// PlaceholderPrefix marks identifiers generated locally before the remote store assigns one.
const PlaceholderPrefix = "tmp-"

// PlaceholderSource issues transient in-memory identifiers.
type PlaceholderSource interface {
	NewPlaceholder() string
}

type ulidPlaceholders struct{}

// NewULIDPlaceholders returns a PlaceholderSource backed by monotonic ULIDs.
func NewULIDPlaceholders() PlaceholderSource {
	return ulidPlaceholders{}
}

func (ulidPlaceholders) NewPlaceholder() string {
	return PlaceholderPrefix + ulid.Make().String()
}

// IsPlaceholder reports whether id was issued by a PlaceholderSource rather than the remote store.
func IsPlaceholder(id string) bool {
	return strings.HasPrefix(id, PlaceholderPrefix)
}
