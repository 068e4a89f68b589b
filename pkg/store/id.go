package store

import (
	"fmt"
	"time"
)

// NewBookID returns a time-derived book identifier. Millisecond creation time
// keeps IDs unique per owner and naturally sorted by when the book was added.
func NewBookID(t time.Time) string {
	return fmt.Sprintf("BOOK#%d", t.UnixMilli())
}
