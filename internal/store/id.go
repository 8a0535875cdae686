package store

import (
	"crypto/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	idEntropy   = ulid.Monotonic(rand.Reader, 0)
	idEntropyMu sync.Mutex
)

// NewID returns a lexically sortable id, lower-cased so it reads well in URLs.
func NewID() string {
	idEntropyMu.Lock()
	defer idEntropyMu.Unlock()
	return strings.ToLower(ulid.MustNew(ulid.Timestamp(time.Now()), idEntropy).String())
}
