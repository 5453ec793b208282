// Package xid generates prefixed, time-ordered identifiers for ledger
// entries, goods-in requests and other records created by the stores.
package xid

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// New returns an id like "conv-1719847201123456789-a1b2c3d4e5f6a7b8".
// The timestamp keeps ids sortable by creation time; the random suffix
// guards against collisions within the same nanosecond.
func New(prefix string) string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
	}
	return fmt.Sprintf("%s-%d-%s", prefix, time.Now().UnixNano(), hex.EncodeToString(buf))
}
