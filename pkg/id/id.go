// Package id issues collision-resistant identifiers for carts, orders and
// notifications. Prefer random UUIDs; fall back to a timestamp+counter scheme
// when the secure random source is unavailable.
package id

import (
	"fmt"
	"math/rand"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

var counter atomic.Int64

// New returns a unique identifier, optionally prefixed ("order_<uuid>").
// It never fails: if the crypto random source errors out, a
// timestamp_counter_random id is issued instead. The counter wraps at 10000,
// which keeps ids unique within a single-millisecond burst; the timestamp
// keeps them unique across milliseconds.
func New(prefix string) string {
	var raw string
	if u, err := uuid.NewRandom(); err == nil {
		raw = u.String()
	} else {
		n := counter.Add(1) % 10000
		suffix := strconv.FormatInt(rand.Int63n(1<<31), 36)
		raw = fmt.Sprintf("%d_%d_%s", time.Now().UnixMilli(), n, suffix)
	}
	if prefix == "" {
		return raw
	}
	return prefix + "_" + raw
}
