package util

import (
	"fmt"
	"math/rand"
)

// AnonName derives the anonymous display label shown on a post or comment.
// It is a pure function of the seed so callers control the randomness; the
// board never stores a link between the label and the real account.
func AnonName(seed int64) string {
	r := rand.New(rand.NewSource(seed))
	return fmt.Sprintf("anon-%03d", r.Intn(1000))
}
