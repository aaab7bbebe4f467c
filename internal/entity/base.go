package entity

import (
	"fmt"
	"sort"
	"time"
)

// NowUnixMilli returns current unix timestamp in milliseconds
func NowUnixMilli() int64 {
	return time.Now().UnixMilli()
}

// GenPairKey generates the uniqueness key for a direct conversation.
// Format: dm_{min(userA,userB)}:{max(userA,userB)}
// Uses ":" as separator between userIds to support userIds containing "_".
// The unique index on this key is what makes concurrent find-or-create of
// the same pair collapse to a single row.
func GenPairKey(userA, userB string) string {
	users := []string{userA, userB}
	sort.Strings(users)
	return fmt.Sprintf("dm_%s:%s", users[0], users[1])
}
