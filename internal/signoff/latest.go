package signoff

import "time"

// Latest returns the item with the greatest timestamp. On ties the earliest
// item in the slice wins, matching the newest-first order GitHub lists in.
func Latest[T any](items []T, at func(T) time.Time) (T, bool) {
	var best T
	found := false
	for _, item := range items {
		if !found || at(item).After(at(best)) {
			best = item
			found = true
		}
	}
	return best, found
}

// LatestByKey reduces items to the most recent one per key. Items whose key is
// not accepted by keep are dropped before the reduction.
func LatestByKey[T any](items []T, key func(T) string, at func(T) time.Time, keep func(string) bool) map[string]T {
	groups := make(map[string][]T)
	for _, item := range items {
		k := key(item)
		if keep != nil && !keep(k) {
			continue
		}
		groups[k] = append(groups[k], item)
	}

	latest := make(map[string]T, len(groups))
	for k, group := range groups {
		if item, ok := Latest(group, at); ok {
			latest[k] = item
		}
	}
	return latest
}
