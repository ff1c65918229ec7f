// Package collection provides generic, functional-style helpers for slices.
//
// Order views are built from these: every view is a Filter over the last
// fetched collection, never a separately maintained list.
//
//	active := collection.Filter(all, func(o orders.Order) bool { return o.Status.In(orders.ActiveStatuses) })
package collection

// Filter returns elements of s for which fn returns true. The result is never
// nil, so an empty view renders as [] rather than null.
func Filter[T any](s []T, fn func(T) bool) []T {
	out := make([]T, 0, len(s))
	for _, v := range s {
		if fn(v) {
			out = append(out, v)
		}
	}
	return out
}

// Reject returns elements of s for which fn returns false (inverse of Filter).
func Reject[T any](s []T, fn func(T) bool) []T {
	return Filter(s, func(v T) bool { return !fn(v) })
}

// First returns the first element matching fn, or (zero, false).
func First[T any](s []T, fn func(T) bool) (T, bool) {
	for _, v := range s {
		if fn(v) {
			return v, true
		}
	}
	var zero T
	return zero, false
}
