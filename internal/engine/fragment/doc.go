// Package fragment provides reference-counted handles to contiguous byte
// ranges that buffer leaves point into.
//
// A Fragment is either Memory (an owned byte slice) or File (a window into a
// file cache page). Many leaves, possibly in many trees, may share one
// Fragment; its bytes are never mutated while shared. The only mutation,
// Shrink, is allowed when exactly one reference exists.
package fragment
