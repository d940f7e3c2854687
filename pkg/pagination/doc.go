// Package pagination provides read-only page views over cached collections.
//
// A collection is cached whole; pages are cut from it on every request so that
// different pages of the same collection never trigger recomputation.
//
// Example usage:
//
//	page, err := pagination.Paginate(results, 3, 10)
//	// page.Items holds results[20:30] (or fewer on the last page)
//	// page.TotalPages == ceil(len(results) / 10)
//
// Pages are 1-based. A page past the end yields an empty Items slice, not an
// error. Page numbers below 1 and non-positive page sizes are rejected.
package pagination
