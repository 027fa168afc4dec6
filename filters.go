package sharekit

import "time"

// AccessLogFilter provides options for filtering access log queries.
type AccessLogFilter struct {
	// Filter by the grant that was consumed
	ShareID string

	// Filter by the accessing principal; use Anonymous to match anonymous
	// entries
	Principal string
	Anonymous bool

	// Filter by source address
	SourceAddress string

	// Filter by whether a password was required
	PasswordRequired *bool

	// Filter by time range
	Since time.Time
	Until time.Time

	// Pagination
	Limit  int
	Offset int
}

// NewAccessLogFilter creates a new AccessLogFilter with default values.
func NewAccessLogFilter() AccessLogFilter {
	return AccessLogFilter{
		Limit: 100,
	}
}

// WithShare sets the share ID filter.
func (f AccessLogFilter) WithShare(shareID string) AccessLogFilter {
	f.ShareID = shareID
	return f
}

// WithPrincipal sets the principal filter.
func (f AccessLogFilter) WithPrincipal(principal string) AccessLogFilter {
	f.Principal = principal
	return f
}

// WithAnonymous restricts results to anonymous accesses.
func (f AccessLogFilter) WithAnonymous() AccessLogFilter {
	f.Anonymous = true
	return f
}

// WithSourceAddress sets the source address filter.
func (f AccessLogFilter) WithSourceAddress(addr string) AccessLogFilter {
	f.SourceAddress = addr
	return f
}

// WithPasswordRequired filters by whether a password was required.
func (f AccessLogFilter) WithPasswordRequired(required bool) AccessLogFilter {
	f.PasswordRequired = &required
	return f
}

// WithTimeRange sets the time range filter.
func (f AccessLogFilter) WithTimeRange(since, until time.Time) AccessLogFilter {
	f.Since = since
	f.Until = until
	return f
}

// WithPagination sets limit and offset.
func (f AccessLogFilter) WithPagination(limit, offset int) AccessLogFilter {
	f.Limit = limit
	f.Offset = offset
	return f
}
