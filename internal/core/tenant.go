package core

import "strings"

// TenantID is a dot delimited hierarchical tenant, e.g. "pb.amritsar".
// The first segment is the state level tenant.
type TenantID string

func (t TenantID) String() string {
	return string(t)
}

// StateLevel returns the segment before the first dot, or the tenant itself
// when it has no dot.
func (t TenantID) StateLevel() TenantID {
	s := string(t)
	if i := strings.IndexByte(s, '.'); i >= 0 {
		return TenantID(s[:i])
	}
	return t
}

// IsStateLevel reports whether the tenant has a single segment.
func (t TenantID) IsStateLevel() bool {
	return !strings.Contains(string(t), ".")
}
