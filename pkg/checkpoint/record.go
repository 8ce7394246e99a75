package checkpoint

import "time"

// Record is one successfully completed item in a job's checkpoint.
// Optional metadata is held in pointer fields so a patch can tell an
// absent field from a zero value.
type Record struct {
	ID        string     `json:"id"`
	Title     *string    `json:"title,omitempty"`
	Path      *string    `json:"path,omitempty"`
	URL       *string    `json:"url,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// Patch returns r with every field set in other copied over it.
// Fields that are nil in other keep their current value.
func (r Record) Patch(other Record) Record {
	if other.ID != "" {
		r.ID = other.ID
	}
	if other.Title != nil {
		r.Title = other.Title
	}
	if other.Path != nil {
		r.Path = other.Path
	}
	if other.URL != nil {
		r.URL = other.URL
	}
	if other.UpdatedAt != nil {
		r.UpdatedAt = other.UpdatedAt
	}
	return r
}

// IsStale reports whether the remote item changed after this record was written
func (r Record) IsStale(updatedAt time.Time) bool {
	if r.UpdatedAt == nil {
		return true
	}
	return updatedAt.After(*r.UpdatedAt)
}

// String returns s as a pointer, for building records inline
func String(s string) *string {
	return &s
}

// Time returns t as a pointer, for building records inline
func Time(t time.Time) *time.Time {
	return &t
}
