package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Project field limits.
const (
	MaxProjectNameLength        = 120
	MaxProjectDescriptionLength = 500
)

// localDateTimeLayouts are the ISO local date-time forms accepted in
// addition to RFC 3339. Values without an offset are read as UTC.
var localDateTimeLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// Project is a unit of work owned by exactly one user.
type Project struct {
	// ID is the unique identifier for the project (auto-generated).
	ID int64 `json:"id"`

	// OwnerID is the id of the owning user. It is set once at creation.
	OwnerID int64 `json:"ownerId"`

	// OwnerUsername is the owner's current username, filled by reads.
	OwnerUsername string `json:"username"`

	// Name is the project name.
	Name string `json:"name"`

	// Description is the free-form project description.
	Description string `json:"description"`

	// CreatedAt is set once when the project is created.
	CreatedAt time.Time `json:"createdAt"`

	// EstimatedEnd is the optional planned completion time.
	EstimatedEnd *time.Time `json:"estimatedEnd"`

	// FinishedAt is the optional actual completion time.
	FinishedAt *time.Time `json:"finishedAt"`
}

// ValidateProjectText checks name and description for a new project.
func ValidateProjectText(name, description string) error {
	if strings.TrimSpace(name) == "" {
		return NewDomainError(ErrInvalidProject, "name is required", "")
	}
	if utf8.RuneCountInString(name) > MaxProjectNameLength {
		return NewDomainError(ErrInvalidProject, "name exceeds 120 characters", "")
	}
	if strings.TrimSpace(description) == "" {
		return NewDomainError(ErrInvalidProject, "description is required", "")
	}
	if utf8.RuneCountInString(description) > MaxProjectDescriptionLength {
		return NewDomainError(ErrInvalidProject, "description exceeds 500 characters", "")
	}
	return nil
}

// ParseDateTime parses an optional date-time string.
// It returns nil for nil, blank, or unparseable input.
func ParseDateTime(s *string) *time.Time {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
		t = t.UTC()
		return &t
	}
	for _, layout := range localDateTimeLayouts {
		if t, err := time.ParseInLocation(layout, v, time.UTC); err == nil {
			return &t
		}
	}
	return nil
}
