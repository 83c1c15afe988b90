package domain

import "strings"

type StatusClass int

const (
	ClassUnknown StatusClass = iota
	ClassSuccess
	ClassInterim
	ClassFailed
)

func (c StatusClass) String() string {
	switch c {
	case ClassSuccess:
		return "success"
	case ClassInterim:
		return "interim"
	case ClassFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Bank status vocabulary. Lookups are case-insensitive; anything not listed is unknown.
var statusClasses = map[string]StatusClass{
	"ok":          ClassSuccess,
	"success":     ClassSuccess,
	"completed":   ClassSuccess,
	"pending":     ClassInterim,
	"processing":  ClassInterim,
	"in_progress": ClassInterim,
	"accepted":    ClassInterim,
	"created":     ClassInterim,
	"failed":      ClassFailed,
	"error":       ClassFailed,
	"declined":    ClassFailed,
	"rejected":    ClassFailed,
}

func Classify(s PayoutStatus) StatusClass {
	if c, ok := statusClasses[strings.ToLower(strings.TrimSpace(string(s)))]; ok {
		return c
	}
	return ClassUnknown
}
