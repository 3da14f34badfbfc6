package paramlit

import "fmt"

// IssueAt creates an Issue at the given byte offset with no entry or path.
// This is a convenience helper to improve readability at call sites.
func IssueAt(offset int, code, msg string) Issue {
	return Issue{Code: code, Message: msg, Offset: int64(offset), Entry: -1}
}

// EntryIssue creates an Issue bound to a literal entry and, optionally, a
// field of that entry.
func EntryIssue(entry, offset int, field, code, format string, args ...any) Issue {
	return Issue{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Offset:  int64(offset),
		Entry:   entry,
		Field:   field,
	}
}

// Errorf returns a single-issue error with unknown position.
func Errorf(code, format string, args ...any) error {
	return Issues{{Code: code, Message: fmt.Sprintf(format, args...), Offset: -1, Entry: -1}}
}
