package paramlit

import (
	"errors"
	"fmt"
	"strings"
)

// Issue codes
const (
	CodeMalformedLiteral   = "malformed_literal"
	CodeUnsupportedSchema  = "unsupported_schema"
	CodeAmbiguousSchema    = "ambiguous_schema"
	CodeFieldCountMismatch = "field_count_mismatch"
	CodeMissingAnchor      = "missing_anchor"
	CodeMissingBlock       = "missing_block"
	CodeInvalidValue       = "invalid_value"
	CodeInvalidRecord      = "invalid_record"
	CodeInvalidSchema      = "invalid_schema"
	CodeDuplicateKey       = "duplicate_key"
)

// Issue describes a single transcoding failure.
type Issue struct {
	Path    string // File the issue belongs to ("" when transcoding in memory).
	Code    string // One of the codes listed above.
	Message string
	Offset  int64  // Byte offset in the source text (-1 when unknown).
	Entry   int    // Zero-based entry or record index (-1 when not entry specific).
	Field   string // Declared field name, when the issue concerns one field.
	Cause   error  // Optional: underlying error.
	// Params carries structured parameters (e.g., {"want":32, "got":33}) for
	// i18n and reporting.
	Params map[string]any
}

// Location renders the most precise position known for the issue.
func (it Issue) Location() string {
	b := &strings.Builder{}
	if it.Path != "" {
		b.WriteString(it.Path)
	}
	if it.Offset >= 0 {
		if b.Len() > 0 {
			b.WriteByte(':')
		}
		fmt.Fprintf(b, "@%d", it.Offset)
	}
	if it.Entry >= 0 {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(b, "entry %d", it.Entry)
	}
	if it.Field != "" {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(b, "field %s", it.Field)
	}
	if b.Len() == 0 {
		return "-"
	}
	return b.String()
}

// Issues is a collection of transcoding failures that implements error.
type Issues []Issue

// Error summarizes the first few issues.
func (iss Issues) Error() string {
	if len(iss) == 0 {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	n := len(iss)
	lim := min(n, maxShown)
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		it := iss[i]
		// e.g. malformed_literal at a.cpp:@120: unterminated string
		fmt.Fprintf(b, "%s at %s", it.Code, it.Location())
		if it.Message != "" {
			fmt.Fprintf(b, ": %s", it.Message)
		}
	}
	if n > lim {
		fmt.Fprintf(b, "; ... (total %d)", n)
	}
	return b.String()
}

// Unwrap exposes the underlying causes to errors.Is and errors.As.
func (iss Issues) Unwrap() []error {
	var out []error
	for _, it := range iss {
		if it.Cause != nil {
			out = append(out, it.Cause)
		}
	}
	return out
}

// HasCode reports whether any issue carries code.
func (iss Issues) HasCode(code string) bool {
	for _, it := range iss {
		if it.Code == code {
			return true
		}
	}
	return false
}

// AppendIssues appends issues to the destination, initializing the slice when
// needed.
func AppendIssues(dst Issues, more ...Issue) Issues {
	if dst == nil {
		dst = Issues{}
	}
	dst = append(dst, more...)
	return dst
}

// AsIssues extracts Issues from an error using errors.As internally.
func AsIssues(err error) (Issues, bool) {
	if err == nil {
		return nil, false
	}
	var iss Issues
	if errors.As(err, &iss) {
		return iss, true
	}
	return nil, false
}

// WithPath stamps path onto every issue of err that does not carry one yet.
// Errors that are not Issues are wrapped into a single issue of code.
func WithPath(err error, path, code string) error {
	if err == nil {
		return nil
	}
	iss, ok := AsIssues(err)
	if !ok {
		return Issues{{Path: path, Code: code, Message: err.Error(), Offset: -1, Entry: -1, Cause: err}}
	}
	out := make(Issues, len(iss))
	for i, it := range iss {
		if it.Path == "" {
			it.Path = path
		}
		out[i] = it
	}
	return out
}
