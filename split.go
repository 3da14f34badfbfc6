package paramlit

import (
	"errors"

	"github.com/utgen/paramlit/internal/scan"
)

// Token is one split field or entry with its byte offset relative to the
// text that was split.
type Token = scan.Token

// SplitEntries splits the body of a literal array (the text between its
// outermost braces) into entries, each including its own braces.
func SplitEntries(body string) ([]Token, error) {
	toks, err := scan.Entries(body)
	if err != nil {
		return nil, fromScanError(err, 0)
	}
	return toks, nil
}

// SplitFields splits one entry into its trimmed top-level field tokens. The
// enclosing braces are optional.
func SplitFields(entry string) ([]Token, error) {
	toks, err := scan.Fields(entry)
	if err != nil {
		return nil, fromScanError(err, 0)
	}
	return toks, nil
}

// SplitFieldsAt is SplitFields with token offsets shifted by base, so they
// point into the enclosing source text.
func SplitFieldsAt(entry string, base int) ([]Token, error) {
	toks, err := scan.Fields(entry)
	if err != nil {
		return nil, fromScanError(err, base)
	}
	for i := range toks {
		toks[i].Offset += base
	}
	return toks, nil
}

// StripComments removes comments that lead or trail a token.
func StripComments(tok string) string { return scan.StripComments(tok) }

func fromScanError(err error, base int) error {
	var se *scan.Error
	if errors.As(err, &se) {
		return Issues{IssueAt(se.Offset+base, CodeMalformedLiteral, se.Msg)}
	}
	return Issues{{Code: CodeMalformedLiteral, Message: err.Error(), Offset: -1, Entry: -1, Cause: err}}
}
