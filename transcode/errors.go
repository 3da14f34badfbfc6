package transcode

import (
	"errors"

	"github.com/utgen/paramlit"
	"github.com/utgen/paramlit/internal/scan"
)

func fromScan(err error) error { return fromScanAt(err, 0) }

// fromScanAt converts a splitter error into a MalformedLiteral issue whose
// offset is relative to the whole source.
func fromScanAt(err error, base int) error {
	var se *scan.Error
	if errors.As(err, &se) {
		return paramlit.Issues{paramlit.IssueAt(se.Offset+base, paramlit.CodeMalformedLiteral, se.Msg)}
	}
	return err
}

// withOffset fills in the offset of issues that have none.
func withOffset(err error, off int) error {
	iss, ok := paramlit.AsIssues(err)
	if !ok {
		return err
	}
	out := make(paramlit.Issues, len(iss))
	for i, it := range iss {
		if it.Offset < 0 {
			it.Offset = int64(off)
		}
		out[i] = it
	}
	return out
}
