// Package jsonl reads and writes case records as JSON objects, one per line.
//
// Key order is kept on both sides so that records survive a round trip
// through a case file unchanged.
package jsonl

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	j "github.com/goccy/go-json"

	"github.com/utgen/paramlit"
)

// ReaderOpt configures a Reader. When several are passed the last one wins.
type ReaderOpt struct {
	// OnDuplicateKey selects what happens when an object repeats a key:
	// Error fails the record, Warn keeps the last value and records an
	// issue in Warnings, Ignore keeps the last value silently.
	OnDuplicateKey paramlit.Severity
}

// Reader decodes a stream of JSON objects. Objects may be separated by
// newlines or any other whitespace, or wrapped in one top-level array.
type Reader struct {
	dec      *j.Decoder
	opt      ReaderOpt
	n        int
	inArray  bool
	started  bool
	warnings paramlit.Issues
}

// NewReader returns a Reader consuming r.
func NewReader(r io.Reader, opts ...ReaderOpt) *Reader {
	dec := j.NewDecoder(r)
	dec.UseNumber()
	rd := &Reader{dec: dec}
	if len(opts) > 0 {
		rd.opt = opts[len(opts)-1]
	}
	return rd
}

// Warnings returns the issues recorded so far under Warn.
func (r *Reader) Warnings() paramlit.Issues { return r.warnings }

type duplicateKeyError struct{ key string }

func (e *duplicateKeyError) Error() string { return fmt.Sprintf("duplicate key %q", e.key) }

// Next returns the next record, or io.EOF after the last one.
func (r *Reader) Next() (paramlit.Record, error) {
	tok, err := r.dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return paramlit.Record{}, io.EOF
		}
		return paramlit.Record{}, r.fail(err)
	}
	if !r.started {
		r.started = true
		if d, ok := tok.(j.Delim); ok && d == '[' {
			r.inArray = true
			return r.Next()
		}
	}
	if d, ok := tok.(j.Delim); ok && d == ']' && r.inArray {
		r.inArray = false
		return r.Next()
	}
	if d, ok := tok.(j.Delim); !ok || d != '{' {
		return paramlit.Record{}, r.fail(fmt.Errorf("expected an object, got %v", tok))
	}
	fields, err := r.object()
	if err != nil {
		return paramlit.Record{}, r.fail(err)
	}
	r.n++
	return paramlit.NewRecord(fields...), nil
}

func (r *Reader) fail(err error) error {
	it := paramlit.EntryIssue(r.n, -1, "", paramlit.CodeInvalidRecord, "record %d: %v", r.n+1, err)
	var dup *duplicateKeyError
	if errors.As(err, &dup) {
		it.Code, it.Field = paramlit.CodeDuplicateKey, dup.key
		it.Params = map[string]any{"key": dup.key}
	}
	it.Cause = err
	return paramlit.Issues{it}
}

func (r *Reader) duplicate(key string) error {
	switch r.opt.OnDuplicateKey {
	case paramlit.Ignore:
		return nil
	case paramlit.Warn:
		it := paramlit.EntryIssue(r.n, -1, key, paramlit.CodeDuplicateKey, "record %d: duplicate key %q", r.n+1, key)
		it.Params = map[string]any{"key": key}
		r.warnings = append(r.warnings, it)
		return nil
	}
	return &duplicateKeyError{key: key}
}

// object reads members up to the closing brace; the opening one is consumed.
// A repeated key keeps its first position and takes the last value.
func (r *Reader) object() ([]paramlit.Field, error) {
	var out []paramlit.Field
	seen := map[string]bool{}
	for {
		tok, err := r.dec.Token()
		if err != nil {
			return nil, err
		}
		if d, ok := tok.(j.Delim); ok && d == '}' {
			return out, nil
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected a key, got %v", tok)
		}
		if seen[key] {
			if err := r.duplicate(key); err != nil {
				return nil, err
			}
		}
		seen[key] = true
		vt, err := r.dec.Token()
		if err != nil {
			return nil, err
		}
		v, err := r.value(vt)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		if i := indexOf(out, key); i >= 0 {
			out[i].Value = v
			continue
		}
		out = append(out, paramlit.F(key, v))
	}
}

func (r *Reader) value(tok j.Token) (paramlit.Value, error) {
	switch v := tok.(type) {
	case j.Delim:
		switch v {
		case '{':
			fs, err := r.object()
			if err != nil {
				return paramlit.Value{}, err
			}
			return paramlit.Map(fs...), nil
		case '[':
			var items []paramlit.Value
			for {
				it, err := r.dec.Token()
				if err != nil {
					return paramlit.Value{}, err
				}
				if d, ok := it.(j.Delim); ok && d == ']' {
					return paramlit.List(items...), nil
				}
				iv, err := r.value(it)
				if err != nil {
					return paramlit.Value{}, fmt.Errorf("[%d]: %w", len(items), err)
				}
				items = append(items, iv)
			}
		}
		return paramlit.Value{}, fmt.Errorf("unexpected %v", v)
	case string:
		return paramlit.String(v), nil
	case bool:
		return paramlit.Bool(v), nil
	case j.Number:
		return number(string(v))
	case float64:
		return paramlit.Float(v), nil
	case nil:
		return paramlit.Value{}, nil
	}
	return paramlit.Value{}, fmt.Errorf("unexpected token %v", tok)
}

// number keeps integers exact, including unsigned values above MaxInt64.
func number(s string) (paramlit.Value, error) {
	if !strings.ContainsAny(s, ".eE") {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return paramlit.Int(i), nil
		}
		if u, err := strconv.ParseUint(s, 10, 64); err == nil {
			return paramlit.Uint(u), nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return paramlit.Value{}, fmt.Errorf("invalid number %q", s)
	}
	return paramlit.Float(f), nil
}

func indexOf(fs []paramlit.Field, name string) int {
	for i, f := range fs {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// ReadAll reads every record from r.
func ReadAll(r io.Reader, opts ...ReaderOpt) ([]paramlit.Record, error) {
	rd := NewReader(r, opts...)
	var out []paramlit.Record
	for {
		rec, err := rd.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
}

// Writer writes one record per line.
type Writer struct {
	w *bufio.Writer
}

// NewWriter returns a Writer on w. Call Flush when done.
func NewWriter(w io.Writer) *Writer { return &Writer{w: bufio.NewWriter(w)} }

func (w *Writer) Write(r paramlit.Record) error {
	b, err := r.MarshalJSON()
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	return w.w.WriteByte('\n')
}

// Flush writes buffered data to the underlying writer.
func (w *Writer) Flush() error { return w.w.Flush() }

// WriteAll writes records and flushes.
func WriteAll(w io.Writer, records []paramlit.Record) error {
	jw := NewWriter(w)
	for _, r := range records {
		if err := jw.Write(r); err != nil {
			return err
		}
	}
	return jw.Flush()
}
