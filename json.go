package paramlit

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	j "github.com/goccy/go-json"
)

// MarshalJSON renders r as a JSON object with keys in field order, using
// ", " and ": " separators.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := writeFieldsJSON(&buf, r.fields); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarshalJSON renders v as JSON. Symbols become strings.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := writeValueJSON(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeFieldsJSON(buf *bytes.Buffer, fs []Field) error {
	buf.WriteByte('{')
	for i, f := range fs {
		if i > 0 {
			buf.WriteString(", ")
		}
		if err := writeStringJSON(buf, f.Name); err != nil {
			return err
		}
		buf.WriteString(": ")
		if err := writeValueJSON(buf, f.Value); err != nil {
			return fmt.Errorf("%s: %w", f.Name, err)
		}
	}
	buf.WriteByte('}')
	return nil
}

func writeValueJSON(buf *bytes.Buffer, v Value) error {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindInt:
		if v.unsigned {
			buf.WriteString(strconv.FormatUint(v.u, 10))
		} else {
			buf.WriteString(strconv.FormatInt(v.i, 10))
		}
	case KindFloat:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return fmt.Errorf("unsupported float value %v", v.f)
		}
		s := strconv.FormatFloat(v.f, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		buf.WriteString(s)
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.b))
	case KindString, KindSymbol:
		return writeStringJSON(buf, v.s)
	case KindList:
		buf.WriteByte('[')
		for i, it := range v.items {
			if i > 0 {
				buf.WriteString(", ")
			}
			if err := writeValueJSON(buf, it); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindMap:
		return writeFieldsJSON(buf, v.fields)
	}
	return nil
}

func writeStringJSON(buf *bytes.Buffer, s string) error {
	b, err := j.MarshalWithOption(s, j.DisableHTMLEscape())
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}
