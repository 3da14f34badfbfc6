package paramlit

import "fmt"

// Kind identifies the dynamic type held by a Value.
type Kind int

const (
	KindNull   Kind = iota // Zero Value; never produced by decoding.
	KindInt                // Signed integer, or unsigned above MaxInt64.
	KindFloat              // Floating point literal.
	KindBool               // true / false.
	KindString             // Quoted string literal.
	KindSymbol             // Bare identifier such as ge::DT_FLOAT16.
	KindList               // Ordered homogeneous or heterogeneous sequence.
	KindMap                // Ordered name/value collection.
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindSymbol:
		return "symbol"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return "null"
	}
}

// Severity expresses how a recoverable condition is treated.
type Severity int

const (
	Error  Severity = iota // Abort the current file.
	Warn                   // Report and skip the offending entry.
	Ignore                 // Skip the offending entry silently.
)

func (s Severity) String() string {
	switch s {
	case Error:
		return "error"
	case Warn:
		return "warn"
	case Ignore:
		return "ignore"
	}
	return fmt.Sprintf("severity(%d)", int(s))
}

// ParseSeverity maps "error", "warn" or "ignore" to a Severity.
func ParseSeverity(s string) (Severity, error) {
	switch s {
	case "error":
		return Error, nil
	case "warn":
		return Warn, nil
	case "ignore":
		return Ignore, nil
	}
	return Error, fmt.Errorf("invalid severity %q (valid: error, warn, ignore)", s)
}
