package codec_test

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/utgen/paramlit"
	"github.com/utgen/paramlit/codec"
)

func TestInt_EncodeThresholdAndTilingKey(t *testing.T) {
	cases := []struct {
		kind codec.Kind
		in   paramlit.Value
		want string
	}{
		{codec.Int, paramlit.Int(300000000), "0x11E1A300"},
		{codec.Int, paramlit.Int(100000000), "100000000"},
		{codec.Int, paramlit.Int(268435455), "0xFFFFFFF"},
		{codec.Int, paramlit.Int(16777216), "16777216"},
		{codec.Int, paramlit.Int(-1), "-1"},
		{codec.Int, paramlit.Uint(18446744073709551615), "0xFFFFFFFFFFFFFFFF"},
		{codec.TilingKey, paramlit.Int(42), "42UL"},
		{codec.TilingKey, paramlit.Int(1000000000000001001), "1000000000000001001UL"},
		{codec.Int, paramlit.Float(12), "12"},
		{codec.Int, paramlit.Float(-9223372036854775808), "-9223372036854775808"},
		{codec.Int, paramlit.Float(9223372036854775808), "0x8000000000000000"},
	}
	for _, tc := range cases {
		got, err := codec.Encode(tc.kind, tc.in, nil)
		if err != nil {
			t.Fatalf("encode %v: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("encode %v as %s: got %q want %q", tc.in, tc.kind, got, tc.want)
		}
		back, err := codec.Decode(tc.kind, got, nil)
		if err != nil {
			t.Fatalf("decode %q: %v", got, err)
		}
		if tc.in.Kind() == paramlit.KindInt && !back.Equal(tc.in) {
			t.Fatalf("decode %q: got %v want %v", got, back, tc.in)
		}
	}
}

func TestInt_EncodeRejectsNonIntegralFloats(t *testing.T) {
	for _, f := range []float64{0.5, math.NaN(), math.Inf(1), math.Inf(-1), 18446744073709551616, -9223372036854777856} {
		if got, err := codec.Encode(codec.Int, paramlit.Float(f), nil); err == nil {
			t.Fatalf("encode %v: want error, got %q", f, got)
		}
	}
}

func TestInt_DecodeSuffixesAndBases(t *testing.T) {
	cases := map[string]paramlit.Value{
		"8":                     paramlit.Int(8),
		"8UL":                   paramlit.Int(8),
		"8ul":                   paramlit.Int(8),
		"8LL":                   paramlit.Int(8),
		"8ULL":                  paramlit.Int(8),
		"0x11E1A300":            paramlit.Int(300000000),
		"0xFFFFFFFFFFFFFFFFUL":  paramlit.Uint(18446744073709551615),
		"0xDE0B6B3A7640001":     paramlit.Int(0xDE0B6B3A7640001),
		"-3":                    paramlit.Int(-3),
		"010":                   paramlit.Int(8),
		"1'000'000":             paramlit.Int(1000000),
		"// bytes\n 196608":     paramlit.Int(196608),
		"196608 /* ub size */":  paramlit.Int(196608),
	}
	for tok, want := range cases {
		got, err := codec.Decode(codec.Int, tok, nil)
		if err != nil {
			t.Fatalf("decode %q: %v", tok, err)
		}
		if !got.Equal(want) {
			t.Fatalf("decode %q: got %v want %v", tok, got, want)
		}
	}
	for _, bad := range []string{"", "8UUL", "0xZZ", "1_000", "true", `"8"`} {
		if _, err := codec.Decode(codec.Int, bad, nil); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestBool_Strict(t *testing.T) {
	for tok, want := range map[string]bool{"true": true, "false": false} {
		v, err := codec.Decode(codec.Bool, tok, nil)
		if err != nil {
			t.Fatalf("decode %q: %v", tok, err)
		}
		if b, _ := v.AsBool(); b != want {
			t.Fatalf("decode %q: got %v", tok, b)
		}
	}
	for _, bad := range []string{"True", "1", "TRUE", "yes"} {
		if _, err := codec.Decode(codec.Bool, bad, nil); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
	if _, err := codec.Encode(codec.Bool, paramlit.Int(1), nil); err == nil {
		t.Fatalf("expected error encoding int as bool")
	}
}

func TestString_QuoteUnquote(t *testing.T) {
	cases := []string{
		"plain",
		`with "quotes" and \backslash`,
		"line\nbreak\ttab",
		"ctrl\x01byte",
		`{"_pattern": "Matmul", "attrs": {"a": 1}}`,
		"",
		"中文",
	}
	for _, s := range cases {
		enc, err := codec.Encode(codec.String, paramlit.String(s), nil)
		if err != nil {
			t.Fatalf("encode %q: %v", s, err)
		}
		got, err := codec.Decode(codec.String, enc, nil)
		if err != nil {
			t.Fatalf("decode %s: %v", enc, err)
		}
		if g, _ := got.AsString(); g != s {
			t.Fatalf("round trip %q: got %q via %s", s, g, enc)
		}
		raw := codec.RawQuote(s)
		back, err := codec.Unquote(raw)
		if err != nil || back != s {
			t.Fatalf("raw round trip %q: got %q err=%v via %s", s, back, err, raw)
		}
	}
}

func TestString_DecodeForms(t *testing.T) {
	cases := map[string]string{
		`"abc"`:                       "abc",
		`"a" "b"`:                     "ab",
		`R"({"k": "v"})"`:             `{"k": "v"}`,
		`R"x(has )" inside)x"`:        `has )" inside`,
		`u8"utf"`:                     "utf",
		`"\x41\101é"`:            "AAé",
		"// the case name\n\"c1\"":    "c1",
		`"a,b" /* trailing */`:        "a,b",
		`"tab\there" "\"q\""`:         "tab\there\"q\"",
	}
	for tok, want := range cases {
		v, err := codec.Decode(codec.String, tok, nil)
		if err != nil {
			t.Fatalf("decode %q: %v", tok, err)
		}
		if got, _ := v.AsString(); got != want {
			t.Fatalf("decode %q: got %q want %q", tok, got, want)
		}
	}
	if _, err := codec.Decode(codec.String, `"open`, nil); err == nil {
		t.Fatalf("expected error for unterminated string")
	}
}

func TestString_Placeholder(t *testing.T) {
	ctx := &codec.Context{Constants: map[string]string{"COMPILE_INFO": `R"({"a": 1})"`}}
	v, err := codec.Decode(codec.String, "COMPILE_INFO", ctx)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s, _ := v.AsString(); s != `{"a": 1}` {
		t.Fatalf("placeholder resolved to %q", s)
	}

	// unknown constants stay as a string sentinel
	v, err = codec.Decode(codec.String, "OTHER_INFO", ctx)
	if err != nil {
		t.Fatalf("decode sentinel: %v", err)
	}
	if s, _ := v.AsString(); s != "OTHER_INFO" {
		t.Fatalf("sentinel = %q", s)
	}

	ints := &codec.Context{Constants: map[string]string{"SHARED": "5"}}
	v, err = codec.Decode(codec.Int, "SHARED", ints)
	if err != nil || !v.Equal(paramlit.Int(5)) {
		t.Fatalf("int placeholder: v=%v err=%v", v, err)
	}
}

func TestFloatAndSymbol(t *testing.T) {
	v, err := codec.Decode(codec.Float, "1e-06f", nil)
	if err != nil || !v.Equal(paramlit.Float(1e-6)) {
		t.Fatalf("float: v=%v err=%v", v, err)
	}
	s, err := codec.Encode(codec.Float, paramlit.Float(1e-6), nil)
	if err != nil || s != "1e-06" {
		t.Fatalf("float encode: %q err=%v", s, err)
	}

	v, err = codec.Decode(codec.Symbol, " ge::DT_BF16 ", nil)
	if err != nil || !v.Equal(paramlit.Symbol("ge::DT_BF16")) {
		t.Fatalf("symbol: v=%v err=%v", v, err)
	}
	// records read from JSON carry symbols as strings
	s, err = codec.Encode(codec.Symbol, paramlit.String("ge::DT_FLOAT16"), nil)
	if err != nil || s != "ge::DT_FLOAT16" {
		t.Fatalf("symbol encode: %q err=%v", s, err)
	}
	if _, err := codec.Encode(codec.Symbol, paramlit.String("not a symbol"), nil); err == nil {
		t.Fatalf("expected error for non-identifier symbol")
	}
}

func TestAggregates_RoundTrip(t *testing.T) {
	cases := []struct {
		name string
		kind codec.Kind
		text string
		want paramlit.Value
	}{
		{"empty int list", codec.IntList, "{}", paramlit.List()},
		{"int list", codec.IntList, "{8192, 12288}", paramlit.Ints(8192, 12288)},
		{"int list hex", codec.IntList, "{0x11E1A300}", paramlit.Ints(300000000)},
		{"matrix", codec.IntMatrix, "{{16, 128, 64}, {4, 64, 128}}", paramlit.List(paramlit.Ints(16, 128, 64), paramlit.Ints(4, 64, 128))},
		{"symbol list", codec.SymbolList, "{ge::DT_FLOAT16, ge::DT_INT8}", paramlit.List(paramlit.Symbol("ge::DT_FLOAT16"), paramlit.Symbol("ge::DT_INT8"))},
		{"string pairs", codec.StringPairs, `{{"group_ep", "ep"}, {"reduce_op", "sum"}}`, paramlit.Map(paramlit.F("group_ep", paramlit.String("ep")), paramlit.F("reduce_op", paramlit.String("sum")))},
		{"named int lists", codec.NamedIntLists, `{{"send_counts", {1, 2}}, {"recv_counts", {}}}`, paramlit.Map(paramlit.F("send_counts", paramlit.Ints(1, 2)), paramlit.F("recv_counts", paramlit.List()))},
		{"index symbol pairs", codec.IndexSymbolPairs, "{{0, ge::DT_FLOAT16}, {1, ge::DT_INT32}}", paramlit.List(
			paramlit.List(paramlit.Int(0), paramlit.Symbol("ge::DT_FLOAT16")),
			paramlit.List(paramlit.Int(1), paramlit.Symbol("ge::DT_INT32")),
		)},
		{"tensors", codec.Tensors, "{{{{64, 7168}, {64, 7168}}, ge::DT_FLOAT16, ge::FORMAT_ND}, {{}, ge::DT_INT32, ge::FORMAT_ND}}", paramlit.List(
			paramlit.Map(
				paramlit.F("shape", paramlit.List(paramlit.Ints(64, 7168), paramlit.Ints(64, 7168))),
				paramlit.F("dtype", paramlit.Symbol("ge::DT_FLOAT16")),
				paramlit.F("format", paramlit.Symbol("ge::FORMAT_ND")),
			),
			paramlit.Map(
				paramlit.F("shape", paramlit.List()),
				paramlit.F("dtype", paramlit.Symbol("ge::DT_INT32")),
				paramlit.F("format", paramlit.Symbol("ge::FORMAT_ND")),
			),
		)},
		{"attrs", codec.Attrs, `{{"group_ep", build_from<std::string>("ep_group")}, {"ep_world_size", build_from<int64_t>(8)}, {"flag", build_from<bool>(true)}, {"eps", build_from<float>(1e-06)}, {"ids", build_from<std::vector<int64_t>>({1, 2})}}`, paramlit.Map(
			paramlit.F("group_ep", paramlit.String("ep_group")),
			paramlit.F("ep_world_size", paramlit.Int(8)),
			paramlit.F("flag", paramlit.Bool(true)),
			paramlit.F("eps", paramlit.Float(1e-6)),
			paramlit.F("ids", paramlit.Ints(1, 2)),
		)},
	}
	eq := cmp.Comparer(func(a, b paramlit.Value) bool { return a.Equal(b) })
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := codec.Decode(tc.kind, tc.text, nil)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if diff := cmp.Diff(tc.want, got, eq); diff != "" {
				t.Fatalf("decode mismatch (-want +got):\n%s", diff)
			}
			enc, err := codec.Encode(tc.kind, got, nil)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			if enc != tc.text {
				t.Fatalf("encode: got %s want %s", enc, tc.text)
			}
		})
	}
}

func TestAggregates_Errors(t *testing.T) {
	cases := []struct {
		kind codec.Kind
		text string
	}{
		{codec.IntList, "8192"},
		{codec.IntList, "{1, x}"},
		{codec.Tensors, "{{{}, ge::DT_INT32}}"},
		{codec.Attrs, `{{"a", make<int>(1)}}`},
		{codec.Attrs, `{{"a", build_from<char>('x')}}`},
		{codec.StringPairs, `{{"a"}}`},
		{codec.IndexSymbolPairs, "{{0}}"},
	}
	for _, tc := range cases {
		_, err := codec.Decode(tc.kind, tc.text, nil)
		if err == nil {
			t.Fatalf("expected error for %s %q", tc.kind, tc.text)
		}
		if _, ok := paramlit.AsIssues(err); !ok {
			t.Fatalf("expected Issues for %q, got %T", tc.text, err)
		}
	}
}

func TestKind_ParseAndDefaults(t *testing.T) {
	for _, k := range []codec.Kind{codec.Int, codec.TilingKey, codec.Tensors, codec.Attrs, codec.IndexSymbolPairs} {
		back, err := codec.ParseKind(k.String())
		if err != nil || back != k {
			t.Fatalf("ParseKind(%q) = %v, %v", k.String(), back, err)
		}
	}
	if _, err := codec.ParseKind("nope"); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
	if _, ok := codec.Symbol.Default(); ok {
		t.Fatalf("symbol must not have an implicit default")
	}
	if v, _ := codec.IntList.Default(); !v.Equal(paramlit.List()) {
		t.Fatalf("int list default = %v", v)
	}
}
