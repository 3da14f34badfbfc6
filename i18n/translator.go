package i18n

import (
	"fmt"
	"strings"
	"sync"

	"github.com/utgen/paramlit"
)

// Translator retrieves localized messages for Issue codes.
// data provides optional metadata to embed in the message (for example,
// "want" or "got").
type Translator interface {
	Message(code string, data map[string]string) string
}

// dictTranslator is the built-in dictionary-based Translator.
type dictTranslator struct{ lang string }

var dict = map[string]map[string]string{
	"en": {
		paramlit.CodeMalformedLiteral:   "malformed literal",
		paramlit.CodeUnsupportedSchema:  "no layout for {type} with {count} fields",
		paramlit.CodeAmbiguousSchema:    "{type} with {count} fields matches several layouts: {candidates}",
		paramlit.CodeFieldCountMismatch: "entry has {got} fields, layout expects {want}",
		paramlit.CodeMissingAnchor:      "insertion anchor not found",
		paramlit.CodeMissingBlock:       "no case array found",
		paramlit.CodeInvalidValue:       "invalid value",
		paramlit.CodeInvalidRecord:      "invalid record",
		paramlit.CodeInvalidSchema:      "invalid layout descriptor",
		paramlit.CodeDuplicateKey:       "duplicate key {key}",
	},
	"zh": {
		paramlit.CodeMalformedLiteral:   "字面量格式错误",
		paramlit.CodeUnsupportedSchema:  "{type} 没有 {count} 个字段的布局",
		paramlit.CodeAmbiguousSchema:    "{type} 的 {count} 个字段匹配多个布局: {candidates}",
		paramlit.CodeFieldCountMismatch: "用例有 {got} 个字段, 布局需要 {want} 个",
		paramlit.CodeMissingAnchor:      "未找到插入锚点",
		paramlit.CodeMissingBlock:       "未找到用例数组",
		paramlit.CodeInvalidValue:       "字段值无效",
		paramlit.CodeInvalidRecord:      "用例记录无效",
		paramlit.CodeInvalidSchema:      "布局描述无效",
		paramlit.CodeDuplicateKey:       "重复的键 {key}",
	},
}

func (t dictTranslator) Message(code string, data map[string]string) string {
	msg, ok := dict[t.lang][code]
	if !ok {
		if msg, ok = dict["en"][code]; !ok {
			return code
		}
	}
	if strings.IndexByte(msg, '{') < 0 {
		return msg
	}
	for k, v := range data {
		msg = strings.ReplaceAll(msg, "{"+k+"}", v)
	}
	return msg
}

var (
	mu                           sync.RWMutex
	currentTranslator Translator = dictTranslator{lang: "en"}
)

// SetLanguage switches the built-in Translator language ("en"/"zh").
func SetLanguage(lang string) {
	if lang != "zh" {
		lang = "en"
	}
	SetTranslator(dictTranslator{lang: lang})
}

// SetTranslator replaces the Translator implementation (not limited to the
// dictionary version).
func SetTranslator(tr Translator) {
	if tr == nil {
		tr = dictTranslator{lang: "en"}
	}
	mu.Lock()
	currentTranslator = tr
	mu.Unlock()
}

// T fetches a message for the given code using the current Translator.
func T(code string, data map[string]string) string {
	mu.RLock()
	tr := currentTranslator
	mu.RUnlock()
	return tr.Message(code, data)
}

// Describe renders an issue with its location and localized summary,
// followed by the detailed message when it differs.
func Describe(it paramlit.Issue) string {
	data := make(map[string]string, len(it.Params))
	for k, p := range it.Params {
		switch v := p.(type) {
		case []string:
			data[k] = strings.Join(v, ", ")
		default:
			data[k] = fmt.Sprint(v)
		}
	}
	summary := T(it.Code, data)
	if strings.IndexByte(summary, '{') >= 0 {
		// unfilled placeholders
		summary = it.Code
	}
	b := &strings.Builder{}
	b.WriteString(it.Location())
	b.WriteString(": ")
	b.WriteString(summary)
	if it.Message != "" && it.Message != summary {
		b.WriteString(": ")
		b.WriteString(it.Message)
	}
	return b.String()
}
