package skeleton

import (
	"strings"
	"text/template"

	"github.com/utgen/paramlit"
	"github.com/utgen/paramlit/schema"
)

// File describes a skeleton to render.
type File struct {
	Header   string // verbatim text placed first, such as a license comment
	Includes []string
	Schema   *schema.Descriptor
	Fixture  string // defaults to the type name with Param replacing TestParam
	Suite    string // label printed by the fixture hooks
}

// DefaultIncludes are used when File.Includes is empty.
var DefaultIncludes = []string{"<iostream>", "<vector>", "<string>", "<gtest/gtest.h>", `"mc2_tiling_case_executor.h"`}

type member struct{ CType, Name string }

type fileView struct {
	Header    string
	Includes  []string
	Type      string
	Members   []member
	Fixture   string
	Suite     string
	Array     string
	NameField string
}

var skeletonTmpl = template.Must(template.New("skeleton").Parse(`{{with .Header}}{{.}}
{{end}}{{range .Includes}}#include {{.}}
{{end}}
using namespace std;

namespace {

struct {{.Type}} {
{{- range .Members}}
    {{.CType}} {{.Name}};
{{- end}}
};

class {{.Fixture}} : public ::testing::TestWithParam<{{.Type}}> {
protected:
    static void SetUpTestCase()
    {
        std::cout << "{{.Suite}} SetUp" << std::endl;
    }

    static void TearDownTestCase()
    {
        std::cout << "{{.Suite}} TearDown" << std::endl;
    }
};

void TestOneParamCase(const {{.Type}} &param)
{
    // build the tiling context for this operator from param
    (void)param;
}

TEST_P({{.Fixture}}, general_case)
{
    const auto &param = GetParam();
    TestOneParamCase(param);
}

INSTANTIATE_TEST_SUITE_P(
    general_cases_params,
    {{.Fixture}},
    ::testing::ValuesIn({{.Array}}),
    [](const ::testing::TestParamInfo<{{.Type}}> &info) {
{{- if .NameField}}
        std::string name = info.param.{{.NameField}};
{{- else}}
        std::string name = "case_" + std::to_string(info.index);
{{- end}}
        for (char &c : name) {
            if (!std::isalnum(static_cast<unsigned char>(c)) && c != '_') {
                c = '_';
            }
        }
        return name;
    });

} // anonymous namespace
`))

// Render renders f as a skeleton without a case array.
func Render(f File) (string, error) {
	d := f.Schema
	if d == nil {
		return "", paramlit.Errorf(paramlit.CodeUnsupportedSchema, "nil schema")
	}
	v := fileView{
		Header:   strings.TrimRight(f.Header, "\n"),
		Includes: f.Includes,
		Type:     d.Name,
		Fixture:  f.Fixture,
		Suite:    f.Suite,
		Array:    d.Layout.Array(),
	}
	if len(v.Includes) == 0 {
		v.Includes = DefaultIncludes
	}
	base := strings.TrimSuffix(d.Name, "TestParam")
	if v.Fixture == "" {
		v.Fixture = base + "Param"
	}
	if v.Suite == "" {
		v.Suite = base
	}
	for _, fd := range d.Fields {
		ctype := fd.CType
		if ctype == "" {
			ctype = fd.Kind.CType()
		}
		v.Members = append(v.Members, member{CType: ctype, Name: fd.Name})
		if v.NameField == "" && (fd.Name == "case_name" || fd.Name == "test_name") {
			v.NameField = fd.Name
		}
	}
	var b strings.Builder
	if err := skeletonTmpl.Execute(&b, v); err != nil {
		return "", err
	}
	return b.String(), nil
}

// Generate renders the default skeleton for d.
func Generate(d *schema.Descriptor) (string, error) { return Render(File{Schema: d}) }
