package schema

import (
	"strings"

	"github.com/utgen/paramlit"
	"github.com/utgen/paramlit/codec"
)

// Common dtype defaults.
const (
	DTFloat16 = "ge::DT_FLOAT16"
	DTFloat   = "ge::DT_FLOAT"
)

// CompileInfo is the conventional name of the hoisted compile-info constant.
const CompileInfo = "COMPILE_INFO"

// caseListComment precedes the case array in the matmul family suites.
const caseListComment = "// 用例列表集"

func u64(name string) Field { return Field{Name: name, Kind: codec.Int, CType: "uint64_t"} }
func i64(name string) Field { return Field{Name: name, Kind: codec.Int} }
func str(name string) Field { return Field{Name: name, Kind: codec.String} }
func flag(name string) Field { return Field{Name: name, Kind: codec.Bool} }

// key is the tiling key member. The camelCase spelling renders as decimal
// with a UL suffix; the snake_case one is an ordinary integer.
func key(name string) Field {
	if name == "expectTilingKey" {
		return Field{Name: name, Kind: codec.TilingKey}
	}
	return u64(name)
}

func shape(name string) Field { return Field{Name: name + "_shape", Kind: codec.IntList} }

func dtype(name, def string) Field {
	return Field{Name: name + "_dtype", Kind: codec.Symbol, Default: paramlit.Symbol(def)}
}

func shapes(names ...string) []Field {
	out := make([]Field, len(names))
	for i, n := range names {
		out[i] = shape(n)
	}
	return out
}

func dtypes(def string, names ...string) []Field {
	out := make([]Field, len(names))
	for i, n := range names {
		out[i] = dtype(n, def)
	}
	return out
}

// interleaved yields name_shape, name_dtype for every name.
func interleaved(names ...string) []Field {
	out := make([]Field, 0, 2*len(names))
	for _, n := range names {
		out = append(out, shape(n), dtype(n, DTFloat16))
	}
	return out
}

func fields(groups ...[]Field) []Field {
	var out []Field
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

func list(fs ...Field) []Field { return fs }

// header7 opens the layouts that carry a compile-info string.
func header7() []Field {
	return list(u64("inputTotalNum"), str("case_name"), str("compile_info"), str("soc_version"),
		u64("coreNum"), u64("ubSize"), u64("tilingDataSize"))
}

func compileInfo(ctype string) *Constant {
	return &Constant{Field: "compile_info", Name: CompileInfo, CType: ctype, Raw: true}
}

var matmulOperands = []string{
	"x1", "x2", "bias", "x3",
	"antiquant_scale", "antiquant_offset", "dequant_scale", "pertoken_scale",
	"comm_quant_scale_1", "comm_quant_scale_2",
	"output",
}

// matmulFields is the 32 member layout shared by the all-gather, all-reduce
// and reduce-scatter matmul suites. Quantization operands default to fp32.
func matmulFields(tail ...Field) []Field {
	return fields(
		header7(),
		shapes(matmulOperands...),
		dtypes(DTFloat16, "x1", "x2", "bias", "x3"),
		dtypes(DTFloat, matmulOperands[4:10]...),
		list(dtype("output", DTFloat16), flag("is_trans_a"), flag("is_trans_b")),
		tail,
	)
}

// matmulLayout breaks before the shapes, the output shape, the
// quantization dtypes and the output dtype.
var matmulLayout = Layout{
	Comment:      caseListComment,
	Indent:       "    ",
	Continuation: "        ",
	Breaks:       []int{7, 17, 22, 28},
	BlankBetween: true,
}

var combineOperands = []string{
	"expand_x", "expert_ids", "assist_info_for_combine", "ep_send_counts", "expert_scales",
	"tp_send_counts", "x_active_mask", "activation_scale", "weight_scale", "group_list",
	"expand_scales", "shared_expert_x", "elastic_info", "ori_x",
	"const_expert_alpha_1", "const_expert_alpha_2", "const_expert_v",
}

func moeAttrs(epGroup, tpGroup string) []Field {
	return list(str(epGroup), i64("ep_world_size"), i64("ep_rank_id"), i64("moe_expert_num"),
		str(tpGroup), i64("tp_world_size"), i64("tp_rank_id"), i64("expert_shard_type"),
		i64("shared_expert_num"), i64("shared_expert_rank_num"))
}

func indexed(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = prefix + string(rune('0'+i))
	}
	return out
}

func expectKey() []Field {
	return list(flag("has_expect_tiling_key"), key("expect_tiling_key"))
}

// Builtins returns fresh copies of the built-in descriptors.
func Builtins() []*Descriptor {
	allGatherV2 := &Descriptor{
		Name:     "AllGatherMatmulTilingTestParam",
		Variant:  "v2",
		Doc:      "all-gather matmul with an expected-success flag",
		Fields:   matmulFields(flag("expectSuccess"), key("expectTilingKey")),
		Marker:   "bool expectSuccess;",
		Constant: compileInfo("std::string"),
		Layout:   matmulLayout,
	}

	dispatchV2Legacy := fields(
		list(u64("inputTotalNum"), u64("outputTotalNum"), str("case_name"), str("soc_version"), u64("coreNum"), u64("ubSize")),
		shapes(indexed("input", 6)...), shapes(indexed("output", 7)...),
		dtypes(DTFloat16, indexed("input", 6)...), dtypes(DTFloat16, indexed("output", 7)...),
		list(str("ep_group"), str("tp_group"), i64("ep_world_size"), i64("tp_world_size"),
			i64("ep_rank_id"), i64("tp_rank_id"), i64("expert_shard_type"), i64("shared_expert_num"),
			i64("shared_expert_rank_num"), i64("moe_expert_num"), i64("quant_mode"), i64("global_bs"),
			i64("expert_token_nums_type"), str("comm_alg"), i64("zero_expert_num"), i64("copy_expert_num"),
			i64("const_expert_num")),
		expectKey(),
	)

	return []*Descriptor{
		{
			Name:     "AllGatherMatmulTilingTestParam",
			Doc:      "all-gather matmul",
			Fields:   matmulFields(key("expectTilingKey")),
			Constant: compileInfo("std::string"),
			Layout:   matmulLayout,
			Claims: func(p Probe) bool {
				if p.FieldCount >= 0 {
					return p.FieldCount == 32
				}
				return p.Source == "" || !strings.Contains(p.Source, allGatherV2.Marker)
			},
		},
		allGatherV2,
		{
			Name:     "MatmulAllReduceTilingTestParam",
			Doc:      "matmul all-reduce; one entry per line",
			Fields:   matmulFields(key("expectTilingKey")),
			Constant: compileInfo("string"),
			Layout:   Layout{Comment: caseListComment, Separator: ","},
			NameOnly: true,
		},
		{
			Name: "MatmulReduceScatterTilingTestParam",
			Doc:  "matmul reduce-scatter",
			Fields: fields(
				list(u64("inputTotalNum"), str("case_name"), str("soc_version"), u64("coreNum"), u64("ubSize")),
				shapes("x1", "x2", "x3", "x4", "y"),
				dtypes(DTFloat16, "x1", "x2", "x3", "x4", "y"),
				list(flag("is_trans_a"), flag("is_trans_b"), key("expectTilingKey")),
			),
			Layout: Layout{Indent: "    "},
		},
		{
			Name: "MatmulReduceScatterV2TilingTestParam",
			Doc:  "matmul reduce-scatter v2",
			Fields: fields(
				list(u64("inputTotalNum"), str("case_name"), str("soc_version"), u64("coreNum"), u64("ubSize"),
					u64("tilingDataSize"), str("compile_info")),
				shapes("x1", "x2", "y"),
				dtypes(DTFloat16, "x1", "x2", "y"),
				list(flag("is_trans_a"), flag("is_trans_b"), key("expectTilingKey")),
			),
			Constant: compileInfo("string"),
			Layout:   Layout{Indent: "    "},
		},
		{
			Name:     "MatmulReduceScatterV2TilingTestParam",
			Variant:  "flat",
			Doc:      "matmul reduce-scatter v2 with the full quantization operand set",
			Fields:   matmulFields(key("expectTilingKey")),
			Constant: compileInfo("string"),
			Layout:   matmulLayout,
			NameOnly: true,
		},
		{
			Name: "DistributeBarrierTilingTestParam",
			Doc:  "distribute barrier; the expected tiling data is hoisted",
			Fields: list(str("case_name"), i64("m"), i64("n"), Field{Name: "dtype", Kind: codec.Symbol, Default: paramlit.Symbol(DTFloat16)}, str("group"),
				i64("world_size"), str("soc_version"), u64("coreNum"), u64("ubSize"), key("expectTilingKey"),
				str("expectTilingData"),
				Field{Name: "expectWorkspaces", Kind: codec.IntList, CType: "std::vector<size_t>"},
				u64("mc2TilingDataReservedLen")),
			Constant: &Constant{Field: "expectTilingData", Name: CompileInfo, CType: "std::string"},
			Layout:   Layout{Indent: "    ", Continuation: "        ", Breaks: []int{6}},
		},
		{
			Name:  "BatchMatMulReduceScatterAlltoAllTilingTestParam",
			Doc:   "batch matmul reduce-scatter all-to-all",
			Remap: map[string]string{"w_shape": "weight_shape", "w_dtype": "weight_dtype"},
			Fields: fields(
				header7(),
				interleaved("x", "w", "bias", "y"),
				list(str("group_ep"), str("group_tp"), i64("ep_world_size"), i64("tp_world_size"),
					i64("y_shard_type"), flag("transpose_weight"), flag("hasExpectTilingKey"), key("expectTilingKey")),
			),
			Constant: compileInfo("std::string"),
			Layout:   Layout{Indent: "    "},
		},
		{
			Name:    "BatchMatMulReduceScatterAlltoAllTilingTestParam",
			Variant: "legacy",
			Doc:     "batch matmul reduce-scatter all-to-all without compile info",
			Remap:   map[string]string{"w_shape": "weight_shape", "w_dtype": "weight_dtype"},
			Fields: fields(
				list(u64("inputTotalNum"), str("case_name"), u64("coreNum"), u64("ubSize")),
				shapes("x", "w", "bias", "y"),
				dtypes(DTFloat16, "x", "w", "bias", "y"),
				list(str("group_ep"), str("group_tp"), i64("ep_world_size"), i64("tp_world_size"),
					i64("y_shard_type"), flag("transpose_weight"), flag("hasExpectTilingKey"), key("expectTilingKey")),
			),
			Layout:   Layout{Indent: "    "},
			NameOnly: true,
		},
		{
			Name: "GroupedMatMulAllReduceTilingTestParam",
			Doc:  "grouped matmul all-reduce",
			Fields: fields(
				list(str("case_name"), str("compile_info"), str("soc_version"), u64("coreNum"), u64("ubSize"), u64("tilingDataSize")),
				interleaved("x", "weight", "bias", "group_list", "y"),
				list(i64("splitItem"), str("group"), str("reduceOp"), i64("commTurn"), key("expectTilingKey")),
			),
			Constant: compileInfo("std::string"),
			Layout:   Layout{Indent: "    "},
		},
		{
			Name:    "GroupedMatMulAllReduceTilingTestParam",
			Variant: "legacy",
			Doc:     "grouped matmul all-reduce with a rank count",
			Fields: fields(
				list(str("case_name"), str("soc_version"), u64("coreNum"), u64("ubSize"), u64("tilingDataSize")),
				shapes("x1", "x2", "output"),
				dtypes(DTFloat16, "x1", "x2", "output"),
				list(i64("rankNum"), key("expectTilingKey")),
			),
			Layout:   Layout{Indent: "    "},
			NameOnly: true,
		},
		{
			Name: "AlltoAllAllGatherBmmTilingTestParam",
			Doc:  "all-to-all all-gather batch matmul",
			Fields: list(str("case_name"), str("soc_version"), u64("coreNum"), u64("ubSize"), u64("tilingDataSize"),
				Field{Name: "input_shapes", Kind: codec.IntMatrix},
				Field{Name: "input_dtypes", Kind: codec.SymbolList},
				Field{Name: "output_shape", Kind: codec.IntList, CType: "std::vector<int64_t>"},
				dtype("output", DTFloat16),
				str("group_ep"), str("group_tp"), i64("ep_world_size"), i64("tp_world_size"),
				i64("x_shard_type"), i64("act_type"),
				flag("transpose_weight"), flag("output_y2_flag"), flag("output_y3_flag"),
				flag("has_expect_tiling_key"), key("expect_tiling_key")),
			Layout: Layout{Indent: "    "},
		},
		{
			Name: "AlltoAllvGroupedMatMulTilingTestParam",
			Doc:  "all-to-all-v grouped matmul",
			Fields: list(str("case_name"),
				u64("BSK"), u64("BS"), u64("K"), u64("H1"), u64("H2"), u64("A"), u64("N1"), u64("N2"),
				u64("ep_world_size"), u64("e"), u64("commOut"), u64("aivCoreNum"), u64("aicCoreNum"),
				u64("coreNum"), u64("totalUbSize"), u64("gmm_weight_dim1"), u64("gmm_y_dim1"), u64("mm_weight_dim0"),
				flag("trans_gmm_weight"), flag("trans_mm_weight"), flag("permute_out_flag"), flag("is_Need_MM"),
				str("group"),
				Field{Name: "send_counts", Kind: codec.IntList, CType: "std::vector<int64_t>"},
				Field{Name: "recv_counts", Kind: codec.IntList, CType: "std::vector<int64_t>"},
				key("expect_tiling_key")),
			Layout: Layout{Indent: "    "},
		},
		{
			Name: "MoeDistributeCombineTilingTestParam",
			Doc:  "MoE distribute combine",
			Fields: fields(
				list(str("case_name"), str("soc_version"), u64("coreNum"), u64("ubSize")),
				shapes(indexed("input", 6)...), shapes("output"),
				dtypes(DTFloat16, indexed("input", 6)...), dtypes(DTFloat16, "output"),
				list(str("ep_group"), str("tp_group"), i64("ep_world_size"), i64("tp_world_size"),
					i64("ep_rank_id"), i64("tp_rank_id"), i64("expert_shard_type"), i64("shared_expert_num"),
					i64("shared_expert_rank_num"), i64("moe_expert_num"), i64("global_bs"), i64("out_dtype"),
					i64("comm_quant_mode"), i64("group_list_type")),
				expectKey(),
			),
			Layout: Layout{Indent: "    "},
		},
		{
			Name: "MoeDistributeCombineV2TilingTestParam",
			Doc:  "MoE distribute combine v2 with tensor descriptions and attributes",
			Fields: list(str("case_name"), str("soc_version"), u64("coreNum"), u64("ubSize"),
				Field{Name: "inputs", Kind: codec.Tensors},
				Field{Name: "outputs", Kind: codec.Tensors},
				Field{Name: "attrs", Kind: codec.Attrs},
				flag("hasExpectTilingKey"), key("expectTilingKey")),
			Layout: Layout{Indent: "    ", Continuation: "        ", Expanded: true},
		},
		{
			Name:    "MoeDistributeCombineV2TilingTestParam",
			Variant: "flat",
			Doc:     "MoE distribute combine v2, one member per operand",
			Fields: fields(
				list(str("case_name"), str("compile_info"), str("soc_version"), u64("coreNum"), u64("ubSize"), u64("tilingDataSize")),
				interleaved(append(append([]string(nil), combineOperands...), "performance_info", "x")...),
				moeAttrs("ep_group", "tp_group"),
				list(i64("global_bs"), i64("out_dtype"), i64("comm_quant_mode"), i64("group_list_type"),
					str("comm_alg"), i64("zero_expert_num"), i64("copy_expert_num"), i64("const_expert_num")),
				expectKey(),
			),
			Constant: compileInfo("std::string"),
			Layout:   Layout{Indent: "    "},
		},
		{
			Name:  "MoeDistributeCombineAddRmsNormTilingTestParam",
			Doc:   "MoE distribute combine fused with add and RMS norm",
			Remap: map[string]string{"group_ep": "ep_group", "group_tp": "tp_group"},
			Fields: fields(
				list(str("case_name"), str("compile_info"), str("soc_version"), u64("coreNum"), u64("ubSize"), u64("tilingDataSize")),
				interleaved(combineOperands[:5]...),
				interleaved("residual_x", "gamma"),
				interleaved(combineOperands[5:]...),
				interleaved("y", "rstdOut", "x"),
				moeAttrs("group_ep", "group_tp"),
				list(i64("global_bs"), i64("out_dtype"), i64("comm_quant_mode"), i64("group_list_type"),
					str("comm_alg"), Field{Name: "norm_eps", Kind: codec.Float},
					i64("zero_expert_num"), i64("copy_expert_num"), i64("const_expert_num"), key("expectTilingKey")),
			),
			Constant: compileInfo("std::string"),
			Layout:   Layout{Indent: "    "},
		},
		{
			Name: "MoeDistributeDispatchTilingTestParam",
			Doc:  "MoE distribute dispatch",
			Fields: fields(
				header7(),
				interleaved(indexed("input", 5)...),
				interleaved(indexed("output", 6)...),
				moeAttrs("ep_group", "tp_group"),
				list(i64("quant_mode"), i64("global_bs"), i64("expert_token_nums_type")),
				expectKey(),
			),
			Constant: compileInfo("std::string"),
			Layout:   Layout{Indent: "    "},
		},
		{
			Name:    "MoeDistributeDispatchTilingTestParam",
			Variant: "legacy",
			Doc:     "MoE distribute dispatch without compile info",
			Fields: fields(
				list(u64("inputTotalNum"), str("case_name"), str("soc_version"), u64("coreNum"), u64("ubSize")),
				shapes(indexed("input", 3)...), shapes(indexed("output", 6)...),
				dtypes(DTFloat16, indexed("input", 3)...), dtypes(DTFloat16, indexed("output", 6)...),
				list(str("ep_group"), str("tp_group"), i64("ep_world_size"), i64("tp_world_size"),
					i64("ep_rank_id"), i64("tp_rank_id"), i64("expert_shard_type"), i64("shared_expert_num"),
					i64("shared_expert_rank_num"), i64("moe_expert_num"), i64("quant_mode"), i64("global_bs"),
					i64("expert_token_nums_type")),
				expectKey(),
			),
			Layout: Layout{Indent: "    "},
		},
		{
			Name: "MoeDistributeDispatchV2TilingTestParam",
			Doc:  "MoE distribute dispatch v2",
			Fields: fields(
				list(str("case_name"), str("compile_info"), str("soc_version"), u64("coreNum"), u64("ubSize"), u64("tilingDataSize")),
				interleaved("x", "expert_ids", "scales", "x_active_mask", "expert_scales", "elastic_info",
					"performance_info", "expand_x", "dynamic_scales", "assist_info_for_combine",
					"expert_token_nums", "ep_recv_count", "tp_recv_count", "expand_scales"),
				moeAttrs("ep_group", "tp_group"),
				list(i64("quant_mode"), i64("global_bs"), i64("expert_token_nums_type"), str("comm_alg"),
					i64("zero_expert_num"), i64("copy_expert_num"), i64("const_expert_num")),
				expectKey(),
			),
			Constant: compileInfo("std::string"),
			Layout:   Layout{Indent: "    "},
		},
		{
			Name:    "MoeDistributeDispatchV2TilingTestParam",
			Variant: "legacy",
			Doc:     "MoE distribute dispatch v2 with indexed operands",
			Fields:  dispatchV2Legacy,
			Layout:  Layout{Indent: "    "},
		},
		{
			Name: "TestParam",
			Doc:  "legacy key/value parameter lists",
			Fields: list(
				Field{Name: "test_name", Kind: codec.String, CType: "string"},
				Field{Name: "tiling_params_str_pair", Kind: codec.StringPairs, CType: "vector<pair<string, string>>"},
				Field{Name: "tiling_params_vec_pair", Kind: codec.NamedIntLists, CType: "vector<pair<string, vector<int64_t>>>"},
				Field{Name: "tiling_dTypes_pair", Kind: codec.IndexSymbolPairs, CType: "vector<pair<size_t, ge::DataType>>"},
				Field{Name: "status", Kind: codec.Symbol, CType: "ge::graphStatus", Default: paramlit.Symbol("ge::GRAPH_SUCCESS")},
			),
			Layout: Layout{ArrayName: "test_params", Indent: "    "},
		},
	}
}
