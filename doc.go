package paramlit

// Package paramlit provides:
//
// - A Value/Record model for structured test-case data (ordered, immutable)
// - A lexical splitter for C++ positional initializer lists (SplitEntries/SplitFields)
// - A stable error model via Issues (file path, byte offset, entry index, code)
//
// Design policy:
// - Keep only the data model and error model in the root package; put the
//   scanner under internal/scan.
// - Place value codecs under codec/, layouts under schema/, the decoder and
//   encoder under transcode/, and skeleton patching under skeleton/.
// - JSONL record streams live in source/jsonl; the CLI lives in cmd/paramlit.
//
// Typical usage:
//
//  doc, err := transcode.Decode(src, transcode.DecodeOpt{Registry: schema.Default()})
//  out, err := transcode.Encode(doc.Records, doc.Schema, transcode.EncodeOpt{SharedField: "compile_info"})
//  text, diag := skeleton.Patch(skel, out.Array, out.Constant)
