// Package emit serializes compiled documents to text.
//
// Emit turns an ir.Document into Markdown with optional YAML front matter.
// EmitSkill additionally produces the operation scripts of a stateful
// skill. Both are pure: the same document always yields byte-identical,
// NFC-normalized output.
//
// Rendering rules:
//   - Blocks are separated by exactly one blank line.
//   - Runs of inline nodes between blocks form one paragraph.
//   - Include nodes are transparent; their children render in place.
//   - Control flow renders as bold-lead prose for the runtime to follow.
//   - Shell snippets are parsed and reprinted so malformed commands fail
//     the build instead of reaching the runtime.
package emit
