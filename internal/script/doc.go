// Package script runs Lua edit scripts against a document.
//
// A script sees the document through the global table buf:
//
//	buf.len()                    -> bytes
//	buf.lines()                  -> line count
//	buf.line(n)                  -> text of line n (1-indexed)
//	buf.line_start(n)            -> byte offset where line n starts
//	buf.raw(start, end)          -> text in [start, end)
//	buf.insert(offset, text [, group]) -> end offset
//	buf.delete(start, end)
//	buf.replace(start, end, text) -> end offset
//	buf.copy(start, end)         -> clip
//	buf.paste(offset, clip)      -> end offset
//	buf.fuse([start, end])
//	buf.group()                  -> new fuse group id
//	buf.save([path])
//	buf.path()                   -> backing file or ""
//
// Byte offsets are zero-based, lines one-based. A clip has len(), text()
// and release() methods; clips still alive when the runner closes are
// released then.
//
// Scripts get the base, table, string and math libraries only; dofile,
// loadfile and load are removed. print writes to the runner's output.
package script
