// Package buffer provides Document, the editor-facing text buffer built on
// the range tree. It is the layer consumers (scripting, the viewer, the CLI)
// talk to; they never touch tree nodes directly.
//
// The buffer package provides:
//
//   - Thread-safe access via sync.Mutex
//   - Files opened through a bounded page cache instead of read into memory
//   - Line and column math driven by the per-node text summary
//   - UTF-16 coordinate support for LSP compatibility
//   - Copy and paste of ranges without duplicating bytes
//   - Saving by temp file and rename, with external change detection
//
// Basic usage:
//
//	doc, err := buffer.Open("server.log")
//	if err != nil {
//		return err
//	}
//	defer doc.Close()
//
//	doc.Insert(0, "# reviewed\n")
//	clip, _ := doc.Copy(0, 11)
//	doc.Paste(doc.Len(), clip)
//	clip.Release()
//
//	if err := doc.Save(""); err != nil {
//		return err
//	}
//
// Position Types:
//
//   - ByteOffset: Raw byte position in the document
//   - Point: Line and column position (0-indexed, column in bytes)
//   - PointUTF16: Line and column position with UTF-16 code unit column
//
// Reads may load pages from disk, so every method, reads included, takes
// the document's lock. A Snapshot is an independent, cheap copy that can be
// read from other goroutines.
package buffer
