// Package augment provides the line and text metrics that the editor keeps
// on every range tree node.
//
// Summary is computed byte by byte so that leaves may be split anywhere,
// including inside a multi-byte UTF-8 sequence, and still combine to the
// summary of the whole text.
package augment
