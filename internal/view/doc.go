// Package view is a read-only terminal pager over a document.
//
// It reads lines through the document's line index, so only the visible
// part of a large file is ever paged in. Layout is grapheme aware: wide
// characters take two columns and combining marks stay with their base.
// When the file changes on disk a banner offers to reload it.
package view
