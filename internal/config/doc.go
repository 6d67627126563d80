// Package config loads rangebuf settings.
//
// Settings come from three layers, later layers overriding earlier ones:
//
//  1. Built-in defaults (Default)
//  2. A configuration file, TOML or YAML by extension
//  3. Environment variables prefixed with RANGEBUF_
//
// A missing configuration file is not an error. A file looks like:
//
//	[engine]
//	page_size = 16384
//	max_cache_bytes = 8388608
//	max_node_size = 4096
//	shrink_ratio = 0.5
//
//	[log]
//	level = "info"
//	format = "text"
//
//	[watch]
//	enabled = true
//
// Environment overrides use short names for common settings
// (RANGEBUF_LOG_LEVEL, RANGEBUF_PAGE_SIZE, RANGEBUF_MAX_CACHE_BYTES,
// RANGEBUF_MAX_NODE_SIZE, RANGEBUF_WATCH) and RANGEBUF_<SECTION>_<KEY> for
// everything else.
package config
