// Package layout parses and renders file placement templates.
//
// A layout is a string such as "{table_name}/{load_id}.{file_id}.{ext}"
// mixing literal text with placeholders from a fixed set:
// schema_name, table_name, load_id, file_id and ext. When a layout has
// no {ext} placeholder, ".{ext}" is appended so every file keeps its format
// suffix.
//
// Besides rendering, a Template derives the literal prefix shared by every
// file of one table. Truncation relies on that prefix to find a table's
// files with a single listing, so a layout that cannot isolate tables is
// rejected with an AmbiguousPrefixError instead of guessing.
package layout
