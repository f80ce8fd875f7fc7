package layout

import (
	"fmt"
	"path"
	"slices"
	"strings"
)

// Placeholder names accepted in a layout.
const (
	SchemaName = "schema_name"
	TableName  = "table_name"
	LoadID     = "load_id"
	FileID     = "file_id"
	Ext        = "ext"
)

var supportedPlaceholders = []string{SchemaName, TableName, LoadID, FileID, Ext}

// DefaultPrefixPlaceholders may precede {table_name} without making the
// table prefix ambiguous.
var DefaultPrefixPlaceholders = []string{SchemaName}

// Values are the components substituted into a layout.
type Values struct {
	SchemaName string
	TableName  string
	LoadID     string
	FileID     string
	Ext        string
}

func (v Values) lookup(name string) string {
	switch name {
	case SchemaName:
		return v.SchemaName
	case TableName:
		return v.TableName
	case LoadID:
		return v.LoadID
	case FileID:
		return v.FileID
	case Ext:
		return v.Ext
	}
	return ""
}

// segment is either literal text or a placeholder name.
type segment struct {
	literal     string
	placeholder string
}

func (s segment) isPlaceholder() bool {
	return s.placeholder != ""
}

func (s segment) raw() string {
	if s.isPlaceholder() {
		return "{" + s.placeholder + "}"
	}
	return s.literal
}

// Template is a parsed, validated layout. It is immutable and safe for
// concurrent use.
type Template struct {
	raw      string
	segments []segment
}

// Parse validates a layout and returns its template.
func Parse(raw string) (*Template, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, &Error{Layout: raw, Message: "layout is empty"}
	}

	var (
		segments []segment
		literal  strings.Builder
		unknown  []string
	)

	flush := func() {
		if literal.Len() > 0 {
			segments = append(segments, segment{literal: literal.String()})
			literal.Reset()
		}
	}

	for i := 0; i < len(raw); i++ {
		switch raw[i] {
		case '{':
			end := strings.IndexAny(raw[i+1:], "{}")
			if end < 0 || raw[i+1+end] != '}' {
				return nil, &Error{
					Layout:  raw,
					Message: fmt.Sprintf("unclosed placeholder at offset %d", i),
					Hint:    "Placeholders are written as {name}; braces cannot be nested.",
				}
			}
			name := raw[i+1 : i+1+end]
			if name == "" {
				return nil, &Error{Layout: raw, Message: fmt.Sprintf("empty placeholder at offset %d", i)}
			}
			if !slices.Contains(supportedPlaceholders, name) {
				unknown = append(unknown, name)
			}
			flush()
			segments = append(segments, segment{placeholder: name})
			i += end + 1
		case '}':
			return nil, &Error{
				Layout:  raw,
				Message: fmt.Sprintf("unmatched '}' at offset %d", i),
				Hint:    "Placeholders are written as {name}; braces cannot be nested.",
			}
		default:
			literal.WriteByte(raw[i])
		}
	}
	flush()

	if len(unknown) > 0 {
		return nil, &Error{
			Layout:  raw,
			Message: fmt.Sprintf("unknown placeholders: %s", strings.Join(unknown, ", ")),
			Hint:    "Supported placeholders: " + strings.Join(supportedPlaceholders, ", "),
		}
	}

	t := &Template{raw: raw, segments: segments}
	if !t.has(Ext) {
		if n := len(segments); n > 0 && !segments[n-1].isPlaceholder() {
			segments[n-1].literal += "."
		} else {
			segments = append(segments, segment{literal: "."})
		}
		t.segments = append(segments, segment{placeholder: Ext})
	}
	return t, nil
}

// MustParse is like Parse but panics on error. It is meant for constants.
func MustParse(raw string) *Template {
	t, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return t
}

// String returns the layout as written by the user.
func (t *Template) String() string {
	return t.raw
}

// Effective returns the layout that is actually rendered, including an
// appended ".{ext}".
func (t *Template) Effective() string {
	var b strings.Builder
	for _, s := range t.segments {
		b.WriteString(s.raw())
	}
	return b.String()
}

func (t *Template) has(name string) bool {
	return slices.ContainsFunc(t.segments, func(s segment) bool { return s.placeholder == name })
}

// Placeholders returns the distinct placeholders in order of first use.
func (t *Template) Placeholders() []string {
	var out []string
	for _, s := range t.segments {
		if s.isPlaceholder() && !slices.Contains(out, s.placeholder) {
			out = append(out, s.placeholder)
		}
	}
	return out
}

// Warnings lists layout properties that are legal but likely mistakes.
func (t *Template) Warnings() []string {
	var warnings []string
	if !t.has(TableName) {
		warnings = append(warnings, "layout has no {table_name}: tables cannot be truncated")
	}
	if !t.has(FileID) {
		warnings = append(warnings, "layout has no {file_id}: files of the same table and load overwrite each other")
	}
	if !t.has(LoadID) {
		warnings = append(warnings, "layout has no {load_id}: files of later loads overwrite earlier ones")
	}
	return warnings
}

// Render substitutes values into the template. Every placeholder used by
// the template must resolve to a non-empty value. Values are not escaped.
func (t *Template) Render(v Values) (string, error) {
	var b strings.Builder
	for _, s := range t.segments {
		if !s.isPlaceholder() {
			b.WriteString(s.literal)
			continue
		}
		value := v.lookup(s.placeholder)
		if value == "" {
			return "", &Error{Layout: t.raw, Message: fmt.Sprintf("no value for {%s}", s.placeholder)}
		}
		b.WriteString(value)
	}
	return b.String(), nil
}

// TablePrefix returns the literal path prefix shared by every file of table,
// using DefaultPrefixPlaceholders. The prefix is cleaned the way a rendered
// path is once joined to the dataset root: repeated and leading slashes and
// "." elements are dropped, and a trailing slash separator is kept.
func (t *Template) TablePrefix(schema, table string) (string, error) {
	idx, sep, err := t.prefixBoundary(DefaultPrefixPlaceholders)
	if err != nil {
		err.Table = table
		return "", err
	}

	if table == "" {
		return "", &AmbiguousPrefixError{Layout: t.raw, Reason: "table name is empty"}
	}
	if strings.ContainsAny(table, sep+"/") {
		return "", &AmbiguousPrefixError{
			Layout: t.raw,
			Table:  table,
			Reason: fmt.Sprintf("table name contains the separator %q", sep),
		}
	}

	var b strings.Builder
	for _, s := range t.segments[:idx] {
		if !s.isPlaceholder() {
			b.WriteString(s.literal)
			continue
		}
		// only schema_name can appear here
		if schema == "" {
			return "", &Error{Layout: t.raw, Message: "no value for {" + s.placeholder + "}"}
		}
		b.WriteString(schema)
	}
	b.WriteString(table)
	return CleanPrefix(b.String()) + sep, nil
}

// CleanPrefix cleans a relative path prefix as path.Join would when joining
// it to a root: "/orders", "./orders" and "sales//orders" become "orders"
// and "sales/orders". Leading ".." elements are kept.
func CleanPrefix(prefix string) string {
	if prefix == "" {
		return ""
	}
	return strings.TrimLeft(path.Clean(prefix), "/")
}

// TablePrefixLayout returns the un-rendered layout of the table prefix,
// e.g. "{schema_name}/{table_name}/". Only the allowed placeholders may
// precede {table_name}; with none given, nothing may.
func (t *Template) TablePrefixLayout(allowed ...string) (string, error) {
	idx, sep, err := t.prefixBoundary(allowed)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, s := range t.segments[:idx+1] {
		b.WriteString(s.raw())
	}
	b.WriteString(sep)
	return b.String(), nil
}

// prefixBoundary locates the first {table_name} segment and the single
// separator character that closes it.
func (t *Template) prefixBoundary(allowed []string) (int, string, *AmbiguousPrefixError) {
	idx := slices.IndexFunc(t.segments, func(s segment) bool { return s.placeholder == TableName })
	if idx < 0 {
		return 0, "", &AmbiguousPrefixError{Layout: t.raw, Reason: "layout has no {table_name} placeholder"}
	}

	for _, s := range t.segments[:idx] {
		if s.isPlaceholder() && !slices.Contains(allowed, s.placeholder) {
			return 0, "", &AmbiguousPrefixError{
				Layout: t.raw,
				Reason: fmt.Sprintf("{%s} precedes {table_name}", s.placeholder),
			}
		}
	}

	if idx+1 >= len(t.segments) {
		return 0, "", &AmbiguousPrefixError{Layout: t.raw, Reason: "nothing follows {table_name}"}
	}
	next := t.segments[idx+1]
	if next.isPlaceholder() {
		return 0, "", &AmbiguousPrefixError{
			Layout: t.raw,
			Reason: fmt.Sprintf("{%s} directly follows {table_name}", next.placeholder),
		}
	}

	sep := next.literal[:1]
	if isIdentChar(sep[0]) {
		return 0, "", &AmbiguousPrefixError{
			Layout: t.raw,
			Reason: fmt.Sprintf("{table_name} is followed by %q, which can be part of a table name", sep),
		}
	}
	return idx, sep, nil
}

func isIdentChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_' || c == '-'
}

// Render parses raw and renders it with v.
func Render(raw string, v Values) (string, error) {
	t, err := Parse(raw)
	if err != nil {
		return "", err
	}
	return t.Render(v)
}

// TablePrefix parses raw and returns the prefix of table.
func TablePrefix(raw, schema, table string) (string, error) {
	t, err := Parse(raw)
	if err != nil {
		return "", err
	}
	return t.TablePrefix(schema, table)
}
