package layout_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/fsload/internal/layout"
	"github.com/vvka-141/fsload/pkg/fsload"
)

var sample = layout.Values{
	SchemaName: "sales",
	TableName:  "orders",
	LoadID:     "L1",
	FileID:     "f1",
	Ext:        "jsonl",
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		message string
	}{
		{"empty", "", "empty"},
		{"blank", "   ", "empty"},
		{"empty placeholder", "{table_name}/{}", "empty placeholder"},
		{"unclosed", "{table_name/{load_id}", "unclosed"},
		{"unclosed at end", "{table_name}/{load_id", "unclosed"},
		{"stray close", "table_name}/{load_id}", "unmatched"},
		{"nested", "{{table_name}}", "unclosed"},
		{"unknown", "{table}/{load_id}", "unknown placeholders: table"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tpl, err := layout.Parse(tt.raw)
			require.Error(t, err)
			assert.Nil(t, tpl)
			assert.True(t, errors.Is(err, fsload.ErrInvalidLayout))
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestParse_ListsAllUnknownPlaceholders(t *testing.T) {
	_, err := layout.Parse("{bucket}/{table_name}/{day}.{ext}")
	require.Error(t, err)

	var layoutErr *layout.Error
	require.True(t, errors.As(err, &layoutErr))
	assert.Contains(t, layoutErr.Message, "bucket, day")
	assert.Contains(t, layoutErr.Hint, "schema_name")
}

func TestParse_AppendsExt(t *testing.T) {
	tests := []struct {
		raw       string
		effective string
		rendered  string
	}{
		{"{table_name}/{load_id}.{file_id}.{ext}", "{table_name}/{load_id}.{file_id}.{ext}", "orders/L1.f1.jsonl"},
		{"{table_name}/{load_id}.{file_id}", "{table_name}/{load_id}.{file_id}.{ext}", "orders/L1.f1.jsonl"},
		{"{table_name}/{file_id}-", "{table_name}/{file_id}-.{ext}", "orders/f1-.jsonl"},
		{"{table_name}", "{table_name}.{ext}", "orders.jsonl"},
		{"static", "static.{ext}", "static.jsonl"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			tpl, err := layout.Parse(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.raw, tpl.String())
			assert.Equal(t, tt.effective, tpl.Effective())

			got, err := tpl.Render(sample)
			require.NoError(t, err)
			assert.Equal(t, tt.rendered, got)
		})
	}
}

func TestRender(t *testing.T) {
	got, err := layout.Render("{schema_name}/{table_name}/{load_id}.{file_id}.{ext}", sample)
	require.NoError(t, err)
	assert.Equal(t, "sales/orders/L1.f1.jsonl", got)
}

func TestRender_RepeatedPlaceholder(t *testing.T) {
	got, err := layout.Render("{table_name}/{load_id}/{table_name}.{file_id}.{ext}", sample)
	require.NoError(t, err)
	assert.Equal(t, "orders/L1/orders.f1.jsonl", got)
}

func TestRender_EmptyValue(t *testing.T) {
	v := sample
	v.FileID = ""

	_, err := layout.Render("{table_name}/{load_id}.{file_id}.{ext}", v)
	require.Error(t, err)
	assert.ErrorIs(t, err, fsload.ErrInvalidLayout)
	assert.Contains(t, err.Error(), "{file_id}")

	// unused placeholders may be empty
	_, err = layout.Render("{table_name}/{load_id}.{ext}", v)
	assert.NoError(t, err)
}

func TestTablePrefix(t *testing.T) {
	tests := []struct {
		raw    string
		prefix string
	}{
		{"{schema_name}/{table_name}/{load_id}.{file_id}.{ext}", "sales/orders/"},
		{"{table_name}/{load_id}.{file_id}.{ext}", "orders/"},
		{"{table_name}.{load_id}.{file_id}.{ext}", "orders."},
		{"data/{table_name}/{load_id}.{file_id}", "data/orders/"},
		{"{schema_name}.{table_name}.{load_id}.{file_id}.{ext}", "sales.orders."},
		{"{table_name}", "orders."},
		{"/{table_name}/{load_id}.{file_id}.{ext}", "orders/"},
		{"./{table_name}/{load_id}.{file_id}.{ext}", "orders/"},
		{"{schema_name}//{table_name}/{load_id}.{file_id}.{ext}", "sales/orders/"},
		{"raw/./{schema_name}.{table_name}.{load_id}.{ext}", "raw/sales.orders."},
		{"tmp/../{table_name}/{load_id}.{ext}", "orders/"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := layout.TablePrefix(tt.raw, "sales", "orders")
			require.NoError(t, err)
			assert.Equal(t, tt.prefix, got)
		})
	}
}

func TestTablePrefix_Ambiguous(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		table  string
		reason string
	}{
		{"load id first", "{load_id}/{table_name}.{ext}", "orders", "{load_id} precedes"},
		{"file id first", "{file_id}_{table_name}/{load_id}", "orders", "{file_id} precedes"},
		{"no table", "{schema_name}/{load_id}.{file_id}.{ext}", "orders", "no {table_name}"},
		{"placeholder follows", "{table_name}{load_id}.{ext}", "orders", "directly follows"},
		{"ident separator", "{table_name}_{load_id}.{ext}", "orders", "can be part of a table name"},
		{"digit separator", "{table_name}1/{load_id}.{ext}", "orders", "can be part of a table name"},
		{"dash separator", "{table_name}-{load_id}.{ext}", "orders", "can be part of a table name"},
		{"slash in table", "{table_name}/{load_id}.{ext}", "a/b", "separator"},
		{"separator in table", "{table_name}.{load_id}.{ext}", "orders.v2", "separator"},
		{"empty table", "{table_name}/{load_id}.{ext}", "", "empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := layout.TablePrefix(tt.raw, "sales", tt.table)
			require.Error(t, err)
			assert.True(t, errors.Is(err, fsload.ErrAmbiguousPrefix), "got %v", err)

			var ambiguous *layout.AmbiguousPrefixError
			require.True(t, errors.As(err, &ambiguous))
			assert.Contains(t, ambiguous.Reason, tt.reason)
		})
	}
}

func TestTablePrefix_InvalidLayout(t *testing.T) {
	_, err := layout.TablePrefix("{tbl}/x", "sales", "orders")
	require.Error(t, err)
	assert.ErrorIs(t, err, fsload.ErrInvalidLayout)
	assert.NotErrorIs(t, err, fsload.ErrAmbiguousPrefix)
}

// Every rendered file of a table starts with its prefix, and no file of
// any other table does.
func TestTablePrefix_IsolatesTables(t *testing.T) {
	layouts := []string{
		fsload.DefaultLayout,
		"{schema_name}/{table_name}/{load_id}.{file_id}.{ext}",
		"{table_name}.{load_id}.{file_id}.{ext}",
		"{schema_name}.{table_name}.{load_id}.{file_id}",
		"raw/{table_name}/{load_id}/{file_id}.{ext}",
		"{table_name}/{schema_name}/{file_id}",
		"{table_name}={load_id}/{file_id}.{ext}",
	}
	tables := []string{"orders", "orders_archive", "order", "orders2", "o", "customers", "orders-x"}
	loadIDs := []string{"1700000000.1", "L2"}
	fileIDs := []string{"f1", "a7c3", "orders"}

	for _, raw := range layouts {
		tpl, err := layout.Parse(raw)
		require.NoError(t, err, raw)

		for _, table := range tables {
			prefix, err := tpl.TablePrefix("sales", table)
			require.NoError(t, err, "%s / %s", raw, table)

			for _, other := range tables {
				for _, loadID := range loadIDs {
					for _, fileID := range fileIDs {
						path, err := tpl.Render(layout.Values{
							SchemaName: "sales",
							TableName:  other,
							LoadID:     loadID,
							FileID:     fileID,
							Ext:        "parquet",
						})
						require.NoError(t, err)

						matches := strings.HasPrefix(path, prefix)
						if other == table {
							assert.True(t, matches, "%s: %q should start with %q", raw, path, prefix)
						} else {
							assert.False(t, matches, "%s: %q of %s must not start with %q", raw, path, other, prefix)
						}
					}
				}
			}
		}
	}
}

func TestCleanPrefix(t *testing.T) {
	tests := map[string]string{
		"":              "",
		"orders":        "orders",
		"/orders":       "orders",
		"./orders":      "orders",
		"sales//orders": "sales/orders",
		"a/../orders":   "orders",
		"../orders":     "../orders",
	}
	for in, want := range tests {
		assert.Equal(t, want, layout.CleanPrefix(in), in)
	}
}

func TestTablePrefixLayout(t *testing.T) {
	tpl := layout.MustParse("{schema_name}/{table_name}/{load_id}.{file_id}.{ext}")

	got, err := tpl.TablePrefixLayout(layout.SchemaName)
	require.NoError(t, err)
	assert.Equal(t, "{schema_name}/{table_name}/", got)

	_, err = tpl.TablePrefixLayout()
	require.Error(t, err)
	assert.ErrorIs(t, err, fsload.ErrAmbiguousPrefix)

	got, err = layout.MustParse(fsload.DefaultLayout).TablePrefixLayout()
	require.NoError(t, err)
	assert.Equal(t, "{table_name}/", got)
}

func TestWarnings(t *testing.T) {
	assert.Empty(t, layout.MustParse(fsload.DefaultLayout).Warnings())

	warnings := layout.MustParse("{schema_name}/{load_id}").Warnings()
	require.Len(t, warnings, 2)
	assert.Contains(t, warnings[0], "{table_name}")
	assert.Contains(t, warnings[1], "{file_id}")
}

func TestPlaceholders(t *testing.T) {
	tpl := layout.MustParse("{table_name}/{load_id}/{table_name}")
	assert.Equal(t, []string{"table_name", "load_id", "ext"}, tpl.Placeholders())
}

func TestMustParse_Panics(t *testing.T) {
	assert.Panics(t, func() { layout.MustParse("{nope}") })
}
