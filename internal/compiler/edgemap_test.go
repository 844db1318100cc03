package compiler

import (
	"testing"

	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normwrite/normcache/internal/edgemap"
	"github.com/normwrite/normcache/internal/value"
)

func TestCompileEdgeMap_LeafFieldsCompileToNil(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		id: true
		name: true
	`)
	require.NoError(t, v.Err())

	m, err := CompileEdgeMap(v)
	require.NoError(t, err)

	assert.Nil(t, m.FieldAt("id"))
	assert.Nil(t, m.FieldAt("name"))
}

func TestCompileEdgeMap_ParameterizedFieldWithLiteralAndVarArgs(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		feed: {
			parameterized: true
			args: {
				first: "$pageSize"
				sort:  "newest"
			}
			fields: {
				id:    true
				title: true
			}
		}
	`)
	require.NoError(t, v.Err())

	m, err := CompileEdgeMap(v)
	require.NoError(t, err)

	feed := m.FieldAt("feed")
	require.NotNil(t, feed)
	assert.True(t, feed.Parameterized)

	first, ok := feed.Args["first"].(edgemap.VarRef)
	require.True(t, ok)
	assert.Equal(t, "pageSize", first.Name)

	sort, ok := feed.Args["sort"].(edgemap.Literal)
	require.True(t, ok)
	assert.Equal(t, value.Str("newest"), sort.Value)

	assert.Nil(t, feed.FieldAt("id"))
	assert.Nil(t, feed.FieldAt("title"))
}

func TestCompileEdgeMap_NestedPlainObjectRecurses(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		viewer: {
			fields: {
				profile: {
					fields: {
						avatarURL: true
					}
				}
			}
		}
	`)
	require.NoError(t, v.Err())

	m, err := CompileEdgeMap(v)
	require.NoError(t, err)

	viewer := m.FieldAt("viewer")
	require.NotNil(t, viewer)
	profile := viewer.FieldAt("profile")
	require.NotNil(t, profile)
	assert.Nil(t, profile.FieldAt("avatarURL"))
}

func TestCompileEdgeMap_EmptyVarRefNameErrors(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		feed: {
			parameterized: true
			args: { first: "$" }
		}
	`)
	require.NoError(t, v.Err())

	_, err := CompileEdgeMap(v)
	require.Error(t, err)

	var compileErr *CompileError
	require.ErrorAs(t, err, &compileErr)
}

func TestCompileEdgeMap_ArgLiteralKinds(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		feed: {
			parameterized: true
			args: {
				limit:   10
				ratio:   1.5
				enabled: true
				label:   "x"
				empty:   null
				tags:    ["a", "b"]
				meta:    { k: "v" }
			}
		}
	`)
	require.NoError(t, v.Err())

	m, err := CompileEdgeMap(v)
	require.NoError(t, err)

	feed := m.FieldAt("feed")
	require.NotNil(t, feed)

	lit := func(name string) value.Value {
		l, ok := feed.Args[name].(edgemap.Literal)
		require.True(t, ok, "arg %q should be a Literal", name)
		return l.Value
	}

	assert.Equal(t, value.Int(10), lit("limit"))
	assert.Equal(t, value.Float(1.5), lit("ratio"))
	assert.Equal(t, value.Bool(true), lit("enabled"))
	assert.Equal(t, value.Str("x"), lit("label"))
	assert.Equal(t, value.Null{}, lit("empty"))

	tags, ok := lit("tags").(*value.Array)
	require.True(t, ok)
	assert.Equal(t, 2, tags.Len())

	meta, ok := lit("meta").(*value.Object)
	require.True(t, ok)
	assert.Equal(t, value.Str("v"), meta.Get("k"))
}
