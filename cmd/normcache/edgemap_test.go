package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const feedQuery = `
feed: {
	parameterized: true
	args: { first: "$first", after: 0 }
	fields: {
		id:    true
		title: true
	}
}
`

func TestEdgemapCompile_JSON(t *testing.T) {
	dir := t.TempDir()
	queryPath := writeFile(t, dir, "feed.cue", feedQuery)

	buf := &bytes.Buffer{}
	root := NewEdgemapCommand(&RootOptions{Format: "json"})
	root.SetOut(buf)
	root.SetArgs([]string{"compile", "--query", queryPath})

	require.NoError(t, root.Execute())

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)

	raw, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var dto edgeMapDTO
	require.NoError(t, json.Unmarshal(raw, &dto))

	feed := dto.Fields["feed"]
	assert.True(t, feed.Parameterized)
	assert.Equal(t, "var", feed.Args["first"].Kind)
	assert.Equal(t, "first", feed.Args["first"].Name)
	assert.Equal(t, "literal", feed.Args["after"].Kind)
}

func TestEdgemapValidate_FlagsParameterizedWithoutArgs(t *testing.T) {
	dir := t.TempDir()
	queryPath := writeFile(t, dir, "bad.cue", `
bad: {
	parameterized: true
}
`)

	buf := &bytes.Buffer{}
	root := NewEdgemapCommand(&RootOptions{Format: "json"})
	root.SetOut(buf)
	root.SetArgs([]string{"validate", "--query", queryPath})

	err := root.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
}

func TestEdgemapValidate_ValidDocument(t *testing.T) {
	dir := t.TempDir()
	queryPath := writeFile(t, dir, "viewer.cue", viewerQuery)

	buf := &bytes.Buffer{}
	root := NewEdgemapCommand(&RootOptions{Format: "text"})
	root.SetOut(buf)
	root.SetArgs([]string{"validate", "--query", queryPath})

	require.NoError(t, root.Execute())
	assert.Contains(t, buf.String(), "valid")
}
