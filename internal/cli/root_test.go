package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	jqerrors "github.com/nonibytes/jsonquery/jsonquery/errors"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetArgs(args)
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&out)
	root.SetErr(&out)
	err := root.Execute()
	return out.String(), err
}

func lines(s string) []string {
	return strings.Split(strings.TrimSpace(s), "\n")
}

const records = `{"id":"a","name":"Apple","status":"active","rating":4}
{"id":"b","name":"Banana","status":"ACTIVE","rating":5}

{"id":"c","name":"Cherry","status":"sold","rating":3}
`

func TestMatch(t *testing.T) {
	out, err := run(t, records, "match", "-f", `{"type":"string","field":"status","value":"active"}`)
	require.NoError(t, err)
	assert.Len(t, lines(out), 2)

	out, err = run(t, records, "--case-sensitive", "match", "-f", `{"type":"string","field":"status","value":"active"}`)
	require.NoError(t, err)
	assert.Equal(t, []string{`{"id":"a","name":"Apple","status":"active","rating":4}`}, lines(out))

	out, err = run(t, records, "match", "-v", "-f", `{"type":"string","field":"status","value":"active"}`)
	require.NoError(t, err)
	assert.Contains(t, out, "Cherry")
	assert.NotContains(t, out, "Apple")

	_, err = run(t, records, "match", "-f", `{"type":"nope"}`)
	assert.True(t, jqerrors.IsKind(err, jqerrors.ErrParse))
	assert.Equal(t, 2, exitCode(err))
}

func TestSort(t *testing.T) {
	out, err := run(t, records, "sort", "--by", "-rating")
	require.NoError(t, err)
	got := lines(out)
	require.Len(t, got, 3)
	assert.Contains(t, got[0], "Banana")
	assert.Contains(t, got[2], "Cherry")
}

func TestApply(t *testing.T) {
	q := `{"filter":{"type":"longRange","field":"rating","min":4},"sortOrder":["name"],"fields":["name"],"limit":1,"offset":1}`
	out, err := run(t, records, "apply", "-q", q)
	require.NoError(t, err)
	assert.Equal(t, []string{`{"name":"Banana"}`}, lines(out))

	_, err = run(t, records, "apply", "-q", `{"limit":-1}`)
	assert.True(t, jqerrors.IsKind(err, jqerrors.ErrSchema))
}

func TestMergeOptimizeDescribe(t *testing.T) {
	in := `{"limit":10,"filter":{"type":"string","field":"a","value":"x"}}
{"limit":5,"offset":2,"filter":{"type":"string","field":"b","value":"y"}}
`
	out, err := run(t, in, "--format", "json", "merge", "--optimize")
	require.NoError(t, err)
	assert.JSONEq(t, `{"limit":5,"offset":2,"filter":{"type":"logOp","op":"AND","operands":[
		{"type":"string","field":"a","value":"x"},
		{"type":"string","field":"b","value":"y"}]}}`, out)

	in = `{"filter":{"type":"logOp","op":"OR","operands":[{"type":"boolean","field":"ok","value":true}]},"sortOrder":["-n"],"limit":3}` + "\n"
	out, err = run(t, in, "--format", "json", "optimize")
	require.NoError(t, err)
	assert.JSONEq(t, `{"filter":{"type":"boolean","field":"ok","value":true},"sortOrder":["-n"],"limit":3}`, out)

	out, err = run(t, in, "describe")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "WHERE "))
	assert.Contains(t, out, "ORDER BY -n LIMIT 3")
}

func TestParamsRoundTrip(t *testing.T) {
	in := `{"limit":10,"sortOrder":["-rating"],"filter":{"type":"string","field":"status","value":"a b"}}` + "\n"
	out, err := run(t, in, "params")
	require.NoError(t, err)
	qs := strings.TrimSpace(out)
	assert.Contains(t, qs, "limit=10")

	back, err := run(t, qs+"\n", "--format", "json", "params", "--decode")
	require.NoError(t, err)
	assert.JSONEq(t, strings.TrimSpace(in), back)
}

func TestCacheCommands(t *testing.T) {
	dir := t.TempDir()
	global := []string{"--backend", "sqlite", "--dsn", dir, "-c", "items", "--format", "json"}
	cache := func(stdin string, args ...string) (string, error) {
		return run(t, stdin, append(append([]string{}, global...), append([]string{"cache"}, args...)...)...)
	}

	_, err := cache("", "create")
	require.NoError(t, err)

	out, err := cache(records, "put", "--key-path", "id")
	require.NoError(t, err)
	assert.Contains(t, out, "stored 3 records")

	out, err = cache("", "count")
	require.NoError(t, err)
	assert.Equal(t, "3", strings.TrimSpace(out))

	out, err = cache("", "get", "b")
	require.NoError(t, err)
	assert.Contains(t, out, "Banana")

	out, err = cache("", "query", "-q", `{"sortOrder":["name"],"fields":["id"]}`, "--limit", "2")
	require.NoError(t, err)
	got := lines(out)
	require.Len(t, got, 3)
	assert.Equal(t, `{"id":"a"}`, got[0])
	assert.Equal(t, `{"id":"b"}`, got[1])
	assert.Contains(t, got[2], `"next"`)

	_, err = cache("", "save", "active", "-q", `{"filter":{"type":"string","field":"status","value":"active"}}`)
	require.NoError(t, err)
	out, err = cache("", "queries")
	require.NoError(t, err)
	assert.Equal(t, "active", strings.TrimSpace(out))

	out, err = cache("", "query", "-s", "active")
	require.NoError(t, err)
	assert.Len(t, lines(out), 2)

	out, err = cache("", "delete", "a", "zzz")
	require.NoError(t, err)
	assert.Equal(t, "deleted 1", strings.TrimSpace(out))

	_, err = cache("", "unsave", "missing")
	assert.True(t, jqerrors.IsKind(err, jqerrors.ErrNotFound))
	assert.Equal(t, 1, exitCode(err))

	out, err = cache("", "discover", "status")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"value":"ACTIVE","count":1},{"value":"sold","count":1}]`, out)

	out, err = cache("", "delete", "-w", `{"type":"string","field":"status","value":"SOLD"}`)
	require.NoError(t, err)
	assert.Equal(t, "deleted 1", strings.TrimSpace(out))

	_, err = cache("", "delete")
	assert.Error(t, err)

	_, err = cache("", "optimize")
	require.NoError(t, err)
}
