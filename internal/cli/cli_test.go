// SPDX-License-Identifier: Apache-2.0

package cli_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gemaraproj/docdiff/internal/cli"
	"github.com/gemaraproj/docdiff/internal/config"
	"github.com/gemaraproj/docdiff/internal/document"
)

type result struct {
	stdout string
	stderr string
	err    error
}

func execute(t *testing.T, args ...string) result {
	t.Helper()
	root := cli.NewRootCmd("1.2.3")
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return result{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func revisions(t *testing.T) (string, string, string) {
	t.Helper()
	dir := t.TempDir()
	old := writeFile(t, dir, "old.txt", "Terms of delivery\nThe cat sat.\nPayment due in 30 days.\nObsolete clause about apples\n")
	new := writeFile(t, dir, "new.txt", "Terms of delivery\nThe cat sat quietly.\nPayment due in 45 days.\nA brand new warranty section\n")
	return dir, old, new
}

// ----------------------------------------------------------------------------
// compare
// ----------------------------------------------------------------------------

func TestCompareWritesReports(t *testing.T) {
	dir, old, new := revisions(t)
	htmlPath := filepath.Join(dir, "out", "report.html")
	jsonPath := filepath.Join(dir, "out", "report.json")

	res := execute(t, "compare", old, new, "--html", htmlPath, "--json", jsonPath, "--log-level", "error")
	require.NoError(t, res.err)
	assert.Equal(t, cli.ExitOK, cli.ExitCode(res.err))

	assert.Contains(t, res.stdout, "5 blocks")
	assert.Contains(t, res.stdout, "1 added")
	assert.Contains(t, res.stdout, "1 deleted")
	assert.Contains(t, res.stdout, "2 modified")
	assert.Contains(t, res.stdout, "wrote "+htmlPath)
	assert.NotContains(t, res.stdout, "fallback")

	html, err := os.ReadFile(htmlPath)
	require.NoError(t, err)
	assert.Contains(t, string(html), "Document Comparison Report")

	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	var export struct {
		Records []struct {
			Kind string `json:"kind"`
		} `json:"records"`
	}
	require.NoError(t, json.Unmarshal(data, &export))
	kinds := make([]string, len(export.Records))
	for i, r := range export.Records {
		kinds[i] = r.Kind
	}
	assert.Equal(t, []string{"unchanged", "modified", "modified", "deleted", "added"}, kinds)
}

func TestCompareLogsWithRunID(t *testing.T) {
	_, old, new := revisions(t)
	res := execute(t, "compare", old, new, "--log-format", "json")
	require.NoError(t, res.err)
	assert.Contains(t, res.stderr, `"run_id":`)
	assert.Contains(t, res.stderr, `"msg":"alignment complete"`)
	assert.NotContains(t, res.stderr, `"msg":"normalizers registered"`, "debug records are filtered at info")

	debug := execute(t, "compare", old, new, "--log-format", "json", "--log-level", "debug")
	require.NoError(t, debug.err)
	assert.Contains(t, debug.stderr, `"msg":"normalizers registered"`)
	assert.Contains(t, debug.stderr, `"txt"`)
}

func TestCompareFallsBackWhenOracleIsUnavailable(t *testing.T) {
	_, old, new := revisions(t)
	res := execute(t, "compare", old, new,
		"--oracle", "mcp",
		"--oracle-command", filepath.Join(t.TempDir(), "no-such-oracle"),
		"--log-level", "error")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "2 scores came from the fallback heuristic")
}

func TestCompareUsesScoreCache(t *testing.T) {
	dir, old, new := revisions(t)
	cache := filepath.Join(dir, "scores.db")

	res := execute(t, "compare", old, new, "--oracle-cache", cache, "--log-level", "error")
	require.NoError(t, res.err)
	info, err := os.Stat(cache)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	again := execute(t, "compare", old, new, "--oracle-cache", cache, "--log-level", "debug", "--log-format", "json")
	require.NoError(t, again.err)
	assert.Equal(t, res.stdout, again.stdout)
	assert.Contains(t, again.stderr, `"msg":"oracle cache closed"`)
	assert.Contains(t, again.stderr, `"entries":2`)
}

func TestCompareConfigFile(t *testing.T) {
	dir, old, new := revisions(t)
	cfg := writeFile(t, dir, "docdiff.yaml", "classifier:\n  unrelated_floor: 9.5\nlog:\n  level: error\n")

	res := execute(t, "compare", old, new, "--config", cfg)
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "0 modified", "a high floor demotes every modification")
}

func TestCompareExitCodes(t *testing.T) {
	dir, old, _ := revisions(t)
	slides := writeFile(t, dir, "deck.pptx", "not supported")
	broken := writeFile(t, dir, "broken.docx", "PK\x03\x04garbage")
	badConfig := writeFile(t, dir, "bad.yaml", "oracle:\n  kind: remote\n")

	tests := []struct {
		name     string
		args     []string
		code     int
		contains string
		target   error
	}{
		{
			name:     "unsupported format",
			args:     []string{"compare", old, slides},
			code:     cli.ExitInput,
			contains: slides + ": unsupported document format",
			target:   document.ErrUnsupportedFormat,
		},
		{
			name:     "corrupt document",
			args:     []string{"compare", broken, old},
			code:     cli.ExitInput,
			contains: broken + ": ",
			target:   document.ErrParse,
		},
		{
			name:     "missing file",
			args:     []string{"compare", filepath.Join(dir, "absent.txt"), old},
			code:     cli.ExitInput,
			contains: "absent.txt: read:",
			target:   document.ErrParse,
		},
		{
			name:   "invalid configuration",
			args:   []string{"compare", old, old, "--config", badConfig},
			code:   cli.ExitFailure,
			target: config.ErrInvalid,
		},
		{
			name: "wrong argument count",
			args: []string{"compare", old},
			code: cli.ExitFailure,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := execute(t, tt.args...)
			require.Error(t, res.err)
			assert.Equal(t, tt.code, cli.ExitCode(res.err))
			if tt.contains != "" {
				assert.Contains(t, res.err.Error(), tt.contains)
			}
			if tt.target != nil {
				assert.ErrorIs(t, res.err, tt.target)
			}
		})
	}
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, cli.ExitOK, cli.ExitCode(nil))
	assert.Equal(t, cli.ExitFailure, cli.ExitCode(errors.New("boom")))
	assert.Equal(t, cli.ExitInput, cli.ExitCode(&document.ParseError{Path: "a.docx"}))
	assert.Equal(t, cli.ExitInput, cli.ExitCode(&document.UnsupportedFormatError{Path: "a.pptx"}))
}

// ----------------------------------------------------------------------------
// version and schema
// ----------------------------------------------------------------------------

func TestVersion(t *testing.T) {
	res := execute(t, "version")
	require.NoError(t, res.err)
	assert.Equal(t, "1.2.3\n", res.stdout)
}

func TestSchema(t *testing.T) {
	res := execute(t, "schema")
	require.NoError(t, res.err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &schema))
	assert.Equal(t, "docdiff report", schema["title"])
}
