package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestVersion(t *testing.T) {
	code, out, _ := runCLI(t, "-version")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "rangebuf dev")
}

func TestUsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no command", nil},
		{"unknown command", []string{"frobnicate"}},
		{"cat without files", []string{"cat"}},
		{"stat with two files", []string{"stat", "a", "b"}},
		{"run without file", []string{"run", "script.lua"}},
		{"bad flag", []string{"-nope"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, stderr := runCLI(t, tt.args...)
			assert.Equal(t, 2, code)
			assert.NotEmpty(t, stderr)
		})
	}
}

func TestCat(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.txt", "first\n")
	b := writeFile(t, dir, "b.txt", strings.Repeat("0123456789\n", 5000))

	code, out, stderr := runCLI(t, "cat", a, b)
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "first\n"+strings.Repeat("0123456789\n", 5000), out)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestCatWriteError(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.txt", "first\n")
	b := writeFile(t, dir, "b.txt", "second\n")

	var stderr bytes.Buffer
	code := run(context.Background(), []string{"cat", a, b}, failingWriter{}, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "writing "+a)
	assert.Contains(t, stderr.String(), "disk full")
}

func TestCatMissingFile(t *testing.T) {
	code, _, stderr := runCLI(t, "cat", filepath.Join(t.TempDir(), "missing"))
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "Error:")
}

func TestStat(t *testing.T) {
	path := writeFile(t, t.TempDir(), "s.txt", "one\r\ntwo words\r\n")

	code, out, stderr := runCLI(t, "stat", path)
	require.Equal(t, 0, code, stderr)

	assert.Regexp(t, `bytes\s+16`, out)
	assert.Regexp(t, `lines\s+3`, out)
	assert.Regexp(t, `longest line\s+10`, out)
	assert.Regexp(t, `line ending\s+\\r\\n`, out)
	assert.Contains(t, out, "cache misses")
}

func TestRunScript(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "doc.txt", "hello world\n")
	lua := writeFile(t, dir, "edit.lua", `
buf.replace(0, 5, "goodbye")
print(buf.line(1))
buf.save()
`)

	code, out, stderr := runCLI(t, "run", lua, file)
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "goodbye world\n", out)

	got, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, "goodbye world\n", string(got))
}

func TestRunScriptError(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "doc.txt", "x")
	lua := writeFile(t, dir, "bad.lua", `buf.delete(0, 100)`)

	code, _, stderr := runCLI(t, "run", lua, file)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "delete")
}

func TestConfigAndLogLevel(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "rangebuf.yaml", "engine:\n  page_size: 4096\nlog:\n  level: error\n")
	file := writeFile(t, dir, "f.txt", "abc")

	code, out, stderr := runCLI(t, "-config", cfg, "-log-level", "debug", "cat", file)
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "abc", out)
	assert.Contains(t, stderr, "document opened")

	code, _, stderr = runCLI(t, "-log-level", "loud", "cat", file)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "log.level")

	bad := writeFile(t, dir, "bad.toml", "[engine]\npage_size = 1000\n")
	code, _, stderr = runCLI(t, "-c", bad, "cat", file)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "page_size")
}
