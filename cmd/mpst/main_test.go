package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleProtocol = `
protocol RequestResponse(role Client, role Server) {
	Client -> Server : Request(string);
	Server -> Client : Response(string);
}`

func TestRunProjectsEveryRoleToOutputDir(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "p.mpst")
	require.NoError(t, os.WriteFile(srcPath, []byte(sampleProtocol), 0o644))

	outDir := filepath.Join(dir, "out")
	var stdout, stderr bytes.Buffer
	code := run([]string{"project", "-output-dir", outDir, "-format", "both", srcPath}, nil, &stdout, &stderr)

	require.Equal(t, 0, code, stderr.String())
	for _, f := range []string{"Client.scr", "Client.json", "Server.scr", "Server.json"} {
		_, err := os.Stat(filepath.Join(outDir, f))
		assert.NoError(t, err, f)
	}
}

func TestRunProjectsSingleRole(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "p.mpst")
	require.NoError(t, os.WriteFile(srcPath, []byte(sampleProtocol), 0o644))

	outDir := filepath.Join(dir, "out")
	var stdout, stderr bytes.Buffer
	code := run([]string{"project", "-role", "Client", "-output-dir", outDir, srcPath}, nil, &stdout, &stderr)

	require.Equal(t, 0, code, stderr.String())
	_, err := os.Stat(filepath.Join(outDir, "Client.scr"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(outDir, "Server.scr"))
	assert.Error(t, err)
}

func TestRunReadsFromStdin(t *testing.T) {
	var stdout, stderr bytes.Buffer
	stdin := strings.NewReader(sampleProtocol)
	code := run([]string{"project", "-stdin"}, stdin, &stdout, &stderr)

	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), "Client")
	assert.Contains(t, stdout.String(), "Server")
}

func TestRunReturnsOneOnParseError(t *testing.T) {
	var stdout, stderr bytes.Buffer
	stdin := strings.NewReader("protocol P(role A) { A -> }")
	code := run([]string{"project", "-stdin"}, stdin, &stdout, &stderr)

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "parse error")
}

func TestRunReturnsOneOnVerificationFailure(t *testing.T) {
	var stdout, stderr bytes.Buffer
	stdin := strings.NewReader(`protocol P(role A, role B, role Unused) {
		A -> B : X(string);
	}`)
	code := run([]string{"project", "-stdin"}, stdin, &stdout, &stderr)

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "Disconnected")
}

func TestRunSkipVerificationBypassesFailure(t *testing.T) {
	var stdout, stderr bytes.Buffer
	stdin := strings.NewReader(`protocol P(role A, role B, role Unused) {
		A -> B : X(string);
	}`)
	code := run([]string{"project", "-stdin", "-skip-verification"}, stdin, &stdout, &stderr)

	assert.Equal(t, 0, code, stderr.String())
}

func TestRunRejectsUnknownRole(t *testing.T) {
	var stdout, stderr bytes.Buffer
	stdin := strings.NewReader(sampleProtocol)
	code := run([]string{"project", "-stdin", "-role", "Nobody"}, stdin, &stdout, &stderr)

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "not declared")
}

func TestRunHelp(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"project", "-help"}, nil, &stdout, &stderr)
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout.String(), "mpst project")
}

func TestRunMissingSourceFileWithoutStdinErrors(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"project"}, nil, &stdout, &stderr)
	assert.Equal(t, 1, code)
}
