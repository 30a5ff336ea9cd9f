package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cliTranscript = `{"start":[0,5000,10000],"text":["a","b","c"]}`

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestCaptionsSearch(t *testing.T) {
	path := writeFile(t, "t.json", cliTranscript)

	cases := map[string]string{
		"4":  "0\t0:00:00.000\ta\n",
		"5":  "1\t0:00:05.000\tb\n",
		"12": "2\t0:00:10.000\tc\n",
	}
	for at, want := range cases {
		out, err := runCLI(t, "captions", "search", path, at)
		require.NoError(t, err)
		assert.Equal(t, want, out, "time %s", at)
	}
}

func TestCaptionsSearch_Errors(t *testing.T) {
	path := writeFile(t, "t.json", cliTranscript)

	_, err := runCLI(t, "captions", "search", path, "soon")
	assert.Error(t, err)

	empty := writeFile(t, "empty.json", `{"start":[],"text":[]}`)
	_, err = runCLI(t, "captions", "search", empty, "1")
	assert.ErrorContains(t, err, "no captions")
}

func TestCaptionsShow_Bounds(t *testing.T) {
	path := writeFile(t, "t.json", cliTranscript)

	out, err := runCLI(t, "captions", "show", path, "--start", "5")
	require.NoError(t, err)
	assert.NotContains(t, out, " a ")
	assert.Contains(t, out, " b ")
	assert.Contains(t, out, " c ")

	out, err = runCLI(t, "captions", "show", path, "--end", "5")
	require.NoError(t, err)
	assert.Contains(t, out, " a ")
	assert.Contains(t, out, " b ")
	assert.NotContains(t, out, " c ")
}

func TestSimulate_ReportsCompletion(t *testing.T) {
	var posts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&posts, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfgPath := writeFile(t, "player.yaml", strings.Join([]string{
		"completion_enabled: true",
		"completion_percentage: 0.9",
		"publish_completion_url: " + server.URL,
		"log_level: error",
	}, "\n"))
	transcriptPath := writeFile(t, "t.json", cliTranscript)

	out, err := runCLI(t, "--config", cfgPath, "simulate", "--transcript", transcriptPath, "--duration", "20", "--ended")
	require.NoError(t, err)

	assert.Contains(t, out, "[0:00:00.000] a")
	assert.Contains(t, out, "[0:00:05.000] b")
	assert.Contains(t, out, "[0:00:10.000] c")
	assert.Contains(t, out, "[0:00:19.000] video marked complete")
	assert.Contains(t, out, "completion: completed")
	assert.Equal(t, int32(1), atomic.LoadInt32(&posts))
}

func TestSimulate_FractionalStepReachesEnd(t *testing.T) {
	var posts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&posts, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfgPath := writeFile(t, "player.yaml", strings.Join([]string{
		"completion_enabled: true",
		"completion_percentage: 0.99",
		"publish_completion_url: " + server.URL,
		"log_level: error",
	}, "\n"))

	// Summing 0.1 three times overshoots 0.3, so only a counted last tick passes 0.297.
	out, err := runCLI(t, "--config", cfgPath, "simulate", "--duration", "0.3", "--step", "0.1")
	require.NoError(t, err)

	assert.Contains(t, out, "[0:00:00.300] video marked complete")
	assert.Contains(t, out, "completion: completed")
	assert.Equal(t, int32(1), atomic.LoadInt32(&posts))
}

func TestSimulate_RequiresDuration(t *testing.T) {
	_, err := runCLI(t, "simulate")
	assert.ErrorContains(t, err, "duration unknown")
}

func TestSimulate_InvalidConfig(t *testing.T) {
	cfgPath := writeFile(t, "player.json", `{"completionPercentage": 2}`)
	_, err := runCLI(t, "--config", cfgPath, "simulate", "--duration", "10")
	assert.ErrorContains(t, err, "load configuration")
}

func TestFormatMillis(t *testing.T) {
	assert.Equal(t, "0:00:00.000", formatMillis(-5))
	assert.Equal(t, "1:01:01.250", formatMillis(3661250))
}
