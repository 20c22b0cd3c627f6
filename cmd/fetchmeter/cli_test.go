package main_test

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/opencontainers/go-digest"
	"github.com/rogpeppe/go-internal/testscript"

	"github.com/Azzadd/fetchmeter/cmd/fetchmeter/cli"
)

// Artifacts served to the scripts. The binary one is exactly 4 KiB so the
// plain-progress script sees a stable announcement.
var (
	dataContent = []byte("hello fetchmeter\n")
	binContent  = makeBinContent(4096)
)

func makeBinContent(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i % 251)
	}
	return b
}

func TestMain(m *testing.M) {
	os.Exit(testscript.RunMain(m, map[string]func() int{
		"fetchmeter": func() int {
			if err := cli.Execute(); err != nil {
				return 1
			}
			return 0
		},
		// expandenv copies a file with environment variables expanded, for
		// scripts that need the server URL inside a fixture.
		"expandenv": expandEnvMain,
	}))
}

func expandEnvMain() int {
	if len(os.Args) != 3 {
		fmt.Fprintln(os.Stderr, "usage: expandenv src dst")
		return 2
	}
	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if err := os.WriteFile(os.Args[2], []byte(os.ExpandEnv(string(data))), 0o600); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func TestCLI(t *testing.T) {
	server := httptest.NewServer(artifactHandler())
	t.Cleanup(server.Close)

	testscript.Run(t, testscript.Params{
		Dir: "testdata/script",
		Setup: func(env *testscript.Env) error {
			env.Setenv("SERVER", server.URL)
			env.Setenv("GOODSUM", digest.FromBytes(dataContent).String())
			env.Setenv("BADSUM", digest.FromBytes([]byte("something else entirely")).String())
			// Point XDG config at the work directory (testscript sets
			// HOME=/no-home which is read-only)
			env.Setenv("XDG_CONFIG_HOME", env.WorkDir+"/.config")
			return nil
		},
	})
}

// artifactHandler serves the test artifacts. Anything outside the two known
// paths is a 404, which the fetch commands report as not found.
func artifactHandler() http.Handler {
	modTime := time.Date(2026, time.March, 14, 9, 30, 0, 0, time.UTC)

	mux := http.NewServeMux()
	mux.HandleFunc("/artifacts/data.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("ETag", `"data-v1"`)
		http.ServeContent(w, r, "data.txt", modTime, bytes.NewReader(dataContent))
	})
	mux.HandleFunc("/artifacts/tool-1.2.bin", func(w http.ResponseWriter, r *http.Request) {
		http.ServeContent(w, r, "tool-1.2.bin", modTime, bytes.NewReader(binContent))
	})
	return mux
}
