package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hpsgateway/internal/config"
	"hpsgateway/pkg/types"
)

// unsetForTest clears key for the duration of the test and restores it after.
func unsetForTest(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestApplyFlags_OnlyChanged(t *testing.T) {
	cmd := newServeCmd(&app{})
	require.NoError(t, cmd.Flags().Parse([]string{
		"--workers", "3",
		"--triton-url", "http://triton:9000",
		"--cors-origins", " https://a.example , ,https://b.example",
		"--filter-health-logs=false",
	}))
	cfg := config.Default()
	cfg.MaxConcurrentRequests = 4
	require.NoError(t, applyFlags(cmd, &cfg))

	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, "http://triton:9000", cfg.TritonURL)
	assert.Equal(t, 4, cfg.MaxConcurrentRequests, "unchanged flag must not reset the value")
	assert.True(t, cfg.CORSEnabled)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.False(t, cfg.FilterHealthLogs())
}

func TestApplyFlags_SkipsUndefined(t *testing.T) {
	cmd := newRestructureCmd(&app{})
	cfg := config.Default()
	require.NoError(t, applyFlags(cmd, &cfg))
	assert.Equal(t, config.Default().Addr, cfg.Addr)
}

func TestResolve_Precedence(t *testing.T) {
	unsetForTest(t, config.EnvDeviceID)
	unsetForTest(t, config.EnvWorkers)
	t.Setenv(config.EnvMaxConcurrentRequests, "7")
	envPath := writeFile(t, "test.env", "HPS_DEVICE_ID=gpu-3\nHPS_MAX_CONCURRENT_REQUESTS=3\nHPS_WORKERS=2\n")
	cfgPath := writeFile(t, "cfg.yaml", "inference_timeout_seconds: 30\nworkers: 5\n")

	a := &app{envFile: envPath, configPath: cfgPath}
	cmd := newServeCmd(a)
	require.NoError(t, cmd.Flags().Parse([]string{"--workers", "4"}))
	require.NoError(t, a.resolve(cmd))

	assert.Equal(t, "gpu-3", a.cfg.DeviceID, "dotenv fills unset variables")
	assert.Equal(t, 7, a.cfg.MaxConcurrentRequests, "process env wins over dotenv")
	assert.Equal(t, 30, a.cfg.InferenceTimeoutSeconds, "file value kept")
	assert.Equal(t, 4, a.cfg.Workers, "flag wins over env and file")
}

func TestResolve_MissingEnvFileIgnored(t *testing.T) {
	a := &app{envFile: filepath.Join(t.TempDir(), "absent.env")}
	require.NoError(t, a.resolve(newServeCmd(a)))
	assert.Equal(t, config.DefaultTritonURL, a.cfg.TritonURL)
}

func TestResolve_InvalidFlag(t *testing.T) {
	a := &app{envFile: ""}
	cmd := newServeCmd(a)
	require.NoError(t, cmd.Flags().Parse([]string{"--max-concurrent", "0"}))
	assert.Error(t, a.resolve(cmd))
}

func TestNewLogger_Levels(t *testing.T) {
	cases := map[string]zerolog.Level{
		"":        zerolog.InfoLevel,
		"debug":   zerolog.DebugLevel,
		"WARNING": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"off":     zerolog.Disabled,
		"bogus":   zerolog.InfoLevel,
	}
	for in, want := range cases {
		l := newLogger(&bytes.Buffer{}, in, "json")
		assert.Equal(t, want, l.GetLevel(), "level %q", in)
	}
}

func TestDecodePages(t *testing.T) {
	pagesJSON := `[{"prunedResult":{"parsing_res_list":[{"block_label":"text","block_content":"hi"}]}}]`
	inputs := map[string]string{
		"array":    pagesJSON,
		"request":  `{"pages":` + pagesJSON + `,"concatenatePages":true}`,
		"result":   `{"layoutParsingResults":` + pagesJSON + `}`,
		"envelope": `{"logId":"x","errorCode":0,"result":{"layoutParsingResults":` + pagesJSON + `}}`,
	}
	for name, in := range inputs {
		req, err := decodePages([]byte(in))
		require.NoError(t, err, name)
		require.Len(t, req.Pages, 1, name)
		assert.Equal(t, "hi", req.Pages[0].PrunedResult.ParsingResList[0].Content, name)
	}
	req, err := decodePages([]byte(inputs["request"]))
	require.NoError(t, err)
	require.NotNil(t, req.ConcatenatePages)
	assert.True(t, *req.ConcatenatePages)

	_, err = decodePages([]byte(`{"other":1}`))
	assert.Error(t, err)
	_, err = decodePages([]byte(`{`))
	assert.Error(t, err)
}

func TestRestructureCommand(t *testing.T) {
	in := writeFile(t, "pages.json", `{"pages":[
		{"prunedResult":{"parsing_res_list":[{"block_label":"paragraph_title","block_content":"1 Intro"}]}},
		{"prunedResult":{"parsing_res_list":[{"block_label":"text","block_content":"body"}]}}
	]}`)
	out := filepath.Join(t.TempDir(), "out.json")

	root := newRootCmd()
	root.SetArgs([]string{"restructure", in, "--concatenate", "--out", out, "--env-file", ""})
	require.NoError(t, root.ExecuteContext(context.Background()))

	b, err := os.ReadFile(out)
	require.NoError(t, err)
	var res types.RestructureResult
	require.NoError(t, json.Unmarshal(b, &res))
	assert.Len(t, res.LayoutParsingResults, 2)
	require.NotNil(t, res.LayoutParsingResult)
	assert.Contains(t, res.LayoutParsingResult.Markdown.Text, "body")
}

func TestRestructureCommand_Invalid(t *testing.T) {
	in := writeFile(t, "pages.json", `{"pages":[]}`)
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"restructure", in, "--env-file", ""})
	assert.Error(t, root.ExecuteContext(context.Background()))
}

func TestProbeCommand_NotReady(t *testing.T) {
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"probe", "--env-file", "", "--log-level", "off", "--triton-url", "http://127.0.0.1:1", "--health-timeout", "1"})
	err := root.ExecuteContext(context.Background())
	require.True(t, errors.Is(err, errNotReady), "got %v", err)

	var res types.ReadinessResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	assert.False(t, res.Ready)
	require.NotEmpty(t, res.Dependencies)
	assert.Equal(t, "triton", res.Dependencies[0].Name)
}

func TestServeOn_WorkersShareListenerAndShutdown(t *testing.T) {
	cfg := config.Default()
	cfg.Workers = 2
	cfg.TritonURL = "http://127.0.0.1:1"
	a := &app{cfg: cfg, log: zerolog.Nop()}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.serveOn(ctx, ln) }()

	url := fmt.Sprintf("http://%s/health", ln.Addr())
	for i := 0; i < 4; i++ {
		resp, err := http.Get(url)
		require.NoError(t, err)
		var env types.Response
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, 0, env.ErrorCode)
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serveOn did not return after cancel")
	}
}

type failingCloser struct {
	bytes.Buffer
	closeErr error
}

func (f *failingCloser) Close() error { return f.closeErr }

func TestWriteFileJSON_ReportsCloseError(t *testing.T) {
	orig := createFile
	t.Cleanup(func() { createFile = orig })
	diskFull := errors.New("no space left on device")
	fc := &failingCloser{closeErr: diskFull}
	createFile = func(string) (io.WriteCloser, error) { return fc, nil }

	err := writeFileJSON("out.json", map[string]int{"a": 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, diskFull)
	assert.Contains(t, fc.String(), `"a": 1`)
}

func TestRestructureCommand_OutCloseFailureFails(t *testing.T) {
	orig := createFile
	t.Cleanup(func() { createFile = orig })
	createFile = func(string) (io.WriteCloser, error) {
		return &failingCloser{closeErr: errors.New("flush failed")}, nil
	}
	in := writeFile(t, "pages.json", `[{"prunedResult":{"parsing_res_list":[{"block_label":"text","block_content":"x"}]}}]`)
	root := newRootCmd()
	root.SetArgs([]string{"restructure", in, "--out", "result.json", "--env-file", ""})
	assert.Error(t, root.ExecuteContext(context.Background()))
}
