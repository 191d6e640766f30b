package services

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quoteapi-server/models"
)

func newTestRunner(t *testing.T) *ProcessRunner {
	t.Helper()
	r, err := NewProcessRunner()
	require.NoError(t, err)
	if _, err := exec.LookPath(r.python); err != nil {
		t.Skipf("%s not available: %v", r.python, err)
	}
	return r
}

func TestRunReturnsScriptJSON(t *testing.T) {
	r := newTestRunner(t)

	script := models.Script{
		Source: "import json, sys\nctx = json.loads(sys.stdin.read())\nprint(json.dumps({'echo': ctx['params']['q']}, ensure_ascii=False))\n",
		Input:  []byte(`{"params":{"q":"你好"}}`),
	}

	out, err := r.Run(context.Background(), script, 5*time.Second)
	require.NoError(t, err)

	var decoded map[string]string
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Equal(t, "你好", decoded["echo"])
}

func TestRunNonJSONOutput(t *testing.T) {
	r := newTestRunner(t)

	script := models.Script{Source: "print('not json')\n", Input: []byte(`{}`)}
	_, err := r.Run(context.Background(), script, 5*time.Second)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrScript)
	assert.Contains(t, err.Error(), "返回值格式错误")
}

func TestRunEmptyOutput(t *testing.T) {
	r := newTestRunner(t)

	script := models.Script{Source: "pass\n", Input: []byte(`{}`)}
	_, err := r.Run(context.Background(), script, 5*time.Second)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrScript)
}

func TestRunScriptCrashCarriesStderr(t *testing.T) {
	r := newTestRunner(t)

	script := models.Script{Source: "raise RuntimeError('boom')\n", Input: []byte(`{}`)}
	_, err := r.Run(context.Background(), script, 5*time.Second)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrScript)
	assert.Contains(t, err.Error(), "boom")
}

func TestRunTimeout(t *testing.T) {
	r := newTestRunner(t)

	script := models.Script{Source: "import time\ntime.sleep(30)\n", Input: []byte(`{}`)}
	start := time.Now()
	_, err := r.Run(context.Background(), script, 500*time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrScript)
	assert.Contains(t, err.Error(), "超时")
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestRunContextCancelKillsProcess(t *testing.T) {
	r := newTestRunner(t)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(200 * time.Millisecond)
		cancel()
	}()

	script := models.Script{Source: "import time\ntime.sleep(30)\n", Input: []byte(`{}`)}
	start := time.Now()
	_, err := r.Run(ctx, script, time.Minute)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestRunRemovesTempFile(t *testing.T) {
	r := newTestRunner(t)

	before, err := os.ReadDir(r.tempDir)
	require.NoError(t, err)

	script := models.Script{Source: "print('{}')\n", Input: []byte(`{}`)}
	_, err = r.Run(context.Background(), script, 5*time.Second)
	require.NoError(t, err)

	after, err := os.ReadDir(r.tempDir)
	require.NoError(t, err)
	assert.Len(t, after, len(before))
}

func TestRunMissingInterpreterIsInfrastructure(t *testing.T) {
	r, err := NewProcessRunner()
	require.NoError(t, err)
	r.python = "definitely-not-a-python-binary"

	script := models.Script{Source: "print('{}')\n", Input: []byte(`{}`)}
	_, err = r.Run(context.Background(), script, 5*time.Second)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInfrastructure)
}

func TestAssembledScriptEndToEnd(t *testing.T) {
	r := newTestRunner(t)
	a := NewScriptAssembler()

	rc := models.RunContext{
		CurrentDate: "2025-07-01",
		Params:      map[string]interface{}{"name": "世界"},
	}

	script, err := a.Assemble(rc, "result = {'greeting': f'你好, {params[\"name\"]}', 'date': current_date}")
	require.NoError(t, err)

	out, err := r.Run(context.Background(), script, 10*time.Second)
	require.NoError(t, err)

	var decoded map[string]string
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Equal(t, "你好, 世界", decoded["greeting"])
	assert.Equal(t, "2025-07-01", decoded["date"])
}

func TestAssembledScriptMissingResult(t *testing.T) {
	r := newTestRunner(t)
	a := NewScriptAssembler()

	script, err := a.Assemble(models.RunContext{Params: map[string]interface{}{}}, "x = 1")
	require.NoError(t, err)

	out, err := r.Run(context.Background(), script, 10*time.Second)
	require.NoError(t, err)

	var decoded map[string]string
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Equal(t, "代码必须定义result变量", decoded["error"])
}

func TestAssembledScriptUserException(t *testing.T) {
	r := newTestRunner(t)
	a := NewScriptAssembler()

	script, err := a.Assemble(models.RunContext{Params: map[string]interface{}{}}, "raise ValueError('坏参数')")
	require.NoError(t, err)

	out, err := r.Run(context.Background(), script, 10*time.Second)
	require.NoError(t, err)

	var decoded map[string]string
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Equal(t, "坏参数", decoded["error"])
}
