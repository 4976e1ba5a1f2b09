package log

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLog_NoopWithoutInit(t *testing.T) {
	Reset()
	require.NotPanics(t, func() {
		Info(CatCLI, "nobody is listening", "k", "v")
	})
}

func TestLog_FormatsFields(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf)
	t.Cleanup(Reset)

	Info(CatRegistrar, "registration complete", "registered", 12, "skipped", 0)

	line := buf.String()
	require.Contains(t, line, "[INFO] [registrar] registration complete")
	require.Contains(t, line, "registered=12")
	require.Contains(t, line, "skipped=0")
	require.True(t, bytes.HasSuffix(buf.Bytes(), []byte("\n")))
}

func TestLog_OddFieldCount(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf)
	t.Cleanup(Reset)

	Warn(CatManifest, "dangling", "orphan")
	require.Contains(t, buf.String(), "orphan=<missing>")
}

func TestLog_ErrorErr(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf)
	t.Cleanup(Reset)

	ErrorErr(CatRegistry, "set failed", errors.New("boom"), "path", "a.b")
	require.Contains(t, buf.String(), "[ERROR] [registry] set failed path=a.b error=boom")

	buf.Reset()
	ErrorErr(CatRegistry, "nil error", nil)
	require.Contains(t, buf.String(), "error=<nil>")
}

func TestLog_MinLevelAndEnabled(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf)
	t.Cleanup(Reset)

	SetMinLevel(LevelWarn)
	Debug(CatCLI, "hidden")
	Info(CatCLI, "hidden")
	require.Empty(t, buf.String())

	Error(CatCLI, "shown")
	require.Contains(t, buf.String(), "shown")

	buf.Reset()
	SetEnabled(false)
	Error(CatCLI, "suppressed")
	require.Empty(t, buf.String())
}

func TestLog_InitFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routegate.log")
	cleanup, err := Init(path)
	require.NoError(t, err)
	t.Cleanup(Reset)

	Info(CatConfig, "loaded", "path", "config.yaml")
	cleanup()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "[INFO] [config] loaded path=config.yaml")
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, LevelDebug, ParseLevel("DEBUG"))
	require.Equal(t, LevelWarn, ParseLevel("warning"))
	require.Equal(t, LevelError, ParseLevel(" error "))
	require.Equal(t, LevelInfo, ParseLevel("info"))
	require.Equal(t, LevelInfo, ParseLevel("bogus"))
}
