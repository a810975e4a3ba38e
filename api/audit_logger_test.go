package api

import (
	"bufio"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/paw-chain/vaultbook/x/vault/types"
)

func readAuditLines(t *testing.T, dir string) []map[string]interface{} {
	t.Helper()
	files, err := filepath.Glob(filepath.Join(dir, auditFilePattern))
	require.NoError(t, err)

	var lines []map[string]interface{}
	for _, name := range files {
		f, err := os.Open(name)
		require.NoError(t, err)
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			var line map[string]interface{}
			require.NoError(t, json.Unmarshal(scanner.Bytes(), &line))
			lines = append(lines, line)
		}
		require.NoError(t, f.Close())
	}
	return lines
}

func auditContext() *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/api/vaults/1/pause", nil)
	c.Request.Header.Set(HeaderCaller, "vault1caller")
	c.Set(ContextKeyRequestID, "req-1")
	return c
}

func TestAuditLoggerWritesOperations(t *testing.T) {
	dir := t.TempDir()
	al, err := NewAuditLogger(dir, true)
	require.NoError(t, err)

	c := auditContext()
	al.LogOperation(c, "pause", 7, nil)
	al.LogOperation(c, "pause", 0, types.ErrNotAdmin)
	al.LogRateLimitExceeded(c, "1 rps, burst 5")
	require.NoError(t, al.Close())

	lines := readAuditLines(t, dir)
	require.Len(t, lines, 3)

	require.Equal(t, "success", lines[0]["status"])
	require.Equal(t, float64(7), lines[0]["height"])
	require.Equal(t, "vault1caller", lines[0]["caller"])
	require.Equal(t, "req-1", lines[0]["request_id"])

	require.Equal(t, "rejected", lines[1]["status"])
	require.Equal(t, "UNAUTHORIZED", lines[1]["code"])
	require.Equal(t, "warn", lines[1]["level"])

	require.Equal(t, "rate_limit_exceeded", lines[2]["event_type"])
	require.Equal(t, "blocked", lines[2]["status"])
}

func TestDisabledAuditLoggerDropsEvents(t *testing.T) {
	al, err := NewAuditLogger(filepath.Join(t.TempDir(), "unused"), false)
	require.NoError(t, err)
	al.LogOperation(auditContext(), "pause", 1, nil)
	require.NoError(t, al.Close())
}

func TestRotatingFileRotatesAndPrunes(t *testing.T) {
	dir := t.TempDir()
	rf, err := openRotatingFile(dir, 16, 2)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := rf.Write([]byte("0123456789abcdef\n"))
		require.NoError(t, err)
	}
	require.NoError(t, rf.Close())

	files, err := filepath.Glob(filepath.Join(dir, auditFilePattern))
	require.NoError(t, err)
	require.Len(t, files, 2)

	_, err = rf.Write([]byte("late"))
	require.ErrorIs(t, err, os.ErrClosed)
}
