package api

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	auditFilePattern = "audit_*.log"
	auditMaxBytes    = 100 << 20
	auditKeepFiles   = 10
)

// rotatingFile is an io.Writer over audit_<time>_<seq>.log files in dir. It starts a
// new file once the current one reaches maxBytes and keeps the newest keep
// files.
type rotatingFile struct {
	mu       sync.Mutex
	dir      string
	maxBytes int64
	keep     int
	file     *os.File
	written  int64
	seq      int
}

func openRotatingFile(dir string, maxBytes int64, keep int) (*rotatingFile, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create audit log directory: %w", err)
	}
	rf := &rotatingFile{dir: dir, maxBytes: maxBytes, keep: keep}
	if err := rf.rotate(); err != nil {
		return nil, err
	}
	return rf, nil
}

func (rf *rotatingFile) Write(p []byte) (int, error) {
	rf.mu.Lock()
	defer rf.mu.Unlock()

	if rf.file == nil {
		return 0, os.ErrClosed
	}
	if rf.written > 0 && rf.written+int64(len(p)) > rf.maxBytes {
		if err := rf.rotate(); err != nil {
			return 0, err
		}
	}
	n, err := rf.file.Write(p)
	rf.written += int64(n)
	return n, err
}

// rotate must be called with mu held.
func (rf *rotatingFile) rotate() error {
	if rf.file != nil {
		_ = rf.file.Close()
	}

	rf.seq++
	name := fmt.Sprintf("audit_%s_%04d.log", time.Now().UTC().Format("2006-01-02_15-04-05.000000"), rf.seq%10000)
	file, err := os.OpenFile(filepath.Join(rf.dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open audit log file: %w", err)
	}
	rf.file = file
	rf.written = 0
	rf.prune()
	return nil
}

func (rf *rotatingFile) prune() {
	files, err := filepath.Glob(filepath.Join(rf.dir, auditFilePattern))
	if err != nil {
		return
	}
	// names sort by creation time
	sort.Strings(files)
	for i := 0; i < len(files)-rf.keep; i++ {
		_ = os.Remove(files[i])
	}
}

func (rf *rotatingFile) Close() error {
	rf.mu.Lock()
	defer rf.mu.Unlock()
	if rf.file == nil {
		return nil
	}
	err := rf.file.Close()
	rf.file = nil
	return err
}

// AuditLogger records every state changing request and every rate limit
// rejection as one JSON line. A disabled logger drops everything.
type AuditLogger struct {
	out    *rotatingFile
	logger zerolog.Logger
}

// NewAuditLogger opens the audit trail under logDir.
func NewAuditLogger(logDir string, enabled bool) (*AuditLogger, error) {
	if !enabled {
		return &AuditLogger{logger: zerolog.Nop()}, nil
	}
	out, err := openRotatingFile(logDir, auditMaxBytes, auditKeepFiles)
	if err != nil {
		return nil, err
	}
	return &AuditLogger{
		out:    out,
		logger: zerolog.New(out).With().Timestamp().Logger(),
	}, nil
}

func (al *AuditLogger) event(c *gin.Context, level zerolog.Level, kind string) *zerolog.Event {
	return al.logger.WithLevel(level).
		Str("event_type", kind).
		Str("caller", c.GetHeader(HeaderCaller)).
		Str("ip_address", c.ClientIP()).
		Str("request_id", c.GetString(ContextKeyRequestID))
}

// LogOperation records the outcome of a ledger operation.
func (al *AuditLogger) LogOperation(c *gin.Context, op string, height int64, opErr error) {
	if opErr == nil {
		al.event(c, zerolog.InfoLevel, "operation").
			Str("action", op).
			Str("status", "success").
			Int64("height", height).
			Send()
		return
	}

	status, code := statusFor(opErr)
	al.event(c, levelForStatus(status), "operation").
		Str("action", op).
		Str("status", "rejected").
		Int("http_status", status).
		Str("code", code).
		AnErr("reason", opErr).
		Send()
}

// LogRateLimitExceeded records a request rejected by the rate limiter.
func (al *AuditLogger) LogRateLimitExceeded(c *gin.Context, limit string) {
	al.event(c, zerolog.WarnLevel, "rate_limit_exceeded").
		Str("action", c.Request.Method+" "+c.FullPath()).
		Str("status", "blocked").
		Str("limit", limit).
		Send()
}

// Close flushes and closes the current file.
func (al *AuditLogger) Close() error {
	if al.out == nil {
		return nil
	}
	return al.out.Close()
}

func levelForStatus(httpStatus int) zerolog.Level {
	switch {
	case httpStatus >= http.StatusInternalServerError:
		return zerolog.ErrorLevel
	case httpStatus == http.StatusForbidden:
		return zerolog.WarnLevel
	default:
		return zerolog.InfoLevel
	}
}
