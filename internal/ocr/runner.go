package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/leases-tracker/internal/common"
)

// ErrToolTimeout marks an external tool stopped by its deadline.
var ErrToolTimeout = errors.New("ocr tool timed out")

// Runner runs the external text tools; tests swap in a stub.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

const maxLoggedStderr = 8 << 10

// execRunner bounds every pdftotext, pdftoppm and tesseract call by
// timeout on top of the document deadline.
type execRunner struct {
	timeout time.Duration
	logger  *slog.Logger
}

func (r execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	ctx, cancel := common.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	cmd := exec.CommandContext(ctx, name, args...)
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb
	err := cmd.Run()

	tool := filepath.Base(name)
	attrs := []any{"tool", tool, "duration_ms", time.Since(start).Milliseconds()}
	switch {
	case err == nil:
		r.logger.Debug("ocr.tool.ok", append(attrs, "stdout_bytes", out.Len())...)
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		err = fmt.Errorf("%s: %w", tool, ErrToolTimeout)
		r.logger.Warn("ocr.tool.timeout", append(attrs, "timeout", r.timeout)...)
	default:
		r.logger.Error("ocr.tool.failed", append(attrs,
			"args", strings.Join(args, " "),
			"error", err,
			"stderr", truncate(errb.String(), maxLoggedStderr),
		)...)
	}
	return out.Bytes(), errb.Bytes(), err
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
