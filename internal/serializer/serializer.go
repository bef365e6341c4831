// Package serializer runs the external tool that turns binary assets into sidecar JSON.
//
// The tool is a black box: callers learn whether it succeeded only by looking
// for the sidecar afterwards, so exit statuses are logged and otherwise ignored.
package serializer

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"go.uber.org/zap"

	"github.com/CageChen/assethub/internal/logging"
	"github.com/CageChen/assethub/internal/metrics"
)

// Serializer regenerates the sidecar of the binary asset at assetPath.
type Serializer interface {
	Serialize(ctx context.Context, assetPath string) error
}

// Func adapts a plain function to the Serializer interface.
type Func func(ctx context.Context, assetPath string) error

// Serialize calls f.
func (f Func) Serialize(ctx context.Context, assetPath string) error {
	return f(ctx, assetPath)
}

// Exec invokes an external program as `<path> <args...> <assetPath>`.
type Exec struct {
	path   string
	args   []string
	logger *zap.Logger
}

// NewExec creates an Exec serializer for the tool at path.
func NewExec(path string, args []string, logger *zap.Logger) *Exec {
	return &Exec{
		path:   path,
		args:   append([]string(nil), args...),
		logger: logging.OrNop(logger),
	}
}

// Serialize runs the tool and blocks until it exits. Output is discarded.
// A non-zero exit is not an error; only a failure to start the tool or a
// cancelled context is.
func (e *Exec) Serialize(ctx context.Context, assetPath string) error {
	args := append(append([]string(nil), e.args...), assetPath)
	cmd := exec.CommandContext(ctx, e.path, args...)

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if err == nil {
		metrics.RecordSerializerRun(metrics.SerializerOK, elapsed)
		e.logger.Debug("serializer finished",
			zap.String("asset", assetPath),
			zap.Duration("elapsed", elapsed))
		return nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		metrics.RecordSerializerRun(metrics.SerializerExitErr, elapsed)
		e.logger.Debug("serializer exited with status",
			zap.String("asset", assetPath),
			zap.Int("code", exitErr.ExitCode()))
		return nil
	}

	metrics.RecordSerializerRun(metrics.SerializerStartErr, elapsed)
	return fmt.Errorf("run %s: %w", e.path, err)
}
