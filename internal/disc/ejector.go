package disc

import (
	"context"
	"log/slog"
	"strings"

	"piripper/internal/logging"
	"piripper/internal/procrun"
)

// Ejector defines disc eject operations.
type Ejector interface {
	Eject(ctx context.Context, device string) error
}

type commandEjector struct {
	binary string
	runner procrun.Runner
	logger *slog.Logger
}

// NewEjector creates an ejector that shells out to the eject utility.
func NewEjector(binary string, runner procrun.Runner, logger *slog.Logger) Ejector {
	if strings.TrimSpace(binary) == "" {
		binary = "eject"
	}
	if runner == nil {
		runner = procrun.NewExecRunner()
	}
	return &commandEjector{binary: binary, runner: runner, logger: logging.NewComponentLogger(logger, "ejector")}
}

func (e *commandEjector) Eject(ctx context.Context, device string) error {
	var args []string
	if device != "" {
		args = []string{device}
	}
	result, err := e.runner.Run(ctx, e.binary, args...)
	if err := procrun.Classify("disc", "eject", result, err); err != nil {
		return err
	}
	e.logger.Info("tray ejected",
		logging.String(logging.FieldEventType, "tray_ejected"),
		logging.String(logging.FieldDevice, device),
	)
	return nil
}
