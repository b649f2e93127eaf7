// File: internal/fixregistry/interceptor.go
// Description: Global interception layer. Tails the application log file,
// extracts error-like entries, and forwards them to the fix registry even
// when no code path threw. Lines carrying "Warning:"/"Error:" markers are
// treated as actionable signals.
package fixregistry

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/hpcloud/tail"
	"go.uber.org/zap"

	"github.com/reqini/catalogo-indumentaria-sub000/api/schemas"
	"github.com/reqini/catalogo-indumentaria-sub000/internal/guardian"
)

// -- Regex Definitions --
var (
	levelRegex      = regexp.MustCompile(`"level":"(error|warn|fatal|panic)"|\b(ERROR|WARN|FATAL)\b`)
	markerRegex     = regexp.MustCompile(`(Warning|Error):\s*(.+)`)
	jsonMsgRegex    = regexp.MustCompile(`"msg":"((?:[^"\\]|\\.)*)"`)
	jsonStackRegex  = regexp.MustCompile(`"stacktrace":"((?:[^"\\]|\\.)*)"`)
	sourceFileRegex = regexp.MustCompile(`([\w./-]+\.(?:ts|tsx|js|jsx)):(\d+)`)
)

// Interceptor wires the log stream into the registry and the alert store.
type Interceptor struct {
	logger   *zap.Logger
	registry *Registry
	guardian *guardian.Guardian
	logPath  string
}

// NewInterceptor creates an interceptor for the given log file. It returns
// an error when no log path is configured, since there is nothing to watch.
func NewInterceptor(logger *zap.Logger, registry *Registry, g *guardian.Guardian, logPath string) (*Interceptor, error) {
	if logPath == "" {
		return nil, fmt.Errorf("logger.log_file must be configured for error interception")
	}
	return &Interceptor{
		logger:   logger.Named("interceptor"),
		registry: registry,
		guardian: g,
		logPath:  logPath,
	}, nil
}

// Start begins tailing the log file from its end. The monitor loop runs in
// its own goroutine until the context is cancelled.
func (i *Interceptor) Start(ctx context.Context) error {
	i.logger.Info("Starting error interception", zap.String("log_file", i.logPath))

	t, err := tail.TailFile(i.logPath, tail.Config{
		Follow:    true,
		ReOpen:    true,
		MustExist: true,
		Location:  &tail.SeekInfo{Offset: 0, Whence: 2},
		Logger:    tail.DiscardingLogger,
	})
	if err != nil {
		return fmt.Errorf("failed to tail application log file: %w", err)
	}

	go i.monitorLoop(ctx, t)
	return nil
}

func (i *Interceptor) monitorLoop(ctx context.Context, t *tail.Tail) {
	defer func() {
		t.Stop()
		t.Cleanup()
	}()

	for {
		select {
		case <-ctx.Done():
			i.logger.Info("Stopping error interception.")
			return
		case line, ok := <-t.Lines:
			if !ok {
				i.logger.Info("Log tailer channel closed.")
				return
			}
			if line.Err != nil {
				i.logger.Warn("Error reading from log file", zap.Error(line.Err))
				continue
			}
			if event, ok := i.extract(line.Text); ok {
				i.Intercept(event)
			}
		}
	}
}

// extract normalizes one log line into an ErrorEvent. It accepts structured
// JSON entries at error level and plain lines with Warning:/Error: markers.
func (i *Interceptor) extract(text string) (ErrorEvent, bool) {
	hasLevel := levelRegex.MatchString(text)
	marker := markerRegex.FindStringSubmatch(text)
	if !hasLevel && marker == nil {
		return ErrorEvent{}, false
	}

	event := ErrorEvent{Message: strings.TrimSpace(text)}
	if m := jsonMsgRegex.FindStringSubmatch(text); len(m) > 1 {
		event.Message = m[1]
	} else if marker != nil {
		event.Message = strings.TrimSpace(marker[2])
	}
	if m := jsonStackRegex.FindStringSubmatch(text); len(m) > 1 {
		event.Stack = strings.ReplaceAll(m[1], `\n`, "\n")
	}
	return event, true
}

// Intercept forwards one event through the registry and records the outcome
// in the alert store. Matches that produced a real action auto-resolve the
// corresponding alert path; manual-review results stay active.
func (i *Interceptor) Intercept(event ErrorEvent) schemas.FixResult {
	result := i.registry.Apply(event)

	opts := &guardian.DetectOptions{
		Details: map[string]any{
			"action":           result.Action,
			"requires_restart": result.RequiresRestart,
		},
		Solution: result.Message,
	}
	if m := sourceFileRegex.FindStringSubmatch(event.Stack); len(m) > 2 {
		opts.SourceFile = m[1]
		opts.SourceLine, _ = strconv.Atoi(m[2])
	}

	severity := schemas.SeverityWarning
	if !result.Success {
		severity = schemas.SeverityError
	}
	i.guardian.DetectError(severity, schemas.CategoryComponents, event.Message, opts)
	return result
}
