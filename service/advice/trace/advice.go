// Package trace provides an advice wrapping the remainder of the chain in an
// OpenTelemetry span.
package trace

import (
	"fmt"

	"github.com/viant/advice/runtime/execution"
	"github.com/viant/advice/tracing"
)

const (
	Name       = "tracing"
	ContextKey = "tracing.span"
)

// Advice starts a span in Before and ends it in After with the session
// outcome. Advices following it see the span in the session context.
type Advice struct {
	kind string
}

func (a *Advice) Name() string { return Name }

func (a *Advice) Before(session *execution.Session) error {
	ctx, span := tracing.StartSpan(session.Ctx(), "advice.session "+session.Task.Function, a.kind)
	span.WithAttributes(map[string]string{
		"advice.run_id":       session.RunID,
		"advice.task_id":      session.Task.ID,
		"advice.execution_id": session.Execution.ID,
		"advice.session_id":   session.ID,
		"advice.function":     session.Task.Function,
	})
	session.SetCtx(ctx)
	session.Context[ContextKey] = span
	return session.Proceed()
}

func (a *Advice) After(session *execution.Session) error {
	value, ok := session.Context[ContextKey]
	delete(session.Context, ContextKey)
	if !ok {
		return nil
	}
	span, ok := value.(*tracing.Span)
	if !ok {
		return fmt.Errorf("unexpected %v type: %T", ContextKey, value)
	}
	var err error
	if session.Result != nil {
		err = session.Result.Err
	}
	tracing.EndSpan(span, err)
	return nil
}

// New creates a tracing advice; kind defaults to INTERNAL.
func New(kind string) *Advice {
	if kind == "" {
		kind = "INTERNAL"
	}
	return &Advice{kind: kind}
}
