package logger

import "context"

type runKey struct{}

// RunContext captures batch-scoped identifiers for log correlation.
type RunContext struct {
	RunID    string
	Manifest string
}

// ContextWithRun returns a derived context carrying the provided run metadata.
func ContextWithRun(ctx context.Context, run RunContext) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return context.WithValue(ctx, runKey{}, run)
}

// RunFromContext extracts a RunContext from ctx.
func RunFromContext(ctx context.Context) RunContext {
	if ctx == nil {
		return RunContext{}
	}
	if run, ok := ctx.Value(runKey{}).(RunContext); ok {
		return run
	}
	return RunContext{}
}

func runFieldsFromContext(ctx context.Context) []Field {
	run := RunFromContext(ctx)
	return run.fields()
}

func (r RunContext) fields() []Field {
	var fields []Field
	if r.RunID != "" {
		fields = append(fields, String("run_id", r.RunID))
	}
	if r.Manifest != "" {
		fields = append(fields, String("manifest", r.Manifest))
	}
	return fields
}
