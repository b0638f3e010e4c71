package prompt

import (
	"context"
	"strings"

	"github.com/RHUDHRESH/Raptorflow-v1-sub003/core"
)

// Generate asks gen for a JSON object shaped like T and decodes it. The
// schema of T is appended to the system prompt.
func Generate[T any](ctx context.Context, gen core.Generator, req core.GenerateRequest) (T, error) {
	var zero T
	req.JSON = true
	req.System = strings.TrimSpace(req.System + "\n\n" + JSONInstruction(zero))
	out, err := gen.Generate(ctx, req)
	if err != nil {
		return zero, err
	}
	return Decode[T](req.Task, out.Text)
}
