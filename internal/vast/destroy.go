package vast

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/emaland/gpulaunch/internal/executor"
	"github.com/emaland/gpulaunch/internal/offer"
)

// Destroy runs `vastai destroy instance <id>` and classifies what it
// printed. The error is only set when the CLI could not be run.
func (c *Client) Destroy(ctx context.Context, handle offer.Handle) (offer.DestroyResult, error) {
	cmd := executor.NewCmd(c.cli, "destroy", "instance", handle.String())

	out, err := c.runner.Run(ctx, cmd)
	if err != nil {
		return offer.DestroyResult{Reason: err.Error()}, errors.Wrap(err, "vast destroy instance")
	}
	return ClassifyDestroy(out.Stdout, out.Stderr), nil
}

// ClassifyDestroy succeeds only if stderr is empty, stdout is not, and
// stdout does not start with "failed".
func ClassifyDestroy(stdout, stderr string) offer.DestroyResult {
	out := strings.TrimSpace(stdout)
	errOut := strings.TrimSpace(stderr)

	switch {
	case errOut != "":
		return offer.DestroyResult{Reason: errOut}
	case out == "":
		return offer.DestroyResult{Reason: "no output from vastai"}
	case strings.HasPrefix(out, "failed"):
		return offer.DestroyResult{Reason: out}
	}
	return offer.DestroyResult{OK: true}
}
