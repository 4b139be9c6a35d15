package vast

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/emaland/gpulaunch/internal/executor"
	"github.com/emaland/gpulaunch/internal/offer"
)

// Query renders criteria in the vastai search language. The price ceiling
// is not part of it; the CLI cannot filter on $/hr.
func Query(c offer.Criteria) string {
	return fmt.Sprintf("gpu_name=%s reliability>%s num_gpus=%d cpu_ram>=%d",
		c.GPUName,
		strconv.FormatFloat(c.MinReliability, 'f', -1, 64),
		c.NumGPUs,
		c.MinRAMGB,
	)
}

// Search runs `vastai search offers` and parses its table. Offers come
// back cheapest first. A non-zero exit is not an error: whatever stdout
// held is parsed, and stderr lines are returned as diagnostics.
func (c *Client) Search(ctx context.Context, criteria offer.Criteria) (offer.SearchResult, error) {
	cmd := executor.NewCmd(c.cli, "search", "offers", Query(criteria), "-o", "dph")

	out, err := c.runner.Run(ctx, cmd)
	if err != nil {
		return offer.SearchResult{}, errors.Wrap(err, "vast search offers")
	}

	result := offer.SearchResult{Diagnostics: nonEmptyLines(out.Stderr)}
	if out.ExitCode != 0 {
		c.logger.WithField("exit", out.ExitCode).Warn("vast search exited non-zero")
	}

	offers, err := offer.ParseTable(out.Stdout)
	if err != nil {
		return result, errors.Wrap(err, "vast search offers")
	}
	result.Offers = offers
	return result, nil
}

func nonEmptyLines(s string) []string {
	var lines []string
	for _, l := range strings.Split(strings.TrimSpace(s), "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}
