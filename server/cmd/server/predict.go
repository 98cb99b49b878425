package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/engagestory/engagestory/pkg/types"
	"github.com/engagestory/engagestory/server/internal/compute"
	"github.com/engagestory/engagestory/server/internal/config"
	"github.com/engagestory/engagestory/server/internal/inference"
	"github.com/engagestory/engagestory/server/internal/orchestrator"
	"github.com/engagestory/engagestory/server/internal/snapshot"
)

// predictLevel raises level to at least warn; a one-shot run has no use for
// per-transition info logs.
func predictLevel(level slog.Level) slog.Level {
	return max(level, slog.LevelWarn)
}

type predictOptions struct {
	input   types.PredictionInput
	offline bool
	asJSON  bool
}

// runPredict scores one input and writes the presentation to out. Logs go
// to stderr so out stays machine-readable with --json.
func runPredict(ctx context.Context, out io.Writer, cfg *config.Config, opts predictOptions) error {
	installLogger(os.Stderr, predictLevel(cfg.Log.SlogLevel()))

	var remote orchestrator.Remote = inference.Offline{}
	if !opts.offline {
		remote = newRemote(cfg.Inference)
	}
	orch := orchestrator.New(remote, orchestrator.Options{Deadline: cfg.Inference.Deadline})

	form := snapshot.NewForm(opts.input)
	res, err := orch.Orchestrate(ctx, snapshot.Capture(form))
	if err != nil {
		return fmt.Errorf("predict: %w", err)
	}
	p := compute.Present(res)

	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	}

	fmt.Fprintf(out, "Predicted engagement: %s\n", p.Display)
	fmt.Fprintf(out, "Outlook:              %s\n", p.Label)
	fmt.Fprintf(out, "Source:               %s\n", p.Source)
	if p.Disclosure != "" {
		fmt.Fprintf(out, "Note:                 %s\n", p.Disclosure)
	}
	return nil
}
