// Package main provides a command-line client that runs one generation
// request in process and prints the result as JSON.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/maauso/veogen/internal/bootstrap"
	"github.com/maauso/veogen/internal/config"
	"github.com/maauso/veogen/internal/job"
	"github.com/maauso/veogen/internal/prompt"
)

var version = "dev"

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	prompt         string
	variations     int
	aspect         string
	people         string
	style          string
	negativePrompt string
	image          string
	extended       bool
	envFile        string
}

// errGenerationFailed makes the process exit non-zero after the result is printed.
var errGenerationFailed = errors.New("no video was generated")

func newRootCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "veogen [prompt]",
		Short: "Generate video variations from a text prompt",
		Long: `veogen submits a prompt to the configured backend, polls every variation
until it finishes or runs out of polls, saves the videos to OUTPUT_DIR and
prints the result as JSON.

Examples:
  veogen "a lighthouse in a storm"
  veogen -p "a paper boat" -n 3 --aspect portrait --style cinematic
  veogen -p "city timelapse" --extended`,
		Version:       version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.prompt == "" && len(args) == 1 {
				opts.prompt = args[0]
			}
			return run(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.prompt, "prompt", "p", "", "description of the video")
	f.IntVarP(&opts.variations, "variations", "n", job.DefaultVariationCount, "number of variations")
	f.StringVar(&opts.aspect, "aspect", string(prompt.DefaultAspectRatio), "aspect ratio or format word (landscape, portrait, square)")
	f.StringVar(&opts.people, "people", string(prompt.DefaultPersonPolicy), "person generation policy (dont_allow, allow_adult)")
	f.StringVar(&opts.style, "style", "", "prompt style (cinematic, documentary, artistic, ...)")
	f.StringVar(&opts.negativePrompt, "negative", "", "what the video should avoid")
	f.StringVar(&opts.image, "image", "", "image to animate (required by the stability backend)")
	f.BoolVar(&opts.extended, "extended", false, "use the extended poll budget")
	f.StringVar(&opts.envFile, "env-file", ".env", "dotenv file to load before the environment")

	return cmd
}

func run(ctx context.Context, out io.Writer, opts options) error {
	req := opts.request()
	if req.Prompt == "" {
		return job.ErrPromptRequired
	}

	cfg, err := config.LoadFiles(opts.envFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	// stdout carries the JSON result.
	logger := cfg.NewLoggerTo(os.Stderr)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := bootstrap.NewDependencies(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize dependencies: %w", err)
	}

	res := deps.Service.Generate(ctx, req)

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	if !res.Success {
		return errGenerationFailed
	}
	return nil
}

func (o options) request() job.Request {
	req := job.Request{
		Prompt:         o.prompt,
		AspectRatio:    prompt.ParseAspectRatio(o.aspect),
		PersonPolicy:   prompt.ParsePersonPolicy(o.people),
		Style:          prompt.ParseStyle(o.style),
		VariationCount: o.variations,
		NegativePrompt: o.negativePrompt,
		ImagePath:      o.image,
		Budget:         job.BudgetBasic,
	}
	if o.extended {
		req.Budget = job.BudgetExtended
	}
	req.Prompt = strings.TrimSpace(req.Prompt)
	return req
}
