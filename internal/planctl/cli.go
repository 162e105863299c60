// Package planctl implements the planctl command line tool: an offline
// front end for the capacity planner that drives the advisor directly,
// without a running pland server.
package planctl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"pland/internal/advisor"
	"pland/internal/catalog"
	"pland/pkg/types"
)

// Config carries the persistent flag values shared by all subcommands.
type Config struct {
	CatalogPath string
	ProbeBin    string
	RequestPath string // JSON plan request file; "-" or empty means stdin
	ModelID     string // catalog id that fills the request's model shape
	GPUSpec     string // synthetic hardware, e.g. "24576:2048,24576:2048"
}

// Main is the planctl entrypoint. Returns a process exit code.
func Main(args []string) int {
	cfg := &Config{
		CatalogPath: os.Getenv("PLAND_CATALOG"),
		ProbeBin:    os.Getenv("PLAND_PROBE_BIN"),
	}
	root := buildRootCmd(cfg)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "planctl: %v\n", err)
		return 1
	}
	return 0
}

func buildRootCmd(cfg *Config) *cobra.Command {
	root := &cobra.Command{
		Use:           "planctl",
		Short:         "Capacity planning for LLM serving, from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfg.CatalogPath, "catalog", cfg.CatalogPath, "Model catalog file merged over the built-in presets (defaults PLAND_CATALOG)")
	root.PersistentFlags().StringVar(&cfg.ProbeBin, "probe-bin", cfg.ProbeBin, "nvidia-smi binary path (defaults PLAND_PROBE_BIN)")

	estimate := &cobra.Command{
		Use:     "estimate",
		Short:   "Estimate VRAM needs for a plan request",
		Example: "  planctl estimate -f request.json\n  planctl estimate --model llama-3.1-8b --gpus 24576:2048",
		RunE: func(cmd *cobra.Command, args []string) error {
			adv, req, err := prepare(cfg)
			if err != nil {
				return err
			}
			resp, err := adv.Estimate(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
	addRequestFlags(estimate, cfg)

	autofit := &cobra.Command{
		Use:     "autofit",
		Short:   "Estimate and, if needed, search for a fitting configuration",
		Example: "  planctl autofit -f request.json\n  planctl autofit --model llama-3.1-70b --gpus 81920:0,81920:0",
		RunE: func(cmd *cobra.Command, args []string) error {
			adv, req, err := prepare(cfg)
			if err != nil {
				return err
			}
			resp, err := adv.AutoFit(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
	addRequestFlags(autofit, cfg)

	models := &cobra.Command{
		Use:   "models",
		Short: "List the model catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			adv, err := newAdvisor(cfg)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), types.ModelsResponse{Models: adv.Models()})
		},
	}

	hardware := &cobra.Command{
		Use:   "hardware",
		Short: "Probe local GPUs via nvidia-smi",
		RunE: func(cmd *cobra.Command, args []string) error {
			adv, err := newAdvisor(cfg)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			resp, err := adv.Hardware(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}

	root.AddCommand(estimate, autofit, models, hardware)
	return root
}

func addRequestFlags(cmd *cobra.Command, cfg *Config) {
	cmd.Flags().StringVarP(&cfg.RequestPath, "file", "f", "", "Plan request JSON file (- for stdin)")
	cmd.Flags().StringVar(&cfg.ModelID, "model", "", "Catalog model id; fills the request's model shape")
	cmd.Flags().StringVar(&cfg.GPUSpec, "gpus", "", "Synthetic hardware as total_mb:used_mb pairs, comma separated")
}

func newAdvisor(cfg *Config) (*advisor.Advisor, error) {
	var cat *catalog.Catalog
	if cfg.CatalogPath != "" {
		c, err := catalog.Load(cfg.CatalogPath)
		if err != nil {
			return nil, fmt.Errorf("load catalog: %w", err)
		}
		cat = c
	}
	return advisor.NewWithConfig(advisor.Config{Catalog: cat, ProbeBin: cfg.ProbeBin}), nil
}

// prepare builds the advisor and assembles the plan request from the
// file/stdin body plus the --model and --gpus conveniences.
func prepare(cfg *Config) (*advisor.Advisor, types.PlanRequest, error) {
	var req types.PlanRequest
	adv, err := newAdvisor(cfg)
	if err != nil {
		return nil, req, err
	}
	if cfg.RequestPath != "" {
		b, err := readRequest(cfg.RequestPath)
		if err != nil {
			return nil, req, err
		}
		if err := json.Unmarshal(b, &req); err != nil {
			return nil, req, fmt.Errorf("parse request: %w", err)
		}
	} else if cfg.ModelID == "" {
		return nil, req, fmt.Errorf("either -f or --model is required")
	}
	if cfg.ModelID != "" {
		card, ok := adv.LookupModel(cfg.ModelID)
		if !ok {
			return nil, req, fmt.Errorf("unknown model id %q", cfg.ModelID)
		}
		req.Model = card.Shape
		if req.Workload.ContextTokens == 0 {
			req.Workload = defaultWorkload(card)
		}
	}
	if req.Choices.TensorParallelSize == 0 {
		req.Choices.TensorParallelSize = 1
	}
	if cfg.GPUSpec != "" {
		hw, err := ParseGPUSpec(cfg.GPUSpec)
		if err != nil {
			return nil, req, err
		}
		req.Hardware = hw
	}
	return adv, req, nil
}

func defaultWorkload(card types.ModelCard) types.Workload {
	ctx := card.MaxContextTokens
	if ctx <= 0 {
		ctx = 8192
	}
	return types.Workload{
		ContextTokens:          ctx,
		MaxConcurrentSequences: 64,
		AvgActiveTokensPerSeq:  2048,
	}
}

func readRequest(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

// ParseGPUSpec parses "total_mb:used_mb,total_mb:used_mb,..." into a
// hardware snapshot. Used defaults to 0 when omitted.
func ParseGPUSpec(s string) (types.HardwareSnapshot, error) {
	var hw types.HardwareSnapshot
	for i, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		totalStr, usedStr, _ := strings.Cut(part, ":")
		total, err := strconv.Atoi(strings.TrimSpace(totalStr))
		if err != nil || total <= 0 {
			return hw, fmt.Errorf("bad gpu spec %q: total must be a positive MB count", part)
		}
		used := 0
		if usedStr != "" {
			used, err = strconv.Atoi(strings.TrimSpace(usedStr))
			if err != nil || used < 0 {
				return hw, fmt.Errorf("bad gpu spec %q: used must be a non-negative MB count", part)
			}
		}
		hw.GPUs = append(hw.GPUs, types.GPUDevice{
			Index:   i,
			Name:    "synthetic",
			TotalMB: total,
			UsedMB:  used,
		})
	}
	if len(hw.GPUs) == 0 {
		return hw, fmt.Errorf("empty gpu spec")
	}
	return hw, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
