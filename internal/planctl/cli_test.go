package planctl

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"pland/pkg/types"
)

func TestParseGPUSpec(t *testing.T) {
	hw, err := ParseGPUSpec("24576:2048, 81920:0,16384")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(hw.GPUs) != 3 {
		t.Fatalf("gpus len=%d", len(hw.GPUs))
	}
	if hw.GPUs[0].TotalMB != 24576 || hw.GPUs[0].UsedMB != 2048 {
		t.Fatalf("gpu0=%+v", hw.GPUs[0])
	}
	if hw.GPUs[1].Index != 1 || hw.GPUs[1].UsedMB != 0 {
		t.Fatalf("gpu1=%+v", hw.GPUs[1])
	}
	if hw.GPUs[2].TotalMB != 16384 || hw.GPUs[2].UsedMB != 0 {
		t.Fatalf("gpu2=%+v", hw.GPUs[2])
	}
}

func TestParseGPUSpecErrors(t *testing.T) {
	for _, in := range []string{"", "abc", "-1:0", "24576:-5", "0:0"} {
		if _, err := ParseGPUSpec(in); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}

func TestEstimateCommandWithCatalogModel(t *testing.T) {
	cfg := &Config{}
	root := buildRootCmd(cfg)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"estimate", "--model", "llama-3.1-8b", "--gpus", "81920:0"})
	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	var resp types.EstimateResponse
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v\n%s", err, out.String())
	}
	if !resp.Verified || len(resp.PerGPU) != 1 {
		t.Fatalf("resp=%+v", resp)
	}
}

func TestEstimateCommandFromFile(t *testing.T) {
	req := types.PlanRequest{
		Model:    types.ModelShape{ParamsBillions: 7, HiddenSize: 4096, NumLayers: 32},
		Workload: types.Workload{ContextTokens: 8192, MaxConcurrentSequences: 64, AvgActiveTokensPerSeq: 1024},
		Choices:  types.EngineeringChoices{TensorParallelSize: 1},
		Hardware: types.HardwareSnapshot{GPUs: []types.GPUDevice{{Index: 0, TotalMB: 81920}}},
	}
	b, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	path := filepath.Join(t.TempDir(), "req.json")
	if err := os.WriteFile(path, b, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg := &Config{}
	root := buildRootCmd(cfg)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"estimate", "-f", path})
	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	var resp types.EstimateResponse
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v\n%s", err, out.String())
	}
	if !resp.FitsAll {
		t.Fatalf("expected 7B to fit on an 80GB card: %+v", resp)
	}
}

func TestAutofitCommandRequiresInput(t *testing.T) {
	cfg := &Config{}
	root := buildRootCmd(cfg)
	root.SetOut(new(bytes.Buffer))
	root.SetErr(new(bytes.Buffer))
	root.SetArgs([]string{"autofit"})
	if err := root.Execute(); err == nil {
		t.Fatal("expected error without -f or --model")
	}
}

func TestModelsCommand(t *testing.T) {
	cfg := &Config{}
	root := buildRootCmd(cfg)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"models"})
	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	var resp types.ModelsResponse
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(resp.Models) == 0 {
		t.Fatal("expected built-in models")
	}
}
