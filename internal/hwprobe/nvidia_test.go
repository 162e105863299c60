package hwprobe

import (
	"context"
	"strings"
	"testing"

	"pland/pkg/types"
)

func TestParseQueryCSV(t *testing.T) {
	out := "0, NVIDIA GeForce RTX 4090, 24564, 2011\n1, NVIDIA GeForce RTX 4090, 24564, 419\n"
	gpus, err := parseQueryCSV(strings.NewReader(out))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(gpus) != 2 {
		t.Fatalf("gpus len=%d", len(gpus))
	}
	if gpus[0].Index != 0 || gpus[0].Name != "NVIDIA GeForce RTX 4090" || gpus[0].TotalMB != 24564 || gpus[0].UsedMB != 2011 {
		t.Fatalf("gpu0=%+v", gpus[0])
	}
	if gpus[1].Index != 1 || gpus[1].FreeMB() != 24564-419 {
		t.Fatalf("gpu1=%+v", gpus[1])
	}
}

func TestParseQueryCSVSkipsMalformedRows(t *testing.T) {
	out := "garbage\nN/A, broken, x, y\n0, Tesla T4, 15360, 500\n"
	gpus, err := parseQueryCSV(strings.NewReader(out))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(gpus) != 1 || gpus[0].Name != "Tesla T4" {
		t.Fatalf("gpus=%+v", gpus)
	}
}

func TestParseQueryCSVEmpty(t *testing.T) {
	gpus, err := parseQueryCSV(strings.NewReader(""))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(gpus) != 0 {
		t.Fatalf("gpus=%+v", gpus)
	}
}

func TestNvidiaSMIMissingBinary(t *testing.T) {
	p := &NvidiaSMI{Bin: "definitely-not-nvidia-smi-xyz"}
	_, err := p.Snapshot(context.Background())
	if !IsUnavailable(err) {
		t.Fatalf("expected unavailable, got %v", err)
	}
}

func TestStaticProvider(t *testing.T) {
	want := types.HardwareSnapshot{GPUs: []types.GPUDevice{{Index: 0, TotalMB: 1000, UsedMB: 100}}}
	hw, err := Static{HW: want}.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if hw.GPUCount() != 1 || hw.GPUs[0].TotalMB != 1000 {
		t.Fatalf("hw=%+v", hw)
	}
}
