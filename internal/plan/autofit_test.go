package plan

import (
	"reflect"
	"strings"
	"testing"

	"pland/pkg/types"
)

func TestAutoFitScenarioA(t *testing.T) {
	hw := types.HardwareSnapshot{GPUs: []types.GPUDevice{gpu24(0)}}
	res, err := AutoFit(model7B(), workloadHeavy(), choicesBF16(1), hw, DefaultCalibration())
	if err != nil {
		t.Fatalf("autofit: %v", err)
	}
	if !res.Estimate.FitsAll {
		t.Fatalf("expected a fitting configuration: %+v", res)
	}
	if res.Choices.KVCacheDtype != types.KVDtypeFP8 {
		t.Fatalf("kv dtype=%s", res.Choices.KVCacheDtype)
	}
	if res.Choices.WeightQuantization != types.QuantINT8 {
		t.Fatalf("quant=%s", res.Choices.WeightQuantization)
	}
	// Fit achieved at int8: the aggressive quantization rung must not fire.
	if len(res.Notes) != 2 {
		t.Fatalf("notes=%v", res.Notes)
	}
	if res.CPUOffloadGiB != 0 || res.SwapGiB != 0 {
		t.Fatalf("no offload expected: %+v", res)
	}
	if res.Choices.TensorParallelSize != 1 {
		t.Fatalf("tp=%d", res.Choices.TensorParallelSize)
	}
}

func TestAutoFitScenarioB_NoChange(t *testing.T) {
	hw := types.HardwareSnapshot{GPUs: []types.GPUDevice{gpu80(0), gpu80(1), gpu80(2), gpu80(3)}}
	res, err := AutoFit(model7B(), workloadHeavy(), choicesBF16(1), hw, DefaultCalibration())
	if err != nil {
		t.Fatalf("autofit: %v", err)
	}
	if len(res.Notes) != 0 {
		t.Fatalf("expected empty notes, got %v", res.Notes)
	}
	if !reflect.DeepEqual(res.Choices, choicesBF16(1)) || !reflect.DeepEqual(res.Workload, workloadHeavy()) {
		t.Fatalf("fitting input must be returned unchanged: %+v", res)
	}
}

func TestAutoFitNoHardwareShortCircuits(t *testing.T) {
	res, err := AutoFit(model7B(), workloadHeavy(), choicesBF16(1), types.HardwareSnapshot{}, DefaultCalibration())
	if err != nil {
		t.Fatalf("autofit: %v", err)
	}
	if len(res.Notes) != 0 || res.CPUOffloadGiB != 0 {
		t.Fatalf("nothing to optimize against: %+v", res)
	}
	if res.Estimate.Verified {
		t.Fatalf("estimate must be unverified")
	}
}

func TestAutoFitScenarioD_QuantizationLocked(t *testing.T) {
	model := types.ModelShape{ParamsBillions: 70, HiddenSize: 8192, NumLayers: 80}
	choices := choicesBF16(1)
	choices.QuantizationLocked = true
	hw := types.HardwareSnapshot{GPUs: []types.GPUDevice{gpu24(0)}}

	res, err := AutoFit(model, workloadHeavy(), choices, hw, DefaultCalibration())
	if err != nil {
		t.Fatalf("autofit: %v", err)
	}
	if res.Estimate.FitsAll {
		t.Fatalf("70B on 24GiB without quantization cannot fit")
	}
	if res.Choices.WeightQuantization != types.QuantNone {
		t.Fatalf("locked quantization was mutated to %s", res.Choices.WeightQuantization)
	}
	if res.CPUOffloadGiB == 0 {
		t.Fatalf("expected a cpu offload suggestion")
	}
	if res.SwapGiB < 4 || res.SwapGiB > 16 {
		t.Fatalf("swap=%d outside clamp", res.SwapGiB)
	}
	last := res.Notes[len(res.Notes)-1]
	if !strings.Contains(last, "cpu offload") {
		t.Fatalf("last note should carry the offload suggestion: %q", last)
	}
	// Ladder bound: kv rung + batched ladder + halvings + offload note.
	if len(res.Notes) > 10 {
		t.Fatalf("unbounded search: %d notes: %v", len(res.Notes), res.Notes)
	}
}

func TestAutoFitScenarioD_ExactSuggestion(t *testing.T) {
	model := types.ModelShape{ParamsBillions: 70, HiddenSize: 8192, NumLayers: 80}
	choices := choicesBF16(1)
	choices.QuantizationLocked = true
	hw := types.HardwareSnapshot{GPUs: []types.GPUDevice{gpu24(0)}}

	res, err := AutoFit(model, workloadHeavy(), choices, hw, DefaultCalibration())
	if err != nil {
		t.Fatalf("autofit: %v", err)
	}
	// Final state: kv fp8, batched 768, avg 512, conc 64, context 4096.
	want := types.Workload{ContextTokens: 4096, MaxConcurrentSequences: 64, AvgActiveTokensPerSeq: 512, MaxBatchedTokens: 768}
	if res.Workload != want {
		t.Fatalf("workload=%+v want %+v", res.Workload, want)
	}
	// Deficit ~125.4 GiB: offload rounds up, swap hits the 16 GiB ceiling.
	if res.CPUOffloadGiB != 126 {
		t.Fatalf("cpu offload=%d", res.CPUOffloadGiB)
	}
	if res.SwapGiB != 16 {
		t.Fatalf("swap=%d", res.SwapGiB)
	}
}

func TestAutoFitRaisesTensorParallelism(t *testing.T) {
	// 14B bf16 weights (28 GB) exceed one 24 GiB card but split across two.
	model := types.ModelShape{ParamsBillions: 14, HiddenSize: 5120, NumLayers: 40}
	w := types.Workload{ContextTokens: 4096, MaxConcurrentSequences: 8, AvgActiveTokensPerSeq: 1024, MaxBatchedTokens: 2048}
	choices := choicesBF16(1)
	choices.QuantizationLocked = true
	choices.KVCacheDtype = types.KVDtypeFP8
	hw := types.HardwareSnapshot{GPUs: []types.GPUDevice{gpu24(0), gpu24(1)}}

	res, err := AutoFit(model, w, choices, hw, DefaultCalibration())
	if err != nil {
		t.Fatalf("autofit: %v", err)
	}
	if !res.Estimate.FitsAll {
		t.Fatalf("expected tensor parallel fit: %+v", res)
	}
	if res.Choices.TensorParallelSize != 2 {
		t.Fatalf("tp=%d", res.Choices.TensorParallelSize)
	}
	for _, n := range res.Notes {
		if strings.Contains(n, "tensor parallel") {
			return
		}
	}
	t.Fatalf("missing tensor parallel note: %v", res.Notes)
}

func TestAutoFitBatchedTokensOnlyLowered(t *testing.T) {
	st := &searchState{cal: DefaultCalibration()}
	st.workload.MaxBatchedTokens = 1000
	if got := nextBatchedTokens(st); got != 768 {
		t.Fatalf("next=%d want 768", got)
	}
	st.workload.MaxBatchedTokens = 768
	if got := nextBatchedTokens(st); got != 0 {
		t.Fatalf("must never raise: got %d", got)
	}
	st.workload.MaxBatchedTokens = 0
	if got := nextBatchedTokens(st); got != 0 {
		t.Fatalf("unset cap must be left alone: got %d", got)
	}
}

func TestAutoFitContextHalvingKeepsInvariant(t *testing.T) {
	model := types.ModelShape{ParamsBillions: 70, HiddenSize: 8192, NumLayers: 80}
	w := types.Workload{ContextTokens: 8192, MaxConcurrentSequences: 256, AvgActiveTokensPerSeq: 8192, MaxBatchedTokens: 4096}
	choices := choicesBF16(1)
	choices.QuantizationLocked = true
	hw := types.HardwareSnapshot{GPUs: []types.GPUDevice{gpu24(0)}}

	res, err := AutoFit(model, w, choices, hw, DefaultCalibration())
	if err != nil {
		t.Fatalf("autofit: %v", err)
	}
	if res.Workload.AvgActiveTokensPerSeq > res.Workload.ContextTokens {
		t.Fatalf("invariant broken: avg %d > context %d", res.Workload.AvgActiveTokensPerSeq, res.Workload.ContextTokens)
	}
}

func TestAutoFitInvalidInput(t *testing.T) {
	m := model7B()
	m.NumLayers = 0
	hw := types.HardwareSnapshot{GPUs: []types.GPUDevice{gpu24(0)}}
	if _, err := AutoFit(m, workloadHeavy(), choicesBF16(1), hw, DefaultCalibration()); !IsInvalidInput(err) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestLadderOrderIsStable(t *testing.T) {
	want := []string{
		"kv-cache-fp8",
		"quantize-int8",
		"quantize-awq",
		"tensor-parallel",
		"lower-batched-tokens",
		"halve-avg-active-tokens",
		"halve-concurrency",
		"halve-context",
	}
	rungs := mitigationLadder()
	if len(rungs) != len(want) {
		t.Fatalf("ladder len=%d", len(rungs))
	}
	for i, r := range rungs {
		if r.name != want[i] {
			t.Fatalf("rung %d = %s, want %s", i, r.name, want[i])
		}
	}
}
