package plan

import (
	"fmt"
	"math"

	"pland/pkg/types"
)

// searchState is the working configuration of one auto-fit search. It is
// owned exclusively by that search; nothing else mutates it.
type searchState struct {
	model    types.ModelShape
	workload types.Workload
	choices  types.EngineeringChoices
	gpuCount int
	cal      Calibration
}

// rung is one step of the mitigation ladder: applied only while its
// precondition holds and the configuration still fails to fit. apply mutates
// the state and returns the audit note for that mutation.
type rung struct {
	name    string
	applies func(*searchState) bool
	apply   func(*searchState) string
}

// mitigationLadder returns the ordered mitigation rungs. Expressing the
// ladder as data keeps step ordering explicit and unit-testable.
func mitigationLadder() []rung {
	return []rung{
		{
			name: "kv-cache-fp8",
			applies: func(s *searchState) bool {
				return !s.choices.KVCacheDtype.IsFP8()
			},
			apply: func(s *searchState) string {
				s.choices.KVCacheDtype = types.KVDtypeFP8
				return "set kv cache dtype to fp8, halving kv cache bytes"
			},
		},
		{
			name: "quantize-int8",
			applies: func(s *searchState) bool {
				q := s.choices.WeightQuantization
				return !s.choices.QuantizationLocked && (q == "" || q == types.QuantNone)
			},
			apply: func(s *searchState) string {
				s.choices.WeightQuantization = types.QuantINT8
				return "enabled int8 weight quantization"
			},
		},
		{
			name: "quantize-awq",
			applies: func(s *searchState) bool {
				return !s.choices.QuantizationLocked && !s.choices.WeightQuantization.Is4Bit()
			},
			apply: func(s *searchState) string {
				s.choices.WeightQuantization = types.QuantAWQ
				return "switched weight quantization to awq (~4-bit weights)"
			},
		},
		{
			name: "tensor-parallel",
			applies: func(s *searchState) bool {
				return s.choices.TensorParallelSize < s.gpuCount
			},
			apply: func(s *searchState) string {
				s.choices.TensorParallelSize++
				return fmt.Sprintf("increased tensor parallel size to %d", s.choices.TensorParallelSize)
			},
		},
		{
			name: "lower-batched-tokens",
			applies: func(s *searchState) bool {
				return nextBatchedTokens(s) > 0
			},
			apply: func(s *searchState) string {
				s.workload.MaxBatchedTokens = nextBatchedTokens(s)
				return fmt.Sprintf("lowered max batched tokens to %d", s.workload.MaxBatchedTokens)
			},
		},
		{
			name: "halve-avg-active-tokens",
			applies: func(s *searchState) bool {
				return s.workload.AvgActiveTokensPerSeq > s.cal.MinAvgActiveTokens
			},
			apply: func(s *searchState) string {
				s.workload.AvgActiveTokensPerSeq = halveFloor(s.workload.AvgActiveTokensPerSeq, s.cal.MinAvgActiveTokens)
				return fmt.Sprintf("reduced avg active tokens per sequence to %d", s.workload.AvgActiveTokensPerSeq)
			},
		},
		{
			name: "halve-concurrency",
			applies: func(s *searchState) bool {
				return s.workload.MaxConcurrentSequences > s.cal.MinConcurrentSequences
			},
			apply: func(s *searchState) string {
				s.workload.MaxConcurrentSequences = halveFloor(s.workload.MaxConcurrentSequences, s.cal.MinConcurrentSequences)
				return fmt.Sprintf("reduced max concurrent sequences to %d", s.workload.MaxConcurrentSequences)
			},
		},
		{
			name: "halve-context",
			applies: func(s *searchState) bool {
				return s.workload.ContextTokens > s.cal.MinContextTokens
			},
			apply: func(s *searchState) string {
				s.workload.ContextTokens = halveFloor(s.workload.ContextTokens, s.cal.MinContextTokens)
				// Keep the workload invariant avg <= context intact.
				if s.workload.AvgActiveTokensPerSeq > s.workload.ContextTokens {
					s.workload.AvgActiveTokensPerSeq = s.workload.ContextTokens
				}
				return fmt.Sprintf("reduced context length to %d", s.workload.ContextTokens)
			},
		},
	}
}

// AutoFit runs the ordered mitigation ladder until every participating GPU
// fits or the ladder is exhausted. Each mutation is validated by re-running
// the memory model before the search proceeds, and each mutation appends one
// note; the notes list is the audit trail of the search. The search always
// terminates: every rung has a bounded number of applications.
func AutoFit(model types.ModelShape, workload types.Workload, choices types.EngineeringChoices, hw types.HardwareSnapshot, cal Calibration) (types.AutoFitResponse, error) {
	if err := Validate(model, workload, choices, hw); err != nil {
		return types.AutoFitResponse{}, err
	}

	est, err := Estimate(model, workload, choices, hw, cal)
	if err != nil {
		return types.AutoFitResponse{}, err
	}
	resp := types.AutoFitResponse{
		Choices:  choices,
		Workload: workload,
		Notes:    []string{},
		Estimate: est,
	}
	// Nothing to optimize against, or already fitting: return the input
	// unchanged with an empty audit trail.
	if hw.GPUCount() == 0 || est.FitsAll {
		return resp, nil
	}

	st := &searchState{model: model, workload: workload, choices: choices, gpuCount: hw.GPUCount(), cal: cal}
	for _, r := range mitigationLadder() {
		for !est.FitsAll && r.applies(st) {
			resp.Notes = append(resp.Notes, r.apply(st))
			est, err = Estimate(st.model, st.workload, st.choices, hw, cal)
			if err != nil {
				return types.AutoFitResponse{}, err
			}
		}
		if est.FitsAll {
			break
		}
	}

	resp.Choices = st.choices
	resp.Workload = st.workload
	resp.Estimate = est
	if !est.FitsAll {
		off := offloadSuggestion(est, cal)
		resp.CPUOffloadGiB = off.CPUOffloadGiB
		resp.SwapGiB = off.SwapGiB
		resp.Notes = append(resp.Notes, fmt.Sprintf(
			"model still does not fit on gpu; suggest %d GiB cpu offload and %d GiB swap",
			off.CPUOffloadGiB, off.SwapGiB))
	}
	return resp, nil
}

// offloadSuggestion derives the last-resort spill sizes from the worst
// per-GPU deficit of the final estimate. The suggestion is operator guidance
// only; it is not fed back into the memory model.
func offloadSuggestion(est types.EstimateResponse, cal Calibration) types.OffloadSuggestion {
	var deficit int64
	for _, g := range est.PerGPU {
		if d := g.TotalBytes - g.FreeBytes; d > deficit {
			deficit = d
		}
	}
	if deficit <= 0 {
		return types.OffloadSuggestion{}
	}
	deficitGiB := float64(deficit) / float64(1<<30)
	swap := int(math.Ceil(deficitGiB / 2))
	if swap < cal.SwapFloorGiB {
		swap = cal.SwapFloorGiB
	}
	if swap > cal.SwapCeilGiB {
		swap = cal.SwapCeilGiB
	}
	return types.OffloadSuggestion{
		CPUOffloadGiB: int(math.Ceil(deficitGiB)),
		SwapGiB:       swap,
	}
}

// nextBatchedTokens returns the highest ladder value strictly below the
// current max batched tokens, or 0 when the rung can only raise it.
func nextBatchedTokens(s *searchState) int {
	cur := s.workload.MaxBatchedTokens
	if cur <= 0 {
		return 0
	}
	for _, v := range s.cal.BatchedTokensLadder {
		if v < cur {
			return v
		}
	}
	return 0
}

func halveFloor(v, floor int) int {
	v /= 2
	if v < floor {
		return floor
	}
	return v
}
