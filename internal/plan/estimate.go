package plan

import (
	"fmt"

	"pland/pkg/types"
)

// Validate rejects structurally invalid planner input. It never clamps: the
// caller must surface the error to the user instead of silently fixing it.
func Validate(model types.ModelShape, workload types.Workload, choices types.EngineeringChoices, hw types.HardwareSnapshot) error {
	if model.ParamsBillions <= 0 {
		return ErrInvalidInput("model.params_billions", "must be positive")
	}
	if model.HiddenSize <= 0 {
		return ErrInvalidInput("model.hidden_size", "must be positive")
	}
	if model.NumLayers <= 0 {
		return ErrInvalidInput("model.num_layers", "must be positive")
	}
	if workload.ContextTokens <= 0 {
		return ErrInvalidInput("workload.context_tokens", "must be positive")
	}
	if workload.MaxConcurrentSequences <= 0 {
		return ErrInvalidInput("workload.max_concurrent_sequences", "must be positive")
	}
	if workload.AvgActiveTokensPerSeq <= 0 {
		return ErrInvalidInput("workload.avg_active_tokens_per_seq", "must be positive")
	}
	if workload.AvgActiveTokensPerSeq > workload.ContextTokens {
		return ErrInvalidInput("workload.avg_active_tokens_per_seq",
			fmt.Sprintf("%d exceeds context_tokens %d", workload.AvgActiveTokensPerSeq, workload.ContextTokens))
	}
	if choices.TensorParallelSize < 1 {
		return ErrInvalidInput("choices.tensor_parallel_size", "must be >= 1")
	}
	// With zero detected GPUs the estimate is advisory; tensor parallelism is
	// only bounded when there is hardware to bound it by.
	if n := hw.GPUCount(); n > 0 && choices.TensorParallelSize > n {
		return ErrInvalidInput("choices.tensor_parallel_size",
			fmt.Sprintf("%d exceeds detected gpu count %d", choices.TensorParallelSize, n))
	}
	return nil
}

// Estimate computes the per-GPU memory breakdown for serving model under the
// given workload and engineering choices, and checks it against the snapshot.
// Pure: identical inputs yield identical outputs.
func Estimate(model types.ModelShape, workload types.Workload, choices types.EngineeringChoices, hw types.HardwareSnapshot, cal Calibration) (types.EstimateResponse, error) {
	if err := Validate(model, workload, choices, hw); err != nil {
		return types.EstimateResponse{}, err
	}

	tp := choices.TensorParallelSize
	weights := sharedWeightsBytes(model, choices, cal) / int64(tp)
	kv := sharedKVBytes(model, workload, choices, cal) / int64(tp)
	overhead := cal.OverheadFloorBytes + int64(cal.OverheadWeightsFrac*float64(weights))
	total := weights + kv + overhead

	resp := types.EstimateResponse{
		PerGPU:   make([]types.PerGPUEstimate, 0, tp),
		FitsAll:  true,
		Verified: hw.GPUCount() > 0,
	}
	for shard := 0; shard < tp; shard++ {
		e := types.PerGPUEstimate{
			Index:         shard,
			WeightsBytes:  weights,
			KVBytes:       kv,
			OverheadBytes: overhead,
			TotalBytes:    total,
			// Nothing to validate against: vacuously fits, flagged unverified.
			Fits: true,
		}
		if resp.Verified {
			gpu := hw.GPUs[shard]
			e.Index = gpu.Index
			e.FreeBytes = int64(gpu.FreeMB()) << 20
			e.Fits = total <= e.FreeBytes
		}
		if !e.Fits {
			resp.FitsAll = false
		}
		resp.PerGPU = append(resp.PerGPU, e)
	}
	return resp, nil
}

// sharedWeightsBytes is the unsharded weight footprint.
func sharedWeightsBytes(model types.ModelShape, choices types.EngineeringChoices, cal Calibration) int64 {
	bpp := cal.BytesPerParam(choices.ComputeDtype, choices.WeightQuantization)
	return int64(model.ParamsBillions * 1e9 * bpp)
}

// sharedKVBytes is the unsharded KV cache footprint. It models expected
// active tokens rather than assuming every sequence sits at full context,
// capped so it never exceeds the worst case.
func sharedKVBytes(model types.ModelShape, workload types.Workload, choices types.EngineeringChoices, cal Calibration) int64 {
	conc := workload.MaxConcurrentSequences
	if cal.PracticalConcurrency > 0 && conc > cal.PracticalConcurrency {
		conc = cal.PracticalConcurrency
	}
	activeTokens := int64(conc) * int64(workload.AvgActiveTokensPerSeq)
	if worst := int64(workload.MaxConcurrentSequences) * int64(workload.ContextTokens); activeTokens > worst {
		activeTokens = worst
	}
	perToken := 2.0 * float64(model.NumLayers) * float64(model.HiddenSize) * cal.KVBytesPerElement(choices.KVCacheDtype)
	return int64(perToken * float64(activeTokens))
}
