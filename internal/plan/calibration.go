package plan

import "pland/pkg/types"

// Calibration holds the byte-accounting constants of the memory model and the
// floors/ladders of the auto-fit search. The values are deliberately coarse;
// operators recalibrate them against real engine telemetry without touching
// control flow.
type Calibration struct {
	// Bytes per parameter for 16-bit weights (bfloat16/float16/auto).
	BytesPerParam16 float64
	// Bytes per parameter under int8 weight quantization.
	BytesPerParamInt8 float64
	// Bytes per parameter under fp8 weight quantization.
	BytesPerParamFP8 float64
	// Bytes per parameter under ~4-bit schemes (awq, gptq).
	BytesPerParam4Bit float64

	// Bytes per KV cache element at the default 16-bit dtype.
	KVBytesPerElem16 float64
	// Bytes per KV cache element under any fp8 variant.
	KVBytesPerElemFP8 float64

	// Fixed per-GPU allowance for CUDA context and activation buffers.
	OverheadFloorBytes int64
	// Additional overhead as a fraction of per-GPU weight bytes.
	OverheadWeightsFrac float64

	// Cap on the concurrency the KV accounting assumes: beyond this the batch
	// is compute-bound before it is memory-bound on single-node hardware.
	PracticalConcurrency int

	// Auto-fit floors.
	MinAvgActiveTokens     int
	MinConcurrentSequences int
	MinContextTokens       int

	// Descending max-batched-token values tried by the batching rung.
	BatchedTokensLadder []int

	// Swap suggestion clamp, in GiB.
	SwapFloorGiB int
	SwapCeilGiB  int
}

// DefaultCalibration returns the stock calibration.
func DefaultCalibration() Calibration {
	return Calibration{
		BytesPerParam16:        2.0,
		BytesPerParamInt8:      1.0,
		BytesPerParamFP8:       1.0,
		BytesPerParam4Bit:      0.5,
		KVBytesPerElem16:       2.0,
		KVBytesPerElemFP8:      1.0,
		OverheadFloorBytes:     512 << 20,
		OverheadWeightsFrac:    0.05,
		PracticalConcurrency:   16,
		MinAvgActiveTokens:     512,
		MinConcurrentSequences: 64,
		MinContextTokens:       4096,
		BatchedTokensLadder:    []int{2048, 1024, 768},
		SwapFloorGiB:           4,
		SwapCeilGiB:            16,
	}
}

// BytesPerParam resolves the effective weight bytes per parameter.
// Quantization, when set, takes precedence over the compute dtype.
func (c Calibration) BytesPerParam(dtype types.ComputeDtype, quant types.Quantization) float64 {
	switch quant {
	case types.QuantINT8:
		return c.BytesPerParamInt8
	case types.QuantFP8:
		return c.BytesPerParamFP8
	case types.QuantAWQ, types.QuantGPTQ:
		return c.BytesPerParam4Bit
	}
	// none or unset: 16-bit for every supported dtype, auto included.
	_ = dtype
	return c.BytesPerParam16
}

// KVBytesPerElement resolves the KV cache bytes per element.
func (c Calibration) KVBytesPerElement(d types.KVCacheDtype) float64 {
	if d.IsFP8() {
		return c.KVBytesPerElemFP8
	}
	return c.KVBytesPerElem16
}
