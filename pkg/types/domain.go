package types

// ComputeDtype selects the weight compute precision.
type ComputeDtype string

const (
	DtypeAuto     ComputeDtype = "auto"
	DtypeBFloat16 ComputeDtype = "bfloat16"
	DtypeFloat16  ComputeDtype = "float16"
)

// Quantization selects the weight quantization scheme.
type Quantization string

const (
	QuantNone Quantization = "none"
	QuantAWQ  Quantization = "awq"
	QuantGPTQ Quantization = "gptq"
	QuantFP8  Quantization = "fp8"
	QuantINT8 Quantization = "int8"
)

// KVCacheDtype selects the KV cache element precision.
type KVCacheDtype string

const (
	KVDtypeAuto    KVCacheDtype = "auto"
	KVDtypeFP8     KVCacheDtype = "fp8"
	KVDtypeFP8E4M3 KVCacheDtype = "fp8_e4m3"
	KVDtypeFP8E5M2 KVCacheDtype = "fp8_e5m2"
)

// IsFP8 reports whether the KV cache dtype is any fp8 variant.
func (d KVCacheDtype) IsFP8() bool {
	return d == KVDtypeFP8 || d == KVDtypeFP8E4M3 || d == KVDtypeFP8E5M2
}

// Is4Bit reports whether the quantization scheme packs weights at ~4 bits.
func (q Quantization) Is4Bit() bool { return q == QuantAWQ || q == QuantGPTQ }

// ModelShape describes a model architecture, sufficient for a first-order
// memory estimate. All fields must be positive.
type ModelShape struct {
	// Parameter count in billions.
	// example: 7
	ParamsBillions float64 `json:"params_billions" yaml:"params_billions" example:"7"`
	// Transformer hidden dimension.
	// example: 4096
	HiddenSize int `json:"hidden_size" yaml:"hidden_size" example:"4096"`
	// Transformer block count.
	// example: 32
	NumLayers int `json:"num_layers" yaml:"num_layers" example:"32"`
}

// Workload describes the expected serving load.
type Workload struct {
	// Target maximum sequence length.
	// example: 8192
	ContextTokens int `json:"context_tokens" example:"8192"`
	// Upper bound on simultaneously active requests.
	// example: 256
	MaxConcurrentSequences int `json:"max_concurrent_sequences" example:"256"`
	// Expected (not worst-case) tokens held in KV cache per active sequence.
	// Must not exceed ContextTokens.
	// example: 2048
	AvgActiveTokensPerSeq int `json:"avg_active_tokens_per_seq" example:"2048"`
	// Cap on total tokens processed per scheduling step. Advisory; does not
	// affect the memory estimate directly.
	// example: 4096
	MaxBatchedTokens int `json:"max_batched_tokens" example:"4096"`
}

// EngineeringChoices is the decision vector the auto-fit search mutates.
type EngineeringChoices struct {
	// Weight compute precision: auto|bfloat16|float16.
	// example: bfloat16
	ComputeDtype ComputeDtype `json:"compute_dtype" example:"bfloat16"`
	// Weight quantization scheme: none|awq|gptq|fp8|int8.
	// example: none
	WeightQuantization Quantization `json:"weight_quantization" example:"none"`
	// KV cache element precision: auto|fp8|fp8_e4m3|fp8_e5m2.
	// example: auto
	KVCacheDtype KVCacheDtype `json:"kv_cache_dtype" example:"auto"`
	// Number of GPUs the weights and KV cache are sharded across.
	// example: 1
	TensorParallelSize int `json:"tensor_parallel_size" example:"1"`
	// Caller policy: when true, auto-fit must not change WeightQuantization.
	// example: false
	QuantizationLocked bool `json:"quantization_locked,omitempty" example:"false"`
}

// GPUDevice is one GPU in a hardware snapshot. Memory values are in MB.
type GPUDevice struct {
	// GPU index as reported by the driver.
	// example: 0
	Index int `json:"index" example:"0"`
	// Display name.
	// example: NVIDIA GeForce RTX 4090
	Name string `json:"name" example:"NVIDIA GeForce RTX 4090"`
	// Total VRAM in MB.
	// example: 24576
	TotalMB int `json:"total_mb" example:"24576"`
	// Currently used VRAM in MB.
	// example: 2048
	UsedMB int `json:"used_mb" example:"2048"`
}

// FreeMB returns the currently free VRAM in MB, never negative.
func (g GPUDevice) FreeMB() int {
	free := g.TotalMB - g.UsedMB
	if free < 0 {
		return 0
	}
	return free
}

// HardwareSnapshot is a point-in-time view of the GPUs available to the
// planner. It is captured once per planning session and not refreshed during
// an auto-fit search.
type HardwareSnapshot struct {
	GPUs []GPUDevice `json:"gpus"`
}

// GPUCount returns the number of GPUs in the snapshot.
func (h HardwareSnapshot) GPUCount() int { return len(h.GPUs) }

// PerGPUEstimate is the memory breakdown for one participating GPU.
type PerGPUEstimate struct {
	// GPU index this shard is placed on.
	// example: 0
	Index int `json:"index" example:"0"`
	// Weight bytes on this GPU after tensor-parallel sharding.
	// example: 14000000000
	WeightsBytes int64 `json:"weights_bytes" example:"14000000000"`
	// KV cache bytes on this GPU.
	// example: 8589934592
	KVBytes int64 `json:"kv_bytes" example:"8589934592"`
	// Fixed + proportional overhead bytes (CUDA context, activation buffers).
	// example: 1236870912
	OverheadBytes int64 `json:"overhead_bytes" example:"1236870912"`
	// Sum of the three components.
	// example: 23826805504
	TotalBytes int64 `json:"total_bytes" example:"23826805504"`
	// Free VRAM on this GPU at snapshot time.
	// example: 23622320128
	FreeBytes int64 `json:"free_bytes" example:"23622320128"`
	// True iff TotalBytes <= FreeBytes (vacuously true with no hardware).
	// example: false
	Fits bool `json:"fits" example:"false"`
}

// OffloadSuggestion is last-resort operator guidance emitted when no on-GPU
// configuration fits. It is not validated against the memory model: offload
// and swap spill to host RAM/disk at a latency cost.
type OffloadSuggestion struct {
	// Suggested CPU offload in GiB.
	// example: 126
	CPUOffloadGiB int `json:"cpu_offload_gib" example:"126"`
	// Suggested swap space in GiB.
	// example: 16
	SwapGiB int `json:"swap_gib" example:"16"`
}
