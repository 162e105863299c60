package types

// PlanRequest is the shared body of POST /plan/estimate and POST /plan/autofit.
// Hardware may be omitted; the server then fills it from the local probe.
type PlanRequest struct {
	Model    ModelShape         `json:"model"`
	Workload Workload           `json:"workload"`
	Choices  EngineeringChoices `json:"choices"`
	Hardware HardwareSnapshot   `json:"hardware"`
}

// EstimateResponse is returned by POST /plan/estimate.
type EstimateResponse struct {
	// Per-GPU memory breakdowns for the first TensorParallelSize GPUs.
	PerGPU []PerGPUEstimate `json:"per_gpu"`
	// True iff every participating GPU fits.
	// example: false
	FitsAll bool `json:"fits_all" example:"false"`
	// False when no GPU was detected: the verdict is advisory only and the
	// caller must render it as "unverified", not "confirmed fitting".
	// example: true
	Verified bool `json:"verified" example:"true"`
}

// AutoFitResponse is returned by POST /plan/autofit.
type AutoFitResponse struct {
	// Final engineering choices after the mitigation ladder.
	Choices EngineeringChoices `json:"choices"`
	// Final workload after the mitigation ladder.
	Workload Workload `json:"workload"`
	// Suggested CPU offload in GiB; zero unless the ladder was exhausted.
	// example: 0
	CPUOffloadGiB int `json:"cpu_offload_gib" example:"0"`
	// Suggested swap space in GiB; zero unless the ladder was exhausted.
	// example: 0
	SwapGiB int `json:"swap_gib" example:"0"`
	// Human-readable audit trail of the mutations applied, in order.
	Notes []string `json:"notes"`
	// Estimate for the final configuration.
	Estimate EstimateResponse `json:"estimate"`
}

// ModelCard is one entry of the model-architecture catalog.
type ModelCard struct {
	// Stable identifier.
	// example: llama-3.1-8b
	ID string `json:"id" yaml:"id" example:"llama-3.1-8b"`
	// Human-friendly name.
	// example: Llama 3.1 8B Instruct
	Name string `json:"name" yaml:"name" example:"Llama 3.1 8B Instruct"`
	// Architecture parameters used by the memory model.
	Shape ModelShape `json:"shape" yaml:"shape"`
	// Context length the model was trained for.
	// example: 131072
	MaxContextTokens int `json:"max_context_tokens,omitempty" yaml:"max_context_tokens,omitempty" example:"131072"`
}

// ModelsResponse wraps the catalog returned by GET /models.
type ModelsResponse struct {
	Models []ModelCard `json:"models"`
}

// HardwareResponse is returned by GET /hardware.
type HardwareResponse struct {
	GPUs []GPUDevice `json:"gpus"`
	// Probe time in unix seconds.
	// example: 1700000000
	DetectedAtUnix int64 `json:"detected_at_unix" example:"1700000000"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Overall service state.
	// example: ready
	State string `json:"state" example:"ready"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
	// Total estimate requests served.
	// example: 42
	EstimatesTotal uint64 `json:"estimates_total" example:"42"`
	// Total auto-fit requests served.
	// example: 7
	AutoFitsTotal uint64 `json:"autofits_total" example:"7"`
	// Auto-fit searches that exhausted the ladder without fitting.
	// example: 1
	UnfittableTotal uint64 `json:"unfittable_total" example:"1"`
	// Number of catalog entries loaded.
	// example: 8
	CatalogSize int `json:"catalog_size" example:"8"`
	// Whether the hardware probe binary was found on this host.
	// example: true
	ProbeAvailable bool `json:"probe_available" example:"true"`
	// Optional top-level error message.
	Error string `json:"error,omitempty"`
}
