// Package advisor coordinates the capacity planner for the HTTP API and CLI:
// it owns the calibration, the model catalog, and the hardware probe, and
// fills in a probed snapshot when a request omits one. The planner math
// itself lives in internal/plan and stays pure.
package advisor

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"pland/internal/catalog"
	"pland/internal/hwprobe"
	"pland/internal/plan"
	"pland/pkg/types"
)

// Advisor serves planning requests. Safe for concurrent use: every search
// works on its own state and the counters are atomic.
type Advisor struct {
	cal       plan.Calibration
	catalog   *catalog.Catalog
	probe     hwprobe.Provider
	probeBin  string
	startTime time.Time

	estimatesTotal  atomic.Uint64
	autofitsTotal   atomic.Uint64
	unfittableTotal atomic.Uint64

	logger *zerolog.Logger
}

// SetLogger installs a structured logger. Optional; the advisor is silent
// without one.
func (a *Advisor) SetLogger(l zerolog.Logger) { a.logger = &l }

// Calibration returns the calibration in use.
func (a *Advisor) Calibration() plan.Calibration { return a.cal }

// Estimate runs the memory model for one request, probing local hardware
// when the request carries no snapshot.
func (a *Advisor) Estimate(ctx context.Context, req types.PlanRequest) (types.EstimateResponse, error) {
	hw, err := a.resolveHardware(ctx, req.Hardware)
	if err != nil {
		return types.EstimateResponse{}, err
	}
	resp, err := plan.Estimate(req.Model, req.Workload, req.Choices, hw, a.cal)
	if err != nil {
		return types.EstimateResponse{}, err
	}
	a.estimatesTotal.Add(1)
	if a.logger != nil {
		a.logger.Debug().
			Float64("params_b", req.Model.ParamsBillions).
			Int("tp", req.Choices.TensorParallelSize).
			Bool("fits_all", resp.FitsAll).
			Bool("verified", resp.Verified).
			Msg("estimate")
	}
	return resp, nil
}

// AutoFit runs the mitigation ladder for one request, probing local hardware
// when the request carries no snapshot.
func (a *Advisor) AutoFit(ctx context.Context, req types.PlanRequest) (types.AutoFitResponse, error) {
	hw, err := a.resolveHardware(ctx, req.Hardware)
	if err != nil {
		return types.AutoFitResponse{}, err
	}
	resp, err := plan.AutoFit(req.Model, req.Workload, req.Choices, hw, a.cal)
	if err != nil {
		return types.AutoFitResponse{}, err
	}
	a.autofitsTotal.Add(1)
	if hw.GPUCount() > 0 && !resp.Estimate.FitsAll {
		a.unfittableTotal.Add(1)
	}
	if a.logger != nil {
		a.logger.Info().
			Float64("params_b", req.Model.ParamsBillions).
			Int("steps", len(resp.Notes)).
			Bool("fits_all", resp.Estimate.FitsAll).
			Int("cpu_offload_gib", resp.CPUOffloadGiB).
			Msg("autofit")
	}
	return resp, nil
}

// resolveHardware returns the request snapshot as-is when present; an empty
// snapshot falls back to the probe. A probe failure propagates so the caller
// can answer 503 rather than planning against phantom hardware.
func (a *Advisor) resolveHardware(ctx context.Context, hw types.HardwareSnapshot) (types.HardwareSnapshot, error) {
	if hw.GPUCount() > 0 {
		return hw, nil
	}
	probed, err := a.probe.Snapshot(ctx)
	if err != nil {
		if hwprobe.IsUnavailable(err) {
			// No probe on this host: plan in advisory (unverified) mode.
			return types.HardwareSnapshot{}, nil
		}
		return types.HardwareSnapshot{}, err
	}
	return probed, nil
}

// Models returns the catalog cards.
func (a *Advisor) Models() []types.ModelCard { return a.catalog.Cards() }

// LookupModel returns the catalog card for id.
func (a *Advisor) LookupModel(id string) (types.ModelCard, bool) { return a.catalog.Lookup(id) }

// Hardware probes the current snapshot for GET /hardware.
func (a *Advisor) Hardware(ctx context.Context) (types.HardwareResponse, error) {
	hw, err := a.probe.Snapshot(ctx)
	if err != nil {
		return types.HardwareResponse{}, err
	}
	return types.HardwareResponse{GPUs: hw.GPUs, DetectedAtUnix: time.Now().Unix()}, nil
}

// Ready reports whether the advisor can serve requests. The planner has no
// warmup; it is ready as soon as it is constructed.
func (a *Advisor) Ready() bool { return true }

// Status builds a detailed status response for GET /status.
func (a *Advisor) Status() types.StatusResponse {
	return types.StatusResponse{
		State:           "ready",
		UptimeSeconds:   int64(time.Since(a.startTime).Seconds()),
		ServerTimeUnix:  time.Now().Unix(),
		EstimatesTotal:  a.estimatesTotal.Load(),
		AutoFitsTotal:   a.autofitsTotal.Load(),
		UnfittableTotal: a.unfittableTotal.Load(),
		CatalogSize:     a.catalog.Len(),
		ProbeAvailable:  a.SanityCheck().ProbeFound,
	}
}
