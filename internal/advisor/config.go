package advisor

import (
	"time"

	"pland/internal/catalog"
	"pland/internal/hwprobe"
	"pland/internal/plan"
)

// Config encapsulates all tunables for Advisor construction.
// Zero values mean "unspecified" and are replaced by defaults.
type Config struct {
	// Catalog to plan against; nil means the built-in catalog.
	Catalog *catalog.Catalog
	// Probe used when a request omits the hardware snapshot; nil means the
	// local nvidia-smi probe.
	Probe hwprobe.Provider
	// Path or name of the probe binary (only used with the default probe).
	ProbeBin string
	// Calibration overrides; zero fields keep the stock calibration.
	OverheadFloorMB      int
	OverheadWeightsFrac  float64
	PracticalConcurrency int
}

// NewWithConfig constructs an Advisor from Config, applying defaults.
func NewWithConfig(cfg Config) *Advisor {
	cal := plan.DefaultCalibration()
	if cfg.OverheadFloorMB > 0 {
		cal.OverheadFloorBytes = int64(cfg.OverheadFloorMB) << 20
	}
	if cfg.OverheadWeightsFrac > 0 {
		cal.OverheadWeightsFrac = cfg.OverheadWeightsFrac
	}
	if cfg.PracticalConcurrency > 0 {
		cal.PracticalConcurrency = cfg.PracticalConcurrency
	}
	cat := cfg.Catalog
	if cat == nil {
		cat = catalog.Builtin()
	}
	probe := cfg.Probe
	if probe == nil {
		probe = &hwprobe.NvidiaSMI{Bin: cfg.ProbeBin}
	}
	return &Advisor{
		cal:       cal,
		catalog:   cat,
		probe:     probe,
		probeBin:  cfg.ProbeBin,
		startTime: time.Now(),
	}
}
