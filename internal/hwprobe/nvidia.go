// Package hwprobe captures hardware snapshots for the capacity planner.
// The snapshot is taken once per planning session; the planner never
// refreshes it mid-search.
package hwprobe

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"pland/pkg/types"
)

// Provider supplies a point-in-time hardware snapshot.
type Provider interface {
	Snapshot(ctx context.Context) (types.HardwareSnapshot, error)
}

// DefaultBin is the probe binary used when none is configured.
const DefaultBin = "nvidia-smi"

const defaultTimeout = 5 * time.Second

// queryFields are the nvidia-smi --query-gpu columns, in order.
var queryFields = []string{"index", "name", "memory.total", "memory.used"}

// NvidiaSMI probes local GPUs by shelling out to nvidia-smi.
type NvidiaSMI struct {
	// Bin is the nvidia-smi path or name; empty means DefaultBin.
	Bin string
	// Timeout bounds one probe invocation; zero means a 5s default.
	Timeout time.Duration
}

// Snapshot runs nvidia-smi and parses its CSV output.
func (p *NvidiaSMI) Snapshot(ctx context.Context) (types.HardwareSnapshot, error) {
	bin := p.Bin
	if bin == "" {
		bin = DefaultBin
	}
	if _, err := exec.LookPath(bin); err != nil {
		return types.HardwareSnapshot{}, ErrUnavailable(fmt.Sprintf("%s not found in PATH", bin))
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, bin,
		"--query-gpu="+strings.Join(queryFields, ","),
		"--format=csv,noheader,nounits")
	out, err := cmd.Output()
	if err != nil {
		return types.HardwareSnapshot{}, ErrUnavailable(fmt.Sprintf("%s: %v", bin, err))
	}
	gpus, err := parseQueryCSV(bytes.NewReader(out))
	if err != nil {
		return types.HardwareSnapshot{}, err
	}
	return types.HardwareSnapshot{GPUs: gpus}, nil
}

// parseQueryCSV parses nvidia-smi query output. Rows that do not carry the
// expected fields are skipped rather than failing the whole snapshot.
func parseQueryCSV(r io.Reader) ([]types.GPUDevice, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var gpus []types.GPUDevice
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse gpu csv: %w", err)
		}
		if len(row) < len(queryFields) {
			continue
		}
		index, err := strconv.Atoi(strings.TrimSpace(row[0]))
		if err != nil {
			continue
		}
		total, err := strconv.Atoi(strings.TrimSpace(row[2]))
		if err != nil {
			continue
		}
		used, err := strconv.Atoi(strings.TrimSpace(row[3]))
		if err != nil {
			continue
		}
		gpus = append(gpus, types.GPUDevice{
			Index:   index,
			Name:    strings.TrimSpace(row[1]),
			TotalMB: total,
			UsedMB:  used,
		})
	}
	return gpus, nil
}

// Static is a Provider that returns a fixed snapshot. Used by tests and by
// planctl when the operator passes GPU geometry on the command line.
type Static struct {
	HW types.HardwareSnapshot
}

func (s Static) Snapshot(context.Context) (types.HardwareSnapshot, error) {
	return s.HW, nil
}
