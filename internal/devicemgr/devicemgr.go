// Package devicemgr implements DeviceMgr: the per-device façade that ingests
// pipeline configs, dispatches controller Write/Read entities to the right
// subcomponent, and holds the top-level consistency contract described in
// spec §3-§5.
package devicemgr

import (
	"sync"

	"github.com/p4lang/pi4go/internal/actionprof"
	"github.com/p4lang/pi4go/internal/logger"
	"github.com/p4lang/pi4go/internal/metrics"
	"github.com/p4lang/pi4go/internal/tableinfo"
	"github.com/p4lang/pi4go/pkg/p4info"
	"github.com/p4lang/pi4go/pkg/packetio"
	"github.com/p4lang/pi4go/pkg/pidriver"
)

// PipelineState is one of the four states a device's pipeline config can be
// in (§3).
type PipelineState int

const (
	StateUnassigned PipelineState = iota
	StateAssignedNoConfig
	StateStaged
	StateCommitted
)

func (s PipelineState) String() string {
	switch s {
	case StateAssignedNoConfig:
		return "ASSIGNED_NO_CONFIG"
	case StateStaged:
		return "STAGED"
	case StateCommitted:
		return "COMMITTED"
	default:
		return "UNASSIGNED"
	}
}

// pipeline is the DeviceMgr's view of its active pipeline config (§3).
type pipeline struct {
	state      PipelineState
	schema     p4info.Schema
	handle     *p4info.Handle
	generation uint64 // bumped on every successful commit, for diagnostics

	tableStore   *tableinfo.Store
	actionProfs  map[uint32]*actionprof.Manager
}

// Manager is DeviceMgr. One instance exists per device_id.
type Manager struct {
	deviceID uint64
	target   pidriver.DeviceTarget
	driver   pidriver.Device
	packetio *packetio.Manager

	// pipelineMu guards swapping the pipeline pointer on reconfiguration
	// (§5: "brief critical section that drops/rebuilds all tables and
	// profile managers"). It is deliberately NOT held across table or
	// action-profile operations: the contract is that the controller
	// quiesces data-plane calls during reconfiguration (§4.6 Concurrency).
	// A deployment that cannot guarantee quiescence should wrap Write/Read/
	// SetForwardingPipelineConfig in an external latch; this field only
	// protects the pointer swap itself from racing with a pipeline read.
	pipelineMu sync.RWMutex
	pipe       *pipeline
}

// New creates a DeviceMgr for deviceID, starting in StateUnassigned.
func New(deviceID uint64, driver pidriver.Device, pio *packetio.Manager) *Manager {
	return &Manager{
		deviceID: deviceID,
		target:   pidriver.DeviceTarget{DeviceID: deviceID, PipeMask: pidriver.AllPipes},
		driver:   driver,
		packetio: pio,
		pipe: &pipeline{
			state:       StateUnassigned,
			tableStore:  tableinfo.New(nil),
			actionProfs: make(map[uint32]*actionprof.Manager),
		},
	}
}

// currentPipeline returns the active pipeline snapshot under a brief RLock.
func (m *Manager) currentPipeline() *pipeline {
	m.pipelineMu.RLock()
	defer m.pipelineMu.RUnlock()
	return m.pipe
}

func (m *Manager) logFields(rpc string) []any {
	return []any{logger.KeyRPC, rpc, logger.KeyDeviceID, m.deviceID}
}

func (m *Manager) resolveProfile(p *pipeline, profileID uint32) (*actionprof.Manager, bool) {
	mgr, ok := p.actionProfs[profileID]
	return mgr, ok
}

func (m *Manager) recordOp(rpc string, err error) {
	metrics.ObserveOp(rpc, err)
}
