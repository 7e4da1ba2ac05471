package devicemgr

import (
	"context"

	"github.com/p4lang/pi4go/internal/actionprof"
	"github.com/p4lang/pi4go/internal/logger"
	"github.com/p4lang/pi4go/internal/tableinfo"
	"github.com/p4lang/pi4go/pkg/p4info"
	"github.com/p4lang/pi4go/pkg/p4rt"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// SetForwardingPipelineConfig drives the pipeline state machine (§4.6).
// Pipeline reconfiguration is not locked against concurrent table writes;
// see the Manager.pipelineMu doc comment for the quiescence contract this
// relies on.
func (m *Manager) SetForwardingPipelineConfig(ctx context.Context, action p4rt.PipelineAction, cfg p4rt.ForwardingPipelineConfig) error {
	fields := append(m.logFields("SetForwardingPipelineConfig"), "action", action)
	logger.InfoCtx(ctx, "pipeline config requested", fields...)

	err := m.setForwardingPipelineConfig(ctx, action, cfg)
	m.recordOp("SetForwardingPipelineConfig", err)
	if err != nil {
		logger.ErrorCtx(ctx, "pipeline config failed", append(fields, logger.KeyError, err)...)
	}
	return err
}

func (m *Manager) setForwardingPipelineConfig(ctx context.Context, action p4rt.PipelineAction, cfg p4rt.ForwardingPipelineConfig) error {
	if action == p4rt.PipelineUnspecified {
		return status.Error(codes.InvalidArgument, "SetForwardingPipelineConfig action is UNSPECIFIED")
	}

	needsP4Info := action == p4rt.PipelineVerify || action == p4rt.PipelineVerifyAndSave || action == p4rt.PipelineVerifyAndCommit
	var handle *p4info.Handle
	if needsP4Info {
		h, err := parseP4Info(cfg.P4Info)
		if err != nil {
			return status.Errorf(codes.Unknown, "p4info parse failed: %v", err)
		}
		handle = h
	}

	if action == p4rt.PipelineVerify {
		return nil // parse only, no side effects
	}

	needsDeviceConfig := action == p4rt.PipelineVerifyAndSave || action == p4rt.PipelineVerifyAndCommit
	var deviceConfig p4rt.DeviceConfig
	if needsDeviceConfig {
		dc, err := decodeDeviceConfig(cfg.DeviceConfigBytes)
		if err != nil {
			return status.Errorf(codes.InvalidArgument, "malformed device_config_bytes: %v", err)
		}
		deviceConfig = dc
	}

	if needsDeviceConfig {
		if err := m.assignOrReassign(ctx, deviceConfig); err != nil {
			return err
		}
		if err := m.driver.UpdateDeviceStart(ctx, m.deviceID, cfg.P4Info, deviceConfig.DeviceData); err != nil {
			return status.Errorf(codes.Unknown, "driver update_device_start failed: %v", err)
		}
		m.commitPipeline(cfg.P4Info, handle)
	}

	if action == p4rt.PipelineVerifyAndCommit || action == p4rt.PipelineCommit {
		if err := m.driver.UpdateDeviceEnd(ctx, m.deviceID); err != nil {
			return status.Errorf(codes.Unknown, "driver update_device_end failed: %v", err)
		}
		m.markCommitted()
	}

	return nil
}

// markCommitted advances a staged pipeline to COMMITTED once the driver has
// acknowledged update_device_end.
func (m *Manager) markCommitted() {
	m.pipelineMu.Lock()
	defer m.pipelineMu.Unlock()
	if m.pipe.state == StateStaged {
		m.pipe.state = StateCommitted
	}
}

// assignOrReassign tears down and reassigns the device if it's already
// assigned and reassign was requested, or assigns it for the first time.
func (m *Manager) assignOrReassign(ctx context.Context, deviceConfig p4rt.DeviceConfig) error {
	assigned, err := m.driver.IsAssigned(ctx, m.deviceID)
	if err != nil {
		return status.Errorf(codes.Unknown, "driver is_device_assigned failed: %v", err)
	}

	if assigned && deviceConfig.Reassign {
		if err := m.driver.RemoveDevice(ctx, m.deviceID); err != nil {
			return status.Errorf(codes.Unknown, "driver remove_device failed: %v", err)
		}
		m.resetPipeline()
		assigned = false
	}

	if !assigned {
		if err := m.driver.AssignDevice(ctx, m.deviceID, deviceConfig.Extras); err != nil {
			return status.Errorf(codes.Unknown, "driver assign_device failed: %v", err)
		}
	}
	return nil
}

// resetPipeline drops the current pipeline state back to an empty,
// unassigned one. Called when a reassign tears the device down.
func (m *Manager) resetPipeline() {
	m.pipelineMu.Lock()
	defer m.pipelineMu.Unlock()
	m.pipe = &pipeline{
		state:       StateUnassigned,
		generation:  m.pipe.generation,
		tableStore:  tableinfo.New(nil),
		actionProfs: make(map[uint32]*actionprof.Manager),
	}
}

// commitPipeline rebuilds the shadow store and ActionProfMgr set from the
// newly-accepted schema, notifies PacketIOMgr, and installs the new
// P4InfoHandle last — so no ActionProfMgr is ever built or consulted against
// a dangling schema (§4.6).
func (m *Manager) commitPipeline(schema p4info.Schema, handle *p4info.Handle) {
	tableIDs := make([]uint32, len(schema.Tables))
	for i, t := range schema.Tables {
		tableIDs[i] = t.ID
	}
	tableStore := tableinfo.New(tableIDs)

	actionProfs := make(map[uint32]*actionprof.Manager, len(schema.ActionProfiles))
	for _, prof := range schema.ActionProfiles {
		actionProfs[prof.ID] = actionprof.New(prof.ID, m.target, m.driver, handle)
	}

	if m.packetio != nil {
		m.packetio.OnPipelineChange(m.deviceID, schema)
	}

	m.pipelineMu.Lock()
	defer m.pipelineMu.Unlock()
	m.pipe = &pipeline{
		state:       StateStaged,
		schema:      schema,
		handle:      handle,
		generation:  m.pipe.generation + 1,
		tableStore:  tableStore,
		actionProfs: actionProfs,
	}
}

// GetForwardingPipelineConfig returns the device_id and the active P4Info.
// device_config_bytes is never preserved (§6.1).
func (m *Manager) GetForwardingPipelineConfig() p4rt.ForwardingPipelineConfig {
	p := m.currentPipeline()
	return p4rt.ForwardingPipelineConfig{
		DeviceID: m.deviceID,
		P4Info:   p.schema,
	}
}

// parseP4Info stands in for the external P4Info parser/validator (§1): it is
// invoked as an opaque function and returns a handle, or an error that the
// caller maps to UNKNOWN.
func parseP4Info(schema p4info.Schema) (*p4info.Handle, error) {
	return p4info.Build(schema), nil
}
