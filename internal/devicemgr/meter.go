package devicemgr

import (
	"context"

	"github.com/p4lang/pi4go/internal/keys"
	"github.com/p4lang/pi4go/pkg/p4info"
	"github.com/p4lang/pi4go/pkg/p4rt"
	"github.com/p4lang/pi4go/pkg/pidriver"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func toMeterSpec(cfg p4rt.MeterConfig) pidriver.MeterSpec {
	return pidriver.MeterSpec{
		CIR:    uint64(cfg.CIR),
		CBurst: uint32(cfg.CBurst),
		PIR:    uint64(cfg.PIR),
		PBurst: uint32(cfg.PBurst),
	}
}

// meterWrite handles an indirect MeterEntry update (§4.7). DELETE is a
// distinct terminal case that erases the cell by writing an all-zero spec;
// the original source this frontend is modeled on lets control flow fall
// through from DELETE into the INVALID_ARGUMENT default arm, silently
// overwriting an OK status — that is a bug, not intended behavior, and is
// not reproduced here.
func (m *Manager) meterWrite(ctx context.Context, sess pidriver.Session, update p4rt.UpdateType, entry *p4rt.MeterEntry) error {
	p := m.currentPipeline()
	if _, ok := p.handle.Meter(entry.MeterID); !ok {
		return invalidID(p4info.KindMeter, entry.MeterID)
	}

	switch update {
	case p4rt.UpdateInsert, p4rt.UpdateModify:
		if err := m.driver.MeterSet(ctx, sess, m.target, entry.MeterID, entry.Index, toMeterSpec(entry.Config)); err != nil {
			return status.Errorf(codes.Unknown, "driver meter_set failed: %v", err)
		}
		return nil
	case p4rt.UpdateDelete:
		if err := m.driver.MeterSet(ctx, sess, m.target, entry.MeterID, entry.Index, pidriver.MeterSpec{}); err != nil {
			return status.Errorf(codes.Unknown, "driver meter_set failed: %v", err)
		}
		return nil
	default:
		return status.Error(codes.InvalidArgument, "update type UNSPECIFIED or unrecognized")
	}
}

// directMeterWrite handles a DirectMeterEntry update, resolving the target
// table entry's driver handle under the table lock before writing the meter
// spec (§4.7). DELETE is a distinct terminal case, same reasoning as
// meterWrite above.
func (m *Manager) directMeterWrite(ctx context.Context, sess pidriver.Session, update p4rt.UpdateType, entry *p4rt.DirectMeterEntry) error {
	p := m.currentPipeline()
	if _, ok := p.handle.Meter(entry.MeterID); !ok {
		return invalidID(p4info.KindMeter, entry.MeterID)
	}
	if entry.TableEntry == nil {
		return status.Error(codes.InvalidArgument, "direct_meter_entry missing table_entry")
	}

	table, ok := p.handle.Table(entry.TableEntry.TableID)
	if !ok {
		return invalidID(p4info.KindTable, entry.TableEntry.TableID)
	}
	key, err := keys.BuildMatchKey(table, entry.TableEntry.Match)
	if err != nil {
		return err
	}

	guard := p.tableStore.LockTable(table.ID)
	defer guard.Unlock()

	data, exists := guard.GetEntry(key)
	if !exists {
		return status.Errorf(codes.InvalidArgument, "table %d has no entry matching this direct meter write", table.ID)
	}

	switch update {
	case p4rt.UpdateInsert, p4rt.UpdateModify:
		if err := m.driver.MeterSetDirect(ctx, sess, m.target, entry.MeterID, data.Handle, toMeterSpec(entry.Config)); err != nil {
			return status.Errorf(codes.Unknown, "driver meter_set_direct failed: %v", err)
		}
		return nil
	case p4rt.UpdateDelete:
		if err := m.driver.MeterSetDirect(ctx, sess, m.target, entry.MeterID, data.Handle, pidriver.MeterSpec{}); err != nil {
			return status.Errorf(codes.Unknown, "driver meter_set_direct failed: %v", err)
		}
		return nil
	default:
		return status.Error(codes.InvalidArgument, "update type UNSPECIFIED or unrecognized")
	}
}
