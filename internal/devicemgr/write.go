package devicemgr

import (
	"context"

	"github.com/p4lang/pi4go/internal/logger"
	"github.com/p4lang/pi4go/pkg/p4rt"
	"github.com/p4lang/pi4go/pkg/pidriver"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Write applies request's updates in list order inside a single batched
// session, stopping at the first non-OK result (§5 Ordering guarantees).
// Already-applied updates in the batch are not rolled back.
func (m *Manager) Write(ctx context.Context, request p4rt.WriteRequest) error {
	logger.InfoCtx(ctx, "write request", append(m.logFields("Write"), "updates", len(request.Updates))...)

	sess, err := m.driver.SessionOpen(ctx, true /* batch */)
	if err != nil {
		err = status.Errorf(codes.Unknown, "session_open failed: %v", err)
		m.recordOp("Write", err)
		return err
	}

	var opErr error
	for _, update := range request.Updates {
		opErr = m.writeOne(ctx, sess, update)
		if opErr != nil {
			break
		}
	}

	if closeErr := sess.Close(ctx, opErr == nil); closeErr != nil && opErr == nil {
		opErr = status.Errorf(codes.Unknown, "session_close failed: %v", closeErr)
	}

	m.recordOp("Write", opErr)
	if opErr != nil {
		logger.ErrorCtx(ctx, "write request failed", append(m.logFields("Write"), logger.KeyError, opErr)...)
	}
	return opErr
}

func (m *Manager) writeOne(ctx context.Context, sess pidriver.Session, update p4rt.Update) error {
	switch e := update.Entity.(type) {
	case *p4rt.TableEntry:
		return m.tableWrite(ctx, sess, update.Type, e)
	case *p4rt.ActionProfileMember:
		return m.actionProfileMemberWrite(ctx, sess, update.Type, e)
	case *p4rt.ActionProfileGroup:
		return m.actionProfileGroupWrite(ctx, sess, update.Type, e)
	case *p4rt.MeterEntry:
		return m.meterWrite(ctx, sess, update.Type, e)
	case *p4rt.DirectMeterEntry:
		return m.directMeterWrite(ctx, sess, update.Type, e)
	case *p4rt.ExternEntry, *p4rt.CounterEntry, *p4rt.DirectCounterEntry:
		return status.Error(codes.Unimplemented, "entity kind not implemented in Write")
	default:
		return status.Error(codes.Unknown, "unrecognized entity kind")
	}
}
