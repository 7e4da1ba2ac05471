package devicemgr

import (
	"context"

	"github.com/p4lang/pi4go/internal/keys"
	"github.com/p4lang/pi4go/internal/logger"
	"github.com/p4lang/pi4go/pkg/p4info"
	"github.com/p4lang/pi4go/pkg/p4rt"
	"github.com/p4lang/pi4go/pkg/pidriver"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Read resolves each entity in request independently, in a fresh non-batched
// session, and stops at the first non-OK result (§5 Sessions, §4.7).
func (m *Manager) Read(ctx context.Context, request p4rt.ReadRequest) (p4rt.ReadResponse, error) {
	logger.InfoCtx(ctx, "read request", append(m.logFields("Read"), "entities", len(request.Entities))...)

	var out p4rt.ReadResponse
	var opErr error
	for _, e := range request.Entities {
		var results []p4rt.Entity
		results, opErr = m.readOne(ctx, e)
		if opErr != nil {
			break
		}
		out.Entities = append(out.Entities, results...)
	}

	m.recordOp("Read", opErr)
	if opErr != nil {
		logger.ErrorCtx(ctx, "read request failed", append(m.logFields("Read"), logger.KeyError, opErr)...)
		return p4rt.ReadResponse{}, opErr
	}
	return out, nil
}

func (m *Manager) readOne(ctx context.Context, e p4rt.Entity) ([]p4rt.Entity, error) {
	switch v := e.(type) {
	case *p4rt.TableEntry:
		return m.tableRead(ctx, v)
	case *p4rt.ActionProfileMember:
		return m.actionProfileMemberRead(v)
	case *p4rt.ActionProfileGroup:
		return m.actionProfileGroupRead(v)
	case *p4rt.CounterEntry:
		return m.counterRead(ctx, v)
	case *p4rt.DirectCounterEntry, *p4rt.ExternEntry:
		return nil, status.Error(codes.Unimplemented, "entity kind not implemented in Read")
	default:
		return nil, status.Error(codes.Unknown, "unrecognized entity kind")
	}
}

// tableRead fetches entries for one table, or every table when TableID==0
// (§4.7). Every driver-fetched entry must have a corresponding shadow row;
// a miss there is a programming error, not a controller-facing one, since it
// means I2 (shadow/driver consistency) has already been violated elsewhere.
func (m *Manager) tableRead(ctx context.Context, req *p4rt.TableEntry) ([]p4rt.Entity, error) {
	p := m.currentPipeline()

	var tables []p4info.Table
	if req.TableID == 0 {
		tables = p.handle.Tables()
	} else {
		t, ok := p.handle.Table(req.TableID)
		if !ok {
			return nil, invalidID(p4info.KindTable, req.TableID)
		}
		tables = []p4info.Table{*t}
	}

	sess, err := m.driver.SessionOpen(ctx, false)
	if err != nil {
		return nil, status.Errorf(codes.Unknown, "session_open failed: %v", err)
	}
	defer sess.Close(ctx, false)

	var out []p4rt.Entity
	for _, table := range tables {
		guard := p.tableStore.RLockTable(table.ID)
		fetched, err := m.driver.EntriesFetch(ctx, sess, m.target, table.ID)
		if err != nil {
			guard.Unlock()
			return nil, status.Errorf(codes.Unknown, "driver entries_fetch failed for table %d: %v", table.ID, err)
		}

		for _, fe := range fetched {
			shadowKey := canonicalKeyOf(fe)
			data, ok := guard.GetEntry(shadowKey)
			if !ok {
				guard.Unlock()
				return nil, status.Errorf(codes.Unknown,
					"table %d: driver entry has no shadow record (I2 violation)", table.ID)
			}
			out = append(out, &p4rt.TableEntry{
				TableID:            table.ID,
				Match:              data.Match,
				Action:             data.Action,
				ControllerMetadata: data.ControllerMetadata,
			})
		}
		guard.Unlock()
	}
	return out, nil
}

func (m *Manager) actionProfileMemberRead(req *p4rt.ActionProfileMember) ([]p4rt.Entity, error) {
	p := m.currentPipeline()
	prof, ok := p.handle.ActionProfile(req.ActionProfileID)
	if req.ActionProfileID != 0 && !ok {
		return nil, invalidID(p4info.KindActionProfile, req.ActionProfileID)
	}

	var profileIDs []uint32
	if req.ActionProfileID == 0 {
		for _, pr := range p.handle.ActionProfiles() {
			profileIDs = append(profileIDs, pr.ID)
		}
	} else {
		profileIDs = []uint32{prof.ID}
	}

	var out []p4rt.Entity
	for _, profileID := range profileIDs {
		mgr, ok := m.resolveProfile(p, profileID)
		if !ok {
			continue
		}
		memberIDs := []uint32{req.MemberID}
		if req.MemberID == 0 {
			memberIDs = mgr.AllMemberIDs()
		}
		for _, id := range memberIDs {
			action, ok := mgr.MemberAction(id)
			if !ok {
				continue
			}
			out = append(out, &p4rt.ActionProfileMember{
				ActionProfileID: profileID,
				MemberID:        id,
				Action:          action,
			})
		}
	}
	return out, nil
}

func (m *Manager) actionProfileGroupRead(req *p4rt.ActionProfileGroup) ([]p4rt.Entity, error) {
	p := m.currentPipeline()
	prof, ok := p.handle.ActionProfile(req.ActionProfileID)
	if req.ActionProfileID != 0 && !ok {
		return nil, invalidID(p4info.KindActionProfile, req.ActionProfileID)
	}

	var profileIDs []uint32
	if req.ActionProfileID == 0 {
		for _, pr := range p.handle.ActionProfiles() {
			profileIDs = append(profileIDs, pr.ID)
		}
	} else {
		profileIDs = []uint32{prof.ID}
	}

	var out []p4rt.Entity
	for _, profileID := range profileIDs {
		mgr, ok := m.resolveProfile(p, profileID)
		if !ok {
			continue
		}
		groupIDs := []uint32{req.GroupID}
		if req.GroupID == 0 {
			groupIDs = mgr.AllGroupIDs()
		}
		for _, id := range groupIDs {
			members, ok := mgr.GroupMembers(id)
			if !ok {
				continue
			}
			out = append(out, &p4rt.ActionProfileGroup{
				ActionProfileID: profileID,
				GroupID:         id,
				MemberIDs:       members,
			})
		}
	}
	return out, nil
}

// counterRead reads one or all cells of an indirect counter, or fans out
// across every indirect counter when CounterID==0 (§4.7, §6.1). Direct
// counters are rejected as UNIMPLEMENTED per §1 Non-goals when explicitly
// requested by ID; during a CounterID==0 fan-out they are silently skipped
// instead, matching the frontend this is modeled on (it walks every counter
// in the schema and `continue`s past direct ones rather than failing the
// whole read).
func (m *Manager) counterRead(ctx context.Context, req *p4rt.CounterEntry) ([]p4rt.Entity, error) {
	p := m.currentPipeline()

	var counters []p4info.Counter
	if req.CounterID == 0 {
		counters = p.handle.Counters()
	} else {
		counter, ok := p.handle.Counter(req.CounterID)
		if !ok {
			return nil, invalidID(p4info.KindCounter, req.CounterID)
		}
		if counter.IsDirect {
			return nil, status.Error(codes.Unimplemented, "direct counter read not supported")
		}
		counters = []p4info.Counter{*counter}
	}

	sess, err := m.driver.SessionOpen(ctx, false)
	if err != nil {
		return nil, status.Errorf(codes.Unknown, "session_open failed: %v", err)
	}
	defer sess.Close(ctx, false)

	var out []p4rt.Entity
	for _, counter := range counters {
		if counter.IsDirect {
			continue
		}

		var indices []int64
		if req.Index == 0 {
			indices = make([]int64, counter.Size)
			for i := range indices {
				indices[i] = int64(i)
			}
		} else {
			indices = []int64{req.Index}
		}

		for _, idx := range indices {
			v, err := m.driver.CounterRead(ctx, sess, m.target, counter.ID, idx)
			if err != nil {
				return nil, status.Errorf(codes.Unknown, "driver counter_read failed: %v", err)
			}
			data := p4rt.CounterData{}
			if v.PacketsValid {
				packets := int64(v.Packets)
				data.PacketCount = &packets
			}
			if v.BytesValid {
				bytes := int64(v.Bytes)
				data.ByteCount = &bytes
			}
			out = append(out, &p4rt.CounterEntry{CounterID: counter.ID, Index: idx, Data: data})
		}
	}
	return out, nil
}

// canonicalKeyOf rebuilds the shadow store's CanonicalKey from a driver's
// fetched entry. The driver is required to echo back the exact key bytes it
// was given on insert (pidriver.MatchKey.Bytes), so this is a direct
// reinterpretation, not a re-derivation.
func canonicalKeyOf(fe pidriver.FetchedEntry) keys.CanonicalKey {
	return keys.CanonicalKey(fe.Key.Bytes)
}
