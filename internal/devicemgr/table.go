package devicemgr

import (
	"context"

	"github.com/p4lang/pi4go/internal/keys"
	"github.com/p4lang/pi4go/internal/tableinfo"
	"github.com/p4lang/pi4go/pkg/p4info"
	"github.com/p4lang/pi4go/pkg/p4rt"
	"github.com/p4lang/pi4go/pkg/pidriver"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// tableWrite dispatches an INSERT/MODIFY/DELETE on a TableEntry (§4.5).
func (m *Manager) tableWrite(ctx context.Context, sess pidriver.Session, update p4rt.UpdateType, entry *p4rt.TableEntry) error {
	p := m.currentPipeline()
	table, ok := p.handle.Table(entry.TableID)
	if !ok {
		return invalidID(p4info.KindTable, entry.TableID)
	}

	key, err := keys.BuildMatchKey(table, entry.Match)
	if err != nil {
		return err
	}

	switch update {
	case p4rt.UpdateUnspecified:
		return status.Error(codes.InvalidArgument, "update type UNSPECIFIED")
	case p4rt.UpdateInsert:
		return m.tableInsert(ctx, sess, p, table, key, entry)
	case p4rt.UpdateModify:
		return m.tableModify(ctx, sess, p, table, key, entry)
	case p4rt.UpdateDelete:
		return m.tableDelete(ctx, sess, p, table, key)
	default:
		return status.Error(codes.InvalidArgument, "unrecognized update type")
	}
}

func (m *Manager) buildActionEntry(p *pipeline, table *p4info.Table, action p4rt.ActionEntry) error {
	return keys.BuildActionEntry(p.handle, table, action, func(profileID uint32) (keys.ProfileResolver, bool) {
		mgr, ok := m.resolveProfile(p, profileID)
		return mgr, ok
	})
}

// toDriverAction resolves action (already validated) into the opaque
// driver-level ActionSpec, resolving indirect references to handles via the
// table's ActionProfMgr (§5 Lock ordering: resolved before the table lock is
// taken).
func (m *Manager) toDriverAction(p *pipeline, table *p4info.Table, action p4rt.ActionEntry) (pidriver.ActionSpec, error) {
	switch a := action.(type) {
	case p4rt.DirectAction:
		params := make([][]byte, len(a.Params))
		for i, prm := range a.Params {
			params[i] = prm.Value
		}
		return pidriver.ActionSpec{ActionID: a.ActionID, Params: params}, nil
	case p4rt.IndirectMemberAction:
		mgr, _ := m.resolveProfile(p, table.ImplementationID)
		h, ok := mgr.RetrieveMemberHandle(a.MemberID)
		if !ok {
			return pidriver.ActionSpec{}, status.Errorf(codes.InvalidArgument, "member %d not found", a.MemberID)
		}
		return pidriver.ActionSpec{IsIndirect: true, IndirectHandle: h}, nil
	case p4rt.IndirectGroupAction:
		mgr, _ := m.resolveProfile(p, table.ImplementationID)
		h, ok := mgr.RetrieveGroupHandle(a.GroupID)
		if !ok {
			return pidriver.ActionSpec{}, status.Errorf(codes.InvalidArgument, "group %d not found", a.GroupID)
		}
		return pidriver.ActionSpec{IsIndirect: true, IndirectHandle: h}, nil
	default:
		return pidriver.ActionSpec{}, status.Error(codes.InvalidArgument, "unrecognized action entry variant")
	}
}

func (m *Manager) tableInsert(ctx context.Context, sess pidriver.Session, p *pipeline, table *p4info.Table, key keys.CanonicalKey, entry *p4rt.TableEntry) error {
	if err := m.buildActionEntry(p, table, entry.Action); err != nil {
		return err
	}
	action, err := m.toDriverAction(p, table, entry.Action)
	if err != nil {
		return err
	}

	guard := p.tableStore.LockTable(table.ID)
	defer guard.Unlock()

	if _, exists := guard.GetEntry(key); exists {
		return status.Errorf(codes.AlreadyExists, "table %d already has an entry for this match key", table.ID)
	}

	driverKey := pidriver.MatchKey{TableID: table.ID, Bytes: []byte(key)}

	var handle pidriver.EntryHandle
	if keys.IsDefaultEntry(key) {
		if err := m.driver.DefaultEntrySet(ctx, sess, m.target, table.ID, action); err != nil {
			return status.Errorf(codes.Unknown, "driver default_entry_set failed: %v", err)
		}
	} else {
		h, err := m.driver.EntryAdd(ctx, sess, m.target, table.ID, driverKey, action)
		if err != nil {
			return status.Errorf(codes.Unknown, "driver entry_add failed: %v", err)
		}
		handle = h
	}

	guard.AddEntry(key, tableinfo.EntryData{
		Handle:             handle,
		ControllerMetadata: entry.ControllerMetadata,
		Match:              entry.Match,
		Action:             entry.Action,
	})
	return nil
}

func (m *Manager) tableModify(ctx context.Context, sess pidriver.Session, p *pipeline, table *p4info.Table, key keys.CanonicalKey, entry *p4rt.TableEntry) error {
	if err := m.buildActionEntry(p, table, entry.Action); err != nil {
		return err
	}
	action, err := m.toDriverAction(p, table, entry.Action)
	if err != nil {
		return err
	}

	guard := p.tableStore.LockTable(table.ID)
	defer guard.Unlock()

	existing, exists := guard.GetEntry(key)
	if !exists {
		return status.Errorf(codes.InvalidArgument, "table %d has no entry for this match key", table.ID)
	}

	if keys.IsDefaultEntry(key) {
		if err := m.driver.DefaultEntrySet(ctx, sess, m.target, table.ID, action); err != nil {
			return status.Errorf(codes.Unknown, "driver default_entry_set failed: %v", err)
		}
	} else {
		driverKey := pidriver.MatchKey{TableID: table.ID, Bytes: []byte(key)}
		if err := m.driver.EntryModifyWKey(ctx, sess, m.target, table.ID, driverKey, action); err != nil {
			return status.Errorf(codes.Unknown, "driver entry_modify_wkey failed: %v", err)
		}
	}

	guard.AddEntry(key, tableinfo.EntryData{
		Handle:             existing.Handle,
		ControllerMetadata: entry.ControllerMetadata,
		Match:              entry.Match,
		Action:             entry.Action,
	})
	return nil
}

func (m *Manager) tableDelete(ctx context.Context, sess pidriver.Session, p *pipeline, table *p4info.Table, key keys.CanonicalKey) error {
	if keys.IsDefaultEntry(key) {
		return status.Error(codes.Unimplemented, "deleting the default entry is not supported")
	}

	guard := p.tableStore.LockTable(table.ID)
	defer guard.Unlock()

	if _, exists := guard.GetEntry(key); !exists {
		return status.Errorf(codes.InvalidArgument, "table %d has no entry for this match key", table.ID)
	}

	driverKey := pidriver.MatchKey{TableID: table.ID, Bytes: []byte(key)}
	if err := m.driver.EntryDeleteWKey(ctx, sess, m.target, table.ID, driverKey); err != nil {
		return status.Errorf(codes.Unknown, "driver entry_delete_wkey failed: %v", err)
	}

	guard.RemoveEntry(key)
	return nil
}

func invalidID(kind p4info.ObjectKind, id uint32) error {
	return status.Errorf(codes.InvalidArgument, "%s", (&p4info.ErrUnknownID{Kind: kind, ID: id}).Error())
}
