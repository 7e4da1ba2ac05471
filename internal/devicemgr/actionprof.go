package devicemgr

import (
	"context"

	"github.com/p4lang/pi4go/pkg/p4info"
	"github.com/p4lang/pi4go/pkg/p4rt"
	"github.com/p4lang/pi4go/pkg/pidriver"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func (m *Manager) actionProfileMemberWrite(ctx context.Context, sess pidriver.Session, update p4rt.UpdateType, member *p4rt.ActionProfileMember) error {
	p := m.currentPipeline()
	mgr, ok := p.handle.ActionProfile(member.ActionProfileID)
	if !ok {
		return invalidID(p4info.KindActionProfile, member.ActionProfileID)
	}
	prof, ok := m.resolveProfile(p, mgr.ID)
	if !ok {
		return status.Errorf(codes.Unknown, "action profile %d has no manager", mgr.ID)
	}

	switch update {
	case p4rt.UpdateUnspecified:
		return status.Error(codes.InvalidArgument, "update type UNSPECIFIED")
	case p4rt.UpdateInsert:
		return prof.MemberCreate(ctx, sess, *member)
	case p4rt.UpdateModify:
		return prof.MemberModify(ctx, sess, *member)
	case p4rt.UpdateDelete:
		return prof.MemberDelete(ctx, sess, member.MemberID)
	default:
		return status.Error(codes.InvalidArgument, "unrecognized update type")
	}
}

func (m *Manager) actionProfileGroupWrite(ctx context.Context, sess pidriver.Session, update p4rt.UpdateType, group *p4rt.ActionProfileGroup) error {
	p := m.currentPipeline()
	mgr, ok := p.handle.ActionProfile(group.ActionProfileID)
	if !ok {
		return invalidID(p4info.KindActionProfile, group.ActionProfileID)
	}
	prof, ok := m.resolveProfile(p, mgr.ID)
	if !ok {
		return status.Errorf(codes.Unknown, "action profile %d has no manager", mgr.ID)
	}

	switch update {
	case p4rt.UpdateUnspecified:
		return status.Error(codes.InvalidArgument, "update type UNSPECIFIED")
	case p4rt.UpdateInsert:
		return prof.GroupCreate(ctx, sess, *group)
	case p4rt.UpdateModify:
		return prof.GroupModify(ctx, sess, *group)
	case p4rt.UpdateDelete:
		return prof.GroupDelete(ctx, sess, group.GroupID)
	default:
		return status.Error(codes.InvalidArgument, "unrecognized update type")
	}
}
