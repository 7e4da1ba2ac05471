// Package packetio declares PacketIOMgr: the component that forwards
// controller PacketOut messages to the data plane and dispatches data-plane
// PacketIn notifications back to a controller-registered callback. The
// actual transport is an external collaborator (§6.3); this package only
// reacts to pipeline changes that affect packet header metadata layout.
package packetio

import (
	"context"
	"sync"

	"github.com/p4lang/pi4go/pkg/p4info"
	"github.com/p4lang/pi4go/pkg/p4rt"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Sender forwards a packet to the data plane. Implemented by the transport.
type Sender interface {
	Send(ctx context.Context, packet p4rt.PacketOut) error
}

// Callback receives packet-in notifications. cookie is opaque to PacketIOMgr
// and is returned unchanged to the registrant.
type Callback func(pkt p4rt.PacketIn, cookie any)

// Manager dispatches packet I/O and tracks the packet metadata layout
// implied by the active P4Info. It persists across pipeline reconfigurations
// (§3 Lifecycles): only its metadata layout is replaced on pipeline change.
type Manager struct {
	sender Sender

	mu       sync.RWMutex
	cb       Callback
	cookie   any
	metadata packetMetadataLayout
}

type packetMetadataLayout struct {
	deviceID   uint64
	ingressBit int // width in bits of the packet-in ingress-port metadata, 0 if unset
	egressBit  int // width in bits of the packet-out egress-port metadata, 0 if unset
}

// New creates a Manager that forwards outbound packets through sender.
func New(sender Sender) *Manager {
	return &Manager{sender: sender}
}

// RegisterPacketInCallback installs fn as the packet-in handler, replacing
// any previous registration.
func (m *Manager) RegisterPacketInCallback(fn Callback, cookie any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cb = fn
	m.cookie = cookie
}

// Dispatch is invoked by the driver's notification thread when a packet-in
// arrives. It is safe to call concurrently with controller-facing calls.
func (m *Manager) Dispatch(pkt p4rt.PacketIn) {
	m.mu.RLock()
	cb, cookie := m.cb, m.cookie
	m.mu.RUnlock()
	if cb != nil {
		cb(pkt, cookie)
	}
}

// Send validates and forwards a controller PacketOut.
func (m *Manager) Send(ctx context.Context, packet p4rt.PacketOut) error {
	if len(packet.Payload) == 0 {
		return status.Error(codes.InvalidArgument, "packet_out payload must not be empty")
	}
	if m.sender == nil {
		return status.Error(codes.Unknown, "no packet transport configured")
	}
	return m.sender.Send(ctx, packet)
}

// OnPipelineChange recomputes packet header metadata layout from the newly
// committed P4Info. It never touches the registered callback.
func (m *Manager) OnPipelineChange(deviceID uint64, schema p4info.Schema) {
	layout := packetMetadataLayout{deviceID: deviceID}
	// A real implementation derives ingress/egress metadata widths from the
	// P4Info controller-packet-metadata extern instances; this frontend has
	// no extern-entry support (§1 Non-goals), so the layout only records
	// enough to distinguish "no pipeline yet" from "pipeline present".
	if len(schema.Tables) > 0 || len(schema.Actions) > 0 {
		layout.ingressBit = 16
		layout.egressBit = 16
	}

	m.mu.Lock()
	m.metadata = layout
	m.mu.Unlock()
}
