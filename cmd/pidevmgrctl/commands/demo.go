package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/p4lang/pi4go/internal/cli/output"
	"github.com/p4lang/pi4go/internal/cli/prompt"
	"github.com/p4lang/pi4go/internal/devicemgr"
	"github.com/p4lang/pi4go/internal/pisim"
	"github.com/p4lang/pi4go/pkg/p4info"
	"github.com/p4lang/pi4go/pkg/p4rt"
	"github.com/p4lang/pi4go/pkg/packetio"
	"github.com/spf13/cobra"
)

var demoForce bool

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Commit a sample pipeline, write and read back table entries, then clear them",
	RunE:  runDemo,
}

func init() {
	demoCmd.Flags().BoolVar(&demoForce, "force", false, "skip the confirmation prompt before clearing entries")
}

const demoDeviceID = 1
const demoTableID = 1
const demoActionID = 1
const demoCounterID = 1

func demoSchema() p4info.Schema {
	return p4info.Schema{
		Tables: []p4info.Table{{
			ID:   demoTableID,
			Name: "ipv4_host",
			MatchFields: []p4info.MatchField{
				{ID: 1, Name: "hdr.ipv4.dst_addr", Bitwidth: 32, MatchKind: p4info.MatchExact},
			},
			ActionIDs: []uint32{demoActionID},
			Size:      1024,
		}},
		Actions: []p4info.Action{{
			ID:   demoActionID,
			Name: "forward",
			Params: []p4info.ActionParam{
				{ID: 1, Name: "port", Bitwidth: 9},
			},
		}},
		Counters: []p4info.Counter{{
			ID:   demoCounterID,
			Name: "ipv4_host_hits",
			Size: 1024,
		}},
	}
}

func runDemo(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	driver := pisim.New()
	mgr := devicemgr.New(demoDeviceID, driver, packetio.New(discardSender{}))

	deviceConfigBytes, err := devicemgr.EncodeDeviceConfig(p4rt.DeviceConfig{})
	if err != nil {
		return fmt.Errorf("encode device_config_bytes: %w", err)
	}
	cfg := p4rt.ForwardingPipelineConfig{DeviceID: demoDeviceID, P4Info: demoSchema(), DeviceConfigBytes: deviceConfigBytes}
	if err := mgr.SetForwardingPipelineConfig(ctx, p4rt.PipelineVerifyAndCommit, cfg); err != nil {
		return fmt.Errorf("set_forwarding_pipeline_config: %w", err)
	}
	fmt.Println("pipeline committed")

	entries := []*p4rt.TableEntry{
		{
			TableID: demoTableID,
			Match: []p4rt.FieldMatch{{
				FieldID: 1,
				Exact:   &p4rt.ExactMatch{Value: []byte{10, 0, 0, 1}},
			}},
			Action: p4rt.DirectAction{
				ActionID: demoActionID,
				Params:   []p4rt.ActionParam{{ParamID: 1, Value: []byte{0, 1}}},
			},
		},
		{
			TableID: demoTableID,
			Match: []p4rt.FieldMatch{{
				FieldID: 1,
				Exact:   &p4rt.ExactMatch{Value: []byte{10, 0, 0, 2}},
			}},
			Action: p4rt.DirectAction{
				ActionID: demoActionID,
				Params:   []p4rt.ActionParam{{ParamID: 1, Value: []byte{0, 2}}},
			},
		},
	}

	var updates []p4rt.Update
	for _, e := range entries {
		updates = append(updates, p4rt.Update{Type: p4rt.UpdateInsert, Entity: e})
	}
	if err := mgr.Write(ctx, p4rt.WriteRequest{DeviceID: demoDeviceID, Updates: updates}); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	fmt.Printf("inserted %d table entries\n", len(entries))

	resp, err := mgr.Read(ctx, p4rt.ReadRequest{DeviceID: demoDeviceID, Entities: []p4rt.Entity{&p4rt.TableEntry{TableID: demoTableID}}})
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}
	if err := output.PrintTable(os.Stdout, renderedEntries(resp.Entities)); err != nil {
		return err
	}

	ok, err := prompt.ConfirmWithForce("Clear all entries from ipv4_host?", demoForce)
	if err != nil {
		if err == prompt.ErrAborted {
			fmt.Println("aborted")
			return nil
		}
		return err
	}
	if !ok {
		fmt.Println("left entries in place")
		return nil
	}

	var deletes []p4rt.Update
	for _, e := range entries {
		deletes = append(deletes, p4rt.Update{Type: p4rt.UpdateDelete, Entity: e})
	}
	if err := mgr.Write(ctx, p4rt.WriteRequest{DeviceID: demoDeviceID, Updates: deletes}); err != nil {
		return fmt.Errorf("write (delete): %w", err)
	}
	fmt.Println("entries cleared")
	return nil
}

type discardSender struct{}

func (discardSender) Send(context.Context, p4rt.PacketOut) error { return nil }

// renderedEntries adapts a slice of table-entry entities to output.TableRenderer.
type renderedEntries []p4rt.Entity

func (r renderedEntries) Headers() []string {
	return []string{"MATCH", "ACTION"}
}

func (r renderedEntries) Rows() [][]string {
	rows := make([][]string, 0, len(r))
	for _, e := range r {
		te, ok := e.(*p4rt.TableEntry)
		if !ok {
			continue
		}
		rows = append(rows, []string{formatMatch(te.Match), formatAction(te.Action)})
	}
	return rows
}

func formatMatch(m []p4rt.FieldMatch) string {
	if len(m) == 0 {
		return "(default)"
	}
	out := ""
	for i, f := range m {
		if i > 0 {
			out += ", "
		}
		if f.Exact != nil {
			out += fmt.Sprintf("field %d = %v", f.FieldID, f.Exact.Value)
		} else {
			out += fmt.Sprintf("field %d", f.FieldID)
		}
	}
	return out
}

func formatAction(a p4rt.ActionEntry) string {
	switch v := a.(type) {
	case p4rt.DirectAction:
		return fmt.Sprintf("action %d, params=%v", v.ActionID, v.Params)
	case p4rt.IndirectMemberAction:
		return fmt.Sprintf("member %d", v.MemberID)
	case p4rt.IndirectGroupAction:
		return fmt.Sprintf("group %d", v.GroupID)
	default:
		return "(none)"
	}
}
