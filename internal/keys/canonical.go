// Package keys builds the canonical, driver-facing representations of match
// keys and action entries from controller-supplied p4rt messages, validating
// every value against the table/action declarations in a p4info.Handle.
package keys

import (
	"bytes"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// byteLenForBitwidth returns ceil(bitwidth/8).
func byteLenForBitwidth(bitwidth int) int {
	return (bitwidth + 7) / 8
}

// validateCanonicalBytes checks that value is the canonical byte-string
// encoding of a field with the given bitwidth (§4.2): non-empty, exactly
// ceil(bitwidth/8) bytes, with any padding bits in the top byte zeroed.
func validateCanonicalBytes(value []byte, bitwidth int) error {
	want := byteLenForBitwidth(bitwidth)
	if len(value) == 0 {
		return status.Errorf(codes.InvalidArgument, "empty byte string for a %d-bit field", bitwidth)
	}
	if len(value) != want {
		return status.Errorf(codes.InvalidArgument,
			"byte string length %d does not match ceil(%d/8)=%d", len(value), bitwidth, want)
	}
	padBits := want*8 - bitwidth
	if padBits > 0 {
		mask := byte(0xff) << (8 - padBits)
		if value[0]&mask != 0 {
			return status.Errorf(codes.InvalidArgument,
				"byte string has non-zero padding bits beyond bitwidth %d", bitwidth)
		}
	}
	return nil
}

// CanonicalKey is the fixed-layout byte sequence used as the shadow store's
// map key: two semantically equal match keys produce identical CanonicalKeys.
type CanonicalKey string

// canonicalFieldLayout renders one canonical field value. The layout embeds
// the field ID and match kind tag so that two fields with accidentally
// identical byte payloads but different kinds never collide.
func canonicalFieldLayout(fieldID uint32, kindTag byte, parts ...[]byte) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%08x:%02x", fieldID, kindTag)
	for _, p := range parts {
		fmt.Fprintf(&buf, ":%x", p)
	}
	buf.WriteByte(';')
	return buf.Bytes()
}

// bytesLessOrEqual compares two equal-length big-endian byte strings.
func bytesLessOrEqual(a, b []byte) bool {
	return bytes.Compare(a, b) <= 0
}
