package bluetooth

import (
	"encoding/hex"
	"strings"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	"github.com/bluetuith-org/pbap-client/api/errorkinds"
)

// MacAddress describes a Bluetooth device address.
type MacAddress [6]byte

// ParseMAC parses a Bluetooth address. Octets may be separated by ':' or '-',
// or not separated at all ("001BDC080AA5").
func ParseMAC(address string) (MacAddress, error) {
	var mac MacAddress

	s := strings.NewReplacer(":", "", "-", "").Replace(strings.TrimSpace(address))
	if len(s) != len(mac)*2 {
		return mac, fault.Wrap(errorkinds.ErrInvalidAddress,
			ftag.With(ftag.InvalidArgument),
			fmsg.With("address "+address+" is not 6 octets long"),
		)
	}

	if _, err := hex.Decode(mac[:], []byte(s)); err != nil {
		return mac, fault.Wrap(errorkinds.ErrInvalidAddress,
			ftag.With(ftag.InvalidArgument),
			fmsg.With("address "+address+" is not hexadecimal"),
		)
	}

	return mac, nil
}

// String converts the address to the "XX:XX:XX:XX:XX:XX" form.
func (m MacAddress) String() string {
	sb := strings.Builder{}
	sb.Grow(len(m) * 3)

	for i, b := range m {
		if i > 0 {
			sb.WriteByte(':')
		}
		sb.WriteString(strings.ToUpper(hex.EncodeToString([]byte{b})))
	}

	return sb.String()
}

// IsZero reports whether the address is unset.
func (m MacAddress) IsZero() bool {
	return m == MacAddress{}
}
