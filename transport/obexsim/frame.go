package obexsim

import (
	"encoding/binary"
	"io"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/bluetuith-org/pbap-client/api/bluetooth"
	"github.com/bluetuith-org/pbap-client/api/errorkinds"
)

const (
	FrameVersion    = 1
	HeaderSize      = 12
	MaxFrameContent = 1 << 20
)

// FrameKind is the kind of a frame, stored in the low nibble of the info byte.
type FrameKind byte

const (
	FrameRequest FrameKind = iota + 1
	FrameConnectionOpened
	FrameConnectionClosed
	FrameOperationCompleted
	FrameAuthRequested
	FrameSize
	FrameRecord
	FrameData
)

// The high nibble of the info byte holds flags.
const flagFinal byte = 0x10

type HeaderBuffer = [HeaderSize]byte

// Header is the fixed-size frame header. All fields are big-endian.
type Header struct {
	Version     byte
	Info        byte
	Handle      uint16
	RequestID   uint32
	ContentSize uint32
}

// Kind returns the frame kind.
func (h Header) Kind() FrameKind {
	return FrameKind(h.Info & 0x0f)
}

// Final reports whether the frame terminates its request.
func (h Header) Final() bool {
	return h.Info&flagFinal != 0
}

func newHeader(kind FrameKind, final bool, handle bluetooth.Handle, requestID uint32, size int) Header {
	info := byte(kind) & 0x0f
	if final {
		info |= flagFinal
	}

	return Header{
		Version:     FrameVersion,
		Info:        info,
		Handle:      uint16(handle),
		RequestID:   requestID,
		ContentSize: uint32(size),
	}
}

// UnpackHeader decodes and checks a frame header.
func UnpackHeader(raw HeaderBuffer) (Header, error) {
	var header Header
	if _, err := binary.Decode(raw[:], binary.BigEndian, &header); err != nil {
		return header, err
	}

	if header.Version != FrameVersion {
		return header, fault.Wrap(errorkinds.ErrProtocolViolation,
			fmsg.With("unsupported frame version"),
		)
	}
	if header.ContentSize > MaxFrameContent {
		return header, fault.Wrap(errorkinds.ErrProtocolViolation,
			fmsg.With("frame content too large"),
		)
	}

	return header, nil
}

// writeFrame writes the header followed by content.
func writeFrame(w io.Writer, header Header, content []byte) error {
	buf := make([]byte, HeaderSize, HeaderSize+len(content))
	if _, err := binary.Encode(buf, binary.BigEndian, header); err != nil {
		return err
	}

	_, err := w.Write(append(buf, content...))

	return err
}

// readFrame reads one frame.
func readFrame(r io.Reader) (Header, []byte, error) {
	var raw HeaderBuffer
	if _, err := io.ReadFull(r, raw[:]); err != nil {
		return Header{}, nil, err
	}

	header, err := UnpackHeader(raw)
	if err != nil {
		return header, nil, err
	}

	content := make([]byte, header.ContentSize)
	if _, err := io.ReadFull(r, content); err != nil {
		return header, nil, err
	}

	return header, content, nil
}

// encodeRecord encodes a lookup result with explicit uint16 length prefixes.
func encodeRecord(name, handle string) []byte {
	buf := make([]byte, 0, 4+len(name)+len(handle))
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(name)))
	buf = append(buf, name...)
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(handle)))

	return append(buf, handle...)
}

// decodeRecord decodes a lookup result, bound-checking each length prefix
// against the bytes actually received.
func decodeRecord(h bluetooth.Handle, content []byte) (bluetooth.RecordResult, error) {
	if len(content) < 2 {
		return bluetooth.RecordResult{}, errShortRecord
	}
	nameLen := int(binary.BigEndian.Uint16(content))
	content = content[2:]

	if nameLen > len(content) {
		return bluetooth.NewRecordResult(h, content, nameLen, nil, 0)
	}
	name, content := content[:nameLen], content[nameLen:]

	if len(content) < 2 {
		return bluetooth.RecordResult{}, errShortRecord
	}
	handleLen := int(binary.BigEndian.Uint16(content))
	content = content[2:]

	if len(content) > handleLen {
		return bluetooth.RecordResult{}, errTrailingRecord
	}

	return bluetooth.NewRecordResult(h, name, nameLen, content, handleLen)
}

var (
	errShortRecord    = fault.Wrap(errorkinds.ErrProtocolViolation, fmsg.With("record frame too short"))
	errTrailingRecord = fault.Wrap(errorkinds.ErrProtocolViolation, fmsg.With("record frame has trailing bytes"))
)

func encodeStatus(status bluetooth.Status) []byte {
	return []byte{byte(status)}
}

func decodeStatus(content []byte) (bluetooth.Status, error) {
	if len(content) != 1 {
		return 0, fault.Wrap(errorkinds.ErrProtocolViolation, fmsg.With("malformed status frame"))
	}

	return bluetooth.Status(content[0]), nil
}

func encodeSize(size uint32) []byte {
	return binary.BigEndian.AppendUint32(nil, size)
}

func decodeSize(content []byte) (uint32, error) {
	if len(content) != 4 {
		return 0, fault.Wrap(errorkinds.ErrProtocolViolation, fmsg.With("malformed size frame"))
	}

	return binary.BigEndian.Uint32(content), nil
}

// decodeEvent converts an event frame into a bluetooth.Event.
func decodeEvent(h bluetooth.Handle, header Header, content []byte) (bluetooth.Event, error) {
	eh := bluetooth.EventHeader{Handle: h}

	switch header.Kind() {
	case FrameConnectionOpened:
		status, err := decodeStatus(content)
		return bluetooth.ConnectionOpened{EventHeader: eh, Status: status}, err

	case FrameConnectionClosed:
		return bluetooth.ConnectionClosed{EventHeader: eh}, nil

	case FrameOperationCompleted:
		status, err := decodeStatus(content)
		return bluetooth.OperationCompleted{EventHeader: eh, Status: status}, err

	case FrameAuthRequested:
		return bluetooth.AuthenticationRequested{EventHeader: eh}, nil

	case FrameSize:
		size, err := decodeSize(content)
		return bluetooth.SizeResult{EventHeader: eh, Size: size}, err

	case FrameRecord:
		return decodeRecord(h, content)

	case FrameData:
		return bluetooth.DataFragment{EventHeader: eh, Data: content}, nil
	}

	return nil, fault.Wrap(errorkinds.ErrProtocolViolation, fmsg.With("unexpected frame kind"))
}
