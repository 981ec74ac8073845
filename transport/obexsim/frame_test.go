package obexsim

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/bluetuith-org/pbap-client/api/bluetooth"
	"github.com/bluetuith-org/pbap-client/api/errorkinds"
	"github.com/bluetuith-org/pbap-client/internal/serde"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer

	content := []byte("BEGIN:VCARD\r\n")
	require.NoError(t, writeFrame(&buf, newHeader(FrameData, false, 7, 42, len(content)), content))
	assert.Equal(t, HeaderSize+len(content), buf.Len())

	header, got, err := readFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, FrameData, header.Kind())
	assert.False(t, header.Final())
	assert.EqualValues(t, 7, header.Handle)
	assert.EqualValues(t, 42, header.RequestID)
	assert.Equal(t, content, got)
}

func TestUnpackHeaderRejects(t *testing.T) {
	tests := []struct {
		name   string
		header Header
	}{
		{"version", Header{Version: 9, Info: byte(FrameData)}},
		{"oversized", Header{Version: FrameVersion, Info: byte(FrameData), ContentSize: MaxFrameContent + 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var raw HeaderBuffer
			_, err := binary.Encode(raw[:], binary.BigEndian, tt.header)
			require.NoError(t, err)

			_, err = UnpackHeader(raw)
			assert.ErrorIs(t, err, errorkinds.ErrProtocolViolation)
		})
	}
}

func TestDecodeRecord(t *testing.T) {
	ev, err := decodeRecord(3, encodeRecord("Emergency", "3.vcf"))
	require.NoError(t, err)
	assert.Equal(t, "Emergency", string(ev.ContactName))
	assert.Equal(t, "3.vcf", string(ev.CardHandle))
	assert.EqualValues(t, 3, ev.SessionHandle())

	overlong := binary.BigEndian.AppendUint16(nil, 200)
	overlong = append(overlong, "short"...)

	truncatedHandle := encodeRecord("Alice", "1.vcf")
	truncatedHandle = truncatedHandle[:len(truncatedHandle)-2]

	noHandlePrefix := binary.BigEndian.AppendUint16(nil, 5)
	noHandlePrefix = append(noHandlePrefix, "Alice"...)

	trailing := append(encodeRecord("Bob", "2.vcf"), "GARBAGE"...)

	for name, content := range map[string][]byte{
		"empty":              nil,
		"name too long":      overlong,
		"handle truncated":   truncatedHandle,
		"no handle prefix":   noHandlePrefix,
		"trailing bytes":     trailing,
		"half handle prefix": append(encodeRecord("Bob", "")[:5], 0x00),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := decodeRecord(3, content)
			assert.ErrorIs(t, err, errorkinds.ErrProtocolViolation)
		})
	}
}

func TestDecodeEvent(t *testing.T) {
	h := bluetooth.Handle(1)

	ev, err := decodeEvent(h, newHeader(FrameOperationCompleted, true, h, 1, 1), encodeStatus(bluetooth.StatusNotFound))
	require.NoError(t, err)
	assert.Equal(t, bluetooth.OperationCompleted{EventHeader: bluetooth.EventHeader{Handle: h}, Status: bluetooth.StatusNotFound}, ev)

	ev, err = decodeEvent(h, newHeader(FrameSize, false, h, 1, 4), encodeSize(12))
	require.NoError(t, err)
	assert.Equal(t, bluetooth.SizeResult{EventHeader: bluetooth.EventHeader{Handle: h}, Size: 12}, ev)

	_, err = decodeEvent(h, newHeader(FrameSize, false, h, 1, 2), []byte{0, 1})
	assert.ErrorIs(t, err, errorkinds.ErrProtocolViolation)

	_, err = decodeEvent(h, newHeader(FrameRequest, true, h, 1, 0), nil)
	assert.ErrorIs(t, err, errorkinds.ErrProtocolViolation)
}

func TestRequestEncoding(t *testing.T) {
	req := SetFilterRequest(bluetooth.PropertyFN | bluetooth.PropertyTel)

	payload, err := serde.MarshalJson(req)
	require.NoError(t, err)

	var got Request
	require.NoError(t, serde.UnmarshalJson(payload, &got))
	assert.Equal(t, req, got)

	assert.Equal(t, "session authenticate --password ***", AuthenticateRequest("0000").String())
}

func TestPhonebookResolve(t *testing.T) {
	book := DefaultPhonebook()

	key, ok := book.resolve("telecom", "ich.vcf")
	assert.True(t, ok)
	assert.Equal(t, "telecom/ich.vcf", key)

	key, ok = book.resolve("telecom", "SIM1/telecom/pb.vcf")
	assert.True(t, ok)
	assert.Equal(t, "SIM1/telecom/pb.vcf", key)

	_, ok = book.resolve("", "pb.vcf")
	assert.False(t, ok)

	assert.True(t, book.hasFolder("SIM1"))
	assert.True(t, book.hasFolder("telecom/pb"))
	assert.False(t, book.hasFolder("nope"))
}

func TestContactSelection(t *testing.T) {
	alice := DefaultPhonebook()["telecom/pb.vcf"][1]
	owner := DefaultPhonebook()["telecom/pb.vcf"][0]
	mask := bluetooth.PropertyTel | bluetooth.PropertyEmail

	assert.True(t, alice.selected(mask, bluetooth.FilterAnd))
	assert.False(t, owner.selected(mask, bluetooth.FilterAnd))
	assert.True(t, owner.selected(mask, bluetooth.FilterOr))
	assert.True(t, owner.selected(bluetooth.FilterAll, bluetooth.FilterAnd))

	assert.Contains(t, alice.VCard("vcard30"), "VERSION:3.0\r\n")
	assert.Contains(t, alice.VCard("vcard21"), "EMAIL:alice@example.com\r\n")
}
