package bluetooth

import "strconv"

// Status is the status code carried by connection-opened and
// operation-completed events. Non-zero values are OBEX response codes
// (without the final bit), apart from the locally generated StatusAborted
// and StatusUnknownError.
type Status uint8

const (
	StatusOK                 Status = 0x00
	StatusBadRequest         Status = 0xC0
	StatusUnauthorized       Status = 0xC1
	StatusForbidden          Status = 0xC3
	StatusNotFound           Status = 0xC4
	StatusNotAcceptable      Status = 0xC6
	StatusPreconditionFailed Status = 0xCC
	StatusInternalError      Status = 0xD0
	StatusNotImplemented     Status = 0xD1
	StatusServiceUnavailable Status = 0xD3
	StatusAborted            Status = 0xFD
	StatusUnknownError       Status = 0xFE
)

var statusNames = map[Status]string{
	StatusOK:                 "ok",
	StatusBadRequest:         "bad request",
	StatusUnauthorized:       "unauthorized",
	StatusForbidden:          "forbidden",
	StatusNotFound:           "not found",
	StatusNotAcceptable:      "not acceptable",
	StatusPreconditionFailed: "precondition failed",
	StatusInternalError:      "internal server error",
	StatusNotImplemented:     "not implemented",
	StatusServiceUnavailable: "service unavailable",
	StatusAborted:            "aborted",
	StatusUnknownError:       "unknown error",
}

// OK reports whether the status denotes success.
func (s Status) OK() bool {
	return s == StatusOK
}

// String returns a readable form of the status, e.g. "not found (0xc4)".
func (s Status) String() string {
	hexcode := "0x" + strconv.FormatUint(uint64(s), 16)
	if name, ok := statusNames[s]; ok {
		return name + " (" + hexcode + ")"
	}

	return hexcode
}
