package bluez

import (
	"errors"
	"path"
	"strings"

	"github.com/bluetuith-org/pbap-client/api/bluetooth"
	"github.com/godbus/dbus/v5"
)

var errUnknownObject = errors.New("unknown phonebook object")

// phonebooks are the objects obexd can select in a repository.
var phonebooks = map[string]struct{}{
	"pb": {}, "ich": {}, "och": {}, "mch": {}, "cch": {}, "spd": {}, "fav": {},
}

// resolveObject maps a phonebook object path, relative to folder unless it
// names a repository, onto an obexd (location, phonebook) selection.
//
//	telecom/pb.vcf        -> ("int", "pb")
//	SIM1/telecom/ich.vcf  -> ("sim1", "ich")
func resolveObject(folder, p string) (string, string, error) {
	p = strings.TrimSpace(p)
	if !strings.Contains(p, "/") {
		p = path.Join(folder, p)
	}
	p = strings.TrimPrefix(path.Clean("/"+p), "/")

	dir, file := path.Split(p)
	pb := strings.TrimSuffix(file, ".vcf")
	if _, ok := phonebooks[pb]; !ok {
		return "", "", errUnknownObject
	}

	location, ok := repository(strings.TrimSuffix(dir, "/"))
	if !ok {
		return "", "", errUnknownObject
	}

	return location, pb, nil
}

// repository returns the obexd location for a telecom folder.
func repository(dir string) (string, bool) {
	switch strings.ToLower(dir) {
	case "telecom":
		return "int", true

	case "sim1/telecom":
		return "sim1", true
	}

	return "", false
}

// validFolder reports whether folder exists in the virtual folder tree.
func validFolder(folder string) bool {
	switch strings.ToLower(folder) {
	case "", "telecom", "sim1", "sim1/telecom":
		return true
	}

	return false
}

// filters builds the obexd filter dictionary for a pull or search.
func filters(format string, mask bluetooth.FilterMask) map[string]dbus.Variant {
	f := map[string]dbus.Variant{
		"Format": dbus.MakeVariant(format),
	}
	if mask != bluetooth.FilterAll {
		f["Fields"] = dbus.MakeVariant(mask.Properties())
	}

	return f
}

// statusOf maps an obexd error reply onto a response status.
func statusOf(err error) bluetooth.Status {
	var derr dbus.Error
	if !errors.As(err, &derr) {
		var perr *dbus.Error
		if !errors.As(err, &perr) {
			return bluetooth.StatusUnknownError
		}
		derr = *perr
	}

	message := ""
	if len(derr.Body) > 0 {
		message, _ = derr.Body[0].(string)
	}
	message = strings.ToLower(message)

	switch {
	case strings.HasSuffix(derr.Name, ".InvalidArguments"):
		return bluetooth.StatusBadRequest

	case strings.HasSuffix(derr.Name, ".NotAuthorized"):
		return bluetooth.StatusUnauthorized

	case strings.HasSuffix(derr.Name, ".Forbidden"):
		return bluetooth.StatusForbidden

	case strings.HasSuffix(derr.Name, ".NotSupported"):
		return bluetooth.StatusNotImplemented

	case strings.Contains(message, "not found"):
		return bluetooth.StatusNotFound

	case strings.Contains(message, "unavailable"), strings.Contains(message, "refused"):
		return bluetooth.StatusServiceUnavailable
	}

	return bluetooth.StatusInternalError
}
