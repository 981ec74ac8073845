package bluez

import (
	"github.com/godbus/dbus/v5"
)

const (
	obexService = "org.bluez.obex"
	obexPath    = dbus.ObjectPath("/org/bluez/obex")

	clientInterface    = "org.bluez.obex.Client1"
	phonebookInterface = "org.bluez.obex.PhonebookAccess1"
	transferInterface  = "org.bluez.obex.Transfer1"

	propertiesInterface    = "org.freedesktop.DBus.Properties"
	objectManagerInterface = "org.freedesktop.DBus.ObjectManager"
)

// searchResult is one entry returned by PhonebookAccess1.Search.
type searchResult struct {
	Handle string
	Name   string
}

// obexd is the subset of the obexd client API used by the transport.
type obexd interface {
	CreateSession(destination string) (dbus.ObjectPath, error)
	RemoveSession(session dbus.ObjectPath) error
	Select(session dbus.ObjectPath, location, phonebook string) error
	GetSize(session dbus.ObjectPath) (uint16, error)
	PullAll(session dbus.ObjectPath, filters map[string]dbus.Variant) (dbus.ObjectPath, string, error)
	Search(session dbus.ObjectPath, field, value string, filters map[string]dbus.Variant) ([]searchResult, error)
	Cancel(transfer dbus.ObjectPath) error
}

// dbusObexd calls obexd over the session bus.
type dbusObexd struct {
	conn *dbus.Conn
}

func (o dbusObexd) call(path dbus.ObjectPath, method string, args ...any) *dbus.Call {
	return o.conn.Object(obexService, path).Call(method, 0, args...)
}

func (o dbusObexd) CreateSession(destination string) (dbus.ObjectPath, error) {
	var session dbus.ObjectPath

	err := o.call(obexPath, clientInterface+".CreateSession", destination, map[string]dbus.Variant{
		"Target": dbus.MakeVariant("pbap"),
	}).Store(&session)

	return session, err
}

func (o dbusObexd) RemoveSession(session dbus.ObjectPath) error {
	return o.call(obexPath, clientInterface+".RemoveSession", session).Err
}

func (o dbusObexd) Select(session dbus.ObjectPath, location, phonebook string) error {
	return o.call(session, phonebookInterface+".Select", location, phonebook).Err
}

func (o dbusObexd) GetSize(session dbus.ObjectPath) (uint16, error) {
	var size uint16
	err := o.call(session, phonebookInterface+".GetSize").Store(&size)

	return size, err
}

func (o dbusObexd) PullAll(session dbus.ObjectPath, filters map[string]dbus.Variant) (dbus.ObjectPath, string, error) {
	var (
		transfer   dbus.ObjectPath
		properties map[string]dbus.Variant
	)

	if err := o.call(session, phonebookInterface+".PullAll", "", filters).Store(&transfer, &properties); err != nil {
		return "", "", err
	}

	var filename string
	if v, ok := properties["Filename"]; ok {
		_ = v.Store(&filename)
	}

	return transfer, filename, nil
}

func (o dbusObexd) Search(session dbus.ObjectPath, field, value string, filters map[string]dbus.Variant) ([]searchResult, error) {
	var results []searchResult
	err := o.call(session, phonebookInterface+".Search", field, value, filters).Store(&results)

	return results, err
}

func (o dbusObexd) Cancel(transfer dbus.ObjectPath) error {
	return o.call(transfer, transferInterface+".Cancel").Err
}
