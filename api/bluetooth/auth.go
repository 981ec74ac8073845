package bluetooth

import "github.com/bluetuith-org/pbap-client/api/errorkinds"

// DefaultPassword is the password used when none has been configured.
const DefaultPassword = "0000"

// Authorizer describes an interface that supplies credentials when a
// remote phonebook server requests authentication.
type Authorizer interface {
	// AuthenticationPassword returns the password for the session with address.
	AuthenticationPassword(address MacAddress) (string, error)
}

// AuthorizerFunc adapts a function to an Authorizer.
type AuthorizerFunc func(address MacAddress) (string, error)

// AuthenticationPassword calls f(address).
func (f AuthorizerFunc) AuthenticationPassword(address MacAddress) (string, error) {
	return f(address)
}

// StaticAuthorizer answers every request with the same password.
type StaticAuthorizer struct {
	Password string
}

// AuthenticationPassword returns the configured password, or DefaultPassword.
func (s StaticAuthorizer) AuthenticationPassword(MacAddress) (string, error) {
	if s.Password == "" {
		return DefaultPassword, nil
	}

	return s.Password, nil
}

// DenyAuthorizer refuses every authentication request.
type DenyAuthorizer struct{}

// AuthenticationPassword always returns errorkinds.ErrNotSupported.
func (DenyAuthorizer) AuthenticationPassword(MacAddress) (string, error) {
	return "", errorkinds.ErrNotSupported
}
