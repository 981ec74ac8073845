package surface

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/bluetuith-org/pbap-client/api/bluetooth"
	"github.com/bluetuith-org/pbap-client/api/errorkinds"
	"github.com/bluetuith-org/pbap-client/pbap"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var remote = bluetooth.MacAddress{0x00, 0x1B, 0xDC, 0x08, 0x0A, 0xA5}

type fakeSubmitter struct {
	mu     sync.Mutex
	cmds   []pbap.Command
	reject map[string]error
}

func (f *fakeSubmitter) Submit(_ context.Context, cmd pbap.Command) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.reject[cmd.CommandName()]; err != nil {
		return err
	}
	f.cmds = append(f.cmds, cmd)

	return nil
}

func (f *fakeSubmitter) Post(cmd pbap.Command) {
	_ = f.Submit(context.Background(), cmd)
}

func (f *fakeSubmitter) Info() pbap.SessionInfo {
	return pbap.SessionInfo{Address: remote, State: pbap.StateIdle, Folder: "/telecom"}
}

func TestParseCommand(t *testing.T) {
	defaults := Defaults{Address: remote, Number: "911", Path: PathPhonebook}

	tests := []struct {
		line string
		want pbap.Command
	}{
		{"a", pbap.Connect{Address: remote}},
		{"b", pbap.SetFolder{Path: "telecom/pb"}},
		{"r", pbap.SetFolder{Path: "telecom"}},
		{"v", pbap.SetFilter{Mask: bluetooth.PropertyFN}},
		{"V", pbap.SetFilterOperator{Operator: bluetooth.FilterAnd}},
		{"d", pbap.GetSize{Path: "telecom/pb.vcf"}},
		{"g", pbap.Lookup{Number: "911"}},
		{"e", pbap.Pull{Path: "telecom/pb.vcf"}},
		{"f", pbap.Pull{Path: "telecom/fav.vcf"}},
		{"i", pbap.Pull{Path: "telecom/ich.vcf"}},
		{"o", pbap.Pull{Path: "telecom/och.vcf"}},
		{"m", pbap.Pull{Path: "telecom/mch.vcf"}},
		{"c", pbap.Pull{Path: "telecom/cch.vcf"}},
		{"s", pbap.Pull{Path: "telecom/spd.vcf"}},
		{"E", pbap.Pull{Path: "SIM1/telecom/pb.vcf"}},
		{"I", pbap.Pull{Path: "SIM1/telecom/ich.vcf"}},
		{"O", pbap.Pull{Path: "SIM1/telecom/och.vcf"}},
		{"M", pbap.Pull{Path: "SIM1/telecom/mch.vcf"}},
		{"C", pbap.Pull{Path: "SIM1/telecom/cch.vcf"}},
		{"p", pbap.Authenticate{Password: bluetooth.DefaultPassword}},
		{"x", pbap.Abort{}},
		{"t", pbap.Disconnect{}},
		{"connect 11:22:33:44:55:66", pbap.Connect{Address: bluetooth.MacAddress{0x11, 0x22, 0x33, 0x44, 0x55, 0x66}}},
		{"Disconnect", pbap.Disconnect{}},
		{"auth 1234", pbap.Authenticate{Password: "1234"}},
		{"cd SIM1/telecom", pbap.SetFolder{Path: "SIM1/telecom"}},
		{"filter FN,TEL", pbap.SetFilter{Mask: bluetooth.PropertyFN | bluetooth.PropertyTel}},
		{"filter", pbap.SetFilter{Mask: bluetooth.FilterAll}},
		{"operator or", pbap.SetFilterOperator{Operator: bluetooth.FilterOr}},
		{"size", pbap.GetSize{Path: "telecom/pb.vcf"}},
		{"pull telecom/ich.vcf", pbap.Pull{Path: "telecom/ich.vcf"}},
		{"lookup 5550101", pbap.Lookup{Number: "5550101"}},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			cmd, err := ParseCommand(tt.line, defaults)
			require.NoError(t, err)
			assert.Equal(t, tt.want, cmd)
		})
	}

	for _, line := range []string{"connect nope", "filter FAX", "operator xor", "dance"} {
		_, err := ParseCommand(line, defaults)
		assert.Error(t, err, line)
	}

	_, err := ParseCommand("quit", defaults)
	assert.ErrorIs(t, err, errQuit)
}

func TestParseCommandAuthorizer(t *testing.T) {
	defaults := Defaults{Authorizer: bluetooth.StaticAuthorizer{Password: "4321"}}

	cmd, err := ParseCommand("auth", defaults)
	require.NoError(t, err)
	assert.Equal(t, pbap.Authenticate{Password: "4321"}, cmd)

	_, err = ParseCommand("p", Defaults{Authorizer: bluetooth.DenyAuthorizer{}})
	assert.ErrorIs(t, err, errorkinds.ErrNotSupported)
}

func TestConsoleRun(t *testing.T) {
	sub := &fakeSubmitter{reject: map[string]error{
		"abort": errorkinds.ErrInvalidState,
	}}

	in := strings.NewReader("a\n\nx\nstatus\nbogus\ne\nquit\nt\n")
	var out bytes.Buffer

	console := NewConsole(sub, Defaults{Address: remote}, in, &out, zerolog.Nop())
	require.NoError(t, console.Run(context.Background()))

	assert.Equal(t, []pbap.Command{
		pbap.Connect{Address: remote},
		pbap.Pull{Path: PathPhonebook},
	}, sub.cmds)

	text := out.String()
	assert.Contains(t, text, "Phonebook access client console")
	assert.Contains(t, text, "[!] "+errorkinds.ErrInvalidState.Error())
	assert.Contains(t, text, "Folder:   /telecom")
	assert.Contains(t, text, "bogus")
}
