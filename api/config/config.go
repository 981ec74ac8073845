package config

import (
	"context"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fctx"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
)

const (
	// DefaultAddress is the remote phonebook server used when none is configured.
	DefaultAddress = "00:1B:DC:08:0A:A5"

	// DefaultPullPath is the phonebook object pulled by default.
	DefaultPullPath = "telecom/pb.vcf"

	// DefaultLookupNumber is the number looked up by default.
	DefaultLookupNumber = "911"

	TransportBluez = "bluez"
	TransportSim   = "sim"
)

// Configuration describes a general configuration.
type Configuration struct {
	// Address holds the remote phonebook server address.
	Address string `toml:"address"`

	// Transport selects the transport client ("bluez" or "sim").
	Transport string `toml:"transport"`

	// Password holds the credential used when the server requests authentication.
	Password string `toml:"password"`

	// PullPath and LookupNumber are the unattended-mode defaults.
	PullPath     string `toml:"pull_path"`
	LookupNumber string `toml:"lookup_number"`

	// Phonebook holds the path to the simulator's JSON phonebook fixture.
	Phonebook string `toml:"phonebook"`

	// SimAddress is the host:port of a simulator started with "pbapctl serve".
	// When empty, the simulator runs in-process.
	SimAddress string `toml:"sim_address"`

	// SimPassword makes the simulator request authentication.
	SimPassword string `toml:"sim_password"`

	// Format is the requested vCard format ("vcard21" or "vcard30").
	Format string `toml:"format"`

	Log LogConfig `toml:"log"`
}

// LogConfig describes the logger settings.
type LogConfig struct {
	Level     string `toml:"level"`
	NoColor   bool   `toml:"no_color"`
	Timestamp bool   `toml:"timestamp"`
}

// New returns a new configuration with default values.
func New() Configuration {
	return Configuration{
		Address:      DefaultAddress,
		Transport:    TransportSim,
		PullPath:     DefaultPullPath,
		LookupNumber: DefaultLookupNumber,
		Format:       "vcard21",
		Log: LogConfig{
			Level:     "info",
			Timestamp: true,
		},
	}
}

// Load reads a TOML configuration file on top of the defaults.
// An empty path returns the defaults.
func Load(path string) (Configuration, error) {
	cfg := New()
	if path == "" {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fault.Wrap(err,
			fctx.With(fctx.WithMeta(context.Background(), "config_path", path)),
			ftag.With(ftag.InvalidArgument),
			fmsg.With("Cannot parse configuration file"),
		)
	}

	return cfg, cfg.Validate()
}

// Validate checks the configuration values.
func (c Configuration) Validate() error {
	switch c.Transport {
	case TransportBluez, TransportSim:
	default:
		return fault.Wrap(fault.New("unknown transport "+c.Transport),
			ftag.With(ftag.InvalidArgument),
			fmsg.With("Transport must be one of: bluez, sim"),
		)
	}

	switch strings.ToLower(c.Format) {
	case "vcard21", "vcard30":
	default:
		return fault.Wrap(fault.New("unknown vCard format "+c.Format),
			ftag.With(ftag.InvalidArgument),
			fmsg.With("Format must be one of: vcard21, vcard30"),
		)
	}

	return nil
}
