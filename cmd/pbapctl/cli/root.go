// Package cli implements the pbapctl command tree.
package cli

import (
	"github.com/bluetuith-org/pbap-client/api/bluetooth"
	"github.com/bluetuith-org/pbap-client/api/config"
	"github.com/bluetuith-org/pbap-client/internal/logging"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "dev"

// flags holds the global command line flags.
type flags struct {
	config     string
	address    string
	transport  string
	phonebook  string
	password   string
	simAddress string
	format     string
	logLevel   string
	json       bool
}

// environment is what every subcommand runs with.
type environment struct {
	cfg     config.Configuration
	address bluetooth.MacAddress
	logger  zerolog.Logger
	json    bool
}

// NewRootCmd returns the pbapctl command tree.
func NewRootCmd() *cobra.Command {
	f := &flags{}
	env := &environment{}

	root := &cobra.Command{
		Use:          "pbapctl",
		Short:        "Phonebook access client",
		Long:         "pbapctl connects to a phonebook server over BlueZ obexd or the built-in simulator,\nand pulls, sizes or searches its phonebook objects.",
		Version:      Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd, f)
			if err != nil {
				return err
			}

			address, err := bluetooth.ParseMAC(cfg.Address)
			if err != nil {
				return err
			}

			*env = environment{
				cfg:     cfg,
				address: address,
				logger:  logging.New(cmd.ErrOrStderr(), cfg.Log),
				json:    f.json,
			}

			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&f.config, "config", "c", "", "path to a TOML configuration file")
	pf.StringVarP(&f.address, "address", "a", "", "address of the phonebook server")
	pf.StringVarP(&f.transport, "transport", "t", "", "transport client (bluez or sim)")
	pf.StringVar(&f.phonebook, "phonebook", "", "JSON phonebook served by the simulator")
	pf.StringVarP(&f.password, "password", "p", "", "password sent when the server requests authentication")
	pf.StringVar(&f.simAddress, "sim-address", "", "host:port of a simulator started with 'pbapctl serve'")
	pf.StringVar(&f.format, "format", "", "vCard format (vcard21 or vcard30)")
	pf.StringVar(&f.logLevel, "log-level", "", "log level (trace, debug, info, warn, error, disabled)")
	pf.BoolVar(&f.json, "json", false, "print notifications as JSON lines")

	root.AddCommand(
		newConsoleCmd(env),
		newPullCmd(env),
		newSizeCmd(env),
		newLookupCmd(env),
		newServeCmd(env),
		newVersionCmd(env),
	)

	return root
}

// resolveConfig loads the configuration file, then applies the flags
// that were set on the command line.
func resolveConfig(cmd *cobra.Command, f *flags) (config.Configuration, error) {
	cfg, err := config.Load(f.config)
	if err != nil {
		return cfg, err
	}

	set := func(name string, dst *string, value string) {
		if cmd.Flags().Changed(name) {
			*dst = value
		}
	}
	set("address", &cfg.Address, f.address)
	set("transport", &cfg.Transport, f.transport)
	set("phonebook", &cfg.Phonebook, f.phonebook)
	set("password", &cfg.Password, f.password)
	set("sim-address", &cfg.SimAddress, f.simAddress)
	set("format", &cfg.Format, f.format)
	set("log-level", &cfg.Log.Level, f.logLevel)

	return cfg, cfg.Validate()
}
