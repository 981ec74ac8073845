package cli

import (
	"context"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fctx"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	"github.com/bluetuith-org/pbap-client/api/bluetooth"
	"github.com/bluetuith-org/pbap-client/api/config"
	"github.com/bluetuith-org/pbap-client/internal/serde"
	"github.com/bluetuith-org/pbap-client/pbap"
	"github.com/bluetuith-org/pbap-client/platform"
	"github.com/bluetuith-org/pbap-client/surface"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

// DefaultListenAddress is where "pbapctl serve" listens by default.
const DefaultListenAddress = "127.0.0.1:7700"

const disconnectTimeout = 3 * time.Second

func newPrinter(cmd *cobra.Command, env *environment, opts ...surface.PrinterOption) *surface.Printer {
	return surface.NewPrinter(cmd.OutOrStdout(), append(opts, surface.WithJSON(env.json))...)
}

func newConsoleCmd(env *environment) *cobra.Command {
	return &cobra.Command{
		Use:   "console",
		Short: "Drive a session interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd.Context(), env, newPrinter(cmd, env))
			if err != nil {
				return err
			}

			console := surface.NewConsole(s.dispatcher, surface.Defaults{
				Address:    env.address,
				Number:     env.cfg.LookupNumber,
				Path:       env.cfg.PullPath,
				Authorizer: bluetooth.StaticAuthorizer{Password: env.cfg.Password},
			}, cmd.InOrStdin(), cmd.OutOrStdout(), env.logger)

			err = console.Run(cmd.Context())
			hangUp(s.dispatcher)

			if cerr := s.close(); err == nil {
				err = cerr
			}

			return err
		},
	}
}

// hangUp disconnects a session left open, and waits a little for the
// remote to confirm.
func hangUp(d *pbap.Dispatcher) {
	if !d.Info().State.Connected() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
	defer cancel()

	if err := d.Submit(ctx, pbap.Disconnect{}); err != nil {
		return
	}

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for d.Info().State != pbap.StateDisconnected {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func newPullCmd(env *environment) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "pull [path]",
		Short: "Pull a phonebook object",
		Long:  "Connect, pull one phonebook object (default " + config.DefaultPullPath + ") and disconnect.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := argOr(args, env.cfg.PullPath)

			var opts []surface.PrinterOption
			if output != "" && output != "-" {
				opts = append(opts, surface.WithObjectSink(func(_ string, object []byte) error {
					if err := os.WriteFile(output, object, 0o644); err != nil {
						return fault.Wrap(err,
							fctx.With(fctx.WithMeta(context.Background(), "output", output)),
							ftag.With(ftag.Internal),
							fmsg.With("Cannot save the phonebook object"),
						)
					}

					env.logger.Info().Str("output", output).Str("size", humanize.Bytes(uint64(len(object)))).Msg("Phonebook object saved")

					return nil
				}))
			}

			return runOperation(cmd.Context(), env, newPrinter(cmd, env, opts...), pbap.Pull{Path: path})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the object to this file instead of printing it")

	return cmd
}

func newSizeCmd(env *environment) *cobra.Command {
	return &cobra.Command{
		Use:   "size [path]",
		Short: "Query the number of entries of a phonebook object",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(cmd.Context(), env, newPrinter(cmd, env), pbap.GetSize{Path: argOr(args, env.cfg.PullPath)})
		},
	}
}

func newLookupCmd(env *environment) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup [number]",
		Short: "Search the phonebook for a phone number",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(cmd.Context(), env, newPrinter(cmd, env), pbap.Lookup{Number: argOr(args, env.cfg.LookupNumber)})
		},
	}
}

func newServeCmd(env *environment) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the phonebook server simulator",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			server, err := platform.SimServer(env.cfg, env.logger)
			if err != nil {
				return err
			}

			ln, err := net.Listen("tcp", listen)
			if err != nil {
				return fault.Wrap(err,
					fctx.With(fctx.WithMeta(context.Background(), "listen", listen)),
					ftag.With(ftag.Internal),
					fmsg.With("Cannot listen for simulator connections"),
				)
			}

			env.logger.Info().
				Str("listen", ln.Addr().String()).
				Bool("authentication", env.cfg.SimPassword != "").
				Msg("Simulator listening")

			return server.Serve(cmd.Context(), ln)
		},
	}
	cmd.Flags().StringVarP(&listen, "listen", "l", DefaultListenAddress, "address to listen on")

	return cmd
}

type versionView struct {
	Version string `json:"version"`
	OS      string `json:"os"`
	Stack   string `json:"bluetooth_stack"`
}

func newVersionCmd(env *environment) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version and the selected stack",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stack := platform.SimulatorStack
			if env.cfg.Transport == config.TransportBluez {
				stack = platform.BluezStack
			}
			info := platform.NewPlatformInfo(stack)

			if env.json {
				return serde.EncodeJsonLine(cmd.OutOrStdout(), versionView{
					Version: Version,
					OS:      info.OS,
					Stack:   info.Stack.String(),
				})
			}

			_, err := fmt.Fprintf(cmd.OutOrStdout(), "pbapctl %s\nOS:    %s\nStack: %s\n", Version, info.OS, info.Stack)

			return err
		},
	}
}

func argOr(args []string, def string) string {
	if len(args) > 0 {
		return args[0]
	}

	return def
}
