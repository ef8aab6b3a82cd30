// Echowise is a voice-command shell: it classifies short utterances,
// runs the matching device capability and replies with a localized message.
//
// Usage:
//
//	echowise serve --config /path/to/echowise.yaml
//	echowise say turn on the flashlight
//	echowise shell
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "echowise",
		Short:         "Voice-command shell",
		SilenceUsage:  true,
		SilenceErrors: true,
		Long: `Echowise maps short spoken commands ("what time is it",
"turn on the flashlight") to device capabilities and answers with a
localized message.

Utterances arrive over HTTP, gRPC or MQTT (serve), from the command line
(say) or from an interactive prompt (shell).`,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (e.g. configs/echowise.yaml)")

	cmd.AddCommand(
		serveCmd(&configPath),
		sayCmd(&configPath),
		shellCmd(&configPath),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "echowise %s\n", version)
			},
		},
	)
	return cmd
}
