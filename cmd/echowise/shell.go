package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nadzzz/echowise/internal/capability"
)

const prompt = "> "

// maxLineBytes bounds one shell line. Longer lines are skipped and reported.
const maxLineBytes = 1 << 20

func shellCmd(configPath *string) *cobra.Command {
	var opts outputOptions
	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Read utterances from stdin, one per line",
		Long: `Read utterances from stdin and print a response for each line.

Lines starting with "/" are shell commands:

  /grant <permission>    grant a permission to the simulated device
  /revoke <permission>   revoke it again
  /state                 print the simulated device state
  /quit                  leave the shell`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.shell(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), opts)
		},
	}
	opts.register(cmd)
	return cmd
}

// shell runs the read-dispatch-print loop until EOF, /quit or ctx is done.
func (a *app) shell(ctx context.Context, in io.Reader, out io.Writer, opts outputOptions) error {
	r := bufio.NewReader(in)
	for {
		fmt.Fprint(out, prompt)
		raw, tooLong, err := readLine(r, maxLineBytes)
		if err == io.EOF {
			fmt.Fprintln(out)
			return nil
		}
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
		if tooLong {
			fmt.Fprintf(out, "error: line longer than %d bytes skipped\n", maxLineBytes)
			continue
		}

		line := strings.TrimSpace(raw)
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "/"):
			quit, err := a.command(out, line)
			if err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
			}
			if quit {
				return nil
			}
		default:
			if err := a.say(ctx, out, line, opts); err != nil {
				return err
			}
		}
	}
}

// readLine reads one line without its terminator. A line over limit bytes
// is consumed in full and reported with tooLong set and an empty result.
func readLine(r *bufio.Reader, limit int) (line string, tooLong bool, err error) {
	var buf []byte
	for {
		chunk, isPrefix, err := r.ReadLine()
		if err != nil {
			if err == io.EOF && (len(buf) > 0 || tooLong) {
				return string(buf), tooLong, nil
			}
			return "", false, err
		}
		if !tooLong {
			if len(buf)+len(chunk) > limit {
				tooLong, buf = true, nil
			} else {
				buf = append(buf, chunk...)
			}
		}
		if !isPrefix {
			return string(buf), tooLong, nil
		}
	}
}

// command runs one shell command and reports whether the shell should exit.
func (a *app) command(out io.Writer, line string) (bool, error) {
	fields := strings.Fields(line)
	name, args := fields[0], fields[1:]

	switch name {
	case "/quit", "/exit":
		return true, nil
	case "/grant", "/revoke":
		if a.device == nil {
			return false, fmt.Errorf("%s is only available with the sim backend", name)
		}
		if len(args) != 1 {
			return false, fmt.Errorf("usage: %s <permission>", name)
		}
		perm := capability.Permission(args[0])
		if name == "/grant" {
			a.device.Grant(perm)
		} else {
			a.device.Revoke(perm)
		}
		fmt.Fprintf(out, "%s: %s\n", strings.TrimPrefix(name, "/"), perm)
		return false, nil
	case "/state":
		if a.device == nil {
			return false, fmt.Errorf("/state is only available with the sim backend")
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return false, enc.Encode(a.device.State())
	default:
		return false, fmt.Errorf("unknown command %q", name)
	}
}
