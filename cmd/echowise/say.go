package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nadzzz/echowise/internal/message"
)

type outputOptions struct {
	locale string
	json   bool
}

func (o *outputOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.locale, "locale", "l", "", "response locale (BCP 47), defaults to locale.default")
	cmd.Flags().BoolVar(&o.json, "json", false, "print the full response as JSON")
}

func sayCmd(configPath *string) *cobra.Command {
	var opts outputOptions
	cmd := &cobra.Command{
		Use:   "say <utterance...>",
		Short: "Dispatch one utterance and print the response",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.say(cmd.Context(), cmd.OutOrStdout(), strings.Join(args, " "), opts)
		},
	}
	opts.register(cmd)
	return cmd
}

// say dispatches utterance and writes the response to w.
func (a *app) say(ctx context.Context, w io.Writer, utterance string, opts outputOptions) error {
	resp, err := a.service.Handle(ctx, &message.Request{
		Source:    "cli",
		Utterance: utterance,
		Locale:    opts.locale,
	})
	if err != nil {
		return err
	}
	return writeResponse(w, resp, opts.json)
}

func writeResponse(w io.Writer, resp *message.Response, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	if _, err := fmt.Fprintln(w, resp.Text); err != nil {
		return err
	}
	if resp.Permission != "" {
		_, err := fmt.Fprintf(w, "(requires permission: %s)\n", resp.Permission)
		return err
	}
	return nil
}
