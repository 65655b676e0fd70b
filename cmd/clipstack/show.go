package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/clipstack/internal/history"
	"go.klb.dev/clipstack/internal/message"
	"go.klb.dev/clipstack/internal/richtext"
)

func newShowCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "show ID",
		Short: "Print a history entry to stdout",
		Long: `Writes the stored content of an entry to stdout. Rich text is printed as
stored HTML unless --plain or --markdown is given; plain text is always
printed verbatim; images are written as PNG bytes.`,
		Args:    cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, args []string) error { return runShow(cmd, v, args[0]) },
	}

	cmd.Flags().Bool("plain", false, "render rich text as plain text")
	cmd.Flags().Bool("markdown", false, "render rich text as Markdown")
	addClientFlags(cmd)

	return cmd
}

func runShow(cmd *cobra.Command, v *viper.Viper, arg string) error {
	setupLogging(v)

	id, err := parseID(arg)
	if err != nil {
		return err
	}
	resp, err := request(cmd.Context(), v, &message.Request{Type: message.TypeGet, ID: id})
	if err != nil {
		return fmt.Errorf("show %d: %w", id, err)
	}
	if resp.Entry == nil {
		return fmt.Errorf("show %d: empty response", id)
	}

	out := cmd.OutOrStdout()
	e := resp.Entry.History()
	if e.Type == history.Text && e.Rich {
		switch {
		case v.GetBool("markdown"):
			md, err := richtext.ToMarkdown(string(e.Content))
			if err != nil {
				return fmt.Errorf("show %d: %w", id, err)
			}
			_, err = fmt.Fprintln(out, md)
			return err
		case v.GetBool("plain"):
			_, err = fmt.Fprintln(out, richtext.Plain(e))
			return err
		}
	}
	_, err = out.Write(e.Content)
	return err
}
