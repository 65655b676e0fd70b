package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/clipstack/internal/message"
)

// newEntryCmd builds the one-shot commands that act on a single entry id
// and print the daemon's status message.
func newEntryCmd(use, short, long string, typ message.Type) *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:     use + " ID",
		Short:   short,
		Long:    long,
		Args:    cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(v)
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			resp, err := request(cmd.Context(), v, &message.Request{Type: typ, ID: id})
			if err != nil {
				return fmt.Errorf("%s %d: %w", use, id, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
			return nil
		},
	}
	addClientFlags(cmd)
	return cmd
}

func newCopyCmd() *cobra.Command {
	return newEntryCmd("copy", "Put a history entry back on the clipboard",
		`Writes the entry to the system clipboard. The history order is not
changed and no duplicate entry is recorded.`,
		message.TypeCopy)
}

func newDeleteCmd() *cobra.Command {
	cmd := newEntryCmd("delete", "Remove an entry from history",
		`Removes the entry. The system clipboard is left untouched.`,
		message.TypeDelete)
	cmd.Aliases = []string{"rm"}
	return cmd
}

func newClearCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:     "clear",
		Short:   "Remove every entry from history",
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE: func(cmd *cobra.Command, _ []string) error {
			setupLogging(v)
			resp, err := request(cmd.Context(), v, &message.Request{Type: message.TypeClear})
			if err != nil {
				return fmt.Errorf("clear: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
			return nil
		},
	}
	addClientFlags(cmd)
	return cmd
}
