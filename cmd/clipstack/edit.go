package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/clipstack/internal/editor"
	"go.klb.dev/clipstack/internal/message"
	"go.klb.dev/clipstack/internal/richtext"
)

func newEditCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Edit a history entry in $EDITOR",
		Long: `Opens the entry in $VISUAL or $EDITOR: rich text as an HTML document,
plain text as plain text. Saving a changed document replaces the entry's
content, moves it to the top of the history and puts it on the clipboard.
Leaving the file unchanged or empty cancels the edit.

Images open as an HTML document embedding the picture; a confirmed edit
turns the entry into text.`,
		Args:    cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, args []string) error { return runEdit(cmd, v, args[0]) },
	}

	cmd.Flags().String("editor", "", "editor command (default: $VISUAL, then $EDITOR)")
	addClientFlags(cmd)

	return cmd
}

func runEdit(cmd *cobra.Command, v *viper.Viper, arg string) error {
	setupLogging(v)

	id, err := parseID(arg)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	resp, err := request(ctx, v, &message.Request{Type: message.TypeGet, ID: id})
	if err != nil {
		return fmt.Errorf("edit %d: %w", id, err)
	}
	if resp.Entry == nil {
		return fmt.Errorf("edit %d: empty response", id)
	}

	entry := resp.Entry.History()
	doc, err := richtext.Document(entry)
	if err != nil {
		return fmt.Errorf("edit %d: %w", id, err)
	}

	ed := editor.FromEnv()
	if !richtext.DocumentIsHTML(entry) {
		ed.Ext = ".txt"
	}
	if c := v.GetString("editor"); c != "" {
		ed.Command = c
	}
	edited, ok, err := ed.Edit(ctx, doc)
	if err != nil {
		return fmt.Errorf("edit %d: %w", id, err)
	}
	if !ok {
		fmt.Fprintln(cmd.OutOrStdout(), "Edit cancelled")
		return nil
	}

	resp, err = request(ctx, v, &message.Request{Type: message.TypeEdit, ID: id, Content: edited})
	if err != nil {
		return fmt.Errorf("edit %d: %w", id, err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
	return nil
}
