package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/clipstack/internal/history"
	"go.klb.dev/clipstack/internal/message"
	"go.klb.dev/clipstack/internal/preview"
)

func newListCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List clipboard history, most recent first",
		Long: `Prints one line per history entry: id, capture time, age and a short
preview. The entry marked with * is the most recent one.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runList(cmd, v) },
	}

	cmd.Flags().Bool("json", false, "output raw JSON")
	addClientFlags(cmd)

	return cmd
}

func runList(cmd *cobra.Command, v *viper.Viper) error {
	setupLogging(v)

	resp, err := request(cmd.Context(), v, &message.Request{Type: message.TypeList})
	if err != nil {
		return fmt.Errorf("list: %w", err)
	}

	out := cmd.OutOrStdout()
	if v.GetBool("json") {
		enc, _ := json.MarshalIndent(resp.Entries, "", "  ")
		fmt.Fprintln(out, string(enc))
		return nil
	}
	printList(out, resp.Entries, time.Now())
	return nil
}

func printList(out io.Writer, entries []message.Entry, now time.Time) {
	if len(entries) == 0 {
		fmt.Fprintln(out, "History is empty.")
		return
	}

	idColor := color.New(color.FgYellow, color.Bold)
	ageColor := color.New(color.Faint)
	imgColor := color.New(color.FgCyan)

	tw := tabwriter.NewWriter(out, 1, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "\tID\tTIME\tAGE\tPREVIEW\n")
	for i, e := range entries {
		marker := ""
		if i == 0 {
			marker = "*"
		}
		text := e.Preview
		if e.Type == string(history.Image) {
			text = imgColor.Sprint(text)
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			marker,
			idColor.Sprint(e.ID),
			e.Timestamp.Local().Format(time.TimeOnly),
			ageColor.Sprint(preview.Age(e.Timestamp, now)),
			text,
		)
	}
	_ = tw.Flush()
}
