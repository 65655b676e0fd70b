package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/clipstack/internal/message"
)

func newStatusCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		Long: `Displays the running daemon's version, clipboard backend, history size and
the most recent status message.

The request goes over the local socket unless --server is given.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runStatus(cmd, v) },
	}

	cmd.Flags().Bool("json", false, "output raw JSON")
	addClientFlags(cmd)

	return cmd
}

func runStatus(cmd *cobra.Command, v *viper.Viper) error {
	setupLogging(v)

	c, err := newClient(v)
	if err != nil {
		return err
	}
	resp, err := do(cmd.Context(), c, &message.Request{Type: message.TypeStatus})
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}
	if resp.Status == nil {
		return fmt.Errorf("status: empty response")
	}

	out := cmd.OutOrStdout()
	if v.GetBool("json") {
		enc, _ := json.MarshalIndent(resp.Status, "", "  ")
		fmt.Fprintln(out, string(enc))
		return nil
	}
	printStatus(out, resp.Status, c.Target(), time.Now())
	return nil
}

func printStatus(out io.Writer, st *message.Status, transport string, now time.Time) {
	label := color.New(color.Bold)

	w := tabwriter.NewWriter(out, 1, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\t%s\n", label.Sprint("Version:"), st.Version)
	fmt.Fprintf(w, "%s\t%s\n", label.Sprint("Transport:"), transport)
	fmt.Fprintf(w, "%s\t%s\n", label.Sprint("Backend:"), st.Backend)
	fmt.Fprintf(w, "%s\t%d\n", label.Sprint("Entries:"), st.Entries)
	if !st.StartedAt.IsZero() {
		fmt.Fprintf(w, "%s\t%s (%s)\n", label.Sprint("Started:"),
			st.StartedAt.Local().Format(time.DateTime),
			humanize.RelTime(st.StartedAt, now, "ago", "from now"))
	}
	if st.LastStatus != "" {
		fmt.Fprintf(w, "%s\t%s\n", label.Sprint("Last status:"), st.LastStatus)
	}
	_ = w.Flush()
}
