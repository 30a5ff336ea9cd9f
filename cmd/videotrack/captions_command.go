package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"videotrack/internal/logger"
	"videotrack/internal/transcript"
)

func newCaptionsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "captions",
		Short: "Inspect transcript files",
	}
	cmd.AddCommand(newCaptionsShowCommand(ctx))
	cmd.AddCommand(newCaptionsSearchCommand(ctx))
	return cmd
}

func newCaptionsShowCommand(ctx *commandContext) *cobra.Command {
	var start float64
	var end float64

	cmd := &cobra.Command{
		Use:   "show <transcript.json>",
		Short: "List the captions starting between --start and --end (seconds)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			track, err := readTrack(args[0], ctx.logger(cmd))
			if err != nil {
				return err
			}

			set := track.FilterFrom(start * 1000)
			if cmd.Flags().Changed("end") {
				set = track.Filter(start*1000, end*1000)
			}

			rows := make([][]string, 0, set.Len())
			for i := 0; i < set.Len(); i++ {
				c, _ := set.At(i)
				rows = append(rows, []string{strconv.Itoa(c.Index), formatMillis(c.Start), c.Text})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"#", "Start", "Caption"},
				rows,
				[]columnAlignment{alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().Float64Var(&start, "start", 0, "Clip start in seconds")
	cmd.Flags().Float64Var(&end, "end", 0, "Clip end in seconds (default: last caption)")
	return cmd
}

func newCaptionsSearchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "search <transcript.json> <seconds>",
		Short: "Print the caption active at a playback time",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			at, err := strconv.ParseFloat(strings.TrimSpace(args[1]), 64)
			if err != nil {
				return fmt.Errorf("invalid time %q: %w", args[1], err)
			}
			track, err := readTrack(args[0], ctx.logger(cmd))
			if err != nil {
				return err
			}
			if track.Size() == 0 {
				return fmt.Errorf("transcript %s has no captions", args[0])
			}

			c, _ := track.Caption(track.Search(at * 1000))
			fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\n", c.Index, formatMillis(c.Start), c.Text)
			return nil
		},
	}
}

func readTrack(path string, log logger.Logger) (*transcript.Track, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read transcript: %w", err)
	}
	return transcript.ParseTrack(log, data)
}

// formatMillis renders milliseconds as H:MM:SS.mmm.
func formatMillis(ms float64) string {
	total := int64(ms)
	if total < 0 {
		total = 0
	}
	millis := total % 1000
	total /= 1000
	return fmt.Sprintf("%d:%02d:%02d.%03d", total/3600, (total%3600)/60, total%60, millis)
}
