package main

import (
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/spf13/cobra"

	"videotrack/internal/cache"
	"videotrack/internal/events"
	"videotrack/internal/player"
)

func newSimulateCommand(ctx *commandContext) *cobra.Command {
	var transcriptFile string
	var language string
	var duration float64
	var step float64
	var sendEnded bool

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Play a video headlessly, printing caption changes and completion",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if step <= 0 {
				return fmt.Errorf("--step must be positive")
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			log := ctx.logger(cmd)

			var p *player.Player
			transcripts := cache.New(log, func() map[string]struct{} {
				return player.ActiveLanguages(p)
			})
			p = player.New(*cfg, log, player.WithCache(transcripts))
			defer p.Destroy()
			transcripts.Start()
			defer transcripts.Stop()
			if duration > 0 {
				p.SetDuration(duration)
			}

			switch {
			case transcriptFile != "":
				track, err := readTrack(transcriptFile, log)
				if err != nil {
					return err
				}
				lang := language
				if lang == "" {
					lang = cfg.Language
				}
				transcripts.Set(lang, track)
				if err := p.Captions.Load(cmd.Context(), lang); err != nil {
					return err
				}
			case cfg.TranscriptTranslationURL != "":
				if err := p.Captions.Load(cmd.Context(), language); err != nil {
					log.Warnf("Captions unavailable: %v", err)
				}
			}

			end := p.Duration()
			if clipEnd, ok := cfg.ClipEnd(); ok {
				end = clipEnd
			}
			if end <= 0 {
				return fmt.Errorf("media duration unknown; set it in the config or pass --duration")
			}

			out := &syncWriter{w: cmd.OutOrStdout()}
			p.Events().Subscribe(events.CaptionChanged, func(e events.Event) {
				out.printf("[%s] %s\n", formatMillis(e.Time*1000), e.Text)
			})
			p.Events().Subscribe(events.Complete, func(e events.Event) {
				out.printf("[%s] video marked complete\n", formatMillis(e.Time*1000))
			})

			// Ticks are counted rather than accumulated so the last one lands on end.
			ticks := int(math.Floor((end-cfg.StartTime)/step + 1e-9))
			for i := 0; i <= ticks; i++ {
				if err := cmd.Context().Err(); err != nil {
					return err
				}
				p.UpdateTime(min(cfg.StartTime+float64(i)*step, end))
			}
			if sendEnded {
				p.End()
			}
			p.Completion.Wait()

			out.printf("completion: %s\n", p.Completion.State())
			return nil
		},
	}

	cmd.Flags().StringVar(&transcriptFile, "transcript", "", "Read the transcript from a local JSON file instead of the configured URL")
	cmd.Flags().StringVar(&language, "language", "", "Transcript language (default: from config)")
	cmd.Flags().Float64Var(&duration, "duration", 0, "Media duration in seconds")
	cmd.Flags().Float64Var(&step, "step", 1, "Seconds between time updates")
	cmd.Flags().BoolVar(&sendEnded, "ended", false, "Send an ended event after the last time update")
	return cmd
}

// syncWriter serialises writes from event handlers and the report goroutine.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) printf(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, format, args...)
}
