// README: replay subcommand; runs a recorded JSON track through a Recorder offline.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"trailtrack/internal/geo"
	"trailtrack/internal/infra"
	"trailtrack/internal/modules/notify"
	"trailtrack/internal/modules/tracking"
)

type replayFix struct {
	Latitude   float64    `json:"latitude"`
	Longitude  float64    `json:"longitude"`
	Heading    *float64   `json:"heading,omitempty"`
	RecordedAt *time.Time `json:"recorded_at,omitempty"`
}

// replayClock reports the timestamp of the fix the replay has reached.
type replayClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *replayClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *replayClock) set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func newReplayCmd() *cobra.Command {
	var (
		mode    string
		name    string
		timeout time.Duration
		noSnap  bool
	)
	cmd := &cobra.Command{
		Use:   "replay <track.json>",
		Short: "Replay a recorded track through the recorder and print the finished route",
		Long: "Replay a recorded track through the recorder and print the finished route.\n" +
			"Fixes inside tracking.min_interval_ms or tracking.min_distance_m of the last kept fix are skipped, as when serving.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := infra.NewLogger(cfg.Log.Level, "console")
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			m, err := tracking.ParseMode(mode)
			if err != nil {
				return err
			}
			fixes, err := readFixes(args[0])
			if err != nil {
				return err
			}
			samples := make([]tracking.Sample, 0, len(fixes))
			for _, f := range fixes {
				smp := tracking.Sample{Position: geo.Coordinate{Latitude: f.Latitude, Longitude: f.Longitude}, Heading: f.Heading}
				if f.RecordedAt != nil {
					smp.RecordedAt = *f.RecordedAt
				}
				samples = append(samples, smp)
			}

			var snapper tracking.Snapper
			if !noSnap {
				if snapper, err = newSnapper(cfg, log); err != nil {
					return err
				}
			}

			clock := &replayClock{now: time.Now()}
			if len(samples) > 0 && !samples[0].RecordedAt.IsZero() {
				clock.set(samples[0].RecordedAt)
			}
			src := tracking.NewReplaySource(samples)
			rec := tracking.NewRecorder("replay", tracking.RecorderDeps{
				Source:   src,
				Snapper:  snapper,
				Notifier: notify.NewLogNotifier(log),
				Logger:   log,
				Now:      clock.Now,
			}, recorderOptions(cfg))
			defer rec.Close()

			ctx := cmd.Context()
			if err := rec.Start(ctx, m, nil); err != nil {
				return err
			}
			select {
			case <-src.Drained():
			case <-time.After(timeout):
				return fmt.Errorf("replay did not finish within %s", timeout)
			case <-ctx.Done():
				return ctx.Err()
			}
			if last := samples[len(samples)-1].RecordedAt; !last.IsZero() {
				clock.set(last)
			} else {
				clock.set(time.Now())
			}

			res, err := rec.Stop(ctx, name)
			if err != nil {
				return err
			}
			log.Info("replay finished", zap.Int("points", len(res.Route.Path)), zap.Bool("snapped", res.Snapped))
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "new", "recording mode (new, custom, public)")
	cmd.Flags().StringVar(&name, "name", "", "route name (defaults to the start time)")
	cmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "maximum time to wait for the replay")
	cmd.Flags().BoolVar(&noSnap, "no-snap", false, "skip path snapping")
	return cmd
}

func readFixes(path string) ([]replayFix, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var fixes []replayFix
	if err := json.Unmarshal(data, &fixes); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if len(fixes) == 0 {
		return nil, fmt.Errorf("%s contains no fixes", path)
	}
	return fixes, nil
}
