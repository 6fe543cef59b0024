package views

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"faceconsole/internal/app"
	"faceconsole/internal/live"
)

// newMonitorCmd runs the live-monitoring view: camera capture streaming
// frames to the backend, with recognition events printed as they arrive.
func newMonitorCmd(a *app.App) *cobra.Command {
	var (
		cameraID string
		approach string
		list     bool
	)

	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Stream the camera to the backend and follow recognition events",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireAuth(cmd.Context(), a); err != nil {
				return err
			}
			if approach != string(live.ApproachMatching) && approach != string(live.ApproachML) {
				return fmt.Errorf("unknown detection approach %q: use matching or ml", approach)
			}

			ctrl := live.NewController(a.API, live.Config{
				FrameInterval:  a.Config.FrameInterval,
				ReconnectDelay: a.Config.ReconnectDelay,
				CaptureWidth:   a.Config.CaptureWidth,
				CaptureHeight:  a.Config.CaptureHeight,
				JPEGQuality:    a.Config.JPEGQuality,
			}, a.Logger)

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			// Bind before spawning the service loop, so StartCapture below
			// never races the goroutine for the controller's context.
			g, gctx := errgroup.WithContext(ctx)
			g.Go(ctrl.Start(gctx))

			devices := ctrl.EnumerateCameras()
			if list {
				for _, d := range devices {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", d.ID, orDash(d.Label))
				}
				cancel()
				_ = g.Wait()
				return nil
			}
			if len(devices) == 0 {
				cancel()
				_ = g.Wait()
				return fmt.Errorf("no cameras found")
			}
			if cameraID != "" {
				if err := ctrl.SelectCamera(cameraID); err != nil {
					cancel()
					_ = g.Wait()
					return err
				}
			}
			ctrl.SetApproach(live.Approach(approach))

			if err := ctrl.StartCapture(); err != nil {
				cancel()
				_ = g.Wait()
				return fmt.Errorf("camera error: %w (check permissions and that the device is free)", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "LIVE on %s (%s), Ctrl-C to stop\n",
				ctrl.SelectedCamera(), approach)
			g.Go(func() error {
				return printEvents(gctx, cmd, ctrl)
			})

			err := g.Wait()
			if ctx.Err() != nil || cmd.Context().Err() != nil {
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&cameraID, "camera", "c", "", "camera device id (default: first found)")
	cmd.Flags().StringVarP(&approach, "approach", "m", string(live.ApproachMatching), "detection approach: matching or ml")
	cmd.Flags().BoolVarP(&list, "list", "l", false, "list cameras and exit")
	return cmd
}

// printEvents tails the controller's event list, printing anything new on
// each tick. The list itself is already deduplicated and newest-first.
func printEvents(ctx context.Context, cmd *cobra.Command, ctrl *live.Controller) error {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	printed := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			events := ctrl.Events()
			if len(events) <= printed {
				continue
			}
			// New events are at the head; print oldest-new first.
			for i := len(events) - printed - 1; i >= 0; i-- {
				ev := events[i]
				fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s (%s)\n",
					orDash(ev.Time), ev.Headline(), orDash(ev.Location))
			}
			printed = len(events)
		}
	}
}
