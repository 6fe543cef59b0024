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

// connectWait bounds how long the upload waits for the notification
// channel, which must be open before a video is submitted.
const connectWait = 10 * time.Second

func newUploadCmd(a *app.App) *cobra.Command {
	var (
		approach string
		follow   bool
	)

	cmd := &cobra.Command{
		Use:   "upload <video-file>",
		Short: "Upload a pre-recorded video for recognition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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
			ctrl.SetMode(live.ModeUpload)
			ctrl.SetApproach(live.Approach(approach))

			if err := ctrl.SelectFile(args[0]); err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			g, gctx := errgroup.WithContext(ctx)
			g.Go(ctrl.Start(gctx))

			if err := waitConnected(gctx, ctrl); err != nil {
				cancel()
				_ = g.Wait()
				return err
			}

			if err := ctrl.UploadVideo(gctx); err != nil {
				cancel()
				_ = g.Wait()
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Upload accepted")

			if follow {
				fmt.Fprintln(cmd.OutOrStdout(), "Following results, Ctrl-C to stop...")
				g.Go(func() error {
					return printEvents(gctx, cmd, ctrl)
				})
				err := g.Wait()
				if ctx.Err() != nil || cmd.Context().Err() != nil {
					return nil
				}
				return err
			}

			cancel()
			_ = g.Wait()
			return nil
		},
	}

	cmd.Flags().StringVarP(&approach, "approach", "m", string(live.ApproachMatching), "detection approach: matching or ml")
	cmd.Flags().BoolVarP(&follow, "follow", "f", true, "keep printing recognition results after the upload")
	return cmd
}

// waitConnected polls until the notification channel opens or the wait
// budget runs out.
func waitConnected(ctx context.Context, ctrl *live.Controller) error {
	deadline := time.After(connectWait)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			return fmt.Errorf("notification channel not connected after %s", connectWait)
		case <-ticker.C:
			if ctrl.Connected() {
				return nil
			}
		}
	}
}
