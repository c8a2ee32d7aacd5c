package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tendant/stopmotion-pipeline/internal/logging"
)

func newEncodeCommand(ctx *commandContext) *cobra.Command {
	var rateText string
	var output string

	cmd := &cobra.Command{
		Use:   "encode <image>...",
		Short: "Encode images into an MP4 in argument order",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := ctx.logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			images, err := readImages(args)
			if err != nil {
				return err
			}

			r, err := newRunner(ctx.runnerConfig(logger))
			if err != nil {
				return fmt.Errorf("create session: %w", err)
			}
			defer r.Close()

			if err := r.LoadEncoder(signalCtx); err != nil {
				return fmt.Errorf("load encoder: %w", err)
			}
			if _, err := r.Upload(images); err != nil {
				return fmt.Errorf("add images: %w", err)
			}
			if _, err := r.Next(); err != nil {
				return err
			}
			if rateText != "" {
				state, err := r.SetFrameRateText(rateText)
				if err != nil {
					return err
				}
				if !state.Valid {
					return fmt.Errorf("invalid frame rate %q: must be a positive whole number", rateText)
				}
			}

			job, err := r.EncodeSync(signalCtx)
			if err != nil {
				return err
			}
			blob, ok := r.Artifact()
			if !ok {
				return fmt.Errorf("encode finished without an artifact")
			}

			dest := output
			if dest == "" {
				dest = filepath.Join(cfg.Session.OutputDir, blob.Name)
			}
			if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}
			if err := os.WriteFile(dest, blob.Data, 0o644); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			logger.Info("video written",
				logging.String("path", dest),
				logging.Int("frames", len(job.Identities)),
			)

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d frames, %s @ %d fps, %.2f MB)\n",
				dest,
				len(job.Identities),
				job.Dimensions,
				job.FrameRate,
				float64(len(blob.Data))/(1024*1024),
			)
			return nil
		},
	}

	cmd.Flags().StringVarP(&rateText, "rate", "r", "", "Frames per second (defaults to the configured rate)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file path (defaults to the configured output directory)")
	return cmd
}
