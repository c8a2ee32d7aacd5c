package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tendant/stopmotion-pipeline/internal/normalize"
	"github.com/tendant/stopmotion-pipeline/pkg/pipeline"
)

func newInspectCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <image>...",
		Short: "Show how each image will be placed on the video canvas",
		Args:  cobra.MinimumNArgs(1),
		Annotations: map[string]string{
			"skipConfigLoad": "true",
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			images, err := readImages(args)
			if err != nil {
				return err
			}

			// The first image fixes the canvas for the whole sequence.
			var target normalize.Dimensions
			var targetErr error
			if pipeline.IsAcceptedImageType(images[0].MimeType) {
				target, targetErr = normalize.TargetFor(images[0].Data)
			} else {
				targetErr = fmt.Errorf("first image %s is not a JPEG or PNG", images[0].Filename)
			}

			rows := make([][]string, 0, len(images))
			for i, img := range images {
				rows = append(rows, inspectRow(i, img, target, targetErr == nil))
			}

			out := cmd.OutOrStdout()
			if targetErr != nil {
				fmt.Fprintf(out, "Canvas: unavailable (%v)\n", targetErr)
			} else {
				fmt.Fprintf(out, "Canvas: %s\n", target)
			}
			fmt.Fprintln(out, renderTable(
				[]string{"#", "File", "Type", "Size", "Natural", "Placed"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}
	return cmd
}

func inspectRow(i int, img pipeline.Image, target normalize.Dimensions, haveTarget bool) []string {
	row := []string{
		strconv.Itoa(i + 1),
		img.Filename,
		img.MimeType,
		formatBytes(len(img.Data)),
	}
	if !pipeline.IsAcceptedImageType(img.MimeType) {
		return append(row, "-", "unsupported type")
	}
	natural, _, err := normalize.Inspect(img.Data)
	if err != nil {
		return append(row, "-", "undecodable")
	}
	if !haveTarget {
		return append(row, natural.String(), "-")
	}
	p := normalize.Fit(natural, target)
	return append(row, natural.String(), fmt.Sprintf("%s at %d,%d", p.Size, p.OffsetX, p.OffsetY))
}

func formatBytes(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
