package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Skryldev/image-util/core"
)

var (
	transformOut        string
	transformWidth      int
	transformHeight     int
	transformColorspace string
	transformTo         string
	transformResize     []int
	transformCrop       []int
	transformRotate     string
)

var transformCmd = &cobra.Command{
	Use:   "transform <raw> -o <raw>",
	Short: "Resize or crop, convert and rotate a raw buffer",
	Long: `Applies crop or resize, then colorspace conversion, then rotation.
--resize and --crop cannot be combined.

  --resize W,H          scale to W x H
  --crop X0,Y0,X1,Y1    keep [X0,X1) x [Y0,Y1)`,
	Args: cobra.ExactArgs(1),
	RunE: runTransform,
}

func init() {
	transformCmd.Flags().StringVarP(&transformOut, "out", "o", "", "raw output file")
	transformCmd.Flags().IntVar(&transformWidth, "width", 0, "source width")
	transformCmd.Flags().IntVar(&transformHeight, "height", 0, "source height")
	transformCmd.Flags().StringVarP(&transformColorspace, "colorspace", "c", "RGBA8888", "source colorspace")
	transformCmd.Flags().StringVar(&transformTo, "to", "", "target colorspace")
	transformCmd.Flags().IntSliceVar(&transformResize, "resize", nil, "target W,H")
	transformCmd.Flags().IntSliceVar(&transformCrop, "crop", nil, "crop area X0,Y0,X1,Y1")
	transformCmd.Flags().StringVarP(&transformRotate, "rotate", "r", "", "none, 90, 180, 270, flip-horizontal or flip-vertical")
	_ = transformCmd.MarkFlagRequired("out")
	_ = transformCmd.MarkFlagRequired("width")
	_ = transformCmd.MarkFlagRequired("height")
	transformCmd.MarkFlagsMutuallyExclusive("resize", "crop")
	rootCmd.AddCommand(transformCmd)
}

func runTransform(cmd *cobra.Command, args []string) error {
	cs, err := core.ParseColorspace(transformColorspace)
	if err != nil {
		return err
	}
	src, err := readRaw(args[0], transformWidth, transformHeight, cs)
	if err != nil {
		return err
	}

	proc, err := newProcessor()
	if err != nil {
		return err
	}
	t := proc.NewTransformation()
	if transformTo != "" {
		to, err := core.ParseColorspace(transformTo)
		if err != nil {
			return err
		}
		if err := t.SetColorspace(to); err != nil {
			return err
		}
	}
	if transformResize != nil {
		if len(transformResize) != 2 {
			return fmt.Errorf("--resize takes W,H")
		}
		if err := t.SetResolution(transformResize[0], transformResize[1]); err != nil {
			return err
		}
	}
	if transformCrop != nil {
		if len(transformCrop) != 4 {
			return fmt.Errorf("--crop takes X0,Y0,X1,Y1")
		}
		c := transformCrop
		if err := t.SetCropArea(c[0], c[1], c[2], c[3]); err != nil {
			return err
		}
	}
	if transformRotate != "" {
		r, err := parseRotation(transformRotate)
		if err != nil {
			return err
		}
		if err := t.SetRotation(r); err != nil {
			return err
		}
	}

	out, err := t.Run(commandContext(cmd), src)
	if err != nil {
		return err
	}
	if err := os.WriteFile(transformOut, out.Data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", transformOut, err)
	}
	for step, ms := range proc.Metrics().StepDurationsMs {
		logVerbose("step %-8s %d ms", step, ms)
	}
	fmt.Printf("%s: %dx%d %s, %s\n", transformOut, out.Width, out.Height, out.Colorspace, formatBytes(int64(len(out.Data))))
	return nil
}
