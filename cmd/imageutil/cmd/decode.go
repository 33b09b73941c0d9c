package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Skryldev/image-util/core"
)

var (
	decodeOut        string
	decodeColorspace string
	decodeDownscale  int
)

var decodeCmd = &cobra.Command{
	Use:   "decode <image>",
	Short: "Decode a JPEG, PNG, GIF or BMP file to a raw buffer",
	Long: `Decodes the first frame of an image into a headerless raw buffer.
The format is detected from the file header.  --downscale 2, 4 or 8
reduces JPEG images while decoding.`,
	Args: cobra.ExactArgs(1),
	RunE: runDecode,
}

func init() {
	decodeCmd.Flags().StringVarP(&decodeOut, "out", "o", "", "raw output file (default: <image>.raw)")
	decodeCmd.Flags().StringVarP(&decodeColorspace, "colorspace", "c", "RGBA8888", "output colorspace")
	decodeCmd.Flags().IntVarP(&decodeDownscale, "downscale", "d", 1, "JPEG decode-time reduction: 1, 2, 4 or 8")
	rootCmd.AddCommand(decodeCmd)
}

func runDecode(cmd *cobra.Command, args []string) error {
	in := args[0]
	out := decodeOut
	if out == "" {
		out = in + ".raw"
	}
	cs, err := core.ParseColorspace(decodeColorspace)
	if err != nil {
		return err
	}

	proc, err := newProcessor()
	if err != nil {
		return err
	}
	ctx := commandContext(cmd)
	start := time.Now()

	d := proc.NewDecodeSession()
	defer d.Close()
	if err := d.SetInputPath(ctx, in); err != nil {
		return err
	}
	if err := d.SetColorspace(cs); err != nil {
		return err
	}
	if err := d.SetDownscale(core.Downscale(decodeDownscale)); err != nil {
		return err
	}
	format, _ := d.Format()
	logVerbose("input:  %s (%s)", in, format)

	img, err := d.Run(ctx)
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, img.Data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	logVerbose("output: %s", out)
	fmt.Printf("%s: %dx%d %s, %s in %s\n",
		out, img.Width, img.Height, img.Colorspace, formatBytes(int64(len(img.Data))), time.Since(start).Round(time.Millisecond))
	return nil
}
