package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Skryldev/image-util/core"
)

var (
	encodeOut         string
	encodeFormat      string
	encodeWidth       int
	encodeHeight      int
	encodeColorspace  string
	encodeQuality     int
	encodeCompression int
)

var encodeCmd = &cobra.Command{
	Use:   "encode <raw> -o <image>",
	Short: "Encode a raw buffer to JPEG, PNG, GIF or BMP",
	Long: `Encodes a headerless raw buffer.  The target format is taken from
--format, or from the output file extension when --format is omitted.`,
	Args: cobra.ExactArgs(1),
	RunE: runEncode,
}

func init() {
	encodeCmd.Flags().StringVarP(&encodeOut, "out", "o", "", "output image file")
	encodeCmd.Flags().StringVarP(&encodeFormat, "format", "f", "", "jpeg, png, gif or bmp")
	encodeCmd.Flags().IntVar(&encodeWidth, "width", 0, "raw buffer width")
	encodeCmd.Flags().IntVar(&encodeHeight, "height", 0, "raw buffer height")
	encodeCmd.Flags().StringVarP(&encodeColorspace, "colorspace", "c", "RGBA8888", "raw buffer colorspace")
	encodeCmd.Flags().IntVarP(&encodeQuality, "quality", "q", 0, "JPEG quality 1-100 (0 = default)")
	encodeCmd.Flags().IntVar(&encodeCompression, "compression", -1, "PNG compression 0-9 (-1 = default)")
	_ = encodeCmd.MarkFlagRequired("out")
	_ = encodeCmd.MarkFlagRequired("width")
	_ = encodeCmd.MarkFlagRequired("height")
	rootCmd.AddCommand(encodeCmd)
}

func runEncode(cmd *cobra.Command, args []string) error {
	name := encodeFormat
	if name == "" {
		name = filepath.Ext(encodeOut)
	}
	format, err := parseFormat(name)
	if err != nil {
		return err
	}
	cs, err := core.ParseColorspace(encodeColorspace)
	if err != nil {
		return err
	}
	img, err := readRaw(args[0], encodeWidth, encodeHeight, cs)
	if err != nil {
		return err
	}

	proc, err := newProcessor()
	if err != nil {
		return err
	}
	e, err := proc.NewEncodeSession(format)
	if err != nil {
		return err
	}
	defer e.Close()

	if err := e.SetResolution(img.Width, img.Height); err != nil {
		return err
	}
	if err := e.SetColorspace(cs); err != nil {
		return err
	}
	if encodeQuality != 0 {
		if err := e.SetQuality(encodeQuality); err != nil {
			return err
		}
	}
	if encodeCompression >= 0 {
		if err := e.SetPNGCompression(encodeCompression); err != nil {
			return err
		}
	}
	if err := e.SetInputBuffer(img.Data); err != nil {
		return err
	}
	if err := e.SetOutputPath(encodeOut); err != nil {
		return err
	}
	logVerbose("encoding %dx%d %s as %s", img.Width, img.Height, cs, format)

	out, err := e.Run(commandContext(cmd))
	if err != nil {
		return err
	}
	fmt.Printf("%s: %s %dx%d, %s\n", out.Path, out.Format, out.Width, out.Height, formatBytes(out.Size))
	return nil
}
