package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	imageutil "github.com/Skryldev/image-util"
	"github.com/Skryldev/image-util/core"
)

var sizeCmd = &cobra.Command{
	Use:   "size <width> <height> <colorspace>",
	Short: "Print the byte size of a raw buffer",
	Args:  cobra.ExactArgs(3),
	RunE:  runSize,
}

var colorspacesCmd = &cobra.Command{
	Use:   "colorspaces [format]",
	Short: "List colorspaces, or those a format supports",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runColorspaces,
}

func init() {
	rootCmd.AddCommand(sizeCmd, colorspacesCmd)
}

func runSize(_ *cobra.Command, args []string) error {
	w, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("width: %w", err)
	}
	h, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("height: %w", err)
	}
	cs, err := core.ParseColorspace(args[2])
	if err != nil {
		return err
	}
	n, err := imageutil.BufferSize(w, h, cs)
	if err != nil {
		return err
	}
	fmt.Println(n)
	return nil
}

func runColorspaces(_ *cobra.Command, args []string) error {
	if len(args) == 0 {
		for _, cs := range core.Colorspaces() {
			fmt.Printf("%2d  %s\n", int(cs), cs)
		}
		return nil
	}
	format, err := parseFormat(args[0])
	if err != nil {
		return err
	}
	for cs := range imageutil.SupportedColorspaces(format) {
		rot := ""
		if core.RotationSupported(cs) {
			rot = "  (rotatable)"
		}
		fmt.Printf("%2d  %s%s\n", int(cs), cs, rot)
	}
	return nil
}
