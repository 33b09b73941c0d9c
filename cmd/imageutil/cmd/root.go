package cmd

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	imageutil "github.com/Skryldev/image-util"
	"github.com/Skryldev/image-util/config"
	"github.com/Skryldev/image-util/core"
)

var (
	version  = "0.1.0"
	verbose  bool
	logLevel string
	maxBytes int64
)

var rootCmd = &cobra.Command{
	Use:   "imageutil",
	Short: "Decode, encode and transform JPEG, PNG, GIF and BMP images",
	Long: `imageutil converts compressed images to raw pixel buffers and back,
resizes, crops, rotates and converts raw buffers between colorspaces,
and assembles animated GIFs.

Raw buffers are headerless; their width, height and colorspace are
passed as flags.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "library log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Int64Var(&maxBytes, "max-bytes", 0, "reject compressed inputs larger than this (0 = no limit)")
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"imageutil %s (%s/%s, %s)\n",
		version, runtime.GOOS, runtime.GOARCH, runtime.Version(),
	))
}

// newProcessor builds a Processor from the persistent flags.
func newProcessor() (*imageutil.Processor, error) {
	cfg := imageutil.DefaultConfig()
	cfg.LogLevel = logLevel
	cfg.MaxImageBytes = maxBytes
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return imageutil.New(cfg), nil
}

// commandContext returns the command's context, or Background when run
// outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// logVerbose prints a message only when --verbose is set.
func logVerbose(format string, args ...any) {
	if verbose {
		fmt.Fprintf(os.Stderr, "[imageutil] "+format+"\n", args...)
	}
}

func parseFormat(s string) (core.Format, error) {
	f := core.ParseFormat(s)
	if !f.Valid() {
		return core.FormatUnknown, fmt.Errorf("unknown format %q (jpeg, png, gif, bmp)", s)
	}
	return f, nil
}

func parseRotation(s string) (core.Rotation, error) {
	for r := core.RotateNone; r <= core.FlipVertical; r++ {
		if r.String() == s {
			return r, nil
		}
	}
	return core.RotateNone, fmt.Errorf("unknown rotation %q (none, 90, 180, 270, flip-horizontal, flip-vertical)", s)
}

// readRaw loads a headerless raw buffer and checks its length.
func readRaw(path string, width, height int, cs core.Colorspace) (*core.RawImage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return core.NewRawImage(width, height, cs, data)
}

func formatBytes(b int64) string {
	switch {
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/float64(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}
