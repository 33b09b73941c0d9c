package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func run(t *testing.T, args ...string) {
	t.Helper()
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("imageutil %v: %v", args, err)
	}
}

func TestCLI_EncodeDecodeTransform(t *testing.T) {
	dir := t.TempDir()
	raw := filepath.Join(dir, "red.raw")
	red := bytes.Repeat([]byte{0xFF, 0, 0, 0xFF}, 16)
	if err := os.WriteFile(raw, red, 0o644); err != nil {
		t.Fatal(err)
	}

	img := filepath.Join(dir, "red.png")
	run(t, "encode", raw, "-o", img, "--width", "4", "--height", "4", "--compression", "6")

	back := filepath.Join(dir, "back.raw")
	run(t, "decode", img, "-o", back)
	got, err := os.ReadFile(back)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, red) {
		t.Errorf("round trip: %x", got)
	}

	rotated := filepath.Join(dir, "rot.raw")
	run(t, "transform", back, "-o", rotated, "--width", "4", "--height", "4",
		"--crop", "0,0,4,2", "--to", "RGB888", "--rotate", "90")
	got, _ = os.ReadFile(rotated)
	if len(got) != 2*4*3 {
		t.Errorf("transformed size: %d", len(got))
	}

	anim := filepath.Join(dir, "anim.gif")
	run(t, "gif", anim, img, img, "--delay", "20")
	if fi, err := os.Stat(anim); err != nil || fi.Size() == 0 {
		t.Errorf("gif output: %v", err)
	}
	run(t, "gif", "info", anim)
}

func TestCLI_Rejections(t *testing.T) {
	tests := [][]string{
		{"size", "4", "4", "NOPE"},
		{"colorspaces", "tiff"},
		{"decode", filepath.Join(t.TempDir(), "missing.jpg")},
	}
	for _, args := range tests {
		rootCmd.SetArgs(args)
		if err := rootCmd.Execute(); err == nil {
			t.Errorf("imageutil %v: expected error", args)
		}
	}
}

func TestParseRotation(t *testing.T) {
	for _, s := range []string{"none", "90", "180", "270", "flip-horizontal", "flip-vertical"} {
		r, err := parseRotation(s)
		if err != nil || r.String() != s {
			t.Errorf("parseRotation(%q) = %v, %v", s, r, err)
		}
	}
	if _, err := parseRotation("45"); err == nil {
		t.Error("45 should be rejected")
	}
}
