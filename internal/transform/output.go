package transform

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// OutputPath inserts suffix before the extension of input
func OutputPath(input, suffix string) string {
	ext := filepath.Ext(input)
	return strings.TrimSuffix(input, ext) + suffix + ext
}

// OutputPathWithExt is OutputPath with a replacement extension
func OutputPathWithExt(input, suffix, ext string) string {
	return strings.TrimSuffix(input, filepath.Ext(input)) + suffix + ext
}

// partialPath keeps the extension so ffmpeg can still pick the muxer
func partialPath(final string) string {
	ext := filepath.Ext(final)
	return strings.TrimSuffix(final, ext) + ".partial" + ext
}

// writeAtomic runs write against a sibling temporary path and renames it
// onto final once write succeeds. The temporary file never survives a
// failure.
func writeAtomic(final string, write func(tmp string) error) error {
	tmp := partialPath(final)
	if err := write(tmp); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, final); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to finalize output: %w", err)
	}
	return nil
}
