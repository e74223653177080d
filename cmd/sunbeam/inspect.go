package main

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/sunbeam/internal/console"
)

func newInspectCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Collect a report of the installation",
		Long: "Inspect the installation and write a tarball of the model status and\n" +
			"debug log that can be attached to a bug report.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, root, runInspect)
		},
	}
}

func reportName(now time.Time) string {
	return fmt.Sprintf("sunbeam-inspection-report-%s.tar.gz", now.Format("20060102_150405"))
}

func runInspect(ctx context.Context, app *AppContext) error {
	dir, err := os.MkdirTemp("", "sunbeam-inspect-")
	if err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	if _, err := app.RunPlan(ctx, true, app.inspectPlan(dir)); err != nil {
		return err
	}

	dump := filepath.Join(app.Config.Paths.State, reportName(time.Now()))
	if err := writeArchive(dump, dir); err != nil {
		return err
	}
	fmt.Fprintln(app.Out, console.Success("Output file written to "+dump))
	return nil
}

// writeArchive writes the regular files of dir into a gzipped tarball at
// dst, rooted at "./".
func writeArchive(dst, dir string) (err error) {
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}
	f, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)

	walkErr := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() && !info.IsDir() {
			return nil
		}

		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = "./" + filepath.ToSlash(rel)
		if info.IsDir() {
			hdr.Name += "/"
		}
		if rel == "." {
			hdr.Name = "./"
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		src, err := os.Open(path)
		if err != nil {
			return err
		}
		defer func() { _ = src.Close() }()
		_, err = io.Copy(tw, src)
		return err
	})
	if walkErr != nil {
		return fmt.Errorf("archive %s: %w", dir, walkErr)
	}
	if err := tw.Close(); err != nil {
		return fmt.Errorf("finish archive: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("finish archive: %w", err)
	}
	return nil
}
