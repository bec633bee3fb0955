package main

import (
	"errors"
	"flag"
	"fmt"
	"image/png"
	"os"
	"path/filepath"

	"github.com/gekko3d/lightbake/lightrt/rt/app"
	"github.com/gekko3d/lightbake/lightrt/rt/core"
	"github.com/gekko3d/lightbake/lightrt/rt/pack"
)

func main() {
	jobPath := flag.String("job", "", "Job file (.json, .yaml)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	atlasDir := flag.String("atlas", "", "Write the packed lightmap atlas as PNG files into this directory")
	playing := flag.Bool("playing", true, "Simulate incremental updates instead of full refreshes")
	flag.Parse()

	logger := core.NewDefaultLogger("lightrt", *debug)
	if *jobPath == "" {
		logger.Errorf("missing -job")
		flag.Usage()
		os.Exit(2)
	}

	if err := run(*jobPath, *atlasDir, *playing, *debug, logger); err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
}

func run(jobPath, atlasDir string, playing, debug bool, logger core.Logger) error {
	job, err := app.LoadJob(jobPath)
	if err != nil {
		return err
	}
	if job.Settings.Debug && !debug {
		logger.SetDebug(true)
	}

	mgr := app.NewManagerFromJob(job, logger)

	if len(job.Charts) > 0 {
		items := job.Items()
		session, err := mgr.PackLightmaps(items)
		if errors.Is(err, app.ErrChartSkipped) {
			return err
		}
		if err != nil {
			logger.Warnf("%v", err)
		}
		for _, it := range items {
			logger.Debugf("chart %d: %dx%d in lightmap %d at %v", it.ID, it.Size.X, it.Size.Y, it.Index, it.Rect.Min)
		}
		if atlasDir != "" {
			if err := writeAtlas(atlasDir, session, items); err != nil {
				return err
			}
		}
	}

	if err := mgr.ImportLightmapReceivers(job.LightmapReceivers); err != nil {
		return err
	}
	if err := mgr.ImportVolumetricReceivers(job.VolumetricReceivers); err != nil {
		return err
	}

	for i, intensities := range job.Frames {
		if err := mgr.SetIntensities(intensities); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		u := mgr.Update(playing)
		if u.Empty() {
			logger.Debugf("frame %d: idle", i)
			continue
		}
		logger.Infof("frame %d: %d dispatches", i, u.DispatchCount())
	}

	fmt.Print(mgr.Profiler.GetStatsString())
	return nil
}

func writeAtlas(dir string, session *pack.Session, items []*pack.Item) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create atlas dir: %w", err)
	}
	for i, img := range pack.RenderDebugImage(session, items) {
		path := filepath.Join(dir, fmt.Sprintf("lightmap_%d.png", i))
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
		err = png.Encode(f, img)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	return nil
}
