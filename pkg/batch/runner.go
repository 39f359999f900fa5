// Package batch applies the labeling and watershed transforms to directories
// of slice images. Each apply call is independent, so inputs fan out across
// a bounded worker group while the transforms themselves stay sequential.
package batch

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"labelseg/internal/models"
	"labelseg/pkg/config"
	"labelseg/pkg/raster"
	"labelseg/pkg/region"
	"labelseg/pkg/visualization"
	"labelseg/pkg/watershed"
)

// Runner dispatches whole apply calls to a pool of workers.
type Runner struct {
	cfg *config.Config
	log *logrus.Logger
}

// NewRunner creates a runner. cfg must already be validated.
func NewRunner(cfg *config.Config, log *logrus.Logger) *Runner {
	return &Runner{cfg: cfg, log: log}
}

// job turns one slice into a summary.
type job func(s models.Slice) (models.Summary, error)

// run executes fn over slices with at most NumWorkers in flight. Results
// keep the input order. The first error cancels the remaining work.
func (r *Runner) run(ctx context.Context, slices []models.Slice, fn job) ([]models.Summary, error) {
	out := make([]models.Summary, len(slices))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(r.cfg.Batch.NumWorkers, 1))

	for i, s := range slices {
		i, s := i, s
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			sum, err := fn(s)
			if err != nil {
				return fmt.Errorf("%s: %w", s.Filename, err)
			}
			sum.Elapsed = time.Since(start)
			out[i] = sum

			r.log.WithFields(logrus.Fields{
				"operation": sum.Operation,
				"source":    sum.Source,
				"regions":   sum.Regions,
				"largest":   sum.Largest,
				"elapsed":   sum.Elapsed,
			}).Info("processed slice")
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// outputPath names the rendered image for source under the operation's
// subdirectory.
func (r *Runner) outputPath(op models.Operation, source string) string {
	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	return filepath.Join(r.cfg.Output.Dir, string(op), base+".png")
}

// LabelImages binarizes each slice and extracts its connected regions.
func (r *Runner) LabelImages(ctx context.Context, slices []models.Slice) ([]models.Summary, error) {
	extractor, err := region.NewExtractor(r.cfg.Connectivity(), r.cfg.Labeling.DropBackground)
	if err != nil {
		return nil, err
	}

	return r.run(ctx, slices, func(s models.Slice) (models.Summary, error) {
		img, err := Binarize(s.Image, r.cfg.Labeling.Threshold)
		if err != nil {
			return models.Summary{}, err
		}
		set, err := extractor.Extract(img)
		if err != nil {
			return models.Summary{}, err
		}
		set = set.Filter(r.cfg.Labeling.MinRegionSize)

		sum := models.Summary{
			Operation: models.OpLabel,
			Source:    s.Filename,
			Width:     img.Width,
			Height:    img.Height,
			Depth:     1,
			Regions:   len(set),
		}
		if big := set.Largest(); big != nil {
			sum.Largest = big.Len()
		}
		if r.cfg.Output.Verbose {
			for _, reg := range set {
				r.log.WithFields(logrus.Fields{
					"source": s.Filename,
					"label":  reg.Label,
					"size":   reg.Len(),
					"bounds": reg.Bounds().String(),
				}).Debug("region")
			}
		}

		if r.cfg.Output.SaveVisualization {
			painted, err := set.Paint(img.Width, img.Height)
			if err != nil {
				return models.Summary{}, err
			}
			sum.Output = r.outputPath(models.OpLabel, s.Filename)
			if err := savePNG(sum.Output, watershed.Render(painted)); err != nil {
				return models.Summary{}, err
			}
		}
		return sum, nil
	})
}

// Watershed segments the intensity of each slice into catchment basins.
func (r *Runner) Watershed(ctx context.Context, slices []models.Slice) ([]models.Summary, error) {
	variant, err := r.cfg.WatershedVariant()
	if err != nil {
		return nil, err
	}
	engine := watershed.New(
		watershed.WithVariant(variant),
		watershed.WithPruning(r.cfg.Watershed.Prune),
	)

	return r.run(ctx, slices, func(s models.Slice) (models.Summary, error) {
		img, err := raster.FromImage(s.Image)
		if err != nil {
			return models.Summary{}, err
		}
		res, err := engine.Apply(img)
		if err != nil {
			return models.Summary{}, err
		}

		sum := models.Summary{
			Operation: models.OpWatershed,
			Source:    s.Filename,
			Width:     img.Width,
			Height:    img.Height,
			Depth:     1,
			Regions:   res.Basins,
			Pruned:    res.Pruned,
			Lines:     len(res.Lines),
		}
		if big := region.FromLabels(res.Labels, true).Largest(); big != nil {
			sum.Largest = big.Len()
		}

		if r.cfg.Output.SaveVisualization {
			sum.Output = r.outputPath(models.OpWatershed, s.Filename)
			if err := savePNG(sum.Output, watershed.Render(res.Labels)); err != nil {
				return models.Summary{}, err
			}
		}
		return sum, nil
	})
}

// Label3D stacks the binarized slices into a volume and extracts its
// 26-connected regions. source names the volume in the summary and in the
// output directory.
func (r *Runner) Label3D(ctx context.Context, source string, slices []models.Slice) (models.Summary, error) {
	start := time.Now()

	images := make([]*raster.Image, len(slices))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(r.cfg.Batch.NumWorkers, 1))
	for i, s := range slices {
		i, s := i, s
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			img, err := Binarize(s.Image, r.cfg.Labeling.Threshold)
			if err != nil {
				return fmt.Errorf("%s: %w", s.Filename, err)
			}
			images[i] = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return models.Summary{}, err
	}

	vol, err := raster.Stack(images)
	if err != nil {
		return models.Summary{}, err
	}
	set, err := region.NewExtractor3D(r.cfg.Labeling.DropBackground).Extract(vol)
	if err != nil {
		return models.Summary{}, err
	}
	set = set.Filter(r.cfg.Labeling.MinRegionSize)

	sum := models.Summary{
		Operation: models.OpLabel3D,
		Source:    source,
		Width:     vol.Width,
		Height:    vol.Height,
		Depth:     vol.Depth,
		Regions:   len(set),
	}
	for _, reg := range set {
		if reg.Len() > sum.Largest {
			sum.Largest = reg.Len()
		}
	}

	if r.cfg.Output.SaveVisualization {
		painted, err := set.Paint(vol.Width, vol.Height, vol.Depth)
		if err != nil {
			return models.Summary{}, err
		}
		sum.Output = filepath.Join(r.cfg.Output.Dir, string(models.OpLabel3D), filepath.Base(source))
		if _, err := visualization.NewViewer(painted).SaveSliceSequence("z", sum.Output); err != nil {
			return models.Summary{}, err
		}
	}

	sum.Elapsed = time.Since(start)
	r.log.WithFields(logrus.Fields{
		"operation": sum.Operation,
		"source":    sum.Source,
		"depth":     sum.Depth,
		"regions":   sum.Regions,
		"largest":   sum.Largest,
		"elapsed":   sum.Elapsed,
	}).Info("processed volume")
	return sum, nil
}
