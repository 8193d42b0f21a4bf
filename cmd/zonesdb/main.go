// Command zonesdb builds and maintains zones.db, the H3-indexed
// light-pollution artifact this repository produces from a VIIRS
// night-lights radiance raster.
package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"

	"github.com/duskmap/zonesdb/internal/accumulator"
	"github.com/duskmap/zonesdb/internal/artifact"
	"github.com/duskmap/zonesdb/internal/config"
	"github.com/duskmap/zonesdb/internal/downsample"
	"github.com/duskmap/zonesdb/internal/hexgrid"
	"github.com/duskmap/zonesdb/internal/pipeline"
	"github.com/duskmap/zonesdb/internal/raster"
	"github.com/duskmap/zonesdb/internal/scatter"
	"github.com/duskmap/zonesdb/internal/sysinfo"
)

func main() {
	os.Setenv("GDAL_CACHEMAX", "256")

	app := &cli.App{
		Name:  "zonesdb",
		Usage: "build and validate the light-pollution zones artifact",
		Commands: []*cli.Command{
			generateCommand(),
			skyglowCommand(),
			validateCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Printf("fatal: %v", err)
		os.Exit(1)
	}
}

func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "tif", Required: true, Usage: "path to the (optionally gzipped) source GeoTIFF"},
		&cli.StringFlag{Name: "accum", Usage: "accumulator database path (default: alongside --tif)"},
		&cli.BoolFlag{Name: "verbose", Usage: "enable per-strip diagnostic logging"},
	}
}

func accumPath(c *cli.Context) string {
	if p := c.String("accum"); p != "" {
		return p
	}
	return strings.TrimSuffix(c.String("tif"), filepath.Ext(c.String("tif"))) + ".accum.db"
}

func openAccumulator(c *cli.Context, cfg config.Config) (*accumulator.Accumulator, error) {
	path := accumPath(c)
	cacheBytes := cfg.AccumulatorCacheBytes
	if cacheBytes == 0 {
		cacheBytes = sysinfo.RecommendAccumulatorCacheBytes(sysinfo.DefaultCacheFraction, c.Bool("verbose"))
	}
	return accumulator.Open(path, cacheBytes)
}

func generateCommand() *cli.Command {
	flags := append(commonFlags(), &cli.BoolFlag{Name: "reset", Usage: "delete the accumulator (and its WAL/SHM siblings) before starting"})
	return &cli.Command{
		Name:  "generate",
		Usage: "phases A-B then F: create/extend the accumulator from the raw raster and emit the artifact",
		Flags: flags,
		Action: func(c *cli.Context) error {
			cfg := config.Default()
			cfg.Verbose = c.Bool("verbose")

			if c.Bool("reset") {
				if err := resetAccumulator(accumPath(c)); err != nil {
					return fmt.Errorf("resetting accumulator: %w", err)
				}
			}

			acc, err := openAccumulator(c, cfg)
			if err != nil {
				return err
			}
			defer acc.Close()

			printSettings("generate", c.String("tif"), accumPath(c), cfg)

			start := time.Now()
			stats, err := pipeline.RunBaseline(c.String("tif"), acc, pipelineConfig(cfg))
			if err != nil {
				return fmt.Errorf("baseline scan: %w", err)
			}
			log.Printf("baseline scan: %d strips processed, %d skipped, %d cells projected, %d rejected (%s)",
				stats.StripsProcessed, stats.StripsSkipped, stats.PixelsProjected, stats.PixelsRejected, time.Since(start).Round(time.Millisecond))

			return writeArtifactAndValidate(c, acc)
		},
	}
}

func skyglowCommand() *cli.Command {
	flags := append(commonFlags(),
		&cli.Float64Flag{Name: "fraction", Value: scatter.DefaultParams().Fraction, Usage: "scatter strength F"},
		&cli.Float64Flag{Name: "scale-km", Value: scatter.DefaultParams().ScaleKM, Usage: "exponential falloff scale S, in km"},
	)
	return &cli.Command{
		Name:  "skyglow",
		Usage: "phases C-D-E then F: downsample, convolve a Garstang PSF, re-scan with scatter, emit the artifact",
		Flags: flags,
		Action: func(c *cli.Context) error {
			cfg := config.Default()
			cfg.Verbose = c.Bool("verbose")

			acc, err := openAccumulator(c, cfg)
			if err != nil {
				return err
			}
			defer acc.Close()

			printSettings("skyglow", c.String("tif"), accumPath(c), cfg)

			r, err := raster.Open(c.String("tif"))
			if err != nil {
				return err
			}

			log.Printf("downsampling to coarse grid (factor %d)...", cfg.Downsample)
			coarse, err := downsample.Build(r, cfg.Downsample, cfg.DownsampleBatchRows)
			r.Close()
			if err != nil {
				return fmt.Errorf("downsampling: %w", err)
			}
			log.Printf("coarse grid: %dx%d", coarse.Width, coarse.Height)

			params := scatter.DefaultParams()
			params.Fraction = c.Float64("fraction")
			params.ScaleKM = c.Float64("scale-km")
			params.PixelKM = cfg.PixelKM
			params.RefKM = cfg.ScatterRefKM
			params.Power = cfg.ScatterPower
			params.MaxRadiusKM = cfg.ScatterMaxRadiusKM

			kernel := scatter.Build(params)
			log.Printf("PSF kernel: %dx%d (radius %d px)", kernel.Side(), kernel.Side(), kernel.Radius)

			scatterMap := scatter.Convolve(coarse, kernel)
			lookup := pipeline.NewScatterLookup(scatterMap, cfg.Downsample)

			start := time.Now()
			stats, err := pipeline.RunEnhanced(c.String("tif"), acc, pipelineConfig(cfg), lookup)
			if err != nil {
				return fmt.Errorf("enhanced scan: %w", err)
			}
			log.Printf("enhanced scan: %d strips processed, %d skipped, %d cells projected, %d rejected (%s)",
				stats.StripsProcessed, stats.StripsSkipped, stats.PixelsProjected, stats.PixelsRejected, time.Since(start).Round(time.Millisecond))

			return writeArtifactAndValidate(c, acc)
		},
	}
}

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "binary-search the artifact for the bundled named-coordinate set",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "tif", Required: true, Usage: "path to the source GeoTIFF the artifact was built from"},
		},
		Action: func(c *cli.Context) error {
			artifactPath := strings.TrimSuffix(c.String("tif"), filepath.Ext(c.String("tif"))) + ".zones.db"
			hits, total, err := runValidation(artifactPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "validation: %d/%d named coordinates resolved\n", hits, total)
			if hits < minValidationHits {
				return fmt.Errorf("insufficient validation coverage: %d/%d hits (need >= %d)", hits, total, minValidationHits)
			}
			return nil
		},
	}
}

const minValidationHits = 30

func pipelineConfig(cfg config.Config) pipeline.Config {
	return pipeline.Config{
		MinRadiance:    cfg.MinRadiance,
		Zone2Threshold: cfg.Zone2Threshold,
		StripRows:      cfg.StripRows,
		ReopenInterval: cfg.ReopenInterval,
		GCInterval:     cfg.GCInterval,
		Verbose:        cfg.Verbose,
	}
}

func resetAccumulator(path string) error {
	for _, suffix := range []string{"", "-wal", "-shm"} {
		if err := os.Remove(path + suffix); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

func writeArtifactAndValidate(c *cli.Context, acc *accumulator.Accumulator) error {
	outPath := strings.TrimSuffix(c.String("tif"), filepath.Ext(c.String("tif"))) + ".zones.db"

	n, err := acc.RowsAboveZone1()
	if err != nil {
		return fmt.Errorf("counting artifact rows: %w", err)
	}

	w, err := artifact.Create(outPath)
	if err != nil {
		return err
	}
	if err := w.WriteAll(acc); err != nil {
		// Leave the partial file in place for inspection rather than
		// removing it: an ArtifactError is fatal, but the failed write
		// is itself evidence worth keeping.
		w.Close()
		return fmt.Errorf("writing artifact: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing artifact: %w", err)
	}

	digest, err := artifact.Digest(outPath)
	if err != nil {
		return fmt.Errorf("digesting artifact: %w", err)
	}

	fi, statErr := os.Stat(outPath)
	var size int64
	if statErr == nil {
		size = fi.Size()
	}
	log.Printf("artifact written: %s (%d records, %s, sha256:%s)", outPath, n, humanize.Bytes(uint64(size)), digest)

	return quickSanityCheck(outPath)
}

// quickSanityCheck looks up a handful of named coordinates right after
// writing the artifact and prints what each resolved to. It is a cheap
// smoke test, not the full coverage check the `validate` command runs
// against all of testLocations.
func quickSanityCheck(artifactPath string) error {
	r, err := artifact.Open(artifactPath)
	if err != nil {
		return fmt.Errorf("opening artifact for sanity check: %w", err)
	}

	fmt.Fprintln(os.Stderr, "quick sanity check:")
	for _, loc := range testLocations[:5] {
		id, err := hexgrid.FromLatLng(loc.Lat, loc.Lon)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  %-32s projection error: %v\n", loc.Name, err)
			continue
		}
		rec, ok := r.Lookup(uint64(id))
		if !ok {
			fmt.Fprintf(os.Stderr, "  %-32s not found (implicit zone 1 or no data)\n", loc.Name)
			continue
		}
		fmt.Fprintf(os.Stderr, "  %-32s zone %d, sqm %.2f, radiance %.3f\n", loc.Name, rec.Zone, rec.SQM, rec.Radiance)
	}
	return nil
}

func runValidation(artifactPath string) (hits, total int, err error) {
	r, err := artifact.Open(artifactPath)
	if err != nil {
		return 0, 0, err
	}

	for _, loc := range testLocations {
		total++
		id, err := hexgrid.FromLatLng(loc.Lat, loc.Lon)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  %-32s projection error: %v\n", loc.Name, err)
			continue
		}
		rec, ok := r.Lookup(uint64(id))
		if !ok {
			fmt.Fprintf(os.Stderr, "  %-32s not found (implicit zone 1 or no data)\n", loc.Name)
			continue
		}
		hits++
		fmt.Fprintf(os.Stderr, "  %-32s zone %d, sqm %.2f, radiance %.3f\n", loc.Name, rec.Zone, rec.SQM, rec.Radiance)
	}

	return hits, total, nil
}

func printSettings(cmd, tif, accum string, cfg config.Config) {
	log.Printf("zonesdb %s", cmd)
	log.Printf("  source raster:    %s", tif)
	log.Printf("  accumulator:      %s", accum)
	log.Printf("  strip rows:       %d", cfg.StripRows)
	log.Printf("  min radiance:     %.3f", cfg.MinRadiance)
	log.Printf("  reopen interval:  %d strips", cfg.ReopenInterval)
}
