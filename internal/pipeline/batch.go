package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/migoto-mesh/pkg/migoto"
)

// Progress receives one Add(1) per finished job.
// *progressbar.ProgressBar satisfies it.
type Progress interface {
	Add(n int) error
}

// BatchJob converts one raw buffer set into OutDir.
type BatchJob struct {
	Source  RawBuffers
	OutDir  string
	VGMaps  migoto.VGMapSet
	Reindex bool
}

// BatchExport runs jobs with up to workers in parallel. Each job owns its
// buffers. The first failure cancels jobs that have not started and stops
// running ones at their next file. Results are in job order; entries for
// jobs that did not finish are nil.
func (p *Pipeline) BatchExport(ctx context.Context, jobs []BatchJob, workers int, progress Progress) ([]*ExportResult, error) {
	if workers < 1 {
		workers = 1
	}
	results := make([]*ExportResult, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, job := range jobs {
		if gctx.Err() != nil {
			break
		}
		i, job := i, job
		g.Go(func() error {
			res, err := p.runJob(gctx, job)
			if err != nil {
				return fmt.Errorf("%s: %w", job.Source.Name, err)
			}
			results[i] = res
			if progress != nil {
				_ = progress.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, ctx.Err()
}

func (p *Pipeline) runJob(ctx context.Context, job BatchJob) (*ExportResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if job.Source.Fmt == "" {
		return nil, fmt.Errorf("no .fmt descriptor: %w", ErrMissingBuffer)
	}
	mesh, err := p.LoadRaw(job.Source.Fmt, job.Source.VB, job.Source.IB)
	if err != nil {
		return nil, err
	}
	p.log.Debug("batch job loaded", zap.String("mesh", mesh.Name))

	return p.Export(ctx, ExportRequest{
		Mesh:    mesh,
		VBPath:  filepath.Join(job.OutDir, job.Source.Name+".vb"),
		VGMaps:  job.VGMaps,
		Reindex: job.Reindex,
	})
}
