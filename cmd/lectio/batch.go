package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/lectio/internal/assess"
	"github.com/MrWong99/lectio/internal/config"
	"github.com/MrWong99/lectio/internal/segment"
	"github.com/MrWong99/lectio/internal/store"
	"github.com/MrWong99/lectio/pkg/provider/stt/replay"
)

// batchResult is one line of batch output.
type batchResult struct {
	Recording string         `json:"recording"`
	Report    *assess.Report `json:"report,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// batch assesses every recording concurrently and writes the results to w
// in input order.
func batch(ctx context.Context, o options, cfg *config.Config, d *deps, w io.Writer) error {
	var seg *segment.Segmenter
	if o.calibration != "" {
		var err error
		if seg, err = loadCalibration(o.calibration); err != nil {
			return err
		}
	}

	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	req := assess.Request{
		ReferenceText: o.reference,
		Language:      o.language,
		Title:         o.title,
		Segmenter:     seg,
	}

	results := make([]batchResult, len(o.recordings))
	var g errgroup.Group
	g.SetLimit(max(cfg.Assessment.Concurrency, 1))
	for i, path := range o.recordings {
		g.Go(func() error {
			results[i] = assessRecording(ctx, cfg, d, st, req, path)
			return nil
		})
	}
	_ = g.Wait()

	enc := json.NewEncoder(w)
	failed := 0
	for _, r := range results {
		if r.Error != "" {
			failed++
		}
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("write result: %w", err)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d recordings failed", failed, len(results))
	}
	return nil
}

func assessRecording(ctx context.Context, cfg *config.Config, d *deps, st store.Store, req assess.Request, path string) batchResult {
	res := batchResult{Recording: path}

	entry := cfg.Providers.STT
	if entry.Name == "" {
		entry.Name = "replay"
	}
	entry.Options = maps.Clone(entry.Options)
	if entry.Options == nil {
		entry.Options = map[string]any{}
	}
	entry.Options["path"] = path

	provider, err := d.reg.CreateSTT(entry)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	sess, err := d.assessor.Start(ctx, provider, req)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	defer sess.Close()

	if err := sess.Wait(ctx); err != nil {
		res.Error = err.Error()
		return res
	}
	rep, err := sess.Finalize(ctx)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Report = rep

	if err := st.Save(ctx, rep); err != nil {
		slog.Warn("failed to store report", "recording", path, "id", rep.ID, "err", err)
	}
	slog.Info("recording assessed", "recording", path, "id", rep.ID, "pronunciation", rep.Pronunciation)
	return res
}

func loadCalibration(path string) (*segment.Segmenter, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read calibration: %w", err)
	}
	u, err := replay.ParseUtterance(data)
	if err != nil {
		return nil, err
	}
	return assess.SegmenterFromCalibration(u)
}
