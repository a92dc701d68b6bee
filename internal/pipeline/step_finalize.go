package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"remuxkit/internal/chapters"
	"remuxkit/internal/fileutil"
	"remuxkit/internal/logging"
	"remuxkit/internal/metadata"
	"remuxkit/internal/mux"
	"remuxkit/internal/services"
)

// finalizeStep muxes the surviving streams into the output container,
// validates it, and moves it to the output directory.
type finalizeStep struct{}

func (finalizeStep) Name() string { return "finalize" }

func (finalizeStep) Enabled(*Context) bool { return true }

func (finalizeStep) Run(ctx context.Context, pctx *Context) error {
	staged := filepath.Join(pctx.WorkDir, pctx.BaseName+".mkv")
	job := mux.Job{
		Output:       staged,
		Title:        pctx.BaseName,
		ChaptersPath: pctx.ChaptersPath,
		Inputs:       buildInputs(pctx),
	}

	muxer, err := mux.New(pctx.Config.Tools.MKVMerge, pctx.Runner, pctx.Logger)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "finalize", "muxer", err.Error(), err)
	}
	pctx.progress("finalize", "muxing")
	if err := muxer.Run(ctx, job); err != nil {
		return err
	}
	if err := verifyChapters(ctx, pctx, staged); err != nil {
		return err
	}

	if err := os.MkdirAll(pctx.OutDir, 0o755); err != nil {
		return fmt.Errorf("finalize: ensure output dir: %w", err)
	}
	final := filepath.Join(pctx.OutDir, pctx.BaseName+".mkv")
	if err := moveFile(staged, final); err != nil {
		return fmt.Errorf("finalize: move output: %w", err)
	}
	pctx.OutputPath = final

	if pctx.Config.Pipeline.KeepMetadataArtifact {
		artifact := metadata.Artifact{
			Source:      pctx.Source.Path,
			TitleNumber: pctx.Title,
			Streams:     pctx.Records,
			Timing:      pctx.Timing,
			Telecine:    telecineAnalysis(pctx),
		}
		artifactPath := filepath.Join(pctx.OutDir, pctx.BaseName+".metadata.json")
		if err := metadata.WriteArtifact(artifactPath, artifact); err != nil {
			pctx.Diagnostics.Warnf("finalize", "metadata artifact not written: %v", err)
		}
	}

	logging.WithContext(ctx, pctx.Logger).Info("title complete",
		logging.String("output", final))
	return nil
}

// buildInputs assembles the mux inputs from the extracted streams, in
// record order, plus the optional caption track at the end.
func buildInputs(pctx *Context) []mux.Input {
	inputs := make([]mux.Input, 0, len(pctx.Records)+1)
	firstOfKind := make(map[metadata.Kind]bool, 3)
	for _, record := range pctx.Records {
		path, ok := pctx.Extracted[record.Index]
		if !ok {
			continue
		}
		input := mux.Input{
			Path:    path,
			Record:  record,
			Default: !firstOfKind[record.Kind],
		}
		firstOfKind[record.Kind] = true
		if record.Kind == metadata.KindVideo {
			input.FieldOrder = ResolvedFieldOrder(record, pctx.Telecine)
		}
		inputs = append(inputs, input)
	}
	if pctx.CaptionsPath != "" {
		record := captionRecord(pctx)
		inputs = append(inputs, mux.Input{
			Path:    pctx.CaptionsPath,
			Record:  record,
			Default: !firstOfKind[metadata.KindSubtitle],
		})
	}
	return inputs
}

// verifyChapters reads the chapter atoms back out of the muxed file and
// warns when the count differs from what was written. Verification is
// best effort: only cancellation is an error.
func verifyChapters(ctx context.Context, pctx *Context, staged string) error {
	if len(pctx.Chapters) == 0 || strings.TrimSpace(pctx.Config.Tools.MKVExtract) == "" {
		return nil
	}
	extractor, err := chapters.NewExtractor(pctx.Config.Tools.MKVExtract, pctx.Runner)
	if err != nil {
		pctx.Diagnostics.Warnf("finalize", "chapter verification unavailable: %v", err)
		return nil
	}
	readBack := filepath.Join(pctx.WorkDir, "chapters_muxed.xml")
	muxed, err := extractor.Extract(ctx, staged, readBack)
	if err != nil {
		if services.IsCancellation(err) {
			return err
		}
		pctx.Diagnostics.Warnf("finalize", "chapter verification failed: %v", err)
		return nil
	}
	if len(muxed) != len(pctx.Chapters) {
		pctx.Diagnostics.Warnf("finalize", "output carries %d chapters, expected %d",
			len(muxed), len(pctx.Chapters))
	}
	return nil
}

func telecineAnalysis(pctx *Context) *metadata.TelecineAnalysis {
	if pctx.Telecine == nil {
		return nil
	}
	decision := pctx.Telecine
	analysis := &metadata.TelecineAnalysis{
		Classification: string(decision.Classification),
		ProgressivePct: decision.Tally.ProgressivePct(),
	}
	if decision.Sampled {
		analysis.FrameTallies = map[string]int{
			"tff":          decision.Tally.TFF,
			"bff":          decision.Tally.BFF,
			"progressive":  decision.Tally.Progressive,
			"undetermined": decision.Tally.Undetermined,
		}
	}
	return analysis
}

// moveFile renames within a filesystem and falls back to copy plus remove
// across mount points.
func moveFile(source, destination string) error {
	if err := os.Rename(source, destination); err == nil {
		return nil
	}
	if err := fileutil.CopyFile(source, destination); err != nil {
		return err
	}
	return os.Remove(source)
}
