package asset

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/CageChen/assethub/internal/metrics"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// materialize produces the file's exports:
//
//  1. a missing binary fails with ErrNotFound before the sidecar is touched;
//  2. a missing sidecar is generated once, and fails if still missing;
//  3. the sidecar is decoded; decode errors fail;
//  4. an empty list is accepted as is;
//  5. a first export whose version tag is missing or below the layout's
//     DataVersion triggers one regeneration and reload, whose result is
//     accepted even if still stale.
func (f *File) materialize(ctx context.Context) ([]Export, error) {
	if !f.Exists() {
		metrics.RecordMaterialization(metrics.OutcomeFailed)
		return nil, fmt.Errorf("%w: no asset file at %s", ErrNotFound, f.BinaryPath())
	}

	outcome := metrics.OutcomeFresh
	if !f.sidecarExists() {
		runErr := f.serialize(ctx)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if !f.sidecarExists() {
			metrics.RecordMaterialization(metrics.OutcomeFailed)
			if runErr != nil {
				return nil, fmt.Errorf("%w: %s: %w", ErrSerializationFailure, f.BinaryPath(), runErr)
			}
			return nil, fmt.Errorf("%w: serializer produced no sidecar for %s", ErrSerializationFailure, f.BinaryPath())
		}
		outcome = metrics.OutcomeGenerated
	}

	data, err := f.load()
	if err != nil {
		metrics.RecordMaterialization(metrics.OutcomeFailed)
		return nil, err
	}
	if len(data) == 0 || f.current(data[0]) {
		metrics.RecordMaterialization(outcome)
		return data, nil
	}

	f.repo.logger.Debug("sidecar is stale, regenerating",
		zap.String("asset", f.String()),
		zap.Int64("required", f.repo.layout.DataVersion))
	_ = f.serialize(ctx)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	data, err = f.load()
	if err != nil {
		metrics.RecordMaterialization(metrics.OutcomeFailed)
		return nil, err
	}
	if len(data) > 0 && !f.current(data[0]) {
		version, _ := data[0].versionOf(f.repo.layout.VersionKey)
		f.repo.logger.Warn("sidecar still stale after regeneration",
			zap.String("asset", f.String()),
			zap.Int64("version", version),
			zap.Int64("required", f.repo.layout.DataVersion))
		metrics.RecordMaterialization(metrics.OutcomeStale)
		return data, nil
	}
	metrics.RecordMaterialization(metrics.OutcomeRepaired)
	return data, nil
}

// serialize runs the serializer for the binary asset. Failures other than
// cancellation are logged; the caller judges success by the sidecar.
func (f *File) serialize(ctx context.Context) error {
	if f.repo.serializer == nil {
		return errors.New("no serializer configured")
	}
	err := f.repo.serializer.Serialize(ctx, f.BinaryPath())
	if err != nil && ctx.Err() == nil {
		f.repo.logger.Warn("serializer failed",
			zap.String("asset", f.String()),
			zap.Error(err))
	}
	return err
}

func (f *File) sidecarExists() bool {
	_, rel := f.path.withExt(f.repo.layout.CacheExt)
	info, err := f.repo.fsys.Stat(rel)
	return err == nil && !info.IsDir
}

// current reports whether first carries a version tag of at least DataVersion.
func (f *File) current(first Export) bool {
	version, ok := first.versionOf(f.repo.layout.VersionKey)
	return ok && version >= f.repo.layout.DataVersion
}

// load reads and decodes the sidecar.
func (f *File) load() ([]Export, error) {
	_, rel := f.path.withExt(f.repo.layout.CacheExt)
	raw, err := f.repo.fsys.ReadFile(rel)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrSerializationFailure, f.SidecarPath(), err)
	}
	data, err := decodeExports(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", ErrSerializationFailure, f.SidecarPath(), err)
	}
	return data, nil
}

// decodeExports parses a JSON array of objects. Numbers are kept as
// json.Number so integer version tags compare exactly.
func decodeExports(raw []byte) ([]Export, error) {
	dec := json.NewDecoder(bytes.NewReader(bytes.TrimPrefix(raw, utf8BOM)))
	dec.UseNumber()

	var records []Export
	if err := dec.Decode(&records); err != nil {
		return nil, err
	}
	var extra json.RawMessage
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return nil, errors.New("trailing data after export list")
	}
	if records == nil {
		return nil, errors.New("sidecar holds no export list")
	}
	return records, nil
}
