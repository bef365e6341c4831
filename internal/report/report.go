// Package report produces the analysis reports built on top of the asset tree.
package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"

	"github.com/CageChen/assethub/internal/asset"
	"github.com/CageChen/assethub/internal/logging"
)

// Export types and fields the reports read.
const (
	dialogScriptPrefix    = "DialogScript"
	dialogPerformanceType = "DialogPerformanceData"
	missionPrefix         = "Mission_"
	blueprintClassType    = "BlueprintGeneratedClass"
	objectNameKey         = "_jwp_object_name"
)

// DialogSummary describes a dialogs run.
type DialogSummary struct {
	Files   []string // CSV files written
	Styles  []string // distinct, sorted, non-empty dialog styles
	Skipped []string // assets whose data could not be produced
}

// Dialogs writes one CSV per child folder of scripts into outDir, plus a
// styles.txt listing every dialog style seen.
func Dialogs(ctx context.Context, scripts asset.Folder, outDir string, logger *zap.Logger) (*DialogSummary, error) {
	logger = logging.OrNop(logger)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	summary := &DialogSummary{}
	styles := make(map[string]struct{})

	for folder, err := range scripts.ChildFolders() {
		if err != nil {
			return nil, err
		}
		path := filepath.Join(outDir, folder.Name()+".csv")
		skipped, err := writeDialogFile(ctx, folder, path, styles)
		if err != nil {
			return nil, err
		}
		for _, s := range skipped {
			logger.Warn("skipping dialog script", zap.String("asset", s))
		}
		summary.Files = append(summary.Files, path)
		summary.Skipped = append(summary.Skipped, skipped...)
	}

	for s := range styles {
		if s != "" {
			summary.Styles = append(summary.Styles, s)
		}
	}
	sort.Strings(summary.Styles)

	content := strings.Join(summary.Styles, "\n")
	if content != "" {
		content += "\n"
	}
	if err := os.WriteFile(filepath.Join(outDir, "styles.txt"), []byte(content), 0o644); err != nil {
		return nil, fmt.Errorf("write styles: %w", err)
	}
	return summary, nil
}

func writeDialogFile(ctx context.Context, folder asset.Folder, path string, styles map[string]struct{}) ([]string, error) {
	out, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	skipped, err := WriteDialogs(ctx, folder, out, styles)
	if closeErr := out.Close(); err == nil && closeErr != nil {
		err = closeErr
	}
	return skipped, err
}

// WriteDialogs writes the dialog lines of every dialog script below folder
// to w as CSV and records the styles it sees. It returns the assets whose
// data could not be produced.
func WriteDialogs(ctx context.Context, folder asset.Folder, w io.Writer, styles map[string]struct{}) ([]string, error) {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"Source File", "Dialog Style", "Dialog Line"}); err != nil {
		return nil, err
	}

	var skipped []string
	for file, err := range folder.SearchFiles(dialogScriptPrefix) {
		if err != nil {
			return nil, err
		}
		exports, err := file.ExportsOfTypes(ctx, dialogPerformanceType)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			skipped = append(skipped, file.String())
			continue
		}
		for export := range exports {
			line, ok := export.StringAt("Text", "string")
			if !ok {
				continue
			}
			style, _ := export.StringAt("Style", 0)
			if styles != nil {
				styles[style] = struct{}{}
			}
			if err := writer.Write([]string{file.Name(), style, line}); err != nil {
				return nil, err
			}
		}
	}

	writer.Flush()
	return skipped, writer.Error()
}

// MissionReport lists repeatable missions and the missions that could not be read.
type MissionReport struct {
	Repeatable []string `json:"repeatable"`
	Unknown    []string `json:"unknown"`
}

// RepeatableMissions inspects every mission asset below folder.
func RepeatableMissions(ctx context.Context, folder asset.Folder) (*MissionReport, error) {
	repeatable := make(map[string]struct{})
	unknown := make(map[string]struct{})

	for file, err := range folder.SearchFiles(missionPrefix) {
		if err != nil {
			return nil, err
		}
		name, ok, err := repeatableName(ctx, file)
		switch {
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case err != nil:
			unknown[file.String()] = struct{}{}
		case ok:
			repeatable[name] = struct{}{}
		}
	}

	return &MissionReport{
		Repeatable: sortedKeys(repeatable),
		Unknown:    sortedKeys(unknown),
	}, nil
}

// repeatableName returns the mission's display name when it is repeatable.
func repeatableName(ctx context.Context, file *asset.File) (string, bool, error) {
	exports, err := file.ExportsOfTypes(ctx, blueprintClassType)
	if err != nil {
		return "", false, err
	}
	var className string
	for e := range exports {
		className, _ = e.StringAt(objectNameKey)
		break
	}
	if className == "" {
		return "", false, fmt.Errorf("%s: no %s export", file, blueprintClassType)
	}

	classes, err := file.ExportsOfTypes(ctx, className)
	if err != nil {
		return "", false, err
	}
	for data := range classes {
		if rep, _ := data.BoolAt("bRepeatable"); !rep {
			return "", false, nil
		}
		name, _ := data.StringAt("FormattedMissionName", "FormatText", "string")
		return name, true, nil
	}
	return "", false, fmt.Errorf("%s: no %s export", file, className)
}

// Markdown renders the report as a markdown document.
func (r *MissionReport) Markdown() []byte {
	var b bytes.Buffer
	b.WriteString("# Missions\n\n## Repeatable\n\n")
	writeTable(&b, "Mission", r.Repeatable)
	b.WriteString("\n## Unknown\n\n")
	writeTable(&b, "Asset", r.Unknown)
	return b.Bytes()
}

func writeTable(b *bytes.Buffer, header string, rows []string) {
	if len(rows) == 0 {
		b.WriteString("_None_\n")
		return
	}
	fmt.Fprintf(b, "| %s |\n| --- |\n", header)
	for _, row := range rows {
		row = strings.ReplaceAll(row, "|", `\|`)
		fmt.Fprintf(b, "| %s |\n", row)
	}
}

// LongestPath returns the longest absolute path of any file with an
// extension below root.
func LongestPath(root string) (string, error) {
	var longest string
	err := doublestar.GlobWalk(os.DirFS(root), "**/*.*", func(p string, d iofs.DirEntry) error {
		full := filepath.Join(root, filepath.FromSlash(p))
		if len(full) > len(longest) {
			longest = full
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if longest == "" {
		return "", errors.New("no files found")
	}
	return longest, nil
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
