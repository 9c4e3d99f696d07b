// Package output writes saved builds and their score history to spreadsheets.
package output

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/stellasora-tools/buildcore/pkg/core"
	"github.com/xuri/excelize/v2"
)

const (
	SheetBuilds        = "Builds"
	SheetScores        = "Scores"
	SheetContributions = "Contributions"
)

// ExportXLSX writes builds and scores into outDir and returns the file path.
// The file name is the date followed by name.
func ExportXLSX(outDir, name string, builds []core.SavedBuild, scores []core.ScoreRecord) (string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", err
	}
	if strings.TrimSpace(name) == "" {
		name = "builds"
	}

	fileBase := fmt.Sprintf("%s_%s.xlsx", time.Now().Format("20060102"), sanitizeFilenamePart(name))
	outPath := filepath.Join(outDir, fileBase)

	f := excelize.NewFile()
	defer f.Close()

	_ = f.SetSheetName("Sheet1", SheetBuilds)
	if _, err := f.NewSheet(SheetScores); err != nil {
		return "", err
	}
	if _, err := f.NewSheet(SheetContributions); err != nil {
		return "", err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return "", err
	}

	if err := writeBuilds(f, builds, headerStyle); err != nil {
		return "", err
	}
	if err := writeScores(f, builds, scores, headerStyle); err != nil {
		return "", err
	}

	if err := f.SaveAs(outPath); err != nil {
		return "", err
	}
	return outPath, nil
}

func writeHeader(f *excelize.File, sheet string, style int, headers ...string) error {
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	return f.SetCellStyle(sheet, "A1", last, style)
}

func setRow(f *excelize.File, sheet string, row int, values ...any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func writeBuilds(f *excelize.File, builds []core.SavedBuild, style int) error {
	if err := writeHeader(f, SheetBuilds, style,
		"ID", "Name", "Version", "Token", "Main", "Support 1", "Support 2", "Updated"); err != nil {
		return err
	}

	sorted := append([]core.SavedBuild(nil), builds...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	for i, b := range sorted {
		chars := b.Build.Characters()
		if err := setRow(f, SheetBuilds, i+2,
			b.ID, b.Name, b.Version, b.Token,
			chars[0].Identity(), chars[1].Identity(), chars[2].Identity(),
			b.UpdatedAt.UTC().Format(time.RFC3339)); err != nil {
			return err
		}
	}

	if err := f.SetColWidth(SheetBuilds, "B", "B", 24); err != nil {
		return err
	}
	return f.SetColWidth(SheetBuilds, "D", "D", 40)
}

func writeScores(f *excelize.File, builds []core.SavedBuild, scores []core.ScoreRecord, style int) error {
	if err := writeHeader(f, SheetScores, style,
		"Score ID", "Build", "Token", "Total Score", "Effects", "Computed"); err != nil {
		return err
	}
	if err := writeHeader(f, SheetContributions, style,
		"Score ID", "Effect", "Type", "Bucket", "Average Increase", "Uptime Coverage"); err != nil {
		return err
	}

	names := make(map[uint]string, len(builds))
	for _, b := range builds {
		names[b.ID] = b.Name
	}

	sorted := append([]core.ScoreRecord(nil), scores...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ComputedAt.Before(sorted[j].ComputedAt) })

	contribRow := 2
	for i, s := range sorted {
		buildLabel := names[s.BuildID]
		if s.BuildID == 0 {
			buildLabel = "(unsaved)"
		} else if buildLabel == "" {
			buildLabel = fmt.Sprintf("#%d", s.BuildID)
		}
		if err := setRow(f, SheetScores, i+2,
			s.ID, buildLabel, s.Token, s.TotalScore, len(s.Contributions),
			s.ComputedAt.UTC().Format(time.RFC3339)); err != nil {
			return err
		}

		for _, c := range s.Contributions {
			if err := setRow(f, SheetContributions, contribRow,
				s.ID, c.Name, c.Type.String(), c.Type.Bucket().String(),
				c.AverageIncrease, c.UptimeCoverage); err != nil {
				return err
			}
			contribRow++
		}
	}

	numberStyle, err := f.NewStyle(&excelize.Style{NumFmt: 2})
	if err != nil {
		return err
	}
	if len(sorted) > 0 {
		if err := f.SetCellStyle(SheetScores, "D2", fmt.Sprintf("D%d", len(sorted)+1), numberStyle); err != nil {
			return err
		}
	}
	if contribRow > 2 {
		if err := f.SetCellStyle(SheetContributions, "E2", fmt.Sprintf("F%d", contribRow-1), numberStyle); err != nil {
			return err
		}
	}
	return f.SetColWidth(SheetContributions, "B", "B", 24)
}

func sanitizeFilenamePart(s string) string {
	s = strings.TrimSpace(s)
	repl := strings.NewReplacer("/", "_", "\\", "_", ":", "_", "*", "_", "?", "_", "\"", "_", "<", "_", ">", "_", "|", "_", " ", "_")
	return repl.Replace(s)
}
