// Package report exports the artifacts of a discovery run as an XLSX
// workbook for curriculum reviewers who live in spreadsheets.
package report

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/p-n-ai/pai-curator/internal/curriculum"
	"github.com/p-n-ai/pai-curator/internal/source"
)

const (
	sheetMap        = "Curriculum Map"
	sheetSources    = "Sources"
	sheetStatistics = "Statistics"
)

// Write renders the curriculum map and its vetted source records into an
// XLSX workbook on w.
func Write(m *curriculum.Map, records []source.Record, w io.Writer) error {
	f, err := build(m, records)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// WriteFile renders the workbook to a file at path.
func WriteFile(m *curriculum.Map, records []source.Record, path string) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	defer out.Close()

	if err := Write(m, records, out); err != nil {
		return err
	}
	return out.Close()
}

func build(m *curriculum.Map, records []source.Record) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := writeMapSheet(f, m); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeSourcesSheet(f, records); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeStatisticsSheet(f, m); err != nil {
		f.Close()
		return nil, err
	}

	// The workbook starts with a default sheet; drop it once ours exist.
	if err := f.DeleteSheet("Sheet1"); err != nil {
		f.Close()
		return nil, fmt.Errorf("delete default sheet: %w", err)
	}
	idx, err := f.GetSheetIndex(sheetMap)
	if err != nil {
		f.Close()
		return nil, err
	}
	f.SetActiveSheet(idx)
	return f, nil
}

// writeMapSheet lays out one row per learning objective, repeating the topic
// columns so the sheet filters cleanly.
func writeMapSheet(f *excelize.File, m *curriculum.Map) error {
	if _, err := f.NewSheet(sheetMap); err != nil {
		return fmt.Errorf("create map sheet: %w", err)
	}

	header := []any{"Topic ID", "Topic", "Description", "Order", "Objective ID", "Objective", "Difficulty"}
	if err := setRow(f, sheetMap, 1, header); err != nil {
		return err
	}

	row := 2
	for _, topic := range m.Topics {
		if len(topic.Objectives) == 0 {
			err := setRow(f, sheetMap, row, []any{topic.ID, topic.Name, topic.Description, topic.Order, "", "", ""})
			if err != nil {
				return err
			}
			row++
			continue
		}
		for _, obj := range topic.Objectives {
			err := setRow(f, sheetMap, row, []any{
				topic.ID, topic.Name, topic.Description, topic.Order,
				obj.ID, obj.Description, obj.Difficulty,
			})
			if err != nil {
				return err
			}
			row++
		}
	}

	return f.SetColWidth(sheetMap, "A", "G", 24)
}

func writeSourcesSheet(f *excelize.File, records []source.Record) error {
	if _, err := f.NewSheet(sheetSources); err != nil {
		return fmt.Errorf("create sources sheet: %w", err)
	}

	header := []any{
		"Source ID", "Title", "URL", "Publisher", "Type", "License", "Format",
		"Total Score", "Authority", "Alignment", "License Score", "Extractability",
		"Topics", "Extraction State", "Chunks",
	}
	if err := setRow(f, sheetSources, 1, header); err != nil {
		return err
	}

	for i, rec := range records {
		err := setRow(f, sheetSources, i+2, []any{
			rec.ID, rec.Title, rec.URL, rec.Publisher, string(rec.SourceType),
			string(rec.License), string(rec.ContentFormat),
			rec.Scoring.Total, rec.Scoring.Authority, rec.Scoring.Alignment,
			rec.Scoring.License, rec.Scoring.Extractability,
			strings.Join(rec.TopicIDs, ", "), rec.ExtractionState, len(rec.ChunkIDs),
		})
		if err != nil {
			return err
		}
	}

	return f.SetColWidth(sheetSources, "A", "O", 20)
}

func writeStatisticsSheet(f *excelize.File, m *curriculum.Map) error {
	if _, err := f.NewSheet(sheetStatistics); err != nil {
		return fmt.Errorf("create statistics sheet: %w", err)
	}

	rows := [][]any{
		{"Curriculum ID", m.CurriculumID},
		{"Country", m.Request.Country},
		{"Region", m.Request.Region},
		{"Grade", m.Request.Grade},
		{"Subject", m.Request.Subject},
		{"Language", m.Request.Language},
		{"Total Topics", m.Statistics.TotalTopics},
		{"Total Objectives", m.Statistics.TotalObjectives},
		{"Sources Discovered", m.Statistics.SourcesDiscovered},
		{"Sources Vetted", m.Statistics.SourcesVetted},
		{"Average Source Score", m.Statistics.AverageScore},
		{"Generated At", m.GeneratedAt.Format("2006-01-02 15:04:05 UTC")},
	}
	for i, row := range rows {
		if err := setRow(f, sheetStatistics, i+1, row); err != nil {
			return err
		}
	}

	return f.SetColWidth(sheetStatistics, "A", "B", 28)
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("set row %d on %s: %w", row, sheet, err)
	}
	return nil
}
