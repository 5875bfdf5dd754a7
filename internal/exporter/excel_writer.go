package exporter

import (
	"fmt"
	"math"

	"github.com/RubachokBoss/class-balancer/internal/balancer"
	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Exporter пишет результат параллели в xlsx: лист на каждый класс,
// сводный лист и лист нераспределенных учеников.
type Exporter struct {
	logger zerolog.Logger
}

func New(logger zerolog.Logger) *Exporter {
	return &Exporter{logger: logger}
}

// FileName — имя файла-артефакта для параллели.
func FileName(gradeID string) string {
	return fmt.Sprintf("grade_%s_placement.xlsx", gradeID)
}

// GradeWorkbook собирает книгу результата одной параллели.
func (e *Exporter) GradeWorkbook(result *balancer.GradeResult) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	columns := append([]string{"ID", "Name", "Original class", "Rank", "Total"}, result.Subjects...)

	// Члены классов в порядке рейтинга.
	byClass := make(map[int][]int, len(result.Plans))
	for i := range result.Students {
		class := result.Assignment.ClassOf[result.Students[i].ID]
		byClass[class] = append(byClass[class], i)
	}

	for _, plan := range result.Plans {
		sheet := fmt.Sprintf("Class %d", plan.Index)
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, fmt.Errorf("failed to create sheet %s: %w", sheet, err)
		}

		if err := writeRow(f, sheet, 1, toCells(columns)); err != nil {
			return nil, err
		}

		row := 2
		for _, idx := range byClass[plan.Index] {
			s := result.Students[idx]
			cells := []interface{}{s.ID, s.Name, s.OriginalClass, s.Rank, s.Total}
			for _, subj := range result.Subjects {
				cells = append(cells, s.Scores[subj])
			}
			if err := writeRow(f, sheet, row, cells); err != nil {
				return nil, err
			}
			row++
		}

		summary := result.Summaries[plan.Index-1]
		statsCells := []interface{}{"Class mean", "", "", "", round2(summary.TotalMean)}
		for _, subj := range result.Subjects {
			statsCells = append(statsCells, round2(summary.SubjectMean[subj]))
		}
		if err := writeRow(f, sheet, row+1, statsCells); err != nil {
			return nil, err
		}

		if err := styleHeader(f, sheet, len(columns), headerStyle); err != nil {
			return nil, err
		}
	}

	if err := e.writeSummarySheet(f, result, headerStyle); err != nil {
		return nil, err
	}

	if len(result.Special) > 0 {
		if err := e.writeUnassignedSheet(f, result, headerStyle); err != nil {
			return nil, err
		}
	}

	// Стандартный пустой лист больше не нужен.
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to drop default sheet: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}

	e.logger.Debug().
		Str("grade", result.Roster.GradeID).
		Int("classes", len(result.Plans)).
		Int("bytes", buf.Len()).
		Msg("Grade workbook generated")

	return buf.Bytes(), nil
}

func (e *Exporter) writeSummarySheet(f *excelize.File, result *balancer.GradeResult, headerStyle int) error {
	const sheet = "Summary"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}

	columns := []string{"Class", "Label", "Size", "Top tier", "Total mean", "Total stddev"}
	for _, subj := range result.Subjects {
		columns = append(columns, subj+" mean", subj+" stddev")
	}
	if err := writeRow(f, sheet, 1, toCells(columns)); err != nil {
		return err
	}

	for i, summary := range result.Summaries {
		cells := []interface{}{
			summary.Index,
			summary.Label,
			summary.Size,
			summary.TopTierCount,
			round2(summary.TotalMean),
			round2(summary.TotalStddev),
		}
		for _, subj := range result.Subjects {
			cells = append(cells, round2(summary.SubjectMean[subj]), round2(summary.SubjectStd[subj]))
		}
		if err := writeRow(f, sheet, i+2, cells); err != nil {
			return err
		}
	}

	footer := []interface{}{
		"Grade",
		"",
		len(result.Students),
		"",
		round2(gradeMeanTotal(result)),
		"",
	}
	if err := writeRow(f, sheet, len(result.Summaries)+2, footer); err != nil {
		return err
	}

	return styleHeader(f, sheet, len(columns), headerStyle)
}

func (e *Exporter) writeUnassignedSheet(f *excelize.File, result *balancer.GradeResult, headerStyle int) error {
	const sheet = "Unassigned"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create unassigned sheet: %w", err)
	}

	columns := []string{"ID", "Name", "Original class"}
	if err := writeRow(f, sheet, 1, toCells(columns)); err != nil {
		return err
	}
	for i, s := range result.Special {
		if err := writeRow(f, sheet, i+2, []interface{}{s.ID, s.Name, s.OriginalClass}); err != nil {
			return err
		}
	}

	return styleHeader(f, sheet, len(columns), headerStyle)
}

func writeRow(f *excelize.File, sheet string, row int, cells []interface{}) error {
	for col, value := range cells {
		name, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return fmt.Errorf("failed to build cell name: %w", err)
		}
		if err := f.SetCellValue(sheet, name, value); err != nil {
			return fmt.Errorf("failed to set cell %s!%s: %w", sheet, name, err)
		}
	}
	return nil
}

func styleHeader(f *excelize.File, sheet string, columns, styleID int) error {
	last, err := excelize.CoordinatesToCellName(columns, 1)
	if err != nil {
		return fmt.Errorf("failed to build cell name: %w", err)
	}
	if err := f.SetCellStyle(sheet, "A1", last, styleID); err != nil {
		return fmt.Errorf("failed to style header of %s: %w", sheet, err)
	}

	lastCol, err := excelize.ColumnNumberToName(columns)
	if err != nil {
		return fmt.Errorf("failed to build column name: %w", err)
	}
	if err := f.SetColWidth(sheet, "A", lastCol, 14); err != nil {
		return fmt.Errorf("failed to set column widths of %s: %w", sheet, err)
	}
	return nil
}

func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}

func gradeMeanTotal(result *balancer.GradeResult) float64 {
	if len(result.Students) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range result.Students {
		sum += s.Total
	}
	return sum / float64(len(result.Students))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
