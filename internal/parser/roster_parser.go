package parser

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/RubachokBoss/class-balancer/internal/models"
	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

// UploadedFile — один файл из multipart-запроса. Имя может содержать
// путь вида "3 класс/3.2.xlsx", каталог служит подсказкой параллели.
type UploadedFile struct {
	Name string
	Data []byte
}

var ErrNoRosters = errors.New("no valid roster files found")

var (
	idPatterns   = []string{"id", "student_id", "number", "考号", "学号", "编号"}
	namePatterns = []string{"name", "姓名", "名字"}
)

// Parser разбирает загруженные ведомости (.xlsx, .csv) в GradeRoster.
type Parser struct {
	logger zerolog.Logger
}

func New(logger zerolog.Logger) *Parser {
	return &Parser{logger: logger}
}

// ParseAll разбирает все файлы и группирует учеников по параллелям.
// Нечитаемые файлы пропускаются с предупреждением; если не удалось
// разобрать ни одного, возвращается ErrNoRosters.
func (p *Parser) ParseAll(files []UploadedFile) ([]*models.GradeRoster, error) {
	type gradeAcc struct {
		roster  *models.GradeRoster
		classes map[string]struct{}
		seen    map[string]int
	}
	grades := make(map[string]*gradeAcc)

	for _, file := range files {
		students, subjects, gradeID, className, err := p.parseFile(file)
		if err != nil {
			p.logger.Warn().Err(err).Str("file", file.Name).Msg("Skipping unparseable roster file")
			continue
		}

		acc, ok := grades[gradeID]
		if !ok {
			acc = &gradeAcc{
				roster: &models.GradeRoster{
					GradeID:     gradeID,
					DisplayName: gradeID,
				},
				classes: make(map[string]struct{}),
				seen:    make(map[string]int),
			}
			grades[gradeID] = acc
		}

		acc.classes[className] = struct{}{}
		acc.roster.Subjects = mergeSubjects(acc.roster.Subjects, subjects)

		for _, s := range students {
			// Номера учеников могут повторяться между классами,
			// внутри параллели идентификатор делаем уникальным.
			acc.seen[s.ID]++
			if n := acc.seen[s.ID]; n > 1 {
				s.ID = fmt.Sprintf("%s#%d", s.ID, n)
			}
			acc.roster.Students = append(acc.roster.Students, s)
		}
	}

	if len(grades) == 0 {
		return nil, ErrNoRosters
	}

	rosters := make([]*models.GradeRoster, 0, len(grades))
	for _, acc := range grades {
		acc.roster.OriginalClassCount = len(acc.classes)
		rosters = append(rosters, acc.roster)
	}
	sort.Slice(rosters, func(i, j int) bool {
		return rosters[i].GradeID < rosters[j].GradeID
	})

	return rosters, nil
}

func (p *Parser) parseFile(file UploadedFile) ([]models.StudentRecord, []string, string, string, error) {
	rows, err := readRows(file)
	if err != nil {
		return nil, nil, "", "", err
	}
	if len(rows) < 2 {
		return nil, nil, "", "", fmt.Errorf("file %s: need a header row and at least one student", file.Name)
	}

	gradeID, className := gradeAndClass(file.Name)

	layout, err := detectColumns(rows)
	if err != nil {
		return nil, nil, "", "", fmt.Errorf("file %s: %w", file.Name, err)
	}

	var students []models.StudentRecord
	for _, row := range rows[1:] {
		id := cell(row, layout.idCol)
		name := cell(row, layout.nameCol)
		if id == "" && name == "" {
			continue
		}
		if id == "" {
			id = name
		}

		scores := make(map[string]float64, len(layout.subjects))
		for col, subj := range layout.subjects {
			if v, ok := parseScore(cell(row, col)); ok {
				scores[subj] = v
			}
		}

		students = append(students, models.StudentRecord{
			ID:            id,
			Name:          name,
			Grade:         gradeID,
			OriginalClass: className,
			Scores:        scores,
		})
	}

	if len(students) == 0 {
		return nil, nil, "", "", fmt.Errorf("file %s: no student rows", file.Name)
	}

	return students, layout.subjectOrder, gradeID, className, nil
}

func readRows(file UploadedFile) ([][]string, error) {
	switch strings.ToLower(path.Ext(file.Name)) {
	case ".xlsx":
		return readExcelRows(file.Data)
	case ".csv":
		return readCSVRows(file.Data)
	default:
		return nil, fmt.Errorf("unsupported file type %q", path.Ext(file.Name))
	}
}

func readExcelRows(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, errors.New("workbook has no sheets")
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

func readCSVRows(data []byte) ([][]string, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	return rows, nil
}

type columnLayout struct {
	idCol        int
	nameCol      int
	subjects     map[int]string // колонка -> предмет
	subjectOrder []string
}

// detectColumns определяет колонки по заголовку: идентификатор и имя
// по известным шаблонам, предметы — остальные колонки, в которых
// большинство значений числовые.
func detectColumns(rows [][]string) (*columnLayout, error) {
	header := rows[0]
	layout := &columnLayout{idCol: -1, nameCol: -1, subjects: make(map[int]string)}

	for col, raw := range header {
		title := strings.ToLower(strings.TrimSpace(raw))
		switch {
		case layout.idCol < 0 && matchesAny(title, idPatterns):
			layout.idCol = col
		case layout.nameCol < 0 && matchesAny(title, namePatterns):
			layout.nameCol = col
		}
	}
	if layout.idCol < 0 {
		return nil, errors.New("no student id column detected")
	}

	for col, raw := range header {
		if col == layout.idCol || col == layout.nameCol {
			continue
		}
		title := strings.TrimSpace(raw)
		if title == "" || !mostlyNumeric(rows[1:], col) {
			continue
		}
		layout.subjects[col] = title
		layout.subjectOrder = append(layout.subjectOrder, title)
	}
	if len(layout.subjects) == 0 {
		return nil, errors.New("no subject score columns detected")
	}

	return layout, nil
}

func matchesAny(title string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(title, p) {
			return true
		}
	}
	return false
}

func mostlyNumeric(rows [][]string, col int) bool {
	numeric, filled := 0, 0
	for _, row := range rows {
		v := cell(row, col)
		if v == "" {
			continue
		}
		filled++
		if _, ok := parseScore(v); ok {
			numeric++
		}
	}
	return filled > 0 && numeric*2 > filled
}

func parseScore(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}

// gradeAndClass извлекает параллель и исходный класс из имени файла
// вида "<grade>.<class>.xlsx"; каталог служит запасной подсказкой.
func gradeAndClass(name string) (string, string) {
	base := path.Base(name)
	stem := strings.TrimSuffix(base, path.Ext(base))

	parts := strings.Split(stem, ".")
	if len(parts) >= 2 && parts[0] != "" {
		return parts[0], parts[0] + "-" + parts[1]
	}

	if dir := path.Base(path.Dir(name)); dir != "." && dir != "/" && dir != "" {
		return dir, stem
	}

	return stem, stem
}

func mergeSubjects(existing, incoming []string) []string {
	seen := make(map[string]struct{}, len(existing))
	for _, s := range existing {
		seen[s] = struct{}{}
	}
	for _, s := range incoming {
		if _, ok := seen[s]; !ok {
			existing = append(existing, s)
			seen[s] = struct{}{}
		}
	}
	return existing
}
