package scoring

import (
	_ "embed"
	"fmt"
	"math"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	TableListening       = "listening"
	TableAcademicReading = "academic_reading"
	TableGeneralReading  = "general_reading"

	StandardQuestionCount = 40
)

//go:embed data/band_tables.yaml
var bandTablesYAML []byte

type tableRow struct {
	Min  int     `yaml:"min"`
	Band float64 `yaml:"band"`
}

type tableFile struct {
	Tables map[string][]tableRow `yaml:"tables"`
}

var (
	tablesOnce sync.Once
	tables     map[string][]tableRow
	tablesErr  error
)

func loadTables() (map[string][]tableRow, error) {
	tablesOnce.Do(func() {
		var f tableFile
		if err := yaml.Unmarshal(bandTablesYAML, &f); err != nil {
			tablesErr = fmt.Errorf("parse band tables: %w", err)
			return
		}
		for name, rows := range f.Tables {
			sort.Slice(rows, func(i, j int) bool { return rows[i].Min > rows[j].Min })
			f.Tables[name] = rows
		}
		tables = f.Tables
	})
	return tables, tablesErr
}

// TableFor picks the conversion table for a skill and exam module.
func TableFor(skill, module string) string {
	if skill == "listening" {
		return TableListening
	}
	if module == "general" {
		return TableGeneralReading
	}
	return TableAcademicReading
}

// ScaleTo40 rescales a raw score from a test with total questions to the
// standard 40 question scale.
func ScaleTo40(correct, total int) int {
	if total <= 0 || correct <= 0 {
		return 0
	}
	if correct > total {
		correct = total
	}
	if total == StandardQuestionCount {
		return correct
	}
	return int(math.Round(float64(correct) * StandardQuestionCount / float64(total)))
}

// RawToBand converts a score out of 40 to a band using the named table.
func RawToBand(table string, raw40 int) (float64, error) {
	all, err := loadTables()
	if err != nil {
		return 0, err
	}
	rows, ok := all[table]
	if !ok {
		return 0, fmt.Errorf("unknown band table %q", table)
	}
	if raw40 < 0 || raw40 > StandardQuestionCount {
		return 0, fmt.Errorf("raw score %d out of range", raw40)
	}
	for _, r := range rows {
		if raw40 >= r.Min {
			return r.Band, nil
		}
	}
	return 0, nil
}
