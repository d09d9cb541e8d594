package seeders

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/revenant-13/maintenance-app/pkg/utils"

	"github.com/xuri/excelize/v2"
)

// Листы ищутся по заголовкам, а не по названию: подходит и выгрузка
// /reports/equipment, и таблица, собранная вручную.
const headerScanRows = 10

var (
	equipmentColumns = map[string][]string{
		"id":        {"id"},
		"name":      {"наименование", "name"},
		"parent":    {"родитель", "parentid", "parent"},
		"inventory": {"запчасти со склада", "inventorypartids", "inventory"},
	}
	taskColumns = map[string][]string{
		"id":          {"id задачи", "taskid"},
		"equipment":   {"id оборудования", "equipmentid"},
		"type":        {"тип", "type"},
		"schedule":    {"дата", "schedule"},
		"completed":   {"выполнена", "completed"},
		"description": {"описание", "description"},
	}
)

// ParseWorkbook собирает набор сидов из xlsx. Склад в книге не хранится,
// поэтому запчасти, на которые ссылается оборудование, должны уже существовать.
func ParseWorkbook(r io.Reader) (*SeedFile, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия файла: %w", err)
	}
	defer f.Close()

	seed := &SeedFile{}
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("лист %q: %w", sheet, err)
		}

		// задачи проверяются первыми: у листа задач тоже есть колонка с id
		if headerRow, idx := findHeader(rows, taskColumns, "id", "equipment", "type", "schedule"); headerRow >= 0 {
			tasks, err := readTasks(sheet, rows[headerRow+1:], headerRow, idx)
			if err != nil {
				return nil, err
			}
			seed.Tasks = append(seed.Tasks, tasks...)
			continue
		}
		if headerRow, idx := findHeader(rows, equipmentColumns, "id", "name"); headerRow >= 0 {
			seed.Equipment = append(seed.Equipment, readEquipment(rows[headerRow+1:], idx)...)
		}
	}

	if len(seed.Equipment) == 0 && len(seed.Tasks) == 0 {
		return nil, fmt.Errorf("в книге не найдено ни одного листа с оборудованием или задачами")
	}
	return seed, nil
}

// findHeader возвращает номер строки заголовков и индексы колонок, либо -1.
func findHeader(rows [][]string, columns map[string][]string, required ...string) (int, map[string]int) {
	for rIdx, row := range rows {
		if rIdx >= headerScanRows {
			break
		}
		idx := make(map[string]int)
		for cIdx, cell := range row {
			name := strings.ToLower(strings.TrimSpace(cell))
			for key, aliases := range columns {
				for _, alias := range aliases {
					if name == alias {
						idx[key] = cIdx
					}
				}
			}
		}
		ok := true
		for _, key := range required {
			if _, found := idx[key]; !found {
				ok = false
				break
			}
		}
		if ok {
			return rIdx, idx
		}
	}
	return -1, nil
}

func cell(row []string, idx map[string]int, key string) string {
	i, ok := idx[key]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func splitIDs(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func readEquipment(rows [][]string, idx map[string]int) []EquipmentSeed {
	var out []EquipmentSeed
	for _, row := range rows {
		id := cell(row, idx, "id")
		if id == "" {
			continue
		}
		out = append(out, EquipmentSeed{
			ID:               id,
			Name:             cell(row, idx, "name"), // отступ уровня срезается TrimSpace
			ParentID:         cell(row, idx, "parent"),
			InventoryPartIDs: splitIDs(cell(row, idx, "inventory")),
		})
	}
	return out
}

func readTasks(sheet string, rows [][]string, headerRow int, idx map[string]int) ([]TaskSeed, error) {
	var out []TaskSeed
	for i, row := range rows {
		id := cell(row, idx, "id")
		if id == "" {
			continue
		}
		schedule, err := normalizeDate(cell(row, idx, "schedule"))
		if err != nil {
			return nil, fmt.Errorf("лист %q, строка %d: %w", sheet, headerRow+i+2, err)
		}
		out = append(out, TaskSeed{
			ID:          id,
			EquipmentID: cell(row, idx, "equipment"),
			Type:        cell(row, idx, "type"),
			Schedule:    schedule,
			Description: cell(row, idx, "description"),
			Completed:   isYes(cell(row, idx, "completed")),
		})
	}
	return out, nil
}

// normalizeDate принимает ДД.ММ.ГГГГ из отчёта и всё, что понимает ParseSchedule.
func normalizeDate(value string) (string, error) {
	if t, err := time.Parse("02.01.2006", value); err == nil {
		return t.Format(utils.DateLayout), nil
	}
	if _, ok := utils.ParseSchedule(value); ok {
		return value, nil
	}
	return "", fmt.Errorf("%q не является датой", value)
}

func isYes(value string) bool {
	switch strings.ToLower(value) {
	case "да", "yes", "true", "1", "+":
		return true
	}
	return false
}
