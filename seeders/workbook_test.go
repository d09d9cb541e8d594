package seeders

import (
	"bytes"
	"context"
	"testing"

	"github.com/revenant-13/maintenance-app/internal/hierarchy"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func buildWorkbook(t *testing.T) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	require.NoError(t, f.SetSheetName("Sheet1", "Оборудование"))
	rows := [][]interface{}{
		{"№", "ID", "Наименование", "Родитель", "Части", "Запчасти со склада", "Уровень", "Открытые задачи"},
		{1, "line", "Line", "", "motor", "", 0, 0},
		{2, "motor", "  Motor", "line", "", "inv-1, inv-2", 1, 1},
	}
	for i, row := range rows {
		cellName, _ := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, f.SetSheetRow("Оборудование", cellName, &row))
	}

	_, err := f.NewSheet("Задачи обслуживания")
	require.NoError(t, err)
	taskRows := [][]interface{}{
		{"№", "ID задачи", "ID оборудования", "Оборудование", "Тип", "Дата", "Выполнена", "Просрочена", "Описание"},
		{1, "task-1", "motor", "Motor", "PM", "15.03.2026", "нет", "да", "Смазка"},
		{2, "task-2", "line", "Line", "Calibration", "2026-06-01", "да", "нет", ""},
	}
	for i, row := range taskRows {
		cellName, _ := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, f.SetSheetRow("Задачи обслуживания", cellName, &row))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestParseWorkbook(t *testing.T) {
	seed, err := ParseWorkbook(buildWorkbook(t))
	require.NoError(t, err)

	require.Len(t, seed.Equipment, 2)
	assert.Equal(t, EquipmentSeed{ID: "line", Name: "Line"}, seed.Equipment[0])
	assert.Equal(t, "Motor", seed.Equipment[1].Name)
	assert.Equal(t, "line", seed.Equipment[1].ParentID)
	assert.Equal(t, []string{"inv-1", "inv-2"}, seed.Equipment[1].InventoryPartIDs)

	require.Len(t, seed.Tasks, 2)
	assert.Equal(t, "2026-03-15", seed.Tasks[0].Schedule)
	assert.False(t, seed.Tasks[0].Completed)
	assert.Equal(t, "Смазка", seed.Tasks[0].Description)
	assert.True(t, seed.Tasks[1].Completed)
	assert.Empty(t, seed.Inventory)
}

func TestParseWorkbook_ImportsIntoStore(t *testing.T) {
	seeder, tx := newTestSeeder(t)
	ctx := context.Background()

	inventory, err := Parse(bytes.NewReader([]byte("inventory:\n  - {id: inv-1, name: Belt, stock: 3}\n  - {id: inv-2, name: Seal, stock: 0}\n")))
	require.NoError(t, err)
	_, err = seeder.Run(ctx, inventory)
	require.NoError(t, err)

	seed, err := ParseWorkbook(buildWorkbook(t))
	require.NoError(t, err)
	sum, err := seeder.Run(ctx, seed)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Equipment)
	assert.Equal(t, 2, sum.Tasks)

	line, err := hierarchy.NewEngine(tx).GetEquipment(ctx, "line")
	require.NoError(t, err)
	assert.Equal(t, []string{"motor"}, line.PartIDs)
}

func TestParseWorkbook_Rejects(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"колонка", "другая"}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	_, err = ParseWorkbook(buf)
	assert.Error(t, err)

	_, err = ParseWorkbook(bytes.NewReader([]byte("not a zip")))
	assert.Error(t, err)
}
