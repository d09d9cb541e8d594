// Package seeders наполняет хранилище данными из YAML-файла. Оборудование
// создаётся через hierarchy.Engine, поэтому связи parentId/partIds в файле
// указываются только с одной стороны (parentId).
package seeders

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/revenant-13/maintenance-app/internal/entities"
	"github.com/revenant-13/maintenance-app/internal/hierarchy"
	"github.com/revenant-13/maintenance-app/internal/repositories"
	apperrors "github.com/revenant-13/maintenance-app/pkg/errors"
	"github.com/revenant-13/maintenance-app/pkg/utils"

	"github.com/aarondl/null/v8"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultSeed []byte

type InventorySeed struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Stock    int    `yaml:"stock"`
	Category string `yaml:"category"`
}

type EquipmentSeed struct {
	ID               string   `yaml:"id"`
	Name             string   `yaml:"name"`
	ParentID         string   `yaml:"parentId"`
	InventoryPartIDs []string `yaml:"inventoryPartIds"`
}

type TaskSeed struct {
	ID          string `yaml:"id"`
	EquipmentID string `yaml:"equipmentId"`
	Type        string `yaml:"type"`
	Schedule    string `yaml:"schedule"`
	Description string `yaml:"description"`
	Completed   bool   `yaml:"completed"`
}

type SeedFile struct {
	Inventory []InventorySeed `yaml:"inventory"`
	Equipment []EquipmentSeed `yaml:"equipment"`
	Tasks     []TaskSeed      `yaml:"tasks"`
}

// Summary - сколько записей создано и сколько пропущено как уже существующие.
type Summary struct {
	Inventory int
	Equipment int
	Tasks     int
	Skipped   int
}

func Parse(r io.Reader) (*SeedFile, error) {
	var seed SeedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&seed); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("не удалось разобрать файл сидов: %w", err)
	}
	return &seed, nil
}

// Load читает файл по пути; пустой путь - встроенный набор. Файлы .xlsx
// разбираются как книга отчёта по оборудованию.
func Load(path string) (*SeedFile, error) {
	if path == "" {
		return Parse(bytes.NewReader(defaultSeed))
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть файл сидов: %w", err)
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return ParseWorkbook(f)
	}
	return Parse(f)
}

type Seeder struct {
	tx     repositories.TxManagerInterface
	engine *hierarchy.Engine
	logger *zap.Logger
}

func New(tx repositories.TxManagerInterface, logger *zap.Logger) *Seeder {
	return &Seeder{tx: tx, engine: hierarchy.NewEngine(tx), logger: logger}
}

// Run повторно запускать безопасно: существующие id пропускаются.
func (s *Seeder) Run(ctx context.Context, seed *SeedFile) (Summary, error) {
	var sum Summary
	s.logger.Info("▶️  Запуск наполнения хранилища",
		zap.Int("inventory", len(seed.Inventory)),
		zap.Int("equipment", len(seed.Equipment)),
		zap.Int("tasks", len(seed.Tasks)),
	)

	if err := s.seedInventory(ctx, seed.Inventory, &sum); err != nil {
		return sum, fmt.Errorf("❌ ошибка наполнения склада: %w", err)
	}
	if err := s.seedEquipment(ctx, seed.Equipment, &sum); err != nil {
		return sum, fmt.Errorf("❌ ошибка наполнения оборудования: %w", err)
	}
	if err := s.seedTasks(ctx, seed.Tasks, &sum); err != nil {
		return sum, fmt.Errorf("❌ ошибка наполнения задач: %w", err)
	}

	s.logger.Info("✅ Наполнение завершено",
		zap.Int("inventory", sum.Inventory),
		zap.Int("equipment", sum.Equipment),
		zap.Int("tasks", sum.Tasks),
		zap.Int("skipped", sum.Skipped),
	)
	return sum, nil
}

func (s *Seeder) seedInventory(ctx context.Context, items []InventorySeed, sum *Summary) error {
	var created, skipped int
	err := s.tx.RunInTransaction(ctx, func(uow repositories.UnitOfWork) error {
		created, skipped = 0, 0
		for _, item := range items {
			if _, err := uow.Inventory().Find(ctx, item.ID); err == nil {
				skipped++
				continue
			} else if !errors.Is(err, apperrors.ErrNotFound) {
				return err
			}
			record := entities.Inventory{ID: item.ID, Name: item.Name, Stock: item.Stock}
			if item.Category != "" {
				record.Category = null.StringFrom(item.Category)
			}
			if _, err := uow.Inventory().Insert(ctx, record); err != nil {
				return err
			}
			created++
		}
		return nil
	})
	if err != nil {
		return err
	}
	sum.Inventory += created
	sum.Skipped += skipped
	return nil
}

// seedEquipment создаёт записи так, чтобы родитель всегда существовал раньше
// ребёнка, независимо от порядка в файле.
func (s *Seeder) seedEquipment(ctx context.Context, items []EquipmentSeed, sum *Summary) error {
	pending := append([]EquipmentSeed(nil), items...)
	for len(pending) > 0 {
		var next []EquipmentSeed
		for _, item := range pending {
			if _, err := s.engine.GetEquipment(ctx, item.ID); err == nil {
				sum.Skipped++
				continue
			}

			in := hierarchy.CreateInput{ID: item.ID, Name: item.Name, InventoryIDs: item.InventoryPartIDs}
			if item.ParentID != "" {
				in.ParentID = null.StringFrom(item.ParentID)
			}
			_, err := s.engine.CreateEquipment(ctx, in)
			var notFound *apperrors.NotFoundError
			switch {
			case err == nil:
				sum.Equipment++
			case errors.As(err, &notFound) && notFound.Entity == "equipment":
				next = append(next, item)
			default:
				return fmt.Errorf("%s: %w", item.ID, err)
			}
		}
		if len(next) == len(pending) {
			ids := make([]string, 0, len(next))
			for _, item := range next {
				ids = append(ids, item.ID+"->"+item.ParentID)
			}
			return apperrors.NewNotFoundError("equipment", ids...)
		}
		pending = next
	}
	return nil
}

func (s *Seeder) seedTasks(ctx context.Context, items []TaskSeed, sum *Summary) error {
	var created, skipped int
	err := s.tx.RunInTransaction(ctx, func(uow repositories.UnitOfWork) error {
		// счётчики обнуляются: при конфликте транзакция выполняется заново
		created, skipped = 0, 0
		for _, item := range items {
			if _, err := uow.Tasks().Find(ctx, item.ID); err == nil {
				skipped++
				continue
			} else if !errors.Is(err, apperrors.ErrNotFound) {
				return err
			}

			task := entities.MaintenanceTask{
				ID:          item.ID,
				EquipmentID: item.EquipmentID,
				Type:        entities.MaintenanceType(item.Type),
				Completed:   item.Completed,
			}
			if !task.Type.Valid() {
				return apperrors.NewValidationError("type", "task %s: unknown type %q", item.ID, item.Type)
			}
			schedule, ok := utils.ParseSchedule(item.Schedule)
			if !ok {
				return apperrors.NewValidationError("schedule", "task %s: %q is not a date", item.ID, item.Schedule)
			}
			task.Schedule = schedule
			if item.Description != "" {
				task.Description = null.StringFrom(item.Description)
			}
			if _, err := uow.Equipment().Find(ctx, task.EquipmentID); err != nil {
				return err
			}
			if _, err := uow.Tasks().Insert(ctx, task); err != nil {
				return err
			}
			created++
		}
		return nil
	})
	if err != nil {
		return err
	}
	sum.Tasks += created
	sum.Skipped += skipped
	return nil
}
