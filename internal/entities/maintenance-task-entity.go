package entities

import (
	"time"

	"github.com/revenant-13/maintenance-app/pkg/types"

	"github.com/aarondl/null/v8"
)

type MaintenanceType string

const (
	MaintenanceCalibration MaintenanceType = "Calibration"
	MaintenancePM          MaintenanceType = "PM"
)

func (t MaintenanceType) Valid() bool {
	return t == MaintenanceCalibration || t == MaintenancePM
}

type MaintenanceTask struct {
	ID          string          `json:"id"`
	EquipmentID string          `json:"equipmentId"`
	Type        MaintenanceType `json:"type"`
	Schedule    time.Time       `json:"schedule"`
	Description null.String     `json:"description"`
	Completed   bool            `json:"completed"`

	types.BaseEntity
}

// IsOverdue - задача не выполнена, а дата уже прошла.
func (t MaintenanceTask) IsOverdue(now time.Time) bool {
	return !t.Completed && t.Schedule.Before(now)
}
