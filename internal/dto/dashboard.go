package dto

type DashboardTotalsDTO struct {
	Equipment       int `json:"equipment"`
	Roots           int `json:"roots"`
	Inventory       int `json:"inventory"`
	LowStock        int `json:"lowStock"`
	TasksCompleted  int `json:"tasksCompleted"`
	TasksIncomplete int `json:"tasksIncomplete"`
	TasksOverdue    int `json:"tasksOverdue"`
}

type EquipmentTaskStatDTO struct {
	EquipmentID string `json:"equipmentId"`
	Name        string `json:"name"`
	Total       int    `json:"total"`
	Completed   int    `json:"completed"`
	Overdue     int    `json:"overdue"`
}

type DashboardStatsDTO struct {
	Totals        DashboardTotalsDTO     `json:"totals"`
	TasksByType   map[string]int         `json:"tasksByType"`
	EquipmentTask []EquipmentTaskStatDTO `json:"equipmentTasks"`
	Integrity     bool                   `json:"integrityOk"`
}
