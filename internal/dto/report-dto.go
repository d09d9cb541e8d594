package dto

type EquipmentReportRowDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ParentID    string `json:"parentId"`
	PartIDs     string `json:"partIds"`
	InventoryID string `json:"inventoryPartIds"`
	Depth       int    `json:"depth"`
	OpenTasks   int    `json:"openTasks"`
}

type TaskReportRowDTO struct {
	ID            string `json:"id"`
	EquipmentID   string `json:"equipmentId"`
	EquipmentName string `json:"equipmentName"`
	Type          string `json:"type"`
	Schedule      string `json:"schedule"`
	Completed     bool   `json:"completed"`
	Overdue       bool   `json:"overdue"`
	Description   string `json:"description"`
}

type EquipmentReportDTO struct {
	Equipment []EquipmentReportRowDTO `json:"equipment"`
	Tasks     []TaskReportRowDTO      `json:"tasks"`
}
