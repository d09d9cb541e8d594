package types

import "time"

// BaseEntity - временные метки, которые проставляет хранилище.
type BaseEntity struct {
	CreatedAt *time.Time `json:"createdAt,omitempty" db:"created_at"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty" db:"updated_at"`
}

// Touch sets UpdatedAt to now and CreatedAt too when it has never been set.
func (b *BaseEntity) Touch(now time.Time) {
	if b.CreatedAt == nil {
		created := now
		b.CreatedAt = &created
	}
	updated := now
	b.UpdatedAt = &updated
}
