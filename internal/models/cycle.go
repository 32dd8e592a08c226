package models

import "time"

// Cycle statuses.
const (
	CycleDraft    = "draft"
	CycleFinished = "finished"
)

// ScheduleCycle is one scheduling period. Dates are inclusive.
type ScheduleCycle struct {
	ID         uint      `gorm:"primaryKey;autoIncrement"`
	StartDate  time.Time `gorm:"type:date;not null"`
	EndDate    time.Time `gorm:"type:date;not null"`
	ShiftGroup string    `gorm:"size:64"`
	Status     string    `gorm:"size:16;default:draft;index"`
	Comment    string    `gorm:"type:text"`
	CreatedAt  time.Time
	UpdatedAt  time.Time

	Members []CycleMember `gorm:"foreignKey:CycleID"`
}

// CycleMember is the roster snapshot of one employee for one shift category.
// An employee appears once per category with the days required of them.
type CycleMember struct {
	ID           uint   `gorm:"primaryKey;autoIncrement"`
	CycleID      uint   `gorm:"not null;uniqueIndex:idx_cycle_member_shift"`
	EmployeeID   *uint  `gorm:"index"`
	SnapshotName string `gorm:"size:64;not null;uniqueIndex:idx_cycle_member_shift"`
	ShiftType    string `gorm:"size:1;not null;uniqueIndex:idx_cycle_member_shift"`
	RequiredDays int    `gorm:"default:0"`
}

// CycleLeave is one requested leave of a member on a date.
type CycleLeave struct {
	ID           uint      `gorm:"primaryKey;autoIncrement"`
	CycleID      uint      `gorm:"not null;uniqueIndex:idx_cycle_leave"`
	EmployeeName string    `gorm:"size:64;not null;uniqueIndex:idx_cycle_leave"`
	Date         time.Time `gorm:"type:date;not null;uniqueIndex:idx_cycle_leave"`
	LeaveState   int
	LeaveWeight  int
	Offtype      string `gorm:"size:16"`
	CreatedAt    time.Time
}

// CycleEvent records one committed editing action on a cycle.
type CycleEvent struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	CycleID   uint   `gorm:"not null;index"`
	Stage     string `gorm:"size:32"`
	Action    string `gorm:"size:32;not null"`
	Outcome   string `gorm:"size:16"`
	Message   string `gorm:"type:text"`
	CreatedAt time.Time
}
