package models

import "time"

// EmployeeSchedule is one uploaded, finished roster cell.
type EmployeeSchedule struct {
	ID           uint      `gorm:"primaryKey;autoIncrement"`
	CycleID      uint      `gorm:"not null;index"`
	EmployeeID   uint      `gorm:"not null;index"`
	EmployeeName string    `gorm:"size:64"`
	WorkDate     time.Time `gorm:"type:date;not null"`
	ShiftType    string    `gorm:"size:1;not null"`
	ShiftSubtype string    `gorm:"size:128"`
	CreatedAt    time.Time
}
