package models

// ShiftType is a concrete task within a shift group (day, evening, night).
type ShiftType struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	Name      string `gorm:"size:64;not null;uniqueIndex:idx_shift_type_name"`
	Subname   string `gorm:"size:64;uniqueIndex:idx_shift_type_name"`
	Group     string `gorm:"column:shift_group;size:16;not null"`
	StartTime string `gorm:"size:5"`
	EndTime   string `gorm:"size:5"`
}

// ShiftGroupSlot places a shift type on a weekday of a shift group.
// Weekday 0 is Monday.
type ShiftGroupSlot struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	GroupName   string `gorm:"size:64;not null;uniqueIndex:idx_slot"`
	Weekday     int    `gorm:"not null;uniqueIndex:idx_slot"`
	ShiftTypeID uint   `gorm:"not null;uniqueIndex:idx_slot"`

	ShiftType ShiftType `gorm:"foreignKey:ShiftTypeID"`
}
