package db

import (
	"strings"
	"testing"

	"gorm.io/gorm"

	"github.com/zulandar/shiftyard/internal/config"
	"github.com/zulandar/shiftyard/internal/models"
)

func TestDSN(t *testing.T) {
	tests := []struct {
		name     string
		user     string
		password string
		host     string
		port     int
		database string
		want     string
	}{
		{
			name:     "default local",
			user:     "root",
			host:     "127.0.0.1",
			port:     3306,
			database: "shiftyard",
			want:     "root@tcp(127.0.0.1:3306)/shiftyard?parseTime=true&loc=UTC",
		},
		{
			name:     "with password",
			user:     "scheduler",
			password: "s3cret",
			host:     "10.0.0.5",
			port:     3307,
			database: "roster_ward7",
			want:     "scheduler:s3cret@tcp(10.0.0.5:3307)/roster_ward7?parseTime=true&loc=UTC",
		},
		{
			name: "admin without database",
			user: "root",
			host: "db.internal",
			port: 3306,
			want: "root@tcp(db.internal:3306)/?parseTime=true&loc=UTC",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DSN(tt.user, tt.password, tt.host, tt.port, tt.database)
			if got != tt.want {
				t.Errorf("DSN() = %q, want %q", got, tt.want)
			}
		})
	}
}

func memoryDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Connect(config.DatabaseConfig{Driver: config.DriverSQLite, Path: ":memory:"})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	// Every pooled connection to :memory: would be a separate database.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	return db
}

func TestConnect_UnknownDriver(t *testing.T) {
	_, err := Connect(config.DatabaseConfig{Driver: "postgres"})
	if err == nil || !strings.Contains(err.Error(), "unknown driver") {
		t.Errorf("err = %v, want unknown driver", err)
	}
}

func TestAllModels_Count(t *testing.T) {
	if got := len(AllModels()); got != 7 {
		t.Errorf("AllModels() returned %d models, want 7", got)
	}
}

func TestAutoMigrate_CreatesTables(t *testing.T) {
	db := memoryDB(t)
	for _, m := range AllModels() {
		if !db.Migrator().HasTable(m) {
			t.Errorf("table for %T missing", m)
		}
	}
	if !db.Migrator().HasColumn(&models.ShiftType{}, "shift_group") {
		t.Error("shift_types.shift_group missing")
	}
}

func TestDropTables(t *testing.T) {
	db := memoryDB(t)
	if err := DropTables(db); err != nil {
		t.Fatalf("DropTables: %v", err)
	}
	if db.Migrator().HasTable(&models.ScheduleCycle{}) {
		t.Error("schedule_cycles still present")
	}
}

func testCatalog(t *testing.T) *config.CatalogFile {
	t.Helper()
	cat, err := config.ParseCatalog([]byte(`
group: ward-7
shift_types:
  - {name: Desk, subname: "1", group: day, start: "07:00", end: "15:00", weekdays: [0, 1]}
  - {name: ICU, group: night, weekdays: [0, 1, 2, 3, 4, 5, 6]}
`))
	if err != nil {
		t.Fatalf("ParseCatalog: %v", err)
	}
	return cat
}

func TestSeedCatalog(t *testing.T) {
	db := memoryDB(t)
	n, err := SeedCatalog(db, testCatalog(t))
	if err != nil {
		t.Fatalf("SeedCatalog: %v", err)
	}
	if n != 9 {
		t.Errorf("slots = %d, want 9", n)
	}

	var types []models.ShiftType
	db.Order("id").Find(&types)
	if len(types) != 2 || types[0].Group != "day" || types[0].StartTime != "07:00" {
		t.Errorf("shift types = %+v", types)
	}
	var monday int64
	db.Model(&models.ShiftGroupSlot{}).Where("group_name = ? AND weekday = ?", "ward-7", 0).Count(&monday)
	if monday != 2 {
		t.Errorf("monday slots = %d, want 2", monday)
	}
}

func TestSeedCatalog_Idempotent(t *testing.T) {
	db := memoryDB(t)
	cat := testCatalog(t)
	if _, err := SeedCatalog(db, cat); err != nil {
		t.Fatalf("first SeedCatalog: %v", err)
	}
	cat.ShiftTypes[0].End = "16:00"
	cat.ShiftTypes[1].Weekdays = []int{5, 6}
	if _, err := SeedCatalog(db, cat); err != nil {
		t.Fatalf("second SeedCatalog: %v", err)
	}

	var types int64
	db.Model(&models.ShiftType{}).Count(&types)
	if types != 2 {
		t.Errorf("shift types = %d, want 2", types)
	}
	var desk models.ShiftType
	db.Where("name = ?", "Desk").First(&desk)
	if desk.EndTime != "16:00" {
		t.Errorf("Desk.EndTime = %q, want 16:00", desk.EndTime)
	}
	var slots int64
	db.Model(&models.ShiftGroupSlot{}).Where("group_name = ?", "ward-7").Count(&slots)
	if slots != 4 {
		t.Errorf("slots = %d, want 4", slots)
	}
}
