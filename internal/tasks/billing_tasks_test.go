package tasks

import (
	"context"
	"fmt"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"tutorcenter_backoffice/internal/models"
	"tutorcenter_backoffice/internal/services"
)

func setupTaskTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := services.AutoMigrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func TestOverdueSweepTask(t *testing.T) {
	db := setupTaskTestDB(t)

	past := time.Now().AddDate(0, 0, -3)
	obligation := models.Obligation{
		StudentID: 1, FeeID: 1, AcademicYearID: 1,
		TotalAmountDue: 500000, TotalAmountPaid: 100000, OutstandingAmount: 400000,
		Status: models.PaymentStatusPartial, DueDate: &past, EnrollmentDate: past,
	}
	if err := db.Create(&obligation).Error; err != nil {
		t.Fatalf("seed obligation: %v", err)
	}

	result, err := OverdueSweepTask.HandleExecution(context.Background(), db, nil)
	if err != nil {
		t.Fatalf("HandleExecution: %v", err)
	}
	if result["transitioned"] != 1 {
		t.Errorf("transitioned = %v; want 1", result["transitioned"])
	}

	var swept models.Obligation
	db.First(&swept, obligation.ID)
	if swept.Status != models.PaymentStatusOverdue {
		t.Errorf("status = %v; want OVERDUE", swept.Status)
	}
}

func TestDefineTasksRegistersHandlers(t *testing.T) {
	DefineTasks()

	for _, name := range []string{"overdue_sweep", "recalculate_obligations", "log_info"} {
		if _, ok := GetHandler(name); !ok {
			t.Errorf("handler %q not registered", name)
		}
	}
}

func TestBuildScheduledTask(t *testing.T) {
	rule := "FREQ=DAILY"
	due := time.Now().AddDate(0, 0, 1)

	task, err := BuildScheduledTask("overdue_sweep", map[string]interface{}{"source": "test"},
		due, &rule, models.ScheduledTaskTypeRecurring, 3)
	if err != nil {
		t.Fatalf("BuildScheduledTask: %v", err)
	}
	if task.TaskName != "overdue_sweep" {
		t.Errorf("TaskName = %q; want overdue_sweep", task.TaskName)
	}
	if task.Status != models.ScheduledTaskStatusActive {
		t.Errorf("Status = %v; want active", task.Status)
	}
	if task.Arguments["source"] != "test" {
		t.Errorf("Arguments = %v; want source=test", task.Arguments)
	}
}
