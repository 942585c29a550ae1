package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"tutorcenter_backoffice/internal/models"
	"tutorcenter_backoffice/internal/services"
	"tutorcenter_backoffice/internal/tasks"
)

const tickLockKey = "lock:worker:tick"

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	// Initialize Database
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL not set")
	}

	db, err := services.InitDB(databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Redis lock keeps two workers from processing the same tick (optional)
	var cache *services.RedisCache
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		cache, err = services.NewRedisCache(redisURL)
		if err != nil {
			log.Printf("Warning: Redis initialization failed, running unlocked: %v", err)
			cache = nil
		}
	}

	// Initialize Task Registry
	tasks.DefineTasks()

	// Make sure the overdue sweep is scheduled
	ensureSweepTask(db)

	tickMinutes := 5
	if v := os.Getenv("WORKER_TICK_MINUTES"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			tickMinutes = parsed
		}
	}

	log.Println("Worker started. Waiting for next tick...")

	// Create context that cancels on interrupt
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		log.Println("Shutting down worker...")
		cancel()
	}()

	tick := time.Duration(tickMinutes) * time.Minute
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	// Run once immediately, then on every tick
	processScheduledTasks(ctx, db, cache, tick)

	for {
		select {
		case <-ticker.C:
			processScheduledTasks(ctx, db, cache, tick)
		case <-ctx.Done():
			return
		}
	}
}

func processScheduledTasks(ctx context.Context, db *gorm.DB, cache *services.RedisCache, tick time.Duration) {
	if cache != nil {
		acquired, err := cache.SetNX(ctx, tickLockKey, time.Now().Unix(), tick)
		if err != nil {
			log.Printf("Error acquiring tick lock: %v", err)
		} else if !acquired {
			log.Println("Another worker holds the tick lock, skipping")
			return
		}
		defer cache.Delete(ctx, tickLockKey)
	}

	log.Println("Checking for pending tasks...")

	var pendingTasks []models.ScheduledTask
	now := time.Now()
	if err := db.Where("status = ? AND due <= ?", models.ScheduledTaskStatusActive, now).Find(&pendingTasks).Error; err != nil {
		log.Printf("Error fetching pending tasks: %v", err)
		return
	}

	if len(pendingTasks) == 0 {
		log.Println("No pending tasks found.")
		return
	}

	log.Printf("Found %d pending tasks.", len(pendingTasks))

	for _, task := range pendingTasks {
		if ctx.Err() != nil {
			return
		}
		executeTask(ctx, db, task, 1)
	}
}

func executeTask(ctx context.Context, db *gorm.DB, task models.ScheduledTask, curAttempt int) {
	log.Printf("Processing task: %s (ID: %d)", task.TaskName, task.ID)

	if task.Arguments == nil {
		task.Arguments = make(map[string]interface{})
	}

	handler, found := tasks.GetHandler(task.TaskName)
	if !found {
		log.Printf("Task handler not found for: %s. Marking as failure.", task.TaskName)

		now := time.Now()
		db.Model(&task).Updates(map[string]interface{}{
			"status":   models.ScheduledTaskStatusFailure,
			"last_run": &now,
		})

		history := models.ScheduledTaskHistory{
			ScheduledTaskID: task.ID,
			TaskName:        task.TaskName,
			RunAt:           now,
			Status:          "handler_not_found",
			AttemptNumber:   curAttempt,
			Arguments:       task.Arguments,
			Result:          map[string]interface{}{"error": "Handler not found"},
		}
		db.Create(&history)
		return
	}

	// Execute task
	startTime := time.Now()
	result, err := handler(ctx, db, task.Arguments)
	runtimeMs := int(time.Since(startTime).Milliseconds())

	status := "success"
	var resultData map[string]interface{}
	if err != nil {
		status = "failure"
		resultData = map[string]interface{}{"error": err.Error()}
		log.Printf("Task %s failed: %v", task.TaskName, err)
	} else {
		resultData = result
		log.Printf("Task %s completed successfully.", task.TaskName)
	}

	history := models.ScheduledTaskHistory{
		ScheduledTaskID: task.ID,
		TaskName:        task.TaskName,
		RunAt:           startTime,
		Runtime:         runtimeMs,
		Status:          status,
		AttemptNumber:   curAttempt,
		Arguments:       task.Arguments,
		Result:          resultData,
	}
	db.Create(&history)

	taskUpdates := map[string]interface{}{
		"last_run": &startTime,
	}

	if status != "success" {
		if curAttempt < task.MaxAttempt {
			executeTask(ctx, db, task, curAttempt+1)
			return
		}
		taskUpdates["status"] = models.ScheduledTaskStatusFailure
	} else {
		switch task.TaskType {
		case models.ScheduledTaskTypeOneTime:
			taskUpdates["status"] = models.ScheduledTaskStatusDone
		case models.ScheduledTaskTypeRecurring:
			nextDue := task.NextDue()
			// only advance to a strictly later due, otherwise the task
			// would run again on the next tick
			if nextDue.After(task.Due) {
				taskUpdates["status"] = models.ScheduledTaskStatusActive
				taskUpdates["due"] = nextDue
			} else {
				taskUpdates["status"] = models.ScheduledTaskStatusDone
			}
		}
	}

	db.Model(&task).Updates(taskUpdates)
}

// ensureSweepTask seeds the recurring overdue sweep if no active row exists.
// The schedule itself stays deployment config: edit or disable the row.
func ensureSweepTask(db *gorm.DB) {
	var count int64
	db.Model(&models.ScheduledTask{}).
		Where("task_name = ? AND status = ?", tasks.OverdueSweepTask.TaskID(), models.ScheduledTaskStatusActive).
		Count(&count)
	if count > 0 {
		return
	}

	rule := "FREQ=DAILY"
	task, err := tasks.BuildScheduledTask(
		tasks.OverdueSweepTask.TaskID(),
		map[string]interface{}{},
		time.Now(),
		&rule,
		models.ScheduledTaskTypeRecurring,
		3,
	)
	if err != nil {
		log.Printf("Failed to build sweep task: %v", err)
		return
	}
	if err := db.Create(task).Error; err != nil {
		log.Printf("Failed to schedule overdue sweep: %v", err)
		return
	}
	log.Printf("Scheduled recurring overdue sweep (task ID %d)", task.ID)
}
