package tasks

// DefineTasks registers all available tasks
func DefineTasks() {
	// Register general tasks
	RegisterHandler(LogInfoTask.TaskID(), LogInfoTask.HandleExecution)

	// Register billing tasks
	RegisterHandler(OverdueSweepTask.TaskID(), OverdueSweepTask.HandleExecution)
	RegisterHandler(RecalculateObligationsTask.TaskID(), RecalculateObligationsTask.HandleExecution)
}
