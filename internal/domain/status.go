package domain

// JobStatus — статус выполнения job.
//
// Жизненный цикл (одна попытка доставки):
//
//	RUNNING → SUCCESS
//	        ↘ FAILED (ошибка уровня run, сообщение уйдёт на повторную доставку)
//
// SUCCESS означает, что worker прошёл по всем действиям, а не что каждое
// действие завершилось успешно: результат действий смотреть в Result.Actions.
type JobStatus string

const (
	// JobStatusRunning — job создан и выполняется воркером.
	JobStatusRunning JobStatus = "RUNNING"

	// JobStatusSuccess — все действия были выполнены (успешно или нет).
	JobStatusSuccess JobStatus = "SUCCESS"

	// JobStatusFailed — ошибка вне отдельных действий (хранилище, отмена, паника).
	JobStatusFailed JobStatus = "FAILED"
)

// IsTerminal возвращает true, если статус финальный.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusSuccess, JobStatusFailed:
		return true
	default:
		return false
	}
}

// ParseJobStatus парсит строку в JobStatus.
// Возвращает false для неизвестного значения.
func ParseJobStatus(s string) (JobStatus, bool) {
	switch JobStatus(s) {
	case JobStatusRunning, JobStatusSuccess, JobStatusFailed:
		return JobStatus(s), true
	default:
		return "", false
	}
}
