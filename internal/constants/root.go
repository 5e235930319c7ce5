package constants

import "time"

const (
	AppName            = "umbral"
	DefaultKeyringUser = "database-connection"
	DefaultConfigPath  = "~/.config/umbral/umbral.db"
	DefaultUserID      = "local"
	Version            = "v0.2.0"

	// DateFormat is the calendar-day format used throughout the application (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// TimeFormat is the wall-clock format for reminder times (HH:MM, 24h)
	TimeFormat = "15:04"

	// Collection names under users/{uid}/
	HabitsCollection      = "habits"
	CompletionsCollection = "habitCompletions"
	MetaCollection        = "meta"

	// SeededMarkerID is the meta document written alongside the default
	// habit batch so a user is never seeded twice.
	SeededMarkerID = "seeded"

	// Notify constants
	NotifyMaxRetries       = 3
	NotifyRetryDelay       = 100 * time.Millisecond
	NotifierLockfileName   = "umbral-notifier.lock"
	NotificationDurationMs = 5000
	TrayAppIdentifier      = "com.julianstephens.umbral"

	// ReminderTitle and ReminderBodyFormat are the notification copy for
	// habit reminders.
	ReminderTitle      = "Recordatorio de Hábito"
	ReminderBodyFormat = "Es hora de tu hábito: %q"

	// ErrorQueueSize bounds the habit store's side-channel of failed
	// fire-and-forget writes.
	ErrorQueueSize = 32

	// WeeklySeriesDays is the span of the weekly completion chart.
	WeeklySeriesDays = 7
)

// DefaultHabitNames is the starter set written for first-time users.
var DefaultHabitNames = []string{
	"Caminata diaria de 15 minutos",
	"5 minutos de respiración consciente",
	"Escribir un pensamiento en el diario",
	"Leer 10 páginas de un libro",
}
