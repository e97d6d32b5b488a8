package globalconst

// This package centralizes the field names, collection names and keywords shared by the store,
// its persistence layer and the shell, so a typo cannot silently split a collection in two.

const (
	// =========================================================================
	// Record Fields
	// =========================================================================

	// ID is the field holding the record's unique identifier.
	ID = "id"
	// CreatedAt is the field holding the insert timestamp.
	CreatedAt = "createdAt"
	// UpdatedAt is the field holding the last update timestamp.
	UpdatedAt = "updatedAt"
	// GroupID is the key field of every record produced by a group stage.
	GroupID = "_id"

	// TimestampLayout is ISO-8601 in UTC with fixed millisecond precision, so
	// timestamps order correctly as plain strings.
	TimestampLayout = "2006-01-02T15:04:05.000Z"

	// =========================================================================
	// Collections
	// =========================================================================

	Users                = "users"
	Therapies            = "therapies"
	Bookings             = "bookings"
	WellnessCheckins     = "wellness_checkins"
	Feedback             = "feedback"
	Notifications        = "notifications"
	ChatMessages         = "chat_messages"
	Prescriptions        = "prescriptions"
	Payments             = "payments"
	Inventory            = "inventory"
	ConstitutionProfiles = "constitution_profiles"
	AuditLogs            = "audit_logs"

	// =========================================================================
	// Query Keywords
	// =========================================================================

	// --- Sort Directions ---
	SortAsc  = "asc"
	SortDesc = "desc"

	// --- Aggregation Functions ---
	AggCount = "count"
	AggSum   = "sum"
	AggAvg   = "avg"
	AggMin   = "min"
	AggMax   = "max"

	// --- Pipeline Document Keys ---
	StageMatch = "$match"
	StageGroup = "$group"
	FieldRef   = "$"

	// =========================================================================
	// Persistence Keywords
	// =========================================================================

	// DefaultDataFile is the store file used when no path is configured.
	DefaultDataFile = "clinic-data.json"
	// BackupsDirName is the default directory for periodic backups.
	BackupsDirName = "backups"
	// BackupFileExtension is the extension of backup snapshots.
	BackupFileExtension = ".json"
	// TempFileSuffix is added to temporary files during atomic writes.
	TempFileSuffix = ".tmp"
	// CorruptFileSuffix marks a store file that failed to parse and was moved aside.
	CorruptFileSuffix = ".corrupt-"
	// BackupTimeLayout names backup files.
	BackupTimeLayout = "2006-01-02_15-04-05"

	// FlushModeAsync queues flushes to a background writer.
	FlushModeAsync = "async"
	// FlushModeSync writes the file inline, inside the write lock.
	FlushModeSync = "sync"
)

// DeclaredCollections is the closed set of collections every store starts with.
var DeclaredCollections = []string{
	Users,
	Therapies,
	Bookings,
	WellnessCheckins,
	Feedback,
	Notifications,
	ChatMessages,
	Prescriptions,
	Payments,
	Inventory,
	ConstitutionProfiles,
	AuditLogs,
}
