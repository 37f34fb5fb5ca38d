package log

// Common field names for structured logging.
const (
	FieldComponent  = "component"
	FieldOperation  = "operation"
	FieldError      = "error"
	FieldUserID     = "user_id"
	FieldCollection = "collection"
	FieldRecordID   = "record_id"
	FieldCategory   = "category"
	FieldAmount     = "amount"
	FieldBackend    = "backend"
	FieldGoalID     = "goal_id"
	FieldBudgetID   = "budget_id"
	FieldDuration   = "duration_ms"
	FieldStatusCode = "status_code"
	FieldMethod     = "method"
	FieldPath       = "path"
)

// Components defines standard component names.
const (
	ComponentApp      = "app"
	ComponentHTTP     = "http"
	ComponentLedger   = "ledger"
	ComponentInsight  = "insight"
	ComponentStore    = "store"
	ComponentBackend  = "backend"
	ComponentAMQP     = "amqp"
	ComponentWorker   = "worker"
	ComponentIdentity = "identity"
	ComponentExtract  = "extract"
)

// Operations defines standard operation names.
const (
	OpList       = "list"
	OpInsert     = "insert"
	OpUpdate     = "update"
	OpDelete     = "delete"
	OpContribute = "contribute"
	OpSync       = "sync"
	OpValidate   = "validate"
	OpStartup    = "startup"
	OpShutdown   = "shutdown"
)
