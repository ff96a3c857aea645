package constants

import "time"

// Graph relationship types
const (
	// RelWithin links a City to its Region or Country, and a Region to its Country
	RelWithin = "WITHIN"
	// RelBornIn links an Author to the City they were born in
	RelBornIn = "BORN_IN"
)

// Operation names used in logs, metrics and errors
const (
	OpResolveLocation = "resolve_location"
	OpAttachAuthor    = "attach_author"
	OpAncestorQuery   = "ancestor_query"
	OpExistenceCheck  = "existence_check"
	OpEnsureSchema    = "ensure_schema"
)

// Resolution defaults
const (
	// DefaultConflictRetries is how many times a unit of work is re-run after a
	// uniqueness conflict before it is reported as fatal
	DefaultConflictRetries = 1

	// DefaultAncestorCacheTTL bounds how long a resolved ancestor is served from memory
	DefaultAncestorCacheTTL = 30 * time.Minute

	// DefaultIngestWorkers is the number of authors attached concurrently by the ingest pipeline
	DefaultIngestWorkers = 4
)
