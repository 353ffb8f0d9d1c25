package store

// Reason codes a recorded move. Grouped by the category the move
// originates from, plus generic reasons any move can carry.
type Reason string

const (
	// Moves out of Projects.
	ReasonProjectCompleted   Reason = "project_completed"
	ReasonProjectPaused      Reason = "project_paused"
	ReasonProjectReactivated Reason = "project_reactivated"

	// Moves out of Areas.
	ReasonAreaDemoted  Reason = "area_demoted"
	ReasonAreaPromoted Reason = "area_promoted"
	ReasonAreaArchived Reason = "area_archived"

	// Moves out of Resources.
	ReasonResourceActivated Reason = "resource_activated"
	ReasonResourceAdopted   Reason = "resource_adopted"
	ReasonResourceArchived  Reason = "resource_archived"

	// Moves out of Archives.
	ReasonArchiveRestored   Reason = "archive_restored"
	ReasonArchiveReferenced Reason = "archive_referenced"

	// Generic.
	ReasonUserManual        Reason = "user_manual"
	ReasonRuleTriggered     Reason = "rule_triggered"
	ReasonAISuggested       Reason = "ai_suggested"
	ReasonInactivityTimeout Reason = "inactivity_timeout"
	ReasonInitialImport     Reason = "initial_import"
	ReasonReorganized       Reason = "reorganized"
)

type categoryPair struct {
	from, to Category
}

// suggestedReasons curates which reasons make sense for each move
// direction. Advisory UI guidance only: any reason may still be
// recorded for any pair.
var suggestedReasons = map[categoryPair][]Reason{
	{CategoryProjects, CategoryAreas}:     {ReasonProjectCompleted, ReasonReorganized, ReasonUserManual},
	{CategoryProjects, CategoryResources}: {ReasonProjectCompleted, ReasonProjectPaused, ReasonUserManual},
	{CategoryProjects, CategoryArchives}:  {ReasonProjectCompleted, ReasonInactivityTimeout, ReasonUserManual},

	{CategoryAreas, CategoryProjects}: {ReasonAreaPromoted, ReasonUserManual},
	{CategoryAreas, CategoryResources}: {ReasonAreaDemoted, ReasonReorganized, ReasonUserManual},
	{CategoryAreas, CategoryArchives}:  {ReasonAreaArchived, ReasonInactivityTimeout, ReasonUserManual},

	{CategoryResources, CategoryProjects}: {ReasonResourceActivated, ReasonUserManual},
	{CategoryResources, CategoryAreas}:    {ReasonResourceAdopted, ReasonUserManual},
	{CategoryResources, CategoryArchives}: {ReasonResourceArchived, ReasonInactivityTimeout, ReasonUserManual},

	{CategoryArchives, CategoryProjects}:  {ReasonArchiveRestored, ReasonUserManual},
	{CategoryArchives, CategoryAreas}:     {ReasonArchiveRestored, ReasonUserManual},
	{CategoryArchives, CategoryResources}: {ReasonArchiveReferenced, ReasonUserManual},
}

// SuggestedReasons returns the curated, non-exhaustive reason list for
// a move direction. Same-category moves and unknown pairs fall back to
// the generic reasons.
func SuggestedReasons(from, to Category) []Reason {
	if rs, ok := suggestedReasons[categoryPair{from, to}]; ok {
		return rs
	}
	return []Reason{ReasonUserManual, ReasonReorganized, ReasonRuleTriggered, ReasonAISuggested}
}
