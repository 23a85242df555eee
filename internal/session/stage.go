package session

// Stage is the workflow state derived from the data held by the session.
type Stage int

const (
	StageNoProject Stage = iota + 1
	StageProjectOpen
	StageAnalysisPresent
	StageItemsExtracted
	StageItemsPriced
)

func (s Stage) String() string {
	switch s {
	case StageNoProject:
		return "no_project"
	case StageProjectOpen:
		return "project_open"
	case StageAnalysisPresent:
		return "analysis_present"
	case StageItemsExtracted:
		return "items_extracted"
	case StageItemsPriced:
		return "items_priced"
	default:
		return "unknown"
	}
}
