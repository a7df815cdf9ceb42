package workflow

// Stage values for the order lifecycle. Completed is terminal for the
// production machine; the completion sub-workflow takes over from there.
const (
	StageDraft            = "Draft"
	StageSubmitted        = "Submitted"
	StageUnderReview      = "Under Review"
	StageRequiresApproval = "Requires Approval"
	StageRequestedChanges = "Requested Changes"
	StageReadyToPrint     = "Ready to Print"
	StagePrinting         = "Printing"
	StageCompleted        = "Completed"
)

// AllStages lists every stage in lifecycle order
func AllStages() []string {
	return []string{
		StageDraft,
		StageSubmitted,
		StageUnderReview,
		StageRequiresApproval,
		StageRequestedChanges,
		StageReadyToPrint,
		StagePrinting,
		StageCompleted,
	}
}

// ValidStage reports whether s is a recognised stage name
func ValidStage(s string) bool {
	for _, stage := range AllStages() {
		if stage == s {
			return true
		}
	}
	return false
}

// BakerEditableStage reports whether a baker may still edit the order's
// items and details, or delete the order, while it is in this stage
func BakerEditableStage(s string) bool {
	return s == StageDraft || s == StageRequestedChanges
}
