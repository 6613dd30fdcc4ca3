package store

import "fmt"

// DynamoDB schema constants for the single-table design
const (
	// Table attributes
	AttrPK         = "PK"
	AttrSK         = "SK"
	AttrGSI1PK     = "GSI1PK"
	AttrGSI1SK     = "GSI1SK"
	AttrGSI2PK     = "GSI2PK"
	AttrGSI2SK     = "GSI2SK"
	AttrEntityType = "entity_type"

	// Entity types
	EntityTypeState = "WorkflowState"

	// Index names
	IndexWorkflow = "GSI1"
	IndexThread   = "GSI2"
)

// State keys: PK=STATE#{stateID}, SK=META
func statePK(stateID string) string {
	return fmt.Sprintf("STATE#%s", stateID)
}

func stateSK() string {
	return "META"
}

// Workflow index: GSI1PK=WF#{workflowID}, GSI1SK={updatedAt}#{stateID}
func stateGSI1PK(workflowID string) string {
	return fmt.Sprintf("WF#%s", workflowID)
}

func stateGSI1SK(updatedAt, stateID string) string {
	return fmt.Sprintf("%s#%s", updatedAt, stateID)
}

// Thread index: GSI2PK=THREAD#{threadID}, GSI2SK={updatedAt}#{stateID}
func stateGSI2PK(threadID string) string {
	return fmt.Sprintf("THREAD#%s", threadID)
}

func stateGSI2SK(updatedAt, stateID string) string {
	return fmt.Sprintf("%s#%s", updatedAt, stateID)
}
