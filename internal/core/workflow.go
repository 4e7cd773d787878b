package core

type State struct {
	UUID              string `json:"uuid,omitempty"`
	State             string `json:"state,omitempty"`
	ApplicationStatus string `json:"applicationStatus,omitempty"`
	IsStartState      bool   `json:"isStartState,omitempty"`
	IsTerminateState  bool   `json:"isTerminateState,omitempty"`
}

type ProcessInstance struct {
	ID              string       `json:"id,omitempty"`
	TenantID        TenantID     `json:"tenantId"`
	BusinessService string       `json:"businessService,omitempty"`
	BusinessID      string       `json:"businessId"`
	Action          string       `json:"action,omitempty"`
	ModuleName      string       `json:"moduleName,omitempty"`
	Comment         string       `json:"comment,omitempty"`
	State           *State       `json:"state,omitempty"`
	AuditDetails    AuditDetails `json:"auditDetails"`
}

type ProcessInstanceResponse struct {
	ProcessInstances []ProcessInstance `json:"ProcessInstances"`
}
