package core

// RequestInfo is the envelope every downstream service expects in the request body.
type RequestInfo struct {
	APIID     string    `json:"apiId,omitempty"`
	Ver       string    `json:"ver,omitempty"`
	Ts        int64     `json:"ts,omitempty"`
	Action    string    `json:"action,omitempty"`
	DID       string    `json:"did,omitempty"`
	Key       string    `json:"key,omitempty"`
	MsgID     string    `json:"msgId,omitempty"`
	AuthToken string    `json:"authToken,omitempty"`
	UserInfo  *UserInfo `json:"userInfo,omitempty"`
}

type UserInfo struct {
	UUID     string   `json:"uuid,omitempty"`
	UserName string   `json:"userName,omitempty"`
	TenantID TenantID `json:"tenantId,omitempty"`
	Type     string   `json:"type,omitempty"`
}

type RequestInfoWrapper struct {
	RequestInfo RequestInfo `json:"RequestInfo"`
}
