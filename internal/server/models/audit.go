package models

const (
	ResponseSuccess = "SUCCESS"
	ResponseFailed  = "FAILED"
)

// AuditRecord is the message posted to the audit queue.
type AuditRecord struct {
	StatusCode            string `json:"statusCode"`
	UserID                string `json:"userId"`
	Username              string `json:"username"`
	ActivityType          string `json:"activityType"`
	ActivityDescription   string `json:"activityDescription"`
	RequestActionEndpoint string `json:"requestActionEndpoint"`
	ResponseStatus        string `json:"responseStatus"`
	RequestType           string `json:"requestType"`
	Remarks               string `json:"remarks"`
}
