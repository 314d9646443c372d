package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// QueueAudit carries deferred audit records.
	QueueAudit = "audit"
	// TaskGLIntegrity is the task type for the ledger integrity check.
	TaskGLIntegrity = "gl:integrity"
)

// GLIntegrityPayload scopes an integrity run. A zero CompanyID checks every
// company.
type GLIntegrityPayload struct {
	CompanyID int64 `json:"company_id,omitempty"`
}

// NewGLIntegrityTask constructs an Asynq task.
func NewGLIntegrityTask(companyID int64) (*asynq.Task, error) {
	data, err := json.Marshal(GLIntegrityPayload{CompanyID: companyID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskGLIntegrity, data), nil
}
