package models

import (
	"encoding/json"
	"time"
)

const (
	AuditActionSlotDefine       = "SLOT_DEFINE"
	AuditActionSlotRevise       = "SLOT_REVISE"
	AuditActionSlotRemove       = "SLOT_REMOVE"
	AuditActionSlotBulkRemove   = "SLOT_BULK_REMOVE"
	AuditActionDutyAssign       = "DUTY_ASSIGN"
	AuditActionDutyReassign     = "DUTY_REASSIGN"
	AuditActionDutyUnassign     = "DUTY_UNASSIGN"
	AuditActionDutyBulkUnassign = "DUTY_BULK_UNASSIGN"
	AuditActionBookingCreate    = "BOOKING_CREATE"
	AuditActionBookingStatus    = "BOOKING_STATUS"
)

// AuditLog records who changed which scheduling resource.
type AuditLog struct {
	ID         string          `db:"id" json:"id"`
	ActorID    string          `db:"actor_id" json:"actor_id"`
	ActorRole  UserRole        `db:"actor_role" json:"actor_role"`
	Action     string          `db:"action" json:"action"`
	Resource   string          `db:"resource" json:"resource"`
	ResourceID string          `db:"resource_id" json:"resource_id"`
	RequestID  *string         `db:"request_id" json:"request_id,omitempty"`
	Details    json.RawMessage `db:"details" json:"details,omitempty"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}
