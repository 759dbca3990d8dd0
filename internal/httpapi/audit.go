package httpapi

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/MarkoPoloResearchLab/velan_e2e/internal/model"
	"github.com/MarkoPoloResearchLab/velan_e2e/internal/storage"
)

const (
	auditActionLogin               = "login"
	auditActionLogout              = "logout"
	auditActionSignup              = "signup"
	auditActionInvite              = "invite_sent"
	auditActionRoleSaved           = "role_saved"
	auditActionCustomerAdded       = "customer_added"
	auditActionApplicationReceived = "application_received"
	auditActionLoanApproval        = "loan_approval"
	auditActionDisbursement        = "disbursement_recorded"
	auditActionPayment             = "payment_recorded"
	logEventRecordAudit            = "record_audit"
	logFieldAction                 = "action"
)

// recordAudit appends an audit trail entry. Failures are logged and never
// interrupt the request that triggered them.
func recordAudit(database *gorm.DB, logger *zap.Logger, actorEmail string, action string, detail string) {
	entry := model.AuditEntry{
		ID:         storage.NewID(),
		ActorEmail: actorEmail,
		Action:     action,
		Detail:     detail,
	}
	if createErr := database.Create(&entry).Error; createErr != nil {
		logger.Warn(logEventRecordAudit, zap.String(logFieldAction, action), zap.Error(createErr))
	}
}
