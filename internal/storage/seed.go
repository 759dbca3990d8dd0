package storage

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/MarkoPoloResearchLab/velan_e2e/internal/model"
)

const (
	// DefaultSeedPassword is the password of every seeded account.
	DefaultSeedPassword = "password123"
	// DefaultAdminEmail identifies the seeded master administrator.
	DefaultAdminEmail = "admin@example.com"
	// DefaultAgentEmail identifies the seeded collection agent.
	DefaultAgentEmail = "agent@example.com"
	// DefaultStaffEmail identifies the seeded staff member.
	DefaultStaffEmail = "staff@example.com"

	errorMessageSeed = "storage: seed"
)

// Account describes an account to create.
type Account struct {
	Email    string
	Username string
	Password string
	Role     string
}

// SeedConfig selects the accounts Seed creates. The zero value seeds the default accounts.
type SeedConfig struct {
	Accounts []Account
}

// DefaultAccounts returns one account per role, all sharing DefaultSeedPassword.
func DefaultAccounts() []Account {
	return []Account{
		{Email: DefaultAdminEmail, Username: "admin", Password: DefaultSeedPassword, Role: model.RoleMasterAdmin},
		{Email: DefaultAgentEmail, Username: "agent", Password: DefaultSeedPassword, Role: model.RoleCollectionAgent},
		{Email: DefaultStaffEmail, Username: "staff", Password: DefaultSeedPassword, Role: model.RoleStaff},
	}
}

// Seed populates an empty database with accounts, customers, loans, and
// history. It is a no-op when any user already exists.
func Seed(database *gorm.DB, configuration SeedConfig) error {
	var existingUsers int64
	if countErr := database.Model(&model.User{}).Count(&existingUsers).Error; countErr != nil {
		return fmt.Errorf("%s: %w", errorMessageSeed, countErr)
	}
	if existingUsers > 0 {
		return nil
	}

	accounts := configuration.Accounts
	if len(accounts) == 0 {
		accounts = DefaultAccounts()
	}

	return database.Transaction(func(transaction *gorm.DB) error {
		agentEmail := ""
		for _, account := range accounts {
			if account.Role == model.RoleCollectionAgent && agentEmail == "" {
				agentEmail = model.NormalizeEmail(account.Email)
			}
			if _, createErr := CreateAccount(transaction, account); createErr != nil {
				return fmt.Errorf("%s: %w", errorMessageSeed, createErr)
			}
		}

		customers := []model.Customer{
			{ID: NewID(), FullName: "John Doe", Phone: "+1 555 0100", Address: "12 Market Street"},
			{ID: NewID(), FullName: "Jane Smith", Phone: "+1 555 0101", Address: "48 Harbor Road"},
			{ID: NewID(), FullName: "Ravi Kumar", Phone: "+1 555 0102", Address: "7 Hill View"},
		}
		if createErr := transaction.Create(&customers).Error; createErr != nil {
			return fmt.Errorf("%s: customers: %w", errorMessageSeed, createErr)
		}

		loans := []model.Loan{
			{ID: NewID(), Reference: "LN-1001", CustomerID: customers[0].ID, AssignedAgent: agentEmail, Principal: 5000, TotalDue: 5500, InterestRate: 10, LoanType: "personal", RepaymentMode: "monthly", Status: model.LoanStatusPending},
			{ID: NewID(), Reference: "LN-1002", CustomerID: customers[1].ID, AssignedAgent: agentEmail, Principal: 12000, TotalDue: 13440, InterestRate: 12, LoanType: "business", RepaymentMode: "weekly", Status: model.LoanStatusApproved},
			{ID: NewID(), Reference: "LN-1003", CustomerID: customers[2].ID, AssignedAgent: agentEmail, Principal: 3000, TotalDue: 3240, InterestRate: 8, LoanType: "personal", RepaymentMode: "monthly", Status: model.LoanStatusDisbursed},
		}
		if createErr := transaction.Create(&loans).Error; createErr != nil {
			return fmt.Errorf("%s: loans: %w", errorMessageSeed, createErr)
		}

		if agentEmail != "" {
			collections := []model.Collection{
				{ID: NewID(), LoanID: loans[2].ID, AgentEmail: agentEmail, Amount: 540, PaymentMethod: "cash", Notes: "First installment"},
				{ID: NewID(), LoanID: loans[2].ID, AgentEmail: agentEmail, Amount: 540, PaymentMethod: "bank_transfer", Notes: "Second installment"},
			}
			if createErr := transaction.Create(&collections).Error; createErr != nil {
				return fmt.Errorf("%s: collections: %w", errorMessageSeed, createErr)
			}
		}

		disbursement := model.Disbursement{ID: NewID(), LoanID: loans[2].ID, Amount: 3000, Method: "bank_transfer", CreatedBy: DefaultAdminEmail}
		if createErr := transaction.Create(&disbursement).Error; createErr != nil {
			return fmt.Errorf("%s: disbursements: %w", errorMessageSeed, createErr)
		}

		roles := []model.Role{
			{ID: NewID(), Name: model.RoleMasterAdmin, Description: "Full access", Permissions: "users,roles,loans,disbursements,audit"},
			{ID: NewID(), Name: model.RoleCollectionAgent, Description: "Collects repayments", Permissions: "collections"},
			{ID: NewID(), Name: model.RoleStaff, Description: "Back office", Permissions: "customers,loans"},
		}
		if createErr := transaction.Create(&roles).Error; createErr != nil {
			return fmt.Errorf("%s: roles: %w", errorMessageSeed, createErr)
		}

		auditEntry := model.AuditEntry{ID: NewID(), ActorEmail: DefaultAdminEmail, Action: "seed", Detail: "Initial data loaded"}
		if createErr := transaction.Create(&auditEntry).Error; createErr != nil {
			return fmt.Errorf("%s: audit: %w", errorMessageSeed, createErr)
		}
		return nil
	})
}
