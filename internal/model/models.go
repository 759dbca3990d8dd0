package model

import "time"

const (
	LoanStatusPending   = "pending"
	LoanStatusApproved  = "approved"
	LoanStatusDisbursed = "disbursed"
)

type Customer struct {
	ID        string    `gorm:"primaryKey;size:36"`
	FullName  string    `gorm:"not null;size:200"`
	Phone     string    `gorm:"size:32"`
	Address   string    `gorm:"size:500"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

type Loan struct {
	ID            string    `gorm:"primaryKey;size:36"`
	Reference     string    `gorm:"uniqueIndex;not null;size:32"`
	CustomerID    string    `gorm:"index;not null;size:36"`
	Customer      Customer  `gorm:"foreignKey:CustomerID"`
	AssignedAgent string    `gorm:"index;size:320"`
	Principal     float64   `gorm:"not null"`
	TotalDue      float64   `gorm:"not null"`
	InterestRate  float64   `gorm:"not null"`
	LoanType      string    `gorm:"size:32"`
	RepaymentMode string    `gorm:"size:32"`
	Status        string    `gorm:"not null;size:16;index"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime"`
}

type LoanApplication struct {
	ID            string    `gorm:"primaryKey;size:36"`
	CustomerID    string    `gorm:"index;not null;size:36"`
	LoanAmount    float64   `gorm:"not null"`
	TotalDue      float64   `gorm:"not null"`
	InterestRate  float64   `gorm:"not null"`
	LoanType      string    `gorm:"size:32"`
	RepaymentMode string    `gorm:"size:32"`
	CreatedBy     string    `gorm:"size:200"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
}

type Disbursement struct {
	ID        string    `gorm:"primaryKey;size:36"`
	LoanID    string    `gorm:"index;not null;size:36"`
	Amount    float64   `gorm:"not null"`
	Method    string    `gorm:"not null;size:32"`
	CreatedBy string    `gorm:"size:320"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

type Collection struct {
	ID            string    `gorm:"primaryKey;size:36"`
	LoanID        string    `gorm:"index;not null;size:36"`
	AgentEmail    string    `gorm:"index;not null;size:320"`
	Amount        float64   `gorm:"not null"`
	PaymentMethod string    `gorm:"not null;size:32"`
	Notes         string    `gorm:"size:1000"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
}

type Role struct {
	ID          string    `gorm:"primaryKey;size:36"`
	Name        string    `gorm:"uniqueIndex;not null;size:64"`
	Description string    `gorm:"size:500"`
	Permissions string    `gorm:"size:1000"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}

type AuditEntry struct {
	ID         string    `gorm:"primaryKey;size:36"`
	ActorEmail string    `gorm:"index;size:320"`
	Action     string    `gorm:"not null;size:64"`
	Detail     string    `gorm:"size:1000"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index"`
}

type Invitation struct {
	ID        string    `gorm:"primaryKey;size:36"`
	Email     string    `gorm:"not null;size:320"`
	Role      string    `gorm:"not null;size:32"`
	InvitedBy string    `gorm:"size:320"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// AccessToken is an opaque API credential issued by the JSON login endpoint.
type AccessToken struct {
	Token     string    `gorm:"primaryKey;size:64"`
	UserID    string    `gorm:"index;not null;size:36"`
	User      User      `gorm:"foreignKey:UserID"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}
