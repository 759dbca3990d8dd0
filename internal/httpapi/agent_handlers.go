package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/MarkoPoloResearchLab/velan_e2e/internal/model"
	"github.com/MarkoPoloResearchLab/velan_e2e/internal/storage"
)

const (
	messagePaymentCollected = "Payment collected successfully"
	messageLoanNotAssigned  = "That loan is not assigned to you"
	monthlyCollectionTarget = 50000.0
	percentScale            = 100.0
	logEventAgentWrite      = "agent_write"
)

var errLoanNotAssigned = errors.New("loan not assigned to agent")

// AgentHandlers serves the collection agent pages.
type AgentHandlers struct {
	database *gorm.DB
	logger   *zap.Logger
	auth     *AuthManager
	renderer *pageRenderer
	now      func() time.Time
}

func newAgentHandlers(database *gorm.DB, logger *zap.Logger, authManager *AuthManager, renderer *pageRenderer) *AgentHandlers {
	return &AgentHandlers{database: database, logger: logger, auth: authManager, renderer: renderer, now: time.Now}
}

type agentLoanRow struct {
	ID           string
	Reference    string
	CustomerName string
	TotalDue     float64
	Collected    float64
	Outstanding  float64
}

type agentDashboardView struct {
	TodayTotal  float64
	TodayCount  int
	Loans       []agentLoanRow
	PendingDues float64
}

type agentLoansView struct {
	Loans          []agentLoanRow
	PaymentMethods []string
}

type historyRow struct {
	CreatedAt     time.Time
	Reference     string
	CustomerName  string
	Amount        float64
	PaymentMethod string
	Notes         string
}

type agentHistoryView struct {
	Collections []historyRow
}

type agentPerformanceView struct {
	CollectionRate    float64
	MonthlyTarget     float64
	TargetAchievement float64
	CollectionCount   int
}

type staffDashboardView struct {
	CustomerCount    int64
	LoanCount        int64
	ApplicationCount int64
}

func (handlers *AgentHandlers) Dashboard(context *gin.Context) {
	currentUser, _ := CurrentUserFromContext(context)
	loans, collections, queryErr := handlers.assignedLoans(currentUser.Email)

	view := agentDashboardView{Loans: loans}
	startOfDay := truncateToDay(handlers.now())
	for _, collection := range collections {
		if !collection.CreatedAt.Before(startOfDay) {
			view.TodayTotal += collection.Amount
			view.TodayCount++
		}
	}
	for _, loan := range loans {
		view.PendingDues += loan.Outstanding
	}
	renderPageWithQueryError(handlers.renderer, handlers.logger, context, pageAgentDashboard, "Collection Agent Dashboard", view, queryErr)
}

func (handlers *AgentHandlers) Loans(context *gin.Context) {
	currentUser, _ := CurrentUserFromContext(context)
	loans, _, queryErr := handlers.assignedLoans(currentUser.Email)
	view := agentLoansView{Loans: loans, PaymentMethods: paymentMethods}
	renderPageWithQueryError(handlers.renderer, handlers.logger, context, pageAgentLoans, "My Loans", view, queryErr)
}

func (handlers *AgentHandlers) Collect(context *gin.Context) {
	currentUser, _ := CurrentUserFromContext(context)
	loanID := strings.TrimSpace(context.PostForm(formFieldLoanID))
	method := strings.TrimSpace(context.PostForm(formFieldPaymentMethod))
	if loanID == "" {
		handlers.redirectWithFlash(context, flashKindError, messageLoanRequired)
		return
	}
	amount, amountErr := parseAmount(context.PostForm(formFieldAmount))
	if amountErr != nil {
		handlers.redirectWithFlash(context, flashKindError, messageAmountInvalid)
		return
	}
	if !contains(paymentMethods, method) {
		handlers.redirectWithFlash(context, flashKindError, messageMethodRequired)
		return
	}

	var loan model.Loan
	lookupErr := handlers.database.First(&loan, "id = ? AND assigned_agent = ?", loanID, currentUser.Email).Error
	if lookupErr != nil {
		if errors.Is(lookupErr, gorm.ErrRecordNotFound) {
			handlers.logger.Info(logEventAgentWrite, zap.String(logFieldLoanID, loanID), zap.Error(errLoanNotAssigned))
			handlers.redirectWithFlash(context, flashKindError, messageLoanNotAssigned)
			return
		}
		handlers.writeFailed(context, lookupErr)
		return
	}

	collection := model.Collection{
		ID:            storage.NewID(),
		LoanID:        loan.ID,
		AgentEmail:    currentUser.Email,
		Amount:        amount,
		PaymentMethod: method,
		Notes:         strings.TrimSpace(context.PostForm(formFieldNotes)),
	}
	if createErr := handlers.database.Create(&collection).Error; createErr != nil {
		handlers.writeFailed(context, createErr)
		return
	}
	recordAudit(handlers.database, handlers.logger, currentUser.Email, auditActionPayment, fmt.Sprintf(auditDetailAmountFormat, loan.Reference, amount))
	handlers.redirectWithFlash(context, flashKindSuccess, messagePaymentCollected)
}

func (handlers *AgentHandlers) History(context *gin.Context) {
	currentUser, _ := CurrentUserFromContext(context)

	var collections []model.Collection
	var loans []model.Loan
	queryErr := firstError(
		handlers.database.Where("agent_email = ?", currentUser.Email).Order("created_at desc").Find(&collections).Error,
		handlers.database.Preload("Customer").Find(&loans).Error,
	)
	loansByID := make(map[string]model.Loan, len(loans))
	for _, loan := range loans {
		loansByID[loan.ID] = loan
	}

	view := agentHistoryView{}
	for _, collection := range collections {
		loan := loansByID[collection.LoanID]
		view.Collections = append(view.Collections, historyRow{
			CreatedAt:     collection.CreatedAt,
			Reference:     loan.Reference,
			CustomerName:  loan.Customer.FullName,
			Amount:        collection.Amount,
			PaymentMethod: collection.PaymentMethod,
			Notes:         collection.Notes,
		})
	}
	renderPageWithQueryError(handlers.renderer, handlers.logger, context, pageAgentHistory, "Collection History", view, queryErr)
}

// Performance reports the share of assigned dues repaid and progress against
// the monthly target.
func (handlers *AgentHandlers) Performance(context *gin.Context) {
	currentUser, _ := CurrentUserFromContext(context)
	loans, collections, queryErr := handlers.assignedLoans(currentUser.Email)

	view := agentPerformanceView{MonthlyTarget: monthlyCollectionTarget, CollectionCount: len(collections)}
	var totalDue, collected float64
	for _, loan := range loans {
		totalDue += loan.TotalDue
		collected += loan.Collected
	}
	if totalDue > 0 {
		view.CollectionRate = collected / totalDue * percentScale
	}

	startOfMonth := truncateToMonth(handlers.now())
	var monthTotal float64
	for _, collection := range collections {
		if !collection.CreatedAt.Before(startOfMonth) {
			monthTotal += collection.Amount
		}
	}
	view.TargetAchievement = monthTotal / monthlyCollectionTarget * percentScale
	renderPageWithQueryError(handlers.renderer, handlers.logger, context, pageAgentPerformance, "Performance", view, queryErr)
}

// assignedLoans returns the agent's loans with repayment totals and every
// collection the agent recorded.
func (handlers *AgentHandlers) assignedLoans(agentEmail string) ([]agentLoanRow, []model.Collection, error) {
	var loans []model.Loan
	var collections []model.Collection
	queryErr := firstError(
		handlers.database.Preload("Customer").Where("assigned_agent = ?", agentEmail).Order("reference asc").Find(&loans).Error,
		handlers.database.Where("agent_email = ?", agentEmail).Find(&collections).Error,
	)

	collectedByLoan := make(map[string]float64, len(loans))
	for _, collection := range collections {
		collectedByLoan[collection.LoanID] += collection.Amount
	}
	rows := make([]agentLoanRow, 0, len(loans))
	for _, loan := range loans {
		collected := collectedByLoan[loan.ID]
		rows = append(rows, agentLoanRow{
			ID:           loan.ID,
			Reference:    loan.Reference,
			CustomerName: loan.Customer.FullName,
			TotalDue:     loan.TotalDue,
			Collected:    collected,
			Outstanding:  outstanding(loan.TotalDue, collected),
		})
	}
	return rows, collections, queryErr
}

func (handlers *AgentHandlers) redirectWithFlash(context *gin.Context, kind string, message string) {
	handlers.auth.addFlash(context, kind, message)
	context.Redirect(http.StatusSeeOther, RouteAgentLoans)
}

func (handlers *AgentHandlers) writeFailed(context *gin.Context, writeErr error) {
	handlers.logger.Error(logEventAgentWrite, zap.Error(writeErr))
	handlers.redirectWithFlash(context, flashKindError, messageSaveFailed)
}

// StaffHandlers serves the read-only staff dashboard.
type StaffHandlers struct {
	database *gorm.DB
	logger   *zap.Logger
	renderer *pageRenderer
}

func newStaffHandlers(database *gorm.DB, logger *zap.Logger, renderer *pageRenderer) *StaffHandlers {
	return &StaffHandlers{database: database, logger: logger, renderer: renderer}
}

func (handlers *StaffHandlers) Dashboard(context *gin.Context) {
	view := staffDashboardView{}
	queryErr := firstError(
		handlers.database.Model(&model.Customer{}).Count(&view.CustomerCount).Error,
		handlers.database.Model(&model.Loan{}).Count(&view.LoanCount).Error,
		handlers.database.Model(&model.LoanApplication{}).Count(&view.ApplicationCount).Error,
	)
	renderPageWithQueryError(handlers.renderer, handlers.logger, context, pageStaffDashboard, "Staff Dashboard", view, queryErr)
}

func truncateToDay(moment time.Time) time.Time {
	year, month, day := moment.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, moment.Location())
}

func truncateToMonth(moment time.Time) time.Time {
	year, month, _ := moment.Date()
	return time.Date(year, month, 1, 0, 0, 0, 0, moment.Location())
}
