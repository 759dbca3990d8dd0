package locator

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Logical field names understood by the default catalog.
const (
	FieldLoginIdentifier      = "login.identifier"
	FieldLoginSecret          = "login.secret"
	FieldLoginSubmit          = "login.submit"
	FieldLogout               = "logout"
	FieldErrorIndicator       = "error.indicator"
	FieldSignupUsername       = "signup.username"
	FieldSignupEmail          = "signup.email"
	FieldSignupPassword       = "signup.password"
	FieldSignupConfirm        = "signup.confirm"
	FieldSignupRole           = "signup.role"
	FieldSignupSubmit         = "signup.submit"
	FieldAdminUsersList       = "admin.users.list"
	FieldAdminRolesList       = "admin.roles.list"
	FieldAdminDisbursements   = "admin.disbursements.list"
	FieldAdminAuditList       = "admin.audit.list"
	FieldAgentSummary         = "agent.summary"
	FieldAgentAssignedLoans   = "agent.assigned"
	FieldAgentPendingDues     = "agent.dues"
	FieldAgentHistoryList     = "agent.history.list"
	FieldAgentPerformance     = "agent.performance"
	FieldCustomersList        = "customers.list"
	FieldCustomersSearch      = "customers.search"
	FieldLoanDetails          = "loans.details"
	FieldSuccessIndicator     = "success.indicator"
	errorMessageUnknownField  = "locator: unknown catalog field"
	errorMessageReadCatalog   = "locator: read catalog"
	errorMessageParseCatalog  = "locator: parse catalog"
	errorMessageCatalogFormat = "unsupported yaml node kind %d for candidate list"
)

// ErrUnknownField indicates a lookup for a field the catalog does not define.
var ErrUnknownField = errors.New(errorMessageUnknownField)

// Catalog maps logical field names to their candidate lists.
type Catalog map[string]Candidates

// DefaultCatalog returns the built-in candidate lists for the portal.
func DefaultCatalog() Catalog {
	return Catalog{
		FieldLoginIdentifier:    Parse("input[type='email']", "input[name='email']", "#email", ".email-input"),
		FieldLoginSecret:        Parse("input[type='password']", "input[name='password']", "#password", ".password-input"),
		FieldLoginSubmit:        Parse("button[type='submit']", "input[type='submit']", ".login-btn", "#login-btn"),
		FieldLogout:             Parse("//button[contains(text(), 'Logout')]", "//button[contains(text(), 'Sign Out')]", "//a[contains(text(), 'Logout')]", "//a[contains(text(), 'Sign Out')]", ".logout-btn", "[data-testid='logout']"),
		FieldErrorIndicator:     Parse(".error-msg", ".error-message", ".alert-danger"),
		FieldSignupUsername:     Parse("input[name='username']", "#username"),
		FieldSignupEmail:        Parse("input[name='email']", "input[type='email']"),
		FieldSignupPassword:     Parse("input[name='password']"),
		FieldSignupConfirm:      Parse("input[name='confirmPassword']", "input[name='confirm_password']"),
		FieldSignupRole:         Parse("select[name='role']"),
		FieldSignupSubmit:       Parse("button[type='submit']", "input[type='submit']"),
		FieldAdminUsersList:     Parse("table", ".users-list"),
		FieldAdminRolesList:     Parse("table", ".roles-list"),
		FieldAdminDisbursements: Parse("table", ".disbursements-list"),
		FieldAdminAuditList:     Parse("table", ".audit-logs"),
		FieldAgentSummary:       Parse(".today-summary", ".summary-card"),
		FieldAgentAssignedLoans: Parse(".assigned-loans", ".loans-section"),
		FieldAgentPendingDues:   Parse(".pending-dues", ".dues-section"),
		FieldAgentHistoryList:   Parse("table", ".history-list"),
		FieldAgentPerformance:   Parse(".performance-metrics", ".metrics-container"),
		FieldCustomersList:      Parse("table", ".customer-list"),
		FieldCustomersSearch:    Parse("input[placeholder*='search']", "input[placeholder*='Search']", "input[type='search']"),
		FieldLoanDetails:        Parse(".loan-details", ".loan-info"),
		FieldSuccessIndicator:   Parse(".success-msg", ".alert-success", "[role='status']"),
	}
}

// Candidates returns the list registered for field.
func (catalog Catalog) Candidates(field string) (Candidates, error) {
	candidates, found := catalog[field]
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	return candidates, nil
}

// MustCandidates returns the list registered for field and panics when it is missing.
func (catalog Catalog) MustCandidates(field string) Candidates {
	candidates, lookupErr := catalog.Candidates(field)
	if lookupErr != nil {
		panic(lookupErr)
	}
	return candidates
}

// Fields returns the catalog's field names in sorted order.
func (catalog Catalog) Fields() []string {
	fields := make([]string, 0, len(catalog))
	for field := range catalog {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}

// Merge returns a new catalog where every field of overrides replaces the
// receiver's list of the same name.
func (catalog Catalog) Merge(overrides Catalog) Catalog {
	merged := make(Catalog, len(catalog)+len(overrides))
	for field, candidates := range catalog {
		merged[field] = append(Candidates(nil), candidates...)
	}
	for field, candidates := range overrides {
		merged[field] = append(Candidates(nil), candidates...)
	}
	return merged
}

type candidateList []string

func (list *candidateList) UnmarshalYAML(node *yaml.Node) error {
	if node == nil {
		*list = nil
		return nil
	}
	switch node.Kind {
	case yaml.ScalarNode:
		value := strings.TrimSpace(node.Value)
		if value == "" {
			*list = nil
			return nil
		}
		*list = []string{value}
		return nil
	case yaml.SequenceNode:
		entries := make([]string, 0, len(node.Content))
		for _, child := range node.Content {
			if child == nil {
				continue
			}
			value := strings.TrimSpace(child.Value)
			if value == "" {
				continue
			}
			entries = append(entries, value)
		}
		*list = entries
		return nil
	default:
		return fmt.Errorf(errorMessageCatalogFormat, node.Kind)
	}
}

type catalogFile struct {
	Fields map[string]candidateList `yaml:"fields"`
}

// ParseCatalog decodes a YAML catalog document without merging defaults.
//
//	fields:
//	  login.identifier:
//	    - "input[type='email']"
//	  logout: "//button[contains(text(), 'Logout')]"
func ParseCatalog(document []byte) (Catalog, error) {
	var decoded catalogFile
	if decodeErr := yaml.Unmarshal(document, &decoded); decodeErr != nil {
		return nil, fmt.Errorf("%s: %w", errorMessageParseCatalog, decodeErr)
	}
	catalog := make(Catalog, len(decoded.Fields))
	for field, expressions := range decoded.Fields {
		trimmedField := strings.TrimSpace(field)
		if trimmedField == "" {
			continue
		}
		catalog[trimmedField] = Parse(expressions...)
	}
	return catalog, nil
}

// LoadCatalog reads the YAML file at path and merges it over DefaultCatalog.
// An empty path yields the defaults.
func LoadCatalog(path string) (Catalog, error) {
	trimmedPath := strings.TrimSpace(path)
	if trimmedPath == "" {
		return DefaultCatalog(), nil
	}
	document, readErr := os.ReadFile(trimmedPath)
	if readErr != nil {
		return nil, fmt.Errorf("%s %s: %w", errorMessageReadCatalog, trimmedPath, readErr)
	}
	overrides, parseErr := ParseCatalog(document)
	if parseErr != nil {
		return nil, parseErr
	}
	return DefaultCatalog().Merge(overrides), nil
}
