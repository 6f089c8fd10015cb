// Package store provides persistence primitives and driver abstractions.
package store

import (
	"context"
	"errors"
	"time"
)

// Common errors for store operations.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrClosed        = errors.New("store closed")
)

// Driver defines the interface for a persistence backend.
// Implementations must be safe for concurrent use.
type Driver interface {
	// Init initializes the driver (create tables, load data, etc).
	Init(ctx context.Context) error

	// Close releases resources held by the driver.
	Close() error

	// Name returns the driver name (sqlite).
	Name() string
}

// Backend is the full persistence surface a driver provides.
type Backend interface {
	Driver
	UserStore
	CompanyStore
	EmployeeStore
}

// UserStore defines operations for admin user persistence.
type UserStore interface {
	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	UpdateUser(ctx context.Context, user *User) error
}

// CompanyStore defines operations for company (tenant) persistence.
type CompanyStore interface {
	CreateCompany(ctx context.Context, company *Company) error
	GetCompany(ctx context.Context, id string) (*Company, error)

	// GetCompanyByName retrieves a company by name within an owner's scope.
	GetCompanyByName(ctx context.Context, userID, name string) (*Company, error)

	ListCompanies(ctx context.Context, userID string, offset, limit int) ([]*Company, error)
	UpdateCompany(ctx context.Context, company *Company) error

	// UpdateCompanyToken persists a refreshed access token and its expiry.
	// Last writer wins; there is no per-tenant locking.
	UpdateCompanyToken(ctx context.Context, companyID, token string, expiry time.Time) error

	// DeleteCompany removes a company and cascades to its employees.
	DeleteCompany(ctx context.Context, id string) error
}

// EmployeeStore defines operations for synced roster entries.
type EmployeeStore interface {
	// CreateEmployees inserts the given employees in a single transaction.
	// Either all rows commit or none do.
	CreateEmployees(ctx context.Context, employees []*Employee) error

	// GetEmployeeByExternalID retrieves an employee by its GreytHR id
	// within a company's scope.
	GetEmployeeByExternalID(ctx context.Context, companyID, employeeID string) (*Employee, error)

	GetEmployeeByEmail(ctx context.Context, email string) (*Employee, error)
	ListEmployees(ctx context.Context, companyID string) ([]*Employee, error)
}

// User is a company admin who manages GreytHR credentials.
type User struct {
	ID           string     `json:"id" gorm:"primaryKey;size:36"`
	Email        string     `json:"email" gorm:"uniqueIndex;not null"`
	Name         string     `json:"name" gorm:"not null"`
	PasswordHash string     `json:"-" gorm:"not null"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Company is a tenant owning GreytHR credentials and a synced roster.
// GreytHRPassword holds Fernet ciphertext, never plaintext.
type Company struct {
	ID              string     `json:"id" gorm:"primaryKey;size:36"`
	Name            string     `json:"name" gorm:"not null;uniqueIndex:uix_company_name_user"`
	GreytHRUsername string     `json:"greyt_hr_username" gorm:"not null"`
	GreytHRPassword string     `json:"-" gorm:"not null"`
	AccessToken     string     `json:"access_token,omitempty"`
	TokenExpiry     *time.Time `json:"token_expiry,omitempty"`
	UserID          string     `json:"user_id" gorm:"size:36;not null;uniqueIndex:uix_company_name_user;index"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`

	Employees []Employee `json:"-" gorm:"constraint:OnDelete:CASCADE"`
}

// TokenValid reports whether the stored access token is usable now.
func (c *Company) TokenValid(now time.Time) bool {
	return c.AccessToken != "" && c.TokenExpiry != nil && now.Before(*c.TokenExpiry)
}

// Employee is a roster entry synced from GreytHR.
// EmployeeID is the external GreytHR identity, unique per company.
type Employee struct {
	ID         string    `json:"id" gorm:"primaryKey;size:36"`
	EmployeeID string    `json:"employee_id" gorm:"not null;uniqueIndex:uix_employee_ext_company;index"`
	Name       string    `json:"name" gorm:"not null"`
	Email      string    `json:"email" gorm:"not null;index"`
	CompanyID  string    `json:"company_id" gorm:"size:36;not null;uniqueIndex:uix_employee_ext_company;index"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// UserCompany is the many-to-many association between users and companies.
// Present in the schema for forward compatibility; no handler writes it yet.
type UserCompany struct {
	UserID    string    `json:"user_id" gorm:"primaryKey;size:36"`
	CompanyID string    `json:"company_id" gorm:"primaryKey;size:36"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName keeps the association table name from the original schema.
func (UserCompany) TableName() string { return "user_companies" }
