// Package sqlite implements a SQLite-based persistence driver using GORM.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/hrbotdev/hrbot/internal/store"
)

func init() {
	store.Register("sqlite", NewDriver)
}

// Driver implements the store interfaces using SQLite via GORM.
type Driver struct {
	dataDir string
	db      *gorm.DB
}

// NewDriver creates a new SQLite driver instance.
func NewDriver(cfg *store.DriverConfig) (store.Driver, error) {
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("data_dir is required for sqlite driver")
	}

	return &Driver{
		dataDir: cfg.DataDir,
	}, nil
}

// Name returns the driver name.
func (d *Driver) Name() string {
	return "sqlite"
}

// Init initializes the SQLite database and runs AutoMigrate.
func (d *Driver) Init(ctx context.Context) error {
	dbPath := filepath.Join(d.dataDir, "hrbot.db")

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	d.db = db

	// AutoMigrate creates/updates tables based on model structs
	if err := db.AutoMigrate(
		&store.User{},
		&store.Company{},
		&store.Employee{},
		&store.UserCompany{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (d *Driver) Close() error {
	if d.db == nil {
		return nil
	}
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// translate maps GORM errors to store sentinel errors.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return store.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return store.ErrAlreadyExists
	default:
		return err
	}
}

// UserStore implementation

// CreateUser creates a new admin user.
func (d *Driver) CreateUser(ctx context.Context, user *store.User) error {
	return translate(d.db.WithContext(ctx).Create(user).Error)
}

// GetUser retrieves a user by id.
func (d *Driver) GetUser(ctx context.Context, id string) (*store.User, error) {
	var user store.User
	if err := d.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// GetUserByEmail retrieves a user by email.
func (d *Driver) GetUserByEmail(ctx context.Context, email string) (*store.User, error) {
	var user store.User
	if err := d.db.WithContext(ctx).First(&user, "email = ?", email).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// UpdateUser updates an existing user.
func (d *Driver) UpdateUser(ctx context.Context, user *store.User) error {
	return translate(d.db.WithContext(ctx).Save(user).Error)
}

// CompanyStore implementation

// CreateCompany creates a new company.
func (d *Driver) CreateCompany(ctx context.Context, company *store.Company) error {
	return translate(d.db.WithContext(ctx).Create(company).Error)
}

// GetCompany retrieves a company by id.
func (d *Driver) GetCompany(ctx context.Context, id string) (*store.Company, error) {
	var company store.Company
	if err := d.db.WithContext(ctx).First(&company, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &company, nil
}

// GetCompanyByName retrieves a company by name within an owner's scope.
func (d *Driver) GetCompanyByName(ctx context.Context, userID, name string) (*store.Company, error) {
	var company store.Company
	err := d.db.WithContext(ctx).First(&company, "user_id = ? AND name = ?", userID, name).Error
	if err != nil {
		return nil, translate(err)
	}
	return &company, nil
}

// ListCompanies returns the companies owned by a user.
func (d *Driver) ListCompanies(ctx context.Context, userID string, offset, limit int) ([]*store.Company, error) {
	var companies []*store.Company
	query := d.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at")
	if offset > 0 {
		query = query.Offset(offset)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&companies).Error; err != nil {
		return nil, err
	}
	return companies, nil
}

// UpdateCompany updates an existing company.
func (d *Driver) UpdateCompany(ctx context.Context, company *store.Company) error {
	return translate(d.db.WithContext(ctx).Save(company).Error)
}

// UpdateCompanyToken persists a refreshed access token and its expiry.
func (d *Driver) UpdateCompanyToken(ctx context.Context, companyID, token string, expiry time.Time) error {
	result := d.db.WithContext(ctx).Model(&store.Company{}).
		Where("id = ?", companyID).
		Updates(map[string]any{
			"access_token": token,
			"token_expiry": expiry,
		})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeleteCompany removes a company and its employees.
func (d *Driver) DeleteCompany(ctx context.Context, id string) error {
	// SQLite does not always enforce FK cascades; delete children explicitly
	// inside one transaction.
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&store.Employee{}, "company_id = ?", id).Error; err != nil {
			return err
		}
		result := tx.Delete(&store.Company{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return store.ErrNotFound
		}
		return nil
	})
}

// EmployeeStore implementation

// CreateEmployees inserts the given employees in a single transaction.
func (d *Driver) CreateEmployees(ctx context.Context, employees []*store.Employee) error {
	if len(employees) == 0 {
		return nil
	}
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, emp := range employees {
			if err := tx.Create(emp).Error; err != nil {
				return translate(err)
			}
		}
		return nil
	})
}

// GetEmployeeByExternalID retrieves an employee by GreytHR id within a company.
func (d *Driver) GetEmployeeByExternalID(ctx context.Context, companyID, employeeID string) (*store.Employee, error) {
	var emp store.Employee
	err := d.db.WithContext(ctx).First(&emp, "company_id = ? AND employee_id = ?", companyID, employeeID).Error
	if err != nil {
		return nil, translate(err)
	}
	return &emp, nil
}

// GetEmployeeByEmail retrieves an employee by email.
func (d *Driver) GetEmployeeByEmail(ctx context.Context, email string) (*store.Employee, error) {
	var emp store.Employee
	if err := d.db.WithContext(ctx).First(&emp, "email = ?", email).Error; err != nil {
		return nil, translate(err)
	}
	return &emp, nil
}

// ListEmployees returns all employees for a company.
func (d *Driver) ListEmployees(ctx context.Context, companyID string) ([]*store.Employee, error) {
	var employees []*store.Employee
	err := d.db.WithContext(ctx).Where("company_id = ?", companyID).Order("employee_id").Find(&employees).Error
	if err != nil {
		return nil, err
	}
	return employees, nil
}

// Compile-time interface checks
var _ store.Driver = (*Driver)(nil)
var _ store.UserStore = (*Driver)(nil)
var _ store.CompanyStore = (*Driver)(nil)
var _ store.EmployeeStore = (*Driver)(nil)
