package greythr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hrbotdev/hrbot/internal/store"
)

// SyncStores is the persistence surface a roster sync needs.
type SyncStores interface {
	store.CompanyStore
	store.EmployeeStore
}

// SyncStats summarizes one roster sync run.
type SyncStats struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
}

// Syncer imports a company's roster from GreytHR. Sync only creates
// records missing locally; existing employees are never updated or
// deleted. All creations from one run commit in a single transaction,
// so a failed run leaves the roster untouched.
type Syncer struct {
	client   *Client
	tokens   *TokenSource
	pageSize int
	logger   *slog.Logger
}

// NewSyncer creates a Syncer paging the roster pageSize records at a time.
func NewSyncer(client *Client, tokens *TokenSource, pageSize int, logger *slog.Logger) *Syncer {
	return &Syncer{
		client:   client,
		tokens:   tokens,
		pageSize: pageSize,
		logger:   logger,
	}
}

// Sync runs one full roster import for the company. Any error aborts
// the whole run as a SyncError with nothing persisted.
func (s *Syncer) Sync(ctx context.Context, db SyncStores, company *store.Company) (SyncStats, error) {
	var stats SyncStats

	token, err := s.tokens.Token(ctx, db, company)
	if err != nil {
		return stats, &SyncError{Err: err}
	}
	domain := Domain(company.Name)

	var roster []RosterRecord
	for page := 1; ; page++ {
		records, err := s.client.EmployeesPage(ctx, token, domain, page, s.pageSize)
		if err != nil {
			return stats, &SyncError{Err: fmt.Errorf("fetch roster page %d: %w", page, err)}
		}
		roster = append(roster, records...)
		if len(records) < s.pageSize {
			break
		}
	}

	var missing []*store.Employee
	for _, record := range roster {
		_, err := db.GetEmployeeByExternalID(ctx, company.ID, record.ExternalID)
		if err == nil {
			stats.Skipped++
			continue
		}
		if !errors.Is(err, store.ErrNotFound) {
			return SyncStats{}, &SyncError{Err: fmt.Errorf("look up employee %s: %w", record.ExternalID, err)}
		}
		missing = append(missing, &store.Employee{
			ID:         uuid.NewString(),
			EmployeeID: record.ExternalID,
			Name:       record.Name,
			Email:      record.Email,
			CompanyID:  company.ID,
		})
	}

	if len(missing) > 0 {
		if err := db.CreateEmployees(ctx, missing); err != nil {
			return SyncStats{}, &SyncError{Err: fmt.Errorf("persist %d employees: %w", len(missing), err)}
		}
	}
	stats.Created = len(missing)

	s.logger.Info("roster sync finished",
		"company_id", company.ID,
		"fetched", len(roster),
		"created", stats.Created,
		"skipped", stats.Skipped)
	return stats, nil
}
