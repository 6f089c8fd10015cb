package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hrbotdev/hrbot/internal/greythr"
	"github.com/hrbotdev/hrbot/internal/store"
)

// transactionLookback bounds the transaction history included with a
// question.
const transactionLookback = 30 * 24 * time.Hour

// Stores is the persistence surface the responder needs.
type Stores interface {
	store.CompanyStore
	store.EmployeeStore
}

// Responder answers one question at a time: it matches the asker to a
// synced employee by email, pulls their current leave data, and asks
// the model with that data in context.
type Responder struct {
	db     Stores
	leave  *greythr.Client
	tokens *greythr.TokenSource
	model  Generator
	logger *slog.Logger
	now    func() time.Time
}

// NewResponder wires a Responder.
func NewResponder(db Stores, leave *greythr.Client, tokens *greythr.TokenSource, model Generator, logger *slog.Logger) *Responder {
	return &Responder{
		db:     db,
		leave:  leave,
		tokens: tokens,
		model:  model,
		logger: logger,
		now:    time.Now,
	}
}

// Answer responds to a question. Missing employee records or
// unavailable leave data degrade to a policy-only answer rather than
// failing the whole exchange.
func (r *Responder) Answer(ctx context.Context, q Question) (string, error) {
	if q.Text == "" {
		return fmt.Sprintf("Hi %s! Ask me anything about your leave, like \"what's my casual leave balance?\"", q.UserName), nil
	}

	leaveInfo := r.leaveInfo(ctx, q.UserEmail)
	answer, err := r.model.Generate(ctx, BuildPrompt(q, leaveInfo))
	if err != nil {
		return "", fmt.Errorf("answer question: %w", err)
	}
	return answer, nil
}

// leaveInfo returns the asker's formatted leave data, or "" when the
// employee is unknown or GreytHR cannot be reached.
func (r *Responder) leaveInfo(ctx context.Context, email string) string {
	if email == "" {
		return ""
	}

	employee, err := r.db.GetEmployeeByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			r.logger.Warn("employee lookup failed", "error", err)
		}
		return ""
	}

	company, err := r.db.GetCompany(ctx, employee.CompanyID)
	if err != nil {
		r.logger.Warn("company lookup failed", "company_id", employee.CompanyID, "error", err)
		return ""
	}

	token, err := r.tokens.Token(ctx, r.db, company)
	if err != nil {
		r.logger.Warn("greythr token unavailable", "company_id", company.ID, "error", err)
		return ""
	}

	domain := greythr.Domain(company.Name)
	now := r.now()
	year := now.Year()

	var parts []string
	balance, err := r.leave.Balance(ctx, token, domain, employee.EmployeeID, year)
	if err != nil {
		r.logger.Warn("leave balance unavailable", "employee_id", employee.EmployeeID, "error", err)
	} else {
		parts = append(parts, greythr.FormatBalance(balance))
	}

	start := now.Add(-transactionLookback).Format("2006-01-02")
	end := now.Format("2006-01-02")
	txns, err := r.leave.Transactions(ctx, token, domain, employee.EmployeeID, year, start, end)
	if err != nil {
		r.logger.Warn("leave transactions unavailable", "employee_id", employee.EmployeeID, "error", err)
	} else {
		parts = append(parts, greythr.FormatTransactions(txns))
	}

	if len(parts) == 0 {
		return ""
	}
	info := parts[0]
	for _, p := range parts[1:] {
		info += "\n\n" + p
	}
	return info
}
