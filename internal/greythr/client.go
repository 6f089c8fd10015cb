package greythr

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/hrbotdev/hrbot/internal/httpclient"
)

// Client issues authenticated requests against the GreytHR REST API.
// Callers obtain tokens from a TokenSource and pass them in per call.
type Client struct {
	http    *httpclient.Client
	baseURL string
}

// NewClient creates a Client for the given API base, e.g.
// "https://api.greythr.com".
func NewClient(client *httpclient.Client, baseURL string) *Client {
	return &Client{http: client, baseURL: baseURL}
}

// RosterRecord is one employee row from the GreytHR roster.
type RosterRecord struct {
	ExternalID string
	Name       string
	Email      string
}

// rosterResponse mirrors the employees endpoint payload. Employee ids
// arrive as JSON numbers.
type rosterResponse struct {
	Data []struct {
		EmployeeID json.Number `json:"employeeId"`
		Name       string      `json:"name"`
		Email      string      `json:"email"`
	} `json:"data"`
}

// EmployeesPage fetches one roster page (1-based).
func (c *Client) EmployeesPage(ctx context.Context, token, domain string, page, size int) ([]RosterRecord, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("size", strconv.Itoa(size))

	body, err := c.get(ctx, token, domain, "/employee/v2/employees?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var parsed rosterResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode roster page %d: %w", page, err)
	}

	records := make([]RosterRecord, 0, len(parsed.Data))
	for _, row := range parsed.Data {
		records = append(records, RosterRecord{
			ExternalID: row.EmployeeID.String(),
			Name:       row.Name,
			Email:      row.Email,
		})
	}
	return records, nil
}

// LeaveBalance is the per-category leave balance for one employee year.
type LeaveBalance struct {
	List []LeaveBalanceEntry `json:"list"`
}

// LeaveBalanceEntry is one leave category's balance.
type LeaveBalanceEntry struct {
	LeaveType LeaveType `json:"leaveTypeCategory"`
	Grant     float64   `json:"grant"`
	Availed   float64   `json:"availed"`
	Balance   float64   `json:"balance"`
}

// LeaveType names a leave category.
type LeaveType struct {
	Description string `json:"description"`
}

// LeaveTransactions is the leave transaction history for a date range.
type LeaveTransactions struct {
	List []LeaveTransaction `json:"list"`
}

// LeaveTransaction is one applied leave entry.
type LeaveTransaction struct {
	Type     LeaveType `json:"leaveTransactionType"`
	FromDate string    `json:"fromDate"`
	ToDate   string    `json:"toDate"`
	Days     float64   `json:"days"`
	Reason   string    `json:"reason"`
}

// Balance fetches the employee's leave balance for a year.
func (c *Client) Balance(ctx context.Context, token, domain, employeeID string, year int) (*LeaveBalance, error) {
	path := fmt.Sprintf("/leave/v2/employee/%s/years/%d/balance", url.PathEscape(employeeID), year)
	body, err := c.get(ctx, token, domain, path)
	if err != nil {
		return nil, err
	}

	var balance LeaveBalance
	if err := json.Unmarshal(body, &balance); err != nil {
		return nil, fmt.Errorf("decode leave balance: %w", err)
	}
	return &balance, nil
}

// Transactions fetches the employee's leave transactions between start
// and end (inclusive, YYYY-MM-DD) within a year.
func (c *Client) Transactions(ctx context.Context, token, domain, employeeID string, year int, start, end string) (*LeaveTransactions, error) {
	q := url.Values{}
	q.Set("start", start)
	q.Set("end", end)
	path := fmt.Sprintf("/leave/v2/employee/%s/years/%d/transactions?%s", url.PathEscape(employeeID), year, q.Encode())

	body, err := c.get(ctx, token, domain, path)
	if err != nil {
		return nil, err
	}

	var txns LeaveTransactions
	if err := json.Unmarshal(body, &txns); err != nil {
		return nil, fmt.Errorf("decode leave transactions: %w", err)
	}
	return &txns, nil
}

func (c *Client) get(ctx context.Context, token, domain, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("ACCESS-TOKEN", token)
	req.Header.Set("x-greythr-domain", domain)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	body, err := c.http.ReadBody(resp)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	switch {
	case resp.StatusCode >= 300 && resp.StatusCode < 400:
		return nil, &AuthError{Reason: "redirected by API, token not accepted"}
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return nil, &AuthError{Reason: fmt.Sprintf("API rejected token with status %d", resp.StatusCode)}
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("GET %s: unexpected status %d", path, resp.StatusCode)
	}
	return body, nil
}
