package api

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hrbotdev/hrbot/internal/crypto"
	"github.com/hrbotdev/hrbot/internal/greythr"
	"github.com/hrbotdev/hrbot/internal/store"
)

// defaultListLimit caps company listings when the client does not page.
const defaultListLimit = 50

// CompanyStores is the persistence surface the company handlers need.
type CompanyStores interface {
	store.CompanyStore
	store.EmployeeStore
}

// CompanyHandler serves tenant CRUD and roster import. Companies are
// addressed by name within the authenticated owner's scope.
type CompanyHandler struct {
	db     CompanyStores
	cipher *crypto.Cipher
	syncer *greythr.Syncer
	logger *slog.Logger
}

// NewCompanyHandler creates a CompanyHandler.
func NewCompanyHandler(db CompanyStores, cipher *crypto.Cipher, syncer *greythr.Syncer, logger *slog.Logger) *CompanyHandler {
	return &CompanyHandler{
		db:     db,
		cipher: cipher,
		syncer: syncer,
		logger: logger,
	}
}

type companyRequest struct {
	Name            string `json:"name"`
	GreytHRUsername string `json:"greyt_hr_username"`
	GreytHRPassword string `json:"greyt_hr_password"`
}

type companyWithSync struct {
	*store.Company
	Sync greythr.SyncStats `json:"sync"`
}

// Create handles POST /api/v1/companies. A new company is only kept if
// its initial roster sync succeeds; bad credentials must not leave a
// half-configured tenant behind.
func (h *CompanyHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	var req companyRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		WriteValidationError(w, err.Error())
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	switch {
	case req.Name == "":
		WriteValidationError(w, "name is required")
		return
	case req.GreytHRUsername == "":
		WriteValidationError(w, "greyt_hr_username is required")
		return
	case req.GreytHRPassword == "":
		WriteValidationError(w, "greyt_hr_password is required")
		return
	}

	encrypted, err := h.cipher.Encrypt([]byte(req.GreytHRPassword))
	if err != nil {
		h.logger.Error("password encryption failed", "error", err)
		WriteInternalError(w, "could not create company")
		return
	}

	company := &store.Company{
		ID:              uuid.NewString(),
		Name:            req.Name,
		GreytHRUsername: req.GreytHRUsername,
		GreytHRPassword: encrypted,
		UserID:          user.ID,
	}
	if err := h.db.CreateCompany(r.Context(), company); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			WriteConflict(w, "a company with this name already exists")
			return
		}
		h.logger.Error("create company failed", "error", err)
		WriteInternalError(w, "could not create company")
		return
	}

	stats, err := h.syncer.Sync(r.Context(), h.db, company)
	if err != nil {
		if delErr := h.db.DeleteCompany(r.Context(), company.ID); delErr != nil {
			h.logger.Error("rollback of unsynced company failed",
				"company_id", company.ID, "error", delErr)
		}
		writeGreytHRError(w, h.logger, err)
		return
	}

	WriteJSON(w, http.StatusCreated, companyWithSync{Company: company, Sync: stats})
}

// List handles GET /api/v1/companies.
func (h *CompanyHandler) List(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > defaultListLimit {
		limit = defaultListLimit
	}

	companies, err := h.db.ListCompanies(r.Context(), user.ID, offset, limit)
	if err != nil {
		h.logger.Error("list companies failed", "error", err)
		WriteInternalError(w, "could not list companies")
		return
	}
	if companies == nil {
		companies = []*store.Company{}
	}
	WriteJSON(w, http.StatusOK, companies)
}

// Get handles GET /api/v1/companies/{name}.
func (h *CompanyHandler) Get(w http.ResponseWriter, r *http.Request) {
	company, ok := h.ownedCompany(w, r)
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, company)
}

// Update handles PUT /api/v1/companies/{name}. Changing GreytHR
// credentials re-runs a roster sync to prove them.
func (h *CompanyHandler) Update(w http.ResponseWriter, r *http.Request) {
	company, ok := h.ownedCompany(w, r)
	if !ok {
		return
	}

	var req companyRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		WriteValidationError(w, err.Error())
		return
	}

	credentialsChanged := false
	if name := strings.TrimSpace(req.Name); name != "" && name != company.Name {
		company.Name = name
		credentialsChanged = true // tenant domain derives from the name
	}
	if req.GreytHRUsername != "" && req.GreytHRUsername != company.GreytHRUsername {
		company.GreytHRUsername = req.GreytHRUsername
		credentialsChanged = true
	}
	if req.GreytHRPassword != "" {
		encrypted, err := h.cipher.Encrypt([]byte(req.GreytHRPassword))
		if err != nil {
			h.logger.Error("password encryption failed", "error", err)
			WriteInternalError(w, "could not update company")
			return
		}
		company.GreytHRPassword = encrypted
		credentialsChanged = true
	}

	if credentialsChanged {
		// Stored tokens were minted for the old credentials.
		company.AccessToken = ""
		company.TokenExpiry = nil
	}

	if err := h.db.UpdateCompany(r.Context(), company); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			WriteConflict(w, "a company with this name already exists")
			return
		}
		h.logger.Error("update company failed", "company_id", company.ID, "error", err)
		WriteInternalError(w, "could not update company")
		return
	}

	if !credentialsChanged {
		WriteJSON(w, http.StatusOK, company)
		return
	}

	stats, err := h.syncer.Sync(r.Context(), h.db, company)
	if err != nil {
		writeGreytHRError(w, h.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, companyWithSync{Company: company, Sync: stats})
}

// Delete handles DELETE /api/v1/companies/{name}.
func (h *CompanyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	company, ok := h.ownedCompany(w, r)
	if !ok {
		return
	}

	if err := h.db.DeleteCompany(r.Context(), company.ID); err != nil {
		h.logger.Error("delete company failed", "company_id", company.ID, "error", err)
		WriteInternalError(w, "could not delete company")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ImportEmployees handles POST /api/v1/companies/{name}/import-employees.
func (h *CompanyHandler) ImportEmployees(w http.ResponseWriter, r *http.Request) {
	company, ok := h.ownedCompany(w, r)
	if !ok {
		return
	}

	stats, err := h.syncer.Sync(r.Context(), h.db, company)
	if err != nil {
		writeGreytHRError(w, h.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, stats)
}

// Employees handles GET /api/v1/companies/{name}/employees.
func (h *CompanyHandler) Employees(w http.ResponseWriter, r *http.Request) {
	company, ok := h.ownedCompany(w, r)
	if !ok {
		return
	}

	employees, err := h.db.ListEmployees(r.Context(), company.ID)
	if err != nil {
		h.logger.Error("list employees failed", "company_id", company.ID, "error", err)
		WriteInternalError(w, "could not list employees")
		return
	}
	if employees == nil {
		employees = []*store.Employee{}
	}
	WriteJSON(w, http.StatusOK, employees)
}

// ownedCompany resolves the {name} route param within the caller's
// scope, writing a 404 when it does not resolve.
func (h *CompanyHandler) ownedCompany(w http.ResponseWriter, r *http.Request) (*store.Company, bool) {
	user := UserFromContext(r.Context())

	// chi hands back the raw path segment, escaped when the request URL was.
	name := chi.URLParam(r, "name")
	if unescaped, err := url.PathUnescape(name); err == nil {
		name = unescaped
	}

	company, err := h.db.GetCompanyByName(r.Context(), user.ID, name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteNotFound(w, "company not found")
		} else {
			h.logger.Error("company lookup failed", "name", name, "error", err)
			WriteInternalError(w, "could not load company")
		}
		return nil, false
	}
	return company, true
}

// writeGreytHRError translates sync and auth failures from the GreytHR
// layer to the wire contract: credential problems are 401, everything
// else from a sync run is a 400 sync error.
func writeGreytHRError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var authErr *greythr.AuthError
	if errors.As(err, &authErr) {
		WriteUnauthenticated(w, authErr.Reason)
		return
	}

	var syncErr *greythr.SyncError
	if errors.As(err, &syncErr) {
		logger.Warn("roster sync failed", "error", err)
		WriteSyncError(w, syncErr.Error())
		return
	}

	logger.Error("unexpected greythr error", "error", err)
	WriteInternalError(w, "employee sync failed")
}
