package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"kasumkm/backend/internal/domain"
	"kasumkm/backend/internal/service"
	"kasumkm/backend/internal/store"
)

type API struct {
	service       *service.Service
	logger        zerolog.Logger
	allowedOrigin string
}

func New(svc *service.Service, logger zerolog.Logger, allowedOrigin string) *API {
	return &API{
		service:       svc,
		logger:        logger,
		allowedOrigin: allowedOrigin,
	}
}

func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", a.handleHealth)
	mux.HandleFunc("/api/products", a.handleProducts)
	mux.HandleFunc("/api/categories", a.handleCategories)
	mux.HandleFunc("/api/transactions", a.handleTransactions)
	mux.HandleFunc("/api/reset-data", a.handleResetData)
	mux.HandleFunc("/api/settings", a.handleSettings)
	mux.HandleFunc("/api/stats", a.handleStats)
	mux.HandleFunc("/api/reports", a.handleReports)

	return a.withMiddleware(mux)
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeMethodNotAllowed(w)
		return
	}

	a.writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleProducts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		products, err := a.service.ListProducts(r.Context())
		if err != nil {
			a.writeError(w, http.StatusInternalServerError, err)
			return
		}
		a.writeJSON(w, http.StatusOK, products)
	case http.MethodPost:
		var req domain.ProductCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			a.writeError(w, http.StatusBadRequest, err)
			return
		}

		product, err := a.service.CreateProduct(r.Context(), req)
		if err != nil {
			a.writeError(w, statusForError(err), err)
			return
		}
		a.writeJSON(w, http.StatusCreated, product)
	case http.MethodPut:
		var req domain.ProductUpdateRequest
		if err := decodeJSON(r, &req); err != nil {
			a.writeError(w, http.StatusBadRequest, err)
			return
		}

		product, err := a.service.UpdateProduct(r.Context(), req)
		if err != nil {
			a.writeError(w, statusForError(err), err)
			return
		}
		a.writeJSON(w, http.StatusOK, product)
	case http.MethodDelete:
		id, err := parseIDParam(r)
		if err != nil {
			a.writeError(w, http.StatusBadRequest, err)
			return
		}

		if err := a.service.DeleteProduct(r.Context(), id); err != nil {
			a.writeError(w, statusForError(err), err)
			return
		}
		a.writeJSON(w, http.StatusOK, map[string]any{"success": true})
	default:
		a.writeMethodNotAllowed(w)
	}
}

func (a *API) handleCategories(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		categories, err := a.service.ListCategories(r.Context())
		if err != nil {
			a.writeError(w, http.StatusInternalServerError, err)
			return
		}
		a.writeJSON(w, http.StatusOK, categories)
	case http.MethodPost:
		var req domain.CategoryCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			a.writeError(w, http.StatusBadRequest, err)
			return
		}

		category, err := a.service.CreateCategory(r.Context(), req)
		if err != nil {
			a.writeError(w, statusForError(err), err)
			return
		}
		a.writeJSON(w, http.StatusCreated, category)
	case http.MethodDelete:
		id, err := parseIDParam(r)
		if err != nil {
			a.writeError(w, http.StatusBadRequest, err)
			return
		}

		if err := a.service.DeleteCategory(r.Context(), id); err != nil {
			a.writeError(w, statusForError(err), err)
			return
		}
		a.writeJSON(w, http.StatusOK, map[string]any{"success": true})
	default:
		a.writeMethodNotAllowed(w)
	}
}

func (a *API) handleTransactions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		transactions, err := a.service.ListTransactions(r.Context())
		if err != nil {
			a.writeError(w, http.StatusInternalServerError, err)
			return
		}
		a.writeJSON(w, http.StatusOK, transactions)
	case http.MethodPost:
		var req domain.TransactionCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			a.writeError(w, http.StatusBadRequest, err)
			return
		}

		tx, err := a.service.RecordTransaction(r.Context(), req)
		if err != nil {
			a.writeError(w, statusForError(err), err)
			return
		}
		a.writeJSON(w, http.StatusCreated, tx)
	default:
		a.writeMethodNotAllowed(w)
	}
}

func (a *API) handleResetData(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		a.writeMethodNotAllowed(w)
		return
	}

	resp, err := a.service.ResetTransactions(r.Context())
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, err)
		return
	}
	a.writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		settings, err := a.service.GetSettings(r.Context())
		if err != nil {
			a.writeError(w, http.StatusInternalServerError, err)
			return
		}
		a.writeJSON(w, http.StatusOK, settings)
	case http.MethodPost:
		var settings domain.Settings
		if err := decodeJSON(r, &settings); err != nil {
			a.writeError(w, http.StatusBadRequest, err)
			return
		}

		if err := a.service.UpsertSettings(r.Context(), settings); err != nil {
			a.writeError(w, statusForError(err), err)
			return
		}
		a.writeJSON(w, http.StatusOK, map[string]any{"success": true})
	default:
		a.writeMethodNotAllowed(w)
	}
}

func (a *API) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeMethodNotAllowed(w)
		return
	}

	stats, err := a.service.Stats(r.Context())
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, err)
		return
	}
	a.writeJSON(w, http.StatusOK, stats)
}

func (a *API) handleReports(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeMethodNotAllowed(w)
		return
	}

	report, err := a.service.Report(r.Context())
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, err)
		return
	}

	if strings.EqualFold(strings.TrimSpace(r.URL.Query().Get("format")), "csv") {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="report.csv"`)
		_, _ = w.Write([]byte(reportToCSV(report)))
		return
	}

	a.writeJSON(w, http.StatusOK, report)
}

func (a *API) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		w.Header().Set("Vary", "Origin")

		if r.Method == http.MethodPost || r.Method == http.MethodPut {
			r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		startedAt := time.Now()
		next.ServeHTTP(w, r)
		a.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("duration", time.Since(startedAt)).
			Msg("request")
	})
}

// statusForError maps store sentinels to the response status class: 400 for
// input the caller can fix, 404/409 for state conflicts, 500 otherwise.
func statusForError(err error) int {
	switch {
	case errors.Is(err, store.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrInsufficientStock):
		return http.StatusConflict
	case errors.Is(err, store.ErrDuplicateName):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func parseIDParam(r *http.Request) (int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("id"))
	if raw == "" {
		return 0, errors.New("id required")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}

func (a *API) writeMethodNotAllowed(w http.ResponseWriter) {
	a.writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

func (a *API) writeError(w http.ResponseWriter, status int, err error) {
	// 5xx responses carry a generic message so storage errors never leak
	// internals; 4xx messages are user-facing.
	msg := err.Error()
	if status >= 500 {
		a.logger.Error().Err(err).Int("status", status).Msg("internal error")
		msg = "internal server error"
	}
	a.writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

func (a *API) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
