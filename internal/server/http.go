package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"breachwatch/internal/common"
	"breachwatch/internal/password"
)

const maxRequestBytes = 64 << 10

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

func (s *Server) routes() {
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	v1 := s.router.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/password/check", s.handlePasswordCheck).Methods(http.MethodPost)
	v1.HandleFunc("/ip/check", s.handleIPCheck).Methods(http.MethodPost)
	v1.HandleFunc("/dark-web/search", s.handleDarkWebSearch).Methods(http.MethodGet)
	v1.HandleFunc("/dark-web/monitor/email", s.handleMonitorEmail).Methods(http.MethodPost)
	v1.HandleFunc("/dark-web/monitor/domain", s.handleMonitorDomain).Methods(http.MethodPost)
	v1.HandleFunc("/generate/passkey", s.handleGeneratePasskey).Methods(http.MethodPost)
	v1.HandleFunc("/generate/passphrase", s.handleGeneratePassphrase).Methods(http.MethodPost)
	v1.HandleFunc("/generate/pin", s.handleGeneratePIN).Methods(http.MethodPost)
	v1.HandleFunc("/generate/backup-codes", s.handleGenerateBackupCodes).Methods(http.MethodPost)
	v1.HandleFunc("/2fa/recommendations", s.handleTwoFactor).Methods(http.MethodGet)
	v1.HandleFunc("/history", s.handleHistory).Methods(http.MethodGet)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: map[string]string{"status": "ok"}})
}

func (s *Server) handlePasswordCheck(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	v, err := s.checks.CheckPassword(r.Context(), req.Password)
	s.respond(w, r, v, err)
}

func (s *Server) handleIPCheck(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IP string `json:"ip"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	v, err := s.checks.CheckIP(r.Context(), req.IP)
	s.respond(w, r, v, err)
}

func (s *Server) handleDarkWebSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	v, err := s.checks.SearchDarkWeb(r.Context(), q.Get("query"), q.Get("type"))
	s.respond(w, r, v, err)
}

func (s *Server) handleMonitorEmail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	m, err := s.checks.MonitorEmail(r.Context(), req.Email)
	s.respond(w, r, m, err)
}

func (s *Server) handleMonitorDomain(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Domain string `json:"domain"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	m, err := s.checks.MonitorDomain(r.Context(), req.Domain)
	s.respond(w, r, m, err)
}

func (s *Server) handleGeneratePasskey(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Length           *int  `json:"length"`
		Uppercase        *bool `json:"uppercase"`
		Lowercase        *bool `json:"lowercase"`
		Numbers          *bool `json:"numbers"`
		Symbols          *bool `json:"symbols"`
		ExcludeSimilar   *bool `json:"exclude_similar"`
		ExcludeAmbiguous *bool `json:"exclude_ambiguous"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	opts := password.DefaultOptions()
	set(&opts.Uppercase, req.Uppercase)
	set(&opts.Lowercase, req.Lowercase)
	set(&opts.Numbers, req.Numbers)
	set(&opts.Symbols, req.Symbols)
	set(&opts.ExcludeSimilar, req.ExcludeSimilar)
	set(&opts.ExcludeAmbiguous, req.ExcludeAmbiguous)

	pk, err := s.gen.Passkey(orDefault(req.Length, 32), opts)
	s.respond(w, r, pk, err)
}

func (s *Server) handleGeneratePassphrase(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WordCount *int    `json:"word_count"`
		Separator *string `json:"separator"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	sep := "-"
	set(&sep, req.Separator)
	pp, err := s.gen.Passphrase(orDefault(req.WordCount, 4), sep)
	s.respond(w, r, pp, err)
}

func (s *Server) handleGeneratePIN(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Length *int `json:"length"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	pin, err := s.gen.PIN(orDefault(req.Length, 6))
	s.respond(w, r, pin, err)
}

func (s *Server) handleGenerateBackupCodes(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Count *int `json:"count"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	codes, err := s.gen.BackupCodes(orDefault(req.Count, 10))
	s.respond(w, r, codes, err)
}

func (s *Server) handleTwoFactor(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: password.TwoFactorRecommendations()})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 500 {
			s.respond(w, r, nil, common.Invalid("limit", "must be between 1 and 500"))
			return
		}
		limit = n
	}
	kind := common.CheckKind(r.URL.Query().Get("kind"))
	switch kind {
	case "", common.CheckPassword, common.CheckIP, common.CheckDarkWeb:
	default:
		s.respond(w, r, nil, common.Invalid("kind", "must be password, ip or dark_web"))
		return
	}
	records, err := s.checks.Recent(r.Context(), kind, limit)
	s.respond(w, r, records, err)
}

// decode reads a JSON body. An empty body leaves v untouched.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes)).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	writeJSON(w, http.StatusUnprocessableEntity, envelope{Message: "invalid request body"})
	return false
}

// respond maps err onto the envelope: validation failures are 422, anything
// else is logged and reported as 500 without detail.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, data any, err error) {
	var verr *common.ValidationError
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, envelope{Success: true, Data: data})
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, envelope{Message: verr.Error()})
	default:
		s.log.Error("request failed", "path", r.URL.Path, "err", err)
		writeJSON(w, http.StatusInternalServerError, envelope{Message: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func orDefault(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}
