package api

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"warden/cmd/internal/credential"
	"warden/cmd/internal/device"
	"warden/cmd/internal/entitlement"
	"warden/cmd/internal/fingerprint"
	"warden/cmd/internal/gateway"
	"warden/cmd/internal/liveness"
	"warden/cmd/internal/metrics"
)

// HeaderSubjectAddress carries the caller's chain address for entitlement
// checks on gated content.
const HeaderSubjectAddress = "X-Subject-Address"

// Handler wires the HTTP endpoints to the Warden services.
type Handler struct {
	log *slog.Logger
	cfg Config

	deriver      fingerprint.Deriver
	devices      device.Store
	credentials  *credential.Manager
	sessions     *liveness.Registry
	entitlements *entitlement.Cache
	catalog      *Catalog

	metrics *metrics.Metrics
}

// NewHandler constructs the API handler. metrics may be nil.
func NewHandler(
	log *slog.Logger,
	cfg Config,
	deriver fingerprint.Deriver,
	devices device.Store,
	credentials *credential.Manager,
	sessions *liveness.Registry,
	entitlements *entitlement.Cache,
	catalog *Catalog,
	m *metrics.Metrics,
) (*Handler, error) {
	if log == nil {
		log = slog.Default()
	}
	if devices == nil || credentials == nil || sessions == nil || entitlements == nil {
		return nil, ErrConfig
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.ScriptEvidenceKey == "" {
		cfg.ScriptEvidenceKey = DefaultScriptEvidenceKey
	}
	if catalog == nil {
		catalog = NewCatalog()
	}

	return &Handler{
		log:          log,
		cfg:          cfg,
		deriver:      deriver,
		devices:      devices,
		credentials:  credentials,
		sessions:     sessions,
		entitlements: entitlements,
		catalog:      catalog,
		metrics:      m,
	}, nil
}

// Register wires routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("/auth/device", h.handleDeviceAuth)
	mux.HandleFunc("/auth/heartbeat", h.handleHeartbeat)
	mux.HandleFunc("/scripts", h.handleScriptList)
	mux.HandleFunc("/scripts/", h.handleScriptGet)
	mux.HandleFunc("/admin/sessions", h.handleAdminSessions)
	mux.HandleFunc("/admin/entitlements/refresh", h.handleAdminEntitlementRefresh)
}

// ---- handlers ----

func (h *Handler) handleDeviceAuth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req deviceAuthRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	if req.Characteristics == (fingerprint.Characteristics{}) {
		writeError(w, http.StatusBadRequest, "invalid_characteristics", "no device characteristics supplied")
		return
	}

	now := time.Now().UTC()
	addr := clientAddr(r, h.cfg.TrustProxy)
	id := h.deriver.Derive(req.Characteristics, addr)

	isNew, err := h.devices.Touch(r.Context(), id, addr, now)
	if err != nil {
		h.log.Error("auth.device.touch.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "internal", "device store failure")
		return
	}

	token, expiresAt, err := h.credentials.Issue(id, now)
	if err != nil {
		h.log.Error("auth.device.issue.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "internal", "credential issuance failure")
		return
	}
	if h.metrics != nil {
		h.metrics.CredentialsIssued.Inc()
	}

	rotated := req.PriorIdentity != "" && req.PriorIdentity != id.String()
	if rotated {
		h.log.Info("auth.device.rotated", "identity", id.String())
	}

	// Re-authentication supersedes any prior session instance for the subject.
	h.sessions.Start(id)

	h.log.Info("auth.device.ok", "identity", id.String(), "new", isNew)

	writeJSON(w, http.StatusOK, deviceAuthResponse{
		DeviceIdentity:    id.String(),
		SessionCredential: token,
		ExpiresAt:         expiresAt,
		IsNewIdentity:     isNew,
		IdentityRotated:   rotated,

		HeartbeatIntervalSeconds: int(h.cfg.HeartbeatInterval / time.Second),
		HeartbeatTimeoutSeconds:  int(h.cfg.HeartbeatTimeout / time.Second),
	})
}

func (h *Handler) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req heartbeatRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	subject := fingerprint.Identity(req.SubjectID)
	if err := subject.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, gateway.KindMalformedIdentity, "malformed subject identity")
		return
	}

	// The gateway already bound the session identity into the context; a
	// heartbeat for somebody else's session is a mismatch, not a violation.
	if ctxID, ok := gateway.IdentityFromRequest(r); ok && ctxID != subject {
		writeError(w, http.StatusForbidden, gateway.KindIdentityMismatch, "heartbeat subject does not match session identity")
		return
	}

	err := h.sessions.Beat(subject, req.Sequence, time.Now().UTC())
	switch {
	case err == nil:
		if h.metrics != nil {
			h.metrics.HeartbeatsAccepted.Inc()
		}
		writeJSON(w, http.StatusOK, heartbeatResponse{
			Status:       "ok",
			NextSequence: req.Sequence + 1,
		})
	case errors.Is(err, liveness.ErrSequenceViolation):
		writeError(w, http.StatusConflict, "sequence_violation", "heartbeat sequence mismatch; session terminated")
	case errors.Is(err, liveness.ErrSessionTerminated):
		writeError(w, http.StatusGone, "session_terminated", "session is terminated; re-authenticate")
	default:
		h.log.Error("auth.heartbeat.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "internal", "heartbeat processing failure")
	}
}

func (h *Handler) handleScriptList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !h.requireEntitlement(w, r, false) {
		return
	}
	writeJSON(w, http.StatusOK, scriptListResponse{Scripts: h.catalog.List()})
}

func (h *Handler) handleScriptGet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	name := strings.TrimPrefix(r.URL.Path, "/scripts/")
	if name == "" || strings.Contains(name, "/") {
		writeError(w, http.StatusNotFound, "not_found", "unknown script")
		return
	}

	if !h.requireEntitlement(w, r, false) {
		return
	}

	script, ok := h.catalog.Get(name)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "unknown script")
		return
	}
	writeJSON(w, http.StatusOK, script)
}

// requireEntitlement gates a request on the caller's subject address holding
// the configured evidence. It writes the rejection itself and reports whether
// the caller may proceed.
func (h *Handler) requireEntitlement(w http.ResponseWriter, r *http.Request, forceRefresh bool) bool {
	subject := strings.TrimSpace(r.Header.Get(HeaderSubjectAddress))
	if subject == "" {
		writeError(w, http.StatusBadRequest, "missing_subject_address", "subject address header required")
		return false
	}

	rec, err := h.entitlements.Check(r.Context(), subject, h.cfg.ScriptEvidenceKey, forceRefresh)
	switch {
	case err == nil:
		if !rec.Holds {
			writeError(w, http.StatusForbidden, "entitlement_required", "subject does not hold the required evidence")
			return false
		}
		return true
	case errors.Is(err, entitlement.ErrOracleUnavailable):
		// Retryable: the verdict is unknown, not negative.
		writeError(w, http.StatusServiceUnavailable, "oracle_unavailable", "entitlement oracle unavailable; retry later")
		return false
	default:
		h.log.Error("entitlement.check.fail", "subject", subject, "err", err)
		writeError(w, http.StatusInternalServerError, "internal", "entitlement check failure")
		return false
	}
}

func (h *Handler) handleAdminSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	snapshots := h.sessions.List()
	out := make([]adminSession, 0, len(snapshots))
	for _, s := range snapshots {
		entry := adminSession{
			Subject:          s.Subject.String(),
			State:            s.State,
			ExpectedSequence: s.ExpectedSequence,
			StartedAt:        s.StartedAt,
			Reason:           string(s.Reason),
		}
		if !s.LastBeatAt.IsZero() {
			t := s.LastBeatAt
			entry.LastBeatAt = &t
		}
		out = append(out, entry)
	}
	writeJSON(w, http.StatusOK, adminSessionsResponse{Sessions: out})
}

func (h *Handler) handleAdminEntitlementRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req entitlementRefreshRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	if strings.TrimSpace(req.SubjectID) == "" {
		writeError(w, http.StatusBadRequest, "missing_subject", "subject_id required")
		return
	}

	evidence := req.EvidenceKey
	if evidence == "" {
		evidence = h.cfg.ScriptEvidenceKey
	}

	rec, err := h.entitlements.Check(r.Context(), req.SubjectID, evidence, true)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, entitlementRefreshResponse{
			SubjectID:   rec.SubjectID,
			EvidenceKey: rec.EvidenceKey,
			Holds:       rec.Holds,
			Quantity:    rec.Quantity,
			CheckedAt:   rec.CheckedAt,
		})
	case errors.Is(err, entitlement.ErrOracleUnavailable):
		writeError(w, http.StatusServiceUnavailable, "oracle_unavailable", "entitlement oracle unavailable; retry later")
	default:
		h.log.Error("admin.entitlement.refresh.fail", "subject", req.SubjectID, "err", err)
		writeError(w, http.StatusInternalServerError, "internal", "entitlement refresh failure")
	}
}

// clientAddr returns the caller's network address without the port. With
// TrustProxy, the first X-Forwarded-For hop wins.
func clientAddr(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			return strings.TrimSpace(first)
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}
