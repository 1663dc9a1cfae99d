package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"matchmaking-engine/internal/models"
	"matchmaking-engine/internal/services/lifecycle"
	"matchmaking-engine/internal/utils"
)

// maxUploadBytes bounds CSV bodies accepted by the HTTP import endpoint.
const maxUploadBytes = 10 << 20

// MemberService is the member storage the HTTP API writes through.
type MemberService interface {
	MemberImporter
	Create(ctx context.Context, m *models.Member) error
	GetProfile(ctx context.Context, id int64) (*models.MemberProfile, error)
	Update(ctx context.Context, id int64, u *models.MemberUpdate) (*models.Member, error)
	UpsertIdealType(ctx context.Context, it *models.IdealType) error
}

// ProfileInvalidator is told when a member's profile or ideal type changes.
type ProfileInvalidator interface {
	MemberChanged(ctx context.Context, memberID int64)
}

// API serves the operator HTTP interface. Uploads may be nil when no
// import bucket is configured.
type API struct {
	Members     MemberService
	Selector    CandidateSelector
	Invalidator ProfileInvalidator
	Mutual      *lifecycle.MutualService
	Sequential  *lifecycle.SequentialService
	Imports     *ImportHandler
	Uploads     *UploadURLHandler
	Health      *HealthHandler
}

// Routes registers every endpoint on a new ServeMux.
func (a *API) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("GET /health", a.Health)
	mux.Handle("GET /api/health", a.Health)

	mux.HandleFunc("POST /api/members", a.createMember)
	mux.HandleFunc("GET /api/members/{id}", a.getMember)
	mux.HandleFunc("PATCH /api/members/{id}", a.updateMember)
	mux.HandleFunc("PUT /api/members/{id}/ideal-type", a.putIdealType)
	mux.HandleFunc("GET /api/members/{id}/candidates", a.listCandidates)
	mux.HandleFunc("POST /api/members/{id}/candidates", a.searchCandidates)
	mux.HandleFunc("GET /api/members/{id}/candidates/{candidateId}", a.explainCandidate)
	mux.HandleFunc("GET /api/members/{id}/matches", a.listMatches)

	mux.HandleFunc("POST /api/imports", a.importCSV)
	mux.HandleFunc("GET /api/upload-url", a.uploadURL)

	mux.HandleFunc("POST /api/matches/mutual", a.createMutual)
	mux.HandleFunc("GET /api/matches/mutual/{id}", a.getMutual)
	mux.HandleFunc("POST /api/matches/mutual/{id}/dispatch", a.dispatchMutual)
	mux.HandleFunc("POST /api/matches/mutual/{id}/responses", a.respondMutual)
	mux.HandleFunc("PUT /api/matches/mutual/{id}/status", a.forceMutual)
	mux.HandleFunc("DELETE /api/matches/mutual/{id}", a.deleteMutual)

	mux.HandleFunc("POST /api/matches/sequential", a.createSequential)
	mux.HandleFunc("GET /api/matches/sequential/{id}", a.getSequential)
	mux.HandleFunc("POST /api/matches/sequential/{id}/send", a.sendSequential)
	mux.HandleFunc("POST /api/matches/sequential/{id}/responses", a.respondSequential)
	mux.HandleFunc("PUT /api/matches/sequential/{id}/status", a.forceSequential)
	mux.HandleFunc("DELETE /api/matches/sequential/{id}", a.deleteSequential)

	return mux
}

// IdealTypeRequest is the body of PUT /api/members/{id}/ideal-type.
type IdealTypeRequest struct {
	Requirements    models.Requirements    `json:"requirements"`
	Priorities      models.TierLists       `json:"priorities"`
	SoftPreferences models.SoftPreferences `json:"soft_preferences"`
}

// CreateMutualRequest is the body of POST /api/matches/mutual.
type CreateMutualRequest struct {
	MemberA int64              `json:"member_a"`
	MemberB int64              `json:"member_b"`
	Status  models.MatchStatus `json:"status,omitempty"`
}

// CreateSequentialRequest is the body of POST /api/matches/sequential.
type CreateSequentialRequest struct {
	SenderID   int64              `json:"sender_id"`
	ReceiverID int64              `json:"receiver_id"`
	Status     models.MatchStatus `json:"status,omitempty"`
}

// RespondRequest is the body of a response submission.
type RespondRequest struct {
	MemberID int64  `json:"member_id"`
	Outcome  string `json:"outcome"`
}

// StatusRequest is the body of an operator status override.
type StatusRequest struct {
	Status models.MatchStatus `json:"status"`
}

func (a *API) createMember(w http.ResponseWriter, r *http.Request) {
	var m models.Member
	if !decode(w, r, &m) {
		return
	}
	m.ID = 0
	if err := a.Members.Create(r.Context(), &m); err != nil {
		writeError(w, err)
		return
	}
	a.invalidate(r.Context(), m.ID)
	writeData(w, http.StatusCreated, m)
}

func (a *API) getMember(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	p, err := a.Members.GetProfile(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, p)
}

func (a *API) updateMember(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var u models.MemberUpdate
	if !decode(w, r, &u) {
		return
	}
	m, err := a.Members.Update(r.Context(), id, &u)
	if err != nil {
		writeError(w, err)
		return
	}
	a.invalidate(r.Context(), id)
	writeData(w, http.StatusOK, m)
}

func (a *API) putIdealType(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req IdealTypeRequest
	if !decode(w, r, &req) {
		return
	}
	it, err := models.NewIdealType(id, req.Requirements, req.Priorities, req.SoftPreferences)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := a.Members.UpsertIdealType(r.Context(), it); err != nil {
		writeError(w, err)
		return
	}
	a.invalidate(r.Context(), id)
	writeData(w, http.StatusOK, it)
}

func (a *API) listCandidates(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	q := r.URL.Query()
	opts := optionsFromQuery(map[string]string{
		"cross_check": q.Get("cross_check"),
		"limit":       q.Get("limit"),
	})
	sel, err := a.Selector.SelectCandidates(r.Context(), id, opts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, sel)
}

func (a *API) searchCandidates(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req SearchRequest
	if !decode(w, r, &req) {
		return
	}
	opts, err := req.Options()
	if err != nil {
		writeError(w, err)
		return
	}
	sel, err := a.Selector.SelectCandidates(r.Context(), id, opts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, sel)
}

func (a *API) explainCandidate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	candidateID, ok := pathID(w, r, "candidateId")
	if !ok {
		return
	}
	exp, err := a.Selector.Explain(r.Context(), id, candidateID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, exp)
}

// listMatches merges both match kinds for one member, mutual first.
//
//	?kind=mutual|sequential  &status=PENDING,ACCEPTED  &pending=true  &limit=N
func (a *API) listMatches(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	q := r.URL.Query()
	filter, err := filterFromQuery(q.Get("status"), q.Get("pending"), q.Get("limit"))
	if err != nil {
		writeError(w, err)
		return
	}
	kind := models.MatchKind(q.Get("kind"))
	if kind != "" && !kind.IsValid() {
		writeBadRequest(w, "kind must be mutual or sequential")
		return
	}

	views := []models.MatchView{}
	if kind == "" || kind == models.MatchKindMutual {
		mv, err := a.Mutual.ListForMember(r.Context(), id, filter)
		if err != nil {
			writeError(w, err)
			return
		}
		views = append(views, mv...)
	}
	if kind == "" || kind == models.MatchKindSequential {
		sv, err := a.Sequential.ListForMember(r.Context(), id, filter)
		if err != nil {
			writeError(w, err)
			return
		}
		views = append(views, sv...)
	}
	writeData(w, http.StatusOK, views)
}

func (a *API) importCSV(w http.ResponseWriter, r *http.Request) {
	content, source, err := readUpload(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	result, err := a.Imports.Import(r.Context(), content, source)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, result)
}

func (a *API) uploadURL(w http.ResponseWriter, r *http.Request) {
	if a.Uploads == nil {
		writeJSON(w, http.StatusServiceUnavailable, Response{Error: "upload bucket not configured"})
		return
	}
	resp, status, msg := a.Uploads.Issue(r.Context(), r.URL.Query().Get("filename"))
	if resp == nil {
		writeJSON(w, status, Response{Error: msg})
		return
	}
	writeData(w, status, resp)
}

func (a *API) createMutual(w http.ResponseWriter, r *http.Request) {
	var req CreateMutualRequest
	if !decode(w, r, &req) {
		return
	}
	m, err := a.Mutual.Create(r.Context(), req.MemberA, req.MemberB, req.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusCreated, m)
}

func (a *API) getMutual(w http.ResponseWriter, r *http.Request) {
	a.withID(w, r, func(ctx context.Context, id int64) (interface{}, error) {
		return a.Mutual.Get(ctx, id)
	})
}

func (a *API) dispatchMutual(w http.ResponseWriter, r *http.Request) {
	a.withID(w, r, func(ctx context.Context, id int64) (interface{}, error) {
		return a.Mutual.Dispatch(ctx, id)
	})
}

func (a *API) respondMutual(w http.ResponseWriter, r *http.Request) {
	var req RespondRequest
	a.withBody(w, r, &req, func(ctx context.Context, id int64) (interface{}, error) {
		outcome, err := models.ParseOutcome(req.Outcome)
		if err != nil {
			return nil, err
		}
		return a.Mutual.Respond(ctx, id, req.MemberID, outcome)
	})
}

func (a *API) forceMutual(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	a.withBody(w, r, &req, func(ctx context.Context, id int64) (interface{}, error) {
		if err := a.Mutual.ForceStatus(ctx, id, req.Status); err != nil {
			return nil, err
		}
		return a.Mutual.Get(ctx, id)
	})
}

func (a *API) deleteMutual(w http.ResponseWriter, r *http.Request) {
	a.withID(w, r, func(ctx context.Context, id int64) (interface{}, error) {
		return nil, a.Mutual.Delete(ctx, id)
	})
}

func (a *API) createSequential(w http.ResponseWriter, r *http.Request) {
	var req CreateSequentialRequest
	if !decode(w, r, &req) {
		return
	}
	m, err := a.Sequential.Create(r.Context(), req.SenderID, req.ReceiverID, req.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusCreated, m)
}

func (a *API) getSequential(w http.ResponseWriter, r *http.Request) {
	a.withID(w, r, func(ctx context.Context, id int64) (interface{}, error) {
		return a.Sequential.Get(ctx, id)
	})
}

func (a *API) sendSequential(w http.ResponseWriter, r *http.Request) {
	a.withID(w, r, func(ctx context.Context, id int64) (interface{}, error) {
		return a.Sequential.SendToReceiver(ctx, id)
	})
}

func (a *API) respondSequential(w http.ResponseWriter, r *http.Request) {
	var req RespondRequest
	a.withBody(w, r, &req, func(ctx context.Context, id int64) (interface{}, error) {
		outcome, err := models.ParseOutcome(req.Outcome)
		if err != nil {
			return nil, err
		}
		return a.Sequential.Respond(ctx, id, req.MemberID, outcome)
	})
}

func (a *API) forceSequential(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	a.withBody(w, r, &req, func(ctx context.Context, id int64) (interface{}, error) {
		if err := a.Sequential.ForceStatus(ctx, id, req.Status); err != nil {
			return nil, err
		}
		return a.Sequential.Get(ctx, id)
	})
}

func (a *API) deleteSequential(w http.ResponseWriter, r *http.Request) {
	a.withID(w, r, func(ctx context.Context, id int64) (interface{}, error) {
		return nil, a.Sequential.Delete(ctx, id)
	})
}

func (a *API) withID(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id int64) (interface{}, error)) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	data, err := fn(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if data == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeData(w, http.StatusOK, data)
}

func (a *API) withBody(w http.ResponseWriter, r *http.Request, body interface{}, fn func(ctx context.Context, id int64) (interface{}, error)) {
	if _, ok := pathID(w, r, "id"); !ok {
		return
	}
	if !decode(w, r, body) {
		return
	}
	a.withID(w, r, fn)
}

func (a *API) invalidate(ctx context.Context, memberID int64) {
	if a.Invalidator != nil {
		a.Invalidator.MemberChanged(ctx, memberID)
	}
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, ok := parseID(r.PathValue(name))
	if !ok {
		writeBadRequest(w, "invalid "+name)
	}
	return id, ok
}

func decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeBadRequest(w, "Invalid JSON in request body")
		return false
	}
	return true
}

func filterFromQuery(status, pending, limit string) (models.MatchFilter, error) {
	filter := models.MatchFilter{Limit: parseLimit(limit)}
	filter.PendingOnly, _ = strconv.ParseBool(pending)
	for _, raw := range strings.Split(status, ",") {
		raw = strings.ToUpper(strings.TrimSpace(raw))
		if raw == "" {
			continue
		}
		st := models.MatchStatus(raw)
		if !st.IsValid() {
			return filter, fmt.Errorf("%w: unknown match status %q", models.ErrValidation, raw)
		}
		filter.Statuses = append(filter.Statuses, st)
	}
	return filter, nil
}

// readUpload accepts either a multipart form with a "file" field or a raw CSV body.
func readUpload(r *http.Request) ([]byte, string, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			return nil, "", fmt.Errorf("failed to parse form: %w", err)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			return nil, "", fmt.Errorf("no file uploaded: %w", err)
		}
		defer file.Close()

		content, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
		if err != nil {
			return nil, "", fmt.Errorf("failed to read file: %w", err)
		}
		utils.Logger.Info("Received member CSV upload",
			zap.String("filename", header.Filename),
			zap.Int("size", len(content)),
		)
		return content, header.Filename, nil
	}

	content, err := io.ReadAll(io.LimitReader(r.Body, maxUploadBytes))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read body: %w", err)
	}
	return content, "request-body", nil
}
