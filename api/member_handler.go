package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Skryldev/member-directory/models"
	"github.com/Skryldev/member-directory/service"
)

const (
	maxBodyBytes     = 1 << 20
	msgMalformedBody = "Malformed request body."
	msgMemberDeleted = "Member deleted."
)

var errMalformedBody = errors.New("malformed request body")

// MemberService is the behaviour the handlers need from service.MemberService.
type MemberService interface {
	List(ctx context.Context) ([]*models.Member, error)
	Create(ctx context.Context, p models.MemberPayload) (*models.Member, error)
	Get(ctx context.Context, id int64) (*models.Member, error)
	Update(ctx context.Context, id int64, p models.MemberPayload) (*models.Member, error)
	Delete(ctx context.Context, id int64) error
}

var _ MemberService = (*service.MemberService)(nil)

type memberResponse struct {
	Member models.MemberView `json:"member"`
}

type memberListResponse struct {
	Members []models.MemberView `json:"members"`
}

// MemberHandler serves the /member routes.
type MemberHandler struct {
	svc    MemberService
	log    *slog.Logger
	legacy bool
}

// NewMemberHandler returns a MemberHandler. With legacyStatus set, validation
// and unknown-id failures are answered with 200 and an error body.
func NewMemberHandler(svc MemberService, logger *slog.Logger, legacyStatus bool) *MemberHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &MemberHandler{svc: svc, log: logger, legacy: legacyStatus}
}

// List handles GET /member.
func (h *MemberHandler) List(w http.ResponseWriter, r *http.Request) {
	members, err := h.svc.List(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	views := make([]models.MemberView, 0, len(members))
	for _, m := range members {
		views = append(views, m.View())
	}
	RespondWithJSON(w, http.StatusOK, memberListResponse{Members: views})
}

// Create handles POST /member.
func (h *MemberHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, err := decodePayload(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	m, err := h.svc.Create(r.Context(), p)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	status := http.StatusCreated
	if h.legacy {
		status = http.StatusOK
	}
	RespondWithJSON(w, status, memberResponse{Member: m.View()})
}

// Get handles GET /member/{id}.
func (h *MemberHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := memberID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	m, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, memberResponse{Member: m.View()})
}

// Update handles PUT and PATCH /member/{id}. Both replace all three fields.
func (h *MemberHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := memberID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	p, err := decodePayload(r)
	if err != nil {
		// An unknown id is reported ahead of a bad body.
		if _, getErr := h.svc.Get(r.Context(), id); getErr != nil {
			err = getErr
		}
		h.fail(w, r, err)
		return
	}

	m, err := h.svc.Update(r.Context(), id, p)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, memberResponse{Member: m.View()})
}

// Delete handles DELETE /member/{id}.
func (h *MemberHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := memberID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, messageResponse{Message: msgMemberDeleted})
}

// fail writes the response for err. Anything outside the service taxonomy is
// a store failure: it is logged and answered without detail.
func (h *MemberHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var ve *service.ValidationError
	var nf *service.NotFoundError

	switch {
	case errors.Is(err, errMalformedBody):
		RespondWithError(w, http.StatusBadRequest, msgMalformedBody)

	case errors.As(err, &ve):
		status := http.StatusBadRequest
		if ve.Reason == service.ReasonDuplicate {
			status = http.StatusConflict
		}
		if h.legacy {
			status = http.StatusOK
		}
		RespondWithError(w, status, ve.Message)

	case errors.As(err, &nf):
		status := http.StatusNotFound
		// The empty-list 404 predates the legacy quirks and is kept in both modes.
		if h.legacy && !errors.Is(err, service.ErrNoMembers) {
			status = http.StatusOK
		}
		RespondWithError(w, status, nf.Message)

	default:
		h.log.ErrorContext(r.Context(), "member request failed",
			"error", err,
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", RequestIDFromContext(r.Context()),
		)
		RespondWithError(w, http.StatusInternalServerError, msgInternal)
	}
}

// memberID parses the {id} path segment. Anything other than plain decimal
// digits that fit an int64 is reported as an invalid member id.
func memberID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	if raw == "" || strings.IndexFunc(raw, func(c rune) bool { return c < '0' || c > '9' }) >= 0 {
		return 0, service.ErrInvalidMemberID
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, service.ErrInvalidMemberID
	}
	return id, nil
}

// decodePayload reads a JSON object that must carry the keys name, email and
// level. Their values are left untyped for service.ValidatePayload.
func decodePayload(r *http.Request) (models.MemberPayload, error) {
	var body map[string]any
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&body); err != nil || body == nil {
		return models.MemberPayload{}, errMalformedBody
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return models.MemberPayload{}, errMalformedBody
	}

	name, ok1 := body["name"]
	email, ok2 := body["email"]
	level, ok3 := body["level"]
	if !ok1 || !ok2 || !ok3 {
		return models.MemberPayload{}, errMalformedBody
	}
	return models.MemberPayload{Name: name, Email: email, Level: level}, nil
}
