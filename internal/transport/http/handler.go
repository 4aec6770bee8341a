package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"live-session-service/internal/app"
	"live-session-service/internal/auth"
	"live-session-service/internal/domain"
)

// ParticipantTokenCookie carries the signed participant token; a bearer
// Authorization header works for both roles.
const ParticipantTokenCookie = "participant_token"

// Handler wires the session/response use cases into JSON endpoints.
type Handler struct {
	sessions       *app.SessionService
	responses      *app.ResponseService
	participations *app.ParticipationService
	leaderboards   app.LeaderboardProvider
	tokens         *auth.TokenService
}

func NewHandler(sessions *app.SessionService, responses *app.ResponseService, participations *app.ParticipationService, leaderboards app.LeaderboardProvider, tokens *auth.TokenService) *Handler {
	return &Handler{
		sessions:       sessions,
		responses:      responses,
		participations: participations,
		leaderboards:   leaderboards,
		tokens:         tokens,
	}
}

// Register mounts all endpoints on the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/startSession", h.post(h.startSession))
	mux.HandleFunc("/api/endSession", h.post(h.endSession))
	mux.HandleFunc("/api/activateSessionBlock", h.post(h.activateSessionBlock))
	mux.HandleFunc("/api/deactivateSessionBlock", h.post(h.deactivateSessionBlock))
	mux.HandleFunc("/api/AddResponse", h.post(h.addResponse))
	mux.HandleFunc("/api/joinCourse", h.post(h.joinCourse))
	mux.HandleFunc("/api/leaderboard", h.leaderboard)
}

func (h *Handler) post(fn func(http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		fn(w, r)
	}
}

// principal resolves the caller from the bearer header or the
// participant token cookie.
func (h *Handler) principal(r *http.Request) (domain.Principal, error) {
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return h.tokens.Verify(strings.TrimPrefix(header, "Bearer "))
	}
	if cookie, err := r.Cookie(ParticipantTokenCookie); err == nil {
		return h.tokens.Verify(cookie.Value)
	}
	return domain.Principal{}, domain.AuthErrorf("missing credentials")
}

type sessionRequest struct {
	ID string `json:"id"`
}

type blockRequest struct {
	SessionID string `json:"sessionId"`
	BlockID   string `json:"blockId"`
}

func (h *Handler) startSession(w http.ResponseWriter, r *http.Request) {
	caller, err := h.principal(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ValidationErrorf("invalid request body"))
		return
	}
	sess, invalidated, err := h.sessions.StartSession(r.Context(), caller, req.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, viewSession(sess), invalidated)
}

func (h *Handler) endSession(w http.ResponseWriter, r *http.Request) {
	caller, err := h.principal(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ValidationErrorf("invalid request body"))
		return
	}
	sess, invalidated, err := h.sessions.EndSession(r.Context(), caller, req.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, viewSession(sess), invalidated)
}

func (h *Handler) activateSessionBlock(w http.ResponseWriter, r *http.Request) {
	caller, err := h.principal(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req blockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ValidationErrorf("invalid request body"))
		return
	}
	sess, invalidated, err := h.sessions.ActivateSessionBlock(r.Context(), caller, req.SessionID, req.BlockID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, viewSession(sess), invalidated)
}

func (h *Handler) deactivateSessionBlock(w http.ResponseWriter, r *http.Request) {
	caller, err := h.principal(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req blockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ValidationErrorf("invalid request body"))
		return
	}
	sess, invalidated, err := h.sessions.DeactivateSessionBlock(r.Context(), caller, req.SessionID, req.BlockID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, viewSession(sess), invalidated)
}

// addResponseRequest is the lightweight submission body. The response
// shape is type-directed: {choices:[...]}, {value:3.5}, {value:"text"},
// {rating:"CORRECT"} or {viewed:true}.
type addResponseRequest struct {
	SessionID  string          `json:"sessionId"`
	InstanceID string          `json:"instanceId"`
	Response   json.RawMessage `json:"response"`
}

type wirePayload struct {
	Choices []int           `json:"choices"`
	Value   json.RawMessage `json:"value"`
	Rating  string          `json:"rating"`
	Viewed  bool            `json:"viewed"`
}

func (h *Handler) addResponse(w http.ResponseWriter, r *http.Request) {
	caller, err := h.principal(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req addResponseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ValidationErrorf("invalid request body"))
		return
	}
	payload, err := decodePayload(req.Response)
	if err != nil {
		writeError(w, err)
		return
	}
	instanceID, invalidated, err := h.responses.Submit(r.Context(), caller, req.SessionID, req.InstanceID, payload)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, map[string]string{"instanceId": instanceID}, invalidated)
}

// decodePayload maps the wire shape onto the tagged union. A numeric
// value becomes a NUMERICAL payload, a string value a FREE_TEXT one.
func decodePayload(raw json.RawMessage) (domain.ResponsePayload, error) {
	if len(raw) == 0 {
		return domain.ResponsePayload{}, domain.ValidationErrorf("missing response payload")
	}
	var wire wirePayload
	if err := json.Unmarshal(raw, &wire); err != nil {
		return domain.ResponsePayload{}, domain.ValidationErrorf("invalid response payload")
	}
	switch {
	case wire.Choices != nil:
		return domain.ResponsePayload{Kind: domain.PayloadChoices, Choices: wire.Choices}, nil
	case len(wire.Value) > 0:
		var number float64
		if err := json.Unmarshal(wire.Value, &number); err == nil {
			return domain.ResponsePayload{Kind: domain.PayloadNumerical, Value: number}, nil
		}
		var text string
		if err := json.Unmarshal(wire.Value, &text); err == nil {
			return domain.ResponsePayload{Kind: domain.PayloadText, Text: text}, nil
		}
		return domain.ResponsePayload{}, domain.ValidationErrorf("response value must be a number or a string")
	case wire.Rating != "":
		return domain.ResponsePayload{Kind: domain.PayloadRating, Rating: domain.FlashcardBucket(wire.Rating)}, nil
	case wire.Viewed:
		return domain.ResponsePayload{Kind: domain.PayloadView}, nil
	default:
		return domain.ResponsePayload{}, domain.ValidationErrorf("unrecognized response payload shape")
	}
}

type joinCourseRequest struct {
	CourseID    string `json:"courseId"`
	DisplayName string `json:"displayName"`
	Avatar      string `json:"avatar"`
}

func (h *Handler) joinCourse(w http.ResponseWriter, r *http.Request) {
	caller, err := h.principal(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req joinCourseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ValidationErrorf("invalid request body"))
		return
	}
	p, invalidated, err := h.participations.Join(r.Context(), caller, req.CourseID, req.DisplayName, req.Avatar)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, p, invalidated)
}

func (h *Handler) leaderboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		writeError(w, domain.ValidationErrorf("missing sessionId"))
		return
	}
	lb, err := h.leaderboards.SessionLeaderboard(r.Context(), sessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lb)
}
