// Package web serves the estimation form over HTTP.
package web

import (
	"context"
	"crypto/sha256"
	"encoding/gob"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"

	"immo-estimator/apperrors"
	"immo-estimator/form"
	"immo-estimator/models"
	"immo-estimator/services"
	"immo-estimator/storage"
	"immo-estimator/utils"
)

// SessionName is the name of the form session cookie.
const SessionName = "estimator-session"

// Session value keys.
const (
	sessionKeyState  = "state"
	sessionKeyFields = "fields"
	sessionKeyPrice  = "price"
)

func init() {
	gob.Register(map[string]string{})
}

// Server renders the form and turns its final step into a prediction.
type Server struct {
	logger    *utils.Logger
	predictor services.Predictor
	recorder  storage.PredictionRecorder
	store     *sessions.CookieStore
	opts      form.Options
}

// NewServer creates a Server. The secret signs session cookies and is
// hashed to a 32-byte key.
func NewServer(logger *utils.Logger, predictor services.Predictor, recorder storage.PredictionRecorder, secret string, opts form.Options) *Server {
	if recorder == nil {
		recorder = storage.NopRecorder{}
	}
	key := sha256.Sum256([]byte(secret))
	store := sessions.NewCookieStore(key[:])
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   3600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return &Server{
		logger:    logger,
		predictor: predictor,
		recorder:  recorder,
		store:     store,
		opts:      opts,
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleShow)
	mux.HandleFunc("POST /{$}", s.handleAction)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	})
	return mux
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("[web] Listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("web: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("[web] Shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

type sessionState struct {
	state  form.State
	fields form.Fields
	price  float64
}

func (s *Server) load(r *http.Request) (*sessions.Session, sessionState) {
	sess, err := s.store.Get(r, SessionName)
	if err != nil {
		// A cookie signed with another key starts a fresh form.
		s.logger.Debug("[web] Discarding unreadable session: %v", err)
	}
	st := sessionState{state: form.Details, fields: form.Fields{}}
	if v, ok := sess.Values[sessionKeyState].(int); ok && form.State(v).Valid() {
		st.state = form.State(v)
	}
	if v, ok := sess.Values[sessionKeyFields].(map[string]string); ok {
		st.fields = form.Fields(v)
	}
	if v, ok := sess.Values[sessionKeyPrice].(float64); ok {
		st.price = v
	}
	return sess, st
}

func (s *Server) save(w http.ResponseWriter, r *http.Request, sess *sessions.Session, st sessionState) error {
	sess.Values[sessionKeyState] = int(st.state)
	sess.Values[sessionKeyFields] = map[string]string(st.fields)
	sess.Values[sessionKeyPrice] = st.price
	return sess.Save(r, w)
}

func (s *Server) handleShow(w http.ResponseWriter, r *http.Request) {
	_, st := s.load(r)
	s.render(w, http.StatusOK, st, "")
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	sess, st := s.load(r)

	submitted := form.Fields{}
	for k := range r.PostForm {
		if k != "action" {
			submitted[k] = r.PostForm.Get(k)
		}
	}
	action := form.Action(r.PostForm.Get("action"))

	next, fields, err := form.Transition(st.state, action, submitted, st.fields, s.opts)
	if err != nil {
		var ve *form.ValidationError
		switch {
		case errors.As(err, &ve):
			s.render(w, http.StatusUnprocessableEntity, st, ve.Error())
		case errors.Is(err, apperrors.ErrInvalidTransition):
			s.render(w, http.StatusBadRequest, st, err.Error())
		default:
			s.render(w, http.StatusInternalServerError, st, err.Error())
		}
		return
	}

	out := sessionState{state: next, fields: fields}
	if next == form.Result && st.state != form.Result {
		price, err := s.predict(r.Context(), fields)
		if err != nil {
			s.logger.Error("[web] Prediction failed: %v", err)
			s.render(w, http.StatusInternalServerError, st, "prediction failed")
			return
		}
		out.price = price
	} else if next == form.Result {
		out.price = st.price
	}

	if err := s.save(w, r, sess, out); err != nil {
		s.logger.Error("[web] Failed to save session: %v", err)
		http.Error(w, "session error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) predict(ctx context.Context, fields form.Fields) (float64, error) {
	price, err := s.predictor.Predict(fields)
	if err != nil {
		return 0, err
	}
	s.logger.Info("[web] Predicted %s for %d fields", services.FormatPrice(price), len(fields))

	rec := &models.PredictionRecord{
		ID:        uuid.NewString(),
		Fields:    fields.Clone(),
		Price:     price,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.recorder.RecordPrediction(ctx, rec); err != nil {
		s.logger.Warn("[web] Failed to record prediction %s: %v", rec.ID, err)
	}
	return price, nil
}
