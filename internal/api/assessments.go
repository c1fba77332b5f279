package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/MrWong99/lectio/internal/assess"
	"github.com/MrWong99/lectio/internal/observe"
	"github.com/MrWong99/lectio/internal/score"
	"github.com/MrWong99/lectio/internal/segment"
	"github.com/MrWong99/lectio/pkg/provider/stt/replay"
)

// CreateRequest is the body of POST /v1/assessments.
type CreateRequest struct {
	ReferenceText string `json:"reference_text"`
	Language      string `json:"language,omitempty"`
	Title         string `json:"title,omitempty"`
	Miscue        *bool  `json:"miscue,omitempty"`

	// Recording holds the recognizer's detailed results: a JSON array of
	// results or a single result object.
	Recording json.RawMessage `json:"recording"`

	// Calibration is an optional detailed result for the reference text
	// itself. Its words become the segmentation dictionary, which languages
	// written without spaces need.
	Calibration json.RawMessage `json:"calibration,omitempty"`
}

func (req CreateRequest) validate() error {
	var errs []error
	if strings.TrimSpace(req.ReferenceText) == "" {
		errs = append(errs, errors.New("reference_text is required"))
	}
	if len(req.Recording) == 0 || string(req.Recording) == "null" {
		errs = append(errs, errors.New("recording is required"))
	}
	return errors.Join(errs...)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req CreateRequest
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, err)
			return
		}
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	rep, err := s.assess(ctx, req)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			observe.Logger(ctx).Error("api: assessment failed", "err", err)
		}
		writeError(w, status, err)
		return
	}

	if err := s.store.Save(ctx, rep); err != nil {
		observe.SessionLogger(ctx, rep.ID).Error("api: save report failed", "err", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Location", "/v1/assessments/"+rep.ID)
	writeJSON(w, http.StatusCreated, rep)
}

// assess replays the submission through a session and finalizes it.
func (s *Server) assess(ctx context.Context, req CreateRequest) (*assess.Report, error) {
	var seg *segment.Segmenter
	if len(req.Calibration) > 0 && string(req.Calibration) != "null" {
		u, err := replay.ParseUtterance(req.Calibration)
		if err != nil {
			return nil, badRequest(err)
		}
		if seg, err = assess.SegmenterFromCalibration(u); err != nil {
			return nil, badRequest(err)
		}
	}

	provider, err := replay.New(replay.FromBytes(req.Recording))
	if err != nil {
		return nil, err
	}
	sess, err := s.assessor.Load().Start(ctx, provider, assess.Request{
		ReferenceText: req.ReferenceText,
		Language:      req.Language,
		Title:         req.Title,
		Miscue:        req.Miscue,
		Segmenter:     seg,
	})
	if err != nil {
		// Start fails here only when the recording does not parse.
		return nil, badRequest(err)
	}
	defer sess.Close()

	if err := sess.Wait(ctx); err != nil {
		return nil, fmt.Errorf("api: wait for session %s: %w", sess.ID(), err)
	}
	return sess.Finalize(ctx)
}

type requestError struct{ err error }

func (e requestError) Error() string { return e.err.Error() }
func (e requestError) Unwrap() error { return e.err }

func badRequest(err error) error { return requestError{err: err} }

func statusFor(err error) int {
	var re requestError
	switch {
	case errors.As(err, &re):
		return http.StatusBadRequest
	case errors.Is(err, score.ErrEmptyInput),
		errors.Is(err, segment.ErrEmptyReference),
		errors.Is(err, segment.ErrEmptyDictionary):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
