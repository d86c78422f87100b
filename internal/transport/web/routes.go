package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/avstrong/arisync/internal/calendar"
	"github.com/avstrong/arisync/internal/inventory"
	"github.com/avstrong/arisync/internal/ota"
	"github.com/avstrong/arisync/internal/rate"
	"github.com/avstrong/arisync/internal/reconcile"
)

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.l.LogErrorf("Could not encode response: %v", err.Error())
	}
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, s.conf.MaxBodyBytes)

	if err := json.NewDecoder(body).Decode(v); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed request body"})

		return false
	}

	return true
}

func (s *Server) writeOTA(w http.ResponseWriter, reply ota.Reply) {
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.WriteHeader(reply.Status)

	if _, err := w.Write(reply.Body); err != nil {
		s.l.LogErrorf("Could not write %s response: %v", ota.ResponseName(reply.Result.Root), err.Error())
	}
}

// otaHandler always answers with an OTA document, also when the body is unreadable or
// processing panics, so the sender can tell a rejected document from a failed one.
func (s *Server) otaHandler(w http.ResponseWriter, r *http.Request) {
	var body []byte

	defer func() {
		if re := recover(); re != nil {
			s.l.LogErrorf("type: panic, requestID: %s, error: %v", RequestIDFromContext(r.Context()), re)
			s.writeOTA(w, s.ota.Reject(body, ota.ProcessingError, "unexpected failure while processing document"))
		}
	}()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.conf.MaxBodyBytes))
	if err != nil {
		s.writeOTA(w, s.ota.Reject(body, ota.StructuralError, "request body could not be read: %s", err.Error()))

		return
	}

	s.writeOTA(w, s.ota.Process(r.Context(), body))
}

type quoteRequest struct {
	HotelCode   string `json:"hotelCode"`
	InvTypeCode string `json:"invTypeCode"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	Adults      int    `json:"adults"`
	Children    int    `json:"children"`
	Rooms       int    `json:"rooms"`
}

func (q *quoteRequest) toRequest() (*rate.Request, string) {
	start, err := calendar.Parse(q.StartDate)
	if err != nil {
		return nil, "startDate is not a valid date"
	}

	end, err := calendar.Parse(q.EndDate)
	if err != nil {
		return nil, "endDate is not a valid date"
	}

	return &rate.Request{
		HotelCode:   q.HotelCode,
		InvTypeCode: q.InvTypeCode,
		StartDate:   start,
		EndDate:     end,
		Adults:      q.Adults,
		Children:    q.Children,
		Rooms:       q.Rooms,
	}, ""
}

func (s *Server) quoteHandler(w http.ResponseWriter, r *http.Request) {
	var in quoteRequest
	if !s.decode(w, r, &in) {
		return
	}

	req, msg := in.toRequest()
	if req == nil {
		//nolint:exhaustruct
		s.writeJSON(w, http.StatusBadRequest, rate.Result{Message: msg})

		return
	}

	res, err := s.quotes.Quote(r.Context(), req)
	if err != nil {
		s.l.LogErrorf("Could not quote %s/%s: %v", req.HotelCode, req.InvTypeCode, err.Error())
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)

		return
	}

	s.writeJSON(w, http.StatusOK, res)
}

type statusRequest struct {
	inventory.UpdateStatusInput
	Detailed bool `json:"detailed"`
}

func (s *Server) inventoryStatusHandler(w http.ResponseWriter, r *http.Request) {
	var in statusRequest
	if !s.decode(w, r, &in) {
		return
	}

	update := s.inventory.UpdateStatus
	if in.Detailed {
		update = s.inventory.UpdateStatusDetailed
	}

	res, err := update(r.Context(), &in.UpdateStatusInput)
	if inputErr := inventory.IsInputError(err); inputErr != nil {
		s.writeJSON(w, http.StatusBadRequest, inputErr.Fields())

		return
	}

	if err != nil {
		s.l.LogErrorf("Could not update inventory status: %v", err.Error())
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)

		return
	}

	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) reconcileHandler(w http.ResponseWriter, r *http.Request) {
	var in reconcile.Input
	if !s.decode(w, r, &in) {
		return
	}

	res, err := s.reconciler.Reconcile(r.Context(), &in)
	if inputErr := reconcile.IsInputError(err); inputErr != nil {
		s.writeJSON(w, http.StatusBadRequest, inputErr.Fields())

		return
	}

	if errors.Is(err, reconcile.ErrLocked) {
		s.writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})

		return
	}

	if err != nil {
		s.l.LogErrorf("Could not reconcile feed: %v", err.Error())
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)

		return
	}

	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) livenessHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handle(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.Handle(pattern, s.applyMiddlewares(h, s.loggerMiddleware(), s.recoverMiddleware(), s.requestIDMiddleware()))
}

func (s *Server) addRoutes(r *http.ServeMux) {
	s.handle(r, "POST /ota/v1", s.otaHandler)
	s.handle(r, "POST /api/quotes/v1", s.quoteHandler)
	s.handle(r, "POST /api/inventory/status/v1", s.inventoryStatusHandler)
	s.handle(r, "POST /api/ari/v1/reconcile", s.reconcileHandler)
	s.handle(r, fmt.Sprintf("GET %s", s.conf.LivenessEndpoint), s.livenessHandler)
}
