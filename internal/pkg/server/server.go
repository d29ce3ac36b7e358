package server

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/studioclock/integration/internal/pkg/countdown"
	"github.com/studioclock/integration/internal/pkg/mixer"
	"github.com/studioclock/integration/internal/pkg/model"
)

const maxBodyBytes = 1 << 20

type switcherService interface {
	State() *model.DeviceState
	Countdown() countdown.Projection
	Active() (int, bool)
}

type recorderService interface {
	State() *model.RecordingState
}

type mixerService interface {
	Snapshot() mixer.Snapshot
}

type casparService interface {
	Ping() error
	PlayTemplate(channel, layer int, template, data string) error
	UpdateTemplate(channel, layer int, data string) error
	StopTemplate(channel, layer int) error
	WriteTemplateFile(relPath string, content []byte) (string, error)
}

type server struct {
	switcher switcherService
	recorder recorderService
	mixer    mixerService
	caspar   casparService
	logger   *zap.Logger
}

func New(sw switcherService, rec recorderService, mix mixerService, cg casparService) *server {
	return &server{
		switcher: sw,
		recorder: rec,
		mixer:    mix,
		caspar:   cg,
		logger:   zap.L(),
	}
}

// Router wires the read-model and command endpoints.
func (s *server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(LoggingMiddleware)
	r.HandleFunc("/healthz", s.getHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/api/state", s.getState).Methods(http.MethodGet)
	r.HandleFunc("/api/countdown", s.getCountdown).Methods(http.MethodGet)
	r.HandleFunc("/api/caspar/ping", s.getCasparPing).Methods(http.MethodGet)
	r.HandleFunc("/api/caspar/template/play", s.postTemplatePlay).Methods(http.MethodPost)
	r.HandleFunc("/api/caspar/template/update", s.postTemplateUpdate).Methods(http.MethodPost)
	r.HandleFunc("/api/caspar/template/stop", s.postTemplateStop).Methods(http.MethodPost)
	r.HandleFunc("/api/caspar/template/file", s.postTemplateFile).Methods(http.MethodPost)
	return r
}

type switcherView struct {
	Status       model.Status         `json:"status"`
	Err          string               `json:"error,omitempty"`
	ProgramTally []string             `json:"program_tally"`
	ActiveDDR    int                  `json:"active_ddr,omitempty"`
	Countdown    countdown.Projection `json:"countdown"`
}

type stateView struct {
	Switcher  switcherView          `json:"switcher"`
	Recording *model.RecordingState `json:"recording"`
	Mic       mixer.Snapshot        `json:"mic"`
}

func (s *server) getState(w http.ResponseWriter, _ *http.Request) {
	device := s.switcher.State()
	view := stateView{
		Switcher: switcherView{
			Status:       device.Status,
			Err:          device.Err,
			ProgramTally: device.ProgramTally,
			Countdown:    s.switcher.Countdown(),
		},
		Recording: s.recorder.State(),
		Mic:       s.mixer.Snapshot(),
	}
	if active, ok := s.switcher.Active(); ok {
		view.Switcher.ActiveDDR = active
	}
	writeJSON(w, view)
}

func (s *server) getCountdown(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.switcher.Countdown())
}

func (s *server) getHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *server) getCasparPing(w http.ResponseWriter, _ *http.Request) {
	if err := s.caspar.Ping(); err != nil {
		handleError(w, http.StatusBadGateway, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

type templatePlayPayload struct {
	Channel  int    `json:"channel"`
	Layer    int    `json:"layer"`
	Template string `json:"template"`
	Data     string `json:"data"`
}

func (s *server) postTemplatePlay(w http.ResponseWriter, r *http.Request) {
	req, err := unmarshalPayload[templatePlayPayload](r)
	if err != nil {
		handleError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.caspar.PlayTemplate(req.Channel, req.Layer, req.Template, req.Data); err != nil {
		handleError(w, http.StatusBadGateway, err)
		return
	}
	s.logger.Info("template played", zap.Int("channel", req.Channel), zap.Int("layer", req.Layer), zap.String("template", req.Template))
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("success"))
}

type templateUpdatePayload struct {
	Channel int    `json:"channel"`
	Layer   int    `json:"layer"`
	Data    string `json:"data"`
}

func (s *server) postTemplateUpdate(w http.ResponseWriter, r *http.Request) {
	req, err := unmarshalPayload[templateUpdatePayload](r)
	if err != nil {
		handleError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.caspar.UpdateTemplate(req.Channel, req.Layer, req.Data); err != nil {
		handleError(w, http.StatusBadGateway, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("success"))
}

type templateStopPayload struct {
	Channel int `json:"channel"`
	Layer   int `json:"layer"`
}

func (s *server) postTemplateStop(w http.ResponseWriter, r *http.Request) {
	req, err := unmarshalPayload[templateStopPayload](r)
	if err != nil {
		handleError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.caspar.StopTemplate(req.Channel, req.Layer); err != nil {
		handleError(w, http.StatusBadGateway, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("success"))
}

type templateFilePayload struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

func (s *server) postTemplateFile(w http.ResponseWriter, r *http.Request) {
	req, err := unmarshalPayload[templateFilePayload](r)
	if err != nil {
		handleError(w, http.StatusBadRequest, err)
		return
	}
	full, err := s.caspar.WriteTemplateFile(req.Path, []byte(req.Content))
	if err != nil {
		handleError(w, http.StatusBadRequest, err)
		return
	}
	s.logger.Info("template file written", zap.String("path", full))
	writeJSON(w, map[string]string{"path": full})
}

func writeJSON(w http.ResponseWriter, value any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(value); err != nil {
		zap.L().Error("failed to encode response", zap.Error(err))
	}
}

func handleError(w http.ResponseWriter, status int, err error) {
	w.WriteHeader(status)
	w.Write([]byte(err.Error()))
}

func unmarshalPayload[T any](r *http.Request) (*T, error) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
