package web

import (
	"context"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/avstrong/arisync/internal/inventory"
	"github.com/avstrong/arisync/internal/logger"
	"github.com/avstrong/arisync/internal/ota"
	"github.com/avstrong/arisync/internal/rate"
	"github.com/avstrong/arisync/internal/reconcile"
)

type quoter interface {
	Quote(ctx context.Context, req *rate.Request) (rate.Result, error)
}

type statusUpdater interface {
	UpdateStatus(ctx context.Context, input *inventory.UpdateStatusInput) (*inventory.UpdateResult, error)
	UpdateStatusDetailed(ctx context.Context, input *inventory.UpdateStatusInput) (*inventory.UpdateResult, error)
}

type otaProcessor interface {
	Process(ctx context.Context, body []byte) ota.Reply
	Reject(body []byte, t ota.FaultType, format string, v ...any) ota.Reply
}

type reconciler interface {
	Reconcile(ctx context.Context, input *reconcile.Input) (*reconcile.Result, error)
}

type Server struct {
	srv        *http.Server
	router     *http.ServeMux
	l          *logger.Logger
	conf       Conf
	quotes     quoter
	inventory  statusUpdater
	ota        otaProcessor
	reconciler reconciler
}

type Conf struct {
	L                 *logger.Logger
	ServerLogger      *log.Logger
	Host              string
	Port              string
	ReadHeaderTimeout time.Duration
	MaxBodyBytes      int64
	LivenessEndpoint  string
}

type Services struct {
	Quotes     quoter
	Inventory  statusUpdater
	OTA        otaProcessor
	Reconciler reconciler
}

const defaultMaxBodyBytes = 1 << 20

func New(ctx context.Context, conf Conf, services Services) (*Server, error) {
	mux := http.NewServeMux()

	if conf.MaxBodyBytes <= 0 {
		conf.MaxBodyBytes = defaultMaxBodyBytes
	}

	//nolint:exhaustruct
	srv := &http.Server{
		Addr:              net.JoinHostPort(conf.Host, conf.Port),
		ReadHeaderTimeout: conf.ReadHeaderTimeout,
		ErrorLog:          conf.ServerLogger,
		Handler:           mux,
		BaseContext: func(listener net.Listener) context.Context {
			return ctx
		},
	}

	server := &Server{
		srv:        srv,
		router:     mux,
		l:          conf.L.With("web"),
		conf:       conf,
		quotes:     services.Quotes,
		inventory:  services.Inventory,
		ota:        services.OTA,
		reconciler: services.Reconciler,
	}

	server.addRoutes(mux)

	return server, nil
}

func (s *Server) Srv() *http.Server {
	return s.srv
}

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}
