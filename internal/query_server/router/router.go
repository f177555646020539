package router

import (
	"github.com/Avi18971911/SpanTree/internal/query_server/handler"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"net/http"
)
import "github.com/gorilla/mux"

const spanIdPattern = "{id:[0-9]+}"

func CreateRouter(
	reader handler.SpanTreeReader,
	gatherer prometheus.Gatherer,
	logger *zap.Logger,
) http.Handler {
	r := mux.NewRouter()

	r.Handle("/spans/roots", handler.RootsHandler(reader, logger)).Methods("GET")
	r.Handle("/spans/"+spanIdPattern, handler.SpanHandler(reader, logger)).Methods("GET")
	r.Handle("/spans/"+spanIdPattern+"/children", handler.ChildrenHandler(reader, logger)).Methods("GET")
	r.Handle("/spans/"+spanIdPattern+"/ancestry", handler.AncestryHandler(reader, logger)).Methods("GET")
	r.Handle("/orphans", handler.OrphansHandler(reader, logger)).Methods("GET")
	r.Handle("/diagnostics", handler.DiagnosticsHandler(reader, logger)).Methods("GET")
	r.Handle("/tree", handler.TreeHandler(reader, logger)).Methods("GET")
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods("GET")

	return r
}
