package mainboilerplate

import (
	"fmt"
	"net"
	"net/http"
	_ "net/http/pprof" // Import for /debug/pprof
	"os"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.feedcache.dev/core/metrics"
	"golang.org/x/net/netutil"
)

// DiagnosticsConfig configures pull-based application metrics, debugging and diagnostics.
type DiagnosticsConfig struct {
	Port uint16 `long:"port" env:"PORT" description:"Port at which /debug/metrics and /debug/pprof are served. Diagnostics are not served if zero"`
}

var registerOnce sync.Once

// RegisterCollectors registers feed cache collectors with the default
// prometheus Registerer. It may be called more than once.
func RegisterCollectors() {
	registerOnce.Do(func() {
		prometheus.MustRegister(metrics.FeedCacheCollectors()...)
	})
}

// InitDiagnosticsAndRecover registers collectors and, if a diagnostics Port
// is configured, begins serving metrics and debugging services of the
// default HTTP mux. It returns a closure to be deferred, which recovers a
// panic, logs it and writes a termination message, and then re-panics.
func InitDiagnosticsAndRecover(cfg DiagnosticsConfig) func() {
	RegisterCollectors()

	if cfg.Port != 0 {
		// Package "net/http/pprof" serves /debug/pprof/.
		http.Handle("/debug/metrics", promhttp.Handler())
		http.HandleFunc("/debug/ready", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})

		var ln, err = net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
		Must(err, "failed to listen for diagnostics", "port", cfg.Port)
		ln = netutil.LimitListener(ln, maxDiagnosticsConns)

		go func() {
			if err := http.Serve(ln, nil); err != nil {
				log.WithField("err", err).Warn("diagnostics server exited")
			}
		}()
		log.WithField("addr", ln.Addr()).Info("serving diagnostics")
	}

	return func() {
		if r := recover(); r != nil {
			// Best-effort write of a Kubernetes termination message.
			if f, err := os.OpenFile(k8sTerminationLog, os.O_WRONLY, 0777); err == nil {
				fmt.Fprintf(f, "%+v", r)
				f.Close()
			}
			panic(r)
		}
	}
}

// Must panics if |err| is non-nil, supplying |msg| and |extra| as
// formatter and fields of the generated panic.
func Must(err error, msg string, extra ...interface{}) {
	if err == nil {
		return
	}
	var f = log.Fields{"err": err}
	for i := 0; i+1 < len(extra); i += 2 {
		f[extra[i].(string)] = extra[i+1]
	}
	log.WithFields(f).Panic(msg)
}

const (
	// k8sTerminationLog is where Kubernetes reads a container's termination message.
	k8sTerminationLog = "/dev/termination-log"
	// maxDiagnosticsConns bounds concurrent connections to the diagnostics server.
	maxDiagnosticsConns = 16
)
