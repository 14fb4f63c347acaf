package stats

import (
	"encoding/json"
	"expvar"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	ConnectedClients = "ConnectedClients"
	LiveViews        = "LiveViews"
	ViewFetches      = "ViewFetches"
	ViewFetchErrors  = "ViewFetchErrors"
	RoomWrites       = "RoomWrites"
)

type StatsProvider interface {
	Incr(name string)
	Decr(name string)
	RegisterMetric(name string)
	Run()
}

// StatsUpdater serializes metric updates through a single goroutine and
// exposes them as JSON at GET /debug/vars.
type StatsUpdater struct {
	log        *zap.Logger
	vars       *expvar.Map
	updateChan chan metricsUpdateReq
	done       chan struct{}
}

type metricsUpdateReq struct {
	name  string
	value int64
}

func NewStatsUpdater(logger *zap.Logger, mux *http.ServeMux) *StatsUpdater {
	su := &StatsUpdater{
		log:        logger,
		vars:       new(expvar.Map).Init(),
		updateChan: make(chan metricsUpdateReq, 512),
		done:       make(chan struct{}),
	}
	mux.Handle("GET /debug/vars", http.HandlerFunc(su.expvarHandler))

	startTime := time.Now()
	su.vars.Set("Uptime", expvar.Func(func() any {
		return time.Since(startTime).Milliseconds()
	}))

	for _, name := range []string{ConnectedClients, LiveViews, ViewFetches, ViewFetchErrors, RoomWrites} {
		su.RegisterMetric(name)
	}

	return su
}

// Snapshot returns the current value of every metric.
func (su *StatsUpdater) Snapshot() map[string]any {
	data := make(map[string]any)
	su.vars.Do(func(kv expvar.KeyValue) {
		var value any
		if err := json.Unmarshal([]byte(kv.Value.String()), &value); err != nil {
			value = kv.Value.String()
		}
		data[kv.Key] = value
	})
	return data
}

func (su *StatsUpdater) expvarHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(su.Snapshot()); err != nil {
		su.log.Error("failed to encode metrics", zap.Error(err))
	}
}

func (su *StatsUpdater) updateMetrics() {
	defer close(su.done)

	for req := range su.updateChan {
		metric, ok := su.vars.Get(req.name).(*expvar.Int)
		if !ok {
			su.log.Warn("update for unregistered metric", zap.String("metric", req.name))
			continue
		}

		metric.Add(req.value)
	}
}

func (su *StatsUpdater) Incr(name string) {
	su.updateChan <- metricsUpdateReq{name: name, value: 1}
}

func (su *StatsUpdater) Decr(name string) {
	su.updateChan <- metricsUpdateReq{name: name, value: -1}
}

func (su *StatsUpdater) RegisterMetric(name string) {
	su.vars.Set(name, new(expvar.Int))
}

func (su *StatsUpdater) Run() {
	go su.updateMetrics()
}

// Stop drains pending updates and stops the update goroutine.
func (su *StatsUpdater) Stop() {
	close(su.updateChan)
	<-su.done
}
