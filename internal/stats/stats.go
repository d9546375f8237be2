package stats

import (
	"encoding/json"
	"expvar"
	"net/http"
	"sync"
	"time"
)

const (
	NumSessions             = "NumSessions"
	NumOnlineUsers          = "NumOnlineUsers"
	NumActiveRooms          = "NumActiveRooms"
	NumNotificationsPushed  = "NumNotificationsPushed"
	NumNotificationsDropped = "NumNotificationsDropped"
)

type StatsProvider interface {
	Incr(name string)
	Decr(name string)
	RegisterMetric(name string)
	Run()
	Stop()
}

// StatsUpdater applies counter updates on its own goroutine. Incr and Decr
// never block the caller: updates are dropped when the queue is full or the
// updater has stopped.
type StatsUpdater struct {
	vars       *expvar.Map
	updateChan chan *metricsUpdateReq
	quit       chan struct{}
	stopOnce   sync.Once
}

type metricsUpdateReq struct {
	name  string
	value int
}

func (su *StatsUpdater) expvarHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	expvarData := make(map[string]any)
	su.vars.Do(func(kv expvar.KeyValue) {
		var value any
		json.Unmarshal([]byte(kv.Value.String()), &value)
		expvarData[kv.Key] = value
	})

	json.NewEncoder(w).Encode(expvarData)
}

// NewStatsUpdater creates a stats updater publishing its variables on mux.
// The expvar map is process-global, so only one updater may be created per process.
func NewStatsUpdater(mux *http.ServeMux) *StatsUpdater {
	return newStatsUpdater(mux, expvar.NewMap("vicharmanthan"))
}

func newStatsUpdater(mux *http.ServeMux, vars *expvar.Map) *StatsUpdater {
	su := &StatsUpdater{
		vars:       vars,
		updateChan: make(chan *metricsUpdateReq, 512),
		quit:       make(chan struct{}),
	}
	mux.Handle("GET /debug/vars", http.HandlerFunc(su.expvarHandler))
	su.initializeMetrics()

	return su
}

func (su *StatsUpdater) initializeMetrics() {
	startTime := time.Now()
	su.vars.Set("Uptime", expvar.Func(func() any {
		return time.Since(startTime).Milliseconds()
	}))
}

func (su *StatsUpdater) updateMetrics() {
	for {
		select {
		case req := <-su.updateChan:
			metric := su.vars.Get(req.name)
			if metric == nil {
				panic("metric not found: " + req.name)
			}

			metric.(*expvar.Int).Add(int64(req.value))
		case <-su.quit:
			return
		}
	}
}

func (su *StatsUpdater) Incr(name string) {
	su.update(&metricsUpdateReq{name: name, value: 1})
}

func (su *StatsUpdater) Decr(name string) {
	su.update(&metricsUpdateReq{name: name, value: -1})
}

func (su *StatsUpdater) update(req *metricsUpdateReq) {
	select {
	case <-su.quit:
		return
	default:
	}

	select {
	case su.updateChan <- req:
	default:
	}
}

func (su *StatsUpdater) RegisterMetric(name string) {
	if su.vars.Get(name) != nil {
		return
	}
	su.vars.Set(name, new(expvar.Int))
}

func (su *StatsUpdater) Run() {
	go su.updateMetrics()
}

// Stop ends the update loop. It is safe to call more than once, and updates
// sent afterwards are discarded.
func (su *StatsUpdater) Stop() {
	su.stopOnce.Do(func() { close(su.quit) })
}
