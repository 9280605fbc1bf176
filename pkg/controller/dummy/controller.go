package dummy

import (
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/nergy-se/hourcontroller/pkg/controller"
	"github.com/nergy-se/hourcontroller/pkg/state"
	"github.com/sirupsen/logrus"
)

// Dummy is a gate without hardware. It logs decisions and lets alarms be raised over http.
type Dummy struct {
	alarms    []string
	allowance float64
	calls     int
	sync.Mutex
}

func New() *Dummy {
	return &Dummy{allowance: 1}
}

// Routes exposes the alarm endpoints for development.
func (ts *Dummy) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/alarm", func(w http.ResponseWriter, req *http.Request) {
		msg := req.URL.Query().Get("message")
		if msg == "" {
			ts.Lock()
			fmt.Fprintf(w, "active alarms: %s", strings.Join(ts.alarms, "|"))
			ts.Unlock()
			return
		}
		logrus.Infof("adding alarm with %s", msg)
		ts.Lock()
		ts.alarms = append(ts.alarms, msg)
		ts.Unlock()
		fmt.Fprintf(w, "adding alarm with %s\n", msg)
	})
	r.Get("/resetalarms", func(w http.ResponseWriter, req *http.Request) {
		ts.Lock()
		ts.alarms = nil
		ts.Unlock()
		fmt.Fprintf(w, "alarms reset\n")
	})
	return r
}

func (ts *Dummy) State() (*state.State, error) {
	ts.Lock()
	defer ts.Unlock()
	percent := float64(controller.Percent(ts.allowance))
	return &state.State{
		LoadAllowed:      state.Pointer(percent > 0),
		AllowancePercent: &percent,
		Alarm:            state.Pointer(len(ts.alarms) > 0),
	}, nil
}

func (ts *Dummy) AllowLoad(allowance float64) error {
	logrus.Info("dummy: AllowLoad: ", allowance)
	ts.Lock()
	ts.allowance = allowance
	ts.calls++
	ts.Unlock()
	return nil
}

// Allowance returns the last allowance and how many times AllowLoad was called.
func (ts *Dummy) Allowance() (float64, int) {
	ts.Lock()
	defer ts.Unlock()
	return ts.allowance, ts.calls
}

func (ts *Dummy) Alarms() ([]string, error) {
	ts.Lock()
	defer ts.Unlock()
	return append([]string{}, ts.alarms...), nil
}
