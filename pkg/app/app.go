package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"sync"
	"time"

	"github.com/nergy-se/hourcontroller/pkg/alarm"
	"github.com/nergy-se/hourcontroller/pkg/api/v1/config"
	"github.com/nergy-se/hourcontroller/pkg/api/v1/meter"
	"github.com/nergy-se/hourcontroller/pkg/api/v1/types"
	"github.com/nergy-se/hourcontroller/pkg/controller"
	"github.com/nergy-se/hourcontroller/pkg/controller/dummy"
	"github.com/nergy-se/hourcontroller/pkg/controller/modbusgate"
	"github.com/nergy-se/hourcontroller/pkg/hourselection"
	"github.com/nergy-se/hourcontroller/pkg/mbus"
	"github.com/nergy-se/hourcontroller/pkg/metrics"
	"github.com/nergy-se/hourcontroller/pkg/modbusclient"
	"github.com/nergy-se/hourcontroller/pkg/mqtt"
	"github.com/nergy-se/hourcontroller/pkg/state"
	"github.com/nergy-se/hourcontroller/pkg/store"
	"github.com/nergy-se/hourcontroller/pkg/version"
	"github.com/nergy-se/hourcontroller/pkg/webapi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const (
	alarmInvalidOptions = "hour selection options invalid"
	alarmGate           = "gate not responding"
	dateFormat          = "2006-01-02"
)

var httpClient = &http.Client{
	Timeout: time.Second * 30,
}

type clockFunc func() time.Time

func (c clockFunc) Now() time.Time { return c() }

type App struct {
	wg        *sync.WaitGroup
	cliConfig *config.CliConfig
	config    *config.Config

	// mutex serializes everything touching hours. cron jobs, the meter loop and http run
	// concurrently.
	mutex  sync.Mutex
	hours  *hourselection.Service
	failed map[string]bool

	store      *store.Store
	gate       controller.Gate
	mqtt       *mqtt.Publisher
	mbus       *mbus.Mbus
	meterModel string
	meterID    string
	registry   *prometheus.Registry
	metrics    *metrics.Metrics
	alarms     *alarm.ActiveAlarms
	meterCache *meter.Cache
	peak       *meter.PeakTracker
	cron       *cron.Cron
	now        func() time.Time
}

func New(cliConfig *config.CliConfig) *App {
	registry := prometheus.NewRegistry()
	a := &App{
		wg:         &sync.WaitGroup{},
		cliConfig:  cliConfig,
		config:     config.NewConfig(),
		failed:     map[string]bool{},
		registry:   registry,
		metrics:    metrics.New(registry),
		alarms:     &alarm.ActiveAlarms{},
		meterCache: &meter.Cache{},
		peak:       meter.NewPeakTracker(),
		cron:       cron.New(cron.WithLocation(time.Local)),
		now:        time.Now,
	}
	a.hours = hourselection.New(a.config, a.config, a,
		hourselection.WithClock(clockFunc(func() time.Time { return a.now() })),
		hourselection.WithFailureHandler(a.dayFailed),
	)
	return a
}

func (a *App) Start(ctx context.Context) error {
	err := a.setupToken()
	if err != nil {
		return err
	}

	cloudConfig, err := a.fetchConfig()
	if err != nil {
		return err
	}
	// an invalid policy refuses updates until a valid one is fetched, status and alarms stay up
	if err := a.applyCloudConfig(cloudConfig); err != nil {
		logrus.Error(err)
	}

	a.gate, err = a.setupGate(cloudConfig)
	if err != nil {
		return err
	}

	if a.cliConfig.DBPath != "" {
		a.store, err = store.New(a.cliConfig.DBPath)
		if err != nil {
			return err
		}
		a.restore()
	}

	if a.cliConfig.MQTTListen != "" {
		server, err := mqtt.Start(ctx, a.wg, a.cliConfig.MQTTListen)
		if err != nil {
			return fmt.Errorf("error starting mqtt: %w", err)
		}
		a.mqtt = mqtt.NewPublisher(server)
		err = mqtt.SubscribeP1ib(server, a.onMeterData)
		if err != nil {
			return err
		}
	}

	a.meterModel, a.meterID = meterConfig(a.cliConfig, cloudConfig)
	if a.meterModel != "" && a.meterID != "" {
		a.mbus = mbus.New(a.cliConfig.MeterDevice)
	}

	a.refreshPrices()
	if err := a.DoUpdate(hourselection.CallerHour); err != nil {
		logrus.Error(err)
	}

	err = a.startCron()
	if err != nil {
		return err
	}

	a.wg.Add(2)
	go a.meterLoop(ctx)
	go a.serveHTTP(ctx)
	return nil
}

func (a *App) Wait() {
	a.wg.Wait()
	a.cron.Stop()
	if a.mbus != nil {
		a.mbus.Close()
	}
	if a.store != nil {
		a.store.Close()
	}
}

func (a *App) setupGate(cloudConfig *config.CloudConfig) (controller.Gate, error) {
	gateType := cloudConfig.GateType
	if a.cliConfig.GateType != "" {
		gateType = types.GateType(a.cliConfig.GateType)
	}
	address := cloudConfig.Address
	if a.cliConfig.ModbusAddress != "" {
		address = a.cliConfig.ModbusAddress
	}

	switch gateType {
	case types.GateTypeModbus:
		client, err := modbusclient.Dial(address, byte(a.cliConfig.ModbusSlave))
		if err != nil {
			return nil, err
		}
		return modbusgate.New(client, a.cliConfig.Readonly), nil
	case types.GateTypeDummy, "":
		return dummy.New(), nil
	}
	return nil, fmt.Errorf("unsupported gate type %q", gateType)
}

// restore loads the hours published before a restart. Only hours from today are used.
func (a *App) restore() {
	h, err := a.store.LoadHours()
	if errors.Is(err, store.ErrNotFound) {
		return
	}
	if err != nil {
		logrus.Errorf("error loading hours: %s", err)
		return
	}
	if h.Date != a.today() {
		logrus.Debugf("ignoring stored hours from %s", h.Date)
		return
	}
	a.mutex.Lock()
	a.hours.Restore(h.Today, h.Tomorrow)
	a.hours.SetPreserveInterim(h.PreserveInterim)
	a.mutex.Unlock()
	logrus.Infof("restored hours from %s", h.UpdatedAt)
}

func (a *App) startCron() error {
	jobs := []struct {
		spec string
		fn   func()
	}{
		{"0 0 * * *", a.midnight},
		{"0 1-23 * * *", a.hourly},
		{a.cliConfig.TomorrowPollSpec, a.pollTomorrow},
		{"*/15 * * * *", a.refreshConfig},
	}
	for _, job := range jobs {
		_, err := a.cron.AddFunc(job.spec, job.fn)
		if err != nil {
			return fmt.Errorf("error adding cron job %q: %w", job.spec, err)
		}
	}
	a.cron.Start()
	return nil
}

func (a *App) midnight() {
	a.config.RolloverPrices(a.today())
	a.refreshPrices()
	if err := a.DoUpdate(hourselection.CallerToday); err != nil {
		logrus.Error(err)
	}
	if a.store != nil {
		if err := a.store.PrunePrices(a.now().AddDate(0, 0, -7).Format(dateFormat)); err != nil {
			logrus.Errorf("error pruning prices: %s", err)
		}
	}
}

func (a *App) hourly() {
	if err := a.DoUpdate(hourselection.CallerHour); err != nil {
		logrus.Error(err)
	}
}

func (a *App) pollTomorrow() {
	if a.config.Prices().HasTomorrow() {
		return
	}
	if !a.refreshPrices() {
		return
	}
	if err := a.DoUpdate(hourselection.CallerTomorrow); err != nil {
		logrus.Error(err)
	}
}

func (a *App) refreshConfig() {
	cloudConfig, err := a.fetchConfig()
	if err != nil {
		logrus.Errorf("error fetching config: %s", err)
		return
	}
	old := a.config.CloudConfig()
	if reflect.DeepEqual(old, cloudConfig) && a.config.Err() == nil {
		return
	}
	if config.CloudConfigNeedsGateSetup(old, cloudConfig) {
		logrus.Warn("gate changed in cloud config, restart to apply")
	}
	if err := a.applyCloudConfig(cloudConfig); err != nil {
		logrus.Error(err)
		return
	}
	if err := a.DoUpdate(hourselection.CallerOptions); err != nil {
		logrus.Error(err)
	}
}

// applyCloudConfig sets the scheduling policy. The invalid options alarm is raised on rejection
// and cleared only when a valid policy is accepted.
func (a *App) applyCloudConfig(cc *config.CloudConfig) error {
	err := a.config.SetCloudConfig(cc)
	if err != nil {
		a.alarms.Add(alarmInvalidOptions)
		return fmt.Errorf("invalid cloud config: %w", err)
	}
	a.alarms.Remove(alarmInvalidOptions)
	a.mutex.Lock()
	a.hours.Invalidate()
	a.mutex.Unlock()
	return nil
}

// setupToken loads the token file, or writes a token given on the command line to it.
func (a *App) setupToken() error {
	if a.cliConfig.Token() != "" {
		if err := a.cliConfig.PersistToken(); err != nil {
			logrus.Warnf("error persisting token: %s", err)
		}
		return nil
	}
	return a.cliConfig.LoadToken()
}

// refreshPrices fetches prices and falls back to the price cache. It returns true if tomorrow's
// prices are known.
func (a *App) refreshPrices() bool {
	date := a.today()
	p, err := a.fetchPrices()
	if err == nil {
		p.Date = date
		a.metrics.PriceFetches.WithLabelValues("ok").Inc()
		a.config.SetPrices(p)
		if a.store != nil {
			if err := a.store.SavePrices(p); err != nil {
				logrus.Errorf("error caching prices: %s", err)
			}
		}
		return p.HasTomorrow()
	}

	a.metrics.PriceFetches.WithLabelValues("error").Inc()
	logrus.Errorf("error fetching prices: %s", err)
	if a.store == nil || len(a.config.PricesToday()) > 0 && a.config.Prices().Date == date {
		return a.config.Prices().HasTomorrow()
	}
	cached, err := a.store.GetPrices(date)
	if err != nil {
		logrus.Errorf("no cached prices: %s", err)
		return false
	}
	logrus.Infof("using cached prices for %s", date)
	a.config.SetPrices(cached)
	return cached.HasTomorrow()
}

// DoUpdate runs the hour selection and applies the result to the gate.
func (a *App) DoUpdate(caller string) error {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	rollover := caller == hourselection.CallerToday && a.hours.PreserveInterim()
	a.failed = map[string]bool{}
	err := a.config.Err()
	if err == nil {
		err = a.hours.Update(caller)
	}
	if err != nil {
		a.metrics.UpdateErrors.WithLabelValues(caller).Inc()
		a.alarms.Add(alarmInvalidOptions)
		return fmt.Errorf("error updating hours from %s: %w", caller, err)
	}
	a.metrics.Updates.WithLabelValues(caller).Inc()
	if rollover {
		a.metrics.Rollovers.Inc()
	}
	for _, day := range []string{types.DayToday, types.DayTomorrow} {
		if !a.failed[day] {
			a.alarms.Remove(dayAlarm(day))
		}
	}

	today := a.hours.HoursToday()
	tomorrow := a.hours.HoursTomorrow()
	a.metrics.ObserveHours(today, tomorrow)
	if a.store != nil {
		err := a.store.SaveHours(store.Hours{
			Date:            a.today(),
			Today:           today,
			Tomorrow:        tomorrow,
			PreserveInterim: a.hours.PreserveInterim(),
		})
		if err != nil {
			logrus.Errorf("error saving hours: %s", err)
		}
	}
	a.reconcile()
	return nil
}

func (a *App) dayFailed(day string, err error) {
	a.failed[day] = true
	a.metrics.DayFailures.WithLabelValues(day).Inc()
	if a.alarms.Add(dayAlarm(day)) {
		logrus.WithFields(logrus.Fields{"day": day, "error": err}).Warn("alarm raised")
	}
}

func dayAlarm(day string) string {
	return fmt.Sprintf("hour selection failed for %s", day)
}

// reconcile applies the current hour to the gate and publishes the state. Callers hold the mutex.
func (a *App) reconcile() {
	allowance, _ := a.hours.CurrentAllowance()
	a.metrics.Allowance.Set(allowance)
	if a.gate != nil {
		err := a.gate.AllowLoad(allowance)
		if err != nil {
			logrus.Errorf("error reconciling gate: %s", err)
			a.alarms.Add(alarmGate)
		} else {
			a.alarms.Remove(alarmGate)
		}
	}
	if a.mqtt != nil {
		a.mqtt.PublishState(a.currentState())
	}
}

func (a *App) currentState() state.State {
	hour := a.hours.CurrentHour()
	allowance, caution := a.hours.CurrentAllowance()
	s := state.State{
		Time:            a.now(),
		Hour:            hour,
		Caution:         caution,
		Allowance:       allowance,
		Peak:            state.Pointer(a.peak.Peak()),
		PreserveInterim: a.hours.PreserveInterim(),
	}
	if price, ok := a.config.PriceAt(hour); ok {
		s.Price = &price
	}
	if d, ok := a.meterCache.Fresh(a.now(), 30*time.Minute); ok {
		s.CurrentKW = state.Pointer(d.KW())
	}
	if a.gate != nil {
		gs, err := a.gate.State()
		if err != nil {
			logrus.Errorf("error reading gate state: %s", err)
		}
		s.Merge(gs)
	}
	return s
}

// Publish forwards published hours to mqtt.
func (a *App) Publish(today, tomorrow hourselection.HourObject) {
	if a.mqtt != nil {
		a.mqtt.Publish(today, tomorrow)
	}
}

func (a *App) Notify(n hourselection.Notification) {
	if a.mqtt != nil {
		a.mqtt.Notify(n)
	}
}

func (a *App) Status() webapi.Status {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	alarms := a.alarms.List()
	if a.gate != nil {
		gateAlarms, err := a.gate.Alarms()
		if err != nil {
			logrus.Errorf("error reading gate alarms: %s", err)
		}
		alarms = append(alarms, gateAlarms...)
	}
	return webapi.Status{
		State:   a.currentState(),
		Alarms:  alarms,
		Meters:  a.meterCache.Meters(),
		Version: version.Version,
	}
}

func (a *App) HoursToday() hourselection.HourObject {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	return a.hours.HoursToday()
}

func (a *App) HoursTomorrow() hourselection.HourObject {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	return a.hours.HoursTomorrow()
}

func (a *App) SetMockHour(hour int) {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	a.hours.SetMockHour(hour)
	a.hours.UpdateHourLists(hourselection.ListAll)
	a.reconcile()
}

func (a *App) ClearMockHour() {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	a.hours.ClearMockHour()
	a.hours.UpdateHourLists(hourselection.ListAll)
	a.reconcile()
}

func (a *App) onMeterData(d meter.Data) {
	a.meterCache.Set(&d)
	peak := a.peak.Add(d)
	a.config.SetPeak(peak)
	a.metrics.Peak.Set(peak)
}

func (a *App) meterLoop(ctx context.Context) {
	defer a.wg.Done()
	delay := calculateNextDelay(a.now())
	timer := time.NewTimer(delay)
	logrus.Debug("scheduling first meter read in ", delay)
	for {
		select {
		case <-timer.C:
			timer.Reset(calculateNextDelay(a.now()))
			a.readMeter()
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}
}

func (a *App) readMeter() {
	if a.mbus == nil {
		return
	}
	d, err := a.mbus.ReadValues(a.meterModel, a.meterID)
	if err != nil {
		logrus.Errorf("error reading meter: %s", err)
		return
	}
	a.onMeterData(*d)
}

// meterConfig returns the mbus meter to read. Command line flags win over the cloud config.
func meterConfig(cli *config.CliConfig, cloud *config.CloudConfig) (string, string) {
	if cli.MeterModel != "" {
		return cli.MeterModel, cli.MeterPrimaryID
	}
	for _, m := range cloud.Meters {
		if m.InterfaceType == "mbus" {
			return m.Model, m.PrimaryID
		}
	}
	return "", ""
}

func (a *App) serveHTTP(ctx context.Context) {
	defer a.wg.Done()
	if a.cliConfig.HTTPListen == "" {
		return
	}
	api := webapi.NewServer(a, a.registry)
	if d, ok := a.gate.(*dummy.Dummy); ok {
		api.Mount("/dummy", d.Routes())
	}
	srv := &http.Server{
		Addr:              a.cliConfig.HTTPListen,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
	logrus.Infof("http listening on %s", a.cliConfig.HTTPListen)
	err := srv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		logrus.Error(err)
	}
}

func (a *App) today() string {
	return a.now().Format(dateFormat)
}

func (a *App) fetchConfig() (*config.CloudConfig, error) {
	response := &config.CloudConfig{}
	err := a.get("/api/controller/config-v1", response)
	return response, err
}

func (a *App) fetchPrices() (config.Prices, error) {
	response := config.Prices{}
	err := a.get("/api/controller/prices-v1", &response)
	return response, err
}

func (a *App) get(path string, v any) error {
	u := fmt.Sprintf("%s%s", a.cliConfig.Server, path)
	req, err := http.NewRequest("GET", u, nil)
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Add("Authorization", a.cliConfig.Token())

	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return fmt.Errorf("error fetching %s StatusCode: %d", path, resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(v)
}
