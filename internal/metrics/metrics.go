// Package metrics exports registry and radio state to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder holds the ble-beacon collectors. A nil *Recorder is valid and
// records nothing.
type Recorder struct {
	registry *prometheus.Registry

	visible      prometheus.Gauge
	rssi         *prometheus.GaugeVec
	distance     *prometheus.GaugeVec
	observations prometheus.Counter
	expired      prometheus.Counter
	failures     *prometheus.CounterVec
	radioState   *prometheus.GaugeVec
}

// New creates a Recorder on its own registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		visible: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "blebeacon_devices_visible",
			Help: "Devices currently held by the registry.",
		}),
		rssi: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "blebeacon_device_rssi_dbm",
			Help: "Last RSSI stored for a device.",
		}, []string{"id"}),
		distance: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "blebeacon_device_distance_meters",
			Help: "Estimated distance to a device.",
		}, []string{"id"}),
		observations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blebeacon_observations_total",
			Help: "Device-found events accepted by the registry.",
		}),
		expired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blebeacon_devices_expired_total",
			Help: "Devices dropped by the liveness sweep.",
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blebeacon_radio_failures_total",
			Help: "Failed radio operations by operation.",
		}, []string{"op"}),
		radioState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "blebeacon_radio_state",
			Help: "Radio state machine position (0 idle, 1 starting, 2 active, 3 stopping).",
		}, []string{"radio"}),
	}
	r.registry.MustRegister(r.visible, r.rssi, r.distance, r.observations,
		r.expired, r.failures, r.radioState)
	return r
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests and extra collectors.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// DeviceObserved records an accepted observation.
func (r *Recorder) DeviceObserved(id string, rssi int16, distance float64, hasDistance bool) {
	if r == nil {
		return
	}
	r.observations.Inc()
	r.rssi.WithLabelValues(id).Set(float64(rssi))
	if hasDistance {
		r.distance.WithLabelValues(id).Set(distance)
	}
}

// DevicesExpired drops per-device series for expired ids.
func (r *Recorder) DevicesExpired(ids []string) {
	if r == nil {
		return
	}
	for _, id := range ids {
		r.rssi.DeleteLabelValues(id)
		r.distance.DeleteLabelValues(id)
	}
	r.expired.Add(float64(len(ids)))
}

// DevicesReset drops every per-device series.
func (r *Recorder) DevicesReset() {
	if r == nil {
		return
	}
	r.rssi.Reset()
	r.distance.Reset()
	r.visible.Set(0)
}

// SetVisible records the registry size.
func (r *Recorder) SetVisible(n int) {
	if r == nil {
		return
	}
	r.visible.Set(float64(n))
}

// RadioFailure counts a failed operation.
func (r *Recorder) RadioFailure(op string) {
	if r == nil {
		return
	}
	r.failures.WithLabelValues(op).Inc()
}

// SetRadioState records the state machine position for radio
// ("broadcast" or "scan").
func (r *Recorder) SetRadioState(radio string, state int) {
	if r == nil {
		return
	}
	r.radioState.WithLabelValues(radio).Set(float64(state))
}
