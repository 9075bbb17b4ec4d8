package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestRegistry(t *testing.T) {
	if Registry == nil {
		t.Error("Registry should not be nil")
	}

	if Registry != prometheus.DefaultRegisterer {
		t.Error("Registry should be the default Prometheus registerer")
	}
	if Gatherer != prometheus.DefaultGatherer {
		t.Error("Gatherer should be the default Prometheus gatherer")
	}
}

// pushRecorder is a minimal Pushgateway stand-in.
type pushRecorder struct {
	mu     sync.Mutex
	method string
	path   string
	body   string
}

func (p *pushRecorder) handler(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	p.mu.Lock()
	p.method = r.Method
	p.path = r.URL.Path
	p.body = string(body)
	p.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func TestPushFrom(t *testing.T) {
	rec := &pushRecorder{}
	server := httptest.NewServer(http.HandlerFunc(rec.handler))
	defer server.Close()

	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "places_test_pushed_total",
		Help: "test counter",
	})
	reg.MustRegister(counter)
	counter.Add(3)

	err := PushFrom(context.Background(), reg, server.URL, "", map[string]string{"keyword": "Indian"})
	if err != nil {
		t.Fatalf("PushFrom failed: %v", err)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	if rec.method != http.MethodPut {
		t.Errorf("method = %s, want PUT", rec.method)
	}
	if !strings.Contains(rec.path, "/job/"+DefaultJob) {
		t.Errorf("path = %q, want default job", rec.path)
	}
	if !strings.Contains(rec.path, "/keyword/Indian") {
		t.Errorf("path = %q, want grouping label", rec.path)
	}
	if !strings.Contains(rec.body, "places_test_pushed_total") {
		t.Error("pushed body does not contain the registered metric")
	}
}

func TestPushFrom_GatewayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	err := PushFrom(context.Background(), prometheus.NewRegistry(), server.URL, "job", nil)
	if err == nil {
		t.Fatal("expected error for failing gateway")
	}
	if !strings.Contains(err.Error(), server.URL) {
		t.Errorf("error %q should name the gateway", err)
	}
}

func TestPushFrom_MissingURL(t *testing.T) {
	if err := PushFrom(context.Background(), prometheus.NewRegistry(), "", "job", nil); err == nil {
		t.Error("expected error for empty url")
	}
}
