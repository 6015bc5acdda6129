package settings_fetcher

import (
	"net"
	"net/http"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hivetrace/hivetrace-sdk-go/trace/hivetracer/settings_fetcher/settings_models"
)

type settingsServer struct {
	mu   sync.Mutex
	body []byte

	srv *http.Server
}

func (s *settingsServer) set(body []byte) {
	s.mu.Lock()
	s.body = body
	s.mu.Unlock()
}

func (s *settingsServer) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	body := s.body
	s.mu.Unlock()
	_, _ = w.Write(body)
}

func startSettingsServer(t *testing.T) (*settingsServer, string) {
	sock := filepath.Join(t.TempDir(), "comm.sock")
	ln, err := net.Listen("unix", sock)
	if err != nil {
		t.Fatalf("listen unix: %v", err)
	}
	s := &settingsServer{body: []byte(`{}`)}
	s.srv = &http.Server{Handler: s}
	go func() {
		_ = s.srv.Serve(ln)
	}()
	t.Cleanup(func() {
		_ = s.srv.Close()
	})
	return s, sock
}

func TestFetcherNotifiesOnChange(t *testing.T) {
	srv, sock := startSettingsServer(t)
	srv.set([]byte(`{"trace":{"sample":{"strategy":"deterministic","sample_rate":10}}}`))

	got := make(chan *settings_models.Settings, 4)
	f := NewSettingsFetcher(SettingsFetcherConfig{
		Service:  "svc-a",
		Sock:     sock,
		Interval: 20 * time.Millisecond,
		Notifier: []func(*settings_models.Settings){
			func(s *settings_models.Settings) { got <- s },
		},
	})
	f.Start()
	defer f.Stop()

	select {
	case s := <-got:
		assert.Equal(t, "deterministic", s.Trace.Sample.Strategy)
		assert.Equal(t, 10, s.Trace.Sample.SampleRate)
	case <-time.After(2 * time.Second):
		t.Fatal("no initial settings notification")
	}

	srv.set([]byte(`{"trace":{"sample":{"strategy":"ratelimit","value":5}},"db":{"slow_query_ms":200}}`))

	select {
	case s := <-got:
		assert.Equal(t, "ratelimit", s.Trace.Sample.Strategy)
		assert.Equal(t, float64(5), s.Trace.Sample.Value)
		assert.Equal(t, int64(200), s.Db.SlowQueryMs)
	case <-time.After(2 * time.Second):
		t.Fatal("no notification after settings change")
	}
}

func TestFetcherSkipsUnchangedSettings(t *testing.T) {
	srv, sock := startSettingsServer(t)
	srv.set([]byte(`{"trace":{"sample":{"strategy":"all"}}}`))

	var mu sync.Mutex
	count := 0
	f := NewSettingsFetcher(SettingsFetcherConfig{
		Service:  "svc-b",
		Sock:     sock,
		Interval: 10 * time.Millisecond,
		Notifier: []func(*settings_models.Settings){
			func(*settings_models.Settings) {
				mu.Lock()
				count++
				mu.Unlock()
			},
		},
	})
	f.Start()
	time.Sleep(200 * time.Millisecond)
	f.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, count)
}
