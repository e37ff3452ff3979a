package operator

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/Ashenafi-pixel/prizewheel/spinlog"
)

func TestSpinSettled_SignedQuery(t *testing.T) {
	var got url.Values
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"code":0,"status":"ok"}`))
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "shh", time.Second)
	e := spinlog.Entry{
		ID:          "s1",
		ProductID:   "p1",
		ProductName: "Cup",
		Index:       2,
		Angle:       1192.5,
		Timestamp:   time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC),
		Source:      spinlog.SourceServer,
	}
	if err := c.Sink().Write(e); err != nil {
		t.Fatal(err)
	}
	if got.Get("action") != "spin_settled" || got.Get("sector_index") != "2" || got.Get("angle") != "1192.5" {
		t.Errorf("query %v", got)
	}
	if got.Has("ip_address") {
		t.Error("empty params must be left out")
	}
	if !Verify(got, "shh") {
		t.Error("signature does not verify")
	}
	if Verify(got, "other") {
		t.Error("signature verifies with the wrong secret")
	}
	got.Set("product_id", "p2")
	if Verify(got, "shh") {
		t.Error("tampered query verifies")
	}
}

func TestSink_Rejections(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"http error": func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusBadGateway) },
		"code":       func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(`{"code":7,"message":"unknown product"}`)) },
	}
	for name, h := range cases {
		ts := httptest.NewServer(h)
		err := NewClient(ts.URL, "", time.Second).Sink().Write(spinlog.Entry{ID: "s"})
		ts.Close()
		if err == nil {
			t.Errorf("%s: accepted", name)
		}
	}

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Has("signature") {
			t.Error("unsigned client sent a signature")
		}
	}))
	defer ts.Close()
	if err := NewClient(ts.URL, "", time.Second).Sink().Write(spinlog.Entry{ID: "s"}); err != nil {
		t.Errorf("empty 200 body: %v", err)
	}
}
