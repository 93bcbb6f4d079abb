package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/use-agent/speedsheet/capture"
)

func testResult(url string) *capture.CaptureResult {
	return &capture.CaptureResult{URL: url, Data: []byte("img"), ContentType: "image/png", EngineName: "fixture"}
}

func TestGetMiss(t *testing.T) {
	c := New(10)
	if _, ok := c.Get(Key("https://example.com", "fixture"), time.Minute); ok {
		t.Fatal("expected miss on empty cache")
	}
}

func TestSetThenGet(t *testing.T) {
	c := New(10)
	key := Key("https://www.speedtest.net/my-result/d/1", "fixture")

	c.Set(key, testResult("https://www.speedtest.net/my-result/d/1"))

	res, ok := c.Get(key, time.Minute)
	if !ok {
		t.Fatal("expected hit after Set")
	}
	if res.URL != "https://www.speedtest.net/my-result/d/1" {
		t.Errorf("wrong cached result: %q", res.URL)
	}
}

func TestZeroMaxAgeSkipsLookup(t *testing.T) {
	c := New(10)
	key := Key("u", "fixture")
	c.Set(key, testResult("u"))

	if _, ok := c.Get(key, 0); ok {
		t.Error("maxAge 0 must bypass the cache")
	}
	if _, ok := c.Get(key, -time.Second); ok {
		t.Error("negative maxAge must bypass the cache")
	}
}

func TestExpiredEntryMisses(t *testing.T) {
	c := New(10)
	key := Key("u", "fixture")
	c.Set(key, testResult("u"))

	// Age the entry past any practical maxAge.
	c.mu.Lock()
	c.store[key].createdAt = time.Now().Add(-2 * time.Hour)
	c.mu.Unlock()

	if _, ok := c.Get(key, time.Minute); ok {
		t.Error("expected miss for an entry older than maxAge")
	}
}

func TestCapacityEviction(t *testing.T) {
	c := New(3)
	for i := 0; i < 5; i++ {
		url := fmt.Sprintf("https://www.speedtest.net/my-result/d/%d", i)
		c.Set(Key(url, "fixture"), testResult(url))
	}

	c.mu.RLock()
	n := len(c.store)
	c.mu.RUnlock()
	if n > 3 {
		t.Errorf("cache grew past capacity: %d entries", n)
	}
}

func TestKeyDistinguishesEngine(t *testing.T) {
	if Key("u", "fixture") == Key("u", "browser") {
		t.Error("keys for different engines must differ")
	}
	if Key("a", "fixture") == Key("b", "fixture") {
		t.Error("keys for different URLs must differ")
	}
}
