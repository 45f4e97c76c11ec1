package guard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/neal-yes/rag-gateway/internal/gwerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestExecutor() *Executor {
	e := NewExecutor()
	e.sleep = func(time.Duration) {} // don't actually sleep in tests
	return e
}

func baseRequest(run func(ctx context.Context) (map[string]interface{}, error)) Request {
	return Request{
		Tenant:   "acme",
		ToolType: "http_get",
		ToolName: "fetch",
		Params:   map[string]interface{}{"url": "https://example.com"},
		Policy:   DefaultPolicy(),
		Run:      run,
	}
}

func TestExecute_Success_EchoesMaskedParams(t *testing.T) {
	e := newTestExecutor()
	req := baseRequest(func(ctx context.Context) (map[string]interface{}, error) {
		return map[string]interface{}{"status": 200}, nil
	})
	req.Params["token"] = "supersecrettoken"

	res, err := e.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, false, res.Result["from_cache"])
	echo := res.Result["echo"].(map[string]interface{})
	assert.Equal(t, "su***en", echo["token"])
}

func TestExecute_ValidateFailsAsBadRequest(t *testing.T) {
	e := newTestExecutor()
	req := baseRequest(nil)
	req.Validate = func() error { return errors.New("bad url") }

	_, err := e.Execute(context.Background(), req)
	require.Error(t, err)
	assert.True(t, gwerrors.Is(err, gwerrors.BadRequest))
}

func TestExecute_RateLimitRejectsSecondCallSameSecond(t *testing.T) {
	e := newTestExecutor()
	frozen := time.Unix(1000, 0)
	e.rate.now = func() time.Time { return frozen }

	req := baseRequest(func(ctx context.Context) (map[string]interface{}, error) {
		return map[string]interface{}{"ok": true}, nil
	})
	req.Policy.RateLimitPerSec = 1

	_, err := e.Execute(context.Background(), req)
	require.NoError(t, err)

	_, err = e.Execute(context.Background(), req)
	require.Error(t, err)
	assert.True(t, gwerrors.Is(err, gwerrors.RateLimited))
}

func TestExecute_RateLimitResetsNextSecond(t *testing.T) {
	e := newTestExecutor()
	current := time.Unix(1000, 0)
	e.rate.now = func() time.Time { return current }

	req := baseRequest(func(ctx context.Context) (map[string]interface{}, error) {
		return map[string]interface{}{"ok": true}, nil
	})
	req.Policy.RateLimitPerSec = 1

	_, err := e.Execute(context.Background(), req)
	require.NoError(t, err)

	current = time.Unix(1001, 0)
	_, err = e.Execute(context.Background(), req)
	require.NoError(t, err)
}

func TestExecute_BreakerOpensAfterThreshold(t *testing.T) {
	e := newTestExecutor()
	req := baseRequest(func(ctx context.Context) (map[string]interface{}, error) {
		return nil, errors.New("upstream down")
	})
	req.Policy.CircuitThreshold = 1
	req.Policy.RetryMax = 0

	_, err := e.Execute(context.Background(), req)
	require.Error(t, err)
	assert.True(t, gwerrors.Is(err, gwerrors.Upstream))

	_, err = e.Execute(context.Background(), req)
	require.Error(t, err)
	assert.True(t, gwerrors.Is(err, gwerrors.ServiceUnavailable))
}

func TestExecute_RetriesThenSucceeds(t *testing.T) {
	e := newTestExecutor()
	attempts := 0
	req := baseRequest(func(ctx context.Context) (map[string]interface{}, error) {
		attempts++
		if attempts < 3 {
			return nil, errors.New("transient")
		}
		return map[string]interface{}{"ok": true}, nil
	})
	req.Policy.RetryMax = 2

	res, err := e.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, true, res.Result["ok"])
}

func TestExecute_CacheServesSecondCallWithoutRunning(t *testing.T) {
	e := newTestExecutor()
	calls := 0
	req := baseRequest(func(ctx context.Context) (map[string]interface{}, error) {
		calls++
		return map[string]interface{}{"ok": true}, nil
	})
	req.Policy.CacheTTLMs = 60000

	_, err := e.Execute(context.Background(), req)
	require.NoError(t, err)
	res2, err := e.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, true, res2.FromCache)
}

func TestFingerprint_StableAcrossKeyOrder(t *testing.T) {
	a := Fingerprint("acme", "HTTP_GET", "Fetch", map[string]interface{}{"a": 1, "b": 2}, nil)
	b := Fingerprint("acme", "http_get", "fetch", map[string]interface{}{"b": 2, "a": 1}, nil)
	assert.Equal(t, a, b)
}

func TestMaskValue_ShortAndLong(t *testing.T) {
	assert.Equal(t, "****", maskValue("abcd"))
	assert.Equal(t, "ab***yz", maskValue("abcdefxyz"))
}
