package classifier

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/RareDx/internal/config"
	"github.com/JonMunkholm/RareDx/internal/core"
)

func testConfig(url string) config.ClassifierConfig {
	return config.ClassifierConfig{
		URL:             url,
		Timeout:         2 * time.Second,
		MaxConcurrent:   2,
		MaxWaitTime:     time.Second,
		BreakerEnabled:  true,
		BreakerFailures: 2,
		BreakerTimeout:  time.Minute,
	}
}

func newClient(t *testing.T, url string) *Client {
	t.Helper()
	c, err := New(testConfig(url))
	require.NoError(t, err)
	return c
}

func testRequest(t *testing.T) core.ClassificationRequest {
	t.Helper()
	req, err := core.NewClassificationRequest(&core.SelectedFile{
		Name:     "scan.png",
		MIMEType: "image/png",
		Data:     []byte("fake-png-bytes"),
	})
	require.NoError(t, err)
	return req
}

func TestClassify_SendsSingleFilePart(t *testing.T) {
	var gotPath string
	var gotParts int
	var gotName, gotFilename, gotType string
	var gotData []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		mr, err := r.MultipartReader()
		require.NoError(t, err)
		for {
			part, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			require.NoError(t, err)
			gotParts++
			gotName = part.FormName()
			gotFilename = part.FileName()
			gotType = part.Header.Get("Content-Type")
			gotData, _ = io.ReadAll(part)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"predictions":[{"disease":"X","confidence":82,"description":"d","symptoms":"s","treatment":"t","prevalence":"p"}]}`)
	}))
	defer srv.Close()

	result, err := newClient(t, srv.URL).Classify(context.Background(), testRequest(t))
	require.NoError(t, err)

	assert.Equal(t, "/classify", gotPath)
	assert.Equal(t, 1, gotParts)
	assert.Equal(t, "file", gotName)
	assert.Equal(t, "scan.png", gotFilename)
	assert.Equal(t, "image/png", gotType)
	assert.Equal(t, []byte("fake-png-bytes"), gotData)

	require.Len(t, result, 1)
	assert.Equal(t, core.ClassificationRecord{
		DiseaseName: "X",
		Confidence:  82,
		Description: "d",
		Symptoms:    "s",
		Treatment:   "t",
		Prevalence:  "p",
	}, result[0])
}

func TestClassify_PreservesOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"predictions":[
			{"disease":"Low","confidence":20},
			{"disease":"High","confidence":85},
			{"disease":"Mid","confidence":55}]}`)
	}))
	defer srv.Close()

	result, err := newClient(t, srv.URL).Classify(context.Background(), testRequest(t))
	require.NoError(t, err)
	require.Len(t, result, 3)
	assert.Equal(t, "Low", result[0].DiseaseName)
	assert.Equal(t, "High", result[1].DiseaseName)
	assert.Equal(t, "Mid", result[2].DiseaseName)
}

func TestClassify_ServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":"file too large"}`)
	}))
	defer srv.Close()

	_, err := newClient(t, srv.URL).Classify(context.Background(), testRequest(t))

	var svcErr *core.ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, http.StatusInternalServerError, svcErr.Status)
	assert.Equal(t, "file too large", svcErr.Message)
	assert.Equal(t, "file too large", core.FailureMessage(err))
}

func TestClassify_ServiceErrorWithoutBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newClient(t, srv.URL).Classify(context.Background(), testRequest(t))

	var svcErr *core.ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Empty(t, svcErr.Message)
	assert.Equal(t, core.GenericFailureMessage, core.FailureMessage(err))
}

func TestClassify_ErrorFieldOn200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"error":"no file provided"}`)
	}))
	defer srv.Close()

	_, err := newClient(t, srv.URL).Classify(context.Background(), testRequest(t))

	var svcErr *core.ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, "no file provided", svcErr.Message)
}

func TestClassify_MalformedResponses(t *testing.T) {
	bodies := map[string]string{
		"not json":            `<html>oops</html>`,
		"missing predictions": `{"result":"ok"}`,
		"confidence too high": `{"predictions":[{"disease":"X","confidence":140}]}`,
		"negative confidence": `{"predictions":[{"disease":"X","confidence":-1}]}`,
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, body)
			}))
			defer srv.Close()

			_, err := newClient(t, srv.URL).Classify(context.Background(), testRequest(t))

			var transportErr *core.TransportError
			require.ErrorAs(t, err, &transportErr)
			assert.ErrorIs(t, err, errMalformed)
			assert.Equal(t, "CLS004", core.MapError(err).Code)
			assert.Equal(t, core.GenericFailureMessage, core.FailureMessage(err))
		})
	}
}

func TestClassify_EmptyPredictions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"predictions":[]}`)
	}))
	defer srv.Close()

	result, err := newClient(t, srv.URL).Classify(context.Background(), testRequest(t))
	require.NoError(t, err)
	assert.Empty(t, result)
}

func TestClassify_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := newClient(t, url).Classify(context.Background(), testRequest(t))

	var transportErr *core.TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, "post", transportErr.Op)
	assert.Equal(t, core.GenericFailureMessage, core.FailureMessage(err))
}

func TestClassify_BreakerOpensOnServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newClient(t, srv.URL)
	for i := 0; i < 2; i++ {
		_, err := c.Classify(context.Background(), testRequest(t))
		require.Error(t, err)
	}
	assert.Equal(t, "open", c.Status().Breaker)

	_, err := c.Classify(context.Background(), testRequest(t))
	assert.True(t, errors.Is(err, gobreaker.ErrOpenState))
	assert.Equal(t, "CLS003", core.MapError(err).Code)
	assert.Equal(t, int32(2), hits.Load())
}

func TestClassify_ClientErrorsDoNotTripBreaker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":"invalid image"}`)
	}))
	defer srv.Close()

	c := newClient(t, srv.URL)
	for i := 0; i < 5; i++ {
		_, err := c.Classify(context.Background(), testRequest(t))
		require.Error(t, err)
	}
	assert.Equal(t, "closed", c.Status().Breaker)
}

func TestClassify_BreakerDisabled(t *testing.T) {
	cfg := testConfig("http://localhost:1")
	cfg.BreakerEnabled = false

	c, err := New(cfg)
	require.NoError(t, err)
	assert.Equal(t, "disabled", c.Status().Breaker)
	assert.Equal(t, 2, c.Status().Limiter.MaxConcurrent)
}

func TestDiseases(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/diseases", r.URL.Path)
		_, _ = io.WriteString(w, `{"diseases":["Fabry disease","Gaucher disease"]}`)
	}))
	defer srv.Close()

	diseases, err := newClient(t, srv.URL).Diseases(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Fabry disease", "Gaucher disease"}, diseases)
}

func TestNew_RejectsRelativeURL(t *testing.T) {
	_, err := New(testConfig("localhost:5000/api"))
	assert.Error(t, err)

	_, err = New(testConfig("/classify"))
	assert.Error(t, err)
}

func TestNew_TrimsTrailingSlash(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = io.WriteString(w, `{"predictions":[]}`)
	}))
	defer srv.Close()

	_, err := newClient(t, srv.URL+"/").Classify(context.Background(), testRequest(t))
	require.NoError(t, err)
	assert.Equal(t, "/classify", gotPath)
}

func TestDrain(t *testing.T) {
	c := newClient(t, "http://localhost:1")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, c.Drain(ctx))
}
