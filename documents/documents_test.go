package documents

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryhazerus/apigate"
)

func newService(t *testing.T, handler http.HandlerFunc) *Service {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	api, err := apigate.New(apigate.Config{
		Window:            time.Second,
		RequestsPerWindow: 10,
		Endpoints:         map[string]string{EndpointIntroduceGoods: srv.URL + "/api/v3/lk/documents/create"},
	}, apigate.TokenProviderFunc(func(context.Context) (string, error) {
		return "tok", nil
	}))
	require.NoError(t, err)
	t.Cleanup(func() { api.Close() })

	return New(api)
}

func sampleDoc() *IntroduceGoods {
	imported := false
	return &IntroduceGoods{
		Description:    &Description{ParticipantINN: "7700000000"},
		DocID:          "doc-1",
		DocType:        "LP_INTRODUCE_GOODS",
		ImportRequest:  &imported,
		ParticipantINN: "7700000000",
		ProductionDate: NewDate(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)),
		Products: []Product{{
			TNVEDCode: "0401",
			UITCode:   "010460",
		}},
	}
}

func TestIntroduceGoods(t *testing.T) {
	var (
		gotPath  string
		gotQuery string
		gotAuth  string
		gotReq   CreateRequest
	)
	svc := newService(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &gotReq))
		io.WriteString(w, `{"value":"b2c7a1e0","code":"","error_message":"","description":""}`)
	})

	resp, err := svc.IntroduceGoods(context.Background(), sampleDoc(), Milk, "c2lnbmF0dXJl")
	require.NoError(t, err)
	assert.Equal(t, "b2c7a1e0", resp.Value)

	assert.Equal(t, "/api/v3/lk/documents/create", gotPath)
	assert.Equal(t, "pg=milk", gotQuery)
	assert.Equal(t, "Bearer tok", gotAuth)

	assert.Equal(t, FormatManual, gotReq.DocumentFormat)
	assert.Equal(t, TypeIntroduceGoods, gotReq.Type)
	assert.Equal(t, Milk, gotReq.ProductGroup)
	assert.Equal(t, "c2lnbmF0dXJl", gotReq.Signature)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(gotReq.ProductDocument), &doc))
	assert.Equal(t, "doc-1", doc["doc_id"])
	assert.Equal(t, "2024-03-01", doc["production_date"])
	assert.Nil(t, doc["reg_date"])
	assert.Equal(t, map[string]any{"participantInn": "7700000000"}, doc["description"])
}

func TestIntroduceGoodsRejected(t *testing.T) {
	svc := newService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error_message":"signature invalid"}`)
	})

	resp, err := svc.IntroduceGoods(context.Background(), sampleDoc(), Shoes, "bad")
	assert.Nil(t, resp)
	require.Error(t, err)
	assert.True(t, IsRejected(err))

	var stErr *apigate.StatusError
	require.ErrorAs(t, err, &stErr)
	assert.Equal(t, http.StatusBadRequest, stErr.StatusCode)
	assert.JSONEq(t, `{"error_message":"signature invalid"}`, string(stErr.Body))
}

func TestIntroduceGoodsUndecodableResponse(t *testing.T) {
	svc := newService(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `not json`)
	})

	_, err := svc.IntroduceGoods(context.Background(), sampleDoc(), Tobacco, "sig")
	assert.ErrorIs(t, err, apigate.ErrDecoding)
	assert.False(t, IsRejected(err))
}

func TestIntroduceGoodsInvalidArguments(t *testing.T) {
	called := false
	svc := newService(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	_, err := svc.IntroduceGoods(context.Background(), nil, Milk, "sig")
	assert.ErrorIs(t, err, apigate.ErrConfiguration)

	_, err = svc.IntroduceGoods(context.Background(), sampleDoc(), ProductGroup(42), "sig")
	assert.ErrorIs(t, err, apigate.ErrConfiguration)

	assert.False(t, called, "no request should be sent")
}
