package responseformat

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

type sample struct {
	Phase string  `json:"phase"`
	Time  float64 `json:"time"`
}

func TestWriteResponseJSON(t *testing.T) {
	f := NewFormatter()
	req := httptest.NewRequest(http.MethodGet, "/arrivals", nil)
	rec := httptest.NewRecorder()

	require.NoError(t, f.WriteResponse(rec, req, sample{Phase: "P", Time: 637.1}))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ContentTypeJSON, rec.Header().Get("Content-Type"))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.JSONEq(t, `{"phase":"P","time":637.1}`, rec.Body.String())
}

func TestWriteResponseMsgPack(t *testing.T) {
	f := NewFormatter()

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/arrivals?format=msgpack", nil),
		func() *http.Request {
			r := httptest.NewRequest(http.MethodGet, "/arrivals", nil)
			r.Header.Set("Accept", ContentTypeMsgPack)
			return r
		}(),
	} {
		rec := httptest.NewRecorder()
		require.NoError(t, f.WriteResponse(rec, req, sample{Phase: "PcP", Time: 511.2}))
		assert.Equal(t, ContentTypeMsgPack, rec.Header().Get("Content-Type"))

		// json tags are used as msgpack keys
		var decoded map[string]any
		require.NoError(t, msgpack.Unmarshal(rec.Body.Bytes(), &decoded))
		assert.Equal(t, "PcP", decoded["phase"])
		assert.Equal(t, 511.2, decoded["time"])
	}
}

func TestWriteError(t *testing.T) {
	f := NewFormatter()
	req := httptest.NewRequest(http.MethodGet, "/arrivals?format=json", nil)
	rec := httptest.NewRecorder()

	require.NoError(t, f.WriteError(rec, req, http.StatusBadRequest, errors.New("bad phase")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, ErrorBody{Error: "bad phase", Status: http.StatusBadRequest}, body)
}
