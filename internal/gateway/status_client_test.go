package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusClient_Check(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{
			"product_code":     r.URL.Query().Get("product_code"),
			"total_amount":     r.URL.Query().Get("total_amount"),
			"transaction_uuid": r.URL.Query().Get("transaction_uuid"),
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"product_code":"EPAYTEST","transaction_uuid":"tx-9","total_amount":100.0,"status":"COMPLETE","ref_id":"0001TS9"}`))
	}))
	defer srv.Close()

	client := NewStatusClient(srv.URL+"/api/epay/transaction/status/", time.Second)
	result, err := client.Check(context.Background(), StatusQuery{
		ProductCode:   "EPAYTEST",
		TotalAmount:   "100",
		TransactionID: "tx-9",
	})
	require.NoError(t, err)

	assert.Equal(t, TxComplete, result.Status)
	assert.True(t, result.Status.Settled())
	assert.Equal(t, "0001TS9", result.RefID)
	assert.Equal(t, "tx-9", gotQuery["transaction_uuid"])
	assert.Equal(t, "100", gotQuery["total_amount"])
	assert.Equal(t, "EPAYTEST", gotQuery["product_code"])
}

func TestStatusClient_Unavailable(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
		},
		{
			name: "garbage body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("<html>"))
			},
		},
		{
			name: "no status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"ref_id":"x"}`))
			},
		},
		{
			name: "timeout",
			handler: func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-time.After(500 * time.Millisecond):
				case <-r.Context().Done():
				}
				w.Write([]byte(`{"status":"COMPLETE"}`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			client := NewStatusClient(srv.URL, 50*time.Millisecond)
			result, err := client.Check(context.Background(), StatusQuery{TransactionID: "tx"})
			assert.Nil(t, result)
			assert.ErrorIs(t, err, ErrStatusUnavailable)
		})
	}
}

func TestStatusClient_MissingURLIsConfigurationError(t *testing.T) {
	_, err := NewStatusClient("", time.Second).Check(context.Background(), StatusQuery{})
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestTransactionStatus_Classification(t *testing.T) {
	assert.True(t, TxComplete.Settled())
	assert.True(t, TxPending.Undecided())
	assert.True(t, TxAmbiguous.Undecided())
	assert.True(t, TxNotFound.Rejected())
	assert.True(t, TxCanceled.Rejected())
	assert.False(t, TxFullRefund.Settled() || TxFullRefund.Undecided() || TxFullRefund.Rejected())
}
