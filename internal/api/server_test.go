package api

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"bank-ledger-reconciler/pkg/errors"
	"bank-ledger-reconciler/pkg/logger"
)

const bankCSV = `Date,Amount,Description
2024-01-05,100.00,AMZN Purchase
2024-01-08,"1,200.00",Office Rent
2024-01-09,45.00,Coffee Beans
not-a-date,10.00,Bank Fee
`

const ledgerCSV = `txn_date,amt,narration
2024-01-06,100.00,Amazon Purchase
2024-01-08,1200.50,office rent january
2024-01-20,99.00,Coffee Beans
2024-01-09,10.00,Bank Fee
`

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	l, err := logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Format: logger.TextFormat, Writer: io.Discard})
	require.NoError(t, err)
	return NewServer(DefaultConfig(), nil, l)
}

// upload builds a multipart request. Empty file contents are left out.
func upload(t *testing.T, path, bank, ledger string, fields map[string]string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for name, content := range map[string]string{"bank": bank, "ledger": ledger} {
		if content == "" {
			continue
		}
		part, err := w.CreateFormFile(name, name+".csv")
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) APIError {
	t.Helper()
	var apiErr APIError
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&apiErr))
	return apiErr
}

func TestServer_HealthEndpoint(t *testing.T) {
	rec := serve(newTestServer(t), httptest.NewRequest(http.MethodGet, "/api/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var response HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	assert.Equal(t, "healthy", response.Status)
	assert.NotEmpty(t, response.Timestamp)
}

func TestServer_Reconcile(t *testing.T) {
	t.Run("returns the run as JSON", func(t *testing.T) {
		rec := serve(newTestServer(t), upload(t, "/api/reconcile", bankCSV, ledgerCSV, nil))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var doc struct {
			RunID   string `json:"run_id"`
			Summary struct {
				TotalBank      int    `json:"total_bank"`
				Matched        int    `json:"matched"`
				MatchedPercent string `json:"matched_percent"`
			} `json:"summary"`
			Matched []struct {
				Confidence float64 `json:"confidence"`
			} `json:"matched"`
			UnmatchedBank   []json.RawMessage `json:"unmatched_bank"`
			UnmatchedLedger []json.RawMessage `json:"unmatched_ledger"`
		}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&doc))

		assert.NotEmpty(t, doc.RunID)
		assert.Equal(t, 4, doc.Summary.TotalBank)
		assert.Equal(t, 2, doc.Summary.Matched)
		assert.Equal(t, "50.00%", doc.Summary.MatchedPercent)
		require.Len(t, doc.Matched, 2)
		assert.Equal(t, 87.6, doc.Matched[0].Confidence)
		assert.Len(t, doc.UnmatchedBank, 2)
		assert.Len(t, doc.UnmatchedLedger, 2)
	})

	t.Run("applies form overrides", func(t *testing.T) {
		rec := serve(newTestServer(t), upload(t, "/api/reconcile", bankCSV, ledgerCSV, map[string]string{
			"desc_threshold":   "95",
			"amount_tolerance": "1.00",
			"date_tolerance":   "3",
			"similarity":       "partial_ratio",
		}))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var doc struct {
			Summary struct {
				Matched int `json:"matched"`
			} `json:"summary"`
		}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&doc))
		assert.Equal(t, 1, doc.Summary.Matched)
	})
}

func TestServer_ReconcileErrors(t *testing.T) {
	tests := []struct {
		name     string
		bank     string
		ledger   string
		fields   map[string]string
		wantCode string
		contains string
	}{
		{
			name:     "missing ledger upload",
			bank:     bankCSV,
			wantCode: string(errors.CodeMissingField),
		},
		{
			name:     "malformed amount",
			bank:     bankCSV,
			ledger:   "Date,Amount,Description\n2024-01-06,12abc,x\n",
			wantCode: string(errors.CodeMalformedAmount),
			contains: "ledger record 0",
		},
		{
			name:     "missing column",
			bank:     "Date,Description\n2024-01-01,x\n",
			ledger:   ledgerCSV,
			wantCode: string(errors.CodeMissingColumn),
		},
		{
			name:     "bad tolerance",
			bank:     bankCSV,
			ledger:   ledgerCSV,
			fields:   map[string]string{"amount_tolerance": "abc"},
			wantCode: string(errors.CodeInvalidConfig),
		},
		{
			name:     "threshold out of range",
			bank:     bankCSV,
			ledger:   ledgerCSV,
			fields:   map[string]string{"desc_threshold": "101"},
			wantCode: string(errors.CodeInvalidConfig),
		},
		{
			name:     "unknown preset",
			bank:     bankCSV,
			ledger:   ledgerCSV,
			fields:   map[string]string{"preset": "loose"},
			wantCode: string(errors.CodeInvalidConfig),
		},
		{
			name:     "unknown similarity",
			bank:     bankCSV,
			ledger:   ledgerCSV,
			fields:   map[string]string{"similarity": "soundex"},
			wantCode: string(errors.CodeInvalidConfig),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(newTestServer(t), upload(t, "/api/reconcile", tt.bank, tt.ledger, tt.fields))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			apiErr := decodeError(t, rec)
			assert.Equal(t, tt.wantCode, apiErr.Code)
			if tt.contains != "" {
				assert.Contains(t, apiErr.Message, tt.contains)
			}
		})
	}
}

func TestServer_Report(t *testing.T) {
	rec := serve(newTestServer(t), upload(t, "/api/reconcile/report", bankCSV, ledgerCSV, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "reconciliation_report.xlsx")

	f, err := excelize.OpenReader(rec.Body)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"Matched", "Unmatched Bank", "Unmatched Ledger", "Summary"}, f.GetSheetList())

	rows, err := f.GetRows("Matched")
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestServer_CORS(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/api/reconcile", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	rec := serve(newTestServer(t), req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestErrorResponse(t *testing.T) {
	status, body := errorResponse(stderrors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, ErrCodeInternalError, body.Code)
	assert.NotContains(t, body.Message, "boom")

	status, body = errorResponse(errors.ReconciliationError(errors.CodeCancelled, "match", context.Canceled))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, string(errors.CodeCancelled), body.Code)

	status, _ = errorResponse(errors.FileError(errors.CodeFileNotFound, "bank.csv", nil))
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestAllowsAnyOrigin(t *testing.T) {
	assert.True(t, allowsAnyOrigin(nil))
	assert.True(t, allowsAnyOrigin([]string{"http://a.example", "*"}))
	assert.False(t, allowsAnyOrigin([]string{"http://a.example"}))
}
