package api

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"bank-ledger-reconciler/internal/matcher"
	"bank-ledger-reconciler/internal/reconciler"
	"bank-ledger-reconciler/internal/reporter"
	"bank-ledger-reconciler/pkg/errors"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// HealthResponse is returned by GET /api/health.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) reconcile(c *gin.Context) {
	run, ok := s.run(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, reporter.NewDocument(run))
}

func (s *Server) report(c *gin.Context) {
	run, ok := s.run(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := reporter.WriteWorkbook(run, reporter.ReportSheets, &buf); err != nil {
		s.fail(c, errors.InternalError(errors.CodeProcessingError, "build_workbook", err))
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+reporter.WorkbookFile+`"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// run reads the multipart request and reconciles it. On failure the error
// response has already been written.
func (s *Server) run(c *gin.Context) (*reconciler.RunResult, bool) {
	config, err := s.requestConfig(c)
	if err != nil {
		s.fail(c, err)
		return nil, false
	}

	service, err := reconciler.NewService(config)
	if err != nil {
		s.fail(c, err)
		return nil, false
	}

	bank, bankName, err := openUpload(c, "bank")
	if err != nil {
		s.fail(c, err)
		return nil, false
	}
	defer bank.Close()

	ledger, ledgerName, err := openUpload(c, "ledger")
	if err != nil {
		s.fail(c, err)
		return nil, false
	}
	defer ledger.Close()

	run, err := service.ReconcileReaders(c.Request.Context(), bank, bankName, ledger, ledgerName)
	if err != nil {
		s.fail(c, err)
		return nil, false
	}
	return run, true
}

// requestConfig copies the server's base config and applies the optional
// form overrides.
func (s *Server) requestConfig(c *gin.Context) (*reconciler.Config, error) {
	config := *s.base
	thresholds := config.Thresholds

	if preset := strings.TrimSpace(c.PostForm("preset")); preset != "" {
		t, err := matcher.ThresholdsForPreset(preset)
		if err != nil {
			return nil, err
		}
		thresholds = t
	}

	if v := strings.TrimSpace(c.PostForm("amount_tolerance")); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "amount_tolerance", v, err)
		}
		thresholds.AmountTolerance = d
	}
	if v := strings.TrimSpace(c.PostForm("date_tolerance")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "date_tolerance", v, err)
		}
		thresholds.DateToleranceDays = n
	}
	if v := strings.TrimSpace(c.PostForm("desc_threshold")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "desc_threshold", v, err)
		}
		thresholds.DescSimThreshold = n
	}
	if v := strings.TrimSpace(c.PostForm("similarity")); v != "" {
		config.Similarity = v
	}

	config.Thresholds = thresholds
	return &config, nil
}

func openUpload(c *gin.Context, field string) (multipart.File, string, error) {
	header, err := c.FormFile(field)
	if err != nil {
		return nil, "", errors.ValidationError(errors.CodeMissingField, field, nil, err).
			WithSuggestion("Upload both the bank and the ledger CSV as multipart form files")
	}
	file, err := header.Open()
	if err != nil {
		return nil, "", errors.FileError(errors.CodeFileCorrupted, header.Filename, err)
	}
	return file, header.Filename, nil
}

func (s *Server) fail(c *gin.Context, err error) {
	status, body := errorResponse(err)
	s.logger.WithError(err).WithField("status", status).Warn("Reconciliation request failed")
	c.AbortWithStatusJSON(status, body)
}
