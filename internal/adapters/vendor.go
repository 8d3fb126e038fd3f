package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/otcheredev/report-resolver/internal/config"
	"github.com/otcheredev/report-resolver/internal/models"
)

// VendorReportAdapter resolves reports from the external radiology-network
// API: completed-report metadata for a study id, then a batched details call
// that yields a short-lived PDF URL. It authenticates with a long-lived
// shared credential, not the caller's session token.
type VendorReportAdapter struct {
	client       *http.Client
	baseURL      string
	auth         string
	defaultRadID string
}

// NewVendorReportAdapter creates a new vendor completed-study adapter
func NewVendorReportAdapter(cfg config.VendorConfig) *VendorReportAdapter {
	return &VendorReportAdapter{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:      cfg.BaseURL,
		auth:         cfg.Auth,
		defaultRadID: cfg.DefaultRadiologistID,
	}
}

// Name identifies this adapter
func (a *VendorReportAdapter) Name() models.SourceKind {
	return models.SourceVendor
}

// TryResolve asks the vendor for completed reports belonging to the query's
// study. The vendor being unreachable is a miss, never a failure: other
// sources may still succeed and polling retries later. Only a missing
// credential or a payload shape the parser cannot classify is a failure.
func (a *VendorReportAdapter) TryResolve(ctx context.Context, query models.ReportQuery) (*models.ReportReference, error) {
	if a.auth == "" {
		return nil, fmt.Errorf("vendor credential not configured")
	}

	studyID := query.StudyID
	if studyID == "" && query.StudyInstanceUID != "" {
		studyID = a.resolveStudyID(ctx, query.StudyInstanceUID)
	}
	if studyID == "" {
		return nil, ErrNotFound
	}

	records, err := a.completedReports(ctx, studyID)
	if err != nil {
		return nil, err
	}

	reportIDs := make([]string, 0, len(records))
	radID := ""
	for _, rec := range records {
		reportIDs = append(reportIDs, rec.ReportID)
		if radID == "" && rec.RadiologistID != "" {
			radID = rec.RadiologistID
		}
	}
	// Vendor contract: the raw study id is accepted in place of report ids
	if len(reportIDs) == 0 {
		reportIDs = []string{studyID}
	}
	if radID == "" {
		radID = a.defaultRadID
	}

	pdfURL, err := a.reportDetailsPDFURL(ctx, reportIDs, radID)
	if err != nil {
		return nil, err
	}
	if pdfURL == "" {
		return nil, ErrNotFound
	}

	return &models.ReportReference{
		Source:  models.SourceVendor,
		URL:     pdfURL,
		URLKind: models.URLKindViewInline,
	}, nil
}

// resolveStudyID maps a DICOM Study Instance UID to the vendor's study id.
// Best effort; any failure leaves the study unresolved.
func (a *VendorReportAdapter) resolveStudyID(ctx context.Context, studyIUID string) string {
	lookupURL := fmt.Sprintf("%s/study/uid/%s", a.baseURL, url.PathEscape(studyIUID))

	body, status, err := a.get(ctx, lookupURL)
	if err != nil || status != http.StatusOK {
		return ""
	}

	var study struct {
		ID      json.Number `json:"id"`
		StudyID json.Number `json:"study_id"`
	}
	if err := json.Unmarshal(body, &study); err != nil {
		return ""
	}
	if study.ID.String() != "" {
		return study.ID.String()
	}
	return study.StudyID.String()
}

// completedReports fetches completed-report metadata for a study. A non-OK
// response means no completed reports yet; an unclassifiable payload is a
// real failure.
func (a *VendorReportAdapter) completedReports(ctx context.Context, studyID string) ([]models.CompletedStudyRecord, error) {
	completedURL := fmt.Sprintf("%s/report/client/completed/%s", a.baseURL, url.PathEscape(studyID))

	body, status, err := a.get(ctx, completedURL)
	if err != nil || status != http.StatusOK {
		return nil, nil
	}

	records, err := models.ParseCompletedStudyRecords(body)
	if err != nil {
		return nil, fmt.Errorf("vendor completed-reports response: %w", err)
	}
	return records, nil
}

// reportDetailsPDFURL requests report details for the candidate ids in one
// batched call and scans for the first usable pdf_url
func (a *VendorReportAdapter) reportDetailsPDFURL(ctx context.Context, reportIDs []string, radID string) (string, error) {
	params := url.Values{}
	params.Set("send_pdf_url", "true")
	for _, id := range reportIDs {
		params.Add("report_ids[]", id)
	}
	if radID != "" {
		params.Set("rad_id", radID)
	}
	detailsURL := fmt.Sprintf("%s/report/details?%s", a.baseURL, params.Encode())

	body, status, err := a.get(ctx, detailsURL)
	if err != nil || status != http.StatusOK {
		return "", ErrNotFound
	}

	pdfURL, err := models.ParseReportDetailsPDFURL(body)
	if err != nil {
		return "", fmt.Errorf("vendor report-details response: %w", err)
	}
	return pdfURL, nil
}

// get executes an authenticated GET against the vendor API
func (a *VendorReportAdapter) get(ctx context.Context, rawURL string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", rawURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", a.auth)
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}
	return body, resp.StatusCode, nil
}
