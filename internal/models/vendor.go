package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// CompletedStudyRecord is one completed-report row returned by the vendor's
// completed-reports endpoint
type CompletedStudyRecord struct {
	ReportID      string `json:"id"`
	RadiologistID string `json:"rad_id,omitempty"`
}

// vendorCompletedRow matches the raw vendor payload; ids may arrive as
// numbers or strings, and the radiologist id under either rad_fk or rad_id
type vendorCompletedRow struct {
	ID    json.Number `json:"id"`
	RadFK json.Number `json:"rad_fk"`
	RadID json.Number `json:"rad_id"`
}

func (r vendorCompletedRow) toRecord() CompletedStudyRecord {
	rec := CompletedStudyRecord{ReportID: r.ID.String()}
	if r.RadFK.String() != "" {
		rec.RadiologistID = r.RadFK.String()
	} else if r.RadID.String() != "" {
		rec.RadiologistID = r.RadID.String()
	}
	return rec
}

// ParseCompletedStudyRecords decodes the vendor's completed-reports payload,
// which may be a single object, an array of objects, or empty. Anything else
// is an explicit error rather than a silent miss.
func ParseCompletedStudyRecords(body []byte) ([]CompletedStudyRecord, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	switch trimmed[0] {
	case '[':
		var rows []vendorCompletedRow
		if err := json.Unmarshal(trimmed, &rows); err != nil {
			return nil, fmt.Errorf("unexpected completed-reports array shape: %w", err)
		}
		records := make([]CompletedStudyRecord, 0, len(rows))
		for _, row := range rows {
			if row.ID.String() == "" {
				continue
			}
			records = append(records, row.toRecord())
		}
		return records, nil
	case '{':
		var row vendorCompletedRow
		if err := json.Unmarshal(trimmed, &row); err != nil {
			return nil, fmt.Errorf("unexpected completed-reports object shape: %w", err)
		}
		if row.ID.String() == "" {
			return nil, nil
		}
		return []CompletedStudyRecord{row.toRecord()}, nil
	}
	return nil, fmt.Errorf("unexpected completed-reports payload: %q", snippet(trimmed))
}

// ParseReportDetailsPDFURL scans the vendor's report-details payload (array
// or single object) for the first non-empty pdf_url
func ParseReportDetailsPDFURL(body []byte) (string, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", nil
	}

	type detailsRow struct {
		PDFURL string `json:"pdf_url"`
	}

	switch trimmed[0] {
	case '[':
		var rows []detailsRow
		if err := json.Unmarshal(trimmed, &rows); err != nil {
			return "", fmt.Errorf("unexpected report-details array shape: %w", err)
		}
		for _, row := range rows {
			if row.PDFURL != "" {
				return row.PDFURL, nil
			}
		}
		return "", nil
	case '{':
		var row detailsRow
		if err := json.Unmarshal(trimmed, &row); err != nil {
			return "", fmt.Errorf("unexpected report-details object shape: %w", err)
		}
		return row.PDFURL, nil
	}
	return "", fmt.Errorf("unexpected report-details payload: %q", snippet(trimmed))
}

func snippet(b []byte) string {
	const max = 64
	if len(b) > max {
		b = b[:max]
	}
	return string(b)
}
