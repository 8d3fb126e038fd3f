package models

import (
	"testing"
)

func TestParseCompletedStudyRecordsObject(t *testing.T) {
	records, err := ParseCompletedStudyRecords([]byte(`{"id": "77"}`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(records))
	}
	if records[0].ReportID != "77" {
		t.Errorf("Expected report id 77, got %q", records[0].ReportID)
	}
	if records[0].RadiologistID != "" {
		t.Errorf("Expected no radiologist id, got %q", records[0].RadiologistID)
	}
}

func TestParseCompletedStudyRecordsNumericIDs(t *testing.T) {
	records, err := ParseCompletedStudyRecords([]byte(`[{"id": 101, "rad_fk": 55}, {"id": 102}]`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}
	if records[0].ReportID != "101" || records[0].RadiologistID != "55" {
		t.Errorf("Unexpected first record: %+v", records[0])
	}
	if records[1].ReportID != "102" || records[1].RadiologistID != "" {
		t.Errorf("Unexpected second record: %+v", records[1])
	}
}

func TestParseCompletedStudyRecordsRadIDFallback(t *testing.T) {
	records, err := ParseCompletedStudyRecords([]byte(`[{"id": "9", "rad_id": "12"}]`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if records[0].RadiologistID != "12" {
		t.Errorf("Expected rad_id fallback 12, got %q", records[0].RadiologistID)
	}
}

func TestParseCompletedStudyRecordsEmpty(t *testing.T) {
	for _, body := range []string{"", "null", "[]", "{}"} {
		records, err := ParseCompletedStudyRecords([]byte(body))
		if err != nil {
			t.Fatalf("Parse of %q failed: %v", body, err)
		}
		if len(records) != 0 {
			t.Errorf("Expected no records for %q, got %d", body, len(records))
		}
	}
}

func TestParseCompletedStudyRecordsUnexpectedShape(t *testing.T) {
	if _, err := ParseCompletedStudyRecords([]byte(`"just a string"`)); err == nil {
		t.Error("Expected error for scalar payload")
	}
	if _, err := ParseCompletedStudyRecords([]byte(`42`)); err == nil {
		t.Error("Expected error for numeric payload")
	}
}

func TestParseReportDetailsPDFURL(t *testing.T) {
	url, err := ParseReportDetailsPDFURL([]byte(`[{"id": 1}, {"id": 2, "pdf_url": "https://cdn.example.com/r2.pdf"}]`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if url != "https://cdn.example.com/r2.pdf" {
		t.Errorf("Expected pdf_url from second row, got %q", url)
	}

	url, err = ParseReportDetailsPDFURL([]byte(`{"pdf_url": "https://cdn.example.com/r1.pdf"}`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if url != "https://cdn.example.com/r1.pdf" {
		t.Errorf("Expected object pdf_url, got %q", url)
	}

	url, err = ParseReportDetailsPDFURL([]byte(`[]`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if url != "" {
		t.Errorf("Expected empty url, got %q", url)
	}

	if _, err := ParseReportDetailsPDFURL([]byte(`true`)); err == nil {
		t.Error("Expected error for boolean payload")
	}
}

func TestReportQueryIdentified(t *testing.T) {
	if (ReportQuery{}).Identified() {
		t.Error("Empty query must not be identified")
	}
	id := int64(5)
	cases := []ReportQuery{
		{PatientID: &id},
		{CaseID: &id},
		{StudyID: "1234"},
		{StudyInstanceUID: "1.2.3.4"},
	}
	for i, q := range cases {
		if !q.Identified() {
			t.Errorf("Case %d: expected identified", i)
		}
	}
}

func TestReportQueryCacheIdentity(t *testing.T) {
	patient := int64(42)
	caseID := int64(7)

	q := ReportQuery{PatientID: &patient, CaseID: &caseID, StudyID: "99"}
	if got := q.CacheIdentity(); got != "patient:42" {
		t.Errorf("Patient must win: got %q", got)
	}

	q = ReportQuery{CaseID: &caseID, StudyID: "99"}
	if got := q.CacheIdentity(); got != "case:7" {
		t.Errorf("Case must win over study: got %q", got)
	}

	q = ReportQuery{StudyID: "99"}
	if got := q.CacheIdentity(); got != "study:99" {
		t.Errorf("Unexpected study identity: %q", got)
	}

	if got := (ReportQuery{}).CacheIdentity(); got != "" {
		t.Errorf("Empty query must have empty identity, got %q", got)
	}
}
