package html_test

import (
	"bytes"
	"testing"

	"github.com/pgadvise/pgadvise/internal/model"
	"github.com/pgadvise/pgadvise/internal/render/html"
	"github.com/pgadvise/pgadvise/test"
)

func TestRenderSampleHTML(t *testing.T) {
	report := test.LoadSampleReport(t, "seq_scan.txt")

	var buf bytes.Buffer
	err := html.Render(&buf, report, html.Options{Title: "test", IncludeStyles: true, Analyzed: true})
	if err != nil {
		t.Fatalf("render html: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatalf("expected html output")
	}
	if !bytes.Contains(buf.Bytes(), []byte("Recommendations")) {
		t.Fatalf("expected recommendations section in html output")
	}
	if !bytes.Contains(buf.Bytes(), []byte("Sequential scan")) {
		t.Fatalf("expected the seq scan finding in html output")
	}
}

func TestRenderFormOnly(t *testing.T) {
	var buf bytes.Buffer
	err := html.Render(&buf, nil, html.Options{IncludeStyles: true, ShowForm: true})
	if err != nil {
		t.Fatalf("render html: %v", err)
	}
	if !bytes.Contains(buf.Bytes(), []byte(`name="query_plan"`)) {
		t.Fatalf("expected the paste form in html output")
	}
	if bytes.Contains(buf.Bytes(), []byte("Recommendations")) {
		t.Fatalf("did not expect a recommendations section before analysis")
	}
}

func TestRenderEmptyReport(t *testing.T) {
	var buf bytes.Buffer
	err := html.Render(&buf, &model.Report{}, html.Options{Analyzed: true})
	if err != nil {
		t.Fatalf("render html: %v", err)
	}
	if !bytes.Contains(buf.Bytes(), []byte("No issues detected")) {
		t.Fatalf("expected the empty-report message")
	}
}
