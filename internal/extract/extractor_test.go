package extract

import (
	"archive/zip"
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestExtract_PlainText(t *testing.T) {
	for _, mime := range []string{"text/plain", "text/markdown", "text/csv"} {
		got, err := Extract([]byte("hello, world"), mime)
		if err != nil {
			t.Fatalf("Extract(%s): %v", mime, err)
		}
		if got != "hello, world" {
			t.Errorf("Extract(%s) = %q", mime, got)
		}
	}
}

func TestExtract_UnsupportedType(t *testing.T) {
	_, err := Extract([]byte("data"), "image/png")
	if !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("err = %v, want ErrUnsupportedType", err)
	}
	if !strings.Contains(err.Error(), "image/png") {
		t.Errorf("err = %v, want it to name the type", err)
	}
}

func TestSupported(t *testing.T) {
	if !Supported("application/pdf") {
		t.Error("Supported(application/pdf) = false")
	}
	if Supported("image/png") {
		t.Error("Supported(image/png) = true")
	}
	if got := len(SupportedTypes()); got != 6 {
		t.Errorf("got %d supported types, want 6", got)
	}
}

func TestExtract_HTML(t *testing.T) {
	input := `<html><head><title>ignored</title><style>p { color: red }</style></head>
<body>
<h1>Heading</h1>
<p>First paragraph.</p>
<script>var ignored = true;</script>
<p>Second <b>bold</b> paragraph.</p>
</body></html>`

	got, err := Extract([]byte(input), "text/html")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	for _, want := range []string{"Heading", "First paragraph.", "Second", "bold", "paragraph."} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q: %q", want, got)
		}
	}
	for _, banned := range []string{"ignored", "color: red", "var"} {
		if strings.Contains(got, banned) {
			t.Errorf("output leaked invisible content %q: %q", banned, got)
		}
	}
	// Block tags separate content with newlines.
	if !strings.Contains(got, "\n") {
		t.Error("expected newlines at block boundaries")
	}
}

func TestExtract_HTMLMalformedFragment(t *testing.T) {
	got, err := Extract([]byte("<p>unclosed paragraph <b>still readable"), "text/html")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !strings.Contains(got, "still readable") {
		t.Errorf("output = %q", got)
	}
}

func buildDOCX(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte(documentXML)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestExtract_DOCX(t *testing.T) {
	data := buildDOCX(t, `<?xml version="1.0"?>
<document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <body>
    <p><r><t>First paragraph.</t></r></p>
    <p><r><t>Second </t></r><r><t>paragraph.</t></r></p>
  </body>
</document>`)

	got, err := Extract(data, "application/vnd.openxmlformats-officedocument.wordprocessingml.document")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	want := "First paragraph.\nSecond paragraph."
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestExtract_DOCXNotAZip(t *testing.T) {
	_, err := Extract([]byte("definitely not a zip"), "application/vnd.openxmlformats-officedocument.wordprocessingml.document")
	if !errors.Is(err, ErrExtraction) {
		t.Errorf("err = %v, want wrapped ErrExtraction", err)
	}
}

func TestExtract_DOCXMissingDocumentXML(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, _ := zw.Create("word/styles.xml")
	w.Write([]byte("<styles/>"))
	zw.Close()

	_, err := Extract(buf.Bytes(), "application/vnd.openxmlformats-officedocument.wordprocessingml.document")
	if !errors.Is(err, ErrExtraction) {
		t.Errorf("err = %v, want wrapped ErrExtraction", err)
	}
}

func TestExtract_PDFCorrupt(t *testing.T) {
	_, err := Extract([]byte("%PDF-1.7 truncated garbage"), "application/pdf")
	if !errors.Is(err, ErrExtraction) {
		t.Errorf("err = %v, want wrapped ErrExtraction", err)
	}
}
