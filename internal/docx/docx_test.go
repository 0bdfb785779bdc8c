package docx

import (
	"archive/zip"
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alfredoptarigan/cv-formatter/internal/models"
)

func readPart(t *testing.T, data []byte, name string) string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	for _, f := range zr.File {
		if f.Name == name {
			rc, err := f.Open()
			require.NoError(t, err)
			defer rc.Close()
			b, err := io.ReadAll(rc)
			require.NoError(t, err)
			return string(b)
		}
	}
	t.Fatalf("part %s not found", name)
	return ""
}

func hasPart(data []byte, name string) bool {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return false
	}
	for _, f := range zr.File {
		if f.Name == name {
			return true
		}
	}
	return false
}

func sampleCV() *models.StructuredCV {
	return &models.StructuredCV{
		FullName: "Jane Doe",
		JobTitle: "senior house manager",
		PersonalDetails: models.PersonalDetails{
			Nationality: "British",
			Languages:   []string{"English", "French"},
			Email:       "jane@example.com",
			Location:    "London",
		},
		Profile: "I am responsible for a discrete household.",
		Experience: []models.Experience{
			{Role: "house manager", Company: "Old Co", StartDate: "2015-03", EndDate: "2018-11", Bullets: []string{"Ran staff"}},
			{Role: "estate manager", Company: "New Co", StartDate: "2019", EndDate: "Present"},
		},
		Education: []models.Education{{Program: "BA History", Institution: "UCL", StartYear: "2010", EndYear: "2013"}},
		Skills:    []string{"Budgeting"},
		Interests: []string{"Sailing"},
	}
}

func TestFormatDate(t *testing.T) {
	cases := map[string]string{
		"2021-03": "Mar 2021",
		"2021-3":  "Mar 2021",
		"2021-12": "Dec 2021",
		"2021":    "2021",
		"Present": "Present",
		"":        "",
		"2021-13": "2021-13",
		"Spring":  "Spring",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatDate(in), "input %q", in)
	}
}

func TestCapitalizeWords(t *testing.T) {
	assert.Equal(t, "Senior House Manager", CapitalizeWords("senior house manager"))
	assert.Equal(t, "Chef  De Partie", CapitalizeWords("chef  de partie"))
	assert.Equal(t, "", CapitalizeWords(""))
}

func TestTidy(t *testing.T) {
	assert.Equal(t, "Responsible for the principal residence", Tidy("I am responsible for the principle residence"))
	assert.Equal(t, "Discreet and calm", Tidy("  discrete and calm "))
	assert.Equal(t, "principled", Tidy("principled"))
}

func TestRenderCV_Placeholder(t *testing.T) {
	data, err := RenderCV(sampleCV(), nil)
	require.NoError(t, err)

	body := readPart(t, data, "word/document.xml")
	assert.Contains(t, body, "Jane Doe")
	assert.Contains(t, body, "Senior House Manager")
	assert.Contains(t, body, headshotPlaceholder)
	assert.Contains(t, body, "Responsible for a Discreet household.")
	assert.Contains(t, body, "Mar 2015 - Nov 2018")
	assert.Contains(t, body, "Estate Manager - New Co")
	assert.NotContains(t, body, "<w:drawing>")
	assert.False(t, hasPart(data, "word/media/headshot.png"))

	// most recent entry comes first
	assert.Less(t, strings.Index(body, "New Co"), strings.Index(body, "Old Co"))

	styles := readPart(t, data, "word/styles.xml")
	assert.Contains(t, styles, "Palatino Linotype")
}

func TestRenderCV_Headshot(t *testing.T) {
	img := &Image{Data: []byte("\x89PNG fake"), ContentType: "image/png"}
	data, err := RenderCV(sampleCV(), img)
	require.NoError(t, err)

	body := readPart(t, data, "word/document.xml")
	assert.Contains(t, body, `cx="1692000"`)
	assert.NotContains(t, body, headshotPlaceholder)
	assert.True(t, hasPart(data, "word/media/headshot.png"))
	assert.Contains(t, readPart(t, data, "word/_rels/document.xml.rels"), "media/headshot.png")
	assert.Contains(t, readPart(t, data, "[Content_Types].xml"), `Extension="png"`)
}

func TestRenderCV_UnsupportedImage(t *testing.T) {
	_, err := RenderCV(sampleCV(), &Image{Data: []byte("x"), ContentType: "image/gif"})
	assert.Error(t, err)
}

func TestRenderRegistration(t *testing.T) {
	reg := &models.Registration{
		FullName:  "Jane <Doe>",
		Email:     "jane@example.com",
		Languages: models.FlexList{"English", "French"},
		WorkInUK:  "Yes",
		EmergencyContactDetails: models.EmergencyContact{
			Name:         "John Doe",
			Relationship: "Brother",
		},
	}

	data, err := RenderRegistration(reg)
	require.NoError(t, err)

	body := readPart(t, data, "word/document.xml")
	assert.Contains(t, body, "Registration Form")
	assert.Contains(t, body, "Jane &lt;Doe&gt;")
	assert.Contains(t, body, "English, French")
	assert.Contains(t, body, "Relationship to Candidate")
	assert.Contains(t, body, "Brother")
}

func TestExtractText_RoundTrip(t *testing.T) {
	reg := &models.Registration{FullName: "Jane Doe"}
	data, err := RenderRegistration(reg)
	require.NoError(t, err)

	text, err := ExtractText(data)
	require.NoError(t, err)

	assert.Contains(t, text, "Full Name: Jane Doe")
	assert.Contains(t, text, "Email: [empty]")
	assert.Contains(t, text, "Registration Form")
}

func TestExtractText_Invalid(t *testing.T) {
	_, err := ExtractText([]byte("not a zip"))
	assert.Error(t, err)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	_, err = zw.Create("other.xml")
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	_, err = ExtractText(buf.Bytes())
	assert.ErrorIs(t, err, ErrNoDocumentPart)
}

func TestExportFilename(t *testing.T) {
	assert.Equal(t, "Jane_Doe_CV_Client_CV.docx", ExportFilename("Jane Doe CV.pdf", "Client_CV"))
	assert.Equal(t, "report-v2_Registration_Form.docx", ExportFilename("report-v2.docx", "Registration_Form"))
}
