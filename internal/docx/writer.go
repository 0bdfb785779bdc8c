package docx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
)

const (
	fontName = "Palatino Linotype"

	emuPerCM = 360000
	// 4.7 cm square headshot.
	photoEMU = 47 * emuPerCM / 10

	imageRelID = "rIdHeadshot"
)

// Image is an embedded picture. ContentType is the MIME type of Data.
type Image struct {
	Data        []byte
	ContentType string
}

func (i *Image) extension() (string, error) {
	switch i.ContentType {
	case "image/png":
		return "png", nil
	case "image/jpeg", "image/jpg":
		return "jpeg", nil
	case "image/webp":
		return "webp", nil
	default:
		return "", fmt.Errorf("unsupported image type %q", i.ContentType)
	}
}

type run struct {
	text    string
	bold    bool
	italics bool
	size    int // half-points; 0 keeps the style default
}

type paragraph struct {
	style      string
	centered   bool
	bullet     bool
	spaceAfter int
	runs       []run
	image      bool
}

type document struct {
	paragraphs []paragraph
	image      *Image
}

func (d *document) add(p paragraph) {
	d.paragraphs = append(d.paragraphs, p)
}

func (d *document) heading(text string) {
	d.add(paragraph{style: "Heading2", runs: []run{{text: text}}})
}

func (d *document) label(label, value string) {
	d.add(paragraph{
		spaceAfter: 80,
		runs: []run{
			{text: label + ": ", bold: true, size: 22},
			{text: value, size: 22},
		},
	})
}

func (d *document) bulletItem(text string) {
	d.add(paragraph{bullet: true, runs: []run{{text: Tidy(text), size: 22}}})
}

func (d *document) spacer() {
	d.add(paragraph{spaceAfter: 160})
}

func writeRun(b *strings.Builder, r run) {
	b.WriteString("<w:r>")
	if r.bold || r.italics || r.size > 0 {
		b.WriteString("<w:rPr>")
		if r.bold {
			b.WriteString("<w:b/>")
		}
		if r.italics {
			b.WriteString("<w:i/>")
		}
		if r.size > 0 {
			fmt.Fprintf(b, `<w:sz w:val="%d"/>`, r.size)
		}
		b.WriteString("</w:rPr>")
	}
	b.WriteString(`<w:t xml:space="preserve">`)
	_ = xml.EscapeText(b, []byte(r.text))
	b.WriteString("</w:t></w:r>")
}

func writeDrawing(b *strings.Builder) {
	fmt.Fprintf(b, `<w:r><w:drawing><wp:inline distT="0" distB="0" distL="0" distR="0">`+
		`<wp:extent cx="%[1]d" cy="%[1]d"/><wp:docPr id="1" name="Headshot"/>`+
		`<a:graphic><a:graphicData uri="http://schemas.openxmlformats.org/drawingml/2006/picture">`+
		`<pic:pic><pic:nvPicPr><pic:cNvPr id="0" name="headshot"/><pic:cNvPicPr/></pic:nvPicPr>`+
		`<pic:blipFill><a:blip r:embed="%[2]s"/><a:stretch><a:fillRect/></a:stretch></pic:blipFill>`+
		`<pic:spPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="%[1]d" cy="%[1]d"/></a:xfrm>`+
		`<a:prstGeom prst="rect"><a:avLst/></a:prstGeom></pic:spPr></pic:pic>`+
		`</a:graphicData></a:graphic></wp:inline></w:drawing></w:r>`, photoEMU, imageRelID)
}

func (d *document) body() string {
	var b strings.Builder
	b.WriteString(xml.Header)
	b.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"` +
		` xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"` +
		` xmlns:wp="http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing"` +
		` xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main"` +
		` xmlns:pic="http://schemas.openxmlformats.org/drawingml/2006/picture"><w:body>`)

	for _, p := range d.paragraphs {
		b.WriteString("<w:p>")
		if p.style != "" || p.centered || p.bullet || p.spaceAfter > 0 {
			b.WriteString("<w:pPr>")
			if p.style != "" {
				fmt.Fprintf(&b, `<w:pStyle w:val="%s"/>`, p.style)
			}
			if p.bullet {
				b.WriteString(`<w:numPr><w:ilvl w:val="0"/><w:numId w:val="1"/></w:numPr>`)
			}
			if p.spaceAfter > 0 {
				fmt.Fprintf(&b, `<w:spacing w:after="%d"/>`, p.spaceAfter)
			}
			if p.centered {
				b.WriteString(`<w:jc w:val="center"/>`)
			}
			b.WriteString("</w:pPr>")
		}
		if p.image {
			writeDrawing(&b)
		}
		for _, r := range p.runs {
			writeRun(&b, r)
		}
		b.WriteString("</w:p>")
	}

	b.WriteString(`<w:sectPr><w:pgSz w:w="11906" w:h="16838"/>` +
		`<w:pgMar w:top="720" w:right="860" w:bottom="720" w:left="860" w:header="708" w:footer="708" w:gutter="0"/>` +
		`</w:sectPr></w:body></w:document>`)
	return b.String()
}

const stylesXML = xml.Header + `<w:styles xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">` +
	`<w:docDefaults><w:rPrDefault><w:rPr><w:rFonts w:ascii="` + fontName + `" w:hAnsi="` + fontName + `" w:cs="` + fontName + `"/>` +
	`<w:sz w:val="22"/></w:rPr></w:rPrDefault></w:docDefaults>` +
	`<w:style w:type="paragraph" w:default="1" w:styleId="Normal"><w:name w:val="Normal"/></w:style>` +
	`<w:style w:type="paragraph" w:styleId="Title"><w:name w:val="Title"/><w:basedOn w:val="Normal"/>` +
	`<w:pPr><w:spacing w:after="300"/></w:pPr><w:rPr><w:b/><w:sz w:val="48"/></w:rPr></w:style>` +
	`<w:style w:type="paragraph" w:styleId="Heading2"><w:name w:val="heading 2"/><w:basedOn w:val="Normal"/>` +
	`<w:pPr><w:keepNext/><w:spacing w:before="240" w:after="80"/><w:outlineLvl w:val="1"/></w:pPr>` +
	`<w:rPr><w:b/><w:sz w:val="26"/></w:rPr></w:style>` +
	`</w:styles>`

const numberingXML = xml.Header + `<w:numbering xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">` +
	`<w:abstractNum w:abstractNumId="0"><w:lvl w:ilvl="0"><w:start w:val="1"/><w:numFmt w:val="bullet"/>` +
	`<w:lvlText w:val="•"/><w:lvlJc w:val="left"/><w:pPr><w:ind w:left="720" w:hanging="360"/></w:pPr></w:lvl></w:abstractNum>` +
	`<w:num w:numId="1"><w:abstractNumId w:val="0"/></w:num></w:numbering>`

const packageRelsXML = xml.Header + `<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>` +
	`</Relationships>`

func (d *document) contentTypes(ext, mime string) string {
	var b strings.Builder
	b.WriteString(xml.Header)
	b.WriteString(`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">`)
	b.WriteString(`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>`)
	b.WriteString(`<Default Extension="xml" ContentType="application/xml"/>`)
	if ext != "" {
		fmt.Fprintf(&b, `<Default Extension="%s" ContentType="%s"/>`, ext, mime)
	}
	b.WriteString(`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>`)
	b.WriteString(`<Override PartName="/word/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"/>`)
	b.WriteString(`<Override PartName="/word/numbering.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.numbering+xml"/>`)
	b.WriteString(`</Types>`)
	return b.String()
}

func (d *document) documentRels(ext string) string {
	var b strings.Builder
	b.WriteString(xml.Header)
	b.WriteString(`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`)
	b.WriteString(`<Relationship Id="rIdStyles" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/>`)
	b.WriteString(`<Relationship Id="rIdNumbering" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/numbering" Target="numbering.xml"/>`)
	if ext != "" {
		fmt.Fprintf(&b, `<Relationship Id="%s" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target="media/headshot.%s"/>`, imageRelID, ext)
	}
	b.WriteString(`</Relationships>`)
	return b.String()
}

// pack zips the document parts into a .docx file.
func (d *document) pack() ([]byte, error) {
	var ext, mime string
	if d.image != nil {
		var err error
		if ext, err = d.image.extension(); err != nil {
			return nil, err
		}
		mime = d.image.ContentType
		if mime == "image/jpg" {
			mime = "image/jpeg"
		}
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	parts := []struct {
		name string
		data []byte
	}{
		{"[Content_Types].xml", []byte(d.contentTypes(ext, mime))},
		{"_rels/.rels", []byte(packageRelsXML)},
		{"word/document.xml", []byte(d.body())},
		{"word/styles.xml", []byte(stylesXML)},
		{"word/numbering.xml", []byte(numberingXML)},
		{"word/_rels/document.xml.rels", []byte(d.documentRels(ext))},
	}
	if d.image != nil {
		parts = append(parts, struct {
			name string
			data []byte
		}{"word/media/headshot." + ext, d.image.Data})
	}

	for _, part := range parts {
		w, err := zw.Create(part.name)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", part.name, err)
		}
		if _, err := w.Write(part.data); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", part.name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize docx: %w", err)
	}
	return buf.Bytes(), nil
}
