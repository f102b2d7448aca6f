package export

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/p-n-ai/pai-analysis/internal/analysis"
	"github.com/p-n-ai/pai-analysis/internal/render"
)

// OWPML (KS X 6101) namespaces used by Hancom Office.
const (
	nsHWPApp   = "http://www.hancom.co.kr/hwpml/2011/app"
	nsPara     = "http://www.hancom.co.kr/hwpml/2011/paragraph"
	nsSection  = "http://www.hancom.co.kr/hwpml/2011/section"
	nsCore     = "http://www.hancom.co.kr/hwpml/2011/core"
	nsHead     = "http://www.hancom.co.kr/hwpml/2011/head"
	nsHPF      = "http://www.hancom.co.kr/schema/2011/hpf"
	nsOPF      = "http://www.idpf.org/2007/opf/"
	nsDC       = "http://purl.org/dc/elements/1.1/"
	nsOCF      = "urn:oasis:names:tc:opendocument:xmlns:container"
	nsManifest = "urn:oasis:names:tc:opendocument:xmlns:manifest:1.0"
	nsHV       = "http://www.hancom.co.kr/hwpml/2011/version"
)

// A4 in HWPUNIT (1/7200 inch), margins 8mm left/right and 10mm top/bottom.
const (
	hwpPageWidth   = 59528
	hwpPageHeight  = 84186
	hwpMarginX     = 2268
	hwpMarginY     = 2835
	hwpTextWidth   = hwpPageWidth - 2*hwpMarginX
	hwpCellMarginX = 510
	hwpCellMarginY = 141
	hwpRowHeight   = 1800
)

// Character shapes declared in header.xml, referenced by charPrIDRef.
const (
	charBody = iota
	charBold
	charTitle
	charHeading
	charMuted
	charSmall
	charBlue
	charRed
	charGreen
	charPurple
	charOrange
)

// Paragraph shapes, referenced by paraPrIDRef.
const (
	paraJustify = iota
	paraCenter
)

type charShape struct {
	height int // 1/100 pt
	color  string
	bold   bool
	italic bool
}

var charShapes = []charShape{
	charBody:    {height: 1000, color: "#111827"},
	charBold:    {height: 1100, color: "#111827", bold: true},
	charTitle:   {height: 1600, color: "#111827", bold: true},
	charHeading: {height: 1300, color: "#111827", bold: true},
	charMuted:   {height: 1000, color: "#4B5563"},
	charSmall:   {height: 900, color: "#374151"},
	charBlue:    {height: 1100, color: strings.ToUpper(analysis.ColorBlue.Hex()), bold: true},
	charRed:     {height: 1100, color: strings.ToUpper(analysis.ColorRed.Hex()), bold: true},
	charGreen:   {height: 1100, color: strings.ToUpper(analysis.ColorGreen.Hex()), bold: true},
	charPurple:  {height: 1100, color: strings.ToUpper(analysis.ColorPurple.Hex()), bold: true},
	charOrange:  {height: 1100, color: strings.ToUpper(analysis.ColorOrange.Hex()), bold: true},
}

var spanCharShapes = map[analysis.Color]int{
	analysis.ColorBlue:   charBlue,
	analysis.ColorRed:    charRed,
	analysis.ColorGreen:  charGreen,
	analysis.ColorPurple: charPurple,
	analysis.ColorOrange: charOrange,
}

type run struct {
	char int
	text string
}

// section builds Contents/section0.xml.
type section struct {
	buf    bytes.Buffer
	nextID int
	text   strings.Builder // plain text for the preview
}

func (e *Exporter) hwpx(view render.View, title string) ([]byte, error) {
	s := &section{}
	s.paragraph(paraCenter, false, run{charTitle, title})
	s.paragraph(paraJustify, false)

	s.paragraph(paraJustify, false, run{charHeading, headingSentences})
	for _, sv := range view.Sentences {
		s.sentence(sv)
	}

	s.paragraph(paraJustify, true, run{charHeading, headingStructure})
	if st := view.Structure; st != nil {
		if st.Summary != "" {
			s.paragraph(paraJustify, false, run{charBody, st.Summary})
			s.paragraph(paraJustify, false)
		}
		for _, sec := range st.Sections {
			s.paragraph(paraJustify, false, run{charBold, sec.Label})
			s.paragraph(paraJustify, false, run{charBody, sec.Content})
		}
	} else {
		s.paragraph(paraJustify, false, run{charMuted, emptyStructure})
	}

	s.paragraph(paraJustify, false)
	s.paragraph(paraJustify, false, run{charHeading, headingVocabulary})
	if len(view.Vocabulary) > 0 {
		s.vocabularyTable(view.Vocabulary)
	} else {
		s.paragraph(paraJustify, false, run{charMuted, emptyVocabulary})
	}

	return packageHWPX(title, e.now(), s)
}

func (s *section) id() int {
	s.nextID++
	return s.nextID
}

func (s *section) paragraph(para int, pageBreak bool, runs ...run) {
	s.buf.WriteString(s.paragraphXML(para, pageBreak, runs...))
}

func (s *section) paragraphXML(para int, pageBreak bool, runs ...run) string {
	var b strings.Builder
	brk := 0
	if pageBreak {
		brk = 1
	}
	fmt.Fprintf(&b, `<hp:p id="%d" paraPrIDRef="%d" styleIDRef="0" pageBreak="%d" columnBreak="0" merged="0">`, s.id(), para, brk)
	if len(runs) == 0 {
		runs = []run{{char: charBody}}
	}
	for _, r := range runs {
		fmt.Fprintf(&b, `<hp:run charPrIDRef="%d">`, r.char)
		if r.text != "" {
			b.WriteString("<hp:t>")
			b.WriteString(escapeXML(r.text))
			b.WriteString("</hp:t>")
			s.text.WriteString(r.text)
		}
		b.WriteString("</hp:run>")
	}
	b.WriteString("</hp:p>")
	s.text.WriteString("\n")
	return b.String()
}

func (s *section) sentence(sv render.SentenceView) {
	runs := []run{{charBold, fmt.Sprintf("%d. ", sv.Number)}}
	for _, span := range sv.Spans {
		char, ok := spanCharShapes[analysis.Color(span.Color)]
		if !ok {
			char = charBold
		}
		runs = append(runs, run{char, span.Text})
	}
	s.paragraph(paraJustify, false, runs...)

	if sv.Translation != "" {
		s.paragraph(paraJustify, false, run{charMuted, sv.Translation})
	}
	for _, gp := range sv.GrammarPoints {
		s.paragraph(paraJustify, false, run{charBody, "· " + gp})
	}
	if len(sv.Vocabulary) > 0 {
		s.paragraph(paraJustify, false, run{charSmall, sentenceVocabulary(sv.Vocabulary)})
	}
	if sv.Paraphrasing != "" {
		s.paragraph(paraJustify, false, run{charMuted, "→ " + sv.Paraphrasing})
	}
	s.paragraph(paraJustify, false)
}

var vocabColumns = []struct {
	title string
	width int
}{
	{"단어", hwpTextWidth * 35 / 100},
	{"뜻", hwpTextWidth * 45 / 100},
	{"품사", hwpTextWidth - hwpTextWidth*35/100 - hwpTextWidth*45/100},
}

func (s *section) vocabularyTable(vocab []analysis.VocabEntry) {
	rows := len(vocab) + 1
	fmt.Fprintf(&s.buf, `<hp:p id="%d" paraPrIDRef="%d" styleIDRef="0" pageBreak="0" columnBreak="0" merged="0"><hp:run charPrIDRef="%d">`, s.id(), paraJustify, charBody)
	fmt.Fprintf(&s.buf, `<hp:tbl id="%d" zOrder="0" numberingType="TABLE" textWrap="TOP_AND_BOTTOM" textFlow="BOTH_SIDES" lock="0" dropcapstyle="None" pageBreak="CELL" repeatHeader="1" rowCnt="%d" colCnt="%d" cellSpacing="0" borderFillIDRef="1" noAdjust="0">`,
		s.id(), rows, len(vocabColumns))
	fmt.Fprintf(&s.buf, `<hp:sz width="%d" widthRelTo="ABSOLUTE" height="%d" heightRelTo="ABSOLUTE" protect="0"/>`, hwpTextWidth, rows*hwpRowHeight)
	s.buf.WriteString(`<hp:pos treatAsChar="1" affectLSpacing="0" flowWithText="1" allowOverlap="0" holdAnchorAndSO="0" vertRelTo="PARA" horzRelTo="COLUMN" vertAlign="TOP" horzAlign="LEFT" vertOffset="0" horzOffset="0"/>`)
	s.buf.WriteString(`<hp:outMargin left="0" right="0" top="0" bottom="0"/>`)
	fmt.Fprintf(&s.buf, `<hp:inMargin left="%d" right="%d" top="%d" bottom="%d"/>`, hwpCellMarginX, hwpCellMarginX, hwpCellMarginY, hwpCellMarginY)

	header := make([]string, len(vocabColumns))
	for i, c := range vocabColumns {
		header[i] = c.title
	}
	s.tableRow(0, header, charBold)
	for i, v := range vocab {
		s.tableRow(i+1, []string{v.Word, v.Meaning, v.Type}, charBody)
	}

	s.buf.WriteString(`</hp:tbl></hp:run></hp:p>`)
}

func (s *section) tableRow(row int, cells []string, char int) {
	s.buf.WriteString("<hp:tr>")
	for col, text := range cells {
		header := 0
		if row == 0 {
			header = 1
		}
		fmt.Fprintf(&s.buf, `<hp:tc name="" header="%d" hasMargin="0" protect="0" editable="0" dirty="0" borderFillIDRef="1">`, header)
		s.buf.WriteString(`<hp:subList id="" textDirection="HORIZONTAL" lineWrap="BREAK" vertAlign="CENTER" linkListIDRef="0" linkListNextIDRef="0" textWidth="0" textHeight="0" hasTextRef="0" hasNumRef="0">`)
		s.buf.WriteString(s.paragraphXML(paraJustify, false, run{char, text}))
		s.buf.WriteString(`</hp:subList>`)
		fmt.Fprintf(&s.buf, `<hp:cellAddr colAddr="%d" rowAddr="%d"/><hp:cellSpan colSpan="1" rowSpan="1"/>`, col, row)
		fmt.Fprintf(&s.buf, `<hp:cellSz width="%d" height="%d"/>`, vocabColumns[col].width, hwpRowHeight)
		fmt.Fprintf(&s.buf, `<hp:cellMargin left="%d" right="%d" top="%d" bottom="%d"/>`, hwpCellMarginX, hwpCellMarginX, hwpCellMarginY, hwpCellMarginY)
		s.buf.WriteString("</hp:tc>")
	}
	s.buf.WriteString("</hp:tr>")
}

func (s *section) xml() string {
	var b strings.Builder
	b.WriteString(xml.Header)
	fmt.Fprintf(&b, `<hs:sec xmlns:hs=%q xmlns:hp=%q xmlns:hc=%q>`, nsSection, nsPara, nsCore)

	// The first paragraph carries the section definition.
	fmt.Fprintf(&b, `<hp:p id="0" paraPrIDRef="%d" styleIDRef="0" pageBreak="0" columnBreak="0" merged="0"><hp:run charPrIDRef="%d">`, paraJustify, charBody)
	b.WriteString(`<hp:secPr id="" textDirection="HORIZONTAL" spaceColumns="1134" tabStop="8000" tabStopVal="4000" tabStopUnit="HWPUNIT" outlineShapeIDRef="1" memoShapeIDRef="0" textVerticalWidthHead="0" masterPageCnt="0">`)
	b.WriteString(`<hp:grid lineGrid="0" charGrid="0" wonggojiFormat="0"/>`)
	b.WriteString(`<hp:startNum pageStartsOn="BOTH" page="0" pic="0" tbl="0" equation="0"/>`)
	b.WriteString(`<hp:visibility hideFirstHeader="0" hideFirstFooter="0" hideFirstMasterPage="0" border="SHOW_ALL" fill="SHOW_ALL" hideFirstPageNum="0" hideFirstEmptyLine="0" showLineNumber="0"/>`)
	fmt.Fprintf(&b, `<hp:pagePr landscape="WIDELY" width="%d" height="%d" gutterType="LEFT_ONLY">`, hwpPageWidth, hwpPageHeight)
	fmt.Fprintf(&b, `<hp:margin header="0" footer="0" gutter="0" left="%d" right="%d" top="%d" bottom="%d"/>`, hwpMarginX, hwpMarginX, hwpMarginY, hwpMarginY)
	b.WriteString(`</hp:pagePr></hp:secPr>`)
	b.WriteString(`<hp:ctrl><hp:colPr id="" type="NEWSPAPER" layout="LEFT" colCount="1" sameSz="1" sameGap="0"/></hp:ctrl>`)
	b.WriteString(`</hp:run></hp:p>`)

	b.Write(s.buf.Bytes())
	b.WriteString(`</hs:sec>`)
	return b.String()
}

func headerXML() string {
	var b strings.Builder
	b.WriteString(xml.Header)
	fmt.Fprintf(&b, `<hh:head xmlns:hh=%q xmlns:hc=%q version="1.4" secCnt="1">`, nsHead, nsCore)
	b.WriteString(`<hh:beginNum page="1" footnote="1" endnote="1" pic="1" tbl="1" equation="1"/>`)
	b.WriteString(`<hh:refList>`)

	langs := []string{"HANGUL", "LATIN", "HANJA", "JAPANESE", "OTHER", "SYMBOL", "USER"}
	fmt.Fprintf(&b, `<hh:fontfaces itemCnt="%d">`, len(langs))
	for _, lang := range langs {
		fmt.Fprintf(&b, `<hh:fontface lang="%s" fontCnt="1"><hh:font id="0" face="맑은 고딕" type="TTF" isEmbedded="0"/></hh:fontface>`, lang)
	}
	b.WriteString(`</hh:fontfaces>`)

	b.WriteString(`<hh:borderFills itemCnt="1"><hh:borderFill id="1" threeD="0" shadow="0" centerLine="NONE" breakCellSeparateLine="0">`)
	for _, side := range []string{"leftBorder", "rightBorder", "topBorder", "bottomBorder"} {
		fmt.Fprintf(&b, `<hh:%s type="SOLID" width="0.12 mm" color="#9CA3AF"/>`, side)
	}
	b.WriteString(`<hh:diagonal type="NONE" width="0.1 mm" color="#000000"/></hh:borderFill></hh:borderFills>`)

	fmt.Fprintf(&b, `<hh:charProperties itemCnt="%d">`, len(charShapes))
	for id, cs := range charShapes {
		fmt.Fprintf(&b, `<hh:charPr id="%d" height="%d" textColor="%s" shadeColor="none" useFontSpace="0" useKerning="0" symMark="NONE" borderFillIDRef="1">`, id, cs.height, cs.color)
		b.WriteString(`<hh:fontRef hangul="0" latin="0" hanja="0" japanese="0" other="0" symbol="0" user="0"/>`)
		if cs.bold {
			b.WriteString(`<hh:bold/>`)
		}
		if cs.italic {
			b.WriteString(`<hh:italic/>`)
		}
		b.WriteString(`</hh:charPr>`)
	}
	b.WriteString(`</hh:charProperties>`)

	b.WriteString(`<hh:paraProperties itemCnt="2">`)
	for id, align := range []string{paraJustify: "JUSTIFY", paraCenter: "CENTER"} {
		fmt.Fprintf(&b, `<hh:paraPr id="%d" tabPrIDRef="0" condense="0" fontLineHeight="0" snapToGrid="1" suppressLineNumbers="0" checked="0">`, id)
		fmt.Fprintf(&b, `<hh:align horizontal="%s" vertical="BASELINE"/>`, align)
		b.WriteString(`<hh:lineSpacing type="PERCENT" value="160" unit="HWPUNIT"/>`)
		b.WriteString(`</hh:paraPr>`)
	}
	b.WriteString(`</hh:paraProperties>`)

	b.WriteString(`<hh:styles itemCnt="1"><hh:style id="0" type="PARA" name="바탕글" engName="Normal" paraPrIDRef="0" charPrIDRef="0" nextStyleIDRef="0" langID="1042" lockForm="0"/></hh:styles>`)
	b.WriteString(`</hh:refList></hh:head>`)
	return b.String()
}

func contentHPF(title string, now time.Time) string {
	var b strings.Builder
	b.WriteString(xml.Header)
	fmt.Fprintf(&b, `<opf:package xmlns:opf=%q xmlns:dc=%q xmlns:hpf=%q version="" unique-identifier="" id="">`, nsOPF, nsDC, nsHPF)
	b.WriteString(`<opf:metadata>`)
	fmt.Fprintf(&b, `<opf:title>%s</opf:title><opf:language>ko</opf:language>`, escapeXML(title))
	fmt.Fprintf(&b, `<opf:meta name="CreatedDate" content="text">%s</opf:meta>`, now.UTC().Format(time.RFC3339))
	b.WriteString(`</opf:metadata><opf:manifest>`)
	b.WriteString(`<opf:item id="header" href="Contents/header.xml" media-type="application/xml"/>`)
	b.WriteString(`<opf:item id="section0" href="Contents/section0.xml" media-type="application/xml"/>`)
	b.WriteString(`<opf:item id="settings" href="settings.xml" media-type="application/xml"/>`)
	b.WriteString(`</opf:manifest><opf:spine>`)
	b.WriteString(`<opf:itemref idref="header" linear="yes"/><opf:itemref idref="section0" linear="yes"/>`)
	b.WriteString(`</opf:spine></opf:package>`)
	return b.String()
}

// packageHWPX zips the document parts. The mimetype entry comes first and is stored
// uncompressed so readers can sniff the container type.
func packageHWPX(title string, now time.Time, s *section) ([]byte, error) {
	parts := []struct {
		name   string
		body   string
		stored bool
	}{
		{"mimetype", contentTypeHWPX, true},
		{"version.xml", xml.Header + fmt.Sprintf(`<hv:HCFVersion xmlns:hv=%q tagetApplication="WORDPROCESSOR" major="5" minor="1" micro="0" buildNumber="1" os="1" xmlVersion="1.4" application="pai-analysis" appVersion="1.0"/>`, nsHV), false},
		{"Contents/header.xml", headerXML(), false},
		{"Contents/section0.xml", s.xml(), false},
		{"Contents/content.hpf", contentHPF(title, now), false},
		{"settings.xml", xml.Header + fmt.Sprintf(`<ha:HWPApplicationSetting xmlns:ha=%q><ha:CaretPosition listIDRef="0" paraIDRef="0" pos="0"/></ha:HWPApplicationSetting>`, nsHWPApp), false},
		{"Preview/PrvText.txt", s.text.String(), false},
		{"META-INF/container.xml", xml.Header + fmt.Sprintf(`<ocf:container xmlns:ocf=%q><ocf:rootfiles><ocf:rootfile full-path="Contents/content.hpf" media-type="application/hwpml-package+xml"/><ocf:rootfile full-path="Preview/PrvText.txt" media-type="text/plain"/></ocf:rootfiles></ocf:container>`, nsOCF), false},
		{"META-INF/manifest.xml", xml.Header + fmt.Sprintf(`<odf:manifest xmlns:odf=%q/>`, nsManifest), false},
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, p := range parts {
		method := zip.Deflate
		if p.stored {
			method = zip.Store
		}
		w, err := zw.CreateHeader(&zip.FileHeader{Name: p.name, Method: method, Modified: now})
		if err != nil {
			return nil, fmt.Errorf("adding %s: %w", p.name, err)
		}
		if _, err := w.Write([]byte(p.body)); err != nil {
			return nil, fmt.Errorf("writing %s: %w", p.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("closing hwpx: %w", err)
	}
	return buf.Bytes(), nil
}

func escapeXML(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
