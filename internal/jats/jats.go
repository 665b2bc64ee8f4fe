// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package jats extracts structured records from JATS article XML, the
// format served by the Springer Nature OpenAccess API (and, with minor
// vocabulary differences, by other publisher full-text APIs).
package jats

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jomare1188/studious-funicular/pkg/types"
)

// ErrNoArticle indicates the payload contained no <article> element. A
// 200 response with an article-free body is how some APIs report "not
// available", so callers treat this as an upstream miss, not a parse bug.
var ErrNoArticle = errors.New("no article element in XML payload")

// Parse extracts the first <article> element from raw JATS XML and maps
// it to a StructuredRecord.
func Parse(data []byte) (*types.StructuredRecord, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil, ErrNoArticle
		}
		if err != nil {
			return nil, fmt.Errorf("parsing JATS XML: %w", err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "article" {
			continue
		}
		var a article
		if err := dec.DecodeElement(&a, &se); err != nil {
			return nil, fmt.Errorf("decoding article element: %w", err)
		}
		return a.toRecord(), nil
	}
}

// JATS element structures. Only the fields the record needs are mapped.

type article struct {
	ArticleType string `xml:"article-type,attr"`
	Lang        string `xml:"lang,attr"`
	Front       front  `xml:"front"`
	Body        *body  `xml:"body"`
	Back        *back  `xml:"back"`
}

type front struct {
	JournalMeta journalMeta `xml:"journal-meta"`
	ArticleMeta articleMeta `xml:"article-meta"`
}

type journalMeta struct {
	Title      flatText   `xml:"journal-title-group>journal-title"`
	PlainTitle flatText   `xml:"journal-title"`
	ISSNs      []flatText `xml:"issn"`
	Publisher  flatText   `xml:"publisher>publisher-name"`
}

type articleMeta struct {
	IDs          []articleID   `xml:"article-id"`
	Title        inner         `xml:"title-group>article-title"`
	ContribGroup *contribGroup `xml:"contrib-group"`
	Affs         []aff         `xml:"aff"`
	Volume       flatText      `xml:"volume"`
	Issue        flatText      `xml:"issue"`
	PubDates     []pubDate     `xml:"pub-date"`
	Abstract     *abstract     `xml:"abstract"`
	KwdGroups    []kwdGroup    `xml:"kwd-group"`
	Funding      *fundingGroup `xml:"funding-group"`
}

type articleID struct {
	Type  string `xml:"pub-id-type,attr"`
	Value string `xml:",chardata"`
}

type pubDate struct {
	DateType string   `xml:"date-type,attr"`
	Day      flatText `xml:"day"`
	Month    flatText `xml:"month"`
	Year     flatText `xml:"year"`
}

type contribGroup struct {
	Contribs []contrib `xml:"contrib"`
	Affs     []aff     `xml:"aff"`
}

type contrib struct {
	Type       string   `xml:"contrib-type,attr"`
	Corresp    string   `xml:"corresp,attr"`
	Surname    flatText `xml:"name>surname"`
	GivenNames flatText `xml:"name>given-names"`
	Email      flatText `xml:"email"`
	Xrefs      []xref   `xml:"xref"`
}

type xref struct {
	RefType string `xml:"ref-type,attr"`
	RID     string `xml:"rid,attr"`
}

type aff struct {
	ID           string        `xml:"id,attr"`
	Institutions []institution `xml:"institution"`
	WrapInsts    []institution `xml:"institution-wrap>institution"`
	AddrLines    []addrLine    `xml:"addr-line"`
	Country      flatText      `xml:"country"`
}

type institution struct {
	ContentType string `xml:"content-type,attr"`
	Text        string `xml:",chardata"`
}

type addrLine struct {
	ContentType string `xml:"content-type,attr"`
	Text        string `xml:",chardata"`
}

type abstract struct {
	InnerXML []byte   `xml:",innerxml"`
	Secs     []absSec `xml:"sec"`
}

type absSec struct {
	Title flatText `xml:"title"`
	Ps    []inner  `xml:"p"`
}

type kwdGroup struct {
	Lang string  `xml:"lang,attr"`
	Kwds []inner `xml:"kwd"`
}

type fundingGroup struct {
	AwardGroups []awardGroup `xml:"award-group"`
}

type awardGroup struct {
	Source  inner    `xml:"funding-source"`
	AwardID flatText `xml:"award-id"`
}

type body struct {
	InnerXML []byte `xml:",innerxml"`
	Secs     []sec  `xml:"sec"`
}

type sec struct {
	ID    string   `xml:"id,attr"`
	Title flatText `xml:"title"`
	Ps    []para   `xml:"p"`
	Secs  []sec    `xml:"sec"`
}

type para struct {
	ID       string `xml:"id,attr"`
	InnerXML []byte `xml:",innerxml"`
}

type back struct {
	RefList *refList `xml:"ref-list"`
}

type refList struct {
	Refs []struct{} `xml:"ref"`
}

// flatText is an element whose character data is wanted with surrounding
// whitespace trimmed, ignoring any nested markup boundaries.
type flatText string

func (f *flatText) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	s, err := collectText(d)
	if err != nil {
		return err
	}
	*f = flatText(s)
	return nil
}

func (f flatText) String() string { return string(f) }

// inner captures an element's raw inner XML; Text flattens it to the
// concatenated character data, the way mixed-content JATS fields (titles,
// paragraphs, keywords) are meant to be read.
type inner struct {
	InnerXML []byte `xml:",innerxml"`
}

func (i inner) Text() string { return flatten(i.InnerXML) }

// collectText walks tokens until the matching end element, joining all
// character data with single spaces.
func collectText(d *xml.Decoder) (string, error) {
	var parts []string
	depth := 1
	for depth > 0 {
		tok, err := d.Token()
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		case xml.CharData:
			if s := strings.TrimSpace(string(t)); s != "" {
				parts = append(parts, s)
			}
		}
	}
	return strings.Join(parts, " "), nil
}

// flatten strips markup from an inner-XML fragment, returning the joined
// character data. Malformed fragments degrade to whatever text was seen
// before the error.
func flatten(fragment []byte) string {
	dec := xml.NewDecoder(bytes.NewReader(fragment))
	var parts []string
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		if cd, ok := tok.(xml.CharData); ok {
			if s := strings.TrimSpace(string(cd)); s != "" {
				parts = append(parts, s)
			}
		}
	}
	return strings.Join(parts, " ")
}

func (a article) toRecord() *types.StructuredRecord {
	lang := a.Lang
	if lang == "" {
		lang = "en"
	}
	rec := &types.StructuredRecord{
		Metadata: types.RecordMeta{
			ExtractionTimestamp: time.Now().Format(time.RFC3339),
			ArticleType:         a.ArticleType,
			Language:            lang,
		},
	}

	meta := a.Front.ArticleMeta
	rec.Publication = a.publicationInfo()
	rec.Title = meta.Title.Text()
	rec.Authors = a.authors()
	rec.Affiliations = a.affiliations()
	rec.Abstract = meta.Abstract.toAbstract()
	rec.Keywords = keywords(meta.KwdGroups)
	rec.Funding = funding(meta.Funding)

	if a.Body != nil {
		rec.Content = a.Body.toContent()
	}
	if a.Back != nil && a.Back.RefList != nil {
		rec.ReferencesCount = len(a.Back.RefList.Refs)
	}
	return rec
}

func (a article) publicationInfo() types.PublicationInfo {
	jm := a.Front.JournalMeta
	meta := a.Front.ArticleMeta

	info := types.PublicationInfo{
		Journal:   jm.Title.String(),
		Publisher: jm.Publisher.String(),
		Volume:    meta.Volume.String(),
		Issue:     meta.Issue.String(),
	}
	if info.Journal == "" {
		info.Journal = jm.PlainTitle.String()
	}
	if len(jm.ISSNs) > 0 {
		info.ISSN = jm.ISSNs[0].String()
	}
	for _, id := range meta.IDs {
		if id.Type == "doi" {
			info.DOI = strings.TrimSpace(id.Value)
		}
	}

	dates := make(map[string]string)
	for _, pd := range meta.PubDates {
		if pd.Year == "" {
			continue
		}
		date := pd.Year.String()
		if pd.Month != "" {
			date += "-" + pad2(pd.Month.String())
			if pd.Day != "" {
				date += "-" + pad2(pd.Day.String())
			}
		}
		key := pd.DateType
		if key == "" {
			key = "pub"
		}
		dates[key] = date
	}
	if len(dates) > 0 {
		info.PublicationDates = dates
	}
	return info
}

// pad2 left-pads a one-digit date component with a zero.
func pad2(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}

func (a article) authors() []types.RecordAuthor {
	cg := a.Front.ArticleMeta.ContribGroup
	if cg == nil {
		return nil
	}
	var out []types.RecordAuthor
	for _, c := range cg.Contribs {
		if c.Type != "" && c.Type != "author" {
			continue
		}
		author := types.RecordAuthor{
			Surname:         c.Surname.String(),
			GivenNames:      c.GivenNames.String(),
			Email:           c.Email.String(),
			IsCorresponding: c.Corresp == "yes",
		}
		author.FullName = strings.TrimSpace(author.GivenNames + " " + author.Surname)
		for _, x := range c.Xrefs {
			if x.RefType == "aff" {
				author.AffiliationRefs = append(author.AffiliationRefs, x.RID)
			}
		}
		if author.AffiliationRefs == nil {
			author.AffiliationRefs = []string{}
		}
		out = append(out, author)
	}
	return out
}

func (a article) affiliations() map[string]types.Affiliation {
	meta := a.Front.ArticleMeta
	affs := meta.Affs
	if meta.ContribGroup != nil {
		affs = append(affs, meta.ContribGroup.Affs...)
	}
	if len(affs) == 0 {
		return nil
	}

	out := make(map[string]types.Affiliation, len(affs))
	for _, af := range affs {
		if af.ID == "" {
			continue
		}
		entry := types.Affiliation{}
		insts := append(af.Institutions, af.WrapInsts...)
		for _, inst := range insts {
			text := strings.TrimSpace(inst.Text)
			switch inst.ContentType {
			case "org-division":
				entry.Department = text
			default:
				if entry.Institution == "" {
					entry.Institution = text
				}
			}
		}

		addr := types.Address{Country: af.Country.String()}
		for _, line := range af.AddrLines {
			text := strings.TrimSpace(line.Text)
			switch line.ContentType {
			case "city":
				addr.City = text
			case "state":
				addr.State = text
			}
		}
		if addr != (types.Address{}) {
			entry.Address = &addr
		}
		out[af.ID] = entry
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func (ab *abstract) toAbstract() *types.Abstract {
	if ab == nil {
		return nil
	}
	out := &types.Abstract{FullText: flatten(ab.InnerXML)}
	if len(ab.Secs) > 0 {
		sections := make(map[string]string, len(ab.Secs))
		for _, s := range ab.Secs {
			title := strings.ToLower(s.Title.String())
			if title == "" {
				continue
			}
			var paras []string
			for _, p := range s.Ps {
				if text := p.Text(); text != "" {
					paras = append(paras, text)
				}
			}
			sections[title] = strings.Join(paras, " ")
		}
		if len(sections) > 0 {
			out.Sections = sections
		}
	}
	return out
}

func keywords(groups []kwdGroup) []types.KeywordGroup {
	var out []types.KeywordGroup
	for _, g := range groups {
		var kws []string
		for _, k := range g.Kwds {
			if text := k.Text(); text != "" {
				kws = append(kws, text)
			}
		}
		if len(kws) == 0 {
			continue
		}
		lang := g.Lang
		if lang == "" {
			lang = "en"
		}
		out = append(out, types.KeywordGroup{Language: lang, Keywords: kws})
	}
	return out
}

func funding(fg *fundingGroup) []types.Funding {
	if fg == nil {
		return nil
	}
	var out []types.Funding
	for _, ag := range fg.AwardGroups {
		out = append(out, types.Funding{
			Source:  ag.Source.Text(),
			AwardID: ag.AwardID.String(),
		})
	}
	return out
}

func (b *body) toContent() *types.BodyContent {
	content := &types.BodyContent{FullText: flatten(b.InnerXML)}
	for _, s := range b.Secs {
		content.Sections = append(content.Sections, s.toSection(true))
	}
	if content.Sections == nil {
		content.Sections = []types.Section{}
	}
	return content
}

func (s sec) toSection(withSubs bool) types.Section {
	out := types.Section{ID: s.ID, Title: s.Title.String()}
	for _, p := range s.Ps {
		if text := flatten(p.InnerXML); text != "" {
			out.Paragraphs = append(out.Paragraphs, types.Paragraph{ID: p.ID, Text: text})
		}
	}
	if withSubs {
		for _, sub := range s.Secs {
			out.Subsections = append(out.Subsections, sub.toSection(false))
		}
	}
	return out
}
