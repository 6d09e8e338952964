package epub

import (
	"encoding/xml"
	"io"
	"path"
	"strings"

	"github.com/pkg/errors"
)

type OPF struct {
	Title         string
	Authors       []string
	Language      string
	CoverFilepath string
	CoverMimeType string
	Spine         []SpineItem
	NavFilepath   string
	NCXFilepath   string
}

// SpineItem is one entry of the reading order. Filepath is the path inside the
// archive, already resolved against the OPF's directory.
type SpineItem struct {
	ID        string
	Filepath  string
	MediaType string
}

type Package struct {
	XMLName  xml.Name `xml:"package"`
	Version  string   `xml:"version,attr"`
	Metadata struct {
		Title []struct {
			Text string `xml:",chardata"`
			ID   string `xml:"id,attr"`
		} `xml:"title"`
		Creator []struct {
			Text string `xml:",chardata"`
			ID   string `xml:"id,attr"`
			Role string `xml:"role,attr"`
		} `xml:"creator"`
		Language string `xml:"language"`
		Meta     []struct {
			Text     string `xml:",chardata"`
			Name     string `xml:"name,attr"`
			Content  string `xml:"content,attr"`
			Refines  string `xml:"refines,attr"`
			Property string `xml:"property,attr"`
		} `xml:"meta"`
	} `xml:"metadata"`
	Manifest struct {
		Item []struct {
			ID         string `xml:"id,attr"`
			Href       string `xml:"href,attr"`
			MediaType  string `xml:"media-type,attr"`
			Properties string `xml:"properties,attr"`
		} `xml:"item"`
	} `xml:"manifest"`
	Spine struct {
		Toc     string `xml:"toc,attr"`
		Itemref []struct {
			Idref  string `xml:"idref,attr"`
			Linear string `xml:"linear,attr"`
		} `xml:"itemref"`
	} `xml:"spine"`
}

func ParseOPF(filename string, r io.Reader) (*OPF, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	pkg := &Package{}
	err = xml.Unmarshal(b, pkg)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	// Every href in the OPF is relative to the OPF's own directory.
	basePath := path.Dir(filename)
	resolve := func(href string) string {
		href = strings.SplitN(href, "#", 2)[0]
		if basePath == "." {
			return path.Clean(href)
		}
		return path.Join(basePath, href)
	}

	metaProperties := map[string]map[string]string{}
	metaContent := map[string]string{}
	for _, m := range pkg.Metadata.Meta {
		if m.Refines != "" {
			key := strings.TrimPrefix(m.Refines, "#")
			if _, ok := metaProperties[key]; !ok {
				metaProperties[key] = map[string]string{}
			}
			metaProperties[key][m.Property] = strings.TrimSpace(m.Text)
		} else if m.Content != "" {
			metaContent[m.Name] = m.Content
		}
	}

	title := ""
	if len(pkg.Metadata.Title) > 0 {
		title = pkg.Metadata.Title[0].Text
		for _, t := range pkg.Metadata.Title {
			if t.ID != "" && metaProperties[t.ID]["title-type"] == "main" {
				title = t.Text
				break
			}
		}
	}

	authors := []string{}
	for _, creator := range pkg.Metadata.Creator {
		role := creator.Role
		if role == "" && creator.ID != "" {
			role = metaProperties[creator.ID]["role"]
		}
		name := strings.TrimSpace(creator.Text)
		if name == "" {
			continue
		}
		if role == "aut" || len(pkg.Metadata.Creator) == 1 {
			authors = append(authors, name)
		}
	}

	opf := &OPF{
		Title:    strings.TrimSpace(title),
		Authors:  authors,
		Language: strings.TrimSpace(pkg.Metadata.Language),
	}

	manifest := map[string]SpineItem{}
	for _, item := range pkg.Manifest.Item {
		manifest[item.ID] = SpineItem{
			ID:        item.ID,
			Filepath:  resolve(item.Href),
			MediaType: item.MediaType,
		}
		properties := strings.Fields(item.Properties)
		for _, p := range properties {
			switch p {
			case "nav":
				opf.NavFilepath = resolve(item.Href)
			case "cover-image":
				opf.CoverFilepath = resolve(item.Href)
				opf.CoverMimeType = item.MediaType
			}
		}
	}

	// EPUB 2 covers are declared through <meta name="cover">, which wins over
	// the EPUB 3 property when both are present.
	if id := metaContent["cover"]; id != "" {
		if item, ok := manifest[id]; ok {
			opf.CoverFilepath = item.Filepath
			opf.CoverMimeType = item.MediaType
		}
	}

	if item, ok := manifest[pkg.Spine.Toc]; ok {
		opf.NCXFilepath = item.Filepath
	}

	for _, ref := range pkg.Spine.Itemref {
		item, ok := manifest[ref.Idref]
		if !ok {
			continue
		}
		opf.Spine = append(opf.Spine, item)
	}

	return opf, nil
}
