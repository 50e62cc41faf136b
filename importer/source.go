package importer

import (
	"net/url"
	"path/filepath"
	"strings"

	"github.com/theoremus-urban-solutions/gtfs-explorer/store"
)

// Source names one archive to import. Exactly one of Path, URL or Data is
// expected; Data wins over URL, URL over Path.
type Source struct {
	Name     string
	Path     string
	URL      string
	Data     []byte
	Filename string // original file name of Data, if known
	Notes    string
}

func (s Source) Type() store.SourceType {
	switch {
	case s.Data != nil:
		return store.SourceBytes
	case s.URL != "":
		return store.SourceURL
	default:
		return store.SourceFile
	}
}

// DisplayName returns Name, else the file name without .zip, else the URL
// host, else "GTFS Feed".
func (s Source) DisplayName() string {
	if name := strings.TrimSpace(s.Name); name != "" {
		return name
	}
	file := s.Filename
	if file == "" && s.Type() == store.SourceFile {
		file = filepath.Base(s.Path)
	}
	if file != "" && file != "." {
		return strings.TrimSuffix(file, filepath.Ext(file))
	}
	if s.URL != "" {
		if u, err := url.Parse(s.URL); err == nil && u.Hostname() != "" {
			return u.Hostname()
		}
	}
	return "GTFS Feed"
}

func (s Source) metadata() store.Metadata {
	meta := store.Metadata{SourceType: s.Type(), SourceURL: s.URL, Filename: s.Filename, Notes: s.Notes}
	if meta.SourceType == store.SourceFile && meta.Filename == "" {
		meta.Filename = filepath.Base(s.Path)
	}
	return meta
}
