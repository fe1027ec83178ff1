package fetcher

import (
	"context"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/opportunity-etl/internal/etl"
)

// Format identifies how a table source is encoded.
type Format string

// Supported table formats.
const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatYAML Format = "yaml"
)

// DetectFormat infers the format from a location's file extension. Anything
// unrecognized is read as CSV.
func DetectFormat(location string) Format {
	p := location
	if u, err := url.Parse(location); err == nil && u.Scheme != "" && len(u.Scheme) > 1 {
		p = u.Path
	}
	switch strings.ToLower(path.Ext(p)) {
	case ".xlsx":
		return FormatXLSX
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatCSV
	}
}

// Loader reads named input tables from local paths or http(s)/ftp URLs.
type Loader struct {
	HTTP     Fetcher
	FTP      Fetcher
	Encoding string // charset of CSV sources; empty means UTF-8
	TempDir  string // staging directory for remote XLSX files; empty uses os.TempDir
}

// NewLoader returns a Loader backed by the given fetchers.
func NewLoader(httpFetcher, ftpFetcher Fetcher, encoding string) *Loader {
	return &Loader{HTTP: httpFetcher, FTP: ftpFetcher, Encoding: encoding}
}

// remoteFetcher returns the fetcher for a URL scheme, or nil for local paths.
func (l *Loader) remoteFetcher(location string) (Fetcher, error) {
	u, err := url.Parse(location)
	if err != nil || len(u.Scheme) <= 1 {
		// Single-letter schemes are Windows drive letters.
		return nil, nil
	}
	var f Fetcher
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		f = l.HTTP
	case "ftp":
		f = l.FTP
	case "file":
		return nil, nil
	default:
		return nil, eris.Errorf("fetcher: unsupported scheme %q in %s", u.Scheme, location)
	}
	if f == nil {
		return nil, eris.Errorf("fetcher: no %s fetcher configured", u.Scheme)
	}
	return f, nil
}

func localPath(location string) string {
	if u, err := url.Parse(location); err == nil && strings.EqualFold(u.Scheme, "file") {
		return u.Path
	}
	return location
}

// LoadTable reads the table at location and names it name.
func (l *Loader) LoadTable(ctx context.Context, name, location string) (etl.Table, error) {
	if strings.TrimSpace(location) == "" {
		return etl.Table{}, eris.Errorf("fetcher: no location for table %s", name)
	}

	remote, err := l.remoteFetcher(location)
	if err != nil {
		return etl.Table{}, err
	}
	format := DetectFormat(location)

	zap.L().Debug("fetcher: loading table",
		zap.String("table", name),
		zap.String("location", location),
		zap.String("format", string(format)),
	)

	if format == FormatXLSX {
		p := localPath(location)
		if remote != nil {
			staged, cleanup, err := l.stage(ctx, remote, location)
			if err != nil {
				return etl.Table{}, err
			}
			defer cleanup()
			p = staged
		}
		return ReadXLSXTable(name, p, XLSXOptions{})
	}

	var rc io.ReadCloser
	if remote != nil {
		rc, err = remote.Download(ctx, location)
	} else {
		rc, err = os.Open(localPath(location))
	}
	if err != nil {
		return etl.Table{}, eris.Wrapf(err, "fetcher: open table %s", name)
	}
	defer rc.Close() //nolint:errcheck

	if format == FormatYAML {
		return ReadYAMLTable(name, rc)
	}
	return ReadCSVTable(ctx, name, rc, CSVOptions{Encoding: l.Encoding})
}

// stage downloads a remote file into a temporary directory.
func (l *Loader) stage(ctx context.Context, f Fetcher, location string) (string, func(), error) {
	dir, err := os.MkdirTemp(l.TempDir, "opportunity-etl-*")
	if err != nil {
		return "", nil, eris.Wrap(err, "fetcher: create staging dir")
	}
	cleanup := func() { _ = os.RemoveAll(dir) }

	base := "table.xlsx"
	if u, err := url.Parse(location); err == nil {
		if b := path.Base(u.Path); b != "." && b != "/" {
			base = b
		}
	}
	dst := filepath.Join(dir, base)
	if _, err := f.DownloadToFile(ctx, location, dst); err != nil {
		cleanup()
		return "", nil, eris.Wrapf(err, "fetcher: stage %s", location)
	}
	return dst, cleanup, nil
}
