package fetcher

import (
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// Allowlist restricts table locations to configured local directories and
// remote URL prefixes. The zero value allows nothing.
type Allowlist struct {
	dirs    []string
	remotes []*url.URL
}

// NewAllowlist parses entries that are either local directories (plain paths
// or file:// URLs) or http(s)/ftp URL prefixes.
func NewAllowlist(entries []string) (*Allowlist, error) {
	a := &Allowlist{}
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if u, ok := remoteURL(e); ok {
			switch strings.ToLower(u.Scheme) {
			case "http", "https", "ftp":
			default:
				return nil, eris.Errorf("fetcher: unsupported scheme %q in allowed input %s", u.Scheme, e)
			}
			if u.Host == "" {
				return nil, eris.Errorf("fetcher: allowed input %s has no host", e)
			}
			a.remotes = append(a.remotes, u)
			continue
		}
		dir, err := resolvePath(localPath(e))
		if err != nil {
			return nil, eris.Wrapf(err, "fetcher: allowed input %s", e)
		}
		a.dirs = append(a.dirs, dir)
	}
	return a, nil
}

// Allows reports whether location falls under an allowed directory or URL prefix.
func (a *Allowlist) Allows(location string) bool {
	if a == nil || strings.TrimSpace(location) == "" {
		return false
	}

	if u, ok := remoteURL(location); ok {
		if u.User != nil {
			return false
		}
		for _, r := range a.remotes {
			if strings.EqualFold(u.Scheme, r.Scheme) && strings.EqualFold(u.Host, r.Host) &&
				urlPathWithin(r.Path, u.Path) {
				return true
			}
		}
		return false
	}

	p, err := resolvePath(localPath(location))
	if err != nil {
		return false
	}
	for _, dir := range a.dirs {
		if pathWithin(dir, p) {
			return true
		}
	}
	return false
}

// remoteURL parses location as a URL with a network scheme. file:// and
// Windows drive letters are local.
func remoteURL(location string) (*url.URL, bool) {
	u, err := url.Parse(location)
	if err != nil || len(u.Scheme) <= 1 || strings.EqualFold(u.Scheme, "file") {
		return nil, false
	}
	return u, true
}

// resolvePath returns the absolute, symlink-resolved form of p. Paths that do
// not exist yet are resolved as far as their parent allows.
func resolvePath(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	if parent, err := filepath.EvalSymlinks(filepath.Dir(abs)); err == nil {
		return filepath.Join(parent, filepath.Base(abs)), nil
	}
	return abs, nil
}

func pathWithin(dir, p string) bool {
	rel, err := filepath.Rel(dir, p)
	if err != nil || filepath.IsAbs(rel) {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func urlPathWithin(prefix, p string) bool {
	prefix = path.Clean("/" + prefix)
	p = path.Clean("/" + p)
	if prefix == "/" {
		return true
	}
	return p == prefix || strings.HasPrefix(p, prefix+"/")
}
