package artifact

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var pathStyleHost = regexp.MustCompile(`(?i)^s3[.-]`)

// Location is a bucket and key addressed by an S3 URL.
type Location struct {
	Bucket string
	Key    string
	// URL is the https form handed to the control plane.
	URL string
}

// parseAbsoluteURI accepts only scheme://... forms so that single-line inline
// documents such as "Resources: {}" are never mistaken for URIs.
func parseAbsoluteURI(location string) (*url.URL, bool) {
	if !strings.Contains(location, "://") {
		return nil, false
	}
	u, err := url.Parse(location)
	if err != nil || len(u.Scheme) < 2 {
		return nil, false
	}
	return u, true
}

func pathSegments(path string) []string {
	var segments []string
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	return segments
}

// ParseS3URL resolves https path-style, https virtual-host style and s3://
// locations to a bucket and key.
func ParseS3URL(raw string) (Location, error) {
	u, ok := parseAbsoluteURI(raw)
	if !ok {
		return Location{}, &InvalidLocationError{Location: raw, Reason: "not an absolute URI"}
	}
	return parseS3(raw, u)
}

func parseS3(raw string, u *url.URL) (Location, error) {
	switch strings.ToLower(u.Scheme) {
	case "https":
		segments := pathSegments(u.Path)
		if pathStyleHost.MatchString(u.Host) {
			// Leading "/" counts as the first segment.
			if len(segments) < 2 {
				return Location{}, &InvalidLocationError{
					Location: raw,
					Reason:   "path style S3 URLs must have at least 3 path segments (/bucket/key)",
				}
			}
			return Location{
				Bucket: segments[0],
				Key:    strings.Join(segments[1:], "/"),
				URL:    raw,
			}, nil
		}
		if len(segments) < 1 {
			return Location{}, &InvalidLocationError{
				Location: raw,
				Reason:   "virtual host style S3 URLs must have at least 1 path segment (key)",
			}
		}
		bucket, _, _ := strings.Cut(u.Host, ".")
		return Location{
			Bucket: bucket,
			Key:    strings.Trim(u.Path, "/"),
			URL:    raw,
		}, nil
	case "s3":
		key := strings.Trim(u.Path, "/")
		if u.Host == "" || key == "" {
			return Location{}, &InvalidLocationError{Location: raw, Reason: "s3 URLs must name a bucket and key"}
		}
		return Location{
			Bucket: u.Host,
			Key:    key,
			URL:    fmt.Sprintf("https://%s.s3.amazonaws.com/%s", u.Host, key),
		}, nil
	case "file":
		return Location{}, &InvalidLocationError{Location: raw, Reason: "file not found"}
	default:
		return Location{}, &InvalidLocationError{Location: raw, Reason: fmt.Sprintf("unsupported URI scheme %q", u.Scheme)}
	}
}
