package artifact

import "strings"

// Source describes where an artifact came from. Values combine as flags.
type Source int

const (
	None                Source = 0
	File                Source = 1
	String              Source = 2
	S3                  Source = 4
	UsePreviousTemplate Source = 8
	Oversize            Source = 16
)

var sourceNames = []struct {
	flag Source
	name string
}{
	{File, "File"},
	{String, "String"},
	{S3, "S3"},
	{UsePreviousTemplate, "UsePreviousTemplate"},
	{Oversize, "Oversize"},
}

// Has reports whether all bits of flag are set.
func (s Source) Has(flag Source) bool {
	return flag != None && s&flag == flag
}

func (s Source) String() string {
	if s == None {
		return "None"
	}
	parts := make([]string, 0, 2)
	for _, entry := range sourceNames {
		if s.Has(entry.flag) {
			parts = append(parts, entry.name)
		}
	}
	return strings.Join(parts, "|")
}

// Kind names the role an artifact plays.
type Kind string

const (
	KindTemplate Kind = "template"
	KindPolicy   Kind = "policy"
)

// Size ceilings for inline submission, in bytes.
const (
	TemplateMaxSize = 51200
	PolicyMaxSize   = 16384
)

// Resolved is the outcome of resolving an artifact location.
type Resolved struct {
	Source Source
	// Content is the document text, kept for parsing and display even when
	// the control plane receives the artifact by URL.
	Content string
	URL     string
	// BaseName is the file name without extension, or RawString for inline text.
	BaseName string
	// NoEchoParameters is only populated for previous-template resolution.
	NoEchoParameters []string
}

// Inline returns the body to submit inline, or "" when the artifact is
// referenced by URL or by the previous-template flag.
func (r Resolved) Inline() string {
	if r.Source.Has(S3) || r.Source.Has(UsePreviousTemplate) {
		return ""
	}
	return r.Content
}

// IsOversize reports whether the artifact must be uploaded before submission.
func (r Resolved) IsOversize() bool {
	return r.Source.Has(Oversize)
}

// IsEmpty reports whether no location was given.
func (r Resolved) IsEmpty() bool {
	return r.Source == None
}
