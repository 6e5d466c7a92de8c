package selector

import (
	"fmt"
	"regexp"
)

// List is the result of a query. Its methods apply to every member.
type List []*Selector

// Get returns the first result serialized, or "" for an empty list.
func (l List) Get() string {
	if len(l) == 0 {
		return ""
	}
	return l[0].Get()
}

// GetAll serializes every result.
func (l List) GetAll() []string {
	out := make([]string, 0, len(l))
	for _, s := range l {
		out = append(out, s.Get())
	}
	return out
}

// Texts returns the text content of every result.
func (l List) Texts() []string {
	out := make([]string, 0, len(l))
	for _, s := range l {
		out = append(out, s.Text())
	}
	return out
}

// Attrs returns the named attribute of every result that has it.
func (l List) Attrs(name string) []string {
	var out []string
	for _, s := range l {
		if v, ok := s.Attr(name); ok {
			out = append(out, v)
		}
	}
	return out
}

// XPath runs query against every member and concatenates the results.
func (l List) XPath(query string) (List, error) {
	var out List
	for _, s := range l {
		found, err := s.XPath(query)
		if err != nil {
			return nil, err
		}
		out = append(out, found...)
	}
	return out, nil
}

// CSS runs query against every member and concatenates the results.
func (l List) CSS(query string) (List, error) {
	var out List
	for _, s := range l {
		found, err := s.CSS(query)
		if err != nil {
			return nil, err
		}
		out = append(out, found...)
	}
	return out, nil
}

// Re applies pattern to every serialized result. A pattern without groups
// yields whole matches; otherwise every group of every match is returned.
func (l List) Re(pattern string) ([]string, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}

	var out []string
	for _, s := range l.GetAll() {
		for _, m := range re.FindAllStringSubmatch(s, -1) {
			if len(m) == 1 {
				out = append(out, m[0])
				continue
			}
			out = append(out, m[1:]...)
		}
	}
	return out, nil
}

// ReFirst returns the first Re result, or "".
func (l List) ReFirst(pattern string) (string, error) {
	all, err := l.Re(pattern)
	if err != nil || len(all) == 0 {
		return "", err
	}
	return all[0], nil
}
