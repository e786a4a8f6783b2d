// Package xmlbody renders QPS ServiceRequest bodies from validated parameters.
package xmlbody

import (
	"encoding/xml"
	"fmt"
	"sort"
	"strings"
)

const operatorSuffix = "_operator"

// ServiceRequest is the root element posted to QPS search and count endpoints.
type ServiceRequest struct {
	XMLName     xml.Name     `xml:"ServiceRequest"`
	Filters     *Filters     `xml:"filters,omitempty"`
	Preferences *Preferences `xml:"preferences,omitempty"`
}

// Filters holds the Criteria of a search.
type Filters struct {
	Criteria []Criteria `xml:"Criteria"`
}

// Criteria is a single field/operator/value condition.
type Criteria struct {
	Field    string `xml:"field,attr"`
	Operator string `xml:"operator,attr"`
	Value    string `xml:",chardata"`
}

// Preferences controls paging and verbosity of search results.
type Preferences struct {
	StartFromOffset string `xml:"startFromOffset,omitempty"`
	StartFromID     string `xml:"startFromId,omitempty"`
	LimitResults    string `xml:"limitResults,omitempty"`
	Verbose         string `xml:"verbose,omitempty"`
}

// Renderer builds ServiceRequest documents. The zero value is ready to use.
type Renderer struct{}

// New returns a Renderer.
func New() *Renderer {
	return &Renderer{}
}

// Render produces the XML body for endpoint from its body parameters. Filter
// fields use "_" where the wire uses "."; an absent operator means EQUALS.
// Preferences are dropped for count endpoints.
func (r *Renderer) Render(endpoint string, params map[string]string) ([]byte, error) {
	req := ServiceRequest{}
	prefs := Preferences{}
	hasPrefs := false

	fields := make([]string, 0, len(params))
	for name := range params {
		if strings.HasSuffix(name, operatorSuffix) {
			continue
		}
		switch name {
		case "limitResults":
			prefs.LimitResults, hasPrefs = params[name], true
		case "startFromOffset":
			prefs.StartFromOffset, hasPrefs = params[name], true
		case "startFromId":
			prefs.StartFromID, hasPrefs = params[name], true
		case "verbose":
			prefs.Verbose, hasPrefs = params[name], true
		default:
			fields = append(fields, name)
		}
	}
	for name := range params {
		if base, ok := strings.CutSuffix(name, operatorSuffix); ok {
			if _, paired := params[base]; !paired {
				return nil, fmt.Errorf("render %s: operator %q without a value", endpoint, name)
			}
		}
	}
	sort.Strings(fields)

	if len(fields) > 0 {
		req.Filters = &Filters{Criteria: make([]Criteria, 0, len(fields))}
		for _, name := range fields {
			op := params[name+operatorSuffix]
			if op == "" {
				op = "EQUALS"
			}
			req.Filters.Criteria = append(req.Filters.Criteria, Criteria{
				Field:    strings.ReplaceAll(name, "_", "."),
				Operator: op,
				Value:    params[name],
			})
		}
	}
	if hasPrefs && !strings.HasPrefix(endpoint, "count_") {
		req.Preferences = &prefs
	}

	out, err := xml.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", endpoint, err)
	}
	return out, nil
}
