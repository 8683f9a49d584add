// Package xmlquery loads named SQL statements from an XML document.
//
// The document holds any number of query elements, at any depth:
//
//	<queries>
//	  <query name="GET_WEATHER_FORECASTS"><![CDATA[SELECT ...]]></query>
//	</queries>
//
// The first CDATA section inside a query element is its body. Elements with an
// empty or missing name are skipped.
package xmlquery

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/guillermoBallester/telemetry-receiver/internal/core/domain"
	"github.com/guillermoBallester/telemetry-receiver/internal/core/port"
)

// QueryXMLFilePathKey is the configuration key naming the queries file.
const QueryXMLFilePathKey = "TelemetryReceiverOptions.Database.QueryXmlFilePath"

const (
	queryElement  = "query"
	nameAttribute = "name"
)

var cdataPrefix = []byte("<![CDATA[")

// Load parses the queries file at path into an immutable Registry. Every
// failure is reported through diag before it is returned, and no registry is
// produced unless the whole document is valid.
func Load(ctx context.Context, path string, diag port.QueryDiagnostics) (*Registry, error) {
	if diag == nil {
		diag = port.NoopDiagnostics{}
	}
	if path == "" {
		diag.QueriesFileNameNotSet(ctx)
		return nil, &domain.ConfigurationError{Key: QueryXMLFilePathKey}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		diag.QueriesFileNotFound(ctx, path)
		return nil, &domain.QueriesFileNotFoundError{Path: path, Err: err}
	}

	queries, err := parse(ctx, data, path, diag)
	if err != nil {
		return nil, err
	}

	return &Registry{source: path, queries: queries, diag: diag}, nil
}

// parse walks the token stream. While no query is open it looks for the next
// named query element; once one is open it looks for a CDATA section until
// the element's own end tag.
func parse(ctx context.Context, data []byte, file string, diag port.QueryDiagnostics) (map[string]string, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	queries := make(map[string]string)

	var (
		open  string // name of the query awaiting its body
		depth int    // element depth below the open query
	)

	for {
		offset := dec.InputOffset()
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing queries file %s: %w", file, err)
		}

		if open == "" {
			se, ok := tok.(xml.StartElement)
			if !ok || se.Name.Local != queryElement {
				continue
			}
			name := attribute(se, nameAttribute)
			if name == "" {
				continue
			}
			if _, exists := queries[name]; exists {
				diag.QueryNotUnique(ctx, name, file)
				return nil, &domain.DuplicateQueryNameError{Name: name, File: file}
			}
			open, depth = name, 0
			continue
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			if depth == 0 {
				diag.CDataNotFoundForQuery(ctx, open, file)
				return nil, &domain.MissingQueryBodyError{Name: open, File: file}
			}
			depth--
		case xml.CharData:
			// encoding/xml reports text and CDATA alike; the raw input tells them apart.
			if len(t) == 0 || !bytes.HasPrefix(data[offset:], cdataPrefix) {
				continue
			}
			queries[open] = string(t)
			open = ""
		}
	}

	if open != "" {
		diag.CDataNotFoundForQuery(ctx, open, file)
		return nil, &domain.MissingQueryBodyError{Name: open, File: file}
	}

	return queries, nil
}

func attribute(se xml.StartElement, local string) string {
	for _, a := range se.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}
