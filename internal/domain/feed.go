package domain

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"

	"golang.org/x/net/html/charset"
)

// RawScalar is one statistic element. Chardata and attributes are captured
// separately, so <value>12.3</value> and
// <value warn-level-class="1">12.3</value> read the same and a missing
// element is simply empty.
type RawScalar struct {
	Text  string     `xml:",chardata"`
	Attrs []xml.Attr `xml:",any,attr"`
}

// RawParameter is a <parameter> element of a station.
type RawParameter struct {
	Name        string    `xml:"name,attr"`
	Unit        string    `xml:"unit,attr"`
	Type        string    `xml:"type,attr"`
	Datetime    RawScalar `xml:"datetime"`
	Value       RawScalar `xml:"value"`
	Previous24h RawScalar `xml:"previous-24h"`
	Delta24h    RawScalar `xml:"delta-24h"`
	Max24h      RawScalar `xml:"max-24h"`
	Mean24h     RawScalar `xml:"mean-24h"`
	Min24h      RawScalar `xml:"min-24h"`
	Max1h       RawScalar `xml:"max-1h"`
	Mean1h      RawScalar `xml:"mean-1h"`
	Min1h       RawScalar `xml:"min-1h"`
}

// RawStation is a <station> element of the hydroweb document.
type RawStation struct {
	Number        string         `xml:"number,attr"`
	Name          string         `xml:"name,attr"`
	WaterBodyName string         `xml:"water-body-name,attr"`
	WaterBodyType string         `xml:"water-body-type,attr"`
	Easting       string         `xml:"easting,attr"`
	Northing      string         `xml:"northing,attr"`
	Parameters    []RawParameter `xml:"parameter"`
}

const (
	rootElement    = "locations"
	stationElement = "station"
)

var errMissingRoot = errors.New("document has no <locations> root")

// DecodeFeed streams the station elements out of a hydroweb document.
// Stations are decoded one by one so a station with unexpected content does
// not hide the rest; XML syntax errors abort the document. Non-UTF-8
// encodings declared in the prolog are converted.
func DecodeFeed(r io.Reader) ([]RawStation, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel
	var (
		stations []RawStation
		sawRoot  bool
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &ParseError{Err: fmt.Errorf("read token: %w", err)}
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch start.Name.Local {
		case rootElement:
			sawRoot = true
		case stationElement:
			if !sawRoot {
				continue
			}
			var st RawStation
			if err := dec.DecodeElement(&st, &start); err != nil {
				return nil, &ParseError{Err: fmt.Errorf("decode station element: %w", err)}
			}
			stations = append(stations, st)
		}
	}

	if !sawRoot {
		return nil, &ParseError{Err: errMissingRoot}
	}
	return stations, nil
}
