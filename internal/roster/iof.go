package roster

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// iofNamespace is the IOF 3.0 data standard namespace. Start lists from
// other document types are rejected.
const iofNamespace = "http://www.orienteering.org/datastandard/3.0"

// zipEntryName is the well-known member name OLA uses inside zipped
// start-list exports.
const zipEntryName = "SOFTSTRT.XML"

type iofStartList struct {
	XMLName xml.Name   `xml:"http://www.orienteering.org/datastandard/3.0 StartList"`
	Event   iofEvent   `xml:"Event"`
	Classes []iofClass `xml:"ClassStart"`
}

type iofEvent struct {
	ID   string `xml:"Id"`
	Name string `xml:"Name"`
	Date string `xml:"StartTime>Date"`
}

type iofClass struct {
	Teams []iofTeam `xml:"TeamStart"`
}

type iofTeam struct {
	Name      string      `xml:"Name"`
	BibNumber string      `xml:"BibNumber"`
	Members   []iofMember `xml:"TeamMemberStart"`
}

type iofMember struct {
	Leg         string `xml:"Start>Leg"`
	ControlCard string `xml:"Start>ControlCard"`
}

// parseStartList reads an IOF 3.0 start list, either a plain XML file or
// a zip archive holding SOFTSTRT.XML, and returns the card-to-entry map.
// Legacy exports are encoded in windows-1252.
func parseStartList(path string) (map[string]Entry, *iofEvent, error) {
	data, err := readStartListBytes(path)
	if err != nil {
		return nil, nil, err
	}

	var sl iofStartList
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = charsetReader
	if err := dec.Decode(&sl); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidStartList, err)
	}

	runners := make(map[string]Entry)
	for _, class := range sl.Classes {
		for _, team := range class.Teams {
			for _, member := range team.Members {
				if member.ControlCard == "" {
					continue
				}
				runners[member.ControlCard] = Entry{
					Bib: team.BibNumber,
					Leg: member.Leg,
				}
			}
		}
	}
	return runners, &sl.Event, nil
}

func readStartListBytes(path string) ([]byte, error) {
	if strings.HasSuffix(strings.ToLower(path), ".zip") {
		archive, err := zip.OpenReader(path)
		if err != nil {
			return nil, err
		}
		defer archive.Close()

		member, err := archive.Open(zipEntryName)
		if err != nil {
			return nil, fmt.Errorf("%w: missing %s: %v", ErrInvalidStartList, zipEntryName, err)
		}
		defer member.Close()
		return io.ReadAll(member)
	}
	return os.ReadFile(path)
}

func charsetReader(cs string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(cs) {
	case "utf-8", "":
		return input, nil
	case "windows-1252":
		return charmap.Windows1252.NewDecoder().Reader(input), nil
	case "iso-8859-1", "latin1":
		return charmap.ISO8859_1.NewDecoder().Reader(input), nil
	}
	return nil, fmt.Errorf("unsupported charset: %s", cs)
}
