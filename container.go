package reels

import (
	"encoding/xml"
	"fmt"
	"strings"
)

// containerXML models the META-INF/container.xml file used to locate the OPF.
type containerXML struct {
	XMLName   xml.Name   `xml:"container"`
	RootFiles []rootFile `xml:"rootfiles>rootfile"`
}

// rootFile represents a single <rootfile> element inside container.xml.
type rootFile struct {
	FullPath  string `xml:"full-path,attr"`
	MediaType string `xml:"media-type,attr"`
}

// containerPath is the well-known location of container.xml in an ePub archive.
const containerPath = "META-INF/container.xml"

// parseContainer reads META-INF/container.xml and returns the full-path of
// its first rootfile. Every failure wraps ErrContainerParse.
func parseContainer(a *Archive) (string, error) {
	if !a.HasEntry(containerPath) {
		return "", fmt.Errorf("%w: %s missing", ErrContainerParse, containerPath)
	}
	data, err := a.ReadEntry(containerPath)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrContainerParse, err)
	}

	var c containerXML
	if err := xml.Unmarshal(stripBOM(data), &c); err != nil {
		return "", fmt.Errorf("%w: %v", ErrContainerParse, err)
	}
	if len(c.RootFiles) == 0 {
		return "", fmt.Errorf("%w: no rootfile entries", ErrContainerParse)
	}

	fullPath := strings.TrimSpace(c.RootFiles[0].FullPath)
	if fullPath == "" {
		return "", fmt.Errorf("%w: rootfile has empty full-path", ErrContainerParse)
	}
	return fullPath, nil
}
