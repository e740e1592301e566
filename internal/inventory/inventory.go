// Package inventory reads and writes Sphinx objects.inv files (version 2)
// so that other documentation projects can link to ours and we to theirs.
package inventory

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zlib"

	"github.com/jj1bdx/erldoc/internal/registry"
)

// Domain is the Sphinx domain name of every Erlang object.
const Domain = "erl"

const (
	headerV2   = "# Sphinx inventory version 2"
	headerZlib = "# The remainder of this file is compressed using zlib."
)

// Entry is one inventory line.
type Entry struct {
	Name        string `json:"name"`
	Domain      string `json:"domain"`
	Type        string `json:"type"`
	Priority    int    `json:"priority"`
	URI         string `json:"uri"`
	DisplayName string `json:"display"`
}

// Inventory is a parsed or generated objects.inv.
type Inventory struct {
	Project string  `json:"project"`
	Version string  `json:"version"`
	Entries []Entry `json:"entries"`
}

// FromObjects builds the inventory of a project. suffix is appended to
// document names to form page URIs.
func FromObjects(project, version string, objs []registry.Object, suffix string) *Inventory {
	inv := &Inventory{Project: project, Version: version}
	for _, o := range objs {
		inv.Entries = append(inv.Entries, Entry{
			Name:        o.Name,
			Domain:      Domain,
			Type:        string(o.Type),
			Priority:    o.Priority,
			URI:         o.DocName + suffix + "#" + o.RefName,
			DisplayName: o.DisplayName,
		})
	}
	return inv
}

// Write encodes inv in version 2 format. URIs ending in the entry name are
// abbreviated with "$", and display names equal to the name with "-".
func Write(w io.Writer, inv *Inventory) error {
	var head bytes.Buffer
	fmt.Fprintf(&head, "%s\n# Project: %s\n# Version: %s\n%s\n", headerV2, inv.Project, inv.Version, headerZlib)
	if _, err := w.Write(head.Bytes()); err != nil {
		return fmt.Errorf("writing inventory header: %w", err)
	}

	zw := zlib.NewWriter(w)
	for _, e := range inv.Entries {
		uri := e.URI
		if strings.HasSuffix(uri, e.Name) {
			uri = uri[:len(uri)-len(e.Name)] + "$"
		}
		disp := e.DisplayName
		if disp == e.Name || disp == "" {
			disp = "-"
		}
		if _, err := fmt.Fprintf(zw, "%s %s:%s %d %s %s\n", e.Name, e.Domain, e.Type, e.Priority, uri, disp); err != nil {
			zw.Close()
			return fmt.Errorf("writing inventory entry %s: %w", e.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("closing zlib writer: %w", err)
	}
	return nil
}

var lineRe = regexp.MustCompile(`^(.+?)\s+(\S+)\s+(-?\d+)\s+?(\S*)\s+(.*)$`)

// Read decodes a version 2 inventory.
func Read(r io.Reader) (*Inventory, error) {
	br := bufio.NewReader(r)
	inv := &Inventory{}

	readHeader := func() (string, error) {
		line, err := br.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("reading inventory header: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	first, err := readHeader()
	if err != nil {
		return nil, err
	}
	if first != headerV2 {
		return nil, fmt.Errorf("unsupported inventory format %q", first)
	}
	for _, field := range []*string{&inv.Project, &inv.Version} {
		line, err := readHeader()
		if err != nil {
			return nil, err
		}
		_, value, _ := strings.Cut(line, ": ")
		*field = value
	}
	line, err := readHeader()
	if err != nil {
		return nil, err
	}
	if !strings.Contains(line, "zlib") {
		return nil, fmt.Errorf("inventory body is not zlib-compressed: %q", line)
	}

	zr, err := zlib.NewReader(br)
	if err != nil {
		return nil, fmt.Errorf("opening zlib body: %w", err)
	}
	defer zr.Close()

	sc := bufio.NewScanner(zr)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		m := lineRe.FindStringSubmatch(sc.Text())
		if m == nil {
			continue
		}
		domain, typ, ok := strings.Cut(m[2], ":")
		if !ok {
			continue
		}
		prio, err := strconv.Atoi(m[3])
		if err != nil {
			continue
		}
		e := Entry{Name: m[1], Domain: domain, Type: typ, Priority: prio, URI: m[4], DisplayName: m[5]}
		if strings.HasSuffix(e.URI, "$") {
			e.URI = e.URI[:len(e.URI)-1] + e.Name
		}
		if e.DisplayName == "-" {
			e.DisplayName = e.Name
		}
		inv.Entries = append(inv.Entries, e)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading inventory body: %w", err)
	}
	return inv, nil
}
