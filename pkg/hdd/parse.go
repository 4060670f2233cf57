/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package hdd

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const rootElement = "hdd"

// ParseError is the single structured error this parser ever returns: the
// element path at which parsing failed, and the underlying cause.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("hdd: parse error at %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Diagnostic records a non-fatal issue — an unknown element or attribute —
// noticed while parsing. Parse returns the full list alongside the tree so
// a caller can log them without treating them as failures.
type Diagnostic struct {
	Path    string
	Message string
}

// parser walks an xml.Decoder's token stream, tracking the element path for
// diagnostics and error reporting.
type parser struct {
	dec   *xml.Decoder
	path  []string
	diags []Diagnostic
}

func (p *parser) pathString() string {
	return "/" + strings.Join(p.path, "/")
}

func (p *parser) diagnose(msg string) {
	p.diags = append(p.diags, Diagnostic{Path: p.pathString(), Message: msg})
}

func (p *parser) errf(format string, args ...any) error {
	return &ParseError{Path: p.pathString(), Err: fmt.Errorf(format, args...)}
}

// Parse parses an HDD XML document from r into a Document, tolerant of
// unknown elements/attributes but strict on root element name, pose arity,
// and numeric parsing.
func Parse(r io.Reader) (*Document, []Diagnostic, error) {
	dec := xml.NewDecoder(r)
	p := &parser{dec: dec}

	root, err := p.nextStart()
	if err != nil {
		return nil, nil, p.errf("reading root element: %w", err)
	}

	if root.Name.Local != rootElement {
		return nil, nil, p.errf("root element is %q, want %q", root.Name.Local, rootElement)
	}

	doc := &Document{}

	p.push(root.Name.Local)
	defer p.pop()

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}

		if err != nil {
			return nil, nil, p.errf("reading token: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != "comp" {
				p.diagnose(fmt.Sprintf("ignoring unexpected element <%s>", t.Name.Local))

				if err := p.skip(); err != nil {
					return nil, nil, err
				}

				continue
			}

			comp, err := p.parseComp(t)
			if err != nil {
				return nil, nil, err
			}

			doc.Comps = append(doc.Comps, comp)
		case xml.EndElement:
			if t.Name.Local == rootElement {
				return doc, p.diags, nil
			}
		}
	}

	return doc, p.diags, nil
}

func (p *parser) push(name string) { p.path = append(p.path, name) }
func (p *parser) pop()             { p.path = p.path[:len(p.path)-1] }

func (p *parser) nextStart() (xml.StartElement, error) {
	for {
		tok, err := p.dec.Token()
		if err != nil {
			return xml.StartElement{}, err
		}

		if se, ok := tok.(xml.StartElement); ok {
			return se, nil
		}
	}
}

// skip consumes tokens until the matching end element of the current
// position's most recently opened (but not yet matched) start element —
// used to discard an unrecognized subtree without disturbing the decoder.
func (p *parser) skip() error {
	depth := 1

	for depth > 0 {
		tok, err := p.dec.Token()
		if err != nil {
			return p.errf("skipping unknown subtree: %w", err)
		}

		switch tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		}
	}

	return nil
}

func attr(se xml.StartElement, name string) (string, bool) {
	for _, a := range se.Attr {
		if a.Name.Local == name {
			return a.Value, true
		}
	}

	return "", false
}

// parsePose parses a "x y z roll pitch yaw" string, requiring exactly six
// parseable floats — the one arity rule this parser enforces strictly.
func parsePose(p *parser, s string) (*Pose, error) {
	fields := strings.Fields(s)
	if len(fields) != 6 {
		return nil, p.errf("pose %q has %d fields, want exactly 6", s, len(fields))
	}

	var vals [6]float64

	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, p.errf("pose field %d (%q): %w", i, f, err)
		}

		vals[i] = v
	}

	return &Pose{
		X: vals[0], Y: vals[1], Z: vals[2],
		Roll: vals[3], Pitch: vals[4], Yaw: vals[5],
	}, nil
}

func (p *parser) parseOptionalPose(se xml.StartElement) (*Pose, error) {
	raw, ok := attr(se, "pose")
	if !ok || raw == "" {
		return nil, nil
	}

	return parsePose(p, raw)
}

func (p *parser) parseComp(se xml.StartElement) (Comp, error) {
	name, _ := attr(se, "name")
	p.push("comp[" + name + "]")
	defer p.pop()

	comp := Comp{
		Name: name,
	}

	comp.Role, _ = attr(se, "role")
	comp.Description, _ = attr(se, "description")

	for {
		tok, err := p.dec.Token()
		if err != nil {
			return Comp{}, p.errf("reading comp children: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "visual":
				v, err := p.parseVisual(t)
				if err != nil {
					return Comp{}, err
				}

				comp.Visuals = append(comp.Visuals, v)
			case "port":
				port, err := p.parsePort(t)
				if err != nil {
					return Comp{}, err
				}

				comp.Ports = append(comp.Ports, port)
			case "sensor":
				s, err := p.parseSensor(t)
				if err != nil {
					return Comp{}, err
				}

				comp.Sensors = append(comp.Sensors, s)
			case "frame":
				f, err := p.parseFrame(t)
				if err != nil {
					return Comp{}, err
				}

				comp.Frames = append(comp.Frames, f)
			default:
				p.diagnose(fmt.Sprintf("ignoring unexpected element <%s>", t.Name.Local))

				if err := p.skip(); err != nil {
					return Comp{}, err
				}
			}
		case xml.EndElement:
			if t.Name.Local == "comp" {
				return comp, nil
			}
		}
	}
}

func (p *parser) parseVisual(se xml.StartElement) (Visual, error) {
	name, _ := attr(se, "name")
	p.push("visual[" + name + "]")
	defer p.pop()

	v := Visual{Name: name}
	v.Toggle, _ = attr(se, "toggle")

	pose, err := p.parseOptionalPose(se)
	if err != nil {
		return Visual{}, err
	}

	v.Pose = pose

	for {
		tok, err := p.dec.Token()
		if err != nil {
			return Visual{}, p.errf("reading visual children: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "model" {
				href, _ := attr(t, "href")
				sha, _ := attr(t, "sha")
				v.Model = ModelRef{Href: href, SHA: sha}

				if err := p.skip(); err != nil {
					return Visual{}, err
				}
			} else {
				p.diagnose(fmt.Sprintf("ignoring unexpected element <%s>", t.Name.Local))

				if err := p.skip(); err != nil {
					return Visual{}, err
				}
			}
		case xml.EndElement:
			if t.Name.Local == "visual" {
				return v, nil
			}
		}
	}
}

func (p *parser) parseGeometry(se xml.StartElement) (Geometry, error) {
	kind, _ := attr(se, "kind")
	g := Geometry{Kind: kind}

	var err error

	switch kind {
	case "box":
		if s, ok := attr(se, "size"); ok {
			fields := strings.Fields(s)
			if len(fields) != 3 {
				return Geometry{}, p.errf("box size %q has %d fields, want 3", s, len(fields))
			}

			g.SizeX, err = strconv.ParseFloat(fields[0], 64)
			if err == nil {
				g.SizeY, err = strconv.ParseFloat(fields[1], 64)
			}
			if err == nil {
				g.SizeZ, err = strconv.ParseFloat(fields[2], 64)
			}
		}
	case "cylinder", "cone":
		g.Radius, err = parseFloatAttr(p, se, "radius")
		if err == nil {
			g.Length, err = parseFloatAttr(p, se, "length")
		}
	case "sphere":
		g.Radius, err = parseFloatAttr(p, se, "radius")
	default:
		p.diagnose(fmt.Sprintf("unknown geometry kind %q", kind))
	}

	if err != nil {
		return Geometry{}, err
	}

	return g, nil
}

func parseFloatAttr(p *parser, se xml.StartElement, name string) (float64, error) {
	s, ok := attr(se, name)
	if !ok || s == "" {
		return 0, nil
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, p.errf("attribute %s=%q: %w", name, s, err)
	}

	return v, nil
}

func (p *parser) parsePort(se xml.StartElement) (Port, error) {
	name, _ := attr(se, "name")
	p.push("port[" + name + "]")
	defer p.pop()

	port := Port{Name: name}
	port.PortType, _ = attr(se, "type")
	port.Mesh, _ = attr(se, "mesh")

	pose, err := p.parseOptionalPose(se)
	if err != nil {
		return Port{}, err
	}

	port.Pose = pose

	for {
		tok, err := p.dec.Token()
		if err != nil {
			return Port{}, p.errf("reading port children: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "geometry" {
				g, err := p.parseGeometry(t)
				if err != nil {
					return Port{}, err
				}

				port.Geometry = append(port.Geometry, g)

				if err := p.skip(); err != nil {
					return Port{}, err
				}
			} else {
				p.diagnose(fmt.Sprintf("ignoring unexpected element <%s>", t.Name.Local))

				if err := p.skip(); err != nil {
					return Port{}, err
				}
			}
		case xml.EndElement:
			if t.Name.Local == "port" {
				return port, nil
			}
		}
	}
}

func (p *parser) parseSensor(se xml.StartElement) (Sensor, error) {
	name, _ := attr(se, "name")
	p.push("sensor[" + name + "]")
	defer p.pop()

	sensor := Sensor{Name: name}
	sensor.Kind, _ = attr(se, "kind")
	sensor.Driver, _ = attr(se, "driver")

	pose, err := p.parseOptionalPose(se)
	if err != nil {
		return Sensor{}, err
	}

	sensor.Pose = pose

	for {
		tok, err := p.dec.Token()
		if err != nil {
			return Sensor{}, p.errf("reading sensor children: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "axis_align":
				sensor.AxisAlign = map[string]string{}

				for _, axis := range []string{"x", "y", "z"} {
					if v, ok := attr(t, axis); ok {
						sensor.AxisAlign[axis] = v
					}
				}

				if err := p.skip(); err != nil {
					return Sensor{}, err
				}
			case "fov":
				g, err := p.parseGeometry(t)
				if err != nil {
					return Sensor{}, err
				}

				sensor.FOV = &g

				if err := p.skip(); err != nil {
					return Sensor{}, err
				}
			default:
				p.diagnose(fmt.Sprintf("ignoring unexpected element <%s>", t.Name.Local))

				if err := p.skip(); err != nil {
					return Sensor{}, err
				}
			}
		case xml.EndElement:
			if t.Name.Local == "sensor" {
				return sensor, nil
			}
		}
	}
}

func (p *parser) parseFrame(se xml.StartElement) (Frame, error) {
	name, _ := attr(se, "name")
	p.push("frame[" + name + "]")
	defer p.pop()

	f := Frame{Name: name}
	f.Description, _ = attr(se, "description")

	raw, ok := attr(se, "pose")
	if !ok {
		return Frame{}, p.errf("frame is missing required pose attribute")
	}

	pose, err := parsePose(p, raw)
	if err != nil {
		return Frame{}, err
	}

	f.Pose = *pose

	if err := p.skip(); err != nil {
		return Frame{}, err
	}

	return f, nil
}
