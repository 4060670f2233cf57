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

package httpapi

import (
	"github.com/CogniPilot/dendrite/pkg/hdd"
	"github.com/CogniPilot/dendrite/pkg/registry"
)

// poseView is the wire shape of hdd.Pose.
type poseView struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Z     float64 `json:"z"`
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

func poseOf(p hdd.Pose) poseView {
	return poseView{X: p.X, Y: p.Y, Z: p.Z, Roll: p.Roll, Pitch: p.Pitch, Yaw: p.Yaw}
}

type modelRefView struct {
	Href string `json:"href"`
	SHA  string `json:"sha,omitempty"`
}

type geometryView struct {
	Kind   string  `json:"kind"`
	SizeX  float64 `json:"size_x,omitempty"`
	SizeY  float64 `json:"size_y,omitempty"`
	SizeZ  float64 `json:"size_z,omitempty"`
	Radius float64 `json:"radius,omitempty"`
	Length float64 `json:"length,omitempty"`
}

func geometryOf(g hdd.Geometry) geometryView {
	return geometryView{Kind: g.Kind, SizeX: g.SizeX, SizeY: g.SizeY, SizeZ: g.SizeZ, Radius: g.Radius, Length: g.Length}
}

func geometriesOf(gs []hdd.Geometry) []geometryView {
	out := make([]geometryView, 0, len(gs))
	for _, g := range gs {
		out = append(out, geometryOf(g))
	}

	return out
}

func posePtrOf(p *hdd.Pose) *poseView {
	if p == nil {
		return nil
	}

	v := poseOf(*p)

	return &v
}

type visualView struct {
	Comp   string       `json:"comp"`
	Name   string       `json:"name"`
	Pose   *poseView    `json:"pose,omitempty"`
	Model  modelRefView `json:"model"`
	Toggle string       `json:"toggle,omitempty"`
}

type portView struct {
	Comp     string         `json:"comp"`
	Name     string         `json:"name"`
	Type     string         `json:"type"`
	Pose     *poseView      `json:"pose,omitempty"`
	Mesh     string         `json:"mesh,omitempty"`
	Geometry []geometryView `json:"geometry,omitempty"`
}

type sensorView struct {
	Comp      string            `json:"comp"`
	Name      string            `json:"name"`
	Kind      string            `json:"kind"`
	Pose      *poseView         `json:"pose,omitempty"`
	Driver    string            `json:"driver,omitempty"`
	AxisAlign map[string]string `json:"axis_align,omitempty"`
	FOV       *geometryView     `json:"fov,omitempty"`
}

type frameView struct {
	Comp        string   `json:"comp"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Pose        poseView `json:"pose"`
}

// deviceView is the JSON shape of one device record.
type deviceView struct {
	ID      string `json:"id"`
	IP      string `json:"ip"`
	MAC     string `json:"mac,omitempty"`
	Board   string `json:"board,omitempty"`
	App     string `json:"app,omitempty"`
	Version string `json:"version,omitempty"`
	Status  string `json:"status"`
	Stale   bool   `json:"stale,omitempty"`

	Pose poseView `json:"pose"`

	Visuals []visualView `json:"visuals"`
	Sensors []sensorView `json:"sensors"`
	Ports   []portView   `json:"ports"`
	Frames  []frameView  `json:"frames"`
}

// deviceViewOf flattens dev into its wire shape. The HDD-derived arrays
// stay empty until the device has been bound to an HDD document — a
// device that has never been bound has no comp tree to flatten yet.
func deviceViewOf(dev registry.Device) deviceView {
	v := deviceView{
		ID:      dev.ID,
		IP:      dev.IP.String(),
		Board:   dev.Board,
		App:     dev.App,
		Version: dev.Version,
		Status:  dev.Connectivity.String(),
		Stale:   dev.DocStale,
		Pose:    poseOf(dev.Pose),
		Visuals: []visualView{},
		Sensors: []sensorView{},
		Ports:   []portView{},
		Frames:  []frameView{},
	}

	if dev.MAC != nil {
		v.MAC = dev.MAC.String()
	}

	if dev.Doc == nil {
		return v
	}

	for _, comp := range dev.Doc.Comps {
		for _, vis := range comp.Visuals {
			v.Visuals = append(v.Visuals, visualView{
				Comp:   comp.Name,
				Name:   vis.Name,
				Pose:   posePtrOf(vis.Pose),
				Model:  modelRefView{Href: vis.Model.Href, SHA: vis.Model.SHA},
				Toggle: vis.Toggle,
			})
		}

		for _, port := range comp.Ports {
			v.Ports = append(v.Ports, portView{
				Comp:     comp.Name,
				Name:     port.Name,
				Type:     port.PortType,
				Pose:     posePtrOf(port.Pose),
				Mesh:     port.Mesh,
				Geometry: geometriesOf(port.Geometry),
			})
		}

		for _, sensor := range comp.Sensors {
			sv := sensorView{
				Comp:      comp.Name,
				Name:      sensor.Name,
				Kind:      sensor.Kind,
				Pose:      posePtrOf(sensor.Pose),
				Driver:    sensor.Driver,
				AxisAlign: sensor.AxisAlign,
			}

			if sensor.FOV != nil {
				fov := geometryOf(*sensor.FOV)
				sv.FOV = &fov
			}

			v.Sensors = append(v.Sensors, sv)
		}

		for _, frame := range comp.Frames {
			v.Frames = append(v.Frames, frameView{
				Comp:        comp.Name,
				Name:        frame.Name,
				Description: frame.Description,
				Pose:        poseOf(frame.Pose),
			})
		}
	}

	return v
}
