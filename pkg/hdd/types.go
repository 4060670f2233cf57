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

// Package hdd parses the hardware-descriptive XML document into a typed
// in-memory tree: comps, visuals, ports, sensors, frames, and model
// references. The parser performs no I/O and reports a single structured
// error with an element path on failure.
package hdd

// Pose is the six-real translation+rotation tuple every posed element
// carries: x, y, z in metres, roll, pitch, yaw in radians.
type Pose struct {
	X, Y, Z             float64
	Roll, Pitch, Yaw    float64
}

// ModelRef points at a 3D model asset, optionally pre-verified by SHA-256.
// SHA is empty when the document doesn't declare one — AssetResolver still
// fetches the model and records the SHA it computes.
type ModelRef struct {
	Href string
	SHA  string
}

// Geometry is one of a closed set of parametric shapes attached to a port
// or a sensor's field-of-view cone.
type Geometry struct {
	Kind string // "box", "cylinder", "sphere", "cone"

	// Box
	SizeX, SizeY, SizeZ float64

	// Cylinder / Sphere / Cone
	Radius, Length float64
}

// Visual attaches a 3D model to a comp with its own pose relative to the
// device origin and an optional toggle group for show/hide UI.
type Visual struct {
	Name   string
	Pose   *Pose
	Model  ModelRef
	Toggle string
}

// Port is a named connection point on a comp: electrical, data, optical.
type Port struct {
	Name      string
	PortType  string
	Pose      *Pose
	Mesh      string
	Geometry  []Geometry
}

// Sensor is a named measurement element on a comp.
type Sensor struct {
	Name   string
	Kind   string // "inertial", "optical", "rf", "em", "chemical", "force"
	Pose   *Pose
	Driver string

	// AxisAlign maps the sensor's local axes onto the comp frame, e.g.
	// {"x":"Y","y":"-X","z":"Z"}. Nil if the document didn't specify one.
	AxisAlign map[string]string

	// FOV is the field-of-view descriptor for optical/RF sensors. Nil for
	// sensor kinds that don't have one.
	FOV *Geometry
}

// Frame is a named coordinate system attached to the device, used purely
// for visualization (not physically part of any comp).
type Frame struct {
	Name        string
	Description string
	Pose        Pose
}

// Comp is one physical component of the device.
type Comp struct {
	Name        string
	Role        string
	Description string
	Visuals     []Visual
	Ports       []Port
	Sensors     []Sensor
	Frames      []Frame
}

// Document is the parsed tree of a hardware-descriptive XML document.
type Document struct {
	Comps []Comp
}
