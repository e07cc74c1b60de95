// Copyright (C) 2017 Google Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package resetplan

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/baldurk/renderdoc-sub050/gapis/api/vulkan"
	"github.com/baldurk/renderdoc-sub050/gapis/tracker"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
)

// number encodes v as a JSON number. jwriter.Int would wrap values past
// math.MaxInt64.
func number(v uint64) json.RawMessage { return json.RawMessage(strconv.FormatUint(v, 10)) }

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func location(r ResourcePlan) string {
	if !r.Bound {
		return "unbound"
	}
	return fmt.Sprintf("memory %d %v", r.Memory, r.Range)
}

// WriteText writes the plan as aligned text tables.
func WriteText(w io.Writer, frame string, p *Plan) error {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	if frame != "" {
		fmt.Fprintf(tw, "Frame: %s\n\n", frame)
	}

	fmt.Fprintln(tw, "MEMORY\tSIZE\tALIASED\tRESET\tINIT\tSTATUS")
	for _, a := range p.Allocations {
		status := "live"
		switch {
		case a.Abandoned:
			status = "abandoned"
		case a.Freed:
			status = "freed"
		}
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\t%s\n", a.Allocation, a.Size,
			yesNo(a.Aliased), yesNo(a.NeedsReset), yesNo(a.NeedsInit), status)
	}

	fmt.Fprintln(tw, "\nMEMORY\tRANGE\tACCESS\tQUEUE FAMILY")
	for _, a := range p.Allocations {
		for _, s := range a.States {
			fmt.Fprintf(tw, "%d\t%v\t%v\t%s\n", a.Allocation, s.Span, s.Value.Access,
				vulkan.QueueFamilyString(s.Value.QueueFamily))
		}
	}

	fmt.Fprintln(tw, "\nRESOURCE\tKIND\tLOCATION\tALIASED\tVERDICT")
	for _, r := range p.Resources {
		fmt.Fprintf(tw, "%d\t%v\t%s\t%s\t%v\n", r.Resource, r.Kind, location(r), yesNo(r.Aliased), r.Reset)
	}

	fmt.Fprintln(tw, "\nORDER")
	for _, a := range p.Allocations {
		fmt.Fprintf(tw, "memory %d:", a.Allocation)
		for _, r := range a.Ordered() {
			fmt.Fprintf(tw, " %v %d (%v)", r.Kind, r.Resource, r.Reset)
		}
		fmt.Fprintln(tw)
	}

	if len(p.Issues) > 0 {
		fmt.Fprintln(tw, "\nISSUES")
		for _, i := range p.Issues {
			fmt.Fprintln(tw, i)
		}
	}
	if len(p.Errors) > 0 {
		fmt.Fprintln(tw, "\nERRORS")
		for _, err := range p.Errors {
			fmt.Fprintln(tw, err)
		}
	}
	return tw.Flush()
}

// WriteJSON writes the plan as a JSON object.
func WriteJSON(w io.Writer, frame string, p *Plan) error {
	jw := jwriter.NewWriter()
	obj := jw.Object()
	obj.Name("frame").String(frame)

	allocations := obj.Name("allocations").Array()
	for _, a := range p.Allocations {
		writeAllocation(allocations.Object(), a)
	}
	allocations.End()

	resources := obj.Name("resources").Array()
	for _, r := range p.Resources {
		writeResource(resources.Object(), r)
	}
	resources.End()

	issues := obj.Name("issues").Array()
	for _, i := range p.Issues {
		o := issues.Object()
		o.Name("target").String(i.Target)
		o.Name("mismatch").String(i.Mismatch.String())
		o.Name("detail").String(i.Detail)
		o.Name("reset").Bool(i.Reset)
		o.End()
	}
	issues.End()

	errs := obj.Name("errors").Array()
	for _, err := range p.Errors {
		errs.String(err.Error())
	}
	errs.End()

	obj.End()
	if err := jw.Error(); err != nil {
		return err
	}
	_, err := w.Write(append(jw.Bytes(), '\n'))
	return err
}

func writeAllocation(obj jwriter.ObjectState, a AllocationPlan) {
	defer obj.End()
	obj.Name("memory").Raw(number(uint64(a.Allocation)))
	obj.Name("size").Raw(number(a.Size))
	obj.Name("aliased").Bool(a.Aliased)
	obj.Name("needsReset").Bool(a.NeedsReset)
	obj.Name("needsInit").Bool(a.NeedsInit)
	obj.Name("abandoned").Bool(a.Abandoned)
	obj.Name("freed").Bool(a.Freed)

	order := obj.Name("order").Array()
	for _, r := range a.Ordered() {
		order.Raw(number(uint64(r.Resource)))
	}
	order.End()

	states := obj.Name("states").Array()
	for _, s := range a.States {
		o := states.Object()
		o.Name("start").Raw(number(s.Span.Start))
		o.Name("end").Raw(number(s.Span.End))
		o.Name("access").String(s.Value.Access.String())
		o.Name("queueFamily").String(vulkan.QueueFamilyString(s.Value.QueueFamily))
		o.End()
	}
	states.End()
}

func writeResource(obj jwriter.ObjectState, r ResourcePlan) {
	defer obj.End()
	obj.Name("resource").Raw(number(uint64(r.Resource)))
	obj.Name("kind").String(r.Kind.String())
	obj.Name("bound").Bool(r.Bound)
	if r.Bound {
		obj.Name("memory").Raw(number(uint64(r.Memory)))
		obj.Name("start").Raw(number(r.Range.Start))
		obj.Name("end").Raw(number(r.Range.End))
	}
	obj.Name("aliased").Bool(r.Aliased)
	obj.Name("verdict").String(r.Reset.String())
}

// WriteRangeChanges writes the layout and queue family summary of an image.
func WriteRangeChanges(w io.Writer, image ResourceID, c tracker.ImageSubresourceRangeStateChanges) error {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintf(tw, "Image %d\n", image)
	fmt.Fprintln(tw, "\tUNIFORM START\tUNIFORM END\tCHANGED\tSTART\tEND")
	fmt.Fprintf(tw, "layout\t%s\t%s\t%s\t%v\t%v\n",
		yesNo(c.SameStartLayout), yesNo(c.SameLayout), yesNo(c.LayoutChanged),
		c.StartLayout, c.Layout)
	fmt.Fprintf(tw, "queue family\t%s\t%s\t%s\t%s\t%s\n",
		yesNo(c.SameStartQueueFamily), yesNo(c.SameQueueFamily), yesNo(c.QueueFamilyChanged),
		vulkan.QueueFamilyString(c.StartQueueFamily), vulkan.QueueFamilyString(c.QueueFamily))
	return tw.Flush()
}

// WriteRangeChangesJSON is WriteRangeChanges as a JSON object.
func WriteRangeChangesJSON(w io.Writer, image ResourceID, c tracker.ImageSubresourceRangeStateChanges) error {
	jw := jwriter.NewWriter()
	obj := jw.Object()
	obj.Name("image").Raw(number(uint64(image)))
	obj.Name("sameStartLayout").Bool(c.SameStartLayout)
	obj.Name("sameLayout").Bool(c.SameLayout)
	obj.Name("layoutChanged").Bool(c.LayoutChanged)
	obj.Name("startLayout").String(c.StartLayout.String())
	obj.Name("layout").String(c.Layout.String())
	obj.Name("sameStartQueueFamily").Bool(c.SameStartQueueFamily)
	obj.Name("sameQueueFamily").Bool(c.SameQueueFamily)
	obj.Name("queueFamilyChanged").Bool(c.QueueFamilyChanged)
	obj.Name("startQueueFamily").String(vulkan.QueueFamilyString(c.StartQueueFamily))
	obj.Name("queueFamily").String(vulkan.QueueFamilyString(c.QueueFamily))
	obj.End()
	if err := jw.Error(); err != nil {
		return err
	}
	_, err := w.Write(append(jw.Bytes(), '\n'))
	return err
}
