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
	"io"
	"strconv"
	"strings"

	"github.com/baldurk/renderdoc-sub050/core/fault"
	"github.com/baldurk/renderdoc-sub050/gapis/api/vulkan"
	"github.com/baldurk/renderdoc-sub050/gapis/tracker"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ErrBadTrace is returned for trace files that cannot be decoded.
const ErrBadTrace = fault.Const("Malformed trace")

// Trace is a decoded trace file: the events of one frame.
type Trace struct {
	Frame  string
	Events []Event
}

// LoadTrace decodes a YAML trace file. Each event is a mapping with a single
// key naming the event kind:
//
//	frame: example
//	events:
//	  - allocate: {memory: 1, size: 256}
//	  - create_buffer: {buffer: 10, sharing: exclusive}
//	  - bind_buffer: {buffer: 10, memory: 1, offset: 0, size: 256}
//	  - submit:
//	      queue_family: 0
//	      events:
//	        - buffer_access: {buffer: 10, action: write, size: whole}
func LoadTrace(r io.Reader) (*Trace, error) {
	doc := struct {
		Frame  string      `yaml:"frame"`
		Events []yaml.Node `yaml:"events"`
	}{}
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if err == io.EOF {
			return &Trace{}, nil
		}
		return nil, errors.Wrapf(ErrBadTrace, "%v", err)
	}
	events, err := decodeEvents(doc.Events)
	if err != nil {
		return nil, err
	}
	return &Trace{Frame: doc.Frame, Events: events}, nil
}

func decodeEvents(nodes []yaml.Node) ([]Event, error) {
	out := make([]Event, 0, len(nodes))
	for i := range nodes {
		e, err := decodeEvent(&nodes[i])
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func decodeEvent(n *yaml.Node) (Event, error) {
	if n.Kind != yaml.MappingNode || len(n.Content) != 2 {
		return nil, errors.Wrapf(ErrBadTrace, "line %d: an event is a mapping with one key", n.Line)
	}
	kind, body := n.Content[0].Value, n.Content[1]
	decoder, ok := eventDecoders[kind]
	if !ok {
		return nil, errors.Wrapf(ErrBadTrace, "line %d: unknown event %q", n.Line, kind)
	}
	e, err := decoder(body)
	if err != nil {
		return nil, errors.Wrapf(err, "line %d: %s", body.Line, kind)
	}
	return e, nil
}

var eventDecoders map[string]func(*yaml.Node) (Event, error)

func init() {
	eventDecoders = map[string]func(*yaml.Node) (Event, error){
		"allocate":       decodeAllocate,
		"free":           decodeFree,
		"create_buffer":  decodeCreateBuffer,
		"create_image":   decodeCreateImage,
		"destroy_image":  decodeDestroyImage,
		"bind_buffer":    decodeBindBuffer,
		"bind_image":     decodeBindImage,
		"buffer_access":  decodeBufferAccess,
		"memory_access":  decodeMemoryAccess,
		"image_access":   decodeImageAccess,
		"buffer_barrier": decodeBufferBarrier,
		"image_barrier":  decodeImageBarrier,
		"submit":         decodeSubmit,
	}
}

// sizeValue is a byte count, or "whole" for VK_WHOLE_SIZE.
type sizeValue uint64

func (s *sizeValue) UnmarshalYAML(n *yaml.Node) error {
	if strings.EqualFold(n.Value, "whole") {
		*s = sizeValue(vulkan.VK_WHOLE_SIZE)
		return nil
	}
	v, err := strconv.ParseUint(n.Value, 0, 64)
	if err != nil {
		return errors.Wrapf(ErrBadTrace, "size %q", n.Value)
	}
	*s = sizeValue(v)
	return nil
}

// countValue is a level or layer count, or "remaining".
type countValue uint32

func (c *countValue) UnmarshalYAML(n *yaml.Node) error {
	if strings.EqualFold(n.Value, "remaining") {
		*c = countValue(vulkan.VK_REMAINING_ARRAY_LAYERS)
		return nil
	}
	v, err := strconv.ParseUint(n.Value, 0, 32)
	if err != nil {
		return errors.Wrapf(ErrBadTrace, "count %q", n.Value)
	}
	*c = countValue(v)
	return nil
}

// queueFamilyValue is a queue family index, "ignored" or "external".
type queueFamilyValue uint32

func (q *queueFamilyValue) UnmarshalYAML(n *yaml.Node) error {
	v, err := vulkan.ParseQueueFamily(n.Value)
	*q = queueFamilyValue(v)
	return err
}

type layoutValue vulkan.VkImageLayout

func (l *layoutValue) UnmarshalYAML(n *yaml.Node) error {
	v, err := vulkan.ParseImageLayout(n.Value)
	*l = layoutValue(v)
	return err
}

type sharingValue vulkan.VkSharingMode

func (s *sharingValue) UnmarshalYAML(n *yaml.Node) error {
	v, err := vulkan.ParseSharingMode(n.Value)
	*s = sharingValue(v)
	return err
}

type aspectsValue vulkan.VkImageAspectFlags

func (a *aspectsValue) UnmarshalYAML(n *yaml.Node) error {
	v, err := vulkan.ParseImageAspectFlags(n.Value)
	*a = aspectsValue(v)
	return err
}

type actionValue tracker.AccessAction

func (a *actionValue) UnmarshalYAML(n *yaml.Node) error {
	v, err := tracker.ParseAccessAction(n.Value)
	*a = actionValue(v)
	return err
}

// subresourceRange defaults to every subresource of the image.
type subresourceRange struct {
	Aspect    *aspectsValue `yaml:"aspect"`
	BaseMip   uint32        `yaml:"base_mip"`
	Mips      countValue    `yaml:"mips"`
	BaseLayer uint32        `yaml:"base_layer"`
	Layers    countValue    `yaml:"layers"`
}

func wholeRange() subresourceRange {
	return subresourceRange{
		Mips:   countValue(vulkan.VK_REMAINING_MIP_LEVELS),
		Layers: countValue(vulkan.VK_REMAINING_ARRAY_LAYERS),
	}
}

// vk returns the range. Without an aspect, every aspect of the image is
// selected.
func (r subresourceRange) vk() vulkan.VkImageSubresourceRange {
	mask := ^vulkan.VkImageAspectFlags(0)
	if r.Aspect != nil {
		mask = vulkan.VkImageAspectFlags(*r.Aspect)
	}
	return vulkan.VkImageSubresourceRange{
		AspectMask:     mask,
		BaseMipLevel:   r.BaseMip,
		LevelCount:     uint32(r.Mips),
		BaseArrayLayer: r.BaseLayer,
		LayerCount:     uint32(r.Layers),
	}
}

func decodeAllocate(n *yaml.Node) (Event, error) {
	raw := struct {
		Memory uint64 `yaml:"memory"`
		Size   uint64 `yaml:"size"`
	}{}
	err := n.Decode(&raw)
	return AllocateMemory{Memory: AllocationID(raw.Memory), Size: raw.Size}, err
}

func decodeFree(n *yaml.Node) (Event, error) {
	raw := struct {
		Memory uint64 `yaml:"memory"`
	}{}
	err := n.Decode(&raw)
	return FreeMemory{Memory: AllocationID(raw.Memory)}, err
}

func decodeCreateBuffer(n *yaml.Node) (Event, error) {
	raw := struct {
		Buffer        uint64       `yaml:"buffer"`
		Size          uint64       `yaml:"size"`
		Sharing       sharingValue `yaml:"sharing"`
		QueueFamilies []uint32     `yaml:"queue_families"`
	}{}
	err := n.Decode(&raw)
	return CreateBuffer{
		Buffer: ResourceID(raw.Buffer),
		Info: vulkan.VkBufferCreateInfo{
			Size:               raw.Size,
			SharingMode:        vulkan.VkSharingMode(raw.Sharing),
			QueueFamilyIndices: raw.QueueFamilies,
		},
	}, err
}

func decodeCreateImage(n *yaml.Node) (Event, error) {
	raw := struct {
		Image           uint64       `yaml:"image"`
		Type            string       `yaml:"type"`
		Format          string       `yaml:"format"`
		Width           uint32       `yaml:"width"`
		Height          uint32       `yaml:"height"`
		Depth           uint32       `yaml:"depth"`
		Mips            uint32       `yaml:"mips"`
		Layers          uint32       `yaml:"layers"`
		ArrayCompatible bool         `yaml:"array_compatible"`
		InitialLayout   layoutValue  `yaml:"initial_layout"`
		Sharing         sharingValue `yaml:"sharing"`
		QueueFamilies   []uint32     `yaml:"queue_families"`
	}{Type: "2d", Format: "r8g8b8a8_unorm", Width: 1, Height: 1, Depth: 1, Mips: 1, Layers: 1}
	if err := n.Decode(&raw); err != nil {
		return nil, err
	}
	imageType, err := vulkan.ParseImageType(raw.Type)
	if err != nil {
		return nil, err
	}
	format, err := vulkan.ParseFormat(raw.Format)
	if err != nil {
		return nil, err
	}
	info := vulkan.VkImageCreateInfo{
		ImageType:          imageType,
		Fmt:                format,
		Extent:             vulkan.VkExtent3D{Width: raw.Width, Height: raw.Height, Depth: raw.Depth},
		MipLevels:          raw.Mips,
		ArrayLayers:        raw.Layers,
		SharingMode:        vulkan.VkSharingMode(raw.Sharing),
		QueueFamilyIndices: raw.QueueFamilies,
		InitialLayout:      vulkan.VkImageLayout(raw.InitialLayout),
	}
	if raw.ArrayCompatible {
		info.Flags |= vulkan.VkImageCreateFlagBits_VK_IMAGE_CREATE_2D_ARRAY_COMPATIBLE_BIT
	}
	return CreateImage{Image: ResourceID(raw.Image), Info: info}, nil
}

func decodeDestroyImage(n *yaml.Node) (Event, error) {
	raw := struct {
		Image uint64 `yaml:"image"`
	}{}
	err := n.Decode(&raw)
	return DestroyImage{Image: ResourceID(raw.Image)}, err
}

type rawBind struct {
	Buffer    uint64 `yaml:"buffer"`
	Image     uint64 `yaml:"image"`
	Memory    uint64 `yaml:"memory"`
	Offset    uint64 `yaml:"offset"`
	Size      uint64 `yaml:"size"`
	Alignment uint64 `yaml:"alignment"`
}

func (b rawBind) requirements() vulkan.VkMemoryRequirements {
	return vulkan.VkMemoryRequirements{Size: b.Size, Alignment: b.Alignment}
}

func decodeBindBuffer(n *yaml.Node) (Event, error) {
	raw := rawBind{}
	err := n.Decode(&raw)
	return BindBufferMemory{
		Buffer:       ResourceID(raw.Buffer),
		Memory:       AllocationID(raw.Memory),
		Offset:       raw.Offset,
		Requirements: raw.requirements(),
	}, err
}

func decodeBindImage(n *yaml.Node) (Event, error) {
	raw := rawBind{}
	err := n.Decode(&raw)
	return BindImageMemory{
		Image:        ResourceID(raw.Image),
		Memory:       AllocationID(raw.Memory),
		Offset:       raw.Offset,
		Requirements: raw.requirements(),
	}, err
}

func decodeBufferAccess(n *yaml.Node) (Event, error) {
	raw := struct {
		Buffer      uint64           `yaml:"buffer"`
		QueueFamily queueFamilyValue `yaml:"queue_family"`
		Action      actionValue      `yaml:"action"`
		Offset      uint64           `yaml:"offset"`
		Size        sizeValue        `yaml:"size"`
	}{QueueFamily: queueFamilyValue(vulkan.VK_QUEUE_FAMILY_IGNORED), Size: sizeValue(vulkan.VK_WHOLE_SIZE)}
	err := n.Decode(&raw)
	return BufferAccess{
		Buffer:      ResourceID(raw.Buffer),
		QueueFamily: uint32(raw.QueueFamily),
		Action:      tracker.AccessAction(raw.Action),
		Offset:      raw.Offset,
		Size:        uint64(raw.Size),
	}, err
}

func decodeMemoryAccess(n *yaml.Node) (Event, error) {
	raw := struct {
		Memory uint64      `yaml:"memory"`
		Action actionValue `yaml:"action"`
		Offset uint64      `yaml:"offset"`
		Size   sizeValue   `yaml:"size"`
	}{Size: sizeValue(vulkan.VK_WHOLE_SIZE)}
	err := n.Decode(&raw)
	return MemoryAccess{
		Memory: AllocationID(raw.Memory),
		Action: tracker.AccessAction(raw.Action),
		Offset: raw.Offset,
		Size:   uint64(raw.Size),
	}, err
}

func decodeImageAccess(n *yaml.Node) (Event, error) {
	raw := struct {
		Image       uint64           `yaml:"image"`
		QueueFamily queueFamilyValue `yaml:"queue_family"`
		Action      actionValue      `yaml:"action"`
		Layout      layoutValue      `yaml:"layout"`
		Range       subresourceRange `yaml:"range"`
		View2D      bool             `yaml:"view_2d"`
	}{QueueFamily: queueFamilyValue(vulkan.VK_QUEUE_FAMILY_IGNORED), Range: wholeRange()}
	err := n.Decode(&raw)
	return ImageAccess{
		Image:       ResourceID(raw.Image),
		QueueFamily: uint32(raw.QueueFamily),
		Action:      tracker.AccessAction(raw.Action),
		Layout:      vulkan.VkImageLayout(raw.Layout),
		Range:       raw.Range.vk(),
		Is2DView:    raw.View2D,
	}, err
}

func decodeBufferBarrier(n *yaml.Node) (Event, error) {
	raw := struct {
		Buffer      uint64           `yaml:"buffer"`
		QueueFamily queueFamilyValue `yaml:"queue_family"`
		Src         queueFamilyValue `yaml:"src"`
		Dst         queueFamilyValue `yaml:"dst"`
		Offset      uint64           `yaml:"offset"`
		Size        sizeValue        `yaml:"size"`
	}{
		QueueFamily: queueFamilyValue(vulkan.VK_QUEUE_FAMILY_IGNORED),
		Src:         queueFamilyValue(vulkan.VK_QUEUE_FAMILY_IGNORED),
		Dst:         queueFamilyValue(vulkan.VK_QUEUE_FAMILY_IGNORED),
		Size:        sizeValue(vulkan.VK_WHOLE_SIZE),
	}
	err := n.Decode(&raw)
	return BufferBarrier{
		Buffer:         ResourceID(raw.Buffer),
		QueueFamily:    uint32(raw.QueueFamily),
		SrcQueueFamily: uint32(raw.Src),
		DstQueueFamily: uint32(raw.Dst),
		Offset:         raw.Offset,
		Size:           uint64(raw.Size),
	}, err
}

func decodeImageBarrier(n *yaml.Node) (Event, error) {
	raw := struct {
		Image       uint64           `yaml:"image"`
		QueueFamily queueFamilyValue `yaml:"queue_family"`
		OldLayout   layoutValue      `yaml:"old_layout"`
		NewLayout   layoutValue      `yaml:"new_layout"`
		Src         queueFamilyValue `yaml:"src"`
		Dst         queueFamilyValue `yaml:"dst"`
		Range       subresourceRange `yaml:"range"`
	}{
		QueueFamily: queueFamilyValue(vulkan.VK_QUEUE_FAMILY_IGNORED),
		Src:         queueFamilyValue(vulkan.VK_QUEUE_FAMILY_IGNORED),
		Dst:         queueFamilyValue(vulkan.VK_QUEUE_FAMILY_IGNORED),
		Range:       wholeRange(),
	}
	err := n.Decode(&raw)
	return ImageBarrier{
		Image:          ResourceID(raw.Image),
		QueueFamily:    uint32(raw.QueueFamily),
		OldLayout:      vulkan.VkImageLayout(raw.OldLayout),
		NewLayout:      vulkan.VkImageLayout(raw.NewLayout),
		SrcQueueFamily: uint32(raw.Src),
		DstQueueFamily: uint32(raw.Dst),
		Range:          raw.Range.vk(),
	}, err
}

func decodeSubmit(n *yaml.Node) (Event, error) {
	raw := struct {
		Queue       uint64           `yaml:"queue"`
		QueueFamily queueFamilyValue `yaml:"queue_family"`
		Events      []yaml.Node      `yaml:"events"`
	}{QueueFamily: queueFamilyValue(vulkan.VK_QUEUE_FAMILY_IGNORED)}
	if err := n.Decode(&raw); err != nil {
		return nil, err
	}
	events, err := decodeEvents(raw.Events)
	if err != nil {
		return nil, err
	}
	return Submit{Queue: raw.Queue, QueueFamily: uint32(raw.QueueFamily), Events: events}, nil
}
